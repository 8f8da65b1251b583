// Package flow is the conversation state machine. It decides what to do
// with an incoming message from two independent per-user axes (pending
// choice, remembered product) and the parsed text. It performs no I/O.
package flow

import "github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"

// ChoiceState is the disambiguation axis.
type ChoiceState int

const (
	Idle ChoiceState = iota
	AwaitingChoice
)

func (s ChoiceState) String() string {
	if s == AwaitingChoice {
		return "awaiting_choice"
	}
	return "idle"
}

// MemoryState is the remembered-product axis.
type MemoryState int

const (
	NoMemory MemoryState = iota
	HasMemory
)

func (s MemoryState) String() string {
	if s == HasMemory {
		return "has_memory"
	}
	return "no_memory"
}

// Input is everything Route looks at.
type Input struct {
	Choice   ChoiceState
	Memory   MemoryState
	IsDigits bool
	Query    domain.ParsedQuery
}

// Action is the branch selected for a message.
type Action int

const (
	ActionMalformed Action = iota
	ActionResolveChoice
	ActionPriceDefaultFromMemory
	ActionPriceRegionsFromMemory
	ActionNoPriorProduct
	ActionSearchCandidates
	ActionSearchAndPrice
)

var actionNames = map[Action]string{
	ActionMalformed:              "malformed",
	ActionResolveChoice:          "resolve_choice",
	ActionPriceDefaultFromMemory: "price_default_from_memory",
	ActionPriceRegionsFromMemory: "price_regions_from_memory",
	ActionNoPriorProduct:         "no_prior_product",
	ActionSearchCandidates:       "search_candidates",
	ActionSearchAndPrice:         "search_and_price",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Route picks the action for in. Digits only count as a choice while one
// is pending; otherwise they are parsed like any other text.
func Route(in Input) Action {
	q := in.Query

	switch {
	case in.IsDigits && in.Choice == AwaitingChoice:
		return ActionResolveChoice

	case q.AllRegions && !q.HasProduct():
		if in.Memory == HasMemory {
			return ActionPriceDefaultFromMemory
		}
		return ActionNoPriorProduct

	case q.RegionsOnly():
		if in.Memory == HasMemory {
			return ActionPriceRegionsFromMemory
		}
		return ActionNoPriorProduct

	case q.HasProduct() && len(q.Regions) == 0 && !q.AllRegions:
		return ActionSearchCandidates

	case q.HasProduct():
		return ActionSearchAndPrice
	}

	return ActionMalformed
}
