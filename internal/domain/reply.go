package domain

// ReplyKind enumerates the outcomes of handling one incoming chat message.
type ReplyKind string

const (
	ReplyRateLimited      ReplyKind = "rate_limited"
	ReplyNoPriorProduct   ReplyKind = "no_prior_product"
	ReplyChoicePrompt     ReplyKind = "choice_prompt"
	ReplyChoiceConfirmed  ReplyKind = "choice_confirmed"
	ReplyOutOfRangeChoice ReplyKind = "out_of_range_choice"
	ReplyNoResults        ReplyKind = "no_results"
	ReplyPriceReport      ReplyKind = "price_report"
	ReplyMalformedQuery   ReplyKind = "malformed_query"
)

// Channel identifies where a message came from.
type Channel struct {
	Transport string `json:"transport"`
	ID        string `json:"id,omitempty"`
}

// Reply is what the conversation hands back to a chat transport for
// rendering. Only the fields relevant to Kind are populated.
type Reply struct {
	Kind      ReplyKind `json:"kind"`
	MessageID string    `json:"messageId"`

	// rate_limited
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`

	// choice_prompt
	Candidates       []ProductCandidate `json:"candidates,omitempty"`
	ExpiresInSeconds int                `json:"expiresInSeconds,omitempty"`

	// out_of_range_choice
	MaxIndex int `json:"maxIndex,omitempty"`

	// choice_confirmed, price_report
	Product    *ProductRef  `json:"product,omitempty"`
	ProductURL string       `json:"productUrl,omitempty"`
	Quotes     []PriceQuote `json:"quotes,omitempty"`
	Comparison *Comparison  `json:"comparison,omitempty"`
}

// ChatRequest is the body of POST /v1/chat/{userId}.
type ChatRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

// PriceTable is returned by GET /v1/products/{productId}/prices.
type PriceTable struct {
	Product    ProductRef   `json:"product"`
	ProductURL string       `json:"productUrl,omitempty"`
	Quotes     []PriceQuote `json:"quotes"`
	Comparison Comparison   `json:"comparison"`
}
