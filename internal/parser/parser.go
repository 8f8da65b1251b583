// Package parser splits a free-text chat message into a product name and
// a trailing run of region tokens.
//
// Region tokens are consumed greedily from the right, longest alias first.
// Consumption stops at the first word that does not end an alias, so only a
// contiguous trailing run is recognized. A product title that is itself an
// alias (a game called "Turkey", say) is read as a region-only query.
package parser

import (
	"strings"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/catalog"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/textnorm"
)

// AliasTable resolves normalized tokens to regions.
type AliasTable interface {
	Lookup(token string) (domain.RegionCode, bool)
	IsAllToken(token string) bool
}

// Parser is stateless apart from its alias table and safe for concurrent use.
type Parser struct {
	aliases AliasTable
}

// New creates a parser over the given alias table.
func New(aliases AliasTable) *Parser {
	return &Parser{aliases: aliases}
}

// Parse splits text into product text and regions.
func (p *Parser) Parse(text string) domain.ParsedQuery {
	words := textnorm.Words(textnorm.Normalize(text))
	if len(words) == 0 {
		return domain.ParsedQuery{}
	}

	last := len(words) - 1
	if p.aliases.IsAllToken(words[last]) {
		// "all" alone, or "<product> all"
		return domain.ParsedQuery{
			ProductText: strings.Join(words[:last], " "),
			AllRegions:  true,
		}
	}

	var found []domain.RegionCode
	end := len(words)
	for end > 0 {
		code, n := p.matchEndingAt(words, end)
		if n == 0 {
			break
		}
		found = append(found, code)
		end -= n
	}

	return domain.ParsedQuery{
		ProductText: strings.Join(words[:end], " "),
		Regions:     reverseUnique(found),
	}
}

// matchEndingAt tries the longest alias ending just before words[end].
// It returns the number of words consumed, 0 when nothing matched.
func (p *Parser) matchEndingAt(words []string, end int) (domain.RegionCode, int) {
	for n := catalog.MaxAliasWords; n >= 1; n-- {
		if end-n < 0 {
			continue
		}
		if code, ok := p.aliases.Lookup(strings.Join(words[end-n:end], " ")); ok {
			return code, n
		}
	}
	return "", 0
}

// reverseUnique turns right-to-left discovery order into left-to-right
// order, keeping the first occurrence of each region.
func reverseUnique(found []domain.RegionCode) []domain.RegionCode {
	if len(found) == 0 {
		return nil
	}
	out := make([]domain.RegionCode, 0, len(found))
	seen := make(map[domain.RegionCode]struct{}, len(found))
	for i := len(found) - 1; i >= 0; i-- {
		code := found[i]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
