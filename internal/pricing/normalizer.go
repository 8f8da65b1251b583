// Package pricing fans price fetches out across regions, converts each
// quote to USD and summarizes the result.
package pricing

import (
	"strings"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/catalog"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// Normalizer converts amounts to USD cents with a static rate table.
// Rates are USD per one unit of the currency, scaled by catalog.RateScale.
type Normalizer struct {
	rates map[string]int64
}

// NewNormalizer copies rates, keyed by upper-case ISO currency code.
func NewNormalizer(rates map[string]int64) *Normalizer {
	n := &Normalizer{rates: make(map[string]int64, len(rates))}
	for code, rate := range rates {
		n.rates[strings.ToUpper(code)] = rate
	}
	return n
}

// ToCommon returns amount in USD cents, rounded half away from zero.
// Unknown currencies report false, never a zero amount.
func (n *Normalizer) ToCommon(amount domain.Cents, currency string) (domain.Cents, bool) {
	rate, ok := n.rates[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok || rate <= 0 {
		return 0, false
	}
	return domain.Cents(divRound(int64(amount)*rate, catalog.RateScale)), true
}

func divRound(num, den int64) int64 {
	q, r := num/den, num%den
	if r < 0 {
		r = -r
	}
	if 2*r >= den {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}
