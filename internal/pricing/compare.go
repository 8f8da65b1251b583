package pricing

import (
	"sort"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// SortQuotes orders quotes ascending by normalized amount. Available
// quotes with no normalized amount come next, then unavailable ones; both
// groups keep their relative order.
func SortQuotes(quotes []domain.PriceQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		ri, rj := rank(quotes[i]), rank(quotes[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			return *quotes[i].Normalized < *quotes[j].Normalized
		}
		return false
	})
}

func rank(q domain.PriceQuote) int {
	switch {
	case q.Normalized != nil:
		return 0
	case q.Available:
		return 1
	default:
		return 2
	}
}

// Compare picks the cheapest quote by normalized amount and the spread.
// The spread is reference minus cheapest when the reference region has a
// normalized amount; otherwise it is most expensive minus cheapest.
// With no normalized quotes at all the comparison is empty.
func Compare(quotes []domain.PriceQuote, reference domain.RegionCode) domain.Comparison {
	var cheapest, highest, ref *domain.PriceQuote
	for i := range quotes {
		q := &quotes[i]
		if q.Normalized == nil {
			continue
		}
		if cheapest == nil || *q.Normalized < *cheapest.Normalized {
			cheapest = q
		}
		if highest == nil || *q.Normalized > *highest.Normalized {
			highest = q
		}
		if ref == nil && reference != "" && q.Region == reference {
			ref = q
		}
	}
	if cheapest == nil {
		return domain.Comparison{}
	}

	low := *cheapest
	cmp := domain.Comparison{Cheapest: &low}
	if ref != nil {
		cmp.Spread = &domain.Spread{
			Against: ref.Region,
			Amount:  *ref.Normalized - *cheapest.Normalized,
		}
	} else {
		cmp.Spread = &domain.Spread{
			Highest: highest.Region,
			Amount:  *highest.Normalized - *cheapest.Normalized,
		}
	}
	return cmp
}
