package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a fixed-point amount with two decimal places, in whatever
// currency accompanies it.
type Cents int64

// String renders the amount as a plain decimal, e.g. "12.05" or "-0.40".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts the JSON number produced by MarshalJSON. Digits
// past the second decimal round half away from zero; null is a no-op.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	v, err := parseCents(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", data, err)
	}
	*c = v
	return nil
}

var (
	errMalformedAmount = errors.New("not a plain decimal number")
	errAmountOverflow  = errors.New("amount out of range")
)

func parseCents(s string) (Cents, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || !isDigits(whole) || !isDigits(frac) {
		return 0, errMalformedAmount
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > (math.MaxInt64-100)/100 {
		return 0, errAmountOverflow
	}

	roundUp := false
	if len(frac) > 2 {
		roundUp = frac[2] >= '5'
		frac = frac[:2]
	}
	frac += strings.Repeat("0", 2-len(frac))
	f, _ := strconv.Atoi(frac)

	v := w*100 + int64(f)
	if roundUp {
		v++
	}
	if neg {
		v = -v
	}
	return Cents(v), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// PriceQuote is one region's price observation.
//
// Available=false covers both a failed fetch and a product with no
// purchasable price in that region. Normalized is nil when the currency
// has no known conversion rate.
type PriceQuote struct {
	Region          RegionCode `json:"region"`
	Available       bool       `json:"available"`
	Amount          Cents      `json:"amount"`
	Currency        string     `json:"currency,omitempty"`
	Normalized      *Cents     `json:"normalizedUsd,omitempty"`
	DiscountPercent int        `json:"discountPercent"`
}

// Comparison summarizes a set of quotes by their normalized amounts.
type Comparison struct {
	Cheapest *PriceQuote `json:"cheapest,omitempty"`
	Spread   *Spread     `json:"spread,omitempty"`
}

// Spread is the difference between a reference quote and the cheapest one.
// Against is empty when the reference had no normalized amount and the
// spread is the most expensive quote (Highest) minus the cheapest.
type Spread struct {
	Against RegionCode `json:"against,omitempty"`
	Highest RegionCode `json:"highest,omitempty"`
	Amount  Cents      `json:"amount"`
}
