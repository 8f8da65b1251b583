package domain

import "strings"

// ProductID is the opaque identifier the price source uses for a product
// or one of its purchasable variants.
type ProductID string

// VariantKind distinguishes the base product from a bundled package.
type VariantKind string

const (
	VariantBase    VariantKind = "base"
	VariantPackage VariantKind = "package"
)

// ProductCandidate is one search hit offered to the user for disambiguation.
type ProductCandidate struct {
	ID   ProductID `json:"id"`
	Name string    `json:"name"`
}

// ProductRef is a resolved product: the thing prices are fetched for.
type ProductRef struct {
	ID   ProductID   `json:"id"`
	Name string      `json:"name"`
	Kind VariantKind `json:"kind"`
}

// Edition is a purchasable variant of a product.
type Edition struct {
	ID   ProductID   `json:"id"`
	Name string      `json:"name"`
	Kind VariantKind `json:"kind"`
}

// PriceInfo is the raw price the source reports for one region.
type PriceInfo struct {
	Amount          Cents  `json:"amount"`
	Currency        string `json:"currency"`
	DiscountPercent int    `json:"discountPercent"`
}

// ParseProductID accepts a decimal product id from outside input.
func ParseProductID(s string) (ProductID, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 20 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return ProductID(s), true
}
