// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the conversation
// core from the concrete store and transport adapters.
package port

import (
	"context"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// ProductSearcher finds products by free text within a region's storefront.
// Results are ordered by relevance; an empty slice means nothing matched.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, region domain.RegionCode, limit int) ([]domain.ProductCandidate, error)
}

// EditionLister lists the purchasable variants of a product. The base
// edition is always first.
type EditionLister interface {
	ListEditions(ctx context.Context, productID domain.ProductID) ([]domain.Edition, error)
}

// PriceFetcher fetches the price of one variant in one region.
// A nil PriceInfo with a nil error means the variant has no purchasable
// price there (free, delisted, bundle-only).
type PriceFetcher interface {
	FetchPrice(ctx context.Context, variantID domain.ProductID, kind domain.VariantKind, region domain.RegionCode) (*domain.PriceInfo, error)
}

// PriceSource is the full remote store collaborator.
type PriceSource interface {
	ProductSearcher
	EditionLister
	PriceFetcher
}

// ProductLinker builds the public store URL for a product.
type ProductLinker interface {
	ProductURL(id domain.ProductID) string
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
