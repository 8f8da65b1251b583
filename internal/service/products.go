package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/port"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/pricing"
)

// Products serves direct product lookups that bypass the chat flow.
type Products struct {
	editions   port.EditionLister
	aggregator PriceAggregator
	linker     port.ProductLinker
	reference  domain.RegionCode
	logger     *zap.Logger
}

// NewProducts creates the products service.
func NewProducts(
	editions port.EditionLister,
	aggregator PriceAggregator,
	linker port.ProductLinker,
	reference domain.RegionCode,
	logger *zap.Logger,
) *Products {
	return &Products{
		editions:   editions,
		aggregator: aggregator,
		linker:     linker,
		reference:  reference,
		logger:     logger,
	}
}

// Editions lists the purchasable variants of a product.
func (p *Products) Editions(ctx context.Context, id domain.ProductID) ([]domain.Edition, error) {
	ctx, span := tracer.Start(ctx, "Products.Editions")
	defer span.End()

	editions, err := p.editions.ListEditions(ctx, id)
	if err != nil {
		p.logger.Warn("list editions failed", zap.String("product_id", string(id)), zap.Error(err))
		return nil, fmt.Errorf("listing editions of %s: %w", id, err)
	}
	return editions, nil
}

// Prices aggregates one variant's price across regions.
func (p *Products) Prices(ctx context.Context, product domain.ProductRef, regions []domain.RegionCode) *domain.PriceTable {
	ctx, span := tracer.Start(ctx, "Products.Prices")
	defer span.End()

	if product.Kind == "" {
		product.Kind = domain.VariantBase
	}
	quotes := p.aggregator.Aggregate(ctx, product, regions)

	table := &domain.PriceTable{
		Product:    product,
		Quotes:     quotes,
		Comparison: pricing.Compare(quotes, p.reference),
	}
	if p.linker != nil && product.Kind == domain.VariantBase {
		table.ProductURL = p.linker.ProductURL(product.ID)
	}
	return table
}
