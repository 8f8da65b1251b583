package pricing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/port"
)

var tracer = otel.Tracer("pricing/aggregator")

// Config bounds the fan-out.
type Config struct {
	// FetchTimeout caps each region's fetch. Zero means no per-fetch cap.
	FetchTimeout time.Duration
	// MaxConcurrency caps in-flight fetches per Aggregate call. Zero means
	// one goroutine per region.
	MaxConcurrency int
}

// Aggregator fetches one product's price in many regions at once.
type Aggregator struct {
	source     port.PriceFetcher
	normalizer *Normalizer
	cfg        Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAggregator creates the aggregator with all dependencies injected.
func NewAggregator(
	source port.PriceFetcher,
	normalizer *Normalizer,
	cfg Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		source:     source,
		normalizer: normalizer,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Aggregate returns one quote per region, sorted by normalized USD amount
// with unconvertible and unavailable quotes last. It waits for every fetch
// to settle; a failed or timed-out fetch yields an unavailable quote and
// never fails the call.
func (a *Aggregator) Aggregate(ctx context.Context, product domain.ProductRef, regions []domain.RegionCode) []domain.PriceQuote {
	ctx, span := tracer.Start(ctx, "Aggregator.Aggregate")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", string(product.ID)),
		attribute.Int("regions", len(regions)),
	)

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("aggregate", time.Since(start))
	}()

	kind := product.Kind
	if kind == "" {
		kind = domain.VariantBase
	}

	quotes := make([]domain.PriceQuote, len(regions))

	var g errgroup.Group
	if a.cfg.MaxConcurrency > 0 {
		g.SetLimit(a.cfg.MaxConcurrency)
	}
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			quotes[i] = a.fetchOne(ctx, product.ID, kind, region)
			return nil
		})
	}
	_ = g.Wait()

	SortQuotes(quotes)

	available := 0
	for _, q := range quotes {
		if q.Available {
			available++
		}
	}
	span.SetAttributes(attribute.Int("available", available))

	return quotes
}

func (a *Aggregator) fetchOne(ctx context.Context, id domain.ProductID, kind domain.VariantKind, region domain.RegionCode) domain.PriceQuote {
	quote := domain.PriceQuote{Region: region}

	if a.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "Aggregator.fetchOne")
	defer span.End()
	span.SetAttributes(attribute.String("region", string(region)))

	info, err := a.source.FetchPrice(ctx, id, kind, region)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		a.metrics.IncrPriceFetch(region, observability.FetchError)
		a.metrics.IncrExternalError("price_source")
		a.logger.Warn("price fetch failed",
			zap.String("product_id", string(id)),
			zap.String("region", string(region)),
			zap.Error(err),
		)
		return quote

	case info == nil:
		a.metrics.IncrPriceFetch(region, observability.FetchNoPrice)
		a.logger.Debug("no purchasable price",
			zap.String("product_id", string(id)),
			zap.String("region", string(region)),
		)
		return quote
	}

	a.metrics.IncrPriceFetch(region, observability.FetchOK)

	quote.Available = true
	quote.Amount = info.Amount
	quote.Currency = info.Currency
	quote.DiscountPercent = info.DiscountPercent
	if usd, ok := a.normalizer.ToCommon(info.Amount, info.Currency); ok {
		quote.Normalized = &usd
	} else {
		a.logger.Debug("no conversion rate",
			zap.String("currency", info.Currency),
			zap.String("region", string(region)),
		)
	}
	return quote
}
