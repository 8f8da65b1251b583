package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/port"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/textnorm"
)

var tracer = otel.Tracer("service")

const (
	searchCacheName      = "search"
	defaultSearchTimeout = 8 * time.Second
)

// Searcher looks products up through the price source, caching results
// per region and normalized query. Concurrent identical lookups share one
// upstream call.
type Searcher struct {
	source     port.ProductSearcher
	cache      port.Cache[[]domain.ProductCandidate]
	group      singleflight.Group
	maxResults int
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSearcher creates the searcher. maxResults is how many candidates are
// fetched and cached per query; timeout bounds each upstream lookup.
func NewSearcher(
	source port.ProductSearcher,
	cache port.Cache[[]domain.ProductCandidate],
	maxResults int,
	timeout time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Searcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	return &Searcher{
		source:     source,
		cache:      cache,
		maxResults: maxResults,
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search returns at most limit candidates. Upstream failures are logged
// and reported as no results; they are never cached.
func (s *Searcher) Search(ctx context.Context, query string, region domain.RegionCode, limit int) []domain.ProductCandidate {
	ctx, span := tracer.Start(ctx, "Searcher.Search")
	defer span.End()

	normalized := textnorm.Normalize(query)
	if normalized == "" {
		return nil
	}
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}
	span.SetAttributes(attribute.String("region", string(region)))

	key := fmt.Sprintf("search:%s:%s", region, normalized)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit(searchCacheName)
		return head(cached, limit)
	}
	s.metrics.IncrCacheMiss(searchCacheName)

	// The shared lookup outlives any single caller: it is detached from the
	// caller's cancellation and bounded by its own timeout instead.
	ch := s.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := time.Now()
		found, err := s.source.SearchProducts(lookupCtx, normalized, region, s.maxResults)
		s.metrics.RecordRequestDuration("search", time.Since(start))
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, found)
		return found, nil
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("product search abandoned",
			zap.String("query", normalized),
			zap.String("region", string(region)),
			zap.Error(ctx.Err()),
		)
		return nil
	case res := <-ch:
		if res.Err != nil {
			s.metrics.IncrExternalError("search")
			s.logger.Warn("product search failed",
				zap.String("query", normalized),
				zap.String("region", string(region)),
				zap.Error(res.Err),
			)
			return nil
		}
		return head(res.Val.([]domain.ProductCandidate), limit)
	}
}

// head returns a copy of the first n items.
func head(items []domain.ProductCandidate, n int) []domain.ProductCandidate {
	if len(items) > n {
		items = items[:n]
	}
	return append([]domain.ProductCandidate(nil), items...)
}
