package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

// Price fetch outcomes.
const (
	FetchOK      = "ok"
	FetchNoPrice = "no_price"
	FetchError   = "error"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	priceFetches    *prometheus.CounterVec
	inFlight        *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// Metrics as they like without duplicate collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricebot_request_duration_seconds",
				Help:    "Duration of operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricebot_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricebot_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricebot_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		repliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricebot_replies_total",
				Help: "Replies produced, by kind.",
			},
			[]string{"kind"},
		),
		priceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricebot_price_fetches_total",
				Help: "Per-region price fetches, by outcome.",
			},
			[]string{"region", "outcome"},
		),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricebot_messages_in_flight",
				Help: "Chat messages currently being handled, by transport.",
			},
			[]string{"transport"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReply counts one reply of the given kind.
func (m *Metrics) IncrReply(kind domain.ReplyKind) {
	m.repliesTotal.WithLabelValues(string(kind)).Inc()
}

// IncrPriceFetch counts one price fetch outcome for a region.
func (m *Metrics) IncrPriceFetch(region domain.RegionCode, outcome string) {
	m.priceFetches.WithLabelValues(string(region), outcome).Inc()
}

// SetInFlight records how many messages a transport is handling.
func (m *Metrics) SetInFlight(transport string, n int) {
	m.inFlight.WithLabelValues(transport).Set(float64(n))
}

// Snapshot returns cumulative bot counters for GET /v1/metrics/bot.
func (m *Metrics) Snapshot() *domain.BotMetrics {
	families, err := m.Registry.Gather()
	if err != nil {
		return &domain.BotMetrics{RepliesByKind: map[string]int64{}, Period: "all_time"}
	}

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}

	repliesByKind := map[string]int64{}
	var totalReplies int64
	for _, metric := range metricsOf(byName, "pricebot_replies_total") {
		v := int64(metric.GetCounter().GetValue())
		repliesByKind[labelValue(metric, "kind")] += v
		totalReplies += v
	}

	var fetches, failed float64
	for _, metric := range metricsOf(byName, "pricebot_price_fetches_total") {
		v := metric.GetCounter().GetValue()
		fetches += v
		if labelValue(metric, "outcome") == FetchError {
			failed += v
		}
	}

	hits := sumCounters(metricsOf(byName, "pricebot_cache_hits_total"))
	misses := sumCounters(metricsOf(byName, "pricebot_cache_misses_total"))
	extErrors := sumCounters(metricsOf(byName, "pricebot_external_errors_total"))

	snap := &domain.BotMetrics{
		TotalReplies:   totalReplies,
		RepliesByKind:  repliesByKind,
		PriceFetches:   int64(fetches),
		ExternalErrors: int64(extErrors),
		Period:         "all_time",
	}
	if fetches > 0 {
		snap.PriceFetchFailRate = failed / fetches
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

func metricsOf(families map[string]*dto.MetricFamily, name string) []*dto.Metric {
	if f, ok := families[name]; ok {
		return f.GetMetric()
	}
	return nil
}

func sumCounters(metrics []*dto.Metric) float64 {
	var total float64
	for _, m := range metrics {
		total += m.GetCounter().GetValue()
	}
	return total
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
