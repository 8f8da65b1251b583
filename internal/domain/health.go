package domain

// Health states reported by GET /healthz.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status    string          `json:"status"`
	Services  []ServiceHealth `json:"services"`
	Timestamp string          `json:"timestamp"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// BotMetrics is returned by GET /v1/metrics/bot.
type BotMetrics struct {
	TotalReplies       int64            `json:"totalReplies"`
	RepliesByKind      map[string]int64 `json:"repliesByKind"`
	PriceFetches       int64            `json:"priceFetches"`
	PriceFetchFailRate float64          `json:"priceFetchFailRate"`
	CacheHitRate       float64          `json:"cacheHitRate"`
	ExternalErrors     int64            `json:"externalErrors"`
	Period             string           `json:"period"`
}
