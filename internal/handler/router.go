package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
)

var tracer = otel.Tracer("handler")

// ChatService handles one chat message.
type ChatService interface {
	HandleIncomingText(ctx context.Context, userID string, channel domain.Channel, text string) domain.Reply
}

// ProductService serves direct product lookups.
type ProductService interface {
	Editions(ctx context.Context, id domain.ProductID) ([]domain.Edition, error)
	Prices(ctx context.Context, product domain.ProductRef, regions []domain.RegionCode) *domain.PriceTable
}

// RegionCatalog lists supported regions.
type RegionCatalog interface {
	Regions() []domain.Region
	DefaultRegions() []domain.RegionCode
	Supports(code domain.RegionCode) bool
}

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Deps are the router's collaborators. Nil services leave their routes
// unregistered; a nil Tokens disables auth.
type Deps struct {
	Chat     ChatService
	Products ProductService
	Regions  RegionCatalog
	Tokens   TokenVerifier
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d))
	r.Get("/readyz", readyzHandler())
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if d.Metrics != nil {
			r.Get("/metrics/bot", botMetricsHandler(d.Metrics))
		}

		if d.Regions != nil {
			r.Get("/regions", regionsHandler(d.Regions))
		}

		if d.Products != nil && d.Regions != nil {
			r.Get("/products/{productId}/editions", editionsHandler(d.Products, logger))
			r.Get("/products/{productId}/prices", pricesHandler(d.Products, d.Regions, logger))
		}

		if d.Chat != nil {
			r.Group(func(r chi.Router) {
				if d.Tokens != nil {
					r.Use(JWTAuthMiddleware(d.Tokens, logger))
				}
				r.Post("/chat/{userId}", chatHandler(d.Chat, logger))
				r.Get("/ws/{userId}", wsHandler(d.Chat, logger))
			})
		}
	})

	return r
}

func healthzHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "pricebot-api", Status: domain.HealthHealthy, LastChecked: now},
		}
		chat := domain.ServiceHealth{Name: "conversation", Status: domain.HealthHealthy, LastChecked: now}
		if d.Chat == nil {
			chat.Status = domain.HealthDegraded
			chat.Detail = "chat service not configured"
		}
		services = append(services, chat)

		overall := domain.HealthHealthy
		for _, s := range services {
			if s.Status != domain.HealthHealthy {
				overall = s.Status
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:    overall,
			Services:  services,
			Timestamp: now,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func botMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
