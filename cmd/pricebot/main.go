package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/catalog"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/config"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/delivery/telegram"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/handler"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/cache"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/resilience"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/steam"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/parser"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/pricing"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/render"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/service"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/session"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("steam_store_url", cfg.SteamStoreURL),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Duration("cooldown", cfg.Cooldown),
		zap.Duration("memory_ttl", cfg.MemoryTTL),
		zap.Duration("choice_ttl", cfg.ChoiceTTL),
		zap.Duration("search_cache_ttl", cfg.SearchCacheTTL),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
		zap.Bool("telegram_enabled", cfg.TelegramBotToken != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "steam-prices-bot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog ---
	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load region catalog", zap.Error(err))
	}
	for _, code := range []string{cfg.DefaultSearchRegion, cfg.ReferenceRegion} {
		if !cat.Supports(domain.RegionCode(code)) {
			logger.Fatal("configured region not in catalog", zap.String("region", code))
		}
	}

	// --- Cache ---
	searchCache := cache.New[[]domain.ProductCandidate](cfg.SearchCacheTTL, cache.WithSweepInterval(cfg.SweepInterval))
	defer searchCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("steam-store", logger)
	limiter := rate.NewLimiter(rate.Limit(cfg.SteamRPS), cfg.SteamBurst)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := steam.NewClient(httpClient, cfg.SteamStoreURL, cb, limiter, resilienceCfg, logger)

	// --- Services ---
	sessions := session.NewStore(session.Config{
		Cooldown:  cfg.Cooldown,
		MemoryTTL: cfg.MemoryTTL,
		ChoiceTTL: cfg.ChoiceTTL,
	})
	aggregator := pricing.NewAggregator(
		store,
		pricing.NewNormalizer(cat.USDRates()),
		pricing.Config{FetchTimeout: cfg.FetchTimeout, MaxConcurrency: cfg.MaxConcurrency},
		metrics,
		logger,
	)
	searcher := service.NewSearcher(store, searchCache, cfg.MaxSuggestions, cfg.FetchTimeout, metrics, logger)
	conversation := service.NewConversation(
		parser.New(cat),
		cat,
		sessions,
		searcher,
		aggregator,
		store,
		service.ConversationConfig{
			MaxSuggestions:      cfg.MaxSuggestions,
			DefaultSearchRegion: domain.RegionCode(cfg.DefaultSearchRegion),
			ReferenceRegion:     domain.RegionCode(cfg.ReferenceRegion),
		},
		metrics,
		logger,
	)
	products := service.NewProducts(store, aggregator, store, domain.RegionCode(cfg.ReferenceRegion), logger)

	// --- Router ---
	deps := handler.Deps{
		Chat:     conversation,
		Products: products,
		Regions:  cat,
		Metrics:  metrics,
		Logger:   logger,
	}
	if tokens := service.NewTokenVerifier(cfg.JWTSecret); tokens != nil {
		deps.Tokens = tokens
	}
	router := handler.NewRouter(deps)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sessions.RunJanitor(gctx, cfg.SweepInterval)
		return nil
	})

	// --- Telegram ---
	if cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("failed to create telegram bot", zap.Error(err))
		}
		api.Debug = cfg.TelegramDebug
		logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

		bot := telegram.New(api, conversation, render.New(cat),
			telegram.Config{ChatID: cfg.TelegramChatID, MaxInFlight: cfg.MaxConcurrency}, metrics, logger)
		g.Go(func() error {
			defer api.StopReceivingUpdates()
			if err := bot.Run(gctx, telegram.Updates(api)); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("telegram bot: %w", err)
			}
			return nil
		})
	} else {
		logger.Warn("telegram: TELEGRAM_BOT_TOKEN not set, telegram transport disabled")
	}

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Default()
}
