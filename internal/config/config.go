package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Steam storefront
	SteamStoreURL string
	SteamRPS      float64
	SteamBurst    int

	// HTTP client
	HTTPTimeout  time.Duration
	FetchTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Conversation
	Cooldown            time.Duration
	MemoryTTL           time.Duration
	ChoiceTTL           time.Duration
	MaxSuggestions      int
	DefaultSearchRegion string
	ReferenceRegion     string
	CatalogFile         string

	// Cache
	SearchCacheTTL time.Duration
	SweepInterval  time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret string

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64
	TelegramDebug    bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SteamStoreURL: getEnv("STEAM_STORE_URL", "https://store.steampowered.com"),
		SteamRPS:      getEnvFloat("STEAM_RPS", 4),
		SteamBurst:    getEnvInt("STEAM_BURST", 8),

		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 8*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 16),

		Cooldown:            getEnvDuration("COOLDOWN", 5*time.Second),
		MemoryTTL:           getEnvDuration("MEMORY_TTL", 15*time.Minute),
		ChoiceTTL:           getEnvDuration("CHOICE_TTL", 60*time.Second),
		MaxSuggestions:      getEnvInt("MAX_SUGGESTIONS", 5),
		DefaultSearchRegion: strings.ToUpper(getEnv("DEFAULT_SEARCH_REGION", "SA")),
		ReferenceRegion:     strings.ToUpper(getEnv("REFERENCE_REGION", "SA")),
		CatalogFile:         getEnv("CATALOG_FILE", ""),

		SearchCacheTTL: getEnvDuration("SEARCH_CACHE_TTL", 10*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
		TelegramDebug:    getEnvBool("TELEGRAM_DEBUG", false),
	}
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	case c.MemoryTTL <= 0 || c.ChoiceTTL <= 0:
		return fmt.Errorf("MEMORY_TTL and CHOICE_TTL must be positive")
	case c.Cooldown < 0:
		return fmt.Errorf("COOLDOWN must not be negative")
	case c.MaxSuggestions <= 0:
		return fmt.Errorf("MAX_SUGGESTIONS must be positive")
	case c.SteamRPS <= 0:
		return fmt.Errorf("STEAM_RPS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
