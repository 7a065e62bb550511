package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/menu-catalog/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration

	RedisURL      string
	CacheTTL      time.Duration
	PricingPolicy string

	BodyLimitBytes         int64
	RateLimitMax           int
	RateLimitWindow        time.Duration
	CORSAllowedOrigins     []string
	SecurityHeadersEnabled bool
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	ShutdownTimeout        time.Duration

	Obs Observability
}

// Observability groups logging, metrics and tracing settings.
type Observability struct {
	ServiceName     string
	LogFormat       string
	LogLevel        string
	MetricsEnabled  bool
	MetricsPath     string
	MetricsBuckets  string
	TracingExporter string
	OTLPEndpoint    string
	SampleRatio     float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                   valueOrDefault(k.String("PORT"), "3000"),
		MongoURI:               strings.TrimSpace(k.String("MONGODB_URI")),
		MongoDatabase:          valueOrDefault(k.String("MONGODB_DATABASE"), "menu"),
		MongoConnectTimeout:    parseDuration(k.String("MONGODB_CONNECT_TIMEOUT"), "10s"),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		CacheTTL:               parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		PricingPolicy:          strings.ToLower(valueOrDefault(k.String("PRICING_TOTAL_STRATEGY"), pricing.StrategySubtract)),
		BodyLimitBytes:         parseInt64(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20),
		RateLimitMax:           int(parseInt64(k.String("RATE_LIMIT_MAX"), 300)),
		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		ReadTimeout:            parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
		WriteTimeout:           parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "15s"),
		ShutdownTimeout:        parseDuration(k.String("HTTP_SHUTDOWN_TIMEOUT"), "15s"),
		Obs: Observability{
			ServiceName:     valueOrDefault(k.String("OBS_SERVICE_NAME"), "menu-catalog"),
			LogFormat:       valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:        valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:  parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
			MetricsPath:     valueOrDefault(k.String("OBS_METRICS_PATH"), "/metrics"),
			MetricsBuckets:  k.String("OBS_METRICS_BUCKETS"),
			TracingExporter: strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "none")),
			OTLPEndpoint:    k.String("OBS_OTLP_ENDPOINT"),
			SampleRatio:     parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 1),
		},
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}
	if _, err := pricing.ParseStrategy(cfg.PricingPolicy); err != nil {
		return nil, fmt.Errorf("PRICING_TOTAL_STRATEGY: %w", err)
	}
	if cfg.BodyLimitBytes <= 0 {
		return nil, errors.New("HTTP_BODY_LIMIT_BYTES must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// PricingStrategy resolves the configured item total strategy.
func (c *Config) PricingStrategy() pricing.Strategy {
	strategy, err := pricing.ParseStrategy(c.PricingPolicy)
	if err != nil {
		return pricing.Subtract{}
	}
	return strategy
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. The command entrypoints use it.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
