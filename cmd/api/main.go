package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/menu-catalog/internal/apidocs"
	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/config"
	"github.com/noah-isme/menu-catalog/internal/health"
	"github.com/noah-isme/menu-catalog/internal/obs"
	"github.com/noah-isme/menu-catalog/internal/ratelimit"
	"github.com/noah-isme/menu-catalog/internal/repo"
	"github.com/noah-isme/menu-catalog/internal/resilience"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "menu")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)
	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	tracingEnabled := cfg.Obs.TracingExporter != "none"
	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   cfg.Obs.ServiceName,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		Exporter:      cfg.Obs.TracingExporter,
		SamplingRatio: cfg.Obs.SampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		tracingEnabled = false
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	var mongoClient *mongo.Client
	err = resilience.Retry(context.Background(), 5, 500*time.Millisecond, func(ctx context.Context, attempt int) error {
		var connErr error
		mongoClient, connErr = repo.Connect(ctx, cfg.MongoURI, cfg.MongoConnectTimeout)
		if connErr != nil {
			logger.Warn().Err(connErr).Int("attempt", attempt).Msg("mongo not reachable yet")
		}
		return connErr
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("disconnect mongo")
		}
	}()
	store := repo.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		logger.Error().Err(err).Msg("ensure mongo indexes")
	}
	cancelIndex()

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store: store,
		Cache: catalog.NewCache(redisClient, cfg.CacheTTL).WithBreaker(resilience.NewBreaker(resilience.Settings{
			Target:       "redis_cache",
			MinRequests:  10,
			FailureRatio: 0.5,
			OpenFor:      30 * time.Second,
			Logger:       &logger,
		})),
		Pricing: cfg.PricingStrategy(),
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	docs, err := apidocs.NewHandler(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("load api docs")
	}

	var limiter ratelimit.Allower = ratelimit.NewMemoryLimiter(ratelimit.DefaultPrefix)
	if redisClient != nil {
		limiter = ratelimit.Limiter{Client: redisClient, Prefix: ratelimit.DefaultPrefix}
	}

	var pprofHandler http.Handler
	if envBool("OBS_ENABLE_PPROF", false) {
		pprofHandler, err = protectPprof(newPprofMux(),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""))
		if err != nil {
			logger.Error().Err(err).Msg("pprof not mounted")
		}
	}

	handler := newRouter(routerDeps{
		Logger:  logger,
		Catalog: catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Docs:    docs,
		Health: health.Handler{
			Checker:      readinessChecker{mongo: mongoClient, redis: redisClient},
			StoreTimeout: envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 500),
			RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		},
		Metrics:         httpMetrics,
		MetricsPath:     cfg.Obs.MetricsPath,
		Tracing:         tracingEnabled,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		SecurityHeaders: cfg.SecurityHeadersEnabled,
		BodyLimit:       cfg.BodyLimitBytes,
		RateLimiter:     limiter,
		RateLimit: ratelimit.Config{
			Key:    ratelimit.KeyByClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		Pprof: pprofHandler,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
	logger.Info().Msg("server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable; the catalog then
// runs without a read cache and rate limits in memory.
func connectRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("redis not configured, cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error().Err(err).Msg("parse redis url")
		return nil
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("ping redis, cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}

type readinessChecker struct {
	mongo *mongo.Client
	redis *redis.Client
}

func (c readinessChecker) PingStore(ctx context.Context, timeout time.Duration) error {
	if c.mongo == nil {
		return errors.New("store not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.mongo.Ping(ctx, nil)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envDurationMillis(key string, fallbackMillis int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(val) + "ms"); err == nil {
			return d
		}
	}
	return time.Duration(fallbackMillis) * time.Millisecond
}
