package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/menu-catalog/internal/apidocs"
	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/health"
	"github.com/noah-isme/menu-catalog/internal/obs"
	"github.com/noah-isme/menu-catalog/internal/ratelimit"
	"github.com/noah-isme/menu-catalog/internal/security"
)

// routerDeps carries everything the HTTP surface is assembled from.
type routerDeps struct {
	Logger          zerolog.Logger
	Catalog         *catalog.Handler
	Docs            *apidocs.Handler
	Health          health.Handler
	Metrics         *obs.HTTPMetrics
	MetricsPath     string
	Tracing         bool
	CORSOrigins     []string
	SecurityHeaders bool
	BodyLimit       int64
	RateLimiter     ratelimit.Allower
	RateLimit       ratelimit.Config
	Pprof           http.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.CORS(d.CORSOrigins))
	r.Use(security.Headers{Enable: d.SecurityHeaders}.Middleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("api is live"))
	})
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)
	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}
	if d.Pprof != nil {
		r.Mount("/debug/pprof", d.Pprof)
	}
	if d.Docs != nil {
		d.Docs.Register(r)
	}

	r.Group(func(api chi.Router) {
		if d.RateLimiter != nil {
			api.Use(ratelimit.Handler{
				Limiter: d.RateLimiter,
				Config:  d.RateLimit,
				OnError: func(err error) {
					d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
				},
			}.Middleware)
		}
		api.Use(security.BodyLimit{Max: d.BodyLimit}.Middleware)
		d.Catalog.Register(api)
	})
	return r
}
