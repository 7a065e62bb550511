package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/menu-catalog/internal/apidocs"
	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/health"
	"github.com/noah-isme/menu-catalog/internal/ratelimit"
	"github.com/noah-isme/menu-catalog/internal/repo"
)

type okChecker struct{}

func (okChecker) PingStore(context.Context, time.Duration) error { return nil }
func (okChecker) PingRedis(context.Context, time.Duration) error { return health.ErrDisabled }

func testRouter(t *testing.T, max int) http.Handler {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: repo.NewMemoryStore()})
	require.NoError(t, err)
	docs, err := apidocs.NewHandler(context.Background())
	require.NoError(t, err)
	return newRouter(routerDeps{
		Logger:      zerolog.Nop(),
		Catalog:     catalog.NewHandler(catalog.HandlerConfig{Service: svc}),
		Docs:        docs,
		Health:      health.Handler{Checker: okChecker{}},
		BodyLimit:   256,
		RateLimiter: ratelimit.NewMemoryLimiter("test:"),
		RateLimit:   ratelimit.Config{Key: ratelimit.KeyByClientIP, Window: time.Minute, Max: max},
	})
}

func TestRouterRootAndHealth(t *testing.T) {
	r := testRouter(t, 100)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "api is live", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api-docs/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterCatalogRoutes(t *testing.T) {
	r := testRouter(t, 100)

	body := `{"name":"Beverages","image":"b.png","description":"Drinks","taxApplicability":true,"tax":5}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/create", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Beverages")
}

func TestRouterRejectsLargeBodies(t *testing.T) {
	r := testRouter(t, 100)
	payload := bytes.Repeat([]byte("x"), 512)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/create", bytes.NewReader(payload)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterRateLimitsCatalog(t *testing.T) {
	r := testRouter(t, 1)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
