package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/health"
	"github.com/noah-isme/menu-catalog/internal/repo"
)

func pprofRouter(t *testing.T) http.Handler {
	t.Helper()
	h, err := protectPprof(newPprofMux(), "ops", "secret")
	require.NoError(t, err)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: repo.NewMemoryStore()})
	require.NoError(t, err)
	return newRouter(routerDeps{
		Logger:  zerolog.Nop(),
		Catalog: catalog.NewHandler(catalog.HandlerConfig{Service: svc}),
		Health:  health.Handler{Checker: okChecker{}},
		Pprof:   h,
	})
}

func TestPprofRequiresCredentials(t *testing.T) {
	for _, tc := range []struct{ user, pass string }{
		{"", ""},
		{"ops", ""},
		{"", "secret"},
		{"  ", "  "},
	} {
		h, err := protectPprof(newPprofMux(), tc.user, tc.pass)
		require.ErrorIs(t, err, errPprofCredentials)
		require.Nil(t, h)
	}
}

func TestPprofRejectsMissingOrWrongAuth(t *testing.T) {
	r := pprofRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Basic realm=restricted", rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.SetBasicAuth("ops", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPprofServesFullPaths(t *testing.T) {
	r := pprofRouter(t)

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/heap", "/debug/pprof/goroutine?debug=1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.SetBasicAuth("ops", "secret")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
