package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"strings"
)

var errPprofCredentials = errors.New("pprof requires SECURE_PPROF_BASIC_AUTH_USER and SECURE_PPROF_BASIC_AUTH_PASS")

// newPprofMux registers the profiling endpoints under their full paths. chi's Mount
// leaves r.URL.Path untouched, so the mux sees /debug/pprof/... as sent.
func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// protectPprof wraps handler in basic auth. Both credentials are required; without
// them nothing is mounted.
func protectPprof(handler http.Handler, user, pass string) (http.Handler, error) {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" || pass == "" {
		return nil, errPprofCredentials
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}), nil
}
