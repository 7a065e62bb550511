// Package apidocs serves the OpenAPI description of the catalog API and a Swagger UI
// page that renders it.
package apidocs

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.json
var rawSpec []byte

var (
	loadOnce sync.Once
	loaded   *openapi3.T
	loadErr  error
)

// Document parses and validates the embedded OpenAPI document.
func Document(ctx context.Context) (*openapi3.T, error) {
	loadOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(rawSpec)
		if err != nil {
			loadErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err := doc.Validate(ctx); err != nil {
			loadErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		loaded = doc
	})
	return loaded, loadErr
}

// Handler serves the docs UI and the raw document.
type Handler struct {
	doc *openapi3.T
}

// NewHandler validates the embedded document and returns a Handler for it.
func NewHandler(ctx context.Context) (*Handler, error) {
	doc, err := Document(ctx)
	if err != nil {
		return nil, err
	}
	return &Handler{doc: doc}, nil
}

// Register mounts /api-docs and /api-docs/openapi.json on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api-docs", h.UI)
	r.Get("/api-docs/openapi.json", h.Spec)
}

// Spec handles GET /api-docs/openapi.json.
func (h *Handler) Spec(w http.ResponseWriter, _ *http.Request) {
	data, err := h.doc.MarshalJSON()
	if err != nil {
		http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UI handles GET /api-docs.
func (h *Handler) UI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, uiPage, h.doc.Info.Title)
}

const uiPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      SwaggerUIBundle({ url: "/api-docs/openapi.json", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`
