// Package httptransport composes the HTTP surface: global middleware, domain
// route registration, and the operational endpoints.
package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"covergate/internal/transport/http/shared"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Middleware is a chi-compatible middleware constructor.
type Middleware func(http.Handler) http.Handler

// NewRouter builds the server's router. JSON-only handlers go in json;
// handlers that accept multipart bodies go in mixed so the content-type
// guard does not reject their uploads.
func NewRouter(global []Middleware, jsonGuard Middleware, json []Registrar, mixed []Registrar) chi.Router {
	r := chi.NewRouter()
	for _, mw := range global {
		r.Use(mw)
	}

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if jsonGuard != nil {
			r.Use(jsonGuard)
		}
		for _, h := range json {
			h.Register(r)
		}
	})
	for _, h := range mixed {
		h.Register(r)
	}
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
