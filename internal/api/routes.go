// Package api serves the stored attractions over a read-only JSON API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"attractions-crawler/internal/db"
	"attractions-crawler/internal/metrics"
)

const robotsTxt = "User-agent: *\nDisallow: /search\n"

// NewRouter creates and configures the Chi router
func NewRouter(database *db.DB, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(Logger(logger))
	r.Use(Metrics(m))
	r.Use(CORS)

	r.NotFound(notFound(logger))
	r.MethodNotAllowed(methodNotAllowed(logger))

	h := NewHandlers(database, logger)

	r.Get("/attractions", h.ListAttractions)
	r.Route("/attractions/{id:[0-9]+}", func(r chi.Router) {
		r.Get("/", h.GetAttraction)
		r.Get("/image", h.GetAttractionImage)
		r.Get("/{column}", h.GetAttractionColumn)
	})
	r.Get("/search", h.SearchAttractions)

	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(robotsTxt))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}
