package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/robert-malhotra/blackmarble/internal/metrics"
)

// NewRouter wires the handlers and middleware. m may be nil.
func NewRouter(h *Handlers, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	if m != nil {
		r.Use(InstrumentRequests(m))
	}
	r.Use(middleware.Compress(5))
	r.Use(DefaultContentType("application/json"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"Link", RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)

	r.Get("/", h.LandingPage)
	r.Get("/conformance", h.Conformance)

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", h.Collections)
		r.Route("/{collectionId}", func(r chi.Router) {
			r.Get("/", h.Collection)
			r.Get("/items", h.Items)
			r.Get("/items/{itemId}", h.Item)
			r.Get("/items/{itemId}/download", h.Download)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
