// Package server provides a public API for embedding the Black Marble STAC
// service in another application.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/blackmarble/internal/api"
	"github.com/robert-malhotra/blackmarble/internal/config"
	"github.com/robert-malhotra/blackmarble/internal/metrics"
	"github.com/robert-malhotra/blackmarble/internal/store"
)

// Options configures the server.
type Options struct {
	// BaseURL is the public URL used in self links (required).
	// Example: "https://api.example.com/blackmarble"
	BaseURL string

	// StoreURL is the artifact bucket URL or directory.
	// Default: "data"
	StoreURL string

	// StorePrefix is prepended to artifact keys.
	StorePrefix string

	// Title is the STAC API title.
	// Default: "Black Marble STAC API"
	Title string

	// Description is the STAC API description.
	Description string

	// DefaultLimit is the default page size.
	// Default: 10
	DefaultLimit int

	// MaxLimit is the largest page size accepted.
	// Default: 250
	MaxLimit int

	// Registry receives the HTTP metrics and is served on /metrics.
	// Default: a new registry
	Registry *prometheus.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is an embeddable STAC API over an artifact store.
type Server struct {
	router chi.Router
	store  *store.Store
}

// New opens the artifact store and builds the router.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.StoreURL == "" {
		opts.StoreURL = "data"
	}
	if opts.Title == "" {
		opts.Title = "Black Marble STAC API"
	}
	if opts.Description == "" {
		opts.Description = "Downloaded NASA Black Marble nighttime lights tiles"
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = 250
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := &config.Config{
		STAC: config.STACConfig{
			Version:     "1.0.0",
			BaseURL:     opts.BaseURL,
			Title:       opts.Title,
			Description: opts.Description,
		},
		Features: config.FeatureConfig{
			DefaultLimit: opts.DefaultLimit,
			MaxLimit:     opts.MaxLimit,
		},
	}

	st, err := store.Open(ctx, opts.StoreURL, opts.StorePrefix)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("serving artifact store", "location", st.Location(""))

	return FromConfig(cfg, st, opts.Registry, opts.Logger), nil
}

// FromConfig builds a server around an open store. The server takes
// ownership of st.
func FromConfig(cfg *config.Config, st *store.Store, reg *prometheus.Registry, logger *slog.Logger) *Server {
	m := metrics.New(reg)
	handlers := api.NewHandlers(cfg, st, logger).WithMetricsHandler(metrics.Handler(reg))
	return &Server{
		router: api.NewRouter(handlers, m, logger),
		store:  st,
	}
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close releases the artifact store.
func (s *Server) Close() error {
	return s.store.Close()
}
