package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/blackmarble/internal/store"
	"github.com/robert-malhotra/blackmarble/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var storeURL, prefix string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the artifact store as a STAC API.",
		Long: `serve exposes the downloaded tiles as a STAC API: one collection per
product, one item per stored tile file with a download link, and Prometheus
metrics on /metrics. It listens on SERVER_HOST:SERVER_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("store") {
				a.cfg.Store.URL = storeURL
			}
			if cmd.Flags().Changed("prefix") {
				a.cfg.Store.Prefix = prefix
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&storeURL, "store", "", "artifact bucket URL or directory (STORE_URL)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "artifact key prefix (STORE_PREFIX)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	st, err := store.Open(ctx, cfg.Store.URL, cfg.Store.Prefix)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.FromConfig(cfg, st, reg, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting STAC API",
		slog.String("version", cfg.STAC.Version),
		slog.String("addr", httpServer.Addr),
		slog.String("store", st.Location("")),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
