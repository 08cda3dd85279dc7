package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/blackmarble/internal/config"
)

// app is shared by the subcommands once the root pre-run has loaded it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "blackmarble",
		Short: "Download NASA Black Marble nighttime lights tiles.",
		Long: `blackmarble selects the Black Marble grid tiles covering a region, expands
dates into product timestamps and downloads the matching files from LAADS DAAC
into an artifact store, skipping files that are already there.

Settings are read from environment variables (BLACKMARBLE_TOKEN, ARCHIVE_*,
FETCH_*, RETRY_*, STORE_*, SERVER_*, STAC_*, LOG_*); flags override them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error (LOG_LEVEL)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json (LOG_FORMAT)")

	root.AddCommand(
		newTilesCmd(a),
		newPeriodsCmd(a),
		newFetchCmd(a),
		newServeCmd(a),
	)
	return root
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
