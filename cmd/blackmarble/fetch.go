package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/laads"
	"github.com/robert-malhotra/blackmarble/internal/metrics"
	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/store"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

type fetchFlags struct {
	product         string
	region          string
	nameField       string
	token           string
	storeURL        string
	prefix          string
	manifest        string
	concurrency     int
	strict          bool
	skipExisting    bool
	requireAllTiles bool
	stats           []string
	converter       string
	variable        string
	metricsFile     string
	pushgateway     string
}

func newFetchCmd(a *app) *cobra.Command {
	f := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch --product PRODUCT --region REGION DATE...",
		Short: "Download the tiles of a region for the given dates.",
		Long: `fetch downloads every tile of the region for every timestamp of the dates
into the artifact store. Files already in the store are not downloaded again.
Transient archive errors are retried with backoff; an authentication failure
stops the whole run. Each timestamp is reported as soon as all of its tiles
have settled.

The gap manifest (--manifest, "-" for stdout) lists every tile and timestamp
without an artifact. It is written even when the run is interrupted.

With --stats, every usable timestamp is also decoded by the --converter
program, mosaicked and reduced to one line of ntl_ statistics per zone of the
region. The converter reads a tile file on stdin, receives the product and
variable as its last two arguments and prints the band as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.product, "product", "", "product identifier, e.g. VNP46A2")
	flags.StringVar(&f.region, "region", "", "region file, bbox or WKT")
	flags.StringVar(&f.nameField, "name-field", "", "property naming each zone in region files")
	flags.StringVar(&f.token, "token", "", "LAADS bearer token (BLACKMARBLE_TOKEN)")
	flags.StringVar(&f.storeURL, "store", "", "artifact bucket URL or directory (STORE_URL)")
	flags.StringVar(&f.prefix, "prefix", "", "artifact key prefix (STORE_PREFIX)")
	flags.StringVar(&f.manifest, "manifest", "", "gap manifest path, - for stdout (FETCH_MANIFEST)")
	flags.IntVar(&f.concurrency, "concurrency", 0, "parallel downloads (FETCH_CONCURRENCY)")
	flags.BoolVar(&f.strict, "strict", false, "fail when any tile is missing (FETCH_STRICT)")
	flags.BoolVar(&f.skipExisting, "skip-existing", true, "reuse artifacts already in the store (FETCH_SKIP_EXISTING)")
	flags.BoolVar(&f.requireAllTiles, "require-all-tiles", true, "mark timestamps with missing tiles unusable (FETCH_REQUIRE_ALL_TILES)")
	flags.StringSliceVar(&f.stats, "stats", nil, "zonal statistics per usable timestamp, e.g. mean,sum")
	flags.StringVar(&f.converter, "converter", "", "command decoding a tile file into a JSON band")
	flags.StringVar(&f.variable, "variable", "", "variable to extract (default: the product's)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics to a node exporter textfile (FETCH_METRICS_FILE)")
	flags.StringVar(&f.pushgateway, "pushgateway", "", "push run metrics to this Pushgateway URL (FETCH_PUSHGATEWAY)")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("region")
	return cmd
}

// apply overrides the configuration with the flags the user set.
func (f *fetchFlags) apply(cmd *cobra.Command, a *app) {
	changed := cmd.Flags().Changed
	cfg := a.cfg
	if changed("store") {
		cfg.Store.URL = f.storeURL
	}
	if changed("prefix") {
		cfg.Store.Prefix = f.prefix
	}
	if changed("manifest") {
		cfg.Fetch.Manifest = f.manifest
	}
	if changed("concurrency") {
		cfg.Fetch.Concurrency = f.concurrency
	}
	if changed("strict") {
		cfg.Fetch.Strict = f.strict
	}
	if changed("skip-existing") {
		cfg.Fetch.SkipExisting = f.skipExisting
	}
	if changed("require-all-tiles") {
		cfg.Fetch.RequireAllTiles = f.requireAllTiles
	}
	if changed("metrics-file") {
		cfg.Fetch.MetricsFile = f.metricsFile
	}
	if changed("pushgateway") {
		cfg.Fetch.Pushgateway = f.pushgateway
	}
}

func (a *app) runFetch(cmd *cobra.Command, f *fetchFlags, args []string) error {
	ctx := cmd.Context()
	f.apply(cmd, a)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	token, err := a.cfg.ResolveToken(f.token)
	if err != nil {
		return err
	}

	p, err := product.Parse(f.product)
	if err != nil {
		return err
	}
	r, err := loadRegion(f.region, f.nameField)
	if err != nil {
		return err
	}
	ts, err := tiles.Resolve(r)
	if err != nil {
		return err
	}
	periods, err := temporal.ExpandStrings(p, args)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, a.cfg.Store.URL, a.cfg.Store.Prefix)
	if err != nil {
		return err
	}
	defer st.Close()

	ext, err := newExtractor(f, st, r)
	if err != nil {
		return err
	}

	b := r.Bounds()
	client := laads.NewClient(a.cfg.Archive.BaseURL, a.cfg.Archive.Timeout).
		WithLogger(a.logger).
		WithToken(token).
		WithAreaOfInterest(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)

	var m *metrics.Metrics
	reg := prometheus.NewRegistry()
	if a.cfg.Fetch.MetricsFile != "" || a.cfg.Fetch.Pushgateway != "" {
		m = metrics.New(reg)
	}

	orch := fetch.New(laads.NewArchive(client), st, a.cfg.FetchOptions()).
		WithLogger(a.logger).
		WithMetrics(m)

	a.logger.Info("starting fetch",
		slog.String("product", string(p)),
		slog.Int("tiles", len(ts)),
		slog.Int("periods", len(periods)),
		slog.String("store", st.Location("")),
	)

	run, err := orch.Stream(ctx, fetch.Units(p, ts, periods))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var statsErr error
	for batch := range run.Batches() {
		reportBatch(out, a.logger, batch)
		if ext == nil || !batch.Usable {
			continue
		}
		if err := ext.write(ctx, out, batch); err != nil {
			a.logger.Error("zonal statistics failed",
				slog.String("period", batch.Period.Key()),
				slog.String("error", err.Error()),
			)
			if statsErr == nil {
				statsErr = fmt.Errorf("zonal statistics for %s: %w", batch.Period.Key(), err)
			}
		}
	}

	coll, runErr := run.Wait()
	if err := a.writeManifest(coll, out); err != nil {
		return err
	}

	if m != nil {
		a.exportMetrics(ctx, reg, p)
	}

	counts := coll.Counts()
	a.logger.Info("fetch finished",
		slog.String("run_id", coll.RunID),
		slog.Int("downloaded", counts[fetch.Downloaded]),
		slog.Int("skipped", counts[fetch.Skipped]),
		slog.Int("not_found", counts[fetch.NotFound]),
		slog.Int("failed", counts[fetch.Failed]),
		slog.Int("canceled", counts[fetch.Canceled]),
		slog.Int("usable_timestamps", len(coll.Usable())),
		slog.Bool("interrupted", coll.Interrupted),
	)

	if runErr != nil {
		return runErr
	}
	if statsErr != nil {
		return statsErr
	}
	if ctx.Err() != nil {
		return fmt.Errorf("fetch interrupted: %w", context.Cause(ctx))
	}
	return nil
}

func reportBatch(out io.Writer, logger *slog.Logger, b *fetch.Batch) {
	ok := len(b.Keys())
	status := "complete"
	switch {
	case !b.Usable:
		status = "unusable"
	case !b.Complete():
		status = "partial"
	}
	fmt.Fprintf(out, "%s\t%s\t%s\t%d/%d\n", b.Period.Key(), b.Product, status, ok, len(b.Outcomes))

	for _, o := range b.Missing() {
		logger.Warn("tile missing",
			slog.String("unit", o.Unit.String()),
			slog.String("status", o.Status.String()),
			slog.Int("attempts", o.Attempts),
			slog.String("reason", o.Reason()),
		)
	}
}

func (a *app) writeManifest(coll *fetch.Collection, stdout io.Writer) error {
	path := a.cfg.Fetch.Manifest
	switch path {
	case "":
		return nil
	case "-":
		return coll.WriteManifest(stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := coll.WriteManifest(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	a.logger.Info("wrote gap manifest", slog.String("path", path), slog.Int("gaps", len(coll.Gaps())))
	return nil
}

// exportMetrics publishes the run's metrics. Failures are logged, not returned.
func (a *app) exportMetrics(ctx context.Context, reg *prometheus.Registry, p product.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	cfg := a.cfg.Fetch
	if err := metrics.Export(ctx, reg, cfg.MetricsFile, cfg.Pushgateway, "blackmarble_fetch"); err != nil {
		a.logger.Warn("metrics export failed", slog.String("product", string(p)), slog.String("error", err.Error()))
		return
	}
	a.logger.Debug("exported run metrics",
		slog.String("textfile", cfg.MetricsFile),
		slog.String("pushgateway", cfg.Pushgateway),
	)
}
