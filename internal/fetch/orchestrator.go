// Package fetch downloads Black Marble tiles with a bounded worker pool and
// assembles the outcomes into per-timestamp batches.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robert-malhotra/blackmarble/internal/laads"
	"github.com/robert-malhotra/blackmarble/internal/metrics"
	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/retry"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

// DefaultConcurrency is the worker count used when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Source retrieves one archive file and writes it to w.
type Source interface {
	Fetch(ctx context.Context, p product.Product, t tiles.Tile, period temporal.Period, w io.Writer) (int64, error)
}

// Store keeps artifacts under deterministic keys.
type Store interface {
	Key(p product.Product, t tiles.Tile, period temporal.Period) string
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, fill func(io.Writer) (int64, error)) (int64, error)
	Location(key string) string
}

// Options configures an Orchestrator.
type Options struct {
	Concurrency     int
	SkipExisting    bool
	Strict          bool
	RequireAllTiles bool
	Policy          retry.Policy
	// Classify maps source errors to retry kinds. Defaults to laads.Classify.
	Classify retry.Classifier
}

// DefaultOptions uses four workers, skips existing artifacts and requires
// every tile of a timestamp.
func DefaultOptions() Options {
	return Options{
		Concurrency:     DefaultConcurrency,
		SkipExisting:    true,
		RequireAllTiles: true,
		Policy:          retry.DefaultPolicy(),
	}
}

// Orchestrator runs fetch units against a source and a store.
type Orchestrator struct {
	source  Source
	store   Store
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an orchestrator.
func New(source Source, store Store, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Classify == nil {
		opts.Classify = laads.Classify
	}
	return &Orchestrator{
		source: source,
		store:  store,
		opts:   opts,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithMetrics records run metrics.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Fetch runs every unit and returns the collection once all batches are
// finalised.
func (o *Orchestrator) Fetch(ctx context.Context, units []Unit) (*Collection, error) {
	run, err := o.Stream(ctx, units)
	if err != nil {
		return nil, err
	}
	for range run.Batches() {
	}
	return run.Wait()
}

// Run is an in-progress fetch.
type Run struct {
	batches chan *Batch
	done    chan struct{}
	coll    *Collection
	err     error
}

// Batches emits each batch as soon as its last unit settles. The channel is
// buffered for every batch and closed when the run ends, so callers may
// ignore it and only Wait.
func (r *Run) Batches() <-chan *Batch {
	return r.batches
}

// Wait blocks until the run ends. The collection is returned even when the
// error is non-nil.
func (r *Run) Wait() (*Collection, error) {
	<-r.done
	return r.coll, r.err
}

type group struct {
	batch   *Batch
	pending int
}

type settled struct {
	index   int
	outcome Outcome
}

// Stream validates the units and starts the run. Duplicate units are fetched
// once.
func (o *Orchestrator) Stream(ctx context.Context, units []Unit) (*Run, error) {
	if err := o.opts.Policy.Validate(); err != nil {
		return nil, err
	}

	units = dedupe(units)
	for _, u := range units {
		if err := u.validate(); err != nil {
			return nil, err
		}
	}

	groups, groupOf := groupUnits(units)

	run := &Run{
		batches: make(chan *Batch, len(groups)),
		done:    make(chan struct{}),
		coll: &Collection{
			RunID:   uuid.NewString(),
			Started: time.Now(),
		},
	}
	for _, g := range groups {
		run.coll.Batches = append(run.coll.Batches, g.batch)
	}

	logger := o.logger.With(slog.String("run_id", run.coll.RunID))
	logger.InfoContext(ctx, "starting fetch",
		slog.Int("units", len(units)),
		slog.Int("batches", len(groups)),
		slog.Int("workers", o.opts.Concurrency),
	)

	go o.execute(ctx, logger, run, units, groups, groupOf)
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, run *Run, units []Unit, groups []*group, groupOf []int) {
	defer close(run.done)
	defer close(run.batches)

	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	jobs := make(chan int)
	results := make(chan settled, o.opts.Concurrency)

	go func() {
		defer close(jobs)
		for i := range units {
			select {
			case <-runCtx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < o.opts.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wlog := logger.With(slog.Int("worker", worker))
			for i := range jobs {
				results <- settled{index: i, outcome: o.process(runCtx, wlog, units[i])}
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	filled := make([]bool, len(units))
	var authErr error

	emit := func(g *group) {
		g.batch.finalize(o.opts.RequireAllTiles)
		o.metrics.IncBatches(string(g.batch.Product), g.batch.Complete())
		logger.InfoContext(ctx, "batch finalised",
			slog.String("product", string(g.batch.Product)),
			slog.String("timestamp", g.batch.Period.Key()),
			slog.Int("tiles", len(g.batch.Outcomes)),
			slog.Int("available", len(g.batch.Keys())),
			slog.Bool("usable", g.batch.Usable),
		)
		run.batches <- g.batch
	}

	record := func(i int, out Outcome) {
		filled[i] = true
		g := groups[groupOf[i]]
		g.batch.Outcomes = append(g.batch.Outcomes, out)
		g.pending--
		if g.pending == 0 {
			emit(g)
		}
	}

	for s := range results {
		if s.outcome.Status == Unauthorized && authErr == nil {
			authErr = s.outcome.Err
			logger.ErrorContext(ctx, "authentication rejected, aborting run",
				slog.String("error", authErr.Error()),
			)
			abort()
		}
		record(s.index, s.outcome)
	}

	// Units never handed to a worker.
	for i, u := range units {
		if filled[i] {
			continue
		}
		cause := context.Cause(runCtx)
		if cause == nil {
			cause = context.Canceled
		}
		record(i, Outcome{Unit: u, Status: Canceled, Key: o.store.Key(u.Product, u.Tile, u.Period), Err: cause})
	}

	coll := run.coll
	coll.Finished = time.Now()
	counts := coll.Counts()
	coll.Interrupted = authErr != nil || counts[Canceled] > 0
	attrs := []any{
		slog.Duration("elapsed", coll.Finished.Sub(coll.Started)),
		slog.Bool("interrupted", coll.Interrupted),
	}
	for _, s := range []Status{Downloaded, Skipped, NotFound, Failed, Unauthorized, Canceled} {
		attrs = append(attrs, slog.Int(s.String(), counts[s]))
	}
	logger.InfoContext(ctx, "fetch finished", attrs...)

	switch {
	case authErr != nil:
		run.err = fmt.Errorf("fetch aborted: %w", authErr)
	case ctx.Err() != nil:
		// Cancellation hands back the partial collection without an error.
	case o.opts.Strict && len(coll.Gaps()) > 0:
		run.err = fmt.Errorf("%w: %d of %d units have no artifact", ErrIncomplete, len(coll.Gaps()), len(units))
	}
}

// process settles one unit. It never returns without an outcome.
func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, u Unit) (out Outcome) {
	start := time.Now()
	key := o.store.Key(u.Product, u.Tile, u.Period)
	out = Outcome{Unit: u, Key: key, Location: o.store.Location(key)}

	defer func() {
		out.Duration = time.Since(start)
		if !out.Status.OK() {
			out.Location = ""
		}
		o.metrics.ObserveOutcome(string(u.Product), out.Status.String(), out.Duration.Seconds())
	}()

	if err := ctx.Err(); err != nil {
		out.Status = Canceled
		out.Err = err
		return out
	}

	if o.opts.SkipExisting {
		exists, err := o.store.Exists(ctx, key)
		if err != nil {
			logger.WarnContext(ctx, "artifact lookup failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		} else if exists {
			logger.DebugContext(ctx, "artifact exists, skipping", slog.String("key", key))
			out.Status = Skipped
			return out
		}
	}

	o.metrics.AddInFlight(1)
	defer o.metrics.AddInFlight(-1)

	policy := o.opts.Policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.WarnContext(ctx, "retrying tile",
			slog.String("unit", u.String()),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	res := policy.Do(ctx, o.opts.Classify, func(actx context.Context) error {
		n, err := o.store.Put(actx, key, func(w io.Writer) (int64, error) {
			return o.source.Fetch(actx, u.Product, u.Tile, u.Period, w)
		})
		if err != nil {
			o.metrics.ObserveAttempt(string(u.Product), o.opts.Classify(err).String())
			return err
		}
		o.metrics.ObserveAttempt(string(u.Product), retry.Success.String())
		out.Bytes = n
		o.metrics.AddBytes(string(u.Product), n)
		return nil
	})

	out.Attempts = res.Attempts
	out.Err = res.Err

	switch res.Kind {
	case retry.Success:
		out.Status = Downloaded
		logger.DebugContext(ctx, "tile downloaded",
			slog.String("key", key),
			slog.Int64("bytes", out.Bytes),
			slog.Int("attempts", res.Attempts),
		)
	case retry.Canceled:
		out.Status = Canceled
	case retry.Terminal:
		switch {
		case errors.Is(res.Err, laads.ErrAuthentication), errors.Is(res.Err, laads.ErrMissingToken):
			out.Status = Unauthorized
		case errors.Is(res.Err, laads.ErrTileNotFound):
			out.Status = NotFound
			logger.InfoContext(ctx, "tile not in archive", slog.String("unit", u.String()))
		default:
			out.Status = Failed
		}
	default:
		out.Status = Failed
	}

	if out.Status == Failed {
		logger.WarnContext(ctx, "tile failed",
			slog.String("unit", u.String()),
			slog.Int("attempts", res.Attempts),
			slog.String("error", res.Err.Error()),
		)
	}
	return out
}

func dedupe(units []Unit) []Unit {
	seen := make(map[Unit]bool, len(units))
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

type groupKey struct {
	product product.Product
	period  temporal.Period
}

// groupUnits orders batches by timestamp and returns each unit's batch index.
func groupUnits(units []Unit) ([]*group, []int) {
	index := make(map[groupKey]*group)
	var groups []*group
	for _, u := range units {
		k := groupKey{u.Product, u.Period}
		g, ok := index[k]
		if !ok {
			g = &group{batch: &Batch{Product: u.Product, Period: u.Period}}
			index[k] = g
			groups = append(groups, g)
		}
		g.pending++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].batch, groups[j].batch
		if !a.Period.Start.Equal(b.Period.Start) {
			return a.Period.Start.Before(b.Period.Start)
		}
		return a.Product < b.Product
	})

	pos := make(map[groupKey]int, len(groups))
	for i, g := range groups {
		pos[groupKey{g.batch.Product, g.batch.Period}] = i
	}
	groupOf := make([]int, len(units))
	for i, u := range units {
		groupOf[i] = pos[groupKey{u.Product, u.Period}]
	}
	return groups, groupOf
}
