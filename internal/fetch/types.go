package fetch

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

// ErrIncomplete is returned in strict mode when any unit failed.
var ErrIncomplete = errors.New("fetch incomplete")

// ErrInvalidUnit is returned for units with an unknown product or tile.
var ErrInvalidUnit = errors.New("invalid fetch unit")

// Status is the settled state of a unit.
type Status int

const (
	Downloaded Status = iota
	Skipped
	NotFound
	Failed
	Unauthorized
	Canceled
)

func (s Status) String() string {
	switch s {
	case Downloaded:
		return "downloaded"
	case Skipped:
		return "skipped"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	case Unauthorized:
		return "unauthorized"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// OK reports whether the unit has an artifact in the store.
func (s Status) OK() bool {
	return s == Downloaded || s == Skipped
}

// Unit is one tile of one product at one timestamp.
type Unit struct {
	Product product.Product
	Tile    tiles.Tile
	Period  temporal.Period
}

func (u Unit) String() string {
	return fmt.Sprintf("%s/%s/%s", u.Product, u.Tile.ID(), u.Period.Key())
}

func (u Unit) validate() error {
	if !u.Product.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidUnit, product.ErrUnknownProduct, u.Product)
	}
	if !u.Tile.Valid() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidUnit, tiles.ErrInvalidTile, u.Tile)
	}
	if u.Period.Start.IsZero() {
		return fmt.Errorf("%w: missing timestamp for %s", ErrInvalidUnit, u.Tile.ID())
	}
	return nil
}

// Units is the cross product of tiles and periods, ordered by period then tile.
func Units(p product.Product, ts []tiles.Tile, periods []temporal.Period) []Unit {
	out := make([]Unit, 0, len(ts)*len(periods))
	for _, period := range periods {
		for _, t := range ts {
			out = append(out, Unit{Product: p, Tile: t, Period: period})
		}
	}
	return out
}

// Outcome is the settled result of one unit.
type Outcome struct {
	Unit     Unit
	Status   Status
	Key      string
	Location string
	Bytes    int64
	Attempts int
	Duration time.Duration
	Err      error
}

// Reason describes a failed outcome.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Batch holds the outcomes of every tile of one product at one timestamp.
type Batch struct {
	Product  product.Product
	Period   temporal.Period
	Outcomes []Outcome

	// Usable is false when the batch has no artifact, or when every tile was
	// required and some are missing.
	Usable bool
}

// Complete reports whether every tile has an artifact.
func (b *Batch) Complete() bool {
	for _, o := range b.Outcomes {
		if !o.Status.OK() {
			return false
		}
	}
	return true
}

// Keys returns the store keys of the available artifacts.
func (b *Batch) Keys() []string {
	var keys []string
	for _, o := range b.Outcomes {
		if o.Status.OK() {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

// Missing returns the outcomes without an artifact.
func (b *Batch) Missing() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if !o.Status.OK() {
			out = append(out, o)
		}
	}
	return out
}

func (b *Batch) finalize(requireAll bool) {
	sort.Slice(b.Outcomes, func(i, j int) bool {
		return b.Outcomes[i].Unit.Tile.Less(b.Outcomes[j].Unit.Tile)
	})
	if requireAll {
		b.Usable = b.Complete()
		return
	}
	b.Usable = len(b.Keys()) > 0
}

// Collection is the result of a run, ordered by timestamp.
type Collection struct {
	RunID    string
	Batches  []*Batch
	Started  time.Time
	Finished time.Time

	// Interrupted is set when the run was cancelled or aborted before every
	// unit was attempted.
	Interrupted bool
}

// Outcomes returns every outcome in batch order.
func (c *Collection) Outcomes() []Outcome {
	var out []Outcome
	for _, b := range c.Batches {
		out = append(out, b.Outcomes...)
	}
	return out
}

// Usable returns the batches that may be handed to conversion.
func (c *Collection) Usable() []*Batch {
	var out []*Batch
	for _, b := range c.Batches {
		if b.Usable {
			out = append(out, b)
		}
	}
	return out
}

// Counts tallies outcomes by status.
func (c *Collection) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, b := range c.Batches {
		for _, o := range b.Outcomes {
			counts[o.Status]++
		}
	}
	return counts
}

// Gap is a unit without an artifact.
type Gap struct {
	Product   string `yaml:"product"`
	Tile      string `yaml:"tile"`
	Timestamp string `yaml:"timestamp"`
	Status    string `yaml:"status"`
	Attempts  int    `yaml:"attempts"`
	Reason    string `yaml:"reason,omitempty"`
}

// Gaps lists the units without an artifact in batch order.
func (c *Collection) Gaps() []Gap {
	var gaps []Gap
	for _, b := range c.Batches {
		for _, o := range b.Missing() {
			gaps = append(gaps, Gap{
				Product:   string(o.Unit.Product),
				Tile:      o.Unit.Tile.ID(),
				Timestamp: o.Unit.Period.Key(),
				Status:    o.Status.String(),
				Attempts:  o.Attempts,
				Reason:    o.Reason(),
			})
		}
	}
	return gaps
}
