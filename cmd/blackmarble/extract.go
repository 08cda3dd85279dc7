package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/raster"
	"github.com/robert-malhotra/blackmarble/internal/region"
)

// extractor computes zonal statistics for each usable batch a fetch emits.
type extractor struct {
	open  raster.Opener
	conv  raster.Converter
	zones []region.Zone
	stats []raster.Stat
	opts  raster.CollateOptions
}

func newExtractor(f *fetchFlags, open raster.Opener, r *region.Region) (*extractor, error) {
	if len(f.stats) == 0 {
		return nil, nil
	}
	if f.converter == "" {
		return nil, fmt.Errorf("--stats needs a --converter to decode tile files")
	}

	stats := make([]raster.Stat, 0, len(f.stats))
	for _, s := range f.stats {
		st, err := raster.ParseStat(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	conv, err := raster.ParseCommand(f.converter)
	if err != nil {
		return nil, err
	}

	return &extractor{
		open:  open,
		conv:  conv,
		zones: r.Zones,
		stats: stats,
		opts:  raster.CollateOptions{Variable: f.variable},
	}, nil
}

// write prints one line per zone: period, product, zone and the statistic
// columns.
func (e *extractor) write(ctx context.Context, out io.Writer, b *fetch.Batch) error {
	g, err := raster.CollateBatch(ctx, e.open, e.conv, b, e.opts)
	if err != nil {
		return err
	}
	results, err := raster.ZonalStats(g, e.zones, e.stats)
	if err != nil {
		return err
	}

	for _, zs := range results {
		cols := make([]string, 0, len(e.stats))
		for _, s := range e.stats {
			v := zs.Values[s.Column()]
			cols = append(cols, s.Column()+"="+strconv.FormatFloat(v, 'g', -1, 64))
		}
		fmt.Fprintf(out, "%s\t%s\tzone=%s\t%s\n", b.Period.Key(), b.Product, zs.Zone, strings.Join(cols, "\t"))
	}
	return nil
}
