package raster

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/robert-malhotra/blackmarble/internal/region"
)

// ColumnPrefix prefixes every statistic column.
const ColumnPrefix = "ntl_"

// Stat is an aggregation over the cells of a zone.
type Stat string

const (
	Count  Stat = "count"
	Sum    Stat = "sum"
	Mean   Stat = "mean"
	Min    Stat = "min"
	Max    Stat = "max"
	Std    Stat = "std"
	Median Stat = "median"
)

// DefaultStats is used when no statistics are requested.
var DefaultStats = []Stat{Mean}

// ParseStat validates a statistic name.
func ParseStat(s string) (Stat, error) {
	switch st := Stat(s); st {
	case Count, Sum, Mean, Min, Max, Std, Median:
		return st, nil
	default:
		return "", fmt.Errorf("unknown statistic %q", s)
	}
}

// Column is the output column name, e.g. ntl_mean.
func (s Stat) Column() string {
	return ColumnPrefix + string(s)
}

// ZoneStats holds the statistics of one zone keyed by column name. Zones
// without data report NaN for everything but the count.
type ZoneStats struct {
	Zone   string
	Values map[string]float64
}

// ZonalStats aggregates the cells whose centre falls inside each zone.
func ZonalStats(g *Grid, zones []region.Zone, stats []Stat) ([]ZoneStats, error) {
	if len(stats) == 0 {
		stats = DefaultStats
	}
	for _, s := range stats {
		if _, err := ParseStat(string(s)); err != nil {
			return nil, err
		}
	}

	out := make([]ZoneStats, 0, len(zones))
	for _, z := range zones {
		values := zoneValues(g, z.Shape)
		zs := ZoneStats{Zone: z.Name, Values: make(map[string]float64, len(stats))}
		for _, s := range stats {
			zs.Values[s.Column()] = aggregate(s, values)
		}
		out = append(out, zs)
	}
	return out, nil
}

func zoneValues(g *Grid, shape geom.Polygonal) []float64 {
	zb := shape.Bounds()
	gb := g.Bounds()
	if !zb.Overlaps(gb) {
		return nil
	}

	// Restrict the scan to the rows and columns under the zone's bounds.
	c0 := clamp(int(math.Floor((zb.Min.X-g.West)/g.Res)), 0, g.Cols-1)
	c1 := clamp(int(math.Ceil((zb.Max.X-g.West)/g.Res)), 0, g.Cols-1)
	r0 := clamp(int(math.Floor((g.North-zb.Max.Y)/g.Res)), 0, g.Rows-1)
	r1 := clamp(int(math.Ceil((g.North-zb.Min.Y)/g.Res)), 0, g.Rows-1)

	var values []float64
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			v := g.At(r, c)
			if math.IsNaN(v) {
				continue
			}
			p := g.Center(r, c)
			if !inBounds(p, zb) || p.Within(shape) == geom.Outside {
				continue
			}
			values = append(values, v)
		}
	}
	return values
}

func aggregate(s Stat, values []float64) float64 {
	if s == Count {
		return float64(len(values))
	}
	if len(values) == 0 {
		return math.NaN()
	}
	switch s {
	case Sum:
		return floats.Sum(values)
	case Mean:
		return stat.Mean(values, nil)
	case Min:
		return floats.Min(values)
	case Max:
		return floats.Max(values)
	case Std:
		_, std := stat.PopMeanStdDev(values, nil)
		return std
	case Median:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid]
		}
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return math.NaN()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
