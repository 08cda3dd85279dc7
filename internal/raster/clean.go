package raster

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/blackmarble/internal/product"
)

// DefaultDropQuality are the quality flag values masked when none are given.
var DefaultDropQuality = []int{255}

// Band is one decoded variable of a tile file.
type Band struct {
	Variable string    `json:"variable,omitempty"`
	Rows     int       `json:"rows"`
	Cols     int       `json:"cols"`
	Values   []float64 `json:"values"`
	// Quality holds the quality flag of each value, or nil when the product
	// has none.
	Quality []float64 `json:"quality,omitempty"`
	Scale   float64   `json:"scale,omitempty"`
	Offset  float64   `json:"offset,omitempty"`
}

// Clean returns the band's physical values: fill values and pixels whose
// quality flag is in drop become NaN, the rest are scaled and offset.
func Clean(b Band, drop []int) ([]float64, error) {
	if len(b.Values) != b.Rows*b.Cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrShapeMismatch, len(b.Values), b.Rows, b.Cols)
	}
	if b.Quality != nil && len(b.Quality) != len(b.Values) {
		return nil, fmt.Errorf("%w: %d quality flags for %d values", ErrShapeMismatch, len(b.Quality), len(b.Values))
	}

	scale := b.Scale
	if scale == 0 {
		scale = 1
	}
	fill, hasFill := product.FillValue(b.Variable)

	dropped := make(map[float64]bool, len(drop))
	for _, q := range drop {
		dropped[float64(q)] = true
	}

	out := make([]float64, len(b.Values))
	for i, v := range b.Values {
		switch {
		case math.IsNaN(v), hasFill && v == fill:
			out[i] = math.NaN()
		case b.Quality != nil && dropped[b.Quality[i]]:
			out[i] = math.NaN()
		default:
			out[i] = scale*v + b.Offset
		}
	}
	return out, nil
}
