package raster

import (
	"fmt"
	"math"
)

const resTolerance = 1e-9

// Mosaic merges grids of equal resolution into one grid covering their
// union. Where grids overlap the first value that is not NaN wins.
func Mosaic(grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, ErrEmpty
	}

	res := grids[0].Res
	west, north := grids[0].West, grids[0].North
	east, south := grids[0].East(), grids[0].South()
	for _, g := range grids[1:] {
		if math.Abs(g.Res-res) > resTolerance {
			return nil, fmt.Errorf("%w: %g and %g", ErrResolutionMismatch, res, g.Res)
		}
		west = math.Min(west, g.West)
		north = math.Max(north, g.North)
		east = math.Max(east, g.East())
		south = math.Min(south, g.South())
	}

	cols := int(math.Round((east - west) / res))
	rows := int(math.Round((north - south) / res))
	out := NewGrid(west, north, res, rows, cols)

	for _, g := range grids {
		colOff := int(math.Round((g.West - west) / res))
		rowOff := int(math.Round((north - g.North) / res))
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				v := g.At(r, c)
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(out.At(r+rowOff, c+colOff)) {
					out.Set(r+rowOff, c+colOff, v)
				}
			}
		}
	}
	return out, nil
}
