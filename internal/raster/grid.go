// Package raster turns fetched tiles into georeferenced grids, mosaics them
// and aggregates them over zones.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"

	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

var (
	// ErrShapeMismatch is returned when values do not fit the grid dimensions.
	ErrShapeMismatch = errors.New("raster shape mismatch")

	// ErrResolutionMismatch is returned when mosaicking grids of different resolution.
	ErrResolutionMismatch = errors.New("raster resolution mismatch")

	// ErrEmpty is returned when there is nothing to mosaic.
	ErrEmpty = errors.New("no rasters")
)

// Grid is a north-up lat/lon raster. Cell (0, 0) has its top left corner at
// (West, North); NaN marks missing data.
type Grid struct {
	West, North float64
	Res         float64
	Rows, Cols  int
	Data        []float64
}

// NewGrid allocates a grid filled with NaN.
func NewGrid(west, north, res float64, rows, cols int) *Grid {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{West: west, North: north, Res: res, Rows: rows, Cols: cols, Data: data}
}

// TileGrid wraps row-major values covering one tile.
func TileGrid(t tiles.Tile, rows, cols int, values []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 || len(values) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrShapeMismatch, len(values), rows, cols)
	}
	if rows != cols {
		return nil, fmt.Errorf("%w: tiles are square, got %dx%d", ErrShapeMismatch, rows, cols)
	}
	b := t.Bounds()
	return &Grid{
		West:  b.Min.X,
		North: b.Max.Y,
		Res:   tiles.TileSize / float64(cols),
		Rows:  rows,
		Cols:  cols,
		Data:  values,
	}, nil
}

// At returns the value of a cell.
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set sets the value of a cell.
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// East returns the eastern edge.
func (g *Grid) East() float64 {
	return g.West + float64(g.Cols)*g.Res
}

// South returns the southern edge.
func (g *Grid) South() float64 {
	return g.North - float64(g.Rows)*g.Res
}

// Bounds returns the grid extent.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.West, Y: g.South()},
		Max: geom.Point{X: g.East(), Y: g.North},
	}
}

// Center returns the centre of a cell.
func (g *Grid) Center(row, col int) geom.Point {
	return geom.Point{
		X: g.West + (float64(col)+0.5)*g.Res,
		Y: g.North - (float64(row)+0.5)*g.Res,
	}
}

// Valid counts the cells holding data.
func (g *Grid) Valid() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mask sets every cell whose centre lies outside shape to NaN.
func (g *Grid) Mask(shape geom.Polygonal) {
	sb := shape.Bounds()
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			p := g.Center(r, c)
			if !inBounds(p, sb) || p.Within(shape) == geom.Outside {
				g.Set(r, c, math.NaN())
			}
		}
	}
}

func inBounds(p geom.Point, b *geom.Bounds) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}
