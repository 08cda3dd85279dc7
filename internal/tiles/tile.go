// Package tiles models the Black Marble linear latitude/longitude tile grid
// and resolves regions of interest to the tiles covering them.
package tiles

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ctessum/geom"
)

// Grid dimensions. Tiles are 10° square, h counts eastward from 180°W and
// v counts southward from 90°N.
const (
	Columns  = 36
	Rows     = 18
	TileSize = 10.0
)

// ErrInvalidTile is returned for malformed tile identifiers.
var ErrInvalidTile = errors.New("invalid tile identifier")

// Tile is one cell of the global grid.
type Tile struct {
	H int
	V int
}

// Parse reads an identifier such as "h10v05".
func Parse(id string) (Tile, error) {
	if len(id) != 6 || id[0] != 'h' || id[3] != 'v' {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTile, id)
	}
	h, herr := strconv.Atoi(id[1:3])
	v, verr := strconv.Atoi(id[4:6])
	if herr != nil || verr != nil {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTile, id)
	}
	t := Tile{H: h, V: v}
	if !t.Valid() {
		return Tile{}, fmt.Errorf("%w: %q is outside the grid", ErrInvalidTile, id)
	}
	return t, nil
}

// Valid reports whether the tile lies on the grid.
func (t Tile) Valid() bool {
	return t.H >= 0 && t.H < Columns && t.V >= 0 && t.V < Rows
}

// ID returns the archive identifier, e.g. h10v05.
func (t Tile) ID() string {
	return fmt.Sprintf("h%02dv%02d", t.H, t.V)
}

func (t Tile) String() string {
	return t.ID()
}

// Bounds returns the cell extent in degrees.
func (t Tile) Bounds() *geom.Bounds {
	west := -180 + TileSize*float64(t.H)
	north := 90 - TileSize*float64(t.V)
	return &geom.Bounds{
		Min: geom.Point{X: west, Y: north - TileSize},
		Max: geom.Point{X: west + TileSize, Y: north},
	}
}

// BBox returns the cell extent as [west, south, east, north].
func (t Tile) BBox() []float64 {
	b := t.Bounds()
	return []float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}
}

// Less orders tiles by identifier.
func (t Tile) Less(o Tile) bool {
	if t.H != o.H {
		return t.H < o.H
	}
	return t.V < o.V
}
