package tiles

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/robert-malhotra/blackmarble/internal/region"
)

// cell is a grid tile indexed by its footprint polygon.
type cell struct {
	geom.Polygon
	tile Tile
}

func newCell(t Tile) *cell {
	b := t.Bounds()
	return &cell{
		Polygon: geom.Polygon{{
			b.Min,
			{X: b.Max.X, Y: b.Min.Y},
			b.Max,
			{X: b.Min.X, Y: b.Max.Y},
			b.Min,
		}},
		tile: t,
	}
}

// Index is a spatial index over the full tile grid. It is immutable after
// construction and safe for concurrent use.
type Index struct {
	tree *rtree.Rtree
}

var defaultIndex = NewIndex()

// NewIndex builds the grid index.
func NewIndex() *Index {
	tree := rtree.NewTree(25, 50)
	for h := 0; h < Columns; h++ {
		for v := 0; v < Rows; v++ {
			tree.Insert(newCell(Tile{H: h, V: v}))
		}
	}
	return &Index{tree: tree}
}

// Resolve returns the tiles covering r using the default index.
func Resolve(r *region.Region) ([]Tile, error) {
	return defaultIndex.Resolve(r)
}

// Resolve returns, sorted by identifier, every tile whose cell overlaps the
// bounding box of a polygon part of r. A region that only touches a cell
// along an edge does not select it.
func (idx *Index) Resolve(r *region.Region) ([]Tile, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: region is nil", region.ErrInvalidGeometry)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[Tile]bool)
	for _, part := range r.Parts() {
		pb := part.Bounds()
		if pb.Empty() {
			continue
		}
		for _, s := range idx.tree.SearchIntersect(pb) {
			c := s.(*cell)
			if overlaps(c.tile.Bounds(), pb) {
				seen[c.tile] = true
			}
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: region does not overlap the tile grid", region.ErrInvalidGeometry)
	}

	out := make([]Tile, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// overlaps applies strict interval overlap per axis. Degenerate (zero width)
// extents fall into the half-open cell containing them, with the outer edge
// of the grid closed.
func overlaps(c, b *geom.Bounds) bool {
	return axisOverlaps(c.Min.X, c.Max.X, b.Min.X, b.Max.X, 180) &&
		axisOverlaps(c.Min.Y, c.Max.Y, b.Min.Y, b.Max.Y, 90)
}

func axisOverlaps(cmin, cmax, bmin, bmax, limit float64) bool {
	if bmin == bmax {
		if bmin == limit {
			return cmax == limit
		}
		return cmin <= bmin && bmin < cmax
	}
	return bmin < cmax && bmax > cmin
}
