// Package region loads regions of interest into polygon geometries in
// geographic (EPSG:4326) coordinates.
package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ctessum/geom"
	ctgeojson "github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/robert-malhotra/blackmarble/pkg/geojson"
)

// ErrInvalidGeometry is returned for empty regions, unsupported geometry
// types, and coordinates that are not WGS84 longitude/latitude.
var ErrInvalidGeometry = errors.New("invalid geometry")

// CRS84 is the only reference system regions are accepted in.
const CRS84 = "EPSG:4326"

// Zone is one named polygonal feature of a region.
type Zone struct {
	Name       string
	Shape      geom.Polygonal
	Properties map[string]string
}

// Region is a set of zones sharing one coordinate reference system.
type Region struct {
	Zones []Zone
	CRS   string
}

// Empty reports whether the region has no polygon with any vertices.
func (r *Region) Empty() bool {
	if r == nil {
		return true
	}
	for _, z := range r.Zones {
		for _, p := range z.Shape.Polygons() {
			for _, ring := range p {
				if len(ring) > 0 {
					return false
				}
			}
		}
	}
	return true
}

// Parts returns every polygon part of every zone.
func (r *Region) Parts() []geom.Polygon {
	var parts []geom.Polygon
	for _, z := range r.Zones {
		parts = append(parts, z.Shape.Polygons()...)
	}
	return parts
}

// Bounds returns the bounding box of the whole region.
func (r *Region) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, z := range r.Zones {
		b.Extend(z.Shape.Bounds())
	}
	return b
}

// Validate checks the reference system, emptiness and coordinate ranges.
func (r *Region) Validate() error {
	if r.Empty() {
		return fmt.Errorf("%w: region is empty", ErrInvalidGeometry)
	}
	if r.CRS != CRS84 {
		return fmt.Errorf("%w: region is in %q, expected %s", ErrInvalidGeometry, r.CRS, CRS84)
	}
	for _, p := range r.Parts() {
		for _, ring := range p {
			for _, pt := range ring {
				if pt.X < -180 || pt.X > 180 || pt.Y < -90 || pt.Y > 90 {
					return fmt.Errorf("%w: coordinate (%g, %g) outside longitude/latitude range",
						ErrInvalidGeometry, pt.X, pt.Y)
				}
			}
		}
	}
	return nil
}

// FromGeoJSON reads a Geometry, Feature or FeatureCollection. Zone names are
// taken from nameProperty when present.
func FromGeoJSON(data []byte, nameProperty string) (*Region, error) {
	doc, err := geojson.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	crs := CRS84
	if !geojson.IsGeographicCRS(doc.CRS) {
		crs = doc.CRS
	}

	r := &Region{CRS: crs}
	for i, f := range doc.Features {
		if f.Geometry == nil {
			continue
		}
		shape, err := toPolygonal(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		r.Zones = append(r.Zones, Zone{
			Name:       zoneName(f.Properties, nameProperty, i),
			Shape:      shape,
			Properties: stringProperties(f.Properties),
		})
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromGeoJSONFile reads a GeoJSON document from disk.
func FromGeoJSONFile(path, nameProperty string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	return FromGeoJSON(data, nameProperty)
}

// FromWKT reads a POLYGON or MULTIPOLYGON in longitude/latitude.
func FromWKT(wkt string) (*Region, error) {
	g, err := geojson.FromWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	shape, err := toPolygonal(g)
	if err != nil {
		return nil, err
	}
	r := &Region{CRS: CRS84, Zones: []Zone{{Name: "0", Shape: shape}}}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromBBox builds a rectangular region from west, south, east, north.
func FromBBox(west, south, east, north float64) (*Region, error) {
	if west > east || south > north {
		return nil, fmt.Errorf("%w: bbox [%g, %g, %g, %g] is inverted", ErrInvalidGeometry, west, south, east, north)
	}
	shape := geom.Polygon{{
		{X: west, Y: south},
		{X: east, Y: south},
		{X: east, Y: north},
		{X: west, Y: north},
		{X: west, Y: south},
	}}
	r := &Region{CRS: CRS84, Zones: []Zone{{Name: "0", Shape: shape}}}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromShapefile reads polygon records from a shapefile. A sibling .prj file,
// when present, must describe geographic coordinates.
func FromShapefile(path, nameField string) (*Region, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer d.Close()

	r := &Region{CRS: CRS84}
	sr, err := d.SR()
	switch {
	case err == nil && sr.Name != "longlat":
		r.CRS = sr.Name
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read shapefile projection: %w", err)
	}

	var fields []string
	if nameField != "" {
		fields = append(fields, nameField)
	}
	for i := 0; ; i++ {
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("failed to decode shapefile record %d: %w", i, err)
		}
		shape, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("%w: shapefile record %d is %T, not a polygon", ErrInvalidGeometry, i, g)
		}
		name := attrs[nameField]
		if name == "" {
			name = fmt.Sprint(i)
		}
		r.Zones = append(r.Zones, Zone{Name: name, Shape: shape, Properties: attrs})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("failed to decode shapefile: %w", err)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// toPolygonal converts Polygon and MultiPolygon geometries. Multipolygons are
// decoded part by part.
func toPolygonal(g *geojson.Geometry) (geom.Polygonal, error) {
	parts, err := g.Polygons()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	var mp geom.MultiPolygon
	for _, part := range parts {
		pg, err := geojson.NewPolygon(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		raw, err := json.Marshal(pg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		decoded, err := ctgeojson.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		poly, ok := decoded.(geom.Polygon)
		if !ok {
			return nil, fmt.Errorf("%w: decoded %T, expected polygon", ErrInvalidGeometry, decoded)
		}
		mp = append(mp, poly)
	}

	if g.Type == "Polygon" && len(mp) == 1 {
		return mp[0], nil
	}
	return mp, nil
}

func zoneName(props map[string]any, key string, index int) string {
	if key != "" {
		if v, ok := props[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprint(index)
}

func stringProperties(props map[string]any) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
