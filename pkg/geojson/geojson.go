// Package geojson reads and writes the GeoJSON objects used to describe
// regions of interest and tile footprints.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         any            `json:"id,omitempty"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection represents a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// CRS is the legacy (2008) named coordinate reference system member.
type CRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// Document is any top-level GeoJSON object reduced to its features.
type Document struct {
	Features []*Feature
	// CRS is the declared CRS name, empty when the document does not declare one.
	CRS string
}

type envelope struct {
	Type        string          `json:"type"`
	CRS         *CRS            `json:"crs"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    *Geometry       `json:"geometry"`
	Properties  map[string]any  `json:"properties"`
	ID          any             `json:"id"`
	Features    []*Feature      `json:"features"`
}

// Decode parses a Geometry, Feature or FeatureCollection.
func Decode(data []byte) (*Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode GeoJSON: %w", err)
	}

	doc := &Document{}
	if env.CRS != nil {
		doc.CRS = env.CRS.Properties.Name
	}

	switch env.Type {
	case "FeatureCollection":
		doc.Features = env.Features
	case "Feature":
		doc.Features = []*Feature{{
			Type:       "Feature",
			ID:         env.ID,
			Geometry:   env.Geometry,
			Properties: env.Properties,
		}}
	case "Point", "LineString", "Polygon", "MultiPolygon":
		doc.Features = []*Feature{{
			Type:     "Feature",
			Geometry: &Geometry{Type: env.Type, Coordinates: env.Coordinates},
		}}
	case "":
		return nil, fmt.Errorf("GeoJSON object has no type")
	default:
		return nil, fmt.Errorf("unsupported GeoJSON type: %s", env.Type)
	}

	return doc, nil
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// MultiPolygon returns the coordinates as a MultiPolygon [][][][lon, lat].
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	if g.Type != "MultiPolygon" {
		return nil, fmt.Errorf("geometry is not a MultiPolygon, got %s", g.Type)
	}
	var coords [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal MultiPolygon coordinates: %w", err)
	}
	return coords, nil
}

// Polygons returns the polygon parts of a Polygon or MultiPolygon.
func (g *Geometry) Polygons() ([][][][]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	switch g.Type {
	case "Polygon":
		p, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		return [][][][]float64{p}, nil
	case "MultiPolygon":
		return g.MultiPolygon()
	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
}

// BBox computes the bounding box of the geometry as [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// ComputeBBox computes the bounding box of a polygonal geometry.
func ComputeBBox(g *Geometry) ([]float64, error) {
	polygons, err := g.Polygons()
	if err != nil {
		return nil, err
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, polygon := range polygons {
		for _, ring := range polygon {
			for _, point := range ring {
				if len(point) < 2 {
					continue
				}
				minLon = math.Min(minLon, point[0])
				maxLon = math.Max(maxLon, point[0])
				minLat = math.Min(minLat, point[1])
				maxLat = math.Max(maxLat, point[1])
			}
		}
	}

	if math.IsInf(minLon, 0) || math.IsInf(minLat, 0) {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}

	return []float64{minLon, minLat, maxLon, maxLat}, nil
}

// NewPolygonFromBBox creates a closed rectangular polygon from [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}
	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	return NewPolygon([][][]float64{{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}})
}

// NewPolygon wraps polygon rings in a Geometry.
func NewPolygon(rings [][][]float64) (*Geometry, error) {
	raw, err := json.Marshal(rings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}
	return &Geometry{Type: "Polygon", Coordinates: raw}, nil
}

// NewMultiPolygon wraps polygons in a Geometry.
func NewMultiPolygon(polygons [][][][]float64) (*Geometry, error) {
	raw, err := json.Marshal(polygons)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal multipolygon coordinates: %w", err)
	}
	return &Geometry{Type: "MultiPolygon", Coordinates: raw}, nil
}

// IsGeographicCRS reports whether a declared CRS name denotes WGS84
// longitude/latitude. An empty name means the GeoJSON default, which is.
func IsGeographicCRS(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "EPSG:4326", "URN:OGC:DEF:CRS:EPSG::4326", "URN:OGC:DEF:CRS:OGC:1.3:CRS84",
		"URN:OGC:DEF:CRS:OGC::CRS84", "CRS84", "OGC:CRS84", "WGS84":
		return true
	default:
		return false
	}
}
