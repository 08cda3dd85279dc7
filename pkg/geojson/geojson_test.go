package geojson

import (
	"encoding/json"
	"testing"
)

func TestDecode_Geometry(t *testing.T) {
	doc, err := Decode([]byte(`{"type":"Polygon","coordinates":[[[-10,0],[10,0],[10,5],[-10,5],[-10,0]]]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(doc.Features))
	}
	if doc.Features[0].Geometry.Type != "Polygon" {
		t.Errorf("geometry type = %s", doc.Features[0].Geometry.Type)
	}
	if doc.CRS != "" {
		t.Errorf("expected no CRS, got %q", doc.CRS)
	}
}

func TestDecode_FeatureCollection(t *testing.T) {
	input := `{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:OGC:1.3:CRS84"}},
		"features": [
			{"type": "Feature", "properties": {"name": "a"},
			 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
			{"type": "Feature", "properties": {"name": "b"},
			 "geometry": {"type": "MultiPolygon", "coordinates": [[[[2,2],[3,2],[3,3],[2,2]]],[[[5,5],[6,5],[6,6],[5,5]]]]}}
		]
	}`

	doc, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(doc.Features))
	}
	if !IsGeographicCRS(doc.CRS) {
		t.Errorf("expected CRS84 to be geographic, got %q", doc.CRS)
	}
	if doc.Features[1].Properties["name"] != "b" {
		t.Errorf("feature properties not preserved: %v", doc.Features[1].Properties)
	}

	polys, err := doc.Features[1].Geometry.Polygons()
	if err != nil {
		t.Fatalf("Polygons failed: %v", err)
	}
	if len(polys) != 2 {
		t.Errorf("expected 2 polygon parts, got %d", len(polys))
	}
}

func TestDecode_Feature(t *testing.T) {
	doc, err := Decode([]byte(`{"type":"Feature","id":7,"properties":{"k":"v"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Features) != 1 || doc.Features[0].Properties["k"] != "v" {
		t.Errorf("unexpected feature: %+v", doc.Features)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `{`},
		{"missing type", `{"coordinates":[]}`},
		{"unsupported type", `{"type":"GeometryCollection","geometries":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestComputeBBox(t *testing.T) {
	coords := [][][][]float64{
		{{{-10, -5}, {0, -5}, {0, 0}, {-10, -5}}},
		{{{20, 10}, {30, 10}, {30, 15}, {20, 10}}},
	}
	g, err := NewMultiPolygon(coords)
	if err != nil {
		t.Fatalf("NewMultiPolygon failed: %v", err)
	}

	bbox, err := ComputeBBox(g)
	if err != nil {
		t.Fatalf("ComputeBBox failed: %v", err)
	}
	want := []float64{-10, -5, 30, 15}
	for i := range want {
		if bbox[i] != want[i] {
			t.Errorf("bbox[%d] = %v, want %v", i, bbox[i], want[i])
		}
	}
}

func TestComputeBBox_Errors(t *testing.T) {
	if _, err := ComputeBBox(nil); err == nil {
		t.Error("expected error for nil geometry")
	}
	if _, err := ComputeBBox(&Geometry{Type: "Point", Coordinates: json.RawMessage(`[1,2]`)}); err == nil {
		t.Error("expected error for Point geometry")
	}
	if _, err := ComputeBBox(&Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[]`)}); err == nil {
		t.Error("expected error for empty polygon")
	}
}

func TestNewPolygonFromBBox(t *testing.T) {
	g, err := NewPolygonFromBBox([]float64{-80, 30, -70, 40})
	if err != nil {
		t.Fatalf("NewPolygonFromBBox failed: %v", err)
	}
	rings, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon failed: %v", err)
	}
	if len(rings) != 1 || len(rings[0]) != 5 {
		t.Fatalf("unexpected ring layout: %v", rings)
	}
	if rings[0][0][0] != rings[0][4][0] || rings[0][0][1] != rings[0][4][1] {
		t.Error("ring is not closed")
	}

	if _, err := NewPolygonFromBBox([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for short bbox")
	}
}

func TestWKTRoundTrip(t *testing.T) {
	tests := []string{
		"POLYGON((30 10,40 40,20 40,10 20,30 10))",
		"POLYGON((35 10,45 45,15 40,10 20,35 10),(20 30,35 35,30 20,20 30))",
		"MULTIPOLYGON(((30 20,45 40,10 40,30 20)),((15 5,40 10,10 20,5 10,15 5)))",
	}
	for _, wkt := range tests {
		g, err := FromWKT(wkt)
		if err != nil {
			t.Fatalf("FromWKT(%q): %v", wkt, err)
		}
		got, err := ToWKT(g)
		if err != nil {
			t.Fatalf("ToWKT: %v", err)
		}
		if got != wkt {
			t.Errorf("round trip = %q, want %q", got, wkt)
		}
	}
}

func TestFromWKT_Whitespace(t *testing.T) {
	g, err := FromWKT("  polygon ( ( -1.5 2 , 3 4e0, -1.5 2 ) ) ")
	if err != nil {
		t.Fatalf("FromWKT failed: %v", err)
	}
	rings, _ := g.Polygon()
	if rings[0][0][0] != -1.5 || rings[0][1][1] != 4 {
		t.Errorf("unexpected coordinates %v", rings)
	}
}

func TestFromWKT_Errors(t *testing.T) {
	tests := []string{
		"",
		"POINT(1 2)",
		"POLYGON((1 2,3 4)",
		"POLYGON((1 2,3))",
		"POLYGON((1 2,3 4)) trailing",
		"MULTIPOLYGON((1 2,3 4))",
	}
	for _, wkt := range tests {
		if _, err := FromWKT(wkt); err == nil {
			t.Errorf("FromWKT(%q) expected error", wkt)
		}
	}
}

func TestIsGeographicCRS(t *testing.T) {
	for _, name := range []string{"", "EPSG:4326", "urn:ogc:def:crs:EPSG::4326", "urn:ogc:def:crs:OGC:1.3:CRS84"} {
		if !IsGeographicCRS(name) {
			t.Errorf("IsGeographicCRS(%q) = false", name)
		}
	}
	for _, name := range []string{"EPSG:3857", "urn:ogc:def:crs:EPSG::32633"} {
		if IsGeographicCRS(name) {
			t.Errorf("IsGeographicCRS(%q) = true", name)
		}
	}
}
