package region

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

const twoDistricts = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"NAME_2": "Ikeja", "pop": 1000},
		 "geometry": {"type": "Polygon", "coordinates": [[[3.3, 6.5], [3.4, 6.5], [3.4, 6.7], [3.3, 6.5]]]}},
		{"type": "Feature", "properties": {"NAME_2": "Epe"},
		 "geometry": {"type": "MultiPolygon", "coordinates": [
			[[[3.9, 6.5], [4.1, 6.5], [4.1, 6.7], [3.9, 6.5]]],
			[[[4.2, 6.5], [4.3, 6.5], [4.3, 6.6], [4.2, 6.5]]]
		 ]}}
	]
}`

func TestFromGeoJSON(t *testing.T) {
	r, err := FromGeoJSON([]byte(twoDistricts), "NAME_2")
	if err != nil {
		t.Fatalf("FromGeoJSON failed: %v", err)
	}
	if len(r.Zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(r.Zones))
	}
	if r.Zones[0].Name != "Ikeja" || r.Zones[1].Name != "Epe" {
		t.Errorf("unexpected zone names %q, %q", r.Zones[0].Name, r.Zones[1].Name)
	}
	if r.Zones[0].Properties["pop"] != "1000" {
		t.Errorf("expected stringified property, got %v", r.Zones[0].Properties)
	}
	if _, ok := r.Zones[0].Shape.(geom.Polygon); !ok {
		t.Errorf("expected Polygon, got %T", r.Zones[0].Shape)
	}
	if _, ok := r.Zones[1].Shape.(geom.MultiPolygon); !ok {
		t.Errorf("expected MultiPolygon, got %T", r.Zones[1].Shape)
	}
	if got := len(r.Parts()); got != 3 {
		t.Errorf("expected 3 polygon parts, got %d", got)
	}

	b := r.Bounds()
	if b.Min.X != 3.3 || b.Max.X != 4.3 || b.Min.Y != 6.5 || b.Max.Y != 6.7 {
		t.Errorf("unexpected bounds %+v", b)
	}
}

func TestFromGeoJSON_FallbackNames(t *testing.T) {
	r, err := FromGeoJSON([]byte(twoDistricts), "missing")
	if err != nil {
		t.Fatalf("FromGeoJSON failed: %v", err)
	}
	if r.Zones[0].Name != "0" || r.Zones[1].Name != "1" {
		t.Errorf("expected index names, got %q, %q", r.Zones[0].Name, r.Zones[1].Name)
	}
}

func TestFromGeoJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty collection", `{"type":"FeatureCollection","features":[]}`},
		{"empty polygon", `{"type":"Polygon","coordinates":[]}`},
		{"point", `{"type":"Point","coordinates":[1,2]}`},
		{"projected crs", `{"type":"Polygon","crs":{"type":"name","properties":{"name":"EPSG:3857"}},
			"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`},
		{"out of range", `{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,1],[0,0]]]}`},
		{"garbage", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGeoJSON([]byte(tt.input), "")
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestFromGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lagos.geojson")
	if err := os.WriteFile(path, []byte(twoDistricts), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := FromGeoJSONFile(path, "NAME_2")
	if err != nil {
		t.Fatalf("FromGeoJSONFile failed: %v", err)
	}
	if len(r.Zones) != 2 {
		t.Errorf("expected 2 zones, got %d", len(r.Zones))
	}

	if _, err := FromGeoJSONFile(filepath.Join(t.TempDir(), "missing.geojson"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromWKT(t *testing.T) {
	r, err := FromWKT("MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))")
	if err != nil {
		t.Fatalf("FromWKT failed: %v", err)
	}
	if len(r.Parts()) != 2 {
		t.Errorf("expected 2 parts, got %d", len(r.Parts()))
	}

	if _, err := FromWKT("POINT(1 2)"); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestFromBBox(t *testing.T) {
	r, err := FromBBox(-80, 30, -70, 40)
	if err != nil {
		t.Fatalf("FromBBox failed: %v", err)
	}
	b := r.Bounds()
	if b.Min.X != -80 || b.Min.Y != 30 || b.Max.X != -70 || b.Max.Y != 40 {
		t.Errorf("unexpected bounds %+v", b)
	}

	if _, err := FromBBox(10, 0, 0, 10); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for inverted bbox, got %v", err)
	}
	if _, err := FromBBox(-190, 0, 0, 10); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for out of range bbox, got %v", err)
	}
}

func TestEmpty(t *testing.T) {
	var nilRegion *Region
	if !nilRegion.Empty() {
		t.Error("nil region should be empty")
	}
	r := &Region{CRS: CRS84, Zones: []Zone{{Shape: geom.Polygon{}}}}
	if !r.Empty() {
		t.Error("region without rings should be empty")
	}
}

type district struct {
	geom.Polygon
	NAME string
}

const wgs84PRJ = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

func writeShapefile(t *testing.T, prj string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "districts.shp")
	e, err := shp.NewEncoder(path, district{})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	for _, d := range []district{
		{Polygon: geom.Polygon{{{X: 3.3, Y: 6.5}, {X: 3.3, Y: 6.7}, {X: 3.4, Y: 6.7}, {X: 3.4, Y: 6.5}, {X: 3.3, Y: 6.5}}}, NAME: "Ikeja"},
		{Polygon: geom.Polygon{{{X: 3.9, Y: 6.5}, {X: 3.9, Y: 6.7}, {X: 4.1, Y: 6.7}, {X: 4.1, Y: 6.5}, {X: 3.9, Y: 6.5}}}, NAME: "Epe"},
	} {
		if err := e.Encode(d); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	e.Close()

	if prj != "" {
		if err := os.WriteFile(strings.TrimSuffix(path, ".shp")+".prj", []byte(prj), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestFromShapefile(t *testing.T) {
	tests := []struct {
		name      string
		prj       string
		nameField string
		want      []string
	}{
		{name: "geographic prj", prj: wgs84PRJ, nameField: "NAME", want: []string{"Ikeja", "Epe"}},
		{name: "no prj", nameField: "NAME", want: []string{"Ikeja", "Epe"}},
		{name: "index names", prj: wgs84PRJ, want: []string{"0", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromShapefile(writeShapefile(t, tt.prj), tt.nameField)
			if err != nil {
				t.Fatalf("FromShapefile: %v", err)
			}
			if r.CRS != CRS84 || len(r.Zones) != len(tt.want) {
				t.Fatalf("unexpected region %+v", r)
			}
			for i, z := range r.Zones {
				if z.Name != tt.want[i] {
					t.Errorf("zone %d name = %q, want %q", i, z.Name, tt.want[i])
				}
			}
			b := r.Bounds()
			if b.Min.X != 3.3 || b.Max.X != 4.1 || b.Min.Y != 6.5 || b.Max.Y != 6.7 {
				t.Errorf("unexpected bounds %+v", b)
			}
		})
	}
}

func TestFromShapefile_Invalid(t *testing.T) {
	mercator := "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"
	if _, err := FromShapefile(writeShapefile(t, mercator), ""); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected a projected shapefile to be rejected, got %v", err)
	}
	if _, err := FromShapefile(writeShapefile(t, ""), "POP"); err == nil {
		t.Error("expected an unknown name field to fail")
	}
	if _, err := FromShapefile(filepath.Join(t.TempDir(), "missing.shp"), ""); err == nil {
		t.Error("expected a missing shapefile to fail")
	}
}
