package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-malhotra/blackmarble/internal/region"
)

// loadRegion interprets a --region value as a GeoJSON or shapefile path, a
// "west,south,east,north" box or a WKT polygon, in that order.
func loadRegion(value, nameField string) (*region.Region, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("--region is required")
	}

	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		switch strings.ToLower(filepath.Ext(value)) {
		case ".shp":
			return region.FromShapefile(value, nameField)
		default:
			return region.FromGeoJSONFile(value, nameField)
		}
	}

	if bbox, ok := parseBBox(value); ok {
		return region.FromBBox(bbox[0], bbox[1], bbox[2], bbox[3])
	}

	return region.FromWKT(value)
}

func parseBBox(s string) ([4]float64, bool) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, false
		}
		out[i] = v
	}
	return out, true
}
