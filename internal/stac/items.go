package stac

import (
	"fmt"
	"strings"
	"time"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/store"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
	"github.com/robert-malhotra/blackmarble/pkg/geojson"
)

// Item properties specific to Black Marble tiles.
const (
	PropertyTile        = "blackmarble:tile"
	PropertyPeriod      = "blackmarble:period"
	PropertyGranularity = "blackmarble:granularity"
	PropertyVariable    = "blackmarble:default_variable"
)

// AssetData is the key of the downloaded file asset.
const AssetData = "data"

// missionStart is the first day of VIIRS Black Marble products.
var missionStart = time.Date(2012, 1, 19, 0, 0, 0, 0, time.UTC)

// ItemID returns the item identifier of an artifact: its file name without
// the extension.
func ItemID(p product.Product, t tiles.Tile, period temporal.Period) string {
	return strings.TrimSuffix(store.Name(p, t, period), store.Extension)
}

// ParseItemID reverses ItemID.
func ParseItemID(id string) (product.Product, tiles.Tile, temporal.Period, error) {
	return store.ParseName(id + store.Extension)
}

// ProductCollection describes one product as a STAC collection.
func ProductCollection(p product.Product, version, baseURL string) *Collection {
	c := &Collection{
		Version:     version,
		Id:          string(p),
		Title:       fmt.Sprintf("VIIRS Black Marble %s", p),
		Description: p.Description(),
		License:     "proprietary",
		Providers: []*Provider{{
			Name:  "NASA LAADS DAAC",
			Roles: []string{"producer", "host"},
			Url:   "https://ladsweb.modaps.eosdis.nasa.gov",
		}},
		Extent: &Extent{
			Spatial:  &SpatialExtent{Bbox: [][]float64{{-180, -90, 180, 90}}},
			Temporal: &TemporalExtent{Interval: [][]any{{FormatTime(missionStart), nil}}},
		},
		Summaries: map[string]any{
			PropertyGranularity: []string{p.Granularity().String()},
			PropertyVariable:    []string{p.DefaultVariable()},
		},
		Links:  []*Link{},
		Assets: map[string]*Asset{},
	}

	collURL := fmt.Sprintf("%s/collections/%s", baseURL, p)
	c.Links = append(c.Links,
		&Link{Rel: "self", Href: collURL, Type: MediaJSON},
		&Link{Rel: "root", Href: baseURL + "/", Type: MediaJSON},
		&Link{Rel: "parent", Href: baseURL + "/", Type: MediaJSON},
		&Link{Rel: "items", Href: collURL + "/items", Type: MediaGeoJSON, Title: "Items"},
	)
	return c
}

// ArtifactItem describes a stored tile file as a STAC item whose geometry is
// the tile footprint.
func ArtifactItem(a store.Artifact, version, baseURL string) (*Item, error) {
	bbox := a.Tile.BBox()
	footprint, err := geojson.NewPolygonFromBBox(bbox)
	if err != nil {
		return nil, fmt.Errorf("tile %s footprint: %w", a.Tile, err)
	}

	id := ItemID(a.Product, a.Tile, a.Period)
	collURL := fmt.Sprintf("%s/collections/%s", baseURL, a.Product)
	itemURL := fmt.Sprintf("%s/items/%s", collURL, id)

	item := &Item{
		Version:    version,
		Id:         id,
		Collection: string(a.Product),
		Geometry:   footprint,
		Bbox:       bbox,
		Properties: map[string]any{
			"datetime":       FormatTime(a.Period.Start),
			"start_datetime": FormatTime(a.Period.Start),
			"end_datetime":   FormatTime(a.Period.End().Add(-time.Second)),
			"platform":       "suomi-npp",
			"instruments":    []string{"viirs"},
			PropertyTile:     a.Tile.ID(),
			PropertyPeriod:   a.Period.Key(),
		},
		Assets: map[string]*Asset{
			AssetData: {
				Href:  itemURL + "/download",
				Type:  MediaHDF5,
				Title: store.Name(a.Product, a.Tile, a.Period),
				Roles: []string{"data"},
			},
		},
		Links: []*Link{
			{Rel: "self", Href: itemURL, Type: MediaGeoJSON},
			{Rel: "parent", Href: collURL, Type: MediaJSON},
			{Rel: "collection", Href: collURL, Type: MediaJSON},
			{Rel: "root", Href: baseURL + "/", Type: MediaJSON},
		},
	}
	if !a.ModTime.IsZero() {
		item.Properties["updated"] = FormatTime(a.ModTime)
	}
	return item, nil
}

// Match reports whether an artifact passes the bbox and datetime filters.
// Periods match when they overlap the requested interval.
func (q *ItemQuery) Match(a store.Artifact) bool {
	if len(q.BBox) == 4 {
		tb := a.Tile.BBox()
		if tb[2] <= q.BBox[0] || tb[0] >= q.BBox[2] || tb[3] <= q.BBox[1] || tb[1] >= q.BBox[3] {
			return false
		}
	}
	if q.Start != nil && !a.Period.End().After(*q.Start) {
		return false
	}
	if q.End != nil && a.Period.Start.After(*q.End) {
		return false
	}
	return true
}
