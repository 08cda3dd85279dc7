// Package stac builds STAC API documents for downloaded Black Marble tiles,
// using planetlabs/go-stac for the core types.
package stac

import (
	gostac "github.com/planetlabs/go-stac"
)

type (
	Item           = gostac.Item
	Collection     = gostac.Collection
	Asset          = gostac.Asset
	Link           = gostac.Link
	Provider       = gostac.Provider
	Extent         = gostac.Extent
	SpatialExtent  = gostac.SpatialExtent
	TemporalExtent = gostac.TemporalExtent
)

// Media types used in links and assets.
const (
	MediaJSON    = "application/json"
	MediaGeoJSON = "application/geo+json"
	MediaHDF5    = "application/x-hdf5"
)

// ItemCollection is a GeoJSON FeatureCollection of items with paging counts.
type ItemCollection struct {
	Type           string  `json:"type"`
	Features       []*Item `json:"features"`
	Links          []*Link `json:"links"`
	NumberMatched  int     `json:"numberMatched"`
	NumberReturned int     `json:"numberReturned"`
}

// NewItemCollection wraps items. numberMatched is the count before paging.
func NewItemCollection(items []*Item, matched int) *ItemCollection {
	if items == nil {
		items = []*Item{}
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          []*Link{},
		NumberMatched:  matched,
		NumberReturned: len(items),
	}
}

// AddLink appends a link.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}

// CollectionsList is the /collections response.
type CollectionsList struct {
	Collections []*Collection `json:"collections"`
	Links       []*Link       `json:"links"`
}

// NewCollectionsList creates a CollectionsList.
func NewCollectionsList(collections []*Collection) *CollectionsList {
	return &CollectionsList{Collections: collections, Links: []*Link{}}
}

// Conformance is the /conformance response.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// LandingPage is the root catalog.
type LandingPage struct {
	Type        string   `json:"type"`
	Id          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	StacVersion string   `json:"stac_version"`
	ConformsTo  []string `json:"conformsTo,omitempty"`
	Links       []*Link  `json:"links"`
}

// NewLandingPage creates a root catalog advertising conformsTo.
func NewLandingPage(id, title, description, version string, conformsTo []string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		Id:          id,
		Title:       title,
		Description: description,
		StacVersion: version,
		ConformsTo:  conformsTo,
		Links:       []*Link{},
	}
}

// AddLink appends a link.
func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}

// Conformance classes.
const (
	ConformanceCore           = "https://api.stacspec.org/v1.0.0/core"
	ConformanceOGCFeatures    = "https://api.stacspec.org/v1.0.0/ogcapi-features"
	ConformanceOGCFeatCore    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core"
	ConformanceOGCFeatGeoJSON = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson"
)

// DefaultConformance lists the classes the service implements. There is no
// item search; items are browsed per collection.
func DefaultConformance() []string {
	return []string{
		ConformanceCore,
		ConformanceOGCFeatures,
		ConformanceOGCFeatCore,
		ConformanceOGCFeatGeoJSON,
	}
}
