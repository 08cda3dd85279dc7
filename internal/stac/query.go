package stac

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidQuery is returned for malformed item query parameters.
var ErrInvalidQuery = errors.New("invalid query")

// ItemQuery holds the /items filters.
type ItemQuery struct {
	// BBox is [west, south, east, north].
	BBox []float64
	// Start and End bound the item period; either may be nil.
	Start *time.Time
	End   *time.Time
	Limit int
	// Page is 1-based.
	Page int
}

// ParseItemQuery reads bbox, datetime, limit and page from query values.
// A zero limit means the caller's default applies.
func ParseItemQuery(q url.Values) (*ItemQuery, error) {
	query := &ItemQuery{Page: 1}

	if raw := q.Get("bbox"); raw != "" {
		parts := strings.Split(raw, ",")
		bbox := make([]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bbox coordinate %d: %v", ErrInvalidQuery, i, err)
			}
			bbox[i] = v
		}
		if err := ValidateBBox(bbox); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		query.BBox = bbox
	}

	if raw := q.Get("datetime"); raw != "" {
		start, end, err := ParseDateTimeInterval(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		query.Start, query.End = start, end
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: limit must be a positive integer, got %q", ErrInvalidQuery, raw)
		}
		query.Limit = n
	}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: page must be a positive integer, got %q", ErrInvalidQuery, raw)
		}
		query.Page = n
	}

	return query, nil
}

// ValidateBBox checks a 2D bounding box.
func ValidateBBox(bbox []float64) error {
	if len(bbox) != 4 {
		return fmt.Errorf("bbox must have 4 coordinates, got %d", len(bbox))
	}
	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	if west < -180 || west > 180 || east < -180 || east > 180 {
		return fmt.Errorf("longitudes must be between -180 and 180, got %g and %g", west, east)
	}
	if south < -90 || south > 90 || north < -90 || north > 90 {
		return fmt.Errorf("latitudes must be between -90 and 90, got %g and %g", south, north)
	}
	if west > east {
		return fmt.Errorf("west longitude (%g) must be <= east longitude (%g)", west, east)
	}
	if south > north {
		return fmt.Errorf("south latitude (%g) must be <= north latitude (%g)", south, north)
	}
	return nil
}

// ParseDateTimeInterval parses a STAC datetime parameter:
//   - a single RFC3339 instant, used as both bounds
//   - "start/end", where either side may be ".." or empty for an open bound
//
// Plain dates (2006-01-02) are accepted on either side.
func ParseDateTimeInterval(datetime string) (*time.Time, *time.Time, error) {
	datetime = strings.TrimSpace(datetime)
	if datetime == "" {
		return nil, nil, nil
	}

	if !strings.Contains(datetime, "/") {
		t, err := parseInstant(datetime)
		if err != nil {
			return nil, nil, err
		}
		return &t, &t, nil
	}

	parts := strings.Split(datetime, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("datetime interval must be 'start/end', got %q", datetime)
	}

	var start, end *time.Time
	if s := strings.TrimSpace(parts[0]); s != "" && s != ".." {
		t, err := parseInstant(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start datetime: %w", err)
		}
		start = &t
	}
	if s := strings.TrimSpace(parts[1]); s != "" && s != ".." {
		t, err := parseInstant(s)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end datetime: %w", err)
		}
		end = &t
	}

	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("start datetime %s is after end datetime %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q, expected RFC 3339", s)
	}
	return t, nil
}

// FormatTime formats t as RFC3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// PageLinks returns prev and next links for page-based paging. params are
// copied; only "page" is replaced.
func PageLinks(baseURL string, params url.Values, page, limit, matched int) []*Link {
	var links []*Link
	if page > 1 {
		links = append(links, &Link{Rel: "prev", Href: pageURL(baseURL, params, page-1), Type: MediaGeoJSON})
	}
	if limit > 0 && page < (matched+limit-1)/limit {
		links = append(links, &Link{Rel: "next", Href: pageURL(baseURL, params, page+1), Type: MediaGeoJSON})
	}
	return links
}

func pageURL(baseURL string, params url.Values, page int) string {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	return baseURL + "?" + q.Encode()
}
