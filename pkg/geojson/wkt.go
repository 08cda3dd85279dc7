package geojson

import (
	"fmt"
	"strconv"
	"strings"
)

// FromWKT parses a POLYGON or MULTIPOLYGON well-known-text string.
func FromWKT(wkt string) (*Geometry, error) {
	p := &wktParser{src: strings.TrimSpace(wkt)}
	if p.src == "" {
		return nil, fmt.Errorf("empty WKT string")
	}

	kind := strings.ToUpper(p.word())
	switch kind {
	case "POLYGON":
		rings, err := p.polygon()
		if err != nil {
			return nil, fmt.Errorf("invalid POLYGON WKT: %w", err)
		}
		if err := p.end(); err != nil {
			return nil, err
		}
		return NewPolygon(rings)
	case "MULTIPOLYGON":
		polygons, err := parseList(p, p.polygon)
		if err != nil {
			return nil, fmt.Errorf("invalid MULTIPOLYGON WKT: %w", err)
		}
		if err := p.end(); err != nil {
			return nil, err
		}
		return NewMultiPolygon(polygons)
	default:
		return nil, fmt.Errorf("unsupported WKT geometry type %q", kind)
	}
}

// ToWKT renders a Polygon or MultiPolygon as well-known text.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("geometry is nil")
	}
	polygons, err := g.Polygons()
	if err != nil {
		return "", err
	}

	parts := make([]string, len(polygons))
	for i, polygon := range polygons {
		rings := make([]string, len(polygon))
		for j, ring := range polygon {
			points := make([]string, len(ring))
			for k, point := range ring {
				if len(point) < 2 {
					return "", fmt.Errorf("invalid point in ring: expected at least 2 coordinates")
				}
				points[k] = formatFloat(point[0]) + " " + formatFloat(point[1])
			}
			rings[j] = "(" + strings.Join(points, ",") + ")"
		}
		parts[i] = "(" + strings.Join(rings, ",") + ")"
	}

	if g.Type == "Polygon" {
		return "POLYGON" + parts[0], nil
	}
	return "MULTIPOLYGON(" + strings.Join(parts, ",") + ")", nil
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *wktParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *wktParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *wktParser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return fmt.Errorf("unexpected trailing WKT at offset %d", p.pos)
	}
	return nil
}

// parseList parses "(item, item, ...)".
func parseList[T any](p *wktParser, item func() (T, error)) ([]T, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var out []T
	for {
		v, err := item()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.peek() != ',' {
			break
		}
		p.pos++
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *wktParser) polygon() ([][][]float64, error) {
	return parseList(p, p.ring)
}

func (p *wktParser) ring() ([][]float64, error) {
	return parseList(p, p.point)
}

func (p *wktParser) point() ([]float64, error) {
	lon, err := p.number()
	if err != nil {
		return nil, err
	}
	lat, err := p.number()
	if err != nil {
		return nil, err
	}
	return []float64{lon, lat}, nil
}

func (p *wktParser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && strings.ContainsRune("+-.0123456789eE", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", p.src[start:p.pos], err)
	}
	return v, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
