// Package temporal turns caller date specifiers into the archive periods a
// product is published at.
package temporal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Precision is the finest calendar component present in a specifier.
type Precision int

const (
	Day Precision = iota
	Month
	Year
)

func (p Precision) String() string {
	switch p {
	case Day:
		return "day"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("precision(%d)", int(p))
	}
}

// Spec is a calendar date, year-month or bare year supplied by a caller.
type Spec struct {
	Year      int
	Month     time.Month
	Day       int
	Precision Precision
}

var specLayouts = []struct {
	layout    string
	precision Precision
}{
	{"2006-01-02", Day},
	{"2006-01", Month},
	{"2006", Year},
}

// ParseSpec parses "2006-01-02", "2006-01" or "2006".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Spec{}, fmt.Errorf("%w: empty string", ErrInvalidDateSpecifier)
	}

	for _, l := range specLayouts {
		if len(s) != len(l.layout) {
			continue
		}
		t, err := time.Parse(l.layout, s)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateSpecifier, s, err)
		}
		return fromTime(t, l.precision), nil
	}

	// RFC3339 timestamps carry a day; the clock part is discarded.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateSpec(t), nil
	}

	return Spec{}, fmt.Errorf("%w: %q", ErrInvalidDateSpecifier, s)
}

// ParseSpecs parses each argument, expanding inclusive "A..B" ranges.
func ParseSpecs(args []string) ([]Spec, error) {
	var out []Spec
	for _, arg := range args {
		if lo, hi, ok := strings.Cut(arg, ".."); ok {
			start, err := ParseSpec(lo)
			if err != nil {
				return nil, err
			}
			end, err := ParseSpec(hi)
			if err != nil {
				return nil, err
			}
			r, err := Range(start, end)
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
			continue
		}
		s, err := ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DateSpec returns a day precision specifier for the calendar date of t.
func DateSpec(t time.Time) Spec {
	return fromTime(t, Day)
}

// MonthSpec returns a month precision specifier.
func MonthSpec(year int, month time.Month) Spec {
	return Spec{Year: year, Month: month, Day: 1, Precision: Month}
}

// YearSpec returns a year precision specifier.
func YearSpec(year int) Spec {
	return Spec{Year: year, Month: time.January, Day: 1, Precision: Year}
}

func fromTime(t time.Time, p Precision) Spec {
	s := Spec{Year: t.Year(), Month: time.January, Day: 1, Precision: p}
	if p <= Month {
		s.Month = t.Month()
	}
	if p == Day {
		s.Day = t.Day()
	}
	return s
}

// Time returns midnight UTC on the first instant covered by the specifier.
func (s Spec) Time() time.Time {
	return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, time.UTC)
}

func (s Spec) String() string {
	switch s.Precision {
	case Month:
		return fmt.Sprintf("%04d-%02d", s.Year, int(s.Month))
	case Year:
		return strconv.Itoa(s.Year)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", s.Year, int(s.Month), s.Day)
	}
}

// Range expands an inclusive range of specifiers sharing one precision.
func Range(start, end Spec) ([]Spec, error) {
	if start.Precision != end.Precision {
		return nil, fmt.Errorf("%w: range %s..%s mixes %s and %s precision",
			ErrInvalidDateSpecifier, start, end, start.Precision, end.Precision)
	}
	if end.Time().Before(start.Time()) {
		return nil, fmt.Errorf("%w: range %s..%s ends before it starts", ErrInvalidDateSpecifier, start, end)
	}

	var out []Spec
	for t := start.Time(); !t.After(end.Time()); t = step(t, start.Precision) {
		out = append(out, fromTime(t, start.Precision))
	}
	return out, nil
}

func step(t time.Time, p Precision) time.Time {
	switch p {
	case Year:
		return t.AddDate(1, 0, 0)
	case Month:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
