package temporal

import (
	"fmt"
	"time"

	"github.com/robert-malhotra/blackmarble/internal/product"
)

// Period is one archive timestamp of a product: a day, a month or a year.
type Period struct {
	Start     time.Time
	Precision Precision
}

// NewPeriod truncates t to the given precision.
func NewPeriod(t time.Time, p Precision) Period {
	return Period{Start: fromTime(t.UTC(), p).Time(), Precision: p}
}

// ParseKey parses the output of Key back into a Period.
func ParseKey(key string) (Period, error) {
	layouts := []struct {
		layout    string
		precision Precision
	}{
		{"2006_01_02", Day},
		{"2006_01", Month},
		{"2006", Year},
	}
	for _, l := range layouts {
		if len(key) != len(l.layout) {
			continue
		}
		t, err := time.Parse(l.layout, key)
		if err != nil {
			break
		}
		return Period{Start: t, Precision: l.precision}, nil
	}
	return Period{}, fmt.Errorf("%w: period key %q", ErrInvalidDateSpecifier, key)
}

// Key is the timestamp component of artifact names: 2022_01_01, 2022_01 or 2022.
func (p Period) Key() string {
	switch p.Precision {
	case Month:
		return p.Start.Format("2006_01")
	case Year:
		return p.Start.Format("2006")
	default:
		return p.Start.Format("2006_01_02")
	}
}

// Date returns the archive date for the period. Composites are filed under
// their first day.
func (p Period) Date() string {
	return p.Start.Format("2006-01-02")
}

// DayOfYear returns the archive day-of-year directory for the period.
func (p Period) DayOfYear() int {
	return p.Start.YearDay()
}

// End returns the first instant after the period.
func (p Period) End() time.Time {
	return step(p.Start, p.Precision)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End())
}

func (p Period) String() string {
	return fromTime(p.Start, p.Precision).String()
}

// PrecisionFor returns the period precision a product is published at.
func PrecisionFor(g product.Granularity) Precision {
	switch g {
	case product.Monthly:
		return Month
	case product.Annual:
		return Year
	default:
		return Day
	}
}
