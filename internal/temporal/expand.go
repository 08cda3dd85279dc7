package temporal

import (
	"fmt"

	"github.com/robert-malhotra/blackmarble/internal/product"
)

// Expand maps date specifiers onto the periods a product is published at.
//
// Daily products need day precision. Monthly products accept days (truncated)
// and year-months. Annual products accept anything and truncate to the year.
// The result keeps the order in which periods first appear.
func Expand(p product.Product, specs []Spec) ([]Period, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyDateRange
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", product.ErrUnknownProduct, p)
	}

	want := PrecisionFor(p.Granularity())
	seen := make(map[string]bool, len(specs))
	periods := make([]Period, 0, len(specs))

	for _, s := range specs {
		if s.Precision > want {
			return nil, fmt.Errorf("%w: %s has %s precision but %s is %s",
				ErrInvalidDateSpecifier, s, s.Precision, p, p.Granularity())
		}
		period := NewPeriod(s.Time(), want)
		if seen[period.Key()] {
			continue
		}
		seen[period.Key()] = true
		periods = append(periods, period)
	}

	return periods, nil
}

// ExpandStrings parses raw specifiers and expands them for p.
func ExpandStrings(p product.Product, args []string) ([]Period, error) {
	if len(args) == 0 {
		return nil, ErrEmptyDateRange
	}
	specs, err := ParseSpecs(args)
	if err != nil {
		return nil, err
	}
	return Expand(p, specs)
}
