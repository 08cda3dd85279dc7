package temporal

import "errors"

var (
	// ErrInvalidDateSpecifier is returned when a date specifier cannot be parsed
	// or is too coarse for the product's granularity.
	ErrInvalidDateSpecifier = errors.New("invalid date specifier")

	// ErrEmptyDateRange is returned when no date specifiers are supplied.
	ErrEmptyDateRange = errors.New("empty date range")
)
