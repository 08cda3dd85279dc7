// Package product describes the NASA Black Marble (VNP46) product suite.
package product

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProduct is returned when a product identifier is not part of the suite.
var ErrUnknownProduct = errors.New("unknown product")

// Product is a Black Marble product identifier such as VNP46A2.
type Product string

// Supported products.
const (
	VNP46A1 Product = "VNP46A1"
	VNP46A2 Product = "VNP46A2"
	VNP46A3 Product = "VNP46A3"
	VNP46A4 Product = "VNP46A4"
)

// Granularity is the native temporal resolution of a product.
type Granularity int

const (
	DailyRaw Granularity = iota
	DailyCorrected
	Monthly
	Annual
)

// String returns a human readable granularity name.
func (g Granularity) String() string {
	switch g {
	case DailyRaw:
		return "daily-raw"
	case DailyCorrected:
		return "daily-corrected"
	case Monthly:
		return "monthly"
	case Annual:
		return "annual"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Daily reports whether the granularity produces one file per calendar day.
func (g Granularity) Daily() bool {
	return g == DailyRaw || g == DailyCorrected
}

type info struct {
	granularity     Granularity
	defaultVariable string
	description     string
}

var catalogue = map[Product]info{
	VNP46A1: {
		granularity:     DailyRaw,
		defaultVariable: "DNB_At_Sensor_Radiance_500m",
		description:     "Daily at-sensor top of atmosphere nighttime radiance",
	},
	VNP46A2: {
		granularity:     DailyCorrected,
		defaultVariable: "Gap_Filled_DNB_BRDF-Corrected_NTL",
		description:     "Daily moonlight and atmosphere corrected nighttime lights",
	},
	VNP46A3: {
		granularity:     Monthly,
		defaultVariable: "NearNadir_Composite_Snow_Free",
		description:     "Monthly moonlight-adjusted nighttime lights composite",
	},
	VNP46A4: {
		granularity:     Annual,
		defaultVariable: "NearNadir_Composite_Snow_Free",
		description:     "Annual moonlight-adjusted nighttime lights composite",
	},
}

// All returns every supported product in identifier order.
func All() []Product {
	return []Product{VNP46A1, VNP46A2, VNP46A3, VNP46A4}
}

// Parse converts a case-insensitive identifier into a Product.
func Parse(s string) (Product, error) {
	p := Product(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := catalogue[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProduct, s)
	}
	return p, nil
}

// Valid reports whether p is part of the suite.
func (p Product) Valid() bool {
	_, ok := catalogue[p]
	return ok
}

func (p Product) String() string {
	return string(p)
}

// Granularity returns the temporal resolution of the product.
func (p Product) Granularity() Granularity {
	return catalogue[p].granularity
}

// DefaultVariable returns the band extracted when the caller does not name one.
func (p Product) DefaultVariable() string {
	return catalogue[p].defaultVariable
}

// Description returns a short product description.
func (p Product) Description() string {
	return catalogue[p].description
}

// QualityFlagVariable returns the dataset holding quality flags for variable.
// Daily products share the mandatory flag; composites carry one per band.
func (p Product) QualityFlagVariable(variable string) string {
	if p.Granularity().Daily() {
		return "Mandatory_Quality_Flag"
	}
	short := strings.TrimSuffix(strings.TrimSuffix(variable, "_Num"), "_Std")
	return short + "_Quality"
}
