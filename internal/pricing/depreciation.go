package pricing

import (
	"math"
	"strings"

	"quickflip/internal/types"
)

const (
	depreciationAnchor     = 15000.0 // typical mainstream vehicle around model year 2020
	depreciationAnchorYear = 2020
	yearlyCurveSlope       = 0.05
	mileagePivot           = 50000.0
	mileageCurveWeight     = 0.3
	premiumMakeFactor      = 1.2
	estimateFloor          = 500.0

	newCarEstimate        = 35000.0
	newCarEstimatePremium = 55000.0
	annualDepreciation    = 0.10
	// ceilingMargin keeps the guardrail from rejecting genuinely strong
	// comps; only prices far above the depreciated estimate trip it.
	ceilingMargin = 1.5
)

// EstimateBasePrice is the algorithmic fallback used when no trustworthy
// market average exists: a simple curve anchored at a typical 2020
// mainstream price, shifted by model year and odometer.
func EstimateBasePrice(profile *types.VehicleProfile) float64 {
	yearFactor := 1 + float64(profile.Year-depreciationAnchorYear)*yearlyCurveSlope
	if yearFactor < 0.2 {
		yearFactor = 0.2
	}

	mileageFactor := 1 - (float64(profile.Mileage)-mileagePivot)/100000*mileageCurveWeight
	if mileageFactor < 0.4 {
		mileageFactor = 0.4
	}
	if mileageFactor > 1.2 {
		mileageFactor = 1.2
	}

	estimate := depreciationAnchor * yearFactor * mileageFactor
	if isPremiumMake(profile.Make) {
		estimate *= premiumMakeFactor
	}
	if estimate < estimateFloor {
		estimate = estimateFloor
	}
	return math.Round(estimate)
}

// PlausibleCeiling is the most an aged vehicle could believably fetch: a
// new-car estimate depreciated per year of age, adjusted for title
// status. A market average above this on an old vehicle means the search
// surfaced a new/MSRP price for the current model year.
func PlausibleCeiling(profile *types.VehicleProfile, currentYear int) float64 {
	newPrice := newCarEstimate
	if isPremiumMake(profile.Make) {
		newPrice = newCarEstimatePremium
	}

	age := currentYear - profile.Year
	if age < 0 {
		age = 0
	}
	depreciated := newPrice * math.Pow(1-annualDepreciation, float64(age))

	titleFactor := 1 + titleStatusPercent[profile.TitleStatus]/100
	return math.Round(depreciated * titleFactor * ceilingMargin)
}

func isPremiumMake(make string) bool {
	return premiumMakes[strings.ToLower(strings.TrimSpace(make))]
}
