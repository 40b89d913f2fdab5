package pricing

import (
	"strings"

	"quickflip/internal/types"
)

// The adjustment percentages in this file are business policy, tuned by
// hand. They are a starting configuration, not measured truth.

// TrimTier buckets detected trims by how the market values them.
type TrimTier int

const (
	TrimBase TrimTier = iota
	TrimMid
	TrimPremium
)

var trimTierPercent = map[TrimTier]float64{
	TrimBase:    0,
	TrimMid:     3,
	TrimPremium: 6,
}

// premiumTrims and midTrims are matched as whole lowercase tokens inside
// the detected trim string.
var premiumTrims = []string{
	"limited", "platinum", "touring", "denali", "lariat", "king ranch",
	"ex-l", "xle", "sel", "titanium", "signature", "calligraphy", "summit",
}

var midTrims = []string{
	"sport", "se", "ex", "xlt", "lt", "sr5", "gt", "latitude", "big horn",
}

// ClassifyTrim maps a detected trim string to its tier.
func ClassifyTrim(trim string) TrimTier {
	t := strings.ToLower(strings.TrimSpace(trim))
	if t == "" || t == "unknown" {
		return TrimBase
	}
	for _, p := range premiumTrims {
		if containsToken(t, p) {
			return TrimPremium
		}
	}
	for _, m := range midTrims {
		if containsToken(t, m) {
			return TrimMid
		}
	}
	return TrimBase
}

func containsToken(haystack, token string) bool {
	if haystack == token {
		return true
	}
	for _, field := range strings.Fields(haystack) {
		if field == token {
			return true
		}
	}
	return false
}

// Mileage buckets. Bonuses for low miles, penalties past 60k.
type mileageBucket struct {
	maxMiles int
	percent  float64
}

var mileageBuckets = []mileageBucket{
	{30000, 15},
	{60000, 5},
	{100000, -5},
	{0, -15}, // catch-all
}

func mileagePercent(miles int) float64 {
	for _, b := range mileageBuckets {
		if b.maxMiles > 0 && miles < b.maxMiles {
			return b.percent
		}
	}
	return mileageBuckets[len(mileageBuckets)-1].percent
}

// Reliability tiers scale mileage penalties: reliable brands tolerate
// miles better, fragile ones worse. Bonuses are never scaled.
var reliableMakes = map[string]bool{
	"toyota": true, "honda": true, "lexus": true, "mazda": true, "acura": true,
}

var fragileMakes = map[string]bool{
	"land rover": true, "jaguar": true, "fiat": true, "chrysler": true,
	"dodge": true, "mini": true, "alfa romeo": true,
}

func reliabilityScale(make string) float64 {
	m := strings.ToLower(strings.TrimSpace(make))
	switch {
	case reliableMakes[m]:
		return 0.8
	case fragileMakes[m]:
		return 1.25
	default:
		return 1.0
	}
}

// Per-feature bonus percentages, keyed by the reconciled display label.
// Labels absent here (appearance descriptors) earn the default.
var featureBonusPercent = map[string]float64{
	"Sunroof / Moonroof": 1.5,
	"Leather Seats":      2.0,
	"Backup Camera":      1.0,
	"Alloy Wheels":       1.0,
	"Tinted Windows":     0.5,
	"All-Wheel Drive":    2.5,
	"Navigation System":  1.5,
	"Heated Seats":       1.0,
	"Bluetooth":          0.5,
	"Remote Start":       1.0,
	"Third-Row Seating":  1.5,
	"Tow Package":        2.0,
}

const (
	defaultFeaturePercent = 0.5
	maxFeatureBonus       = 5.0
)

// Title status percentages. A parts-only title is close to scrap value.
var titleStatusPercent = map[types.TitleStatus]float64{
	types.TitleClean:   0,
	types.TitleRebuilt: -30,
	types.TitleSalvage: -50,
	types.TitleJunk:    -70,
	types.TitleParts:   -80,
}

var conditionPercent = map[types.Condition]float64{
	types.ConditionExcellent: 10,
	types.ConditionGood:      0,
	types.ConditionFair:      -15,
	types.ConditionPoor:      -30,
}

// Body styles for the regional stage.
type bodyStyle int

const (
	bodySedan bodyStyle = iota
	bodyCoupe
	bodyTruckSUV
	bodyLuxury
)

var regionalPercent = map[bodyStyle]float64{
	bodySedan:    -3,
	bodyCoupe:    -2,
	bodyTruckSUV: 3,
	bodyLuxury:   -5,
}

const regionalHighMileageExtra = -2
const regionalHighMileageThreshold = 150000

var premiumMakes = map[string]bool{
	"bmw": true, "mercedes-benz": true, "mercedes": true, "audi": true,
	"lexus": true, "porsche": true, "tesla": true, "infiniti": true,
	"cadillac": true, "lincoln": true, "land rover": true, "jaguar": true,
}

var truckSUVModels = map[string]bool{
	"f-150": true, "f150": true, "silverado": true, "sierra": true,
	"ram 1500": true, "tacoma": true, "tundra": true, "ranger": true,
	"frontier": true, "colorado": true, "4runner": true, "tahoe": true,
	"suburban": true, "expedition": true, "explorer": true, "highlander": true,
	"pilot": true, "rav4": true, "cr-v": true, "crv": true, "escape": true,
	"rogue": true, "wrangler": true, "grand cherokee": true, "bronco": true,
	"pathfinder": true, "sequoia": true, "yukon": true,
}

var coupeModels = map[string]bool{
	"mustang": true, "camaro": true, "challenger": true, "corvette": true,
	"86": true, "brz": true, "supra": true, "370z": true, "miata": true,
	"mx-5": true,
}

func classifyBody(profile *types.VehicleProfile) bodyStyle {
	mk := strings.ToLower(strings.TrimSpace(profile.Make))
	md := strings.ToLower(strings.TrimSpace(profile.Model))
	switch {
	case premiumMakes[mk]:
		return bodyLuxury
	case truckSUVModels[md]:
		return bodyTruckSUV
	case coupeModels[md]:
		return bodyCoupe
	default:
		return bodySedan
	}
}
