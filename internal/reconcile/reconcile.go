// Package reconcile merges seller-declared facts with vision observations
// into a single concrete VehicleProfile. Pure and deterministic: the same
// inputs always produce the same profile.
package reconcile

import (
	"sort"
	"strings"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// Confidence gates. A vision value below its gate never overrides what
// the seller typed. Trim reads are noisier visually, so its gate is lower.
const (
	identityGate   = 0.6
	trimGate       = 0.5
	featureGate    = 0.5
	descriptorGate = 0.6
	noteGate       = 0.5
)

// badgeFeatures maps recognized badge/emblem text to catalog features.
// Tokens are matched uppercase.
var badgeFeatures = map[string]types.Feature{
	"AWD":    types.FeatureAWD,
	"4WD":    types.FeatureAWD,
	"4X4":    types.FeatureAWD,
	"4MATIC": types.FeatureAWD,
	"XDRIVE": types.FeatureAWD,
	"QUATTRO": types.FeatureAWD,
	"SH-AWD": types.FeatureAWD,
	"NAV":    types.FeatureNavigation,
	"NAVI":   types.FeatureNavigation,
}

// Reconcile produces the single vehicle profile the rest of the pipeline
// reads. Vision wins per field only when its confidence clears the gate;
// otherwise the seller's declaration stands; otherwise "Unknown".
func Reconcile(vision *types.VisionResult, seller types.SellerInput) types.VehicleProfile {
	profile := types.VehicleProfile{
		Make:       pickString(vision.Make, seller.Make, identityGate),
		Model:      pickString(vision.Model, seller.Model, identityGate),
		Trim:       pickString(vision.Trim, seller.Trim, trimGate),
		Drivetrain: pickString(vision.Drivetrain, "", identityGate),
		Year:       pickInt(vision.Year, seller.Year, identityGate),

		TitleStatus: seller.TitleStatus,
		Condition:   pickCondition(vision.Condition, seller.Condition),

		SellerDeclared: seller,
		VisionObserved: vision,
	}

	// Mileage always comes from the seller when present; the odometer is
	// rarely photographed, so vision only fills a genuine gap.
	profile.Mileage = seller.Mileage
	if profile.Mileage == 0 && vision.Mileage.Confidence >= identityGate {
		profile.Mileage = vision.Mileage.Value
	}

	profile.Features = collectFeatures(vision)
	profile.ConditionNotes = collectNotes(vision)

	logging.Reconcile("profile: %s trim=%q mileage=%d features=%d",
		profile.ShortName(), profile.Trim, profile.Mileage, len(profile.Features))
	return profile
}

func pickString(observed types.StringFact, declared string, gate float64) string {
	if observed.Confidence >= gate && strings.TrimSpace(observed.Value) != "" {
		return strings.TrimSpace(observed.Value)
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	return "Unknown"
}

func pickInt(observed types.IntFact, declared int, gate float64) int {
	if observed.Confidence >= gate && observed.Value > 0 {
		return observed.Value
	}
	return declared
}

func pickCondition(observed types.StringFact, declared types.Condition) types.Condition {
	if declared != "" {
		return declared
	}
	if observed.Confidence >= identityGate && observed.Value != "" {
		return types.ParseCondition(observed.Value)
	}
	return types.ConditionGood
}

// collectFeatures unions gated feature observations, badge-inferred
// features, and high-confidence appearance descriptors. Output is sorted
// so the profile is byte-for-byte reproducible.
func collectFeatures(vision *types.VisionResult) []string {
	seen := make(map[string]bool)

	for feature, obs := range vision.Features {
		if obs.Present && obs.Confidence >= featureGate && feature.Valid() {
			seen[feature.Label()] = true
		}
	}

	for _, token := range vision.BadgeTokens {
		if feature, ok := badgeFeatures[strings.ToUpper(strings.TrimSpace(token))]; ok {
			seen[feature.Label()] = true
		}
	}

	for _, d := range appearanceDescriptors(vision) {
		seen[d] = true
	}

	features := make([]string, 0, len(seen))
	for f := range seen {
		features = append(features, f)
	}
	sort.Strings(features)
	return features
}

// appearanceDescriptors renders confident color/material facts as
// listing-ready strings ("Black Leather", "Blue Exterior").
func appearanceDescriptors(vision *types.VisionResult) []string {
	colorOK := vision.Color.Confidence >= descriptorGate && vision.Color.Value != ""
	materialOK := vision.Material.Confidence >= descriptorGate && vision.Material.Value != ""

	switch {
	case colorOK && materialOK:
		return []string{titleCase(vision.Color.Value) + " " + titleCase(vision.Material.Value)}
	case materialOK:
		return []string{titleCase(vision.Material.Value) + " Interior"}
	case colorOK:
		return []string{titleCase(vision.Color.Value) + " Exterior"}
	default:
		return nil
	}
}

func collectNotes(vision *types.VisionResult) []string {
	notes := make([]string, 0, len(vision.ConditionNotes))
	for _, n := range vision.ConditionNotes {
		if n.Confidence >= noteGate && strings.TrimSpace(n.Note) != "" {
			notes = append(notes, strings.TrimSpace(n.Note))
		}
	}
	sort.Strings(notes)
	return notes
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
