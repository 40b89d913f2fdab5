package listing

import (
	"fmt"
	"strings"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// The repair pass is a fixed list of rules run once after generation.
// Each rule is a predicate (is the listing acceptable?) and a transform
// (make it acceptable). Rules run in order; a transform must leave the
// listing passing its own predicate.
type repairRule struct {
	name string
	ok   func(l *types.PlatformListing, profile *types.VehicleProfile) bool
	fix  func(l *types.PlatformListing, profile *types.VehicleProfile)
}

var repairRules = []repairRule{
	{
		name: "title present",
		ok: func(l *types.PlatformListing, profile *types.VehicleProfile) bool {
			return strings.TrimSpace(l.Title) != ""
		},
		fix: func(l *types.PlatformListing, profile *types.VehicleProfile) {
			l.Title = profile.ShortName()
		},
	},
	{
		name: "identity present",
		ok: func(l *types.PlatformListing, profile *types.VehicleProfile) bool {
			text := strings.ToLower(l.Text)
			return strings.Contains(text, strings.ToLower(profile.Make)) &&
				strings.Contains(text, strings.ToLower(profile.Model))
		},
		fix: func(l *types.PlatformListing, profile *types.VehicleProfile) {
			l.Text = profile.ShortName() + "\n\n" + l.Text
		},
	},
	{
		// No detected feature may be silently dropped, regardless of
		// what the generator produced.
		name: "all features present",
		ok: func(l *types.PlatformListing, profile *types.VehicleProfile) bool {
			return len(missingFeatures(l.Text, profile)) == 0
		},
		fix: func(l *types.PlatformListing, profile *types.VehicleProfile) {
			l.Text = appendFeatureBlock(l.Text, profile)
		},
	},
}

// Repair applies every rule whose predicate fails. Returns the number of
// transforms applied.
func Repair(l *types.PlatformListing, profile *types.VehicleProfile) int {
	applied := 0
	for _, rule := range repairRules {
		if rule.ok(l, profile) {
			continue
		}
		rule.fix(l, profile)
		applied++
		logging.ListingWarn("[%s] repair applied: %s", l.PlatformID, rule.name)
	}
	return applied
}

// missingFeatures returns profile features absent from the text by
// case-insensitive token match.
func missingFeatures(text string, profile *types.VehicleProfile) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, f := range profile.Features {
		if !strings.Contains(lower, strings.ToLower(f)) {
			missing = append(missing, f)
		}
	}
	return missing
}

const featureBlockHeader = "Features & Equipment"

// appendFeatureBlock replaces a generic features section with a complete
// one, or appends a new block listing every detected feature.
func appendFeatureBlock(text string, profile *types.VehicleProfile) string {
	var block strings.Builder
	fmt.Fprintf(&block, "%s:\n", featureBlockHeader)
	for _, f := range profile.Features {
		fmt.Fprintf(&block, "- %s\n", f)
	}

	// If the generator already wrote a (incomplete) features header,
	// rewrite from that point instead of duplicating the section.
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, strings.ToLower(featureBlockHeader)); idx >= 0 {
		return strings.TrimSpace(text[:idx]) + "\n\n" + block.String()
	}
	return strings.TrimSpace(text) + "\n\n" + block.String()
}
