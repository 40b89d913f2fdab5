package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every catalog entry must have a display label and every label must
// belong to a catalog entry. Adding a feature to one side without the
// other breaks vision prompts and listing output in subtle ways.
func TestFeatureCatalog_LabelsAreTotal(t *testing.T) {
	assert.Len(t, featureLabels, len(FeatureCatalog))

	seen := make(map[Feature]bool, len(FeatureCatalog))
	for _, f := range FeatureCatalog {
		assert.False(t, seen[f], "duplicate catalog entry %q", f)
		seen[f] = true

		label, ok := featureLabels[f]
		assert.True(t, ok, "catalog entry %q has no label", f)
		assert.NotEmpty(t, label)
	}
	for f := range featureLabels {
		assert.True(t, seen[f], "label for %q has no catalog entry", f)
	}
}

func TestFeature_Label(t *testing.T) {
	assert.Equal(t, "All-Wheel Drive", FeatureAWD.Label())
	assert.Equal(t, "Sunroof / Moonroof", FeatureSunroof.Label())
	// Out-of-catalog tokens fall back to the raw value.
	assert.Equal(t, "flux_capacitor", Feature("flux_capacitor").Label())
}

func TestFeature_Valid(t *testing.T) {
	for _, f := range FeatureCatalog {
		assert.True(t, f.Valid(), "catalog entry %q", f)
	}
	assert.False(t, Feature("flux_capacitor").Valid())
	assert.False(t, Feature("").Valid())
}
