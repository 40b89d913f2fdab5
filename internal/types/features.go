package types

// Feature is a catalog feature the vision service reports on. The catalog
// is fixed: every VisionResult carries an observation for each entry, and
// the label mapping below is total over it.
type Feature string

const (
	FeatureSunroof       Feature = "sunroof"
	FeatureLeatherSeats  Feature = "leather_seats"
	FeatureBackupCamera  Feature = "backup_camera"
	FeatureAlloyWheels   Feature = "alloy_wheels"
	FeatureTintedWindows Feature = "tinted_windows"
	FeatureAWD           Feature = "awd_4wd"
	FeatureNavigation    Feature = "navigation"
	FeatureHeatedSeats   Feature = "heated_seats"
	FeatureBluetooth     Feature = "bluetooth"
	FeatureRemoteStart   Feature = "remote_start"
	FeatureThirdRow      Feature = "third_row_seating"
	FeatureTowPackage    Feature = "tow_package"
)

// FeatureCatalog is the fixed, ordered catalog. Order is stable so that
// derived output (profiles, listings) is deterministic.
var FeatureCatalog = []Feature{
	FeatureSunroof,
	FeatureLeatherSeats,
	FeatureBackupCamera,
	FeatureAlloyWheels,
	FeatureTintedWindows,
	FeatureAWD,
	FeatureNavigation,
	FeatureHeatedSeats,
	FeatureBluetooth,
	FeatureRemoteStart,
	FeatureThirdRow,
	FeatureTowPackage,
}

// featureLabels is the total catalog-to-display mapping. A catalog entry
// without a label is a bug; Label falls back to the raw token and the
// exhaustiveness test in features_test.go catches the gap.
var featureLabels = map[Feature]string{
	FeatureSunroof:       "Sunroof / Moonroof",
	FeatureLeatherSeats:  "Leather Seats",
	FeatureBackupCamera:  "Backup Camera",
	FeatureAlloyWheels:   "Alloy Wheels",
	FeatureTintedWindows: "Tinted Windows",
	FeatureAWD:           "All-Wheel Drive",
	FeatureNavigation:    "Navigation System",
	FeatureHeatedSeats:   "Heated Seats",
	FeatureBluetooth:     "Bluetooth",
	FeatureRemoteStart:   "Remote Start",
	FeatureThirdRow:      "Third-Row Seating",
	FeatureTowPackage:    "Tow Package",
}

// Label returns the display label for a catalog feature.
func (f Feature) Label() string {
	if label, ok := featureLabels[f]; ok {
		return label
	}
	return string(f)
}

// Valid reports whether f is a catalog entry.
func (f Feature) Valid() bool {
	_, ok := featureLabels[f]
	return ok
}
