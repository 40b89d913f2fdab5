// Package types defines the core domain model for the QuickFlip analysis
// pipeline: seller input, vision observations, the reconciled vehicle
// profile, market data, and the pricing outputs. Everything here is
// created fresh per analysis run and immutable once a stage hands it
// downstream.
package types

import (
	"fmt"
	"strings"
)

// TitleStatus is the legal status of a vehicle title.
type TitleStatus string

const (
	TitleClean   TitleStatus = "clean"
	TitleRebuilt TitleStatus = "rebuilt"
	TitleSalvage TitleStatus = "salvage"
	TitleJunk    TitleStatus = "junk"
	TitleParts   TitleStatus = "parts"
)

// ParseTitleStatus normalizes free-form title input. Unrecognized values
// default to clean, matching how sellers actually fill the field in.
func ParseTitleStatus(s string) TitleStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rebuilt", "rebuild", "reconstructed":
		return TitleRebuilt
	case "salvage", "salvaged":
		return TitleSalvage
	case "junk":
		return TitleJunk
	case "parts", "parts only", "parts-only":
		return TitleParts
	default:
		return TitleClean
	}
}

// Condition is the overall condition category of a vehicle.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// ParseCondition normalizes free-form condition input, defaulting to good.
func ParseCondition(s string) Condition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excellent", "like new", "mint":
		return ConditionExcellent
	case "fair", "average":
		return ConditionFair
	case "poor", "rough", "bad":
		return ConditionPoor
	default:
		return ConditionGood
	}
}

// Photo is a single raw seller-supplied image.
type Photo struct {
	Data     []byte
	MIMEType string
}

// PhotoSet is the ordered collection of photos for one run. Input only;
// never mutated after the request is accepted.
type PhotoSet []Photo

// SellerInput is everything the seller typed in. Immutable for the run.
type SellerInput struct {
	Make        string      `json:"make"`
	Model       string      `json:"model"`
	Trim        string      `json:"trim,omitempty"`
	Year        int         `json:"year"`
	Mileage     int         `json:"mileage"`
	AskingPrice float64     `json:"asking_price,omitempty"`
	TitleStatus TitleStatus `json:"title_status"`
	Condition   Condition   `json:"condition,omitempty"`
	Description string      `json:"description,omitempty"`
	VIN         string      `json:"vin,omitempty"`
	Location    string      `json:"location,omitempty"`
}

// StringFact is an externally observed string value with a confidence
// score in [0,1]. Confidence 0 means the value must not be trusted.
type StringFact struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// IntFact is an externally observed integer value with a confidence score.
type IntFact struct {
	Value      int     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FeatureObservation records whether the vision service saw a catalog
// feature. Absence of evidence is not evidence of absence: Present=false
// with low confidence means "not seen", never "confirmed missing".
type FeatureObservation struct {
	Present    bool    `json:"present"`
	Confidence float64 `json:"confidence"`
}

// ConditionNote is a free-text condition observation with confidence.
type ConditionNote struct {
	Note       string  `json:"note"`
	Confidence float64 `json:"confidence"`
}

// VisionResult is the validated output of the vision extraction adapter.
type VisionResult struct {
	Make       StringFact `json:"make"`
	Model      StringFact `json:"model"`
	Trim       StringFact `json:"trim"`
	Drivetrain StringFact `json:"drivetrain"`
	Color      StringFact `json:"color"`
	Material   StringFact `json:"material"`
	Condition  StringFact `json:"condition"`
	Year       IntFact    `json:"year"`
	Mileage    IntFact    `json:"mileage"`

	Features       map[Feature]FeatureObservation `json:"features"`
	ConditionNotes []ConditionNote                `json:"condition_notes"`
	BadgeTokens    []string                       `json:"badge_tokens"`
}

// VehicleProfile is the single reconciled view of the vehicle. Created
// once per run by the reconciliation engine; immutable after.
type VehicleProfile struct {
	Make       string      `json:"make"`
	Model      string      `json:"model"`
	Trim       string      `json:"trim"`
	Drivetrain string      `json:"drivetrain"`
	Year       int         `json:"year"`
	Mileage    int         `json:"mileage"`
	TitleStatus TitleStatus `json:"title_status"`
	Condition   Condition   `json:"condition"`

	// Sorted feature labels, already passed the confidence gate.
	Features       []string `json:"features"`
	ConditionNotes []string `json:"condition_notes,omitempty"`

	// Retained for observability only. Consumers read the reconciled
	// fields above, never these.
	SellerDeclared SellerInput   `json:"seller_declared"`
	VisionObserved *VisionResult `json:"vision_observed,omitempty"`
}

// HasFeature reports whether the reconciled profile carries a feature label.
func (p *VehicleProfile) HasFeature(label string) bool {
	for _, f := range p.Features {
		if strings.EqualFold(f, label) {
			return true
		}
	}
	return false
}

// ShortName renders "2015 Honda Civic" style identification.
func (p *VehicleProfile) ShortName() string {
	if p.Year > 0 {
		return fmt.Sprintf("%d %s %s", p.Year, p.Make, p.Model)
	}
	return fmt.Sprintf("%s %s", p.Make, p.Model)
}

// MarketSource identifies how a MarketSnapshot was produced.
type MarketSource string

const (
	SourceRealSearch  MarketSource = "realSearch"
	SourceRejected    MarketSource = "rejectedAsImplausible"
	SourceUnavailable MarketSource = "unavailable"
)

// DemandLevel is a coarse market demand signal.
type DemandLevel string

const (
	DemandHigh   DemandLevel = "high"
	DemandMedium DemandLevel = "medium"
	DemandLow    DemandLevel = "low"
)

// TrendDirection is the observed price-trend direction.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendStable  TrendDirection = "stable"
	TrendFalling TrendDirection = "falling"
)

// MarketSnapshot is the market price adapter's output. When Source is
// SourceUnavailable the price fields are zero and must be ignored.
type MarketSnapshot struct {
	AveragePrice float64      `json:"average_price"`
	RangeLow     float64      `json:"range_low"`
	RangeHigh    float64      `json:"range_high"`
	SampleCount  int          `json:"sample_count"`
	Source       MarketSource `json:"source"`

	DemandLevel DemandLevel    `json:"demand_level"`
	Trend       TrendDirection `json:"trend"`

	Query      string   `json:"query,omitempty"`
	SourceURLs []string `json:"source_urls,omitempty"`
}

// Usable reports whether the snapshot carries a trustworthy average price.
func (m *MarketSnapshot) Usable() bool {
	return m.Source == SourceRealSearch && m.AveragePrice > 0
}

// AdjustmentStep is one entry in the pricing audit trail.
type AdjustmentStep struct {
	Name              string  `json:"name"`
	Percent           float64 `json:"percent"`
	AmountDelta       float64 `json:"amount_delta"`
	RunningPriceAfter float64 `json:"running_price_after"`
	Skipped           bool    `json:"skipped,omitempty"`
	Note              string  `json:"note,omitempty"`
}

// PriceBreakdown is the full ordered audit trail of the pricing pipeline.
// Append-only while the pipeline runs; immutable once FinalPrice is set.
// FinalPrice always equals BasePrice plus the sum of all non-skipped
// AmountDeltas in order.
type PriceBreakdown struct {
	BasePrice  float64          `json:"base_price"`
	Steps      []AdjustmentStep `json:"steps"`
	FinalPrice float64          `json:"final_price"`
}

// PriceTier is one of the three pricing strategies.
type PriceTier struct {
	Price               float64 `json:"price"`
	Rationale           string  `json:"rationale"`
	EstimatedDaysToSell int     `json:"estimated_days_to_sell"`
	RiskLevel           string  `json:"risk_level"`
}

// PricingTiers holds the quick-sale / market / top-dollar strategies.
type PricingTiers struct {
	QuickSale   PriceTier `json:"quick_sale"`
	MarketPrice PriceTier `json:"market_price"`
	TopDollar   PriceTier `json:"top_dollar"`
}

// ScoreFactor is one signed contribution to the FlipScore.
type ScoreFactor struct {
	Label string `json:"label"`
	Delta int    `json:"delta"`
}

// FlipScore is the 0-100 resale desirability heuristic.
type FlipScore struct {
	Score          int           `json:"score"`
	Factors        []ScoreFactor `json:"factors"`
	Recommendation string        `json:"recommendation"`
}

// PlatformListing is generated listing text for one marketplace platform.
type PlatformListing struct {
	PlatformID string   `json:"platform_id"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	Keywords   []string `json:"keywords,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
}

// NegotiationBand frames the seller's room to move around the market tier.
type NegotiationBand struct {
	MinAcceptable float64 `json:"min_acceptable"`
	Target        float64 `json:"target"`
	Margin        float64 `json:"margin"`
}

// AnalysisResult is the single outward contract of the analysis engine.
type AnalysisResult struct {
	RunID       string            `json:"run_id"`
	Profile     VehicleProfile    `json:"profile"`
	Market      MarketSnapshot    `json:"market"`
	Breakdown   PriceBreakdown    `json:"breakdown"`
	Tiers       PricingTiers      `json:"tiers"`
	FlipScore   FlipScore         `json:"flip_score"`
	Listings    []PlatformListing `json:"listings"`
	Negotiation NegotiationBand   `json:"negotiation"`
}
