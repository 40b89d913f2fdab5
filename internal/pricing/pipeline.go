// Package pricing converts a reconciled vehicle profile and a market
// snapshot into a final price with a complete audit trail. The stage
// order is fixed: every stage is defined relative to the running price
// its predecessors produced. The whole pipeline is a pure, replayable
// function of its inputs.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// Stage names as they appear in the audit trail.
const (
	StageBaseSelection = "base selection"
	StageSanityRule    = "sanity guardrail"
	StageTrim          = "trim adjustment"
	StageMileage       = "mileage adjustment"
	StageFeatureBonus  = "feature bonus"
	StageTitleStatus   = "title status adjustment"
	StageCondition     = "condition adjustment"
	StageRegional      = "regional market adjustment"
)

// Config carries the pipeline's environmental knobs. CurrentYear is
// explicit so a run can be replayed byte-for-byte later.
type Config struct {
	// SanityAgeYears is the age past which a market average above the
	// plausible ceiling is rejected.
	SanityAgeYears int
	// CurrentYear anchors age computations. Zero means time.Now().
	CurrentYear int
	// RegionPatterns are lowercase substrings matched against the
	// seller's location; a match enables the regional stage.
	RegionPatterns []string
}

// Pipeline runs the ordered adjustment stages.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a pipeline, filling config defaults.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.SanityAgeYears <= 0 {
		cfg.SanityAgeYears = 10
	}
	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = time.Now().Year()
	}
	for i, p := range cfg.RegionPatterns {
		cfg.RegionPatterns[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return &Pipeline{cfg: cfg}
}

// Run executes every stage in order and returns the audit trail plus the
// market snapshot, whose Source flips to rejectedAsImplausible when the
// guardrail fires. No stage can abort: a stage without its input appends
// a zero-delta step marked skipped.
func (p *Pipeline) Run(profile *types.VehicleProfile, market types.MarketSnapshot) (types.PriceBreakdown, types.MarketSnapshot) {
	timer := logging.StartTimer(logging.CategoryPricing, "pricing pipeline")
	defer timer.Stop()

	algorithmic := EstimateBasePrice(profile)

	// Stage 1: base selection. The market average wins when real data
	// exists; whether it survives is stage 2's call.
	var breakdown types.PriceBreakdown
	running := algorithmic
	baseNote := "algorithmic depreciation estimate"
	if market.Usable() {
		running = market.AveragePrice
		baseNote = fmt.Sprintf("market average of %d comparable(s)", market.SampleCount)
	}
	breakdown.BasePrice = running
	breakdown.Steps = append(breakdown.Steps, types.AdjustmentStep{
		Name:              StageBaseSelection,
		RunningPriceAfter: running,
		Note:              baseNote,
	})

	// Stage 2: sanity guardrail. On an old vehicle, a market average
	// above the plausible ceiling is a surfaced MSRP, not a comp.
	running, market = p.sanityStage(&breakdown, running, algorithmic, profile, market)

	// Stage 3: trim.
	running = p.trimStage(&breakdown, running, profile)

	// Stage 4: mileage.
	running = p.mileageStage(&breakdown, running, profile)

	// Stage 5: feature bonus.
	running = p.featureStage(&breakdown, running, profile)

	// Stage 6: title status.
	running = applyPercent(&breakdown, running, StageTitleStatus,
		titleStatusPercent[profile.TitleStatus],
		fmt.Sprintf("title: %s", profile.TitleStatus))

	// Stage 7: condition.
	running = applyPercent(&breakdown, running, StageCondition,
		conditionPercent[profile.Condition],
		fmt.Sprintf("condition: %s", profile.Condition))

	// Stage 8: regional. Always last.
	running = p.regionalStage(&breakdown, running, profile)

	breakdown.FinalPrice = running
	logging.Pricing("final price %.2f for %s (base %.2f over %d steps)",
		breakdown.FinalPrice, profile.ShortName(), breakdown.BasePrice, len(breakdown.Steps))
	return breakdown, market
}

// applyPercent appends a live percentage step and returns the new price.
func applyPercent(b *types.PriceBreakdown, running float64, name string, percent float64, note string) float64 {
	delta := running * percent / 100
	running += delta
	b.Steps = append(b.Steps, types.AdjustmentStep{
		Name:              name,
		Percent:           percent,
		AmountDelta:       delta,
		RunningPriceAfter: running,
		Note:              note,
	})
	return running
}

// skip appends a zero-delta skipped step.
func skip(b *types.PriceBreakdown, running float64, name, reason string) {
	b.Steps = append(b.Steps, types.AdjustmentStep{
		Name:              name,
		RunningPriceAfter: running,
		Skipped:           true,
		Note:              reason,
	})
}

func (p *Pipeline) sanityStage(b *types.PriceBreakdown, running, algorithmic float64, profile *types.VehicleProfile, market types.MarketSnapshot) (float64, types.MarketSnapshot) {
	if !market.Usable() {
		skip(b, running, StageSanityRule, "no market data to check")
		return running, market
	}

	age := p.cfg.CurrentYear - profile.Year
	ceiling := PlausibleCeiling(profile, p.cfg.CurrentYear)
	if age <= p.cfg.SanityAgeYears || market.AveragePrice <= ceiling {
		skip(b, running, StageSanityRule, fmt.Sprintf("market average within plausible ceiling %.0f", ceiling))
		return running, market
	}

	// Rejected: walk the running price from the implausible market
	// average to the algorithmic estimate, on the record.
	logging.PricingWarn("sanity rule rejected market average %.0f (ceiling %.0f, age %d)",
		market.AveragePrice, ceiling, age)
	delta := algorithmic - running
	running = algorithmic
	b.Steps = append(b.Steps, types.AdjustmentStep{
		Name:              StageSanityRule,
		AmountDelta:       delta,
		RunningPriceAfter: running,
		Note:              fmt.Sprintf("market average %.0f exceeds plausible ceiling %.0f for a %d-year-old vehicle; using algorithmic estimate", market.AveragePrice, ceiling, age),
	})
	market.Source = types.SourceRejected
	return running, market
}

func (p *Pipeline) trimStage(b *types.PriceBreakdown, running float64, profile *types.VehicleProfile) float64 {
	trim := strings.TrimSpace(profile.Trim)
	if trim == "" || strings.EqualFold(trim, "unknown") {
		skip(b, running, StageTrim, "no trim detected")
		return running
	}

	tier := ClassifyTrim(trim)
	percent := trimTierPercent[tier] * trimCorroborationScale(profile)
	return applyPercent(b, running, StageTrim, percent, fmt.Sprintf("trim %q", trim))
}

// trimCorroborationScale grows the trim delta with independent evidence:
// a confident vision read and a matching badge each count.
func trimCorroborationScale(profile *types.VehicleProfile) float64 {
	signals := 0
	if v := profile.VisionObserved; v != nil {
		if v.Trim.Confidence >= 0.5 && v.Trim.Value != "" {
			signals++
		}
		for _, token := range v.BadgeTokens {
			if strings.EqualFold(strings.TrimSpace(token), strings.TrimSpace(profile.Trim)) {
				signals++
				break
			}
		}
	}
	if signals > 2 {
		signals = 2
	}
	return 0.5 + 0.25*float64(signals)
}

func (p *Pipeline) mileageStage(b *types.PriceBreakdown, running float64, profile *types.VehicleProfile) float64 {
	if profile.Mileage <= 0 {
		skip(b, running, StageMileage, "mileage unknown")
		return running
	}

	percent := mileagePercent(profile.Mileage)
	note := fmt.Sprintf("%d miles", profile.Mileage)
	if percent < 0 {
		scale := reliabilityScale(profile.Make)
		percent *= scale
		if scale != 1.0 {
			note = fmt.Sprintf("%d miles (reliability scale %.2f)", profile.Mileage, scale)
		}
	}
	return applyPercent(b, running, StageMileage, percent, note)
}

func (p *Pipeline) featureStage(b *types.PriceBreakdown, running float64, profile *types.VehicleProfile) float64 {
	if len(profile.Features) == 0 {
		skip(b, running, StageFeatureBonus, "no features detected")
		return running
	}

	total := 0.0
	for _, label := range profile.Features {
		if pct, ok := featureBonusPercent[label]; ok {
			total += pct
		} else {
			total += defaultFeaturePercent
		}
	}

	note := fmt.Sprintf("%d feature(s)", len(profile.Features))
	if total > maxFeatureBonus {
		// Contributions scale down proportionally so the audit trail
		// still shows relative weight through the recorded percent.
		note = fmt.Sprintf("%d feature(s), capped from %.1f%%", len(profile.Features), total)
		total = maxFeatureBonus
	}
	return applyPercent(b, running, StageFeatureBonus, total, note)
}

func (p *Pipeline) regionalStage(b *types.PriceBreakdown, running float64, profile *types.VehicleProfile) float64 {
	location := strings.ToLower(strings.TrimSpace(profile.SellerDeclared.Location))
	if location == "" || len(p.cfg.RegionPatterns) == 0 {
		skip(b, running, StageRegional, "no regional pattern matched")
		return running
	}

	matched := false
	for _, pattern := range p.cfg.RegionPatterns {
		if pattern != "" && strings.Contains(location, pattern) {
			matched = true
			break
		}
	}
	if !matched {
		skip(b, running, StageRegional, "no regional pattern matched")
		return running
	}

	body := classifyBody(profile)
	percent := regionalPercent[body]
	if profile.Mileage > regionalHighMileageThreshold {
		percent += regionalHighMileageExtra
	}
	return applyPercent(b, running, StageRegional, percent,
		fmt.Sprintf("regional market, location %q", profile.SellerDeclared.Location))
}
