package pricing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"quickflip/internal/types"
)

func civicProfile() *types.VehicleProfile {
	return &types.VehicleProfile{
		Make: "Honda", Model: "Civic", Year: 2015, Mileage: 110000,
		TitleStatus: types.TitleClean, Condition: types.ConditionGood,
		Features:       []string{"Alloy Wheels"},
		SellerDeclared: types.SellerInput{Make: "Honda", Model: "Civic", Year: 2015, Mileage: 110000},
	}
}

func realMarket(avg float64) types.MarketSnapshot {
	return types.MarketSnapshot{
		AveragePrice: avg, RangeLow: avg * 0.9, RangeHigh: avg * 1.1,
		SampleCount: 5, Source: types.SourceRealSearch,
		DemandLevel: types.DemandMedium, Trend: types.TrendStable,
	}
}

func testPipeline() *Pipeline {
	return NewPipeline(Config{SanityAgeYears: 10, CurrentYear: 2026})
}

// auditSum re-derives the final price from the recorded steps.
func auditSum(b types.PriceBreakdown) float64 {
	total := b.BasePrice
	for _, s := range b.Steps {
		if !s.Skipped {
			total += s.AmountDelta
		}
	}
	return total
}

func TestPipeline_AuditTrailRoundTrip(t *testing.T) {
	profiles := []*types.VehicleProfile{
		civicProfile(),
		{Make: "BMW", Model: "330i", Year: 2021, Mileage: 25000, TitleStatus: types.TitleClean, Condition: types.ConditionExcellent, Trim: "Sport", Features: []string{"Leather Seats", "Sunroof / Moonroof", "Navigation System", "All-Wheel Drive", "Heated Seats", "Backup Camera"}},
		{Make: "Dodge", Model: "Challenger", Year: 2012, Mileage: 160000, TitleStatus: types.TitleSalvage, Condition: types.ConditionPoor,
			SellerDeclared: types.SellerInput{Location: "Dallas, TX"}},
	}
	markets := []types.MarketSnapshot{
		realMarket(12000),
		{Source: types.SourceUnavailable},
		realMarket(90000), // triggers the guardrail for the old vehicles
	}

	p := NewPipeline(Config{SanityAgeYears: 10, CurrentYear: 2026, RegionPatterns: []string{"tx"}})
	for _, profile := range profiles {
		for _, market := range markets {
			breakdown, _ := p.Run(profile, market)
			if got := auditSum(breakdown); math.Abs(got-breakdown.FinalPrice) > 1e-9 {
				t.Errorf("%s: audit replay %v != final %v", profile.ShortName(), got, breakdown.FinalPrice)
			}
		}
	}
}

func TestPipeline_BaseSelectionPrefersMarket(t *testing.T) {
	breakdown, _ := testPipeline().Run(civicProfile(), realMarket(12000))
	if breakdown.BasePrice != 12000 {
		t.Errorf("expected market base 12000, got %v", breakdown.BasePrice)
	}
	if breakdown.Steps[0].Name != StageBaseSelection {
		t.Errorf("first step must be base selection, got %s", breakdown.Steps[0].Name)
	}
}

func TestPipeline_MarketUnavailableFallsBack(t *testing.T) {
	profile := civicProfile()
	breakdown, _ := testPipeline().Run(profile, types.MarketSnapshot{Source: types.SourceUnavailable})

	if breakdown.BasePrice != EstimateBasePrice(profile) {
		t.Errorf("expected algorithmic base %v, got %v", EstimateBasePrice(profile), breakdown.BasePrice)
	}
	if len(breakdown.Steps) != 8 {
		t.Errorf("expected all 8 stages recorded, got %d", len(breakdown.Steps))
	}
	if breakdown.FinalPrice <= 0 {
		t.Errorf("expected positive final price, got %v", breakdown.FinalPrice)
	}
	// The guardrail has nothing to check without market data.
	if !breakdown.Steps[1].Skipped {
		t.Error("sanity stage should be skipped without market data")
	}
}

func TestPipeline_SanityRejectsMSRPOnOldVehicle(t *testing.T) {
	profile := civicProfile() // 11 years old at CurrentYear 2026
	implausible := realMarket(29000)

	breakdown, market := testPipeline().Run(profile, implausible)

	if market.Source != types.SourceRejected {
		t.Fatalf("expected rejectedAsImplausible, got %s", market.Source)
	}
	// After the guardrail step the running price must equal the
	// algorithmic estimate, never the rejected value.
	if breakdown.Steps[1].Name != StageSanityRule || breakdown.Steps[1].Skipped {
		t.Fatalf("expected live sanity step, got %+v", breakdown.Steps[1])
	}
	if got := breakdown.Steps[1].RunningPriceAfter; got != EstimateBasePrice(profile) {
		t.Errorf("expected running price %v after rejection, got %v", EstimateBasePrice(profile), got)
	}
}

func TestPipeline_SanityAcceptsPlausibleOldPrice(t *testing.T) {
	breakdown, market := testPipeline().Run(civicProfile(), realMarket(9000))
	if market.Source != types.SourceRealSearch {
		t.Errorf("plausible price must not be rejected, got %s", market.Source)
	}
	if !breakdown.Steps[1].Skipped {
		t.Error("sanity stage should record itself skipped when the price passes")
	}
}

func TestPipeline_SanityIgnoresYoungVehicles(t *testing.T) {
	profile := civicProfile()
	profile.Year = 2024
	_, market := testPipeline().Run(profile, realMarket(29000))
	if market.Source != types.SourceRealSearch {
		t.Errorf("young vehicle must not trigger the guardrail, got %s", market.Source)
	}
}

func TestPipeline_StageOrderFixed(t *testing.T) {
	breakdown, _ := testPipeline().Run(civicProfile(), realMarket(12000))

	want := []string{
		StageBaseSelection, StageSanityRule, StageTrim, StageMileage,
		StageFeatureBonus, StageTitleStatus, StageCondition, StageRegional,
	}
	if len(breakdown.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(breakdown.Steps))
	}
	for i, name := range want {
		if breakdown.Steps[i].Name != name {
			t.Errorf("step %d: got %s, want %s", i, breakdown.Steps[i].Name, name)
		}
	}
}

func TestPipeline_SkippedStagesContributeZero(t *testing.T) {
	profile := &types.VehicleProfile{
		Make: "Honda", Model: "Civic", Year: 2020,
		TitleStatus: types.TitleClean, Condition: types.ConditionGood,
	}
	breakdown, _ := testPipeline().Run(profile, types.MarketSnapshot{Source: types.SourceUnavailable})

	for _, step := range breakdown.Steps {
		if step.Skipped && step.AmountDelta != 0 {
			t.Errorf("skipped step %s carries delta %v", step.Name, step.AmountDelta)
		}
	}
	skipped := map[string]bool{}
	for _, step := range breakdown.Steps {
		if step.Skipped {
			skipped[step.Name] = true
		}
	}
	for _, name := range []string{StageTrim, StageMileage, StageFeatureBonus, StageRegional} {
		if !skipped[name] {
			t.Errorf("expected %s skipped for missing input", name)
		}
	}
}

func TestPipeline_TitleAndConditionAlwaysRecorded(t *testing.T) {
	profile := civicProfile()
	profile.TitleStatus = types.TitleSalvage
	profile.Condition = types.ConditionPoor

	breakdown, _ := testPipeline().Run(profile, realMarket(9000))
	var title, cond *types.AdjustmentStep
	for i := range breakdown.Steps {
		switch breakdown.Steps[i].Name {
		case StageTitleStatus:
			title = &breakdown.Steps[i]
		case StageCondition:
			cond = &breakdown.Steps[i]
		}
	}
	if title == nil || title.Percent != -50 {
		t.Errorf("expected salvage -50%%, got %+v", title)
	}
	if cond == nil || cond.Percent != -30 {
		t.Errorf("expected poor -30%%, got %+v", cond)
	}
}

func TestPipeline_FeatureBonusCapped(t *testing.T) {
	profile := civicProfile()
	profile.Features = []string{
		"Sunroof / Moonroof", "Leather Seats", "Backup Camera", "Alloy Wheels",
		"All-Wheel Drive", "Navigation System", "Heated Seats", "Tow Package",
	}

	breakdown, _ := testPipeline().Run(profile, realMarket(9000))
	for _, step := range breakdown.Steps {
		if step.Name == StageFeatureBonus {
			if step.Percent != maxFeatureBonus {
				t.Errorf("expected capped %v%%, got %v%%", maxFeatureBonus, step.Percent)
			}
			return
		}
	}
	t.Fatal("feature bonus step missing")
}

func TestPipeline_RegionalOnlyOnPatternMatch(t *testing.T) {
	p := NewPipeline(Config{SanityAgeYears: 10, CurrentYear: 2026, RegionPatterns: []string{"tx", "texas"}})

	profile := civicProfile()
	profile.SellerDeclared.Location = "Austin, TX"
	breakdown, _ := p.Run(profile, realMarket(9000))
	last := breakdown.Steps[len(breakdown.Steps)-1]
	if last.Name != StageRegional || last.Skipped {
		t.Errorf("expected live regional step last, got %+v", last)
	}
	if last.Percent != regionalPercent[bodySedan] {
		t.Errorf("expected sedan %v%%, got %v%%", regionalPercent[bodySedan], last.Percent)
	}

	profile.SellerDeclared.Location = "Portland, OR"
	breakdown, _ = p.Run(profile, realMarket(9000))
	last = breakdown.Steps[len(breakdown.Steps)-1]
	if !last.Skipped {
		t.Errorf("expected regional skipped outside pattern, got %+v", last)
	}
}

func TestPipeline_RegionalHighMileageExtra(t *testing.T) {
	p := NewPipeline(Config{SanityAgeYears: 10, CurrentYear: 2026, RegionPatterns: []string{"tx"}})
	profile := civicProfile()
	profile.Mileage = 180000
	profile.SellerDeclared.Location = "Houston, TX"

	breakdown, _ := p.Run(profile, realMarket(9000))
	last := breakdown.Steps[len(breakdown.Steps)-1]
	want := regionalPercent[bodySedan] + regionalHighMileageExtra
	if last.Percent != want {
		t.Errorf("expected %v%% with high-mileage extra, got %v%%", want, last.Percent)
	}
}

func TestPipeline_PureAndReplayable(t *testing.T) {
	profile := civicProfile()
	market := realMarket(12000)
	p := testPipeline()

	first, firstMarket := p.Run(profile, market)
	for i := 0; i < 5; i++ {
		again, againMarket := p.Run(profile, market)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("breakdown differs across replays:\n%s", diff)
		}
		if diff := cmp.Diff(firstMarket, againMarket); diff != "" {
			t.Fatalf("market result differs across replays:\n%s", diff)
		}
	}
}

func TestMileageStage_ReliabilityScaling(t *testing.T) {
	p := testPipeline()
	honda := civicProfile() // reliable make, 110k miles: -15% * 0.8
	breakdown, _ := p.Run(honda, realMarket(9000))
	for _, step := range breakdown.Steps {
		if step.Name == StageMileage {
			if step.Percent != -12 {
				t.Errorf("expected -12%% for reliable make, got %v%%", step.Percent)
			}
		}
	}

	dodge := civicProfile()
	dodge.Make = "Dodge"
	breakdown, _ = p.Run(dodge, realMarket(9000))
	for _, step := range breakdown.Steps {
		if step.Name == StageMileage {
			if step.Percent != -18.75 {
				t.Errorf("expected -18.75%% for fragile make, got %v%%", step.Percent)
			}
		}
	}
}
