package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"quickflip/internal/pricing"
	"quickflip/internal/reconcile"
	"quickflip/internal/types"
)

type stubVision struct {
	result *types.VisionResult
	err    error
	delay  time.Duration
}

func (s *stubVision) Extract(ctx context.Context, photos types.PhotoSet, seller types.SellerInput) (*types.VisionResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, types.Hard("vision", ctx.Err())
		}
	}
	return s.result, s.err
}

type stubMarket struct {
	snapshot types.MarketSnapshot
}

func (s *stubMarket) Snapshot(ctx context.Context, seller types.SellerInput) types.MarketSnapshot {
	return s.snapshot
}

type stubComposer struct{}

func (s *stubComposer) Compose(ctx context.Context, profile *types.VehicleProfile, tiers types.PricingTiers, platformIDs []string) []types.PlatformListing {
	listings := make([]types.PlatformListing, len(platformIDs))
	for i, id := range platformIDs {
		listings[i] = types.PlatformListing{PlatformID: id, Title: profile.ShortName(), Text: profile.ShortName()}
	}
	return listings
}

func goodVision() *types.VisionResult {
	return &types.VisionResult{
		Make:  types.StringFact{Value: "Honda", Confidence: 0.9},
		Model: types.StringFact{Value: "Civic", Confidence: 0.9},
		Year:  types.IntFact{Value: 2015, Confidence: 0.7},
		Features: map[types.Feature]types.FeatureObservation{
			types.FeatureAlloyWheels: {Present: true, Confidence: 0.8},
		},
	}
}

func realSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		AveragePrice: 9000, RangeLow: 8200, RangeHigh: 9900, SampleCount: 5,
		Source: types.SourceRealSearch, DemandLevel: types.DemandMedium, Trend: types.TrendStable,
	}
}

func testEngine(vision VisionSource, market MarketSource) *Engine {
	return New(vision, market,
		pricing.NewPipeline(pricing.Config{SanityAgeYears: 10, CurrentYear: 2026}),
		&stubComposer{}, reconcile.Reconcile, Options{})
}

func testRequest() Request {
	return Request{
		Photos: types.PhotoSet{{Data: []byte{1}, MIMEType: "image/jpeg"}},
		Seller: types.SellerInput{
			Make: "Honda", Model: "Civic", Year: 2015, Mileage: 110000,
			TitleStatus: types.TitleClean,
		},
		Platforms: []string{"facebook", "craigslist"},
	}
}

func TestEngine_Analyze(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := testEngine(&stubVision{result: goodVision()}, &stubMarket{snapshot: realSnapshot()})
	result, err := engine.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("missing run ID")
	}
	if result.Profile.Make != "Honda" || result.Profile.Mileage != 110000 {
		t.Errorf("unexpected profile: %+v", result.Profile)
	}
	if result.Breakdown.FinalPrice <= 0 {
		t.Errorf("expected positive final price, got %v", result.Breakdown.FinalPrice)
	}
	if len(result.Listings) != 2 {
		t.Errorf("expected 2 listings, got %d", len(result.Listings))
	}
	if result.FlipScore.Score < 0 || result.FlipScore.Score > 100 {
		t.Errorf("flip score out of range: %d", result.FlipScore.Score)
	}
	if result.Negotiation.Target != result.Tiers.MarketPrice.Price {
		t.Error("negotiation target must sit at the market tier")
	}
	if result.Negotiation.MinAcceptable >= result.Negotiation.Target {
		t.Error("negotiation floor must sit below target")
	}
}

func TestEngine_VisionFailureFailsRun(t *testing.T) {
	engine := testEngine(
		&stubVision{err: types.Hard("vision", types.ErrVisionUnavailable)},
		&stubMarket{snapshot: realSnapshot()})

	_, err := engine.Analyze(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected hard failure")
	}
	if !types.IsHardFailure(err) {
		t.Errorf("expected hard failure, got %v", err)
	}
}

func TestEngine_MarketFailureStillCompletes(t *testing.T) {
	engine := testEngine(&stubVision{result: goodVision()},
		&stubMarket{snapshot: types.MarketSnapshot{Source: types.SourceUnavailable}})

	result, err := engine.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Breakdown.Steps) != 8 {
		t.Errorf("expected full audit trail, got %d steps", len(result.Breakdown.Steps))
	}
	if result.Tiers.MarketPrice.Price <= 0 {
		t.Error("expected tiers despite missing market data")
	}
	if result.Market.Source != types.SourceUnavailable {
		t.Errorf("expected unavailable source, got %s", result.Market.Source)
	}
}

func TestEngine_NoPhotosRejected(t *testing.T) {
	engine := testEngine(&stubVision{result: goodVision()}, &stubMarket{snapshot: realSnapshot()})
	req := testRequest()
	req.Photos = nil

	_, err := engine.Analyze(context.Background(), req)
	if err == nil || !types.IsHardFailure(err) {
		t.Errorf("expected hard failure for empty photo set, got %v", err)
	}
}

func TestEngine_DefaultPlatforms(t *testing.T) {
	engine := testEngine(&stubVision{result: goodVision()}, &stubMarket{snapshot: realSnapshot()})
	req := testRequest()
	req.Platforms = nil

	result, err := engine.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.Listings) != 3 {
		t.Errorf("expected 3 default platform listings, got %d", len(result.Listings))
	}
}

// Two requests that differ only in platforms must agree on everything
// but the listings.
func TestEngine_PlatformsDoNotAffectAnalysis(t *testing.T) {
	engine := testEngine(&stubVision{result: goodVision()}, &stubMarket{snapshot: realSnapshot()})

	first, err := engine.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	req := testRequest()
	req.Platforms = []string{"ebay"}
	second, err := engine.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if diff := cmp.Diff(first.Profile, second.Profile); diff != "" {
		t.Errorf("profiles differ:\n%s", diff)
	}
	if diff := cmp.Diff(first.Breakdown, second.Breakdown); diff != "" {
		t.Errorf("breakdowns differ:\n%s", diff)
	}
	if diff := cmp.Diff(first.Tiers, second.Tiers); diff != "" {
		t.Errorf("tiers differ:\n%s", diff)
	}
	if len(second.Listings) != 1 || second.Listings[0].PlatformID != "ebay" {
		t.Errorf("unexpected listings: %+v", second.Listings)
	}
}

func TestEngine_VisionTimeoutCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := New(
		&stubVision{result: goodVision(), delay: 500 * time.Millisecond},
		&stubMarket{snapshot: realSnapshot()},
		pricing.NewPipeline(pricing.Config{SanityAgeYears: 10, CurrentYear: 2026}),
		&stubComposer{}, reconcile.Reconcile,
		Options{VisionTimeout: 20 * time.Millisecond})

	_, err := engine.Analyze(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected timeout to surface as an error")
	}
}

func TestEngine_NormalizesSellerInput(t *testing.T) {
	vision := &stubVision{result: goodVision()}
	engine := testEngine(vision, &stubMarket{snapshot: realSnapshot()})
	req := testRequest()
	req.Seller.TitleStatus = "Salvaged"
	req.Seller.Condition = "like new"

	result, err := engine.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Profile.TitleStatus != types.TitleSalvage {
		t.Errorf("expected salvage title, got %s", result.Profile.TitleStatus)
	}
	if result.Profile.Condition != types.ConditionExcellent {
		t.Errorf("expected excellent condition, got %s", result.Profile.Condition)
	}
}
