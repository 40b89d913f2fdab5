// Package analysis orchestrates one QuickFlip run: concurrent vision and
// market calls, reconciliation, the pricing pipeline, scoring, and
// listing composition, assembled into a single AnalysisResult.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quickflip/internal/logging"
	"quickflip/internal/pricing"
	"quickflip/internal/score"
	"quickflip/internal/types"
)

// VisionSource extracts structured facts from photos. Hard dependency:
// its failure fails the run.
type VisionSource interface {
	Extract(ctx context.Context, photos types.PhotoSet, seller types.SellerInput) (*types.VisionResult, error)
}

// MarketSource fetches a market snapshot. Soft dependency: it degrades,
// never errors.
type MarketSource interface {
	Snapshot(ctx context.Context, seller types.SellerInput) types.MarketSnapshot
}

// ListingSource composes per-platform listings.
type ListingSource interface {
	Compose(ctx context.Context, profile *types.VehicleProfile, tiers types.PricingTiers, platformIDs []string) []types.PlatformListing
}

// Options carries the engine's runtime knobs. Each external call gets its
// own timeout, strictly shorter than the caller's request budget, so one
// stalled call cannot exhaust the run.
type Options struct {
	VisionTimeout  time.Duration
	MarketTimeout  time.Duration
	ListingTimeout time.Duration

	// NegotiationMarginPercent is the half-width of the negotiation band
	// around the market-price tier.
	NegotiationMarginPercent float64

	// DefaultPlatforms is used when a request names none.
	DefaultPlatforms []string
}

func (o *Options) fillDefaults() {
	if o.VisionTimeout <= 0 {
		o.VisionTimeout = 60 * time.Second
	}
	if o.MarketTimeout <= 0 {
		o.MarketTimeout = 45 * time.Second
	}
	if o.ListingTimeout <= 0 {
		o.ListingTimeout = 45 * time.Second
	}
	if o.NegotiationMarginPercent <= 0 {
		o.NegotiationMarginPercent = 5
	}
	if len(o.DefaultPlatforms) == 0 {
		o.DefaultPlatforms = []string{"facebook", "craigslist", "offerup"}
	}
}

// Request is one analysis run's input.
type Request struct {
	Photos    types.PhotoSet
	Seller    types.SellerInput
	Platforms []string
}

// Engine wires the pipeline stages together. Stateless across runs.
type Engine struct {
	vision    VisionSource
	market    MarketSource
	pipeline  *pricing.Pipeline
	composer  ListingSource
	reconcile func(*types.VisionResult, types.SellerInput) types.VehicleProfile
	opts      Options
}

// New creates an analysis engine.
func New(vision VisionSource, market MarketSource, pipeline *pricing.Pipeline, composer ListingSource, reconcile func(*types.VisionResult, types.SellerInput) types.VehicleProfile, opts Options) *Engine {
	opts.fillDefaults()
	return &Engine{
		vision:    vision,
		market:    market,
		pipeline:  pipeline,
		composer:  composer,
		reconcile: reconcile,
		opts:      opts,
	}
}

// Analyze runs the whole pipeline for one request. The only error it can
// return is a hard failure (invalid input or vision); everything else is
// absorbed into the result.
func (e *Engine) Analyze(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	runID := uuid.NewString()
	rl := logging.WithRequestID(logging.CategoryBoot, runID)
	rl.Info("analysis start: %s %s %d, %d photo(s)", req.Seller.Make, req.Seller.Model, req.Seller.Year, len(req.Photos))
	start := time.Now()

	if len(req.Photos) == 0 {
		return nil, types.Hard("input", fmt.Errorf("at least one photo is required"))
	}
	seller := normalizeSeller(req.Seller)

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = e.opts.DefaultPlatforms
	}

	// Vision and market run concurrently. Vision is the hard dependency;
	// when it fails the group cancels the market call, whose result no
	// longer matters.
	var visionResult *types.VisionResult
	var snapshot types.MarketSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vctx, cancel := context.WithTimeout(gctx, e.opts.VisionTimeout)
		defer cancel()
		var err error
		visionResult, err = e.vision.Extract(vctx, req.Photos, seller)
		return err
	})
	g.Go(func() error {
		mctx, cancel := context.WithTimeout(gctx, e.opts.MarketTimeout)
		defer cancel()
		snapshot = e.market.Snapshot(mctx, seller)
		return nil
	})
	if err := g.Wait(); err != nil {
		rl.Error("analysis failed: %v", err)
		return nil, err
	}

	profile := e.reconcile(visionResult, seller)

	breakdown, snapshot := e.pipeline.Run(&profile, snapshot)
	tiers := score.Tiers(breakdown.FinalPrice)
	flip := score.Flip(&profile, snapshot)

	lctx, cancel := context.WithTimeout(ctx, e.opts.ListingTimeout)
	defer cancel()
	listings := e.composer.Compose(lctx, &profile, tiers, platforms)

	result := &types.AnalysisResult{
		RunID:       runID,
		Profile:     profile,
		Market:      snapshot,
		Breakdown:   breakdown,
		Tiers:       tiers,
		FlipScore:   flip,
		Listings:    listings,
		Negotiation: negotiationBand(tiers, e.opts.NegotiationMarginPercent),
	}
	rl.Info("analysis complete in %v: final=%.0f score=%d listings=%d",
		time.Since(start), breakdown.FinalPrice, flip.Score, len(listings))
	return result, nil
}

// normalizeSeller fills typed defaults for free-form fields.
func normalizeSeller(s types.SellerInput) types.SellerInput {
	s.TitleStatus = types.ParseTitleStatus(string(s.TitleStatus))
	if s.Condition == "" {
		s.Condition = types.ConditionGood
	} else {
		s.Condition = types.ParseCondition(string(s.Condition))
	}
	return s
}

// negotiationBand frames the seller's room to move: target at the market
// tier, floor one margin below it.
func negotiationBand(tiers types.PricingTiers, marginPercent float64) types.NegotiationBand {
	target := tiers.MarketPrice.Price
	return types.NegotiationBand{
		Target:        target,
		MinAcceptable: math.Round(target * (1 - marginPercent/100)),
		Margin:        marginPercent,
	}
}
