package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quickflip/internal/analysis"
	"quickflip/internal/cache"
	"quickflip/internal/listing"
	"quickflip/internal/market"
	"quickflip/internal/perception"
	"quickflip/internal/pricing"
	"quickflip/internal/reconcile"
	"quickflip/internal/types"
)

var (
	photoPaths   []string
	platformIDs  []string
	sellerMake   string
	sellerModel  string
	sellerTrim   string
	sellerYear   int
	sellerMiles  int
	askingPrice  float64
	titleStatus  string
	condition    string
	description  string
	vin          string
	location     string
	outputPretty bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a vehicle from photos and seller facts",
	Long: `Runs the full analysis pipeline and prints the result as JSON:
reconciled profile, market snapshot, audited price breakdown, pricing
tiers, flip score, and per-platform listings.

Example:
  quickflip analyze --photo front.jpg --photo interior.jpg \
    --make Honda --model Civic --year 2015 --mileage 110000 \
    --title clean --platform facebook --platform craigslist`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringArrayVar(&photoPaths, "photo", nil, "photo file (repeatable, required)")
	f.StringArrayVar(&platformIDs, "platform", nil, "target platform: facebook, craigslist, offerup, ebay (repeatable)")
	f.StringVar(&sellerMake, "make", "", "vehicle make")
	f.StringVar(&sellerModel, "model", "", "vehicle model")
	f.StringVar(&sellerTrim, "trim", "", "vehicle trim")
	f.IntVar(&sellerYear, "year", 0, "model year")
	f.IntVar(&sellerMiles, "mileage", 0, "odometer miles")
	f.Float64Var(&askingPrice, "asking-price", 0, "seller's asking price")
	f.StringVar(&titleStatus, "title", "clean", "title status: clean, rebuilt, salvage, junk, parts")
	f.StringVar(&condition, "condition", "", "condition: excellent, good, fair, poor")
	f.StringVar(&description, "description", "", "seller's free-text description")
	f.StringVar(&vin, "vin", "", "VIN")
	f.StringVar(&location, "location", "", "seller location, e.g. \"Austin, TX\"")
	f.BoolVar(&outputPretty, "pretty", true, "indent the JSON output")
	_ = analyzeCmd.MarkFlagRequired("photo")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestBudget(cfg))
	defer cancel()

	photos, err := loadPhotos(photoPaths)
	if err != nil {
		return err
	}

	engine, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	seller := types.SellerInput{
		Make:        sellerMake,
		Model:       sellerModel,
		Trim:        sellerTrim,
		Year:        sellerYear,
		Mileage:     sellerMiles,
		AskingPrice: askingPrice,
		TitleStatus: types.TitleStatus(titleStatus),
		Condition:   types.Condition(condition),
		Description: description,
		VIN:         vin,
		Location:    location,
	}

	logger.Info("starting analysis",
		zap.String("make", seller.Make),
		zap.String("model", seller.Model),
		zap.Int("year", seller.Year),
		zap.Int("photos", len(photos)))

	result, err := engine.Analyze(ctx, analysis.Request{
		Photos:    photos,
		Seller:    seller,
		Platforms: platformIDs,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if outputPretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

// buildEngine wires the production adapters together from config.
func buildEngine(ctx context.Context) (*analysis.Engine, error) {
	visionClient := perception.NewGeminiClientWithConfig(perception.GeminiConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.VisionModel,
		Timeout:    cfg.GetLLMTimeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	})
	textClient := perception.NewGeminiClientWithConfig(perception.GeminiConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.TextModel,
		Timeout:    cfg.GetLLMTimeout(),
		MaxRetries: cfg.LLM.MaxRetries,
	})

	searcher, err := market.NewGenAISearcher(ctx, cfg.LLM.APIKey, cfg.Market.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to build market searcher: %w", err)
	}
	lookup := market.NewLookup(searcher, cache.New(cfg.GetMarketCacheTTL()), cfg.Market.MinSamples)

	pipeline := pricing.NewPipeline(pricing.Config{
		SanityAgeYears: cfg.Pricing.SanityAgeYears,
		RegionPatterns: cfg.Pricing.RegionPatterns,
	})

	return analysis.New(
		perception.NewVisionExtractor(visionClient),
		lookup,
		pipeline,
		listing.NewComposer(textClient),
		reconcile.Reconcile,
		analysis.Options{
			VisionTimeout:            cfg.GetLLMTimeout(),
			MarketTimeout:            cfg.GetMarketTimeout(),
			ListingTimeout:           cfg.GetListingTimeout(),
			NegotiationMarginPercent: cfg.Pricing.NegotiationMarginPercent,
			DefaultPlatforms:         cfg.Listing.Platforms,
		},
	), nil
}

func loadPhotos(paths []string) (types.PhotoSet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --photo is required")
	}
	photos := make(types.PhotoSet, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read photo %s: %w", path, err)
		}
		photos = append(photos, types.Photo{Data: data, MIMEType: mimeForPath(path)})
	}
	return photos, nil
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
