// Package perception talks to the image-understanding service. It turns
// seller photos into a structured VisionResult, validating the response
// strictly: a malformed answer fails the whole run rather than feeding
// guesses downstream.
package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

const visionSystemPrompt = `You are a used-vehicle photo analyst. Examine the supplied photos and report only what is visually evidenced. Seller-provided details are hints for disambiguation, not ground truth: your confidence scores must reflect the photographic evidence alone. Report confidence 0 for anything you cannot see.`

// visionWire is the exact shape the extraction schema enforces.
type visionWire struct {
	Make       types.StringFact `json:"make"`
	Model      types.StringFact `json:"model"`
	Trim       types.StringFact `json:"trim"`
	Drivetrain types.StringFact `json:"drivetrain"`
	Color      types.StringFact `json:"color"`
	Material   types.StringFact `json:"material"`
	Condition  types.StringFact `json:"condition"`
	Year       types.IntFact    `json:"year"`
	Mileage    types.IntFact    `json:"mileage"`

	Features []struct {
		Name       string  `json:"name"`
		Present    bool    `json:"present"`
		Confidence float64 `json:"confidence"`
	} `json:"features"`
	ConditionNotes []types.ConditionNote `json:"condition_notes"`
	BadgeTokens    []string              `json:"badge_tokens"`
}

// VisionExtractor adapts a multimodal LLM into the vehicle fact source.
type VisionExtractor struct {
	client MultimodalClient
}

// NewVisionExtractor creates a vision extractor over the given client.
func NewVisionExtractor(client MultimodalClient) *VisionExtractor {
	return &VisionExtractor{client: client}
}

// Extract analyzes the photos and returns validated vehicle observations.
// Any failure here is a hard failure: without trusted visual facts the
// rest of the pipeline would price a guess.
func (e *VisionExtractor) Extract(ctx context.Context, photos types.PhotoSet, seller types.SellerInput) (*types.VisionResult, error) {
	if len(photos) == 0 {
		return nil, types.Hard("vision", fmt.Errorf("at least one photo is required"))
	}

	timer := logging.StartTimer(logging.CategoryVision, "vision extraction")
	defer timer.StopWithInfo()

	logging.Vision("extracting from %d photo(s) for %s %s", len(photos), seller.Make, seller.Model)

	raw, err := e.client.CompleteMultimodal(ctx, visionSystemPrompt, buildVisionPrompt(seller), photos, visionSchema)
	if err != nil {
		logging.VisionError("extraction call failed: %v", err)
		return nil, types.Hard("vision", fmt.Errorf("%w: %v", types.ErrVisionUnavailable, err))
	}

	var wire visionWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logging.VisionError("unparseable response: %v", err)
		return nil, types.Hard("vision", fmt.Errorf("%w: %v", types.ErrVisionSchema, err))
	}

	result, err := wire.toResult()
	if err != nil {
		logging.VisionError("response rejected: %v", err)
		return nil, types.Hard("vision", fmt.Errorf("%w: %v", types.ErrVisionSchema, err))
	}

	logging.Vision("extraction ok: make=%q(%.2f) model=%q(%.2f) features=%d badges=%d",
		result.Make.Value, result.Make.Confidence,
		result.Model.Value, result.Model.Confidence,
		len(result.Features), len(result.BadgeTokens))
	return result, nil
}

// buildVisionPrompt lists the seller's claims as disambiguation hints.
func buildVisionPrompt(seller types.SellerInput) string {
	var b strings.Builder
	b.WriteString("Analyze these vehicle photos and fill in the structured report.\n\n")
	b.WriteString("Seller claims (hints only, verify against the photos):\n")
	if seller.Make != "" {
		fmt.Fprintf(&b, "- Make: %s\n", seller.Make)
	}
	if seller.Model != "" {
		fmt.Fprintf(&b, "- Model: %s\n", seller.Model)
	}
	if seller.Trim != "" {
		fmt.Fprintf(&b, "- Trim: %s\n", seller.Trim)
	}
	if seller.Year > 0 {
		fmt.Fprintf(&b, "- Year: %d\n", seller.Year)
	}
	if seller.Mileage > 0 {
		fmt.Fprintf(&b, "- Mileage: %d miles\n", seller.Mileage)
	}
	if seller.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", seller.Description)
	}

	b.WriteString("\nFor the features array, report every one of these catalog names exactly once:\n")
	for _, f := range types.FeatureCatalog {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nAlso transcribe any visible badge or emblem text into badge_tokens (e.g. \"EX-L\", \"4MATIC\", \"Sport\").")
	return b.String()
}

// toResult validates the wire payload and converts it to the domain type.
func (w *visionWire) toResult() (*types.VisionResult, error) {
	facts := map[string]float64{
		"make":       w.Make.Confidence,
		"model":      w.Model.Confidence,
		"trim":       w.Trim.Confidence,
		"drivetrain": w.Drivetrain.Confidence,
		"color":      w.Color.Confidence,
		"material":   w.Material.Confidence,
		"condition":  w.Condition.Confidence,
		"year":       w.Year.Confidence,
		"mileage":    w.Mileage.Confidence,
	}
	for field, conf := range facts {
		if conf < 0 || conf > 1 {
			return nil, fmt.Errorf("field %s: confidence %v out of [0,1]", field, conf)
		}
	}

	currentYear := time.Now().Year()
	if w.Year.Value != 0 && (w.Year.Value < 1950 || w.Year.Value > currentYear+1) {
		return nil, fmt.Errorf("implausible year %d", w.Year.Value)
	}
	if w.Mileage.Value < 0 {
		return nil, fmt.Errorf("negative mileage %d", w.Mileage.Value)
	}

	features := make(map[types.Feature]types.FeatureObservation, len(w.Features))
	for _, f := range w.Features {
		name := types.Feature(strings.ToLower(strings.TrimSpace(f.Name)))
		if !name.Valid() {
			return nil, fmt.Errorf("unknown feature token %q", f.Name)
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			return nil, fmt.Errorf("feature %s: confidence %v out of [0,1]", name, f.Confidence)
		}
		features[name] = types.FeatureObservation{Present: f.Present, Confidence: f.Confidence}
	}

	notes := make([]types.ConditionNote, 0, len(w.ConditionNotes))
	for _, n := range w.ConditionNotes {
		if strings.TrimSpace(n.Note) == "" {
			continue
		}
		if n.Confidence < 0 || n.Confidence > 1 {
			return nil, fmt.Errorf("condition note: confidence %v out of [0,1]", n.Confidence)
		}
		notes = append(notes, n)
	}

	badges := make([]string, 0, len(w.BadgeTokens))
	for _, t := range w.BadgeTokens {
		if t = strings.TrimSpace(t); t != "" {
			badges = append(badges, t)
		}
	}

	return &types.VisionResult{
		Make:           w.Make,
		Model:          w.Model,
		Trim:           w.Trim,
		Drivetrain:     w.Drivetrain,
		Color:          w.Color,
		Material:       w.Material,
		Condition:      w.Condition,
		Year:           w.Year,
		Mileage:        w.Mileage,
		Features:       features,
		ConditionNotes: notes,
		BadgeTokens:    badges,
	}, nil
}
