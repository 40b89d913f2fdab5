// Package listing turns the reconciled profile and pricing tiers into
// per-platform marketplace listing text. Generation is parallel per
// platform; a failed platform degrades to a templated fallback instead
// of failing the request.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"quickflip/internal/logging"
	"quickflip/internal/perception"
	"quickflip/internal/types"
)

const composerSystemPrompt = `You write used-vehicle marketplace listings. Use only the facts provided; never invent options, history, or condition claims. Every listed feature must appear verbatim in the listing body.`

const listingSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "body": {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["title", "body"]
}`

type listingWire struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Keywords []string `json:"keywords"`
}

// Composer generates platform listings through a text-generation client.
type Composer struct {
	client perception.LLMClient
}

// NewComposer creates a listing composer.
func NewComposer(client perception.LLMClient) *Composer {
	return &Composer{client: client}
}

// Compose generates one listing per requested platform, in the order
// requested. Each platform runs independently: all inputs are immutable
// and every goroutine writes only its own slot, so no locking is needed.
func (c *Composer) Compose(ctx context.Context, profile *types.VehicleProfile, tiers types.PricingTiers, platformIDs []string) []types.PlatformListing {
	timer := logging.StartTimer(logging.CategoryListing, "listing composition")
	defer timer.StopWithInfo()

	listings := make([]types.PlatformListing, len(platformIDs))
	var g errgroup.Group
	for i, id := range platformIDs {
		g.Go(func() error {
			listings[i] = c.composeOne(ctx, profile, tiers, ResolvePlatform(id))
			return nil
		})
	}
	g.Wait()
	return listings
}

func (c *Composer) composeOne(ctx context.Context, profile *types.VehicleProfile, tiers types.PricingTiers, platform Platform) types.PlatformListing {
	raw, err := c.client.CompleteWithSchema(ctx, composerSystemPrompt, buildListingPrompt(profile, tiers, platform), listingSchema)
	if err != nil {
		logging.ListingError("[%s] generation failed, using fallback: %v", platform.ID, err)
		return fallbackListing(profile, tiers, platform)
	}

	var wire listingWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil || strings.TrimSpace(wire.Body) == "" {
		logging.ListingError("[%s] unusable generation output, using fallback: %v", platform.ID, err)
		return fallbackListing(profile, tiers, platform)
	}

	result := types.PlatformListing{
		PlatformID: platform.ID,
		Title:      strings.TrimSpace(wire.Title),
		Text:       strings.TrimSpace(wire.Body),
		Keywords:   cleanKeywords(wire.Keywords),
	}
	Repair(&result, profile)
	logging.Listing("[%s] listing ready: %d chars, %d keyword(s)", platform.ID, len(result.Text), len(result.Keywords))
	return result
}

func buildListingPrompt(profile *types.VehicleProfile, tiers types.PricingTiers, platform Platform) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a listing for %s.\n\n", platform.Name)
	fmt.Fprintf(&b, "Platform style: %s\n\n", platform.Style)
	fmt.Fprintf(&b, "Vehicle: %s\n", profile.ShortName())
	if profile.Trim != "" && !strings.EqualFold(profile.Trim, "unknown") {
		fmt.Fprintf(&b, "Trim: %s\n", profile.Trim)
	}
	if profile.Mileage > 0 {
		fmt.Fprintf(&b, "Mileage: %d miles\n", profile.Mileage)
	}
	fmt.Fprintf(&b, "Title status: %s\n", profile.TitleStatus)
	fmt.Fprintf(&b, "Condition: %s\n", profile.Condition)
	fmt.Fprintf(&b, "Asking price: $%.0f\n", tiers.MarketPrice.Price)

	if len(profile.Features) > 0 {
		b.WriteString("\nFeatures (every one MUST appear in the body):\n")
		for _, f := range profile.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(profile.ConditionNotes) > 0 {
		b.WriteString("\nKnown condition notes (disclose honestly):\n")
		for _, n := range profile.ConditionNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

// fallbackListing is the minimal templated listing used when generation
// fails. It still carries every detected feature.
func fallbackListing(profile *types.VehicleProfile, tiers types.PricingTiers, platform Platform) types.PlatformListing {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for sale - $%.0f\n", profile.ShortName(), tiers.MarketPrice.Price)
	if profile.Mileage > 0 {
		fmt.Fprintf(&b, "%s miles. ", formatMiles(profile.Mileage))
	}
	fmt.Fprintf(&b, "%s title, %s condition.\n", profile.TitleStatus, profile.Condition)

	result := types.PlatformListing{
		PlatformID: platform.ID,
		Title:      profile.ShortName(),
		Text:       strings.TrimSpace(b.String()),
		Keywords:   fallbackKeywords(profile),
		Fallback:   true,
	}
	Repair(&result, profile)
	return result
}

func fallbackKeywords(profile *types.VehicleProfile) []string {
	kw := []string{}
	if profile.Make != "" && profile.Make != "Unknown" {
		kw = append(kw, strings.ToLower(profile.Make))
	}
	if profile.Model != "" && profile.Model != "Unknown" {
		kw = append(kw, strings.ToLower(profile.Model))
	}
	if profile.Year > 0 {
		kw = append(kw, strconv.Itoa(profile.Year))
	}
	return append(kw, "used car")
}

func cleanKeywords(raw []string) []string {
	kw := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	return kw
}

func formatMiles(miles int) string {
	s := strconv.Itoa(miles)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
