// Package market looks up real comparable prices for a vehicle via
// search-grounded generation. Market data is best-effort: every failure
// degrades to an unavailable snapshot instead of failing the run.
package market

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// Plausibility bounds for extracted comparable prices. Anything outside
// is noise from the search text (phone numbers, VIN fragments, MSRPs of
// unrelated new models).
const (
	minPlausiblePrice = 1000
	maxPlausiblePrice = 300000
)

// SearchResult is the raw output of a grounded search call.
type SearchResult struct {
	Text    string
	Sources []string
}

// Searcher performs a grounded web search and returns the answer text
// plus attribution URLs. Implemented by GenAISearcher and by test mocks.
type Searcher interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

// Cache is the subset of the TTL cache the lookup needs.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
}

// Lookup turns seller-declared vehicle identity into a MarketSnapshot.
// Concurrent lookups for the same vehicle collapse into one search call.
type Lookup struct {
	searcher   Searcher
	cache      Cache
	group      singleflight.Group
	minSamples int
}

// NewLookup creates a market lookup. cache may be nil. minSamples below 1
// is raised to 1.
func NewLookup(searcher Searcher, cache Cache, minSamples int) *Lookup {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Lookup{searcher: searcher, cache: cache, minSamples: minSamples}
}

// Snapshot fetches market data for the declared vehicle. It never returns
// an error: any failure yields a snapshot with Source unavailable, which
// downstream stages treat as "price without market data".
func (l *Lookup) Snapshot(ctx context.Context, seller types.SellerInput) types.MarketSnapshot {
	key := cacheKey(seller)

	if l.cache != nil {
		if v, ok := l.cache.Get(key); ok {
			if snap, ok := v.(types.MarketSnapshot); ok {
				logging.Market("cache hit for %s", key)
				return snap
			}
		}
	}

	v, _, _ := l.group.Do(key, func() (interface{}, error) {
		snap := l.fetch(ctx, seller)
		// Only real results are worth caching; a transient outage should
		// not pin "unavailable" for the TTL window.
		if l.cache != nil && snap.Source == types.SourceRealSearch {
			l.cache.Set(key, snap)
		}
		return snap, nil
	})
	return v.(types.MarketSnapshot)
}

func (l *Lookup) fetch(ctx context.Context, seller types.SellerInput) types.MarketSnapshot {
	timer := logging.StartTimer(logging.CategoryMarket, "market lookup")
	defer timer.StopWithInfo()

	query := buildQuery(seller)
	logging.Market("searching: %s", query)

	result, err := l.searcher.Search(ctx, query)
	if err != nil {
		logging.MarketWarn("search failed, degrading to unavailable: %v", err)
		return unavailable(query)
	}

	prices := ExtractPrices(result.Text)
	logging.MarketDebug("extracted %d plausible price(s) from %d chars", len(prices), len(result.Text))
	if len(prices) < l.minSamples {
		logging.MarketWarn("only %d sample(s), need %d; degrading to unavailable", len(prices), l.minSamples)
		return unavailable(query)
	}

	var sum, low, high float64
	low = math.MaxFloat64
	for _, p := range prices {
		sum += p
		if p < low {
			low = p
		}
		if p > high {
			high = p
		}
	}
	avg := math.Round(sum / float64(len(prices)))

	snap := types.MarketSnapshot{
		AveragePrice: avg,
		RangeLow:     low,
		RangeHigh:    high,
		SampleCount:  len(prices),
		Source:       types.SourceRealSearch,
		DemandLevel:  demandFromSamples(len(prices)),
		Trend:        types.TrendStable,
		Query:        query,
		SourceURLs:   result.Sources,
	}
	logging.Market("snapshot: avg=%.0f range=[%.0f, %.0f] samples=%d demand=%s",
		snap.AveragePrice, snap.RangeLow, snap.RangeHigh, snap.SampleCount, snap.DemandLevel)
	return snap
}

func unavailable(query string) types.MarketSnapshot {
	return types.MarketSnapshot{
		Source:      types.SourceUnavailable,
		DemandLevel: types.DemandLow,
		Trend:       types.TrendStable,
		Query:       query,
	}
}

// demandFromSamples maps comparable-listing density to a coarse demand
// signal. Many live comps means the model moves.
func demandFromSamples(n int) types.DemandLevel {
	switch {
	case n >= 8:
		return types.DemandHigh
	case n >= 3:
		return types.DemandMedium
	default:
		return types.DemandLow
	}
}

// cacheKey covers every field buildQuery encodes, so two lookups share
// a snapshot only when they would issue the same search.
func cacheKey(seller types.SellerInput) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		strings.ToLower(strings.TrimSpace(seller.Make)),
		strings.ToLower(strings.TrimSpace(seller.Model)),
		strings.ToLower(strings.TrimSpace(seller.Trim)),
		seller.Year,
		seller.Mileage,
		strings.ToLower(strings.TrimSpace(seller.Location)))
}

func buildQuery(seller types.SellerInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "What are current asking prices for a used %d %s %s", seller.Year, seller.Make, seller.Model)
	if seller.Trim != "" {
		fmt.Fprintf(&b, " %s", seller.Trim)
	}
	if seller.Mileage > 0 {
		fmt.Fprintf(&b, " with around %d miles", seller.Mileage)
	}
	if seller.Location != "" {
		fmt.Fprintf(&b, " near %s", seller.Location)
	}
	b.WriteString("? List actual listing prices in dollars.")
	return b.String()
}

var priceRe = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d{4,6})(?:\.\d{2})?`)

// ExtractPrices pulls dollar amounts out of free search text, keeps the
// plausible ones, and trims outliers relative to the median.
func ExtractPrices(text string) []float64 {
	matches := priceRe.FindAllStringSubmatch(text, -1)
	prices := make([]float64, 0, len(matches))
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if v < minPlausiblePrice || v > maxPlausiblePrice {
			continue
		}
		prices = append(prices, v)
	}
	if len(prices) < 3 {
		return prices
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	kept := prices[:0]
	for _, p := range prices {
		if p >= median/4 && p <= median*4 {
			kept = append(kept, p)
		}
	}
	return kept
}
