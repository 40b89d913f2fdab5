package market

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"quickflip/internal/logging"
)

// =============================================================================
// GOOGLE GENAI SEARCH-GROUNDED LOOKUP
// =============================================================================

// GenAISearcher performs grounded searches through the Gemini API with
// the GoogleSearch tool enabled.
type GenAISearcher struct {
	client *genai.Client
	model  string
}

// NewGenAISearcher creates a search-grounded Gemini searcher.
func NewGenAISearcher(ctx context.Context, apiKey, model string) (*GenAISearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAISearcher{client: client, model: model}, nil
}

// Search runs the query with Google Search grounding and returns the
// answer text plus the grounding source URLs.
func (s *GenAISearcher) Search(ctx context.Context, query string) (SearchResult, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(query), config)
	if err != nil {
		return SearchResult{}, fmt.Errorf("grounded search failed: %w", err)
	}
	if len(result.Candidates) == 0 {
		return SearchResult{}, fmt.Errorf("no candidates returned")
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return SearchResult{}, fmt.Errorf("empty answer returned")
	}

	var sources []string
	if gm := result.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				sources = append(sources, chunk.Web.URI)
			}
		}
		logging.MarketDebug("grounded answer: %d chars, %d source(s), queries=%v",
			len(text), len(sources), gm.WebSearchQueries)
	}

	return SearchResult{Text: text, Sources: sources}, nil
}
