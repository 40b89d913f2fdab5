package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// GeminiClient implements MultimodalClient against the Gemini REST API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	maxRetries      int
	httpClient      *http.Client
	// mu guards lastRequest (rate limiting) and lastGroundingSources.
	// One client is shared by concurrent callers, e.g. the per-platform
	// listing fan-out.
	mu          sync.Mutex
	lastRequest time.Time

	// Grounding sources from last response (for transparency)
	lastGroundingSources []string
}

// DefaultGeminiConfig returns sensible defaults for vision and text work.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.5-flash",
		Timeout:         60 * time.Second,
		MaxOutputTokens: 8192,
		MaxRetries:      3,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 8192
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		maxRetries:      maxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetLastGroundingSources returns the grounding source URLs from the last
// response, if the model grounded its answer.
func (c *GeminiClient) GetLastGroundingSources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lastGroundingSources...)
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	parts := []GeminiPart{{Text: userPrompt}}
	return c.generate(ctx, "CompleteWithSystem", systemPrompt, parts, nil)
}

// CompleteWithSchema sends a prompt and enforces a JSON schema on the
// response via generationConfig.response_schema.
func (c *GeminiClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	schema, err := parseSchema(jsonSchema)
	if err != nil {
		return "", err
	}
	parts := []GeminiPart{{Text: userPrompt}}
	return c.generate(ctx, "CompleteWithSchema", systemPrompt, parts, schema)
}

// CompleteMultimodal sends a prompt plus inline photos. A non-empty
// jsonSchema enforces structured output.
func (c *GeminiClient) CompleteMultimodal(ctx context.Context, systemPrompt, userPrompt string, photos types.PhotoSet, jsonSchema string) (string, error) {
	var schema map[string]interface{}
	if strings.TrimSpace(jsonSchema) != "" {
		var err error
		schema, err = parseSchema(jsonSchema)
		if err != nil {
			return "", err
		}
	}

	parts := make([]GeminiPart, 0, len(photos)+1)
	parts = append(parts, GeminiPart{Text: userPrompt})
	for _, photo := range photos {
		mime := photo.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, GeminiPart{
			InlineData: &GeminiInlineData{
				MIMEType: mime,
				Data:     base64.StdEncoding.EncodeToString(photo.Data),
			},
		})
	}
	return c.generate(ctx, "CompleteMultimodal", systemPrompt, parts, schema)
}

func parseSchema(jsonSchema string) (map[string]interface{}, error) {
	schemaText := strings.TrimSpace(jsonSchema)
	if schemaText == "" {
		return nil, fmt.Errorf("json schema is empty")
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaText), &schema); err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return schema, nil
}

// generate is the shared request path: rate limiting, retry on 429, and
// candidate text assembly.
func (c *GeminiClient) generate(ctx context.Context, op, systemPrompt string, parts []GeminiPart, schema map[string]interface{}) (string, error) {
	// Auto-apply timeout if context has no deadline (centralized timeout handling)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] %s: model=%s parts=%d schema=%v", op, c.model, len(parts), schema != nil)

	if c.apiKey == "" {
		logging.APIError("[Gemini] %s: API key not configured", op)
		return "", fmt.Errorf("API key not configured")
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{
				Role:  "user",
				Parts: parts,
			},
		},
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     0.2,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if schema != nil {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
		reqBody.GenerationConfig.ResponseSchema = schema
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for rate limits and transient transport errors
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp GeminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}

		if geminiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}

		if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, part := range geminiResp.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
		response := strings.TrimSpace(result.String())

		// Extract and store grounding sources for transparency
		var sources []string
		if gm := geminiResp.Candidates[0].GroundingMetadata; gm != nil {
			for _, chunk := range gm.GroundingChunks {
				if chunk.Web != nil && chunk.Web.URI != "" {
					sources = append(sources, chunk.Web.URI)
				}
			}
			if len(sources) > 0 {
				logging.APIDebug("[Gemini] %s: grounding sources=%d queries=%v",
					op, len(sources), gm.WebSearchQueries)
			}
		}
		c.mu.Lock()
		c.lastGroundingSources = sources
		c.mu.Unlock()

		logging.API("[Gemini] %s: completed in %v response_len=%d tokens=%d",
			op, time.Since(startTime), len(response), geminiResp.UsageMetadata.TotalTokenCount)
		return response, nil
	}

	logging.APIError("[Gemini] %s: max retries exceeded after %v: %v", op, time.Since(startTime), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
