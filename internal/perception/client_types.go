package perception

import (
	"context"
	"time"

	"quickflip/internal/types"
)

const defaultSystemPrompt = "You are QuickFlip, a used-vehicle analysis assistant. Be concise. Ground answers only in the supplied photos and text. Never invent vehicle details you cannot see."

// LLMClient defines the text-generation surface the pipeline consumes.
// Satisfied by GeminiClient and by mocks in tests.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
}

// MultimodalClient extends LLMClient with photo input. The vision
// extractor requires this surface.
type MultimodalClient interface {
	LLMClient
	CompleteMultimodal(ctx context.Context, systemPrompt, userPrompt string, photos types.PhotoSet, jsonSchema string) (string, error)
}

// GeminiConfig holds configuration for the Gemini REST client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int // Maximum tokens in response (default 8192)
	MaxRetries      int
}

// GeminiContent represents content in the request.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content. Exactly one field is set.
type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inline_data,omitempty"`
}

// GeminiInlineData carries base64-encoded media bytes.
type GeminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// GeminiGenerationConfig represents generation parameters.
// Note: Gemini REST API uses snake_case for the structured-output fields.
type GeminiGenerationConfig struct {
	Temperature      float64                `json:"temperature,omitempty"`
	MaxOutputTokens  int                    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                 `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]interface{} `json:"response_schema,omitempty"`
}

// GeminiRequest represents the Gemini API request.
type GeminiRequest struct {
	Contents          []GeminiContent        `json:"contents"`
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiResponse represents the API response.
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiResponsePart `json:"parts"`
			Role  string               `json:"role"`
		} `json:"content"`
		FinishReason      string                   `json:"finishReason"`
		GroundingMetadata *GeminiGroundingMetadata `json:"groundingMetadata,omitempty"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GeminiResponsePart represents a part of the response content.
type GeminiResponsePart struct {
	Text string `json:"text,omitempty"`
}

// GeminiGroundingMetadata carries search-grounding attribution.
type GeminiGroundingMetadata struct {
	WebSearchQueries []string `json:"webSearchQueries,omitempty"`
	GroundingChunks  []struct {
		Web *struct {
			URI   string `json:"uri"`
			Title string `json:"title"`
		} `json:"web,omitempty"`
	} `json:"groundingChunks,omitempty"`
}
