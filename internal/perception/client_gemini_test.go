package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quickflip/internal/types"
)

func geminiTextResponse(text string) string {
	return `{"candidates": [{"content": {"parts": [{"text": ` + mustJSON(text) + `}], "role": "model"}, "finishReason": "STOP"}], "usageMetadata": {"totalTokenCount": 10}}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestClient(serverURL string) *GeminiClient {
	return NewGeminiClientWithConfig(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "gemini-2.5-flash",
		Timeout: 5 * time.Second,
	})
}

func TestGeminiClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, geminiTextResponse("hello"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp != "hello" {
		t.Errorf("expected hello, got %q", resp)
	}
}

func TestGeminiClient_RetryOn429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, geminiTextResponse("after retry"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp != "after retry" {
		t.Errorf("expected retried response, got %q", resp)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestGeminiClient_MultimodalRequestShape(t *testing.T) {
	var captured GeminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("unparseable request body: %v", err)
		}
		io.WriteString(w, geminiTextResponse(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	photos := types.PhotoSet{{Data: []byte{1, 2, 3}, MIMEType: "image/png"}}
	_, err := client.CompleteMultimodal(context.Background(), "sys", "user", photos, `{"type": "object"}`)
	if err != nil {
		t.Fatalf("CompleteMultimodal failed: %v", err)
	}

	if len(captured.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(captured.Contents))
	}
	parts := captured.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected text + image parts, got %d", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" {
		t.Errorf("expected inline image/png part, got %+v", parts[1])
	}
	if captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("expected JSON response mime type, got %q", captured.GenerationConfig.ResponseMimeType)
	}
	if captured.GenerationConfig.ResponseSchema == nil {
		t.Error("expected response schema to be forwarded")
	}
}

func TestGeminiClient_APIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "bad field"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestGeminiClient_NoAPIKey(t *testing.T) {
	client := NewGeminiClient("")
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Error("expected error for missing API key")
	}
}

// One client is shared across the per-platform listing fan-out, so
// concurrent completions must not race on the grounding-source state.
// Run with -race to catch regressions.
func TestGeminiClient_ConcurrentCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": [{"content": {"parts": [{"text": "ok"}], "role": "model"}, "groundingMetadata": {"groundingChunks": [{"web": {"uri": "https://example.com/comp", "title": "comp"}}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Complete(context.Background(), "hi"); err != nil {
				errs <- err
			}
			client.GetLastGroundingSources()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Complete failed: %v", err)
	}

	sources := client.GetLastGroundingSources()
	if len(sources) != 1 || sources[0] != "https://example.com/comp" {
		t.Errorf("unexpected grounding sources after concurrent calls: %v", sources)
	}
}

func TestGeminiClient_GroundingSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": [{"content": {"parts": [{"text": "ok"}], "role": "model"}, "groundingMetadata": {"groundingChunks": [{"web": {"uri": "https://example.com/listing", "title": "listing"}}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Complete(context.Background(), "hi"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	sources := client.GetLastGroundingSources()
	if len(sources) != 1 || sources[0] != "https://example.com/listing" {
		t.Errorf("unexpected grounding sources: %v", sources)
	}
}
