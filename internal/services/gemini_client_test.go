package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"companion/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testGeminiConfig(baseURL string) config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		Model:           "gemini-1.5-flash",
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		Timeout:         5 * time.Second,
	}
}

func TestGeminiClient_BuildRequest(t *testing.T) {
	client := NewGeminiClient(testGeminiConfig("http://unused"), nil)

	req := client.BuildRequest("hello")

	if len(req.Contents) != 1 || req.Contents[0].Role != "user" || req.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("Unexpected contents: %+v", req.Contents)
	}
	if req.GenerationConfig.TopK != 40 || req.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("Unexpected generation config: %+v", req.GenerationConfig)
	}
	if len(req.SafetySettings) != 4 {
		t.Fatalf("Expected 4 safety settings, got %d", len(req.SafetySettings))
	}
	for _, s := range req.SafetySettings {
		if s.Threshold != "BLOCK_MEDIUM_AND_ABOVE" {
			t.Errorf("Unexpected threshold %s for %s", s.Threshold, s.Category)
		}
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(testGeminiConfig(server.URL), nil)

	text, err := client.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Hello there" {
		t.Errorf("Expected concatenated parts, got %q", text)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected API key in query, got %q", gotKey)
	}
	if _, ok := gotBody["safetySettings"]; !ok {
		t.Error("Expected safetySettings in request body")
	}
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	cfg := testGeminiConfig(server.URL)
	cfg.APIKey = ""
	client := NewGeminiClient(cfg, nil)

	if _, err := client.Generate(context.Background(), "hi"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("Expected no upstream call without an API key")
	}
}

func TestGeminiClient_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason UpstreamReason
		wantText   string
	}{
		{
			name:       "service unavailable",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":{"code":503,"message":"overloaded"}}`,
			wantReason: ReasonHTTPStatus,
			wantText:   "503",
		},
		{
			name:       "quota",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`,
			wantReason: ReasonRateLimited,
			wantText:   "429",
		},
		{
			name:       "prompt blocked",
			status:     http.StatusOK,
			body:       `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantReason: ReasonNoCandidates,
			wantText:   "prompt blocked: SAFETY",
		},
		{
			name:       "empty candidate",
			status:     http.StatusOK,
			body:       `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`,
			wantReason: ReasonEmptyText,
			wantText:   "finish reason: SAFETY",
		},
		{
			name:       "malformed",
			status:     http.StatusOK,
			body:       `not json`,
			wantReason: ReasonMalformed,
			wantText:   "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			metrics := NewMetrics(prometheus.NewRegistry())
			client := NewGeminiClient(testGeminiConfig(server.URL), metrics)

			_, err := client.Generate(context.Background(), "hi")

			var upstreamErr *UpstreamError
			if !errors.As(err, &upstreamErr) {
				t.Fatalf("Expected UpstreamError, got %v", err)
			}
			if upstreamErr.Reason != tt.wantReason {
				t.Errorf("Expected reason %s, got %s", tt.wantReason, upstreamErr.Reason)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Expected %q in %q", tt.wantText, err.Error())
			}
			if got := testutil.ToFloat64(metrics.UpstreamErrors.WithLabelValues(string(tt.wantReason))); got != 1 {
				t.Errorf("Expected 1 upstream error recorded, got %v", got)
			}
		})
	}
}

func TestGeminiClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testGeminiConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewGeminiClient(cfg, nil)

	_, err := client.Generate(context.Background(), "hi")

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) || upstreamErr.Reason != ReasonTimeout {
		t.Fatalf("Expected timeout UpstreamError, got %v", err)
	}
}

func TestRedactKey(t *testing.T) {
	got := redactKey(`Post "https://x/models/m:generateContent?key=secret": dial tcp`, "secret")
	if strings.Contains(got, "secret") {
		t.Errorf("Expected key to be redacted, got %q", got)
	}
}
