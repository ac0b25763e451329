package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"companion/internal/config"

	"golang.org/x/time/rate"
)

// Safety categories blocked at BLOCK_MEDIUM_AND_ABOVE
var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

const safetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GeminiRequest is the generateContent request body
type GeminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// GeminiClient is the completion gateway to the Gemini generateContent API
type GeminiClient struct {
	cfg        config.GeminiConfig
	httpClient *http.Client
	limiter    *rate.Limiter // nil = unlimited
	metrics    *Metrics
}

// NewGeminiClient creates a gateway with fixed generation parameters
func NewGeminiClient(cfg config.GeminiConfig, metrics *Metrics) *GeminiClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		burst := int(cfg.RequestsPerSec * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
		metrics:    metrics,
	}
}

// Configured reports whether an API key is present
func (c *GeminiClient) Configured() bool {
	return c.cfg.APIKey != ""
}

// BuildRequest assembles the generateContent body for prompt
func (c *GeminiClient) BuildRequest(prompt string) GeminiRequest {
	safety := make([]geminiSafetySetting, 0, len(safetyCategories))
	for _, category := range safetyCategories {
		safety = append(safety, geminiSafetySetting{Category: category, Threshold: safetyThreshold})
	}

	return GeminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            c.cfg.TopK,
			TopP:            c.cfg.TopP,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
		SafetySettings: safety,
	}
}

// Generate sends prompt upstream and returns the completion text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrConfiguration
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	text, err := c.generate(ctx, prompt)
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		c.metrics.RecordUpstreamError(string(upstreamErr.Reason))
	}
	return text, err
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &UpstreamError{Reason: ReasonRateLimited, Message: "client-side rate limit wait aborted", Cause: err}
		}
	}

	body, err := json.Marshal(c.BuildRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.RecordUpstreamLatency(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &UpstreamError{Reason: ReasonTimeout, Message: "request timed out", Cause: err}
		}
		// Scrub the key from the *url.Error message
		return "", &UpstreamError{Reason: ReasonTransport, Message: redactKey(err.Error(), c.cfg.APIKey), Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &UpstreamError{Reason: ReasonTransport, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyHTTPError(resp.StatusCode, string(respBody))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &UpstreamError{Reason: ReasonMalformed, StatusCode: resp.StatusCode, Message: "invalid JSON in response", Cause: err}
	}

	return extractCompletion(parsed)
}

// extractCompletion distinguishes "no candidates" (prompt blocked) from
// "candidate without text" (generation stopped, e.g. SAFETY)
func extractCompletion(resp geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		msg := "no candidates returned"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg += " (prompt blocked: " + resp.PromptFeedback.BlockReason + ")"
		}
		return "", &UpstreamError{Reason: ReasonNoCandidates, Message: msg}
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		msg := "candidate contained no text"
		if candidate.FinishReason != "" {
			msg += " (finish reason: " + candidate.FinishReason + ")"
		}
		return "", &UpstreamError{Reason: ReasonEmptyText, Message: msg}
	}

	return text, nil
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(s, key, "REDACTED")
}
