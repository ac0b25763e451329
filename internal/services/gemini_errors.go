package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrConfiguration is returned when the upstream credential is missing.
// No upstream call is attempted.
var ErrConfiguration = errors.New("GEMINI_API_KEY is not configured")

// UpstreamReason classifies why a completion could not be produced
type UpstreamReason string

const (
	ReasonHTTPStatus   UpstreamReason = "http_status"
	ReasonTransport    UpstreamReason = "transport"
	ReasonTimeout      UpstreamReason = "timeout"
	ReasonMalformed    UpstreamReason = "malformed_response"
	ReasonNoCandidates UpstreamReason = "no_candidates"
	ReasonEmptyText    UpstreamReason = "empty_text"
	ReasonRateLimited  UpstreamReason = "rate_limited"
)

// UpstreamError wraps any failure of the generateContent call. It is never
// retried by the service.
type UpstreamError struct {
	Reason     UpstreamReason
	StatusCode int    // HTTP status code if applicable
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Gemini API error [%d]: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Gemini API error: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// classifyHTTPError builds an UpstreamError for a non-success response
func classifyHTTPError(statusCode int, body string) *UpstreamError {
	reason := ReasonHTTPStatus
	if isQuotaError(statusCode, body) {
		reason = ReasonRateLimited
	}
	return &UpstreamError{
		Reason:     reason,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, truncateString(strings.TrimSpace(body), 200)),
	}
}

// isQuotaError detects if an error is related to quota exhaustion or rate limiting
func isQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	for _, pattern := range []string{
		"resource_exhausted",
		"quota exceeded",
		"rate limit",
		"too many requests",
	} {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}
	return false
}
