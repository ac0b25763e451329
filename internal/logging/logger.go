package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init(environment string) {
	var handler slog.Handler
	if strings.ToLower(environment) == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger with request context fields attached.
// Use this for all logging within a chat request.
func WithRequest(requestID, conversationID string) *slog.Logger {
	logger := slog.With("request_id", requestID)
	if conversationID != "" {
		logger = logger.With("conversation_id", conversationID)
	}
	return logger
}

// WithUser returns a logger scoped to the authenticated user
func WithUser(logger *slog.Logger, userID string) *slog.Logger {
	return logger.With("user_id", userID)
}
