package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"companion/internal/logging"
	"companion/internal/middleware"
	"companion/internal/models"
	"companion/internal/services"
	"companion/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GenericApology is the only user-facing error text, whatever the cause
const GenericApology = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// ChatHandler serves the companion chat endpoint
type ChatHandler struct {
	companion     *services.CompanionService
	metrics       *services.Metrics
	exposeDetails bool
}

// NewChatHandler creates a new chat handler
func NewChatHandler(companion *services.CompanionService, metrics *services.Metrics, exposeDetails bool) *ChatHandler {
	return &ChatHandler{
		companion:     companion,
		metrics:       metrics,
		exposeDetails: exposeDetails,
	}
}

// Preflight answers OPTIONS requests immediately with no body
func (h *ChatHandler) Preflight(c *fiber.Ctx) error {
	middleware.ApplyChatCORS(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Chat answers a user message with a personalized completion
// POST /api/chat
// Body: {"message": "...", "conversationId": "..."}
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	middleware.ApplyChatCORS(c)

	start := time.Now()
	requestID := uuid.NewString()
	c.Set("X-Request-ID", requestID)

	h.metrics.RecordChatRequest()
	defer func() {
		h.metrics.RecordChatLatency(time.Since(start).Seconds())
	}()

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		logger := logging.WithRequest(requestID, "")
		return h.fail(c, logger, fmt.Errorf("%w: invalid request body: %v", services.ErrInvalidInput, err))
	}

	logger := logging.WithRequest(requestID, req.ConversationID)

	// Fail fast on an empty message before any remote call
	if err := services.ValidateMessage(req.Message); err != nil {
		return h.fail(c, logger, err)
	}

	var token string
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		extracted, err := auth.ExtractToken(header)
		if err != nil {
			return h.fail(c, logger, fmt.Errorf("%w: %v", auth.ErrUnauthenticated, err))
		}
		token = extracted
	}

	reply, err := h.companion.Reply(c.UserContext(), token, req.Message)
	if err != nil {
		return h.fail(c, logger, err)
	}

	logging.WithUser(logger, reply.UserID).Info("chat completed",
		"has_context", reply.Summary.HasData,
		"response_chars", len(reply.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return c.JSON(models.ChatResponse{Response: reply.Text})
}

// fail writes the uniform error envelope
func (h *ChatHandler) fail(c *fiber.Ctx, logger *slog.Logger, err error) error {
	kind := classifyError(err)
	h.metrics.RecordChatError(kind)

	status := fiber.StatusInternalServerError
	if kind == "quota" {
		status = fiber.StatusTooManyRequests
	}

	if kind == "upstream" || kind == "internal" || kind == "configuration" {
		logger.Error("chat request failed", "error_type", kind, "error", err)
	} else {
		logger.Warn("chat request rejected", "error_type", kind, "error", err)
	}

	resp := models.ErrorResponse{Error: GenericApology}
	if h.exposeDetails {
		resp.Details = err.Error()
	}
	return c.Status(status).JSON(resp)
}

// classifyError maps a pipeline error to its error_type label
func classifyError(err error) string {
	var upstreamErr *services.UpstreamError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, services.ErrConfiguration):
		return "configuration"
	case errors.Is(err, services.ErrQuotaExceeded):
		return "quota"
	case errors.As(err, &upstreamErr):
		return "upstream"
	default:
		return "internal"
	}
}
