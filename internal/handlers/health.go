package handlers

import (
	"context"
	"time"

	"companion/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store      services.HistoryStore
	gemini     *services.GeminiClient
	quotaStore Pinger // nil unless the daily quota is enabled
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store services.HistoryStore, gemini *services.GeminiClient) *HealthHandler {
	return &HealthHandler{store: store, gemini: gemini}
}

// SetQuotaStore adds the quota backend to the health report
func (h *HealthHandler) SetQuotaStore(p Pinger) {
	h.quotaStore = p
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "healthy"
	historyStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		status = "degraded"
		historyStatus = "unavailable"
	}

	resp := fiber.Map{
		"status":            status,
		"history_backend":   h.store.Name(),
		"history":           historyStatus,
		"gemini_configured": h.gemini.Configured(),
		"timestamp":         time.Now().Format(time.RFC3339),
	}

	// Chat quota fails open; an unreachable Redis only degrades health
	if h.quotaStore != nil {
		resp["quota_store"] = "ok"
		if err := h.quotaStore.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["quota_store"] = "unavailable"
		}
	}

	return c.JSON(resp)
}
