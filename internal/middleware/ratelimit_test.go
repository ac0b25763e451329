package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RATE_LIMIT_GLOBAL_API", "500")

	config := LoadRateLimitConfig(12)

	if config.ChatMax != 12 {
		t.Errorf("Expected chat max 12, got %d", config.ChatMax)
	}
	if config.GlobalAPIMax != 500 {
		t.Errorf("Expected global max 500, got %d", config.GlobalAPIMax)
	}

	defaults := LoadRateLimitConfig(0)
	if defaults.ChatMax != 30 {
		t.Errorf("Expected default chat max 30, got %d", defaults.ChatMax)
	}
}

func TestChatRateLimiter(t *testing.T) {
	config := &RateLimitConfig{ChatMax: 2, ChatExpiration: time.Minute}

	app := fiber.New()
	app.Use(ChatRateLimiter(config))
	app.Post("/api/chat", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Options("/api/chat", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/chat", nil))
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/api/chat", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("Expected 429 once the limit is reached, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != ChatAllowOrigin {
		t.Errorf("Expected CORS origin on 429, got %q", got)
	}

	resp, err = app.Test(httptest.NewRequest("OPTIONS", "/api/chat", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("Expected preflight to bypass the limiter, got %d", resp.StatusCode)
	}
}

func TestGlobalAPIRateLimiter_ChatCORS(t *testing.T) {
	config := &RateLimitConfig{GlobalAPIMax: 1, GlobalAPIExpiration: time.Minute}

	app := fiber.New()
	app.Use("/api", GlobalAPIRateLimiter(config))
	app.Post("/api/chat", func(c *fiber.Ctx) error {
		ApplyChatCORS(c)
		return c.SendString("ok")
	})

	for i, wantStatus := range []int{fiber.StatusOK, fiber.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/chat", nil))
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		if resp.StatusCode != wantStatus {
			t.Fatalf("Request %d: expected %d, got %d", i+1, wantStatus, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != ChatAllowOrigin {
			t.Errorf("Request %d: expected CORS origin %q, got %q", i+1, ChatAllowOrigin, got)
		}
		if got := resp.Header.Get("Access-Control-Allow-Headers"); got != ChatAllowHeaders {
			t.Errorf("Request %d: expected CORS headers %q, got %q", i+1, ChatAllowHeaders, got)
		}
	}
}

func TestGlobalAPIRateLimiter_KeepsConfiguredOrigin(t *testing.T) {
	config := &RateLimitConfig{GlobalAPIMax: 1, GlobalAPIExpiration: time.Minute}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "https://app.example.com")
		return c.Next()
	})
	app.Use("/api", GlobalAPIRateLimiter(config))
	app.Get("/api/other", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Test(httptest.NewRequest("GET", "/api/other", nil))
	resp, err := app.Test(httptest.NewRequest("GET", "/api/other", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Expected configured origin to be kept, got %q", got)
	}
}
