package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"companion/internal/config"
	"companion/internal/database"
	"companion/internal/services"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	cfg        *config.Config
	store      services.HistoryStore
	db         *database.DB // nil unless a SQL history backend is selected
	quotaStore Pinger       // nil unless the daily quota is enabled
}

// NewChecker creates a new preflight checker
func NewChecker(cfg *config.Config, store services.HistoryStore, db *database.DB) *Checker {
	return &Checker{
		cfg:   cfg,
		store: store,
		db:    db,
	}
}

// SetQuotaStore adds the quota backend to the checks
func (c *Checker) SetQuotaStore(p Pinger) {
	c.quotaStore = p
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkHistoryBackend(),
		c.checkDatabaseSchema(),
		c.checkGemini(),
		c.checkAuthentication(),
		c.checkQuotaStore(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkHistoryBackend verifies the history backend is reachable.
// History reads are best-effort, so an unreachable backend is a warning.
func (c *Checker) checkHistoryBackend() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "History Backend",
			Status:  "warning",
			Message: fmt.Sprintf("Cannot reach %s history backend; replies will not be personalized", c.store.Name()),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "History Backend",
		Status:  "pass",
		Message: fmt.Sprintf("%s history backend reachable", c.store.Name()),
	}
}

// checkDatabaseSchema verifies all history tables exist
func (c *Checker) checkDatabaseSchema() CheckResult {
	if c.db == nil {
		return CheckResult{
			Name:    "Database Schema",
			Status:  "pass",
			Message: "Skipped (no SQL history backend)",
		}
	}

	for _, table := range database.HistoryTables {
		exists, err := c.db.TableExists(table)
		if err != nil || !exists {
			return CheckResult{
				Name:    "Database Schema",
				Status:  "fail",
				Message: fmt.Sprintf("Required table '%s' not found", table),
				Error:   err,
			}
		}
	}

	return CheckResult{
		Name:    "Database Schema",
		Status:  "pass",
		Message: fmt.Sprintf("All %d required tables exist", len(database.HistoryTables)),
	}
}

// checkGemini warns when no API key is configured. Every chat request
// fails with a configuration error until one is set.
func (c *Checker) checkGemini() CheckResult {
	if c.cfg.Gemini.APIKey == "" {
		return CheckResult{
			Name:    "Gemini",
			Status:  "warning",
			Message: "GEMINI_API_KEY not set; chat requests will fail",
		}
	}

	return CheckResult{
		Name:    "Gemini",
		Status:  "pass",
		Message: fmt.Sprintf("Using model %s", c.cfg.Gemini.Model),
	}
}

func (c *Checker) checkAuthentication() CheckResult {
	if c.cfg.SupabaseJWTSecret != "" {
		return CheckResult{
			Name:    "Authentication",
			Status:  "pass",
			Message: "Verifying tokens locally (HS256)",
		}
	}

	if c.cfg.SupabaseAnonKey == "" {
		return CheckResult{
			Name:    "Authentication",
			Status:  "warning",
			Message: "SUPABASE_ANON_KEY not set; identity provider may reject verification calls",
		}
	}

	return CheckResult{
		Name:    "Authentication",
		Status:  "pass",
		Message: "Verifying tokens with the identity provider",
	}
}

// checkQuotaStore verifies Redis when the daily quota is enabled.
// The quota fails open, so an unreachable Redis is a warning.
func (c *Checker) checkQuotaStore() CheckResult {
	if c.cfg.ChatDailyLimit <= 0 {
		return CheckResult{
			Name:    "Quota Store",
			Status:  "pass",
			Message: "Skipped (daily quota disabled)",
		}
	}

	if c.quotaStore == nil {
		return CheckResult{
			Name:    "Quota Store",
			Status:  "fail",
			Message: "CHAT_DAILY_LIMIT is set but no Redis client is configured",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.quotaStore.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Quota Store",
			Status:  "warning",
			Message: "Cannot reach Redis; daily quota will not be enforced",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Quota Store",
		Status:  "pass",
		Message: fmt.Sprintf("Redis reachable, %d chats per user per day", c.cfg.ChatDailyLimit),
	}
}
