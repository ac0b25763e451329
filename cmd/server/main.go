package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"companion/internal/config"
	"companion/internal/database"
	"companion/internal/handlers"
	"companion/internal/logging"
	"companion/internal/middleware"
	"companion/internal/preflight"
	"companion/internal/services"
	"companion/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

// Chat endpoints carry their own permissive CORS headers
var chatPaths = []string{"/api/chat", "/functions/v1/gemini-chat"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Println("🚀 Starting Purpose Companion chat service...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, History: %s, Model: %s)", cfg.Port, cfg.HistoryBackend, cfg.Gemini.Model)

	// History backend
	var (
		store   services.HistoryStore
		db      *database.DB
		mongoDB *database.MongoDB
	)
	switch cfg.HistoryBackend {
	case config.BackendMySQL, config.BackendSQLite:
		var err error
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
		store = services.NewSQLHistoryStore(db)

	case config.BackendMongo:
		var err error
		mongoDB, err = database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoDB.Close(ctx)
		}()

		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mongoDB.Initialize(initCtx); err != nil {
			log.Printf("⚠️  Failed to create MongoDB indexes: %v", err)
		}
		cancel()
		store = services.NewMongoHistoryStore(mongoDB)

	default:
		store = services.NewPostgRESTHistoryStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceRoleKey)
		if cfg.SupabaseServiceRoleKey == "" {
			log.Println("⚠️  SUPABASE_SERVICE_ROLE_KEY not set, history reads will use the caller's token")
		}
	}
	log.Printf("✅ History backend: %s", store.Name())

	// Per-user daily quota store (optional - requires Redis)
	var redisService *services.RedisService
	if cfg.ChatDailyLimit > 0 {
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
	}

	// Run preflight checks
	checker := preflight.NewChecker(cfg, store, db)
	if redisService != nil {
		checker.SetQuotaStore(redisService)
	}
	if preflight.HasFailures(checker.RunAll()) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// Identity verification
	var verifier auth.Verifier
	if cfg.SupabaseJWTSecret != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWTSecret)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT verifier: %v", err)
		}
		verifier = jwtVerifier
		log.Println("🔐 Verifying access tokens locally")
	} else {
		verifier = auth.NewRemoteVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		log.Printf("🔐 Verifying access tokens against %s", cfg.SupabaseURL)
	}
	if cfg.AuthCacheTTL > 0 {
		verifier = auth.NewCachingVerifier(verifier, cfg.AuthCacheTTL)
		log.Printf("🗄️  Identity cache enabled (TTL: %v)", cfg.AuthCacheTTL)
	}

	metrics := services.InitMetrics()

	gemini := services.NewGeminiClient(cfg.Gemini, metrics)
	if !gemini.Configured() {
		log.Println("⚠️  GEMINI_API_KEY not set, chat requests will fail until it is configured")
	}

	persona := services.DefaultPersona
	if cfg.PersonaFile != "" {
		loaded, err := config.LoadPersona(cfg.PersonaFile)
		if err != nil {
			log.Fatalf("❌ Failed to load persona: %v", err)
		}
		persona = *loaded
		log.Printf("🎭 Persona loaded from %s (%s)", cfg.PersonaFile, persona.Name)
	}

	companion := services.NewCompanionService(
		verifier,
		services.NewInsightAggregator(store, metrics),
		services.NewPromptComposer(persona),
		gemini,
	)

	if redisService != nil {
		companion.SetUsageLimiter(services.NewChatQuota(redisService.Client(), cfg.ChatDailyLimit))
		log.Printf("📏 Daily chat quota enabled (%d messages/user)", cfg.ChatDailyLimit)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Purpose Companion v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("companion")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig(cfg.ChatRateLimit)
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ChatMax,
	)

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		Next: func(c *fiber.Ctx) bool {
			return isChatPath(c.Path())
		},
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store, gemini)
	chatHandler := handlers.NewChatHandler(companion, metrics, cfg.ExposeErrorDetails)
	if redisService != nil {
		healthHandler.SetQuotaStore(redisService)
	}

	app.Get("/health", healthHandler.Handle)

	chatLimiter := middleware.ChatRateLimiter(rateLimitConfig)
	for _, path := range chatPaths {
		app.Options(path, chatHandler.Preflight)
		app.Post(path, chatLimiter, chatHandler.Chat)
	}

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("💬 Chat endpoint: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func isChatPath(path string) bool {
	for _, p := range chatPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
