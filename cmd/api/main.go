package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialcredit-api/internal/cache"
	"socialcredit-api/internal/config"
	"socialcredit-api/internal/handler"
	"socialcredit-api/internal/middleware"
	"socialcredit-api/internal/model"
	"socialcredit-api/internal/mojang"
	"socialcredit-api/internal/repository"
	"socialcredit-api/internal/router"
	"socialcredit-api/internal/service"
	"socialcredit-api/internal/tracing"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Social Credit API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Tracing (no-op unless TRACING_EXPORTER is set)
	shutdownTracing, err := tracing.Init(cfg.App.Name, cfg.App.Environment, cfg.Tracing)
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	} else if cfg.Tracing.Exporter != "" && cfg.Tracing.Exporter != "none" {
		log.Printf("Tracing enabled (%s)", cfg.Tracing.Exporter)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Ledger store
	store, err := repository.Open(cfg.LedgerDB.Type, cfg.LedgerDB.Target())
	if err != nil {
		log.Fatalf("Failed to initialize ledger store: %v", err)
	}
	defer store.Close()
	log.Printf("Ledger store initialized (%s)", store.Dialect())

	// Redis client (optional)
	var redisClient *redis.Client
	if cfg.Cache.Type == "redis" {
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory cache: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("Redis client initialized")
		}
	}

	var appCache cache.Cache
	cacheType := "memory"
	if redisClient != nil {
		appCache = cache.NewRedisCache(redisClient, cfg.Cache.RedisKeyPrefix)
		cacheType = "redis"
	} else {
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		appCache = memCache
	}

	// Audit trail (optional)
	var audit repository.AuditRepository
	if cfg.Audit.MongoURI != "" {
		mongoAudit, err := repository.NewMongoDBAuditRepository(
			cfg.Audit.MongoURI,
			cfg.Audit.MongoDatabase,
			cfg.Audit.MongoCollection,
		)
		if err != nil {
			log.Printf("Warning: MongoDB audit trail disabled: %v", err)
		} else {
			defer mongoAudit.Close()
			audit = mongoAudit
			log.Println("MongoDB audit trail initialized")
		}
	}

	// Initialize services
	verifier := mojang.NewClient(cfg.Mojang.BaseURL, cfg.Mojang.Timeout)
	settings := service.NewSettingsService(store, appCache, cfg.Cache.SettingsTTL)

	ledger := service.NewLedgerService(store, verifier, settings)
	if redisClient != nil {
		ledger.SetNotifier(service.NewRedisNotifier(redisClient, service.NotificationChannel))
	}
	if audit != nil {
		ledger.SetAudit(audit)
	}

	registries := service.NewWorkRegistries(store, ledger)
	sessions := service.NewSessionManager(appCache, ledger, cfg.Session.TTL)

	stats := service.NewStatsCollector(store, service.StatsConfig{Interval: time.Minute})
	stats.Start()
	defer stats.Stop()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version)
	healthHandler.AddCheck("database", store)
	if redisClient != nil {
		healthHandler.AddCheck("redis", handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	adminHandler := handler.NewAdminHandler(handler.AdminDeps{
		Ledger:    ledger,
		Sessions:  sessions,
		Settings:  settings,
		Stats:     store,
		Audit:     audit,
		DBType:    string(store.Dialect()),
		CacheType: cacheType,
	})

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: cfg.App.APIKeys,
	})
	if cfg.App.AdminKey == "" {
		log.Println("Warning: ADMIN_KEY is empty, admin routes are disabled")
	}

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		LedgerHandler:  handler.NewLedgerHandler(ledger),
		WorkHandler:    handler.NewWorkHandler(registries),
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
		AdminKey:       cfg.App.AdminKey,
		Metrics:        true,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s (work kinds: %s, %s)", cfg.Server.Address(), model.KindTask, model.KindJob)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
