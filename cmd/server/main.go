package main

import (
	"context" // context package is needed for Redis operations

	"wallet_ledger/internal/api"        // HTTP handlers and routes
	"wallet_ledger/internal/config"     // Configuration
	"wallet_ledger/internal/db"         // Database connection
	"wallet_ledger/internal/ledger"     // Balance-mutation engine
	"wallet_ledger/internal/middleware" // Request logging
	"wallet_ledger/internal/query"      // Balance and history reads
	"wallet_ledger/internal/registry"   // User registration
	"wallet_ledger/internal/retry"      // Retry policy
	"wallet_ledger/internal/store"      // Persistent store

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger: readable text locally, JSON in production
	log := logrus.New()
	if cfg.IsProd {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	logrus.SetFormatter(log.Formatter) // Packages that log through the standard logger
	logrus.SetLevel(level)

	// Connect to the database
	gdb, err := db.Open(db.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName), level >= logrus.DebugLevel)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	st := store.NewGorm(gdb)

	// Setup Redis client; history caching is skipped without one
	var rdb redis.Cmdable
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		rdb = client
	} else {
		log.Warn("REDIS_ADDR not set, history caching disabled")
	}

	// Services
	engine := ledger.New(st, ledger.Config{
		MinBalance: cfg.MinBalance,                                  // Default floor
		Mode:       ledger.LockMode(cfg.LockMode),                   // Row lock or plain read
		Retry:      retry.Fixed(cfg.DebitRetries, cfg.DebitBackoff), // Attempts under contention
	}, log)
	users := registry.New(st, log)
	queries := query.New(st, rdb, query.Config{CacheTTL: cfg.HistoryCacheTTL}, log)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.New()                                       // Gin router instance
	r.Use(middleware.RequestLogger(log), gin.Recovery()) // Structured access log and panic recovery

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, api.Services{
		Registry: users,
		Ledger:   engine,
		Queries:  queries,
		Store:    st,
	})

	log.WithFields(logrus.Fields{
		"port":        cfg.AppPort,
		"lock_mode":   cfg.LockMode,
		"min_balance": cfg.MinBalance.String(),
	}).Info("Server running") // Log server start
	// Start the server on port cfg.AppPort
	if err := r.Run(":" + cfg.AppPort); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
