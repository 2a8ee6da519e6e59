package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For the balance floor
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name

	MinBalance      decimal.Decimal // Default floor for credit and debit
	DebitRetries    int             // Attempts per debit under contention
	DebitBackoff    time.Duration   // Wait between debit attempts
	LockMode        string          // pessimistic or optimistic
	HistoryCacheTTL time.Duration   // TTL of cached closed history windows
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),     // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     getEnv("DB_HOST", "127.0.0.1"), // Database host
		DBPort:     getEnv("DB_PORT", "3306"),      // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address, empty disables caching
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment
		LogLevel:   getEnv("LOG_LEVEL", "info"),    // Log level

		MinBalance:      getDecimal("LEDGER_MIN_BALANCE", decimal.NewFromInt(100)), // Floor defaults to 100
		DebitRetries:    getInt("LEDGER_DEBIT_RETRIES", 3),                         // Three attempts
		DebitBackoff:    getDuration("LEDGER_DEBIT_BACKOFF", time.Second),          // One second apart
		LockMode:        getEnv("LEDGER_LOCK_MODE", "pessimistic"),                 // Row locks by default
		HistoryCacheTTL: getDuration("HISTORY_CACHE_TTL", 60*time.Second),          // Same TTL as other cached reads
	}
}

// getEnv returns the variable or a fallback when it is unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getInt parses an integer variable, falling back when unset or invalid
func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getDuration parses a Go duration such as "500ms", falling back when unset or invalid
func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getDecimal parses a decimal amount, falling back when unset or invalid
func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
