package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string
	DBMaxConns  int

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI (optional, empty key falls back to heuristic reports)
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Interview sessions
	InterviewDurationSeconds int
	CompletionDelay          time.Duration
	SessionRetention         time.Duration
	StartLimitPerMinute      int

	// Workers
	WorkerCount int

	// CV storage
	StorageType string
	StoragePath string
	GCSBucket   string

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBMaxConns:  getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),

		InterviewDurationSeconds: getEnvAsIntOrDefault("INTERVIEW_DURATION_SECONDS", 60),
		CompletionDelay:          time.Duration(getEnvAsIntOrDefault("INTERVIEW_COMPLETION_DELAY_MS", 3000)) * time.Millisecond,
		SessionRetention:         time.Duration(getEnvAsIntOrDefault("INTERVIEW_RETENTION_MINUTES", 10)) * time.Minute,
		StartLimitPerMinute:      getEnvAsIntOrDefault("INTERVIEW_START_LIMIT_PER_MINUTE", 10),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 3),

		StorageType: getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath: getEnvOrDefault("STORAGE_PATH", "./uploads"),
		GCSBucket:   getEnvOrDefault("GCS_BUCKET", ""),

		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser: getEnvOrDefault("SMTP_USER", ""),
		SMTPPass: getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom: getEnvOrDefault("SMTP_FROM", "noreply@jobmatch.app"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.StorageType == "gcs" && cfg.GCSBucket == "" {
		panic("GCS_BUCKET must be set when STORAGE_TYPE=gcs")
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
