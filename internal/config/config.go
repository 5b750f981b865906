package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	LogFile string

	// Telegram
	TelegramToken string
	AdminChatID   int64

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Quiz
	QuizBatchSize             int
	QuizGenerationConcurrency int

	// Extraction
	ExtractWorkers int

	// Moderation
	BlockedPhrases []string

	// Memory log
	MemoryBackend    string
	MemoryDir        string
	MemoryMaxSizeMB  int
	MemoryMaxBackups int

	// Database (postgres memory backend)
	DatabaseURL string

	// Redis (admin alert fan-out), optional
	RedisURL string

	// Admin API
	AdminAPIPort      string
	JWTSecret         string
	AdminPasswordHash string

	// SMTP admin alerts, optional
	SMTPHost   string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	AdminEmail string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Env:                       getEnvOrDefault("ENV", "development"),
		LogFile:                   getEnvOrDefault("LOG_FILE", "logs/bot.log"),
		TelegramToken:             mustGetEnv("TELEGRAM_BOT_TOKEN"),
		AdminChatID:               getEnvAsInt64OrDefault("ADMIN_CHAT_ID", 0),
		GeminiAPIKey:              mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:               getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs:      getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		QuizBatchSize:             getEnvAsIntOrDefault("QUIZ_BATCH_SIZE", 10),
		QuizGenerationConcurrency: getEnvAsIntOrDefault("QUIZ_GENERATION_CONCURRENCY", 1),
		ExtractWorkers:            getEnvAsIntOrDefault("EXTRACT_WORKERS", 2),
		BlockedPhrases:            getEnvAsListOrDefault("BLOCKED_PHRASES", nil),
		MemoryBackend:             getEnvOrDefault("MEMORY_BACKEND", "file"),
		MemoryDir:                 getEnvOrDefault("MEMORY_DIR", "data"),
		MemoryMaxSizeMB:           getEnvAsIntOrDefault("MEMORY_MAX_SIZE_MB", 0),
		MemoryMaxBackups:          getEnvAsIntOrDefault("MEMORY_MAX_BACKUPS", 0),
		DatabaseURL:               getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:                  getEnvOrDefault("REDIS_URL", ""),
		AdminAPIPort:              getEnvOrDefault("ADMIN_API_PORT", "8080"),
		JWTSecret:                 getEnvOrDefault("JWT_SECRET", ""),
		AdminPasswordHash:         getEnvOrDefault("ADMIN_PASSWORD_HASH", ""),
		SMTPHost:                  getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:                  getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:                  getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:                  getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:                  getEnvOrDefault("SMTP_FROM", "noreply@studymate.local"),
		AdminEmail:                getEnvOrDefault("ADMIN_EMAIL", ""),
	}

	if cfg.MemoryBackend == "postgres" && cfg.DatabaseURL == "" {
		panic("MEMORY_BACKEND=postgres requires DATABASE_URL")
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AdminAPIEnabled reports whether the admin HTTP API has enough config to start.
func (c *Config) AdminAPIEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
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
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsInt64OrDefault(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
