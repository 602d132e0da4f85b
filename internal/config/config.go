package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration read from the environment
type Config struct {
	TelegramToken string

	DBDriver string
	DBDSN    string

	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64

	HistoryTTL      time.Duration
	SessionIdle     time.Duration
	EnableScheduler bool
}

// Load reads .env when present and then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() *Config {
	provider := strings.ToLower(getEnvOrDefault("QUIZ_PROVIDER", "gemini"))

	cfg := &Config{
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBDriver:        getEnvOrDefault("DB_DRIVER", "sqlite3"),
		DBDSN:           getEnvOrDefault("DB_DSN", "data/quizbot.db"),
		Provider:        provider,
		Temperature:     getEnvFloat("GENERATION_TEMPERATURE", 0.7),
		HistoryTTL:      time.Duration(getEnvInt("HISTORY_TTL_DAYS", 365)) * 24 * time.Hour,
		SessionIdle:     time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		EnableScheduler: getEnvOrDefault("ENABLE_SCHEDULER", "true") != "false",
	}

	switch provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.Model = os.Getenv("OPENAI_MODEL")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	default:
		cfg.APIKey = getEnvOrDefault("GEMINI_API_KEY", os.Getenv("API_KEY"))
		cfg.Model = os.Getenv("GEMINI_MODEL")
		cfg.BaseURL = os.Getenv("GEMINI_BASE_URL")
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue >= 0 {
			return floatValue
		}
		log.Printf("Invalid %s=%q, using %v", key, value, defaultValue)
	}
	return defaultValue
}
