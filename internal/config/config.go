package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment (and an optional .env file).
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	LogLevel       string
	LogFormat      string // "json" or "text"
	RedisAddress   string // empty disables the distributed order lock
	TelegramToken  string // empty disables driver dispatch messages
	BackupDir      string
	BusinessName   string
}

// Load reads configuration. DATABASE_URL is the only required setting.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		BackupDir:      getEnv("BACKUP_DIR", os.TempDir()),
		BusinessName:   getEnv("BUSINESS_NAME", "Grain Traders"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
