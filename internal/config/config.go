package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the core-go service.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	DatabaseURL     string
	CORSOrigins     []string
	DefaultTreePath string
	RefreshInterval time.Duration
}

// Load reads configuration from environment variables. Callers that want .env support load
// the file before calling Load.
func Load() (Config, error) {
	interval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", interval)
	}

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8081"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		DefaultTreePath: getEnv("DEFAULT_TREE_PATH", ""),
		RefreshInterval: interval,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
