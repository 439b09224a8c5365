package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	PublicBaseURL    string
	RunwareAPIKey    string
	RunwareAPIURL    string
	VisionBaseURL    string
	VisionModel      string
	UploadDir        string
	VideoDir         string
	StyleCatalogPath string
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	PollInterval     time.Duration
	PollAttempts     int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		RunwareAPIKey:    os.Getenv("RUNWARE_API_KEY"),
		RunwareAPIURL:    getEnv("RUNWARE_API_URL", "https://api.runware.ai/v1"),
		VisionBaseURL:    getEnv("MODEL_RUNNER_URL", "http://localhost:12434/engines/llama.cpp/v1"),
		VisionModel:      getEnv("MODEL_RUNNER_MODEL", "ai/gemma3:4B-Q4_K_M"),
		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		VideoDir:         getEnv("VIDEO_DIR", "./videos"),
		StyleCatalogPath: os.Getenv("STYLE_CATALOG_PATH"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollAttempts:     getEnvInt("POLL_MAX_ATTEMPTS", 120),
	}

	if cfg.RunwareAPIKey == "" {
		return nil, fmt.Errorf("RUNWARE_API_KEY is required")
	}

	if cfg.PollAttempts < 1 {
		cfg.PollAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
