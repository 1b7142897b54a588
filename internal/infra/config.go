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
	AppEnv      string
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	PublicBaseURL  string
	StoragePath    string

	RenderURL        string
	RenderMode       string // "sync" or "async"
	RenderWebhookURL string
	RenderTimeout    time.Duration

	InputURLTTL  time.Duration
	OutputURLTTL time.Duration

	ReaperInterval time.Duration
	ReaperAfter    time.Duration

	WorkerConcurrency int

	GeoIPDBPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "stamper"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),

		RenderURL:        os.Getenv("RENDER_URL"),
		RenderMode:       getEnv("RENDER_MODE", "sync"),
		RenderWebhookURL: os.Getenv("RENDER_WEBHOOK_URL"),
		RenderTimeout:    time.Second * time.Duration(getEnvInt("RENDER_TIMEOUT_SECONDS", 540)),

		InputURLTTL:  time.Minute * time.Duration(getEnvInt("INPUT_URL_TTL_MINUTES", 60)),
		OutputURLTTL: time.Hour * time.Duration(getEnvInt("OUTPUT_URL_TTL_HOURS", 7*24)),

		ReaperInterval: time.Minute * time.Duration(getEnvInt("REAPER_INTERVAL_MINUTES", 5)),
		ReaperAfter:    time.Minute * time.Duration(getEnvInt("REAPER_AFTER_MINUTES", 30)),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.RenderMode {
	case "sync", "async":
	default:
		return nil, fmt.Errorf("RENDER_MODE must be sync or async, got %q", cfg.RenderMode)
	}

	if cfg.RenderMode == "async" && cfg.RenderWebhookURL == "" {
		return nil, fmt.Errorf("RENDER_WEBHOOK_URL is required in async render mode")
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}
