package config

import (
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Valkey    ValkeyConfig
	Dispatch  DispatchConfig
	Platforms PlatformsConfig
	AI        AIConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	BasePath           string
	BasicAuth          []string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
	StoragePath        string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB name for Postgres
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type DispatchConfig struct {
	// Interval is the periodic tick of the in-process dispatch loop.
	Interval time.Duration
	// PublishTimeout bounds a single credential-resolution + publish attempt.
	PublishTimeout time.Duration
	// CycleDeadline bounds one whole dispatch cycle so a hung publish cannot
	// stall subsequent cycles indefinitely.
	CycleDeadline  time.Duration
	WorkerPoolSize int
	WorkerQueue    int
}

type PlatformsConfig struct {
	LinkedInBaseURL  string
	FacebookBaseURL  string
	InstagramBaseURL string
}

type AIConfig struct {
	OpenAIAPIKey string
	Model        string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// Load builds the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Version:            "v1.2.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			BasicAuth:          splitNonEmpty(getEnv("APP_BASIC_AUTH", "")),
			TrustedProxies:     splitNonEmpty(getEnv("APP_TRUSTED_PROXIES", "")),
			CorsAllowedOrigins: splitNonEmpty(getEnv("APP_CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
			StoragePath:        getEnv("APP_STORAGE_PATH", "storages"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "azpost"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "storages/azpost.db"),
		},
		Valkey: ValkeyConfig{
			Enabled:   getEnvBool("VALKEY_ENABLED", false),
			Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azpost"),
		},
		Dispatch: DispatchConfig{
			Interval:       getEnvDuration("DISPATCH_INTERVAL", time.Minute),
			PublishTimeout: getEnvDuration("DISPATCH_PUBLISH_TIMEOUT", 30*time.Second),
			CycleDeadline:  getEnvDuration("DISPATCH_CYCLE_DEADLINE", 5*time.Minute),
			WorkerPoolSize: getEnvInt("DISPATCH_WORKER_POOL_SIZE", 4),
			WorkerQueue:    getEnvInt("DISPATCH_WORKER_QUEUE_SIZE", 256),
		},
		Platforms: PlatformsConfig{
			LinkedInBaseURL:  getEnv("LINKEDIN_API_BASE_URL", "https://api.linkedin.com"),
			FacebookBaseURL:  getEnv("FACEBOOK_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
			InstagramBaseURL: getEnv("INSTAGRAM_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
		},
		AI: AIConfig{
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}

	Global = cfg
	return cfg, nil
}

func splitNonEmpty(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
