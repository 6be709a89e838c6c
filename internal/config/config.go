package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// Config holds all application configuration, populated from environment
// variables with sensible defaults.
//
// Environment Variables:
//
// Transcription provider:
// - TRANSCRIBE_API_URL: provider base URL (required)
// - TRANSCRIBE_API_KEY: provider API key (required)
// - TRANSCRIBE_LANGUAGE: BCP-47 language code for speech (default: en)
// - TRANSCRIBE_POLL_INTERVAL: status poll cadence (default: 3s)
// - TRANSCRIBE_POLL_ATTEMPTS: poll attempt ceiling (default: 200)
//
// Composition provider:
// - COMPOSE_API_URL: provider base URL (required)
// - COMPOSE_API_KEY: provider API key (required)
// - COMPOSE_POLL_INTERVAL: status poll cadence (default: 2s)
// - COMPOSE_POLL_ATTEMPTS: poll attempt ceiling (default: 300)
//
// Jobs:
// - JOB_RETENTION: how long terminal jobs are kept (default: 24h)
// - JOB_REAPER_CRON: reaper schedule (default: hourly)
// - JOB_CLEANUP_DELAY: grace delay before deleting source media of a
//   completed job (default: 5s)
// - DB_PATH: sqlite path for job restart recovery; empty disables persistence
//
// Server / system:
// - HTTP_ADDR: listen address (default: :8080)
// - UPLOAD_DIR: directory holding uploaded source media (default: ./uploads)
// - LOG_LEVEL: debug|info|warn|error (default: info)
type Config struct {
	Transcribe ProviderConfig `json:"transcribe"`
	Compose    ProviderConfig `json:"compose"`
	Jobs       JobsConfig     `json:"jobs"`
	HTTP       HTTPConfig     `json:"http"`
	Storage    StorageConfig  `json:"storage"`
	LogLevel   string         `json:"log_level"`
}

// ProviderConfig holds connection and polling settings for one external
// provider. Language is only meaningful for the transcription provider.
type ProviderConfig struct {
	APIURL       string        `json:"api_url"`
	APIKey       string        `json:"api_key"`
	Language     language.Tag  `json:"language,omitempty"`
	PollInterval time.Duration `json:"poll_interval"`
	PollAttempts int           `json:"poll_attempts"`
}

type JobsConfig struct {
	Retention    time.Duration `json:"retention"`
	ReaperCron   string        `json:"reaper_cron"`
	CleanupDelay time.Duration `json:"cleanup_delay"`
	DBPath       string        `json:"db_path"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type StorageConfig struct {
	UploadDir string `json:"upload_dir"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	lang, err := language.Parse(getEnvString("TRANSCRIBE_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_LANGUAGE: %w", err)
	}

	config := &Config{
		Transcribe: ProviderConfig{
			APIURL:       getEnvString("TRANSCRIBE_API_URL", ""),
			APIKey:       getEnvString("TRANSCRIBE_API_KEY", ""),
			Language:     lang,
			PollInterval: getEnvDuration("TRANSCRIBE_POLL_INTERVAL", 3*time.Second),
			PollAttempts: getEnvInt("TRANSCRIBE_POLL_ATTEMPTS", 200),
		},
		Compose: ProviderConfig{
			APIURL:       getEnvString("COMPOSE_API_URL", ""),
			APIKey:       getEnvString("COMPOSE_API_KEY", ""),
			PollInterval: getEnvDuration("COMPOSE_POLL_INTERVAL", 2*time.Second),
			PollAttempts: getEnvInt("COMPOSE_POLL_ATTEMPTS", 300),
		},
		Jobs: JobsConfig{
			Retention:    getEnvDuration("JOB_RETENTION", 24*time.Hour),
			ReaperCron:   getEnvString("JOB_REAPER_CRON", "0 * * * *"),
			CleanupDelay: getEnvDuration("JOB_CLEANUP_DELAY", 5*time.Second),
			DBPath:       getEnvString("DB_PATH", ""),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			UploadDir: getEnvString("UPLOAD_DIR", "./uploads"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Transcribe.APIURL == "" {
		return fmt.Errorf("TRANSCRIBE_API_URL is required")
	}
	if c.Transcribe.APIKey == "" {
		return fmt.Errorf("TRANSCRIBE_API_KEY is required")
	}
	if c.Compose.APIURL == "" {
		return fmt.Errorf("COMPOSE_API_URL is required")
	}
	if c.Compose.APIKey == "" {
		return fmt.Errorf("COMPOSE_API_KEY is required")
	}
	if c.Transcribe.PollAttempts <= 0 || c.Compose.PollAttempts <= 0 {
		return fmt.Errorf("poll attempt ceilings must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment variables with default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
