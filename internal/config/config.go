// Package config contains everything related to configuration
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// Config holds the application configuration.
type Config struct {
	APIBaseURL      string `yaml:"api_base_url"`
	Environment     string `yaml:"environment"`
	DatabasePath    string `yaml:"database_path"`
	StorageBackend  string `yaml:"storage_backend"`
	CredentialsPath string `yaml:"credentials_path"`
	StorageSecret   string `yaml:"storage_secret"`
	LogFile         string `yaml:"log_file"`
	LogLevel        string `yaml:"log_level"`

	RequestTimeout        time.Duration `yaml:"request_timeout"`
	SessionIdleTimeout    time.Duration `yaml:"session_idle_timeout"`
	TokenRefreshThreshold time.Duration `yaml:"token_refresh_threshold"`
	SlowRequestThreshold  time.Duration `yaml:"slow_request_threshold"`
	RateLimitWindow       time.Duration `yaml:"rate_limit_window"`
	RetryBaseDelay        time.Duration `yaml:"retry_base_delay"`

	RateLimitMax     int `yaml:"rate_limit_max"`
	QueueConcurrency int `yaml:"queue_concurrency"`
	RetryMaxAttempts int `yaml:"retry_max_attempts"`
}

// Default values
const (
	defaultAPIBaseURL            = "http://localhost:8000"
	defaultEnvironment           = "development"
	defaultRequestTimeout        = 30 * time.Second
	defaultSessionIdleTimeout    = 30 * time.Minute
	defaultTokenRefreshThreshold = 5 * time.Minute
	defaultSlowRequestThreshold  = time.Second
	defaultRateLimitWindow       = time.Minute
	defaultRateLimitMax          = 100
	defaultQueueConcurrency      = 1
	defaultRetryMaxAttempts      = 3
	defaultRetryBaseDelay        = 250 * time.Millisecond
)

// Defaults returns a configuration populated with default values only.
func Defaults() *Config {
	return &Config{
		APIBaseURL:            defaultAPIBaseURL,
		Environment:           defaultEnvironment,
		DatabasePath:          getDefaultDatabasePath(),
		StorageBackend:        StorageSQLite,
		CredentialsPath:       getDefaultCredentialsPath(),
		LogLevel:              "info",
		RequestTimeout:        defaultRequestTimeout,
		SessionIdleTimeout:    defaultSessionIdleTimeout,
		TokenRefreshThreshold: defaultTokenRefreshThreshold,
		SlowRequestThreshold:  defaultSlowRequestThreshold,
		RateLimitWindow:       defaultRateLimitWindow,
		RateLimitMax:          defaultRateLimitMax,
		QueueConcurrency:      defaultQueueConcurrency,
		RetryMaxAttempts:      defaultRetryMaxAttempts,
		RetryBaseDelay:        defaultRetryBaseDelay,
	}
}

// Load reads configuration from an optional YAML file, .env files and environment variables.
// Precedence: environment > .env > YAML file > defaults.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := Defaults()

	filePath := getEnvString("CONFIG_FILE", getDefaultConfigFilePath())
	if err := loadFile(filePath, cfg); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = getEnvString("API_BASE_URL", cfg.APIBaseURL)
	cfg.Environment = getEnvString("APP_ENV", cfg.Environment)
	cfg.DatabasePath = getEnvString("DATABASE_PATH", cfg.DatabasePath)
	cfg.StorageBackend = getEnvString("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.CredentialsPath = getEnvString("CREDENTIALS_PATH", cfg.CredentialsPath)
	cfg.StorageSecret = getEnvString("STORAGE_SECRET", cfg.StorageSecret)
	cfg.LogFile = getEnvString("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnvString("LOG_LEVEL", cfg.LogLevel)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	cfg.TokenRefreshThreshold = getEnvDuration("TOKEN_REFRESH_THRESHOLD", cfg.TokenRefreshThreshold)
	cfg.SlowRequestThreshold = getEnvDuration("SLOW_REQUEST_THRESHOLD", cfg.SlowRequestThreshold)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	cfg.RetryBaseDelay = getEnvDuration("RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", cfg.RateLimitMax)
	cfg.QueueConcurrency = getEnvInt("QUEUE_CONCURRENCY", cfg.QueueConcurrency)
	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	if cfg.StorageBackend == StorageFile {
		if err := ensureDir(filepath.Dir(cfg.CredentialsPath)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got %q", u.Scheme)
	}

	switch c.StorageBackend {
	case StorageSQLite, StorageFile:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageSQLite, StorageFile, c.StorageBackend)
	}

	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.QueueConcurrency <= 0 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be positive, got %d", c.QueueConcurrency)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	if c.RetryMaxAttempts < 1 {
		c.RetryMaxAttempts = 1
	}
	return nil
}

// IsProduction reports whether the client runs against a production backend.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "stockscanner", ".env"),
			filepath.Join(home, ".stockscanner", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// configDir returns the per-user configuration directory.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stockscanner")
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	dir := configDir()
	if dir == "" {
		return "scanner.db"
	}
	return filepath.Join(dir, "scanner.db")
}

// getDefaultCredentialsPath returns the default path for the file storage backend.
func getDefaultCredentialsPath() string {
	dir := configDir()
	if dir == "" {
		return "credentials.json"
	}
	return filepath.Join(dir, "credentials.json")
}

// getDefaultConfigFilePath returns the default path for the optional YAML config file.
func getDefaultConfigFilePath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
