package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// loadFile overlays values from a YAML config file onto cfg.
// A missing file is not an error; zero values in the file leave cfg untouched.
func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	merge(cfg, &fileCfg)
	return nil
}

// merge copies every non-zero field of src into dst.
func merge(dst, src *Config) {
	setString(&dst.APIBaseURL, src.APIBaseURL)
	setString(&dst.Environment, src.Environment)
	setString(&dst.DatabasePath, src.DatabasePath)
	setString(&dst.StorageBackend, src.StorageBackend)
	setString(&dst.CredentialsPath, src.CredentialsPath)
	setString(&dst.StorageSecret, src.StorageSecret)
	setString(&dst.LogFile, src.LogFile)
	setString(&dst.LogLevel, src.LogLevel)

	for _, d := range []struct {
		dst *time.Duration
		src time.Duration
	}{
		{&dst.RequestTimeout, src.RequestTimeout},
		{&dst.SessionIdleTimeout, src.SessionIdleTimeout},
		{&dst.TokenRefreshThreshold, src.TokenRefreshThreshold},
		{&dst.SlowRequestThreshold, src.SlowRequestThreshold},
		{&dst.RateLimitWindow, src.RateLimitWindow},
		{&dst.RetryBaseDelay, src.RetryBaseDelay},
	} {
		if d.src != 0 {
			*d.dst = d.src
		}
	}

	setInt(&dst.RateLimitMax, src.RateLimitMax)
	setInt(&dst.QueueConcurrency, src.QueueConcurrency)
	setInt(&dst.RetryMaxAttempts, src.RetryMaxAttempts)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
