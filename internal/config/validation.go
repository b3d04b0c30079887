package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateAPI(&cfg.API); err != nil {
		return err
	}
	if err := validateHTTP(&cfg.HTTP); err != nil {
		return err
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := validateSession(&cfg.Session); err != nil {
		return err
	}
	return nil
}

func validateAPI(cfg *APIConfig) error {
	if err := validateURL(cfg.BaseURL, "api.base_url", []string{"http", "https"}); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DeviceID) == "" {
		return fmt.Errorf("api.device_id cannot be empty")
	}
	return nil
}

// validateURL validates that a URL is well-formed and uses an allowed scheme.
func validateURL(rawURL, fieldName string, allowedSchemes []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}

	for _, scheme := range allowedSchemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of these schemes: %s", fieldName, strings.Join(allowedSchemes, ", "))
}

func validateHTTP(cfg *HTTPConfig) error {
	for _, pattern := range append(append([]string{}, cfg.Allow...), cfg.Deny...) {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			return fmt.Errorf("http scope contains an empty pattern")
		}
		if trimmed != "*" && !strings.Contains(trimmed, "://") {
			return fmt.Errorf("http scope pattern must include a scheme: %s", trimmed)
		}
	}
	if cfg.TimeoutSeconds < 1 {
		return fmt.Errorf("http.timeout_seconds must be at least 1")
	}
	if cfg.TimeoutSeconds > 600 {
		return fmt.Errorf("http.timeout_seconds cannot exceed 600")
	}
	if cfg.MaxRedirections < 0 {
		return fmt.Errorf("http.max_redirections cannot be negative")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !validLevels[cfg.Level] {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error: %q", cfg.Level)
	}
	if cfg.Format != "console" && cfg.Format != "json" {
		return fmt.Errorf("logging.format must be console or json: %q", cfg.Format)
	}
	if cfg.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1")
	}
	if cfg.MaxBackups < 0 {
		return fmt.Errorf("logging.max_backups cannot be negative")
	}
	return nil
}

func validateSession(cfg *SessionConfig) error {
	if cfg.MinRefreshSeconds < 1 {
		return fmt.Errorf("session.min_refresh_seconds must be at least 1")
	}
	if cfg.RefreshLeadSeconds < 0 {
		return fmt.Errorf("session.refresh_lead_seconds cannot be negative")
	}
	return nil
}
