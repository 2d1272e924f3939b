package config

import (
	"fmt"
	"net/url"

	"pricescout/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.requests_per_second must be > 0")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if len(cfg.Fetcher.UserAgents) == 0 {
		return fmt.Errorf("fetcher.user_agents must not be empty")
	}

	for _, rule := range cfg.Extract.TitleRules {
		if rule.Selector == "" {
			return fmt.Errorf("extract.title_rules entries must have a selector")
		}
		if rule.Type != "" && rule.Type != "css" && rule.Type != "xpath" {
			return fmt.Errorf("extract rule type must be 'css' or 'xpath', got %q", rule.Type)
		}
	}

	validStorageTypes := map[string]bool{
		"postgres": true, "mongodb": true, "jsonl": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: postgres, mongodb, jsonl)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for the mongodb backend")
	}
	if cfg.Storage.Type == "jsonl" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the jsonl backend")
	}

	if cfg.Rates.Path == "" {
		return fmt.Errorf("rates.path must not be empty")
	}
	if cfg.Rates.CommissionRate < 0 {
		return fmt.Errorf("rates.commission_rate must be >= 0")
	}
	if cfg.Rates.CommissionMin < 0 {
		return fmt.Errorf("rates.commission_min must be >= 0")
	}

	if cfg.Reminder.Enabled {
		if cfg.Reminder.Schedule == "" {
			return fmt.Errorf("reminder.schedule must not be empty when the reminder is enabled")
		}
		if cfg.Reminder.StaleAfter <= 0 {
			return fmt.Errorf("reminder.stale_after must be > 0")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for fetching.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
