package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for pricescout.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Extract  ExtractConfig  `mapstructure:"extract"  yaml:"extract"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Rates    RatesConfig    `mapstructure:"rates"    yaml:"rates"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Port              int           `mapstructure:"port"                yaml:"port"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"     yaml:"allowed_origins"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    yaml:"shutdown_timeout"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// ExtractConfig controls the extraction rule chains. An empty rule list
// means the built-in default chain; overriding it changes precedence
// without touching extraction logic.
type ExtractConfig struct {
	TitleRules []ParseRule `mapstructure:"title_rules" yaml:"title_rules"`
}

// ParseRule is a single entry of a rule chain: a selector plus the
// strategy used to evaluate it.
type ParseRule struct {
	Selector string `mapstructure:"selector" yaml:"selector"`
	Type     string `mapstructure:"type"     yaml:"type"` // css, xpath
}

// StorageConfig selects and configures the order store backend.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // postgres, mongodb, jsonl
	PostgresDSN     string `mapstructure:"postgres_dsn"     yaml:"postgres_dsn"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	Path            string `mapstructure:"path"             yaml:"path"`
}

// RatesConfig controls the exchange-rate table and conversion commission.
type RatesConfig struct {
	Path           string  `mapstructure:"path"            yaml:"path"`
	CommissionRate float64 `mapstructure:"commission_rate" yaml:"commission_rate"`
	CommissionMin  float64 `mapstructure:"commission_min"  yaml:"commission_min"`
}

// ReminderConfig controls the daily rates-staleness reminder.
type ReminderConfig struct {
	Enabled    bool          `mapstructure:"enabled"     yaml:"enabled"`
	Schedule   string        `mapstructure:"schedule"    yaml:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8000,
			RequestsPerSecond: 10,
			AllowedOrigins:    []string{"*"},
			ShutdownTimeout:   10 * time.Second,
		},
		Fetcher: FetcherConfig{
			Timeout:         15 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			FollowRedirects: true,
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Storage: StorageConfig{
			Type: "jsonl",
			Path: "./data/orders.jsonl",
		},
		Rates: RatesConfig{
			Path:           "./data/currency_rates.json",
			CommissionRate: 0.15,
			CommissionMin:  15,
		},
		Reminder: ReminderConfig{
			Enabled:    true,
			Schedule:   "0 9 * * *",
			StaleAfter: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
