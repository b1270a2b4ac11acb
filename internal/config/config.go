// Package config defines the top-level configuration for the flip detector
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SKYFLIP_* environment
// variables.
type Config struct {
	Hypixel  HypixelConfig     `toml:"hypixel"`
	Postgres PostgresConfig    `toml:"postgres"`
	Redis    RedisConfig       `toml:"redis"`
	S3       S3Config          `toml:"s3"`
	Sweep    SweepConfig       `toml:"sweep"`
	Oracle   OracleConfig      `toml:"oracle"`
	Flips    FlipsConfig       `toml:"flips"`
	Aliases  map[string]string `toml:"aliases"`
	Server   ServerConfig      `toml:"server"`
	Notify   NotifyConfig      `toml:"notify"`
	Mode     string            `toml:"mode"`
	LogLevel string            `toml:"log_level"`
}

// HypixelConfig holds the upstream API endpoint and key.
type HypixelConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// RateLimit bounds requests per RateWindow across all processes sharing
	// the key. Zero disables client-side limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible cold storage parameters. When disabled,
// expired listings are pruned without archival and price history is kept in
// full.
type S3Config struct {
	Enabled            bool   `toml:"enabled"`
	Endpoint           string `toml:"endpoint"`
	Region             string `toml:"region"`
	Bucket             string `toml:"bucket"`
	AccessKey          string `toml:"access_key"`
	SecretKey          string `toml:"secret_key"`
	UseSSL             bool   `toml:"use_ssl"`
	ForcePathStyle     bool   `toml:"force_path_style"`
	Prefix             string `toml:"prefix"`
	PriceRetentionDays int    `toml:"price_retention_days"`
}

// SweepConfig holds the ingestion loop parameters.
type SweepConfig struct {
	Interval duration `toml:"interval"`
	// SampleCadence designates every Nth sweep as a full sampling sweep
	// that refreshes the price oracle.
	SampleCadence int `toml:"sample_cadence"`
}

// OracleConfig holds price oracle parameters.
type OracleConfig struct {
	// CacheTTL bounds how long a cached estimate is trusted before the
	// lookup falls through to the history store.
	CacheTTL duration `toml:"cache_ttl"`
	// Exclusions are canonical item keys whose floors are never recorded.
	Exclusions []string `toml:"exclusions"`
}

// FlipsConfig holds flip detection parameters.
type FlipsConfig struct {
	// MinProfit is the minimum margin, in coins, for a listing to qualify.
	MinProfit float64 `toml:"min_profit"`
	// OutbidBuffer scales the highest bid of a non-BIN auction to estimate
	// what winning it would actually cost.
	OutbidBuffer float64 `toml:"outbid_buffer"`
	// ModifierDiscount scales modifier value when qualifying a flip, since
	// modifiers rarely resell at full material cost.
	ModifierDiscount float64 `toml:"modifier_discount"`
	IconBaseURL      string  `toml:"icon_base_url"`
	// NotifiedTTL is how long a listing id stays in the notified set.
	NotifiedTTL duration `toml:"notified_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hypixel: HypixelConfig{
			BaseURL:    "https://api.hypixel.net",
			RateLimit:  100,
			RateWindow: duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "skyflip",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:            false,
			Endpoint:           "http://localhost:9000",
			Region:             "us-east-1",
			Bucket:             "skyflip-archive",
			UseSSL:             false,
			ForcePathStyle:     true,
			Prefix:             "archive",
			PriceRetentionDays: 90,
		},
		Sweep: SweepConfig{
			Interval:      duration{60 * time.Second},
			SampleCadence: 6,
		},
		Oracle: OracleConfig{
			CacheTTL: duration{30 * time.Minute},
		},
		Flips: FlipsConfig{
			MinProfit:        100_000,
			OutbidBuffer:     1.15,
			ModifierDiscount: 0.9,
			IconBaseURL:      "https://sky.shiiyu.moe/item",
			NotifiedTTL:      duration{14 * 24 * time.Hour},
		},
		Aliases: map[string]string{},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"flip_found", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":   true,
	"sweep":  true,
	"server": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, sweep, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hypixel — sweeping modes need the upstream endpoint.
	sweeps := c.Mode == "full" || c.Mode == "sweep"
	if sweeps {
		if c.Hypixel.BaseURL == "" {
			errs = append(errs, "hypixel: base_url must not be empty")
		}
		if c.Hypixel.RateLimit > 0 && c.Hypixel.RateWindow.Duration <= 0 {
			errs = append(errs, "hypixel: rate_window must be positive when rate_limit is set")
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when archival is enabled.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.S3.PriceRetentionDays < 0 {
			errs = append(errs, "s3: price_retention_days must be >= 0")
		}
	}

	// Sweep
	if sweeps {
		if c.Sweep.Interval.Duration <= 0 {
			errs = append(errs, "sweep: interval must be positive")
		}
		if c.Sweep.SampleCadence < 1 {
			errs = append(errs, "sweep: sample_cadence must be >= 1")
		}
	}

	// Flips
	if c.Flips.MinProfit < 0 {
		errs = append(errs, "flips: min_profit must be >= 0")
	}
	if c.Flips.OutbidBuffer < 1 {
		errs = append(errs, "flips: outbid_buffer must be >= 1")
	}
	if c.Flips.ModifierDiscount < 0 || c.Flips.ModifierDiscount > 1 {
		errs = append(errs, "flips: modifier_discount must be within [0, 1]")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
