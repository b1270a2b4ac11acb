package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SKYFLIP_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SKYFLIP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Hypixel ──
	setStr(&cfg.Hypixel.BaseURL, "SKYFLIP_HYPIXEL_BASE_URL")
	setStr(&cfg.Hypixel.APIKey, "SKYFLIP_HYPIXEL_API_KEY")
	setInt(&cfg.Hypixel.RateLimit, "SKYFLIP_HYPIXEL_RATE_LIMIT")
	setDuration(&cfg.Hypixel.RateWindow, "SKYFLIP_HYPIXEL_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SKYFLIP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SKYFLIP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SKYFLIP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SKYFLIP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SKYFLIP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SKYFLIP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SKYFLIP_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SKYFLIP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SKYFLIP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SKYFLIP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SKYFLIP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SKYFLIP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SKYFLIP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SKYFLIP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SKYFLIP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SKYFLIP_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SKYFLIP_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SKYFLIP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SKYFLIP_S3_REGION")
	setStr(&cfg.S3.Bucket, "SKYFLIP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SKYFLIP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SKYFLIP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SKYFLIP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SKYFLIP_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "SKYFLIP_S3_PREFIX")
	setInt(&cfg.S3.PriceRetentionDays, "SKYFLIP_S3_PRICE_RETENTION_DAYS")

	// ── Sweep ──
	setDuration(&cfg.Sweep.Interval, "SKYFLIP_SWEEP_INTERVAL")
	setInt(&cfg.Sweep.SampleCadence, "SKYFLIP_SWEEP_SAMPLE_CADENCE")

	// ── Oracle ──
	setDuration(&cfg.Oracle.CacheTTL, "SKYFLIP_ORACLE_CACHE_TTL")
	setStringSlice(&cfg.Oracle.Exclusions, "SKYFLIP_ORACLE_EXCLUSIONS")

	// ── Flips ──
	setFloat64(&cfg.Flips.MinProfit, "SKYFLIP_FLIPS_MIN_PROFIT")
	setFloat64(&cfg.Flips.OutbidBuffer, "SKYFLIP_FLIPS_OUTBID_BUFFER")
	setFloat64(&cfg.Flips.ModifierDiscount, "SKYFLIP_FLIPS_MODIFIER_DISCOUNT")
	setStr(&cfg.Flips.IconBaseURL, "SKYFLIP_FLIPS_ICON_BASE_URL")
	setDuration(&cfg.Flips.NotifiedTTL, "SKYFLIP_FLIPS_NOTIFIED_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SKYFLIP_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SKYFLIP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SKYFLIP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SKYFLIP_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SKYFLIP_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SKYFLIP_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SKYFLIP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SKYFLIP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SKYFLIP_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SKYFLIP_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SKYFLIP_MODE")
	setStr(&cfg.LogLevel, "SKYFLIP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
