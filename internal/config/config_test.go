package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"zero sweep interval", func(c *Config) { c.Sweep.Interval = duration{} }, "interval must be positive"},
		{"zero sample cadence", func(c *Config) { c.Sweep.SampleCadence = 0 }, "sample_cadence"},
		{"sub-even outbid buffer", func(c *Config) { c.Flips.OutbidBuffer = 0.5 }, "outbid_buffer"},
		{"discount above one", func(c *Config) { c.Flips.ModifierDiscount = 1.5 }, "modifier_discount"},
		{"s3 enabled without bucket", func(c *Config) { c.S3.Enabled = true; c.S3.Bucket = "" }, "bucket"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mut(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "sweep"

[hypixel]
api_key = "abc-123"

[sweep]
interval = "45s"
sample_cadence = 4

[aliases]
HYP = "HYPERION"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != "sweep" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.Hypixel.APIKey != "abc-123" {
		t.Fatalf("api key = %q", cfg.Hypixel.APIKey)
	}
	if cfg.Sweep.Interval.Duration != 45*time.Second {
		t.Fatalf("interval = %v", cfg.Sweep.Interval.Duration)
	}
	if cfg.Sweep.SampleCadence != 4 {
		t.Fatalf("cadence = %d", cfg.Sweep.SampleCadence)
	}
	if cfg.Aliases["HYP"] != "HYPERION" {
		t.Fatalf("aliases = %v", cfg.Aliases)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Fatalf("postgres port = %d", cfg.Postgres.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SKYFLIP_HYPIXEL_API_KEY", "env-key")
	t.Setenv("SKYFLIP_FLIPS_MIN_PROFIT", "250000")
	t.Setenv("SKYFLIP_SWEEP_INTERVAL", "2m")
	t.Setenv("SKYFLIP_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Hypixel.APIKey != "env-key" {
		t.Fatalf("api key = %q", cfg.Hypixel.APIKey)
	}
	if cfg.Flips.MinProfit != 250000 {
		t.Fatalf("min profit = %v", cfg.Flips.MinProfit)
	}
	if cfg.Sweep.Interval.Duration != 2*time.Minute {
		t.Fatalf("interval = %v", cfg.Sweep.Interval.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors = %v", cfg.Server.CORSOrigins)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Hypixel.APIKey = "secret"
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	red := RedactedConfig(&cfg)

	if red.Hypixel.APIKey != "***" || red.Postgres.Password != "***" || red.Notify.DiscordWebhookURL != "***" {
		t.Fatalf("secrets not redacted: %+v", red)
	}
	if cfg.Hypixel.APIKey != "secret" {
		t.Fatal("redaction mutated the original")
	}
}
