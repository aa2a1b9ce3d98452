package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Season.Admin = "0xAdmin"
	return cfg
}

func TestDefaultsValidateWithAdmin(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"missing admin", func(c *Config) { c.Season.Admin = "" }, "admin"},
		{"zero window", func(c *Config) { c.Season.Window.Duration = 0 }, "window"},
		{"zero multiplier", func(c *Config) { c.Season.PayoutMultiplier = 0 }, "payout_multiplier"},
		{"zero threshold", func(c *Config) { c.Season.TriggerThreshold = 0 }, "trigger_threshold"},
		{"unknown backend", func(c *Config) { c.Chain.Backend = "solana" }, "backend"},
		{"evm without rpc", func(c *Config) {
			c.Chain.Backend = "evm"
			c.Chain.TokenAddress = "0x1"
			c.Chain.FeedAddress = "0x2"
			c.Wallet.PrivateKey = "ab"
		}, "rpc_url"},
		{"evm without key", func(c *Config) {
			c.Chain.Backend = "evm"
			c.Chain.RPCURL = "http://localhost:8545"
			c.Chain.TokenAddress = "0x1"
			c.Chain.FeedAddress = "0x2"
		}, "wallet"},
		{"bad postgres port", func(c *Config) { c.Postgres.Port = 99999 }, "port"},
		{"min over max conns", func(c *Config) { c.Postgres.PoolMinConns = 50 }, "pool_min_conns"},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis"},
		{"archive without bucket", func(c *Config) {
			c.Season.ArchiveEnabled = true
			c.S3.Bucket = ""
		}, "bucket"},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "server"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("err = %v, want mention of %q", err, tc.wantMsg)
			}
		})
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "server"

[season]
window = "48h"
admin = "0xAdmin"
initial_premium = 9
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CROPSHIELD_MODE", "simulate")
	t.Setenv("CROPSHIELD_SEASON_TRIGGER_THRESHOLD", "42")
	t.Setenv("CROPSHIELD_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// File values override defaults.
	if cfg.Season.Window.Duration != 48*time.Hour {
		t.Fatalf("window = %v, want 48h", cfg.Season.Window.Duration)
	}
	if cfg.Season.InitialPremium != 9 {
		t.Fatalf("initial premium = %d, want 9", cfg.Season.InitialPremium)
	}
	// Env overrides beat the file.
	if cfg.Mode != "simulate" {
		t.Fatalf("mode = %q, want simulate", cfg.Mode)
	}
	if cfg.Season.TriggerThreshold != 42 {
		t.Fatalf("threshold = %d, want 42", cfg.Season.TriggerThreshold)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	// Untouched defaults survive.
	if cfg.Season.PayoutMultiplier != 4 {
		t.Fatalf("multiplier = %d, want default 4", cfg.Season.PayoutMultiplier)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "secret"
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "tok"

	red := Redacted(&cfg)
	if red.Wallet.PrivateKey != "***" || red.Postgres.Password != "***" || red.Notify.TelegramToken != "***" {
		t.Fatalf("secrets not redacted: %+v", red)
	}
	// Empty fields stay empty rather than gaining a placeholder.
	if red.Redis.Password != "" {
		t.Fatalf("empty password became %q", red.Redis.Password)
	}
	// The original is untouched.
	if cfg.Wallet.PrivateKey != "secret" {
		t.Fatal("original mutated")
	}
}
