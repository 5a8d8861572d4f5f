package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Ledger.MonthLength != 30*24*time.Hour {
		t.Fatalf("expected 30 day months, got %v", cfg.Ledger.MonthLength)
	}
	if cfg.Ledger.LockPeriod != 180*24*time.Hour {
		t.Fatalf("expected 180 day lock, got %v", cfg.Ledger.LockPeriod)
	}
	if cfg.Token.Decimals != 18 {
		t.Fatalf("expected 18 decimals, got %d", cfg.Token.Decimals)
	}
	if len(cfg.Curve.TierCaps) != 9 || cfg.Curve.TierCaps[8] != 80 {
		t.Fatalf("unexpected tier caps %v", cfg.Curve.TierCaps)
	}
	if cfg.Allowance.Daily != "1000" {
		t.Fatalf("expected daily allowance 1000, got %q", cfg.Allowance.Daily)
	}
	if cfg.Rewards.LevelsMonths != 40 {
		t.Fatalf("expected 40 levels months, got %d", cfg.Rewards.LevelsMonths)
	}
	if cfg.API.Enabled {
		t.Fatal("expected api disabled by default")
	}
}

func TestLoadFromYAML(t *testing.T) {
	yaml := `
log_level: debug
ledger:
  start: 2025-03-01T00:00:00Z
  month_length: 720h
  lock_period: 24h
token:
  symbol: NFTS
  decimals: 6
  genesis:
    - address: "0x00000000000000000000000000000000000a11ce"
      amount: "1500.5"
curve:
  tier_caps: [5, 10, 20, 30, 40, 50, 60, 70, 80]
allowance:
  daily: "250"
rewards:
  token_schedule: ["100", "200"]
  level_reward: "2.5"
api:
  enabled: true
  addr: ":9090"
`
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte(yaml)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := LoadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
	if !cfg.Ledger.Start.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", cfg.Ledger.Start)
	}
	if cfg.Ledger.LockPeriod != 24*time.Hour {
		t.Fatalf("expected 24h lock, got %v", cfg.Ledger.LockPeriod)
	}
	if cfg.Token.Symbol != "NFTS" || cfg.Token.Decimals != 6 {
		t.Fatalf("unexpected token %+v", cfg.Token)
	}
	if len(cfg.Token.Genesis) != 1 || cfg.Token.Genesis[0].Amount != "1500.5" {
		t.Fatalf("unexpected genesis %+v", cfg.Token.Genesis)
	}
	if cfg.Curve.TierCaps[0] != 5 {
		t.Fatalf("expected tier 0 cap 5, got %d", cfg.Curve.TierCaps[0])
	}
	if cfg.Curve.SharesBase != 1000 {
		t.Fatalf("expected default shares base kept, got %d", cfg.Curve.SharesBase)
	}
	if len(cfg.Rewards.TokenSchedule) != 2 {
		t.Fatalf("expected 2 token schedule months, got %d", len(cfg.Rewards.TokenSchedule))
	}
	if !cfg.API.Enabled || cfg.API.Addr != ":9090" {
		t.Fatalf("unexpected api %+v", cfg.API)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestLoadFileInvalidPath(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	f, err := os.CreateTemp("", "bad-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte("{{invalid yaml")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = LoadFile(f.Name())
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestApplyEnvAllVars(t *testing.T) {
	t.Setenv("NFTSTAKE_API_ADDR", "127.0.0.1:7000")
	t.Setenv("NFTSTAKE_API_ENABLED", "1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("NFTSTAKE_LOG_LEVEL", "DEBUG")
	t.Setenv("NFTSTAKE_START", "2026-01-01T00:00:00Z")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.API.Addr != "127.0.0.1:7000" {
		t.Fatalf("expected api addr from env, got %s", cfg.API.Addr)
	}
	if !cfg.API.Enabled {
		t.Fatal("expected api enabled from env '1'")
	}
	if cfg.Telegram.BotToken != "bot-token" || cfg.Telegram.ChatID != "42" {
		t.Fatalf("unexpected telegram %+v", cfg.Telegram)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
	}
	if !cfg.Ledger.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", cfg.Ledger.Start)
	}
}

func TestApplyEnvIgnoresBadStart(t *testing.T) {
	t.Setenv("NFTSTAKE_START", "yesterday")
	cfg := Default()
	want := cfg.Ledger.Start
	cfg.ApplyEnv()
	if !cfg.Ledger.Start.Equal(want) {
		t.Fatalf("expected start unchanged, got %v", cfg.Ledger.Start)
	}
}

func TestApplyEnvAPIDisabled(t *testing.T) {
	t.Setenv("NFTSTAKE_API_ENABLED", "false")
	cfg := Default()
	cfg.API.Enabled = true
	cfg.ApplyEnv()
	if cfg.API.Enabled {
		t.Fatal("expected api disabled from env 'false'")
	}
}
