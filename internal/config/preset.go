package config

import (
	"fmt"
	"strings"
	"time"
)

// ApplyPreset applies a deployment preset to the config.
// Supported presets:
// - mainnet: configured values, unchanged
// - devnet:  ten-minute months and short locks for local testing
// - replay:  devnet timings with the API enabled and debug logging
func ApplyPreset(cfg *Config, preset string) error {
	p := strings.ToLower(strings.TrimSpace(preset))
	if p == "" {
		return nil
	}

	switch p {
	case "mainnet", "production":
	case "devnet", "dev":
		compress(cfg)
	case "replay":
		compress(cfg)
		cfg.API.Enabled = true
		cfg.LogLevel = "debug"
	default:
		return fmt.Errorf("unknown preset %q (supported: mainnet|devnet|replay)", preset)
	}
	return nil
}

// compress scales the calendar down so a month passes in ten minutes.
func compress(cfg *Config) {
	clampMax(&cfg.Ledger.MonthLength, 10*time.Minute)
	clampMax(&cfg.Ledger.LockPeriod, time.Hour)
	clampMax(&cfg.Allowance.Day, 20*time.Second)
	clampMax(&cfg.WatchInterval, 5*time.Second)
}

func clampMax(v *time.Duration, max time.Duration) {
	if *v <= 0 || *v > max {
		*v = max
	}
}
