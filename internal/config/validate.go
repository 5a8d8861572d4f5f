package config

import (
	"fmt"
	"strings"

	"github.com/stakeforge/nftstake/internal/curve"
	"github.com/stakeforge/nftstake/internal/token"
)

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "info", "debug":
	default:
		return fmt.Errorf("log_level must be 'info' or 'debug', got %q", c.LogLevel)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be > 0, got %v", c.WatchInterval)
	}

	if c.Ledger.Start.IsZero() {
		return fmt.Errorf("ledger.start must be set")
	}
	if c.Ledger.MonthLength <= 0 {
		return fmt.Errorf("ledger.month_length must be > 0, got %v", c.Ledger.MonthLength)
	}
	if c.Ledger.LockPeriod < 0 {
		return fmt.Errorf("ledger.lock_period must be >= 0, got %v", c.Ledger.LockPeriod)
	}

	if c.Token.Decimals > 36 {
		return fmt.Errorf("token.decimals must be <= 36, got %d", c.Token.Decimals)
	}
	for i, a := range c.Token.Genesis {
		if _, err := ParseAddress(a.Address); err != nil {
			return fmt.Errorf("token.genesis[%d]: %w", i, err)
		}
		if _, err := token.ParseAmount(a.Amount, c.Token.Decimals); err != nil {
			return fmt.Errorf("token.genesis[%d]: %w", i, err)
		}
	}

	if n := len(c.Curve.Thresholds); n != 0 && n != curve.MaxLevel+1 {
		return fmt.Errorf("curve.thresholds must list %d entries, got %d", curve.MaxLevel+1, n)
	}
	if _, err := token.ParseAmounts(c.Curve.Thresholds, c.Token.Decimals); err != nil {
		return fmt.Errorf("curve.thresholds%w", err)
	}
	if len(c.Curve.TierCaps) != curve.MaxTier+1 {
		return fmt.Errorf("curve.tier_caps must list %d entries, got %d", curve.MaxTier+1, len(c.Curve.TierCaps))
	}

	if _, err := token.ParseAmount(c.Allowance.Daily, c.Token.Decimals); err != nil {
		return fmt.Errorf("allowance.daily: %w", err)
	}
	if c.Allowance.Day <= 0 {
		return fmt.Errorf("allowance.day must be > 0, got %v", c.Allowance.Day)
	}

	if _, err := token.ParseAmounts(c.Rewards.TokenSchedule, c.Token.Decimals); err != nil {
		return fmt.Errorf("rewards.token_schedule%w", err)
	}
	if _, err := token.ParseAmounts(c.Rewards.SharesSchedule, c.Token.Decimals); err != nil {
		return fmt.Errorf("rewards.shares_schedule%w", err)
	}
	if _, err := token.ParseAmount(c.Rewards.LevelReward, c.Token.Decimals); err != nil {
		return fmt.Errorf("rewards.level_reward: %w", err)
	}

	addrs := map[string]string{
		"vault":       c.Addresses.Vault,
		"treasury":    c.Addresses.Treasury,
		"token_pool":  c.Addresses.TokenPool,
		"shares_pool": c.Addresses.SharesPool,
		"levels_pool": c.Addresses.LevelsPool,
	}
	for name, a := range addrs {
		if _, err := ParseAddress(a); err != nil {
			return fmt.Errorf("addresses.%s: %w", name, err)
		}
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.enabled requires bot_token and chat_id")
	}
	return nil
}
