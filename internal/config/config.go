package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel      string        `yaml:"log_level"`
	WatchInterval time.Duration `yaml:"watch_interval"`

	Ledger    LedgerConfig    `yaml:"ledger"`
	Token     TokenConfig     `yaml:"token"`
	Curve     CurveConfig     `yaml:"curve"`
	Allowance AllowanceConfig `yaml:"allowance"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Addresses AddressesConfig `yaml:"addresses"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	API       APIConfig       `yaml:"api"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LedgerConfig struct {
	Start       time.Time     `yaml:"start"`
	MonthLength time.Duration `yaml:"month_length"`
	LockPeriod  time.Duration `yaml:"lock_period"`
}

// Allocation credits an address at startup. Amount is in whole tokens.
type Allocation struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

type TokenConfig struct {
	Symbol   string       `yaml:"symbol"`
	Decimals uint8        `yaml:"decimals"`
	Genesis  []Allocation `yaml:"genesis"`
}

// CurveConfig describes levels and tiers. An empty Thresholds list selects
// the quadratic default (50*L^2 + 500*L whole tokens).
type CurveConfig struct {
	Thresholds            []string `yaml:"thresholds"`
	TierCaps              []int    `yaml:"tier_caps"`
	SharesBase            uint64   `yaml:"shares_base"`
	SharesPerLevel        uint64   `yaml:"shares_per_level"`
	SharesPerLevelSquared uint64   `yaml:"shares_per_level_squared"`
}

type AllowanceConfig struct {
	Daily string        `yaml:"daily"`
	Day   time.Duration `yaml:"day"`
}

// RewardsConfig holds per-month totals in whole tokens. Empty schedules
// select the built-in 40-month step schedules.
type RewardsConfig struct {
	TokenSchedule  []string `yaml:"token_schedule"`
	SharesSchedule []string `yaml:"shares_schedule"`
	LevelsMonths   uint64   `yaml:"levels_months"`
	LevelReward    string   `yaml:"level_reward"`
}

type AddressesConfig struct {
	Vault      string `yaml:"vault"`
	Treasury   string `yaml:"treasury"`
	TokenPool  string `yaml:"token_pool"`
	SharesPool string `yaml:"shares_pool"`
	LevelsPool string `yaml:"levels_pool"`
}

func Default() Config {
	return Config{
		LogLevel:      "info",
		WatchInterval: time.Minute,
		Ledger: LedgerConfig{
			Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			MonthLength: 30 * 24 * time.Hour,
			LockPeriod:  180 * 24 * time.Hour,
		},
		Token: TokenConfig{
			Symbol:   "STK",
			Decimals: 18,
			Genesis: []Allocation{
				{Address: "0x000000000000000000000000000000000000fee1", Amount: "100000000"},
				{Address: "0x000000000000000000000000000000000000fee2", Amount: "50000000"},
				{Address: "0x000000000000000000000000000000000000fee3", Amount: "50000000"},
				{Address: "0x000000000000000000000000000000000000fee4", Amount: "50000000"},
			},
		},
		Curve: CurveConfig{
			TierCaps:              []int{10, 20, 30, 40, 50, 60, 70, 75, 80},
			SharesBase:            1000,
			SharesPerLevel:        50,
			SharesPerLevelSquared: 2,
		},
		Allowance: AllowanceConfig{
			Daily: "1000",
			Day:   24 * time.Hour,
		},
		Rewards: RewardsConfig{
			LevelsMonths: 40,
			LevelReward:  "10",
		},
		Addresses: AddressesConfig{
			Vault:      "0x000000000000000000000000000000000000fee0",
			Treasury:   "0x000000000000000000000000000000000000fee1",
			TokenPool:  "0x000000000000000000000000000000000000fee2",
			SharesPool: "0x000000000000000000000000000000000000fee3",
			LevelsPool: "0x000000000000000000000000000000000000fee4",
		},
		API: APIConfig{
			Addr: ":8080",
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("NFTSTAKE_API_ADDR")); v != "" {
		c.API.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("NFTSTAKE_API_ENABLED")); v != "" {
		c.API.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("NFTSTAKE_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("NFTSTAKE_START")); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.Ledger.Start = t
		}
	}
}
