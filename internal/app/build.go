package app

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/config"
	"github.com/stakeforge/nftstake/internal/curve"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/token"
)

// addresses are the parsed addresses section.
type addresses struct {
	vault, treasury                  common.Address
	tokenPool, sharesPool, levelPool common.Address
}

func buildAddresses(c config.AddressesConfig) (addresses, error) {
	var out addresses
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"vault", c.Vault, &out.vault},
		{"treasury", c.Treasury, &out.treasury},
		{"token_pool", c.TokenPool, &out.tokenPool},
		{"shares_pool", c.SharesPool, &out.sharesPool},
		{"levels_pool", c.LevelsPool, &out.levelPool},
	}
	for _, f := range fields {
		addr, err := config.ParseAddress(f.raw)
		if err != nil {
			return out, fmt.Errorf("addresses.%s: %w", f.name, err)
		}
		*f.dst = addr
	}
	return out, nil
}

func buildCurve(c config.CurveConfig, decimals uint8) (*curve.Curve, error) {
	levels := curve.DefaultLevelTable(decimals)
	if len(c.Thresholds) > 0 {
		thresholds, err := token.ParseAmounts(c.Thresholds, decimals)
		if err != nil {
			return nil, fmt.Errorf("curve.thresholds%w", err)
		}
		if levels, err = curve.NewLevelTable(thresholds); err != nil {
			return nil, err
		}
	}
	tiers, err := curve.NewTierTable(c.TierCaps)
	if err != nil {
		return nil, err
	}
	return &curve.Curve{
		Levels: levels,
		Tiers:  tiers,
		Shares: curve.SharesFormula{
			Base:            c.SharesBase,
			PerLevel:        c.SharesPerLevel,
			PerLevelSquared: c.SharesPerLevelSquared,
		},
	}, nil
}

func buildSchedule(list []string, decimals uint8, fallback func(uint8) rewards.Schedule) (rewards.Schedule, error) {
	if len(list) == 0 {
		return fallback(decimals), nil
	}
	totals, err := token.ParseAmounts(list, decimals)
	if err != nil {
		return rewards.Schedule{}, err
	}
	return rewards.NewSchedule(totals), nil
}

func mintGenesis(t *token.Token, genesis []config.Allocation) error {
	for i, a := range genesis {
		addr, err := config.ParseAddress(a.Address)
		if err != nil {
			return fmt.Errorf("token.genesis[%d]: %w", i, err)
		}
		amount, err := token.ParseAmount(a.Amount, t.Decimals())
		if err != nil {
			return fmt.Errorf("token.genesis[%d]: %w", i, err)
		}
		if err := t.Mint(addr, amount); err != nil {
			return fmt.Errorf("token.genesis[%d]: %w", i, err)
		}
	}
	return nil
}

func parseDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
