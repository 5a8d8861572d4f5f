package throttle

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/curve"
	"github.com/stakeforge/nftstake/internal/errs"
)

var ErrAllowanceExceeded = fmt.Errorf("%w: staking allowance exceeded", errs.ErrInvariant)

type Config struct {
	DailyAllowance uint256.Int
	Day            time.Duration // accrual period, defaults to 24h
}

// Input is the position state the allowance is computed from.
type Input struct {
	MintedAt time.Time
	Seed     uint256.Int
	Staked   uint256.Int
	Level    int
}

// Throttle caps how fast a position may be staked up before max level.
type Throttle struct {
	cfg   Config
	curve *curve.Curve
}

func New(cfg Config, c *curve.Curve) *Throttle {
	if cfg.Day <= 0 {
		cfg.Day = 24 * time.Hour
	}
	return &Throttle{cfg: cfg, curve: c}
}

// Allowance returns how much may be staked now. unlimited is true once the
// position is at max level, in which case amount is nil.
func (t *Throttle) Allowance(in Input, now time.Time) (amount *uint256.Int, unlimited bool) {
	if in.Level >= curve.MaxLevel {
		return nil, true
	}
	var days uint64
	if now.After(in.MintedAt) {
		days = uint64(now.Sub(in.MintedAt) / t.cfg.Day)
	}
	accrued, overflow := new(uint256.Int).MulOverflow(&t.cfg.DailyAllowance, uint256.NewInt(days))
	if overflow {
		accrued.SetAllOne()
	}

	beyondSeed := new(uint256.Int)
	if in.Staked.Gt(&in.Seed) {
		beyondSeed.Sub(&in.Staked, &in.Seed)
	}
	avail := new(uint256.Int)
	if accrued.Gt(beyondSeed) {
		avail.Sub(accrued, beyondSeed)
	}

	if headroom := t.curve.Headroom(&in.Staked); avail.Gt(headroom) {
		avail = headroom
	}
	return avail, false
}

// Allow reports whether amount fits the current allowance.
func (t *Throttle) Allow(in Input, now time.Time, amount *uint256.Int) error {
	avail, unlimited := t.Allowance(in, now)
	if unlimited {
		return nil
	}
	if amount.Gt(avail) {
		return fmt.Errorf("%w: requested %s, available %s", ErrAllowanceExceeded, amount.Dec(), avail.Dec())
	}
	return nil
}
