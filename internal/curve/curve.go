package curve

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/errs"
)

const (
	MaxLevel = 80
	MaxTier  = 8
)

// LevelTable maps a staked amount to a level. thresholds[L] is the minimum
// amount for level L; thresholds[0] is always zero.
type LevelTable struct {
	thresholds []uint256.Int
}

func NewLevelTable(thresholds []uint256.Int) (*LevelTable, error) {
	if len(thresholds) != MaxLevel+1 {
		return nil, fmt.Errorf("%w: level table needs %d thresholds, got %d", errs.ErrValidation, MaxLevel+1, len(thresholds))
	}
	if !thresholds[0].IsZero() {
		return nil, fmt.Errorf("%w: level 0 threshold must be zero", errs.ErrValidation)
	}
	for i := 1; i < len(thresholds); i++ {
		if !thresholds[i].Gt(&thresholds[i-1]) {
			return nil, fmt.Errorf("%w: level thresholds must be strictly increasing at level %d", errs.ErrValidation, i)
		}
	}
	out := make([]uint256.Int, len(thresholds))
	copy(out, thresholds)
	return &LevelTable{thresholds: out}, nil
}

// DefaultLevelTable builds the 50·L² + 500·L whole-token curve.
func DefaultLevelTable(decimals uint8) *LevelTable {
	unit := Unit(decimals)
	thresholds := make([]uint256.Int, MaxLevel+1)
	for l := uint64(1); l <= MaxLevel; l++ {
		whole := uint256.NewInt(50*l*l + 500*l)
		thresholds[l].Mul(whole, unit)
	}
	return &LevelTable{thresholds: thresholds}
}

// Unit returns 10^decimals.
func Unit(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// Level returns the highest level whose threshold is <= amount.
func (t *LevelTable) Level(amount *uint256.Int) int {
	n := sort.Search(len(t.thresholds), func(i int) bool {
		return t.thresholds[i].Gt(amount)
	})
	return n - 1
}

// Threshold returns the minimum amount for level. Out-of-range levels clamp.
func (t *LevelTable) Threshold(level int) *uint256.Int {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return new(uint256.Int).Set(&t.thresholds[level])
}

// TierTable holds the level cap for each tier.
type TierTable struct {
	caps []int
}

func NewTierTable(caps []int) (*TierTable, error) {
	if len(caps) != MaxTier+1 {
		return nil, fmt.Errorf("%w: tier table needs %d caps, got %d", errs.ErrValidation, MaxTier+1, len(caps))
	}
	for i, c := range caps {
		if c < 0 || c > MaxLevel {
			return nil, fmt.Errorf("%w: tier %d cap %d outside [0,%d]", errs.ErrValidation, i, c, MaxLevel)
		}
		if i > 0 && c < caps[i-1] {
			return nil, fmt.Errorf("%w: tier caps must be non-decreasing at tier %d", errs.ErrValidation, i)
		}
	}
	if caps[MaxTier] != MaxLevel {
		return nil, fmt.Errorf("%w: top tier must reach level %d", errs.ErrValidation, MaxLevel)
	}
	return &TierTable{caps: append([]int(nil), caps...)}, nil
}

func DefaultTierTable() *TierTable {
	return &TierTable{caps: []int{10, 20, 30, 40, 50, 60, 70, 75, 80}}
}

func (t *TierTable) Cap(tier int) int {
	if tier < 0 {
		return t.caps[0]
	}
	if tier > MaxTier {
		return t.caps[MaxTier]
	}
	return t.caps[tier]
}

// SharesFormula computes Base + PerLevel·L + PerLevelSquared·L².
type SharesFormula struct {
	Base            uint64
	PerLevel        uint64
	PerLevelSquared uint64
}

func DefaultShares() SharesFormula {
	return SharesFormula{Base: 1000, PerLevel: 50, PerLevelSquared: 2}
}

func (f SharesFormula) Of(level int) uint64 {
	if level < 0 {
		level = 0
	}
	l := uint64(level)
	return f.Base + f.PerLevel*l + f.PerLevelSquared*l*l
}

// Curve combines the level and tier tables with the shares formula.
type Curve struct {
	Levels *LevelTable
	Tiers  *TierTable
	Shares SharesFormula
}

func Default(decimals uint8) *Curve {
	return &Curve{
		Levels: DefaultLevelTable(decimals),
		Tiers:  DefaultTierTable(),
		Shares: DefaultShares(),
	}
}

func (c *Curve) LevelUncapped(amount *uint256.Int) int {
	return c.Levels.Level(amount)
}

func (c *Curve) LevelCapped(amount *uint256.Int, tier int) int {
	return min(c.Levels.Level(amount), c.Tiers.Cap(tier))
}

func (c *Curve) SharesAt(amount *uint256.Int, tier int) uint64 {
	return c.Shares.Of(c.LevelCapped(amount, tier))
}

// Floor is the smallest balance that still sustains level.
func (c *Curve) Floor(level int) *uint256.Int {
	return c.Levels.Threshold(level)
}

// EvolveTarget returns the smallest tier above tier whose cap exceeds level.
// ok is false when no tier offers an improvement.
func (c *Curve) EvolveTarget(tier, level int) (next int, ok bool) {
	for t := tier + 1; t <= MaxTier; t++ {
		if c.Tiers.Cap(t) > level {
			return t, true
		}
	}
	return tier, false
}

// Headroom is the amount still needed to reach MaxLevel, zero once reached.
func (c *Curve) Headroom(staked *uint256.Int) *uint256.Int {
	top := c.Levels.Threshold(MaxLevel)
	if !top.Gt(staked) {
		return new(uint256.Int)
	}
	return top.Sub(top, staked)
}
