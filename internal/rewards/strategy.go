package rewards

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/ledger"
)

// Snapshots is the read side of the staking registry that strategies use.
type Snapshots interface {
	CurrentMonth() uint64
	StakedAt(id, month uint64) (ledger.Record, error)
	GlobalAt(month uint64) (ledger.Record, error)
	CreatedMonth(id uint64) (uint64, error)
}

// Strategy prices one reward pool. Entitlement for month m is always derived
// from the frozen month m-1 snapshot.
type Strategy interface {
	Name() string
	RewardTotalMonth(month uint64) (*uint256.Int, error)
	RewardNftIDMonth(id, month uint64) (*uint256.Int, error)
}

// frozen returns the NFT and global records that month's entitlement reads.
func frozen(s Snapshots, id, month uint64) (nft, global ledger.Record, err error) {
	if err := checkMonth(s, month); err != nil {
		return nft, global, err
	}
	if month == 0 {
		return nft, global, fmt.Errorf("%w: no snapshot precedes month 0", ErrMonthNotRecorded)
	}
	if nft, err = s.StakedAt(id, month-1); err != nil {
		return nft, global, err
	}
	global, err = s.GlobalAt(month - 1)
	return nft, global, err
}

func frozenGlobal(s Snapshots, month uint64) (ledger.Record, bool, error) {
	if err := checkMonth(s, month); err != nil {
		return ledger.Record{}, false, err
	}
	if month == 0 {
		return ledger.Record{}, false, nil
	}
	g, err := s.GlobalAt(month - 1)
	return g, err == nil, err
}

func checkMonth(s Snapshots, month uint64) error {
	if cur := s.CurrentMonth(); month > cur {
		return fmt.Errorf("%w: month %d, current %d", ErrFutureMonth, month, cur)
	}
	return nil
}

// proRata returns total * part / whole, truncated; zero when whole is zero.
func proRata(total, part, whole *uint256.Int) *uint256.Int {
	if whole.IsZero() || total.IsZero() || part.IsZero() {
		return new(uint256.Int)
	}
	// part <= whole, so the quotient always fits.
	out, _ := new(uint256.Int).MulDivOverflow(total, part, whole)
	return out
}

func levelReward(levels uint64, perLevel *uint256.Int) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(levels), perLevel)
}

// TokenStrategy splits a scheduled total by each NFT's share of the global
// minimum balance.
type TokenStrategy struct {
	snaps    Snapshots
	schedule Schedule
}

func NewTokenStrategy(snaps Snapshots, schedule Schedule) *TokenStrategy {
	return &TokenStrategy{snaps: snaps, schedule: schedule}
}

func (s *TokenStrategy) Name() string { return "token" }

func (s *TokenStrategy) RewardTotalMonth(month uint64) (*uint256.Int, error) {
	if err := checkMonth(s.snaps, month); err != nil {
		return nil, err
	}
	return s.schedule.Total(month), nil
}

func (s *TokenStrategy) RewardNftIDMonth(id, month uint64) (*uint256.Int, error) {
	nft, global, err := frozen(s.snaps, id, month)
	if err != nil {
		return nil, err
	}
	return proRata(s.schedule.Total(month), &nft.Minimum, &global.Minimum), nil
}

// SharesStrategy pays a level-linear component every month plus a scheduled
// total split by shares.
type SharesStrategy struct {
	snaps    Snapshots
	schedule Schedule
	perLevel uint256.Int
}

func NewSharesStrategy(snaps Snapshots, schedule Schedule, perLevel *uint256.Int) *SharesStrategy {
	return &SharesStrategy{snaps: snaps, schedule: schedule, perLevel: *perLevel}
}

func (s *SharesStrategy) Name() string { return "shares" }

func (s *SharesStrategy) RewardTotalMonth(month uint64) (*uint256.Int, error) {
	g, ok, err := frozenGlobal(s.snaps, month)
	if err != nil {
		return nil, err
	}
	total := s.schedule.Total(month)
	if ok {
		total.Add(total, levelReward(g.Levels, &s.perLevel))
	}
	return total, nil
}

func (s *SharesStrategy) RewardNftIDMonth(id, month uint64) (*uint256.Int, error) {
	nft, global, err := frozen(s.snaps, id, month)
	if err != nil {
		return nil, err
	}
	levels := levelReward(nft.Levels, &s.perLevel)
	shares := proRata(s.schedule.Total(month), uint256.NewInt(nft.Shares), uint256.NewInt(global.Shares))
	return levels.Add(levels, shares), nil
}

// LevelsStrategy pays a fixed amount per level during a bounded window.
type LevelsStrategy struct {
	snaps    Snapshots
	months   uint64
	perLevel uint256.Int
}

func NewLevelsStrategy(snaps Snapshots, months uint64, perLevel *uint256.Int) *LevelsStrategy {
	return &LevelsStrategy{snaps: snaps, months: months, perLevel: *perLevel}
}

func (s *LevelsStrategy) Name() string { return "levels" }

func (s *LevelsStrategy) active(month uint64) bool {
	return month >= 1 && month <= s.months
}

func (s *LevelsStrategy) RewardTotalMonth(month uint64) (*uint256.Int, error) {
	g, ok, err := frozenGlobal(s.snaps, month)
	if err != nil {
		return nil, err
	}
	if !ok || !s.active(month) {
		return new(uint256.Int), nil
	}
	return levelReward(g.Levels, &s.perLevel), nil
}

func (s *LevelsStrategy) RewardNftIDMonth(id, month uint64) (*uint256.Int, error) {
	nft, _, err := frozen(s.snaps, id, month)
	if err != nil {
		return nil, err
	}
	if !s.active(month) {
		return new(uint256.Int), nil
	}
	return levelReward(nft.Levels, &s.perLevel), nil
}
