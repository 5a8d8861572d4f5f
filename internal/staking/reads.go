package staking

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/ledger"
	"github.com/stakeforge/nftstake/internal/throttle"
)

// View is the current state of a live position.
type View struct {
	ID          uint64
	Owner       common.Address
	Tier        int
	TierCap     int
	Level       int
	Shares      uint64
	Staked      *uint256.Int
	Minimum     *uint256.Int
	Floor       *uint256.Int
	MintedMonth uint64
	MintedAt    time.Time
	UnlocksAt   time.Time
}

func (r *Registry) CurrentMonth() uint64 { return r.ledger.CurrentMonth() }

// Position returns the live position. Destroyed positions are an error.
func (r *Registry) Position(id uint64) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.live(id)
	if err != nil {
		return View{}, err
	}
	cur, err := r.ledger.Current(id)
	if err != nil {
		return View{}, err
	}
	minted, err := r.ledger.CreatedAt(id)
	if err != nil {
		return View{}, err
	}
	return View{
		ID:          id,
		Owner:       p.owner,
		Tier:        p.tier,
		TierCap:     r.curve.Tiers.Cap(p.tier),
		Level:       int(cur.Levels),
		Shares:      cur.Shares,
		Staked:      new(uint256.Int).Set(&cur.Staked),
		Minimum:     new(uint256.Int).Set(&cur.Minimum),
		Floor:       r.curve.Floor(int(cur.Levels)),
		MintedMonth: minted,
		MintedAt:    p.mintedAt,
		UnlocksAt:   p.mintedAt.Add(p.lockPeriod),
	}, nil
}

// Owner returns the owner of a live position.
func (r *Registry) Owner(id uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.live(id)
	if err != nil {
		return common.Address{}, err
	}
	return p.owner, nil
}

// StakedAt returns the position's record for month. Months from destruction
// on are not found; earlier months stay readable.
func (r *Registry) StakedAt(id uint64, month uint64) (ledger.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.EntityAt(id, month)
}

// GlobalAt returns the aggregate over all live positions for month.
func (r *Registry) GlobalAt(month uint64) (ledger.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.GlobalAt(month)
}

// CreatedMonth returns the month id was minted in, destroyed or not.
func (r *Registry) CreatedMonth(id uint64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.CreatedAt(id)
}

// DestroyedMonth reports when id was destroyed.
func (r *Registry) DestroyedMonth(id uint64) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.DestroyedAt(id)
}

// StakingAllowance returns how much the owner may stake right now. unlimited
// is true at max level.
func (r *Registry) StakingAllowance(id uint64) (amount *uint256.Int, unlimited bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.live(id)
	if err != nil {
		return nil, false, err
	}
	cur, err := r.ledger.Current(id)
	if err != nil {
		return nil, false, err
	}
	in := throttle.Input{MintedAt: p.mintedAt, Seed: p.seed, Staked: cur.Staked, Level: int(cur.Levels)}
	amount, unlimited = r.throttle.Allowance(in, r.ledger.Clock().Now())
	return amount, unlimited, nil
}

// IDs lists every minted id, live or destroyed.
func (r *Registry) IDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledger.IDs()
}

// LiveCount is the number of positions not yet destroyed.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for id := range r.positions {
		if _, gone := r.ledger.DestroyedAt(id); !gone {
			n++
		}
	}
	return n
}


func (v View) String() string {
	return fmt.Sprintf("nft=%d owner=%s tier=%d level=%d shares=%d staked=%s", v.ID, v.Owner.Hex(), v.Tier, v.Level, v.Shares, v.Staked.Dec())
}
