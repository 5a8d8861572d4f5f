package pools

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/rewards"
)

// Pool is a reward distributor funded from a single address.
type Pool interface {
	Name() string
	Pool() common.Address
	Strategy() rewards.Strategy
}

type Balances interface {
	BalanceOf(addr common.Address) *uint256.Int
}

type Months interface {
	CurrentMonth() uint64
}

// Status compares a pool's balance with what its strategy emits in Month.
type Status struct {
	Strategy  string
	Address   common.Address
	Month     uint64
	Due       *uint256.Int
	Balance   *uint256.Int
	Shortfall bool
}

// Tracker periodically checks that every reward pool covers the current
// month's emission.
type Tracker struct {
	pools        []Pool
	balances     Balances
	months       Months
	mu           sync.RWMutex
	status       []Status
	lastSync     time.Time
	syncInterval time.Duration
}

func NewTracker(pools []Pool, balances Balances, months Months, syncInterval time.Duration) *Tracker {
	return &Tracker{
		pools:        pools,
		balances:     balances,
		months:       months,
		syncInterval: syncInterval,
	}
}

// Check computes pool status for month without touching the cache.
func (t *Tracker) Check(month uint64) ([]Status, error) {
	out := make([]Status, 0, len(t.pools))
	for _, p := range t.pools {
		due, err := p.Strategy().RewardTotalMonth(month)
		if err != nil {
			return nil, fmt.Errorf("pool %s month %d: %w", p.Name(), month, err)
		}
		balance := t.balances.BalanceOf(p.Pool())
		out = append(out, Status{
			Strategy:  p.Name(),
			Address:   p.Pool(),
			Month:     month,
			Due:       due,
			Balance:   balance,
			Shortfall: balance.Lt(due),
		})
	}
	return out, nil
}

func (t *Tracker) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status, err := t.Check(t.months.CurrentMonth())
	if err != nil {
		return err
	}
	for _, s := range status {
		if s.Shortfall {
			log.Printf("pool %s (%s) short for month %d: due=%s balance=%s",
				s.Strategy, s.Address.Hex(), s.Month, s.Due.Dec(), s.Balance.Dec())
		}
	}

	t.mu.Lock()
	t.status = status
	t.lastSync = time.Now()
	t.mu.Unlock()
	return nil
}

// Status returns the cached result of the last sync.
func (t *Tracker) Status() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Status(nil), t.status...)
}

// Shortfalls names the pools that could not cover the last synced month.
func (t *Tracker) Shortfalls() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, s := range t.status {
		if s.Shortfall {
			out = append(out, s.Strategy)
		}
	}
	return out
}

func (t *Tracker) LastSync() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSync
}

func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Sync(ctx); err != nil {
		log.Printf("pool tracker initial sync: %v", err)
	}

	ticker := time.NewTicker(t.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.Sync(ctx); err != nil {
				log.Printf("pool tracker sync: %v", err)
			}
		}
	}
}
