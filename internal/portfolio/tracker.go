package portfolio

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/staking"
)

// Positions lists and reads staking positions.
type Positions interface {
	IDs() []uint64
	Position(id uint64) (staking.View, error)
}

// Claims reports pending rewards per position.
type Claims interface {
	Claimable(id uint64) (rewards.Breakdown, error)
}

type Holding struct {
	ID        uint64
	Tier      int
	Level     int
	Staked    *uint256.Int
	Claimable *uint256.Int
}

// Summary is everything one owner holds.
type Summary struct {
	Owner          common.Address
	Holdings       []Holding
	TotalStaked    *uint256.Int
	TotalClaimable *uint256.Int
}

// PortfolioTracker periodically rebuilds per-owner holdings from the registry.
type PortfolioTracker struct {
	positions    Positions
	claims       Claims
	mu           sync.RWMutex
	owners       map[common.Address]Summary
	totalStaked  uint256.Int
	lastSync     time.Time
	syncInterval time.Duration
}

// NewTracker creates a PortfolioTracker that syncs at the given interval.
// claims may be nil, in which case claimable amounts are zero.
func NewTracker(positions Positions, claims Claims, syncInterval time.Duration) *PortfolioTracker {
	return &PortfolioTracker{
		positions:    positions,
		claims:       claims,
		owners:       make(map[common.Address]Summary),
		syncInterval: syncInterval,
	}
}

// Sync walks every live position and regroups them by owner.
func (t *PortfolioTracker) Sync(ctx context.Context) error {
	owners := make(map[common.Address]Summary)
	total := new(uint256.Int)
	for _, id := range t.positions.IDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := t.positions.Position(id)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				continue
			}
			return err
		}
		pending := new(uint256.Int)
		if t.claims != nil {
			b, err := t.claims.Claimable(id)
			if err != nil {
				log.Printf("portfolio: claimable %d: %v", id, err)
			} else if b.Total != nil {
				pending = b.Total
			}
		}

		s, ok := owners[v.Owner]
		if !ok {
			s = Summary{Owner: v.Owner, TotalStaked: new(uint256.Int), TotalClaimable: new(uint256.Int)}
		}
		s.Holdings = append(s.Holdings, Holding{ID: id, Tier: v.Tier, Level: v.Level, Staked: v.Staked, Claimable: pending})
		s.TotalStaked.Add(s.TotalStaked, v.Staked)
		s.TotalClaimable.Add(s.TotalClaimable, pending)
		owners[v.Owner] = s
		total.Add(total, v.Staked)
	}
	for _, s := range owners {
		sort.Slice(s.Holdings, func(i, j int) bool { return s.Holdings[i].ID < s.Holdings[j].ID })
	}

	t.mu.Lock()
	t.owners = owners
	t.totalStaked = *total
	t.lastSync = time.Now()
	t.mu.Unlock()
	return nil
}

// Owner returns the cached holdings of addr.
func (t *PortfolioTracker) Owner(addr common.Address) (Summary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.owners[addr]
	return s, ok
}

// OwnerCount returns how many distinct owners hold a live position.
func (t *PortfolioTracker) OwnerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.owners)
}

// TotalStaked returns the cached sum over all live positions.
func (t *PortfolioTracker) TotalStaked() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(&t.totalStaked)
}

// LastSync returns the time of the last successful sync.
func (t *PortfolioTracker) LastSync() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSync
}

// Run starts the periodic sync loop. Blocks until ctx is cancelled.
func (t *PortfolioTracker) Run(ctx context.Context) error {
	if err := t.Sync(ctx); err != nil {
		log.Printf("portfolio initial sync: %v", err)
	}

	ticker := time.NewTicker(t.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.Sync(ctx); err != nil {
				log.Printf("portfolio sync: %v", err)
			}
		}
	}
}
