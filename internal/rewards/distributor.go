package rewards

import (
	"fmt"
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/staking"
)

// Positions is what a distributor needs from the staking registry.
type Positions interface {
	Snapshots
	Owner(id uint64) (common.Address, error)
	Restake(id uint64, payouts []staking.Payout) (*uint256.Int, error)
}

// Distributor pays out one strategy's rewards by restaking them into the
// position. Funds come from pool.
type Distributor struct {
	mu       sync.Mutex
	strategy Strategy
	pool     common.Address
	reg      Positions
	claims   *ClaimLedger
	journal  *journal.Journal
}

func NewDistributor(s Strategy, pool common.Address, reg Positions, j *journal.Journal) *Distributor {
	return &Distributor{strategy: s, pool: pool, reg: reg, claims: NewClaimLedger(), journal: j}
}

func (d *Distributor) Name() string { return d.strategy.Name() }

func (d *Distributor) Strategy() Strategy { return d.strategy }

func (d *Distributor) Pool() common.Address { return d.pool }

// Claimable is the sum of monthly entitlements after the last claimed month
// up to and including the current month.
func (d *Distributor) Claimable(id uint64) (*uint256.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimableLocked(id, d.reg.CurrentMonth())
}

// Record returns the claim bookkeeping for id.
func (d *Distributor) Record(id uint64) (ClaimRecord, error) {
	minted, err := d.reg.CreatedMonth(id)
	if err != nil {
		return ClaimRecord{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claims.Get(id, minted), nil
}

// Claim credits the caller's NFT with everything claimable and restakes it.
// A zero claim changes nothing.
func (d *Distributor) Claim(caller common.Address, id uint64) (*uint256.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkOwner(d.reg, caller, id); err != nil {
		return nil, fmt.Errorf("claim %s %d: %w", d.Name(), id, err)
	}
	cur := d.reg.CurrentMonth()
	amount, err := d.claimableLocked(id, cur)
	if err != nil {
		return nil, fmt.Errorf("claim %s %d: %w", d.Name(), id, err)
	}
	if amount.IsZero() {
		return amount, nil
	}
	if _, err := d.reg.Restake(id, []staking.Payout{{From: d.pool, Amount: amount}}); err != nil {
		return nil, fmt.Errorf("claim %s %d: %w", d.Name(), id, err)
	}
	d.commit(caller, id, cur, amount)
	return amount, nil
}

func (d *Distributor) claimableLocked(id, cur uint64) (*uint256.Int, error) {
	minted, err := d.reg.CreatedMonth(id)
	if err != nil {
		return nil, err
	}
	rec := d.claims.Get(id, minted)
	total := new(uint256.Int)
	for m := rec.LastClaimedMonth + 1; m <= cur; m++ {
		r, err := d.strategy.RewardNftIDMonth(id, m)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, r); overflow {
			return nil, fmt.Errorf("claimable %d: overflow", id)
		}
	}
	return total, nil
}

func (d *Distributor) commit(caller common.Address, id, month uint64, amount *uint256.Int) {
	d.claims.credit(id, month, amount)
	log.Printf("claim: strategy=%s nft=%d amount=%s month=%d", d.Name(), id, amount.Dec(), month)
	if d.journal != nil {
		d.journal.Append(journal.Event{
			Kind:     journal.KindClaim,
			NftID:    id,
			Actor:    caller,
			Amount:   amount.Dec(),
			Strategy: d.Name(),
			Month:    month,
		})
	}
}

func checkOwner(reg Positions, caller common.Address, id uint64) error {
	owner, err := reg.Owner(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %w", ErrClaimNotAllowed, staking.ErrNftNotOwned)
	}
	return nil
}
