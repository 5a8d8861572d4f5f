package staking

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/curve"
	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/ledger"
	"github.com/stakeforge/nftstake/internal/throttle"
)

// Custody moves tokens. A returned error means nothing moved.
type Custody interface {
	Transfer(from, to common.Address, amount *uint256.Int) error
	BalanceOf(addr common.Address) *uint256.Int
}

type Config struct {
	Vault             common.Address // holds all staked tokens
	Treasury          common.Address // funds mint seeds
	DefaultLockPeriod time.Duration
}

// MintRequest seeds a new position. Voucher checks happen before this call.
type MintRequest struct {
	ID         uint64
	Owner      common.Address
	Seed       *uint256.Int
	LockPeriod time.Duration // zero uses the configured default
}

// Payout is a restake funded from a reward pool.
type Payout struct {
	From   common.Address
	Amount *uint256.Int
}

type position struct {
	owner      common.Address
	tier       int
	seed       uint256.Int
	mintedAt   time.Time
	lockPeriod time.Duration
}

// Registry owns all NFT positions and serializes every mutation on them and
// on the shared global aggregate.
type Registry struct {
	mu sync.RWMutex

	cfg       Config
	ledger    *ledger.Ledger
	curve     *curve.Curve
	throttle  *throttle.Throttle
	custody   Custody
	journal   *journal.Journal
	positions map[uint64]*position
}

func NewRegistry(cfg Config, l *ledger.Ledger, c *curve.Curve, th *throttle.Throttle, custody Custody, j *journal.Journal) *Registry {
	if j == nil {
		j = journal.New()
	}
	return &Registry{
		cfg:       cfg,
		ledger:    l,
		curve:     c,
		throttle:  th,
		custody:   custody,
		journal:   j,
		positions: make(map[uint64]*position),
	}
}

func (r *Registry) Journal() *journal.Journal { return r.journal }

// Mint creates a position with staked = minimum = seed in the current month.
func (r *Registry) Mint(req MintRequest) error {
	if req.Owner == (common.Address{}) {
		return fmt.Errorf("mint %d: %w", req.ID, ErrZeroAddress)
	}
	seed := new(uint256.Int)
	if req.Seed != nil {
		seed.Set(req.Seed)
	}
	lock := req.LockPeriod
	if lock <= 0 {
		lock = r.cfg.DefaultLockPeriod
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ledger.Exists(req.ID) {
		return fmt.Errorf("mint %d: %w", req.ID, ErrNftExists)
	}
	level := r.curve.LevelCapped(seed, 0)
	shares := r.curve.Shares.Of(level)

	if err := r.custody.Transfer(r.cfg.Treasury, r.cfg.Vault, seed); err != nil {
		return fmt.Errorf("mint %d: seed transfer: %w", req.ID, err)
	}
	if err := r.ledger.Open(req.ID, seed, shares, level); err != nil {
		r.refund(r.cfg.Treasury, seed)
		return fmt.Errorf("mint %d: %w", req.ID, err)
	}
	r.positions[req.ID] = &position{
		owner:      req.Owner,
		seed:       *seed,
		mintedAt:   r.ledger.Clock().Now(),
		lockPeriod: lock,
	}

	month := r.ledger.CurrentMonth()
	log.Printf("mint: nft=%d owner=%s seed=%s level=%d month=%d", req.ID, req.Owner.Hex(), seed.Dec(), level, month)
	r.journal.Record(journal.KindMint, req.ID, req.Owner, seed, month)
	return nil
}

// Stake adds amount to the position. Zero is legal and only materializes the
// current month.
func (r *Registry) Stake(caller common.Address, id uint64, amount *uint256.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, cur, err := r.owned(caller, id)
	if err != nil {
		return fmt.Errorf("stake %d: %w", id, err)
	}
	in := throttle.Input{MintedAt: p.mintedAt, Seed: p.seed, Staked: cur.Staked, Level: int(cur.Levels)}
	if err := r.throttle.Allow(in, r.ledger.Clock().Now(), amount); err != nil {
		return fmt.Errorf("stake %d: %w", id, err)
	}
	if err := r.custody.Transfer(p.owner, r.cfg.Vault, amount); err != nil {
		return fmt.Errorf("stake %d: %w", id, err)
	}
	if err := r.ledger.ApplyDelta(id, amount, false); err != nil {
		r.refund(p.owner, amount)
		return fmt.Errorf("stake %d: %w", id, err)
	}
	level, err := r.raiseLevel(id, p)
	if err != nil {
		r.revert(id, amount)
		r.refund(p.owner, amount)
		return fmt.Errorf("stake %d: %w", id, err)
	}

	month := r.ledger.CurrentMonth()
	log.Printf("stake: nft=%d amount=%s level=%d month=%d", id, amount.Dec(), level, month)
	r.journal.Record(journal.KindStake, id, caller, amount, month)
	return nil
}

// Unstake withdraws amount as long as the remaining balance still sustains
// the attained level. Level and shares never drop.
func (r *Registry) Unstake(caller common.Address, id uint64, amount *uint256.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, cur, err := r.owned(caller, id)
	if err != nil {
		if errs.KindOf(err) == errs.KindPermission {
			return fmt.Errorf("unstake %d: %w: %w", id, ErrUnstakeAmountNotAllowed, err)
		}
		return fmt.Errorf("unstake %d: %w", id, err)
	}
	if amount.Gt(&cur.Staked) {
		return fmt.Errorf("unstake %d: %w: amount %s exceeds staked %s", id, ErrUnstakeAmountNotAllowed, amount.Dec(), cur.Staked.Dec())
	}
	remaining := new(uint256.Int).Sub(&cur.Staked, amount)
	floor := r.curve.Floor(int(cur.Levels))
	if remaining.Lt(floor) {
		return fmt.Errorf("unstake %d: %w: remaining %s below level %d floor %s", id, ErrUnstakeAmountNotAllowed, remaining.Dec(), cur.Levels, floor.Dec())
	}
	if err := r.custody.Transfer(r.cfg.Vault, p.owner, amount); err != nil {
		return fmt.Errorf("unstake %d: %w", id, err)
	}
	if err := r.ledger.ApplyDelta(id, amount, true); err != nil {
		r.reclaim(p.owner, amount)
		return fmt.Errorf("unstake %d: %w", id, err)
	}

	month := r.ledger.CurrentMonth()
	log.Printf("unstake: nft=%d amount=%s remaining=%s month=%d", id, amount.Dec(), remaining.Dec(), month)
	r.journal.Record(journal.KindUnstake, id, caller, amount, month)
	return nil
}

// EvolveTier moves to the smallest higher tier whose cap exceeds the current
// level. changed is false when no tier improves on the current one.
func (r *Registry) EvolveTier(caller common.Address, id uint64) (tier int, changed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, cur, err := r.owned(caller, id)
	if err != nil {
		return 0, false, fmt.Errorf("evolve %d: %w", id, err)
	}
	next, ok := r.curve.EvolveTarget(p.tier, int(cur.Levels))
	if !ok {
		return p.tier, false, nil
	}
	level := r.curve.LevelCapped(&cur.Staked, next)
	if err := r.ledger.SetWeights(id, r.curve.Shares.Of(level), level); err != nil {
		return p.tier, false, fmt.Errorf("evolve %d: %w", id, err)
	}
	prev := p.tier
	p.tier = next

	month := r.ledger.CurrentMonth()
	log.Printf("evolve: nft=%d tier=%d->%d level=%d month=%d", id, prev, next, level, month)
	r.journal.Append(journal.Event{Kind: journal.KindEvolve, NftID: id, Actor: caller, Tier: next, Month: month})
	return next, true, nil
}

// Restake compounds reward payouts into the position. Either every payout
// lands or none does.
func (r *Registry) Restake(id uint64, payouts []Payout) (*uint256.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.live(id)
	if err != nil {
		return nil, fmt.Errorf("restake %d: %w", id, err)
	}
	total := new(uint256.Int)
	done := make([]Payout, 0, len(payouts))
	for _, po := range payouts {
		if po.Amount == nil || po.Amount.IsZero() {
			continue
		}
		if err := r.custody.Transfer(po.From, r.cfg.Vault, po.Amount); err != nil {
			r.unwind(done)
			return nil, fmt.Errorf("restake %d: %w", id, err)
		}
		done = append(done, po)
		total.Add(total, po.Amount)
	}
	if err := r.ledger.ApplyDelta(id, total, false); err != nil {
		r.unwind(done)
		return nil, fmt.Errorf("restake %d: %w", id, err)
	}
	if _, err := r.raiseLevel(id, p); err != nil {
		r.revert(id, total)
		r.unwind(done)
		return nil, fmt.Errorf("restake %d: %w", id, err)
	}
	if !total.IsZero() {
		month := r.ledger.CurrentMonth()
		log.Printf("restake: nft=%d amount=%s month=%d", id, total.Dec(), month)
		r.journal.Record(journal.KindRestake, id, p.owner, total, month)
	}
	return total, nil
}

// Destroy refunds the staked balance and drops the position from current and
// future global totals. Past months stay queryable.
func (r *Registry) Destroy(caller common.Address, id uint64) (*uint256.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, cur, err := r.owned(caller, id)
	if err != nil {
		return nil, fmt.Errorf("destroy %d: %w", id, err)
	}
	now := r.ledger.Clock().Now()
	if unlock := p.mintedAt.Add(p.lockPeriod); now.Before(unlock) {
		return nil, fmt.Errorf("destroy %d: %w: unlocks at %s", id, ErrLockPeriodActive, unlock.UTC().Format(time.RFC3339))
	}
	refund := new(uint256.Int).Set(&cur.Staked)
	if err := r.custody.Transfer(r.cfg.Vault, p.owner, refund); err != nil {
		return nil, fmt.Errorf("destroy %d: %w", id, err)
	}
	if _, err := r.ledger.Destroy(id); err != nil {
		r.reclaim(p.owner, refund)
		return nil, fmt.Errorf("destroy %d: %w", id, err)
	}

	month := r.ledger.CurrentMonth()
	log.Printf("destroy: nft=%d refund=%s month=%d", id, refund.Dec(), month)
	r.journal.Record(journal.KindDestroy, id, caller, refund, month)
	return refund, nil
}

// TransferOwnership repoints the owner without touching staking state.
func (r *Registry) TransferOwnership(caller common.Address, id uint64, to common.Address) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer %d: %w", id, ErrZeroAddress)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, _, err := r.owned(caller, id)
	if err != nil {
		return fmt.Errorf("transfer %d: %w", id, err)
	}
	p.owner = to
	log.Printf("transfer: nft=%d owner=%s", id, to.Hex())
	r.journal.Append(journal.Event{Kind: journal.KindTransfer, NftID: id, Actor: caller, Month: r.ledger.CurrentMonth()})
	return nil
}

// raiseLevel recomputes level and shares and records them only if the level
// went up. Caller must hold r.mu.
func (r *Registry) raiseLevel(id uint64, p *position) (int, error) {
	cur, err := r.ledger.Current(id)
	if err != nil {
		return 0, err
	}
	level := r.curve.LevelCapped(&cur.Staked, p.tier)
	if level <= int(cur.Levels) {
		return int(cur.Levels), nil
	}
	return level, r.ledger.SetWeights(id, r.curve.Shares.Of(level), level)
}

// owned resolves a live position and checks the caller owns it. Caller must
// hold r.mu.
func (r *Registry) owned(caller common.Address, id uint64) (*position, ledger.Record, error) {
	p, err := r.live(id)
	if err != nil {
		return nil, ledger.Record{}, err
	}
	if p.owner != caller {
		return nil, ledger.Record{}, fmt.Errorf("%w: %s", ErrNftNotOwned, caller.Hex())
	}
	cur, err := r.ledger.Current(id)
	if err != nil {
		return nil, ledger.Record{}, err
	}
	return p, cur, nil
}

func (r *Registry) live(id uint64) (*position, error) {
	p, ok := r.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNft, id)
	}
	if _, gone := r.ledger.DestroyedAt(id); gone {
		return nil, fmt.Errorf("%w: %d", ErrNftDestroyed, id)
	}
	return p, nil
}

func (r *Registry) refund(to common.Address, amount *uint256.Int) {
	if err := r.custody.Transfer(r.cfg.Vault, to, amount); err != nil {
		log.Printf("refund to %s failed: %v", to.Hex(), err)
	}
}

// reclaim pulls amount back into the vault after a payout whose ledger write
// failed.
func (r *Registry) reclaim(from common.Address, amount *uint256.Int) {
	if err := r.custody.Transfer(from, r.cfg.Vault, amount); err != nil {
		log.Printf("reclaim %s from %s failed: %v", amount.Dec(), from.Hex(), err)
	}
}

// revert takes back a balance increase whose follow-up write failed. The
// minimum is untouched since the balance returns to its prior value.
func (r *Registry) revert(id uint64, amount *uint256.Int) {
	if err := r.ledger.ApplyDelta(id, amount, true); err != nil {
		log.Printf("revert nft=%d amount=%s failed: %v", id, amount.Dec(), err)
	}
}

func (r *Registry) unwind(done []Payout) {
	for i := len(done) - 1; i >= 0; i-- {
		r.refund(done[i].From, done[i].Amount)
	}
}
