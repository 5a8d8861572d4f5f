package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/errs"
)

var (
	ErrUnknownEntity    = fmt.Errorf("%w: unknown entity", errs.ErrValidation)
	ErrEntityDestroyed  = fmt.Errorf("%w: entity destroyed", errs.ErrNotFound)
	ErrEntityExists     = fmt.Errorf("%w: entity already exists", errs.ErrValidation)
	ErrMonthNotRecorded = fmt.Errorf("%w: month not recorded", errs.ErrValidation)
	ErrFutureMonth      = fmt.Errorf("%w: month not reached", errs.ErrValidation)
)

// Ledger is the month-sliced staking ledger: one History per entity and one
// global aggregate that every entity write also touches.
//
// Ledger is not safe for concurrent use; callers serialize access.
type Ledger struct {
	clock     *Clock
	global    *History
	entities  map[uint64]*History
	destroyed map[uint64]uint64 // id -> month of destruction
}

func New(clock *Clock) *Ledger {
	return &Ledger{
		clock:     clock,
		global:    newHistory(0, Record{}),
		entities:  make(map[uint64]*History),
		destroyed: make(map[uint64]uint64),
	}
}

func (l *Ledger) Clock() *Clock { return l.clock }

func (l *Ledger) CurrentMonth() uint64 { return l.clock.CurrentMonth() }

// Open creates an entity in the current month with staked = minimum = seed.
// The seed also joins the global balance and minimum for that month.
func (l *Ledger) Open(id uint64, seed *uint256.Int, shares uint64, level int) error {
	if _, ok := l.entities[id]; ok {
		return fmt.Errorf("%w: %d", ErrEntityExists, id)
	}
	month := l.clock.CurrentMonth()
	g, err := l.global.Materialize(month)
	if err != nil {
		return err
	}
	staked, overflow := new(uint256.Int).AddOverflow(&g.Staked, seed)
	if overflow {
		return fmt.Errorf("%w: global balance overflow", errs.ErrInvariant)
	}
	g.Staked = *staked
	g.Minimum.Add(&g.Minimum, seed)
	g.Shares += shares
	g.Levels += uint64(level)

	l.entities[id] = newHistory(month, Record{
		Staked:  *seed,
		Minimum: *seed,
		Shares:  shares,
		Levels:  uint64(level),
	})
	return nil
}

// Materialize forward-fills the entity and the global aggregate to the
// current month.
func (l *Ledger) Materialize(id uint64) error {
	h, err := l.live(id)
	if err != nil {
		return err
	}
	month := l.clock.CurrentMonth()
	if _, err := h.Materialize(month); err != nil {
		return err
	}
	_, err = l.global.Materialize(month)
	return err
}

// ApplyDelta changes the entity's current-month balance and mirrors the same
// signed change onto the global aggregate.
func (l *Ledger) ApplyDelta(id uint64, amount *uint256.Int, decrease bool) error {
	h, err := l.live(id)
	if err != nil {
		return err
	}
	month := l.clock.CurrentMonth()
	// Both sides are checked before either is written.
	if err := checkDelta(h.Latest(), amount, decrease); err != nil {
		return err
	}
	if err := checkDelta(l.global.Latest(), amount, decrease); err != nil {
		return fmt.Errorf("global: %w", err)
	}
	if err := h.ApplyDelta(month, amount, decrease); err != nil {
		return err
	}
	return l.global.ApplyDelta(month, amount, decrease)
}

func checkDelta(r Record, amount *uint256.Int, decrease bool) error {
	if decrease {
		if amount.Gt(&r.Staked) {
			return fmt.Errorf("%w: decrease %s exceeds staked %s", errs.ErrInvariant, amount.Dec(), r.Staked.Dec())
		}
		return nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(&r.Staked, amount); overflow {
		return fmt.Errorf("%w: staked balance overflow", errs.ErrInvariant)
	}
	return nil
}

// SetWeights records the entity's current shares and level and moves the
// global sums by the difference.
func (l *Ledger) SetWeights(id uint64, shares uint64, level int) error {
	h, err := l.live(id)
	if err != nil {
		return err
	}
	month := l.clock.CurrentMonth()
	r, err := h.Materialize(month)
	if err != nil {
		return err
	}
	dShares := int64(shares) - int64(r.Shares)
	dLevels := int64(level) - int64(r.Levels)
	if err := l.global.AddWeights(month, dShares, dLevels); err != nil {
		return err
	}
	r.Shares = shares
	r.Levels = uint64(level)
	return nil
}

// Destroy removes the entity's current balance and weights from the global
// aggregate in the current month only. Earlier months keep their records,
// including their contribution to the global minimum.
func (l *Ledger) Destroy(id uint64) (Record, error) {
	h, err := l.live(id)
	if err != nil {
		return Record{}, err
	}
	month := l.clock.CurrentMonth()
	cur := h.Latest()
	if err := l.global.ApplyDelta(month, &cur.Staked, true); err != nil {
		return Record{}, err
	}
	if err := l.global.AddWeights(month, -int64(cur.Shares), -int64(cur.Levels)); err != nil {
		return Record{}, err
	}
	l.destroyed[id] = month
	return cur, nil
}

// Current returns the entity's record as of the current month.
func (l *Ledger) Current(id uint64) (Record, error) {
	h, err := l.live(id)
	if err != nil {
		return Record{}, err
	}
	r, _ := h.At(l.clock.CurrentMonth())
	return r, nil
}

// EntityAt returns the entity's record for month. Months at or after
// destruction, before creation, or in the future are errors.
func (l *Ledger) EntityAt(id uint64, month uint64) (Record, error) {
	h, ok := l.entities[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	if month > l.clock.CurrentMonth() {
		return Record{}, fmt.Errorf("%w: %d", ErrFutureMonth, month)
	}
	if d, gone := l.destroyed[id]; gone && month >= d {
		return Record{}, fmt.Errorf("%w: %d in month %d", ErrEntityDestroyed, id, d)
	}
	r, ok := h.At(month)
	if !ok {
		return Record{}, fmt.Errorf("%w: entity %d month %d", ErrMonthNotRecorded, id, month)
	}
	return r, nil
}

// GlobalAt returns the global aggregate for month.
func (l *Ledger) GlobalAt(month uint64) (Record, error) {
	if month > l.clock.CurrentMonth() {
		return Record{}, fmt.Errorf("%w: %d", ErrFutureMonth, month)
	}
	r, _ := l.global.At(month)
	return r, nil
}

// Exists reports whether id was ever opened.
func (l *Ledger) Exists(id uint64) bool {
	_, ok := l.entities[id]
	return ok
}

// DestroyedAt returns the month id was destroyed in.
func (l *Ledger) DestroyedAt(id uint64) (uint64, bool) {
	m, ok := l.destroyed[id]
	return m, ok
}

// CreatedAt returns the month id was opened in.
func (l *Ledger) CreatedAt(id uint64) (uint64, error) {
	h, ok := l.entities[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return h.FirstMonth(), nil
}

// RecordedMonths lists the months explicitly written for id.
func (l *Ledger) RecordedMonths(id uint64) ([]uint64, error) {
	h, ok := l.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return h.Months(), nil
}

// IDs returns all entity ids, live or destroyed.
func (l *Ledger) IDs() []uint64 {
	ids := make([]uint64, 0, len(l.entities))
	for id := range l.entities {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) live(id uint64) (*History, error) {
	h, ok := l.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	if d, gone := l.destroyed[id]; gone {
		return nil, fmt.Errorf("%w: %d in month %d", ErrEntityDestroyed, id, d)
	}
	return h, nil
}
