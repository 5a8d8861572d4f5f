package ledger

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/errs"
)

// Record is the state of one entity in one month. For an NFT Levels is its
// level; for the global aggregate it is the sum of live levels.
type Record struct {
	Staked  uint256.Int
	Minimum uint256.Int
	Shares  uint64
	Levels  uint64
}

// carried is the record a month inherits from an earlier one: the closing
// balance becomes both the new balance and the new minimum.
func (r Record) carried() Record {
	return Record{Staked: r.Staked, Minimum: r.Staked, Shares: r.Shares, Levels: r.Levels}
}

// History is a sparse month-indexed record series with a last-touched pointer.
// Months are only ever appended in increasing order.
type History struct {
	months  []uint64
	records map[uint64]*Record
}

func newHistory(month uint64, first Record) *History {
	r := first
	return &History{
		months:  []uint64{month},
		records: map[uint64]*Record{month: &r},
	}
}

// LastMonth is the last-touched month.
func (h *History) LastMonth() uint64 {
	return h.months[len(h.months)-1]
}

// FirstMonth is the month the entity was created in.
func (h *History) FirstMonth() uint64 {
	return h.months[0]
}

// Months returns the recorded months in ascending order.
func (h *History) Months() []uint64 {
	return append([]uint64(nil), h.months...)
}

// Materialize forward-fills month from the last-touched month and returns the
// writable record. Writing before the last-touched month is rejected.
func (h *History) Materialize(month uint64) (*Record, error) {
	last := h.LastMonth()
	switch {
	case month == last:
		return h.records[last], nil
	case month < last:
		return nil, fmt.Errorf("%w: month %d precedes last recorded month %d", errs.ErrValidation, month, last)
	}
	next := h.records[last].carried()
	h.records[month] = &next
	h.months = append(h.months, month)
	return &next, nil
}

// At reads month without mutating. ok is false before the first record.
func (h *History) At(month uint64) (Record, bool) {
	i := sort.Search(len(h.months), func(i int) bool { return h.months[i] > month }) - 1
	if i < 0 {
		return Record{}, false
	}
	r := h.records[h.months[i]]
	if h.months[i] == month {
		return *r, true
	}
	return r.carried(), true
}

// Latest is the last-touched record as stored.
func (h *History) Latest() Record {
	return *h.records[h.LastMonth()]
}

// ApplyDelta adds (decrease=false) or subtracts amount from month's balance.
// A decrease lowers the month's minimum to the new balance if needed; an
// increase never raises it.
func (h *History) ApplyDelta(month uint64, amount *uint256.Int, decrease bool) error {
	r, err := h.Materialize(month)
	if err != nil {
		return err
	}
	if !decrease {
		sum, overflow := new(uint256.Int).AddOverflow(&r.Staked, amount)
		if overflow {
			return fmt.Errorf("%w: staked balance overflow", errs.ErrInvariant)
		}
		r.Staked = *sum
		return nil
	}
	if amount.Gt(&r.Staked) {
		return fmt.Errorf("%w: decrease %s exceeds staked %s", errs.ErrInvariant, amount.Dec(), r.Staked.Dec())
	}
	r.Staked.Sub(&r.Staked, amount)
	if r.Minimum.Gt(&r.Staked) {
		r.Minimum = r.Staked
	}
	return nil
}

// AddWeights shifts shares and levels by signed deltas in month.
func (h *History) AddWeights(month uint64, shares, levels int64) error {
	r, err := h.Materialize(month)
	if err != nil {
		return err
	}
	if (shares < 0 && uint64(-shares) > r.Shares) || (levels < 0 && uint64(-levels) > r.Levels) {
		return fmt.Errorf("%w: weight underflow in month %d", errs.ErrInvariant, month)
	}
	r.Shares = uint64(int64(r.Shares) + shares)
	r.Levels = uint64(int64(r.Levels) + levels)
	return nil
}
