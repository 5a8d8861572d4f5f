package rewards

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/staking"
)

// Wrapper claims across several distributors in one atomic step.
type Wrapper struct {
	reg          Positions
	distributors []*Distributor
}

func NewWrapper(reg Positions, distributors ...*Distributor) *Wrapper {
	return &Wrapper{reg: reg, distributors: distributors}
}

func (w *Wrapper) Distributors() []*Distributor { return w.distributors }

// Distributor returns the distributor for a strategy name.
func (w *Wrapper) Distributor(name string) (*Distributor, error) {
	for _, d := range w.distributors {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Breakdown is a per-strategy amount plus the total.
type Breakdown struct {
	Total      *uint256.Int
	ByStrategy map[string]*uint256.Int
}

func (w *Wrapper) lock() func() {
	for _, d := range w.distributors {
		d.mu.Lock()
	}
	return func() {
		for i := len(w.distributors) - 1; i >= 0; i-- {
			w.distributors[i].mu.Unlock()
		}
	}
}

func (w *Wrapper) collect(id, cur uint64) (Breakdown, error) {
	out := Breakdown{Total: new(uint256.Int), ByStrategy: make(map[string]*uint256.Int, len(w.distributors))}
	for _, d := range w.distributors {
		amt, err := d.claimableLocked(id, cur)
		if err != nil {
			return Breakdown{}, fmt.Errorf("%s: %w", d.Name(), err)
		}
		out.ByStrategy[d.Name()] = amt
		out.Total.Add(out.Total, amt)
	}
	return out, nil
}

// Claimable sums claimable amounts across all distributors.
func (w *Wrapper) Claimable(id uint64) (Breakdown, error) {
	unlock := w.lock()
	defer unlock()
	return w.collect(id, w.reg.CurrentMonth())
}

// Claim claims every strategy for id. Either all strategies pay out or none
// does.
func (w *Wrapper) Claim(caller common.Address, id uint64) (Breakdown, error) {
	unlock := w.lock()
	defer unlock()

	if err := checkOwner(w.reg, caller, id); err != nil {
		return Breakdown{}, fmt.Errorf("claim all %d: %w", id, err)
	}
	cur := w.reg.CurrentMonth()
	b, err := w.collect(id, cur)
	if err != nil {
		return Breakdown{}, fmt.Errorf("claim all %d: %w", id, err)
	}
	if b.Total.IsZero() {
		return b, nil
	}
	payouts := make([]staking.Payout, 0, len(w.distributors))
	for _, d := range w.distributors {
		payouts = append(payouts, staking.Payout{From: d.pool, Amount: b.ByStrategy[d.Name()]})
	}
	if _, err := w.reg.Restake(id, payouts); err != nil {
		return Breakdown{}, fmt.Errorf("claim all %d: %w", id, err)
	}
	for _, d := range w.distributors {
		if amt := b.ByStrategy[d.Name()]; !amt.IsZero() {
			d.commit(caller, id, cur, amt)
		}
	}
	return b, nil
}
