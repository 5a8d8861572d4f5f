package ledger

import (
	"fmt"
	"time"

	"github.com/stakeforge/nftstake/internal/errs"
)

// Clock maps wall-clock time onto ledger months.
type Clock struct {
	start  time.Time
	length time.Duration
	now    func() time.Time
}

// NewClock returns a month clock. now defaults to time.Now.
func NewClock(start time.Time, monthLength time.Duration, now func() time.Time) (*Clock, error) {
	if monthLength <= 0 {
		return nil, fmt.Errorf("%w: month length must be positive, got %v", errs.ErrValidation, monthLength)
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{start: start, length: monthLength, now: now}, nil
}

func (c *Clock) Now() time.Time { return c.now() }

func (c *Clock) Start() time.Time { return c.start }

func (c *Clock) MonthLength() time.Duration { return c.length }

// CurrentMonth is floor((now - start) / monthLength); zero before start.
func (c *Clock) CurrentMonth() uint64 {
	return c.MonthOf(c.now())
}

func (c *Clock) MonthOf(t time.Time) uint64 {
	if t.Before(c.start) {
		return 0
	}
	return uint64(t.Sub(c.start) / c.length)
}

// MonthStart returns the first instant of month m.
func (c *Clock) MonthStart(m uint64) time.Time {
	return c.start.Add(time.Duration(m) * c.length)
}
