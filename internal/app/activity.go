package app

import (
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/journal"
)

// MonthActivity counts committed mutations within one month.
type MonthActivity struct {
	Mints     int `json:"mints"`
	Stakes    int `json:"stakes"`
	Unstakes  int `json:"unstakes"`
	Evolves   int `json:"evolves"`
	Restakes  int `json:"restakes"`
	Claims    int `json:"claims"`
	Destroys  int `json:"destroys"`
	Transfers int `json:"transfers"`
}

func (m *MonthActivity) add(kind journal.Kind) {
	switch kind {
	case journal.KindMint:
		m.Mints++
	case journal.KindStake:
		m.Stakes++
	case journal.KindUnstake:
		m.Unstakes++
	case journal.KindEvolve:
		m.Evolves++
	case journal.KindRestake:
		m.Restakes++
	case journal.KindClaim:
		m.Claims++
	case journal.KindDestroy:
		m.Destroys++
	case journal.KindTransfer:
		m.Transfers++
	}
}

// ActivitySnapshot is a copy of the collector's state.
type ActivitySnapshot struct {
	Months            []uint64                 `json:"months"`
	ByMonth           map[uint64]MonthActivity `json:"by_month"`
	Total             MonthActivity            `json:"total"`
	ClaimedByStrategy map[string]*uint256.Int  `json:"-"`
	LastEventAt       time.Time                `json:"last_event_at"`
}

// activityCollector aggregates journal events per month.
type activityCollector struct {
	mu sync.RWMutex

	byMonth     map[uint64]*MonthActivity
	total       MonthActivity
	claimed     map[string]*uint256.Int
	lastEventAt time.Time
}

func newActivityCollector() *activityCollector {
	return &activityCollector{
		byMonth: make(map[uint64]*MonthActivity),
		claimed: make(map[string]*uint256.Int),
	}
}

func (c *activityCollector) record(ev journal.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.byMonth[ev.Month]
	if !ok {
		m = &MonthActivity{}
		c.byMonth[ev.Month] = m
	}
	m.add(ev.Kind)
	c.total.add(ev.Kind)
	if ev.Kind == journal.KindClaim && ev.Strategy != "" {
		sum, ok := c.claimed[ev.Strategy]
		if !ok {
			sum = new(uint256.Int)
			c.claimed[ev.Strategy] = sum
		}
		sum.Add(sum, parseDecimal(ev.Amount))
	}
	if ev.Time.After(c.lastEventAt) {
		c.lastEventAt = ev.Time
	}
}

func (c *activityCollector) month(m uint64) MonthActivity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.byMonth[m]; ok {
		return *a
	}
	return MonthActivity{}
}

func (c *activityCollector) snapshot() ActivitySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := ActivitySnapshot{
		Months:            make([]uint64, 0, len(c.byMonth)),
		ByMonth:           make(map[uint64]MonthActivity, len(c.byMonth)),
		Total:             c.total,
		ClaimedByStrategy: make(map[string]*uint256.Int, len(c.claimed)),
		LastEventAt:       c.lastEventAt,
	}
	for m, a := range c.byMonth {
		snap.Months = append(snap.Months, m)
		snap.ByMonth[m] = *a
	}
	sort.Slice(snap.Months, func(i, j int) bool { return snap.Months[i] < snap.Months[j] })
	for name, sum := range c.claimed {
		snap.ClaimedByStrategy[name] = new(uint256.Int).Set(sum)
	}
	return snap
}
