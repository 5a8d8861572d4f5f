package journal

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

type Kind string

const (
	KindMint     Kind = "mint"
	KindStake    Kind = "stake"
	KindUnstake  Kind = "unstake"
	KindEvolve   Kind = "evolve"
	KindRestake  Kind = "restake"
	KindClaim    Kind = "claim"
	KindDestroy  Kind = "destroy"
	KindTransfer Kind = "transfer"
)

// Event is one committed mutation.
type Event struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	NftID    uint64         `json:"nft_id"`
	Actor    common.Address `json:"actor"`
	Amount   string         `json:"amount,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
	Tier     int            `json:"tier,omitempty"`
	Month    uint64         `json:"month"`
	Time     time.Time      `json:"time"`
}

// Journal keeps an in-memory, append-only log of events.
type Journal struct {
	mu      sync.RWMutex
	events  []Event
	counts  map[Kind]int
	OnEvent func(Event) // invoked outside the lock
}

func New() *Journal {
	return &Journal{counts: make(map[Kind]int)}
}

// Record appends an event, filling in ID and Time.
func (j *Journal) Record(kind Kind, nftID uint64, actor common.Address, amount *uint256.Int, month uint64) Event {
	ev := Event{Kind: kind, NftID: nftID, Actor: actor, Month: month}
	if amount != nil {
		ev.Amount = amount.Dec()
	}
	return j.Append(ev)
}

func (j *Journal) Append(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	j.mu.Lock()
	j.events = append(j.events, ev)
	j.counts[ev.Kind]++
	cb := j.OnEvent
	j.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
	return ev
}

// Recent returns the last N events, most recent first.
func (j *Journal) Recent(limit int) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	n := len(j.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = j.events[n-1-i]
	}
	return out
}

// ForNft returns all events for one NFT in commit order.
func (j *Journal) ForNft(id uint64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for _, ev := range j.events {
		if ev.NftID == id {
			out = append(out, ev)
		}
	}
	return out
}

func (j *Journal) Count(kind Kind) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.counts[kind]
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}
