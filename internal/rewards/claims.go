package rewards

import "github.com/holiman/uint256"

// ClaimRecord is one NFT's claim bookkeeping for a single strategy.
type ClaimRecord struct {
	ClaimedTotal     uint256.Int
	LastClaimedMonth uint64
}

// ClaimLedger tracks claims per NFT. Callers serialize access.
type ClaimLedger struct {
	records map[uint64]*ClaimRecord
}

func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{records: make(map[uint64]*ClaimRecord)}
}

// Get returns id's record, starting from mintedMonth if none exists yet.
func (c *ClaimLedger) Get(id, mintedMonth uint64) ClaimRecord {
	if r, ok := c.records[id]; ok {
		return *r
	}
	return ClaimRecord{LastClaimedMonth: mintedMonth}
}

func (c *ClaimLedger) credit(id, month uint64, amount *uint256.Int) {
	r, ok := c.records[id]
	if !ok {
		r = &ClaimRecord{}
		c.records[id] = r
	}
	r.ClaimedTotal.Add(&r.ClaimedTotal, amount)
	r.LastClaimedMonth = month
}
