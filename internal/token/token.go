package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/errs"
)

var ErrInsufficientBalance = fmt.Errorf("%w: insufficient token balance", errs.ErrInvariant)

type Config struct {
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

type Snapshot struct {
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Holders     int    `json:"holders"`
	Transfers   int    `json:"transfers"`
}

// Token is an in-memory fungible token used as the custody primitive.
type Token struct {
	mu sync.Mutex

	cfg       Config
	balances  map[common.Address]*uint256.Int
	supply    uint256.Int
	transfers int
}

func New(cfg Config) *Token {
	if cfg.Symbol == "" {
		cfg.Symbol = "STK"
	}
	return &Token{
		cfg:      cfg,
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (t *Token) Decimals() uint8 { return t.cfg.Decimals }

// Mint credits amount to to, growing the supply.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	supply, overflow := new(uint256.Int).AddOverflow(&t.supply, amount)
	if overflow {
		return fmt.Errorf("%w: supply overflow", errs.ErrInvariant)
	}
	t.supply = *supply
	t.credit(to, amount)
	return nil
}

// Transfer moves amount from one holder to another. A failed transfer leaves
// both balances untouched.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.IsZero() {
		return nil
	}
	bal := t.balances[from]
	if bal == nil || bal.Lt(amount) {
		have := new(uint256.Int)
		if bal != nil {
			have.Set(bal)
		}
		return fmt.Errorf("%w: %s needs %s has %s", ErrInsufficientBalance, from.Hex(), amount.Dec(), have.Dec())
	}
	bal.Sub(bal, amount)
	if bal.IsZero() {
		delete(t.balances, from)
	}
	t.credit(to, amount)
	t.transfers++
	return nil
}

func (t *Token) BalanceOf(addr common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

func (t *Token) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Symbol:      t.cfg.Symbol,
		Decimals:    t.cfg.Decimals,
		TotalSupply: t.supply.Dec(),
		Holders:     len(t.balances),
		Transfers:   t.transfers,
	}
}

// credit adds amount to addr. Caller must hold t.mu.
func (t *Token) credit(addr common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	bal, ok := t.balances[addr]
	if !ok {
		bal = new(uint256.Int)
		t.balances[addr] = bal
	}
	bal.Add(bal, amount)
}
