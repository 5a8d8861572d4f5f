package staking

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/curve"
	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/ledger"
	"github.com/stakeforge/nftstake/internal/throttle"
	"github.com/stakeforge/nftstake/internal/token"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
)

var (
	vault    = common.HexToAddress("0x000000000000000000000000000000000000feed")
	treasury = common.HexToAddress("0x000000000000000000000000000000000000beef")
	pool     = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fixture struct {
	now   time.Time
	reg   *Registry
	token *token.Token
}

func (f *fixture) Now() time.Time { return f.now }
func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), curve.Unit(18))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fixture{now: start}
	clock, err := ledger.NewClock(start, month, f.Now)
	if err != nil {
		t.Fatal(err)
	}
	c := curve.Default(18)
	th := throttle.New(throttle.Config{DailyAllowance: *tokens(1000)}, c)
	f.token = token.New(token.Config{Symbol: "STK", Decimals: 18})
	for _, addr := range []common.Address{treasury, pool, alice, bob} {
		if err := f.token.Mint(addr, tokens(10_000_000)); err != nil {
			t.Fatal(err)
		}
	}
	f.reg = NewRegistry(Config{Vault: vault, Treasury: treasury, DefaultLockPeriod: 180 * day},
		ledger.New(clock), c, th, f.token, journal.New())
	return f
}

func (f *fixture) mint(t *testing.T, id uint64, owner common.Address, seed uint64) {
	t.Helper()
	if err := f.reg.Mint(MintRequest{ID: id, Owner: owner, Seed: tokens(seed)}); err != nil {
		t.Fatalf("Mint(%d): %v", id, err)
	}
}

func TestMintSeedsPosition(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)

	v, err := f.reg.Position(1)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !v.Staked.Eq(tokens(25000)) || !v.Minimum.Eq(tokens(25000)) {
		t.Fatalf("seed: staked=%s min=%s", v.Staked.Dec(), v.Minimum.Dec())
	}
	if v.Tier != 0 || v.Level != 10 {
		t.Fatalf("expected tier 0 level 10, got tier %d level %d", v.Tier, v.Level)
	}
	if v.Shares != curve.DefaultShares().Of(10) {
		t.Fatalf("unexpected shares %d", v.Shares)
	}
	if !f.token.BalanceOf(vault).Eq(tokens(25000)) {
		t.Fatalf("vault should hold the seed, has %s", f.token.BalanceOf(vault).Dec())
	}
	g, _ := f.reg.GlobalAt(0)
	if !g.Staked.Eq(tokens(25000)) || !g.Minimum.Eq(tokens(25000)) {
		t.Fatal("seed must join global staked and minimum")
	}
}

func TestMintRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 100)
	if err := f.reg.Mint(MintRequest{ID: 1, Owner: alice, Seed: tokens(1)}); !errors.Is(err, ErrNftExists) {
		t.Fatalf("expected ErrNftExists, got %v", err)
	}
	if err := f.reg.Mint(MintRequest{ID: 2, Seed: tokens(1)}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	err := f.reg.Mint(MintRequest{ID: 3, Owner: alice, Seed: tokens(20_000_000)})
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected custody failure, got %v", err)
	}
	if _, err := f.reg.Position(3); !errors.Is(err, ErrUnknownNft) {
		t.Fatalf("failed mint must not create a position, got %v", err)
	}
}

func TestStakeChecksOwnerAndAllowance(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.advance(2 * day)

	if err := f.reg.Stake(bob, 1, tokens(1)); !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("expected ErrNftNotOwned, got %v", err)
	}
	if err := f.reg.Stake(alice, 1, tokens(2001)); !errors.Is(err, throttle.ErrAllowanceExceeded) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
	v, _ := f.reg.Position(1)
	if !v.Staked.Eq(tokens(25000)) {
		t.Fatal("rejected stake must not change the balance")
	}
	if err := f.reg.Stake(alice, 1, tokens(2000)); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	avail, unlimited, err := f.reg.StakingAllowance(1)
	if err != nil || unlimited || !avail.IsZero() {
		t.Fatalf("expected exhausted allowance, got %v unlimited=%v err=%v", avail, unlimited, err)
	}
}

func TestZeroStakeMaterializesOnly(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.advance(3 * month)

	before, _ := f.reg.Position(1)
	for i := 0; i < 3; i++ {
		if err := f.reg.Stake(alice, 1, new(uint256.Int)); err != nil {
			t.Fatalf("zero stake: %v", err)
		}
	}
	after, _ := f.reg.Position(1)
	if !after.Staked.Eq(before.Staked) || after.Level != before.Level {
		t.Fatal("zero stake changed balances")
	}
	months, _ := f.reg.ledger.RecordedMonths(1)
	if len(months) != 2 || months[1] != 3 {
		t.Fatalf("expected materialized month 3, got %v", months)
	}
}

func TestUnstakeBelowFloorLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.mint(t, 2, bob, 30000)

	before, _ := f.reg.Position(1)
	gBefore, _ := f.reg.GlobalAt(0)
	aliceBefore := f.token.BalanceOf(alice)

	// Level 10 needs 10000 tokens.
	err := f.reg.Unstake(alice, 1, tokens(15001))
	if !errors.Is(err, ErrUnstakeAmountNotAllowed) {
		t.Fatalf("expected ErrUnstakeAmountNotAllowed, got %v", err)
	}
	after, _ := f.reg.Position(1)
	gAfter, _ := f.reg.GlobalAt(0)
	if !after.Staked.Eq(before.Staked) || after.Level != before.Level || after.Shares != before.Shares {
		t.Fatal("position changed after rejected unstake")
	}
	if !gAfter.Staked.Eq(&gBefore.Staked) || gAfter.Shares != gBefore.Shares || !gAfter.Minimum.Eq(&gBefore.Minimum) {
		t.Fatal("global totals changed after rejected unstake")
	}
	if !f.token.BalanceOf(alice).Eq(aliceBefore) {
		t.Fatal("tokens moved on rejected unstake")
	}

	if err := f.reg.Unstake(alice, 1, tokens(15000)); err != nil {
		t.Fatalf("unstake to floor: %v", err)
	}
	v, _ := f.reg.Position(1)
	if !v.Staked.Eq(tokens(10000)) || v.Level != 10 || !v.Minimum.Eq(tokens(10000)) {
		t.Fatalf("after unstake: staked=%s level=%d min=%s", v.Staked.Dec(), v.Level, v.Minimum.Dec())
	}
}

func TestUnstakeByNonOwner(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	err := f.reg.Unstake(bob, 1, tokens(1))
	if !errors.Is(err, ErrUnstakeAmountNotAllowed) || !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("expected unstake-not-allowed and not-owned, got %v", err)
	}
	if errs.KindOf(err) != errs.KindPermission {
		t.Fatalf("expected permission kind, got %s", errs.KindOf(err))
	}
	if err := f.reg.Unstake(alice, 1, tokens(30000)); !errors.Is(err, ErrUnstakeAmountNotAllowed) {
		t.Fatalf("expected over-balance unstake rejected, got %v", err)
	}
}

func TestEvolveTier(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)

	tier, changed, err := f.reg.EvolveTier(alice, 1)
	if err != nil || !changed || tier != 1 {
		t.Fatalf("expected tier 1, got %d changed=%v err=%v", tier, changed, err)
	}
	v, _ := f.reg.Position(1)
	if v.Level != 17 || v.Shares != curve.DefaultShares().Of(17) {
		t.Fatalf("expected level 17 after evolve, got %d", v.Level)
	}
	g, _ := f.reg.GlobalAt(0)
	if g.Levels != 17 || g.Shares != v.Shares {
		t.Fatalf("global weights not updated: levels=%d shares=%d", g.Levels, g.Shares)
	}
	if _, _, err := f.reg.EvolveTier(bob, 1); !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("expected not owned, got %v", err)
	}
}

func TestEvolveTierNoOpAtTop(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 400000)
	for i := 0; i < curve.MaxTier; i++ {
		if _, _, err := f.reg.EvolveTier(alice, 1); err != nil {
			t.Fatal(err)
		}
	}
	v, _ := f.reg.Position(1)
	if v.Tier != curve.MaxTier || v.Level != curve.MaxLevel {
		t.Fatalf("expected max tier and level, got tier %d level %d", v.Tier, v.Level)
	}
	tier, changed, err := f.reg.EvolveTier(alice, 1)
	if err != nil || changed || tier != curve.MaxTier {
		t.Fatalf("expected no-op, got %d changed=%v err=%v", tier, changed, err)
	}
	_, unlimited, _ := f.reg.StakingAllowance(1)
	if !unlimited {
		t.Fatal("expected unlimited allowance at max level")
	}
	if err := f.reg.Stake(alice, 1, tokens(1_000_000)); err != nil {
		t.Fatalf("unlimited stake: %v", err)
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	if _, _, err := f.reg.EvolveTier(alice, 1); err != nil {
		t.Fatal(err)
	}
	prev := 17
	for _, amt := range []uint64{1000, 1000, 100} {
		_ = f.reg.Unstake(alice, 1, tokens(amt))
		v, _ := f.reg.Position(1)
		if v.Level < prev {
			t.Fatalf("level dropped from %d to %d", prev, v.Level)
		}
		prev = v.Level
	}
}

func TestRestakeIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	empty := common.HexToAddress("0x0000000000000000000000000000000000000e00")

	_, err := f.reg.Restake(1, []Payout{
		{From: pool, Amount: tokens(10)},
		{From: empty, Amount: tokens(10)},
	})
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected custody failure, got %v", err)
	}
	if !f.token.BalanceOf(pool).Eq(tokens(10_000_000)) {
		t.Fatal("first payout must be unwound")
	}
	v, _ := f.reg.Position(1)
	if !v.Staked.Eq(tokens(25000)) {
		t.Fatal("failed restake changed the balance")
	}

	total, err := f.reg.Restake(1, []Payout{{From: pool, Amount: tokens(10)}, {From: pool, Amount: tokens(5)}})
	if err != nil || !total.Eq(tokens(15)) {
		t.Fatalf("Restake: total=%v err=%v", total, err)
	}
	v, _ = f.reg.Position(1)
	if !v.Staked.Eq(tokens(25015)) || !v.Minimum.Eq(tokens(25000)) {
		t.Fatalf("restake: staked=%s min=%s", v.Staked.Dec(), v.Minimum.Dec())
	}
}

func TestDestroyRespectsLockAndKeepsHistory(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.mint(t, 2, bob, 30000)

	if _, err := f.reg.Destroy(alice, 1); !errors.Is(err, ErrLockPeriodActive) {
		t.Fatalf("expected lock period error, got %v", err)
	}
	f.advance(181 * day)
	past, _ := f.reg.StakedAt(1, 5)
	gPast, _ := f.reg.GlobalAt(5)
	cur := f.reg.CurrentMonth()

	if _, err := f.reg.Destroy(bob, 1); !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("expected not owned, got %v", err)
	}
	aliceBefore := f.token.BalanceOf(alice)
	refund, err := f.reg.Destroy(alice, 1)
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !refund.Eq(tokens(25000)) {
		t.Fatalf("expected refund of 25000, got %s", refund.Dec())
	}
	if !f.token.BalanceOf(alice).Eq(new(uint256.Int).Add(aliceBefore, tokens(25000))) {
		t.Fatal("refund not paid")
	}

	got, err := f.reg.StakedAt(1, 5)
	if err != nil || !got.Staked.Eq(&past.Staked) || !got.Minimum.Eq(&past.Minimum) {
		t.Fatalf("past month must be unchanged: %v", err)
	}
	g5, _ := f.reg.GlobalAt(5)
	if !g5.Staked.Eq(&gPast.Staked) || !g5.Minimum.Eq(&gPast.Minimum) {
		t.Fatal("past global month changed")
	}
	gNow, _ := f.reg.GlobalAt(cur)
	if !gNow.Staked.Eq(tokens(30000)) {
		t.Fatalf("current global should exclude destroyed nft, got %s", gNow.Staked.Dec())
	}
	if _, err := f.reg.Position(1); !errors.Is(err, ErrNftDestroyed) {
		t.Fatalf("expected destroyed error, got %v", err)
	}
	if _, err := f.reg.StakedAt(1, cur); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found at destroy month, got %v", err)
	}
	if f.reg.LiveCount() != 1 {
		t.Fatalf("expected 1 live position, got %d", f.reg.LiveCount())
	}
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	if err := f.reg.TransferOwnership(bob, 1, bob); !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("expected not owned, got %v", err)
	}
	if err := f.reg.TransferOwnership(alice, 1, common.Address{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected zero address error, got %v", err)
	}
	before, _ := f.reg.Position(1)
	if err := f.reg.TransferOwnership(alice, 1, bob); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	after, _ := f.reg.Position(1)
	if after.Owner != bob || !after.Staked.Eq(before.Staked) || after.Level != before.Level {
		t.Fatal("transfer must only repoint the owner")
	}
	if err := f.reg.Stake(alice, 1, new(uint256.Int)); !errors.Is(err, ErrNftNotOwned) {
		t.Fatalf("old owner should be rejected, got %v", err)
	}
	if err := f.reg.Stake(bob, 1, new(uint256.Int)); err != nil {
		t.Fatalf("new owner stake: %v", err)
	}
	if f.reg.Journal().Count(journal.KindTransfer) != 1 {
		t.Fatal("expected a transfer event")
	}
}

type stuckCustody struct{ Custody }

func (stuckCustody) Transfer(from, to common.Address, amount *uint256.Int) error {
	return token.ErrInsufficientBalance
}

func TestFailedReclaimIsLogged(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	f.reg.custody = stuckCustody{f.reg.custody}
	f.reg.reclaim(alice, tokens(7))
	out := buf.String()
	if !strings.Contains(out, "reclaim 7000000000000000000 from "+alice.Hex()+" failed") {
		t.Fatalf("expected reclaim failure in log, got %q", out)
	}
}

func TestRevertRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.advance(month)
	if err := f.reg.ledger.ApplyDelta(1, tokens(500), false); err != nil {
		t.Fatal(err)
	}
	f.reg.revert(1, tokens(500))

	v, err := f.reg.Position(1)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Staked.Eq(tokens(25000)) || !v.Minimum.Eq(tokens(25000)) {
		t.Fatalf("after revert: staked=%s min=%s", v.Staked.Dec(), v.Minimum.Dec())
	}
	g, _ := f.reg.GlobalAt(1)
	if !g.Staked.Eq(tokens(25000)) {
		t.Fatalf("global after revert: %s", g.Staked.Dec())
	}
}

func TestErrorKindsSeparateUnknownFromDestroyed(t *testing.T) {
	f := newFixture(t)
	f.mint(t, 1, alice, 25000)
	f.advance(7 * month)
	f.mint(t, 2, alice, 25000)
	if _, err := f.reg.Destroy(alice, 1); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	unknown := f.reg.Stake(alice, 999, new(uint256.Int))
	_, early := f.reg.StakedAt(2, 3)
	_, gone := f.reg.Position(1)

	if errs.KindOf(unknown) != errs.KindValidation || !errors.Is(unknown, ErrUnknownNft) {
		t.Fatalf("unknown nft: got %s (%v)", errs.KindOf(unknown), unknown)
	}
	if errs.KindOf(early) != errs.KindValidation {
		t.Fatalf("month before mint: got %s (%v)", errs.KindOf(early), early)
	}
	if errs.KindOf(gone) != errs.KindNotFound || !errors.Is(gone, ErrNftDestroyed) {
		t.Fatalf("destroyed nft: got %s (%v)", errs.KindOf(gone), gone)
	}
}
