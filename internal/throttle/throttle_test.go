package throttle

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/curve"
)

func tokens(n uint64) uint256.Int {
	var z uint256.Int
	z.Mul(uint256.NewInt(n), curve.Unit(18))
	return z
}

func newThrottle() *Throttle {
	return New(Config{DailyAllowance: tokens(1000)}, curve.Default(18))
}

func TestAllowanceAccruesDaily(t *testing.T) {
	th := newThrottle()
	minted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{MintedAt: minted, Seed: tokens(25000), Staked: tokens(25000), Level: 17}

	avail, unlimited := th.Allowance(in, minted.Add(12*time.Hour))
	if unlimited || !avail.IsZero() {
		t.Fatalf("expected zero allowance on mint day, got %v unlimited=%v", avail, unlimited)
	}
	avail, _ = th.Allowance(in, minted.Add(3*24*time.Hour))
	want := tokens(3000)
	if !avail.Eq(&want) {
		t.Fatalf("expected 3000 tokens after 3 days, got %s", avail.Dec())
	}
}

func TestAllowanceSubtractsStakedBeyondSeed(t *testing.T) {
	th := newThrottle()
	minted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{MintedAt: minted, Seed: tokens(25000), Staked: tokens(27500), Level: 18}
	avail, _ := th.Allowance(in, minted.Add(3*24*time.Hour))
	want := tokens(500)
	if !avail.Eq(&want) {
		t.Fatalf("expected 500, got %s", avail.Dec())
	}

	in.Staked = tokens(30000)
	avail, _ = th.Allowance(in, minted.Add(3*24*time.Hour))
	if !avail.IsZero() {
		t.Fatalf("expected zero when over-consumed, got %s", avail.Dec())
	}
}

func TestAllowanceClampedToHeadroom(t *testing.T) {
	th := newThrottle()
	minted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	top := curve.Default(18).Levels.Threshold(curve.MaxLevel)
	staked := new(uint256.Int).SubUint64(top, 10)
	in := Input{MintedAt: minted, Seed: tokens(25000), Staked: *staked, Level: 79}
	avail, _ := th.Allowance(in, minted.Add(10000*24*time.Hour))
	if !avail.Eq(uint256.NewInt(10)) {
		t.Fatalf("expected headroom of 10 base units, got %s", avail.Dec())
	}
}

func TestAllowBypassedAtMaxLevel(t *testing.T) {
	th := newThrottle()
	minted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{MintedAt: minted, Seed: tokens(25000), Staked: tokens(400000), Level: curve.MaxLevel}
	huge := tokens(1_000_000_000)
	if err := th.Allow(in, minted, &huge); err != nil {
		t.Fatalf("expected unlimited staking at max level, got %v", err)
	}
}

func TestAllowRejectsOverAllowance(t *testing.T) {
	th := newThrottle()
	minted := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{MintedAt: minted, Seed: tokens(25000), Staked: tokens(25000), Level: 17}
	amt := tokens(1001)
	if err := th.Allow(in, minted.Add(24*time.Hour), &amt); !errors.Is(err, ErrAllowanceExceeded) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
	amt = tokens(1000)
	if err := th.Allow(in, minted.Add(24*time.Hour), &amt); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	zero := uint256.Int{}
	if err := th.Allow(in, minted, &zero); err != nil {
		t.Fatalf("zero stake must always be allowed, got %v", err)
	}
}
