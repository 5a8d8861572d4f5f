package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/goleak"

	"github.com/stakeforge/nftstake/internal/config"
	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/staking"
	"github.com/stakeforge/nftstake/internal/token"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

type mockNotifier struct {
	mu       sync.Mutex
	mints    []string
	claims   []string
	destroys []string
	reports  []string
}

func (m *mockNotifier) NotifyMint(_ context.Context, nftID uint64, owner, seed, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mints = append(m.mints, seed+" "+symbol)
	return nil
}

func (m *mockNotifier) NotifyClaim(_ context.Context, nftID uint64, strategy, amount, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, strategy)
	return nil
}

func (m *mockNotifier) NotifyDestroy(_ context.Context, nftID uint64, refund, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroys = append(m.destroys, refund)
	return nil
}

func (m *mockNotifier) NotifyMonthReport(_ context.Context, textHTML string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, textHTML)
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testApp(t *testing.T) (*App, *testClock, *mockNotifier) {
	t.Helper()
	cfg := config.Default()
	cfg.Token.Genesis = append(cfg.Token.Genesis, config.Allocation{Address: alice.Hex(), Amount: "1000000"})
	clock := &testClock{now: cfg.Ledger.Start}
	a, err := New(cfg, clock.Now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := &mockNotifier{}
	a.SetNotifier(n)
	return a, clock, n
}

func mintAlice(t *testing.T, a *App, id uint64) {
	t.Helper()
	seed, _ := token.ParseAmount("25000", a.Decimals())
	if err := a.Registry().Mint(staking.MintRequest{ID: id, Owner: alice, Seed: seed}); err != nil {
		t.Fatalf("Mint: %v", err)
	}
}

func TestNewApp(t *testing.T) {
	a, _, _ := testApp(t)
	if a.Registry().CurrentMonth() != 0 {
		t.Fatalf("expected month 0, got %d", a.Registry().CurrentMonth())
	}
	if len(a.Rewards().Distributors()) != 3 {
		t.Fatalf("expected 3 distributors, got %d", len(a.Rewards().Distributors()))
	}
	for _, d := range a.Rewards().Distributors() {
		if a.Token().BalanceOf(d.Pool()).IsZero() {
			t.Fatalf("pool %s not funded", d.Name())
		}
	}
	if a.Minter() != common.HexToAddress(config.Default().Addresses.Treasury) {
		t.Fatalf("unexpected minter %s", a.Minter().Hex())
	}
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Curve.TierCaps = []int{10, 20, 30, 40, 50, 60, 70, 75, 70}
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected decreasing tier caps to fail")
	}

	cfg = config.Default()
	cfg.Addresses.Vault = "vault"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected bad vault address to fail")
	}
}

func TestCheckMonthReportsRollover(t *testing.T) {
	a, clock, n := testApp(t)
	mintAlice(t, a, 1)
	ctx := context.Background()

	if a.checkMonth(ctx) {
		t.Fatal("first check must only record the month")
	}
	if a.checkMonth(ctx) {
		t.Fatal("no rollover within the same month")
	}
	clock.advance(30 * 24 * time.Hour)
	if !a.checkMonth(ctx) {
		t.Fatal("expected rollover")
	}
	if len(n.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(n.reports))
	}
	report := n.reports[0]
	for _, want := range []string{"Month 1 Started", "Live NFTs: 1", "Staked: 25000 STK", "- token: 500000 STK", "1 NFTs minted last month."} {
		if !strings.Contains(report, want) {
			t.Fatalf("expected %q in report:\n%s", want, report)
		}
	}
}

func TestEventsQueuedForNotifier(t *testing.T) {
	a, clock, n := testApp(t)
	mintAlice(t, a, 1)
	clock.advance(30 * 24 * time.Hour)
	if _, err := a.Rewards().Claim(alice, 1); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	ctx := context.Background()
	for len(a.events) > 0 {
		a.notifyEvent(ctx, <-a.events)
	}
	if len(n.mints) != 1 || n.mints[0] != "25000 STK" {
		t.Fatalf("unexpected mint notifications %v", n.mints)
	}
	if len(n.claims) != 3 {
		t.Fatalf("expected a claim notification per strategy, got %v", n.claims)
	}
}

func TestActivityCountsEvents(t *testing.T) {
	a, clock, _ := testApp(t)
	mintAlice(t, a, 1)
	clock.advance(30 * 24 * time.Hour)
	b, err := a.Rewards().Claim(alice, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	snap := a.Activity()
	if snap.ByMonth[0].Mints != 1 {
		t.Fatalf("expected 1 mint in month 0, got %+v", snap.ByMonth[0])
	}
	if snap.ByMonth[1].Claims != 3 || snap.ByMonth[1].Restakes != 1 {
		t.Fatalf("unexpected month 1 activity %+v", snap.ByMonth[1])
	}
	if len(snap.Months) != 2 || snap.Months[0] != 0 || snap.Months[1] != 1 {
		t.Fatalf("unexpected months %v", snap.Months)
	}
	for name, amt := range b.ByStrategy {
		if amt.IsZero() {
			continue
		}
		if got := snap.ClaimedByStrategy[name]; got == nil || !got.Eq(amt) {
			t.Fatalf("%s claimed = %v, want %s", name, got, amt.Dec())
		}
	}
	if snap.LastEventAt.IsZero() {
		t.Fatal("expected last event time")
	}
}

func TestEventsDroppedWithoutNotifier(t *testing.T) {
	a, _, _ := testApp(t)
	a.SetNotifier(nil)
	mintAlice(t, a, 1)
	if len(a.events) != 0 {
		t.Fatalf("expected no queued events, got %d", len(a.events))
	}
	if a.Journal().Count(journal.KindMint) != 1 {
		t.Fatal("journal must still record the mint")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	a, _, _ := testApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !a.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("app did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if a.IsRunning() {
		t.Fatal("expected running=false after Run returns")
	}
}

func TestTrackersFollowRegistry(t *testing.T) {
	a, clock, _ := testApp(t)
	mintAlice(t, a, 1)
	mintAlice(t, a, 2)
	clock.advance(31 * 24 * time.Hour)

	ctx := context.Background()
	if err := a.Portfolio().Sync(ctx); err != nil {
		t.Fatalf("portfolio sync: %v", err)
	}
	s, ok := a.Portfolio().Owner(alice)
	if !ok || len(s.Holdings) != 2 {
		t.Fatalf("expected alice to hold 2 positions, got %+v", s)
	}
	if s.TotalClaimable.IsZero() {
		t.Fatal("expected month 1 rewards to be claimable")
	}

	if err := a.Pools().Sync(ctx); err != nil {
		t.Fatalf("pools sync: %v", err)
	}
	status := a.Pools().Status()
	if len(status) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(status))
	}
	for _, st := range status {
		if st.Month != 1 || st.Shortfall {
			t.Errorf("unexpected pool status %+v", st)
		}
	}
}

func TestMetricsTrackEventsAndPools(t *testing.T) {
	a, clock, _ := testApp(t)
	mintAlice(t, a, 1)
	clock.advance(31 * 24 * time.Hour)
	if _, err := a.Rewards().Claim(alice, 1); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	w := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		`nftstake_events_total{kind="mint"} 1`,
		`nftstake_events_total{kind="claim"} 3`,
		`nftstake_claimed_tokens_total{strategy="token"} 500000`,
		`nftstake_current_month 1`,
		`nftstake_live_nfts 1`,
		`nftstake_pool_balance_tokens{strategy="token"} 4.95e+07`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestUnderfundedComparesWholeSchedule(t *testing.T) {
	s := rewards.NewSchedule([]uint256.Int{*uint256.NewInt(30), *uint256.NewInt(20)})
	if underfunded(uint256.NewInt(50), s) {
		t.Fatal("balance equal to schedule sum is funded")
	}
	if !underfunded(uint256.NewInt(49), s) {
		t.Fatal("expected underfunded below schedule sum")
	}
}
