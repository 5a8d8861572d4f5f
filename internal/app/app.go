package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/stakeforge/nftstake/internal/config"
	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/ledger"
	"github.com/stakeforge/nftstake/internal/notify"
	"github.com/stakeforge/nftstake/internal/pools"
	"github.com/stakeforge/nftstake/internal/portfolio"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/staking"
	"github.com/stakeforge/nftstake/internal/telegramtmpl"
	"github.com/stakeforge/nftstake/internal/throttle"
	"github.com/stakeforge/nftstake/internal/token"
)

const notifyQueueSize = 256

type App struct {
	cfg config.Config

	clock    *ledger.Clock
	token    *token.Token
	journal  *journal.Journal
	registry *staking.Registry
	wrapper  *rewards.Wrapper
	treasury common.Address

	pools     *pools.Tracker
	portfolio *portfolio.PortfolioTracker

	activity *activityCollector
	metrics  *metrics
	notifier Notifier
	events   chan journal.Event

	mu        sync.RWMutex
	running   bool
	lastMonth uint64
	watching  bool
}

// Notifier defines alert methods used by the staking app.
type Notifier interface {
	NotifyMint(ctx context.Context, nftID uint64, owner, seed, symbol string) error
	NotifyClaim(ctx context.Context, nftID uint64, strategy, amount, symbol string) error
	NotifyDestroy(ctx context.Context, nftID uint64, refund, symbol string) error
	NotifyMonthReport(ctx context.Context, textHTML string) error
}

// New wires the ledger, registry and reward pools from cfg. now drives the
// month clock; nil means time.Now.
func New(cfg config.Config, now func() time.Time) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	decimals := cfg.Token.Decimals

	clock, err := ledger.NewClock(cfg.Ledger.Start, cfg.Ledger.MonthLength, now)
	if err != nil {
		return nil, err
	}
	c, err := buildCurve(cfg.Curve, decimals)
	if err != nil {
		return nil, err
	}
	daily, err := token.ParseAmount(cfg.Allowance.Daily, decimals)
	if err != nil {
		return nil, fmt.Errorf("allowance.daily: %w", err)
	}
	addrs, err := buildAddresses(cfg.Addresses)
	if err != nil {
		return nil, err
	}

	tok := token.New(token.Config{Symbol: cfg.Token.Symbol, Decimals: decimals})
	if err := mintGenesis(tok, cfg.Token.Genesis); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		clock:    clock,
		token:    tok,
		journal:  journal.New(),
		treasury: addrs.treasury,
		activity: newActivityCollector(),
		metrics:  newMetrics(),
		events:   make(chan journal.Event, notifyQueueSize),
	}
	a.journal.OnEvent = a.onEvent

	if cfg.Telegram.Enabled {
		a.notifier = notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	a.registry = staking.NewRegistry(
		staking.Config{Vault: addrs.vault, Treasury: addrs.treasury, DefaultLockPeriod: cfg.Ledger.LockPeriod},
		ledger.New(clock),
		c,
		throttle.New(throttle.Config{DailyAllowance: *daily, Day: cfg.Allowance.Day}, c),
		tok,
		a.journal,
	)

	tokenSchedule, err := buildSchedule(cfg.Rewards.TokenSchedule, decimals, rewards.DefaultTokenSchedule)
	if err != nil {
		return nil, fmt.Errorf("rewards.token_schedule%w", err)
	}
	sharesSchedule, err := buildSchedule(cfg.Rewards.SharesSchedule, decimals, rewards.DefaultSharesSchedule)
	if err != nil {
		return nil, fmt.Errorf("rewards.shares_schedule%w", err)
	}
	if underfunded(tok.BalanceOf(addrs.tokenPool), tokenSchedule) {
		log.Printf("warning: token pool %s holds %s, schedule pays %s", addrs.tokenPool.Hex(), tok.BalanceOf(addrs.tokenPool).Dec(), tokenSchedule.Sum().Dec())
	}
	if underfunded(tok.BalanceOf(addrs.sharesPool), sharesSchedule) {
		log.Printf("warning: shares pool %s holds %s, schedule pays %s", addrs.sharesPool.Hex(), tok.BalanceOf(addrs.sharesPool).Dec(), sharesSchedule.Sum().Dec())
	}
	perLevel, err := token.ParseAmount(cfg.Rewards.LevelReward, decimals)
	if err != nil {
		return nil, fmt.Errorf("rewards.level_reward: %w", err)
	}
	a.wrapper = rewards.NewWrapper(a.registry,
		rewards.NewDistributor(rewards.NewTokenStrategy(a.registry, tokenSchedule), addrs.tokenPool, a.registry, a.journal),
		rewards.NewDistributor(rewards.NewSharesStrategy(a.registry, sharesSchedule, perLevel), addrs.sharesPool, a.registry, a.journal),
		rewards.NewDistributor(rewards.NewLevelsStrategy(a.registry, cfg.Rewards.LevelsMonths, perLevel), addrs.levelPool, a.registry, a.journal),
	)

	var watched []pools.Pool
	for _, d := range a.wrapper.Distributors() {
		watched = append(watched, d)
	}
	a.pools = pools.NewTracker(watched, tok, a.registry, a.interval())
	a.portfolio = portfolio.NewTracker(a.registry, a.wrapper, a.interval())
	a.metrics.watch(a)
	return a, nil
}

// underfunded reports whether balance cannot pay every month of s.
func underfunded(balance *uint256.Int, s rewards.Schedule) bool {
	return balance.Lt(s.Sum())
}

// SetNotifier replaces the notifier; nil disables notifications.
func (a *App) SetNotifier(n Notifier) { a.notifier = n }

func (a *App) Registry() *staking.Registry { return a.registry }

func (a *App) Rewards() *rewards.Wrapper { return a.wrapper }

func (a *App) Token() *token.Token { return a.token }

func (a *App) Journal() *journal.Journal { return a.journal }

func (a *App) Clock() *ledger.Clock { return a.clock }

func (a *App) Pools() *pools.Tracker { return a.pools }

func (a *App) Portfolio() *portfolio.PortfolioTracker { return a.portfolio }

// Minter is the only caller allowed to mint positions.
func (a *App) Minter() common.Address { return a.treasury }

func (a *App) Symbol() string { return a.cfg.Token.Symbol }

func (a *App) Decimals() uint8 { return a.cfg.Token.Decimals }

func (a *App) Debug() bool { return a.cfg.LogLevel == "debug" }

// Activity returns per-month mutation counts and claimed totals.
func (a *App) Activity() ActivitySnapshot { return a.activity.snapshot() }

// IsRunning reports whether the watcher loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

func (a *App) interval() time.Duration {
	if a.cfg.WatchInterval <= 0 {
		return time.Minute
	}
	return a.cfg.WatchInterval
}

func (a *App) setRunning(v bool) {
	a.mu.Lock()
	a.running = v
	a.mu.Unlock()
}

// Run watches for month rollovers and delivers notifications until ctx ends.
func (a *App) Run(ctx context.Context) error {
	a.setRunning(true)
	defer a.setRunning(false)

	interval := a.interval()
	log.Printf("staking loop started (month=%d interval=%s)", a.clock.CurrentMonth(), interval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		a.checkMonth(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.checkMonth(ctx)
			}
		}
	})
	g.Go(func() error { return a.pools.Run(ctx) })
	g.Go(func() error { return a.portfolio.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev := <-a.events:
				a.notifyEvent(ctx, ev)
			}
		}
	})
	return g.Wait()
}

// Shutdown logs a session summary.
func (a *App) Shutdown(_ context.Context) {
	log.Println("shutting down...")
	snap := a.activity.snapshot()
	log.Printf("session complete: month=%d live=%d events=%d claims=%d",
		a.clock.CurrentMonth(), a.registry.LiveCount(), a.journal.Len(), snap.Total.Claims)
}

// checkMonth reports a rollover when the clock has entered a new month since
// the previous check. The first check only records the month.
func (a *App) checkMonth(ctx context.Context) bool {
	cur := a.clock.CurrentMonth()
	a.mu.Lock()
	prev, seen := a.lastMonth, a.watching
	a.lastMonth, a.watching = cur, true
	a.mu.Unlock()

	if !seen || cur == prev {
		return false
	}
	log.Printf("month rollover: %d -> %d live=%d", prev, cur, a.registry.LiveCount())
	if a.notifier != nil {
		if err := a.notifier.NotifyMonthReport(ctx, a.MonthReport(cur)); err != nil {
			log.Printf("notify month report: %v", err)
		}
	}
	return true
}

// MonthReport renders the rollover summary for month.
func (a *App) MonthReport(month uint64) string {
	data := telegramtmpl.MonthlyData{
		Month:    month,
		Symbol:   a.Symbol(),
		LiveNfts: a.registry.LiveCount(),
	}
	if month > 0 {
		if g, err := a.registry.GlobalAt(month - 1); err == nil {
			data.GlobalStaked = a.format(&g.Staked)
			data.GlobalMinimum = a.format(&g.Minimum)
			data.GlobalShares = g.Shares
			data.GlobalLevels = g.Levels
		}
	}

	status, err := a.pools.Check(month)
	if err != nil {
		log.Printf("month report: %v", err)
	}
	var shortfalls []string
	for _, st := range status {
		if st.Shortfall {
			shortfalls = append(shortfalls, st.Strategy)
		}
		data.Pools = append(data.Pools, telegramtmpl.PoolLine{
			Strategy: st.Strategy,
			Total:    a.format(st.Due),
			Balance:  a.format(st.Balance),
		})
	}

	var last MonthActivity
	if month > 0 {
		last = a.activity.month(month - 1)
	}
	data.Highlights, data.Warnings = telegramtmpl.BuildMonthlyHighlightsWarnings(telegramtmpl.MonthlyAdviceInput{
		Month:          month,
		ScheduleMonths: rewards.ScheduleMonths,
		LiveNfts:       data.LiveNfts,
		Minted:         last.Mints,
		Destroyed:      last.Destroys,
		Claims:         last.Claims,
		PoolShortfalls: shortfalls,
	})
	return telegramtmpl.RenderMonthlyHTML(data)
}

func (a *App) format(v *uint256.Int) string {
	return token.FormatAmount(v, a.Decimals())
}

// onEvent runs for every journal append, possibly under the registry lock,
// so it never blocks.
func (a *App) onEvent(ev journal.Event) {
	a.activity.record(ev)
	a.metrics.observe(ev, a.Decimals())
	if a.notifier == nil {
		return
	}
	switch ev.Kind {
	case journal.KindMint, journal.KindClaim, journal.KindDestroy:
	default:
		return
	}
	select {
	case a.events <- ev:
	default:
		log.Printf("notify: queue full, dropping %s event for nft %d", ev.Kind, ev.NftID)
	}
}

func (a *App) notifyEvent(ctx context.Context, ev journal.Event) {
	if a.notifier == nil {
		return
	}
	amount := a.format(parseDecimal(ev.Amount))
	var err error
	switch ev.Kind {
	case journal.KindMint:
		err = a.notifier.NotifyMint(ctx, ev.NftID, ev.Actor.Hex(), amount, a.Symbol())
	case journal.KindClaim:
		err = a.notifier.NotifyClaim(ctx, ev.NftID, ev.Strategy, amount, a.Symbol())
	case journal.KindDestroy:
		err = a.notifier.NotifyDestroy(ctx, ev.NftID, amount, a.Symbol())
	}
	if err != nil {
		log.Printf("notify %s: %v", ev.Kind, err)
	}
}
