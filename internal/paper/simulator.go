package paper

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/app"
	"github.com/stakeforge/nftstake/internal/config"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/staking"
	"github.com/stakeforge/nftstake/internal/token"
)

type Config struct {
	Nfts        int    `yaml:"nfts"`
	Months      int    `yaml:"months"`
	Seed        string `yaml:"seed"`         // whole tokens per position
	Stake       bool   `yaml:"stake"`        // stake the full allowance every month
	OwnerBudget string `yaml:"owner_budget"` // whole tokens credited to each owner when Stake is set
}

type StrategyResult struct {
	Strategy    string
	Distributed *uint256.Int // claimed by every position so far
	Emitted     *uint256.Int // sum of monthly totals up to the current month
	PoolBalance *uint256.Int
}

type Snapshot struct {
	Month      uint64
	Live       int
	Events     int
	Strategies []StrategyResult
	Positions  []staking.View
}

// Simulator replays the ledger month by month on a simulated clock: a fixed
// set of positions is minted up front and every owner claims each month.
type Simulator struct {
	cfg         Config
	now         time.Time
	monthLength time.Duration
	app         *app.App
	owners      []common.Address
	distributed map[string]*uint256.Int
}

func NewSimulator(appCfg config.Config, cfg Config) (*Simulator, error) {
	if cfg.Nfts <= 0 {
		cfg.Nfts = 10
	}
	if cfg.Months <= 0 {
		cfg.Months = rewards.ScheduleMonths + 1
	}
	if cfg.Seed == "" {
		cfg.Seed = "25000"
	}
	if cfg.OwnerBudget == "" {
		cfg.OwnerBudget = "10000000"
	}
	appCfg.Telegram.Enabled = false
	appCfg.API.Enabled = false

	s := &Simulator{
		cfg:         cfg,
		now:         appCfg.Ledger.Start,
		monthLength: appCfg.Ledger.MonthLength,
		distributed: make(map[string]*uint256.Int),
	}
	a, err := app.New(appCfg, func() time.Time { return s.now })
	if err != nil {
		return nil, err
	}
	s.app = a

	decimals := a.Decimals()
	seed, err := token.ParseAmount(cfg.Seed, decimals)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	budget, err := token.ParseAmount(cfg.OwnerBudget, decimals)
	if err != nil {
		return nil, fmt.Errorf("owner_budget: %w", err)
	}

	for i := 0; i < cfg.Nfts; i++ {
		owner := common.BigToAddress(new(big.Int).SetUint64(uint64(0x1000 + i)))
		id := uint64(i + 1)
		if err := a.Registry().Mint(staking.MintRequest{ID: id, Owner: owner, Seed: seed}); err != nil {
			return nil, fmt.Errorf("mint %d: %w", id, err)
		}
		if cfg.Stake {
			if err := a.Token().Mint(owner, budget); err != nil {
				return nil, fmt.Errorf("fund %s: %w", owner.Hex(), err)
			}
		}
		s.owners = append(s.owners, owner)
	}
	for _, d := range a.Rewards().Distributors() {
		s.distributed[d.Name()] = new(uint256.Int)
	}
	return s, nil
}

func (s *Simulator) App() *app.App { return s.app }

// Step advances one month, then stakes and claims for every position.
func (s *Simulator) Step() error {
	s.now = s.now.Add(s.monthLength)
	reg := s.app.Registry()
	for i, owner := range s.owners {
		id := uint64(i + 1)
		if s.cfg.Stake {
			amt, unlimited, err := reg.StakingAllowance(id)
			if err != nil {
				return err
			}
			if !unlimited && !amt.IsZero() {
				if err := reg.Stake(owner, id, amt); err != nil {
					return err
				}
			}
		}
		b, err := s.app.Rewards().Claim(owner, id)
		if err != nil {
			return err
		}
		for name, amt := range b.ByStrategy {
			s.distributed[name].Add(s.distributed[name], amt)
		}
	}
	return nil
}

// Run steps through every configured month.
func (s *Simulator) Run() (Snapshot, error) {
	for m := 0; m < s.cfg.Months; m++ {
		if err := s.Step(); err != nil {
			return s.Snapshot(), fmt.Errorf("month %d: %w", s.app.Registry().CurrentMonth(), err)
		}
	}
	return s.Snapshot(), nil
}

func (s *Simulator) Snapshot() Snapshot {
	reg := s.app.Registry()
	month := reg.CurrentMonth()
	snap := Snapshot{
		Month:  month,
		Live:   reg.LiveCount(),
		Events: s.app.Journal().Len(),
	}
	for _, d := range s.app.Rewards().Distributors() {
		emitted := new(uint256.Int)
		for m := uint64(1); m <= month; m++ {
			total, err := d.Strategy().RewardTotalMonth(m)
			if err != nil {
				break
			}
			emitted.Add(emitted, total)
		}
		snap.Strategies = append(snap.Strategies, StrategyResult{
			Strategy:    d.Name(),
			Distributed: new(uint256.Int).Set(s.distributed[d.Name()]),
			Emitted:     emitted,
			PoolBalance: s.app.Token().BalanceOf(d.Pool()),
		})
	}
	for i := range s.owners {
		if v, err := reg.Position(uint64(i + 1)); err == nil {
			snap.Positions = append(snap.Positions, v)
		}
	}
	return snap
}
