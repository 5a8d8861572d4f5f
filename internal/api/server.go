package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/app"
	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/journal"
	"github.com/stakeforge/nftstake/internal/ledger"
	"github.com/stakeforge/nftstake/internal/pools"
	"github.com/stakeforge/nftstake/internal/portfolio"
	"github.com/stakeforge/nftstake/internal/rewards"
	"github.com/stakeforge/nftstake/internal/staking"
	"github.com/stakeforge/nftstake/internal/token"
)

// CallerHeader carries the address a mutation is made on behalf of.
const CallerHeader = "X-Caller"

// AppState exposes the staking app's state for the API layer.
type AppState interface {
	IsRunning() bool
	Minter() common.Address
	Symbol() string
	Decimals() uint8
	Debug() bool
}

// Ledger is the staking registry surface served over HTTP.
type Ledger interface {
	CurrentMonth() uint64
	LiveCount() int
	Position(id uint64) (staking.View, error)
	StakedAt(id, month uint64) (ledger.Record, error)
	GlobalAt(month uint64) (ledger.Record, error)
	StakingAllowance(id uint64) (*uint256.Int, bool, error)

	Mint(req staking.MintRequest) error
	Stake(caller common.Address, id uint64, amount *uint256.Int) error
	Unstake(caller common.Address, id uint64, amount *uint256.Int) error
	EvolveTier(caller common.Address, id uint64) (int, bool, error)
	Destroy(caller common.Address, id uint64) (*uint256.Int, error)
	TransferOwnership(caller common.Address, id uint64, to common.Address) error
}

// Rewards is the reward wrapper surface served over HTTP.
type Rewards interface {
	Claimable(id uint64) (rewards.Breakdown, error)
	Claim(caller common.Address, id uint64) (rewards.Breakdown, error)
	Distributor(name string) (*rewards.Distributor, error)
	Distributors() []*rewards.Distributor
}

// EventLog exposes the mutation journal.
type EventLog interface {
	Recent(limit int) []journal.Event
	ForNft(id uint64) []journal.Event
}

// ActivityProvider exposes per-month activity (nil if unavailable).
type ActivityProvider interface {
	Activity() app.ActivitySnapshot
}

// Holdings exposes cached per-owner portfolios (nil if unavailable).
type Holdings interface {
	Owner(addr common.Address) (portfolio.Summary, bool)
	LastSync() time.Time
}

// PoolMonitor exposes cached reward pool coverage (nil if unavailable).
type PoolMonitor interface {
	Status() []pools.Status
	LastSync() time.Time
}

// Server is a lightweight HTTP API over the staking ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	appState   AppState
	ledger     Ledger
	rewards    Rewards
	events     EventLog
	activity   ActivityProvider
	holdings   Holdings
	pools      PoolMonitor
	startedAt  time.Time
}

// NewServer creates a new API server bound to addr.
func NewServer(addr string, appState AppState, l Ledger, rw Rewards, events EventLog, activity ActivityProvider, holdings Holdings, poolMon PoolMonitor) *Server {
	s := &Server{
		appState:  appState,
		ledger:    l,
		rewards:   rw,
		events:    events,
		activity:  activity,
		holdings:  holdings,
		pools:     poolMon,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/month", s.handleMonth)
	mux.HandleFunc("GET /api/nfts/{id}", s.handlePosition)
	mux.HandleFunc("GET /api/nfts/{id}/months/{month}", s.handleNftMonth)
	mux.HandleFunc("GET /api/nfts/{id}/claimable", s.handleClaimable)
	mux.HandleFunc("GET /api/global/{month}", s.handleGlobalMonth)
	mux.HandleFunc("GET /api/rewards/{strategy}/months/{month}", s.handleRewardMonth)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("GET /api/owners/{addr}", s.handleOwner)
	mux.HandleFunc("GET /api/pools", s.handlePools)
	mux.HandleFunc("POST /api/nfts", s.handleMint)
	mux.HandleFunc("POST /api/nfts/{id}/stake", s.handleStake)
	mux.HandleFunc("POST /api/nfts/{id}/unstake", s.handleUnstake)
	mux.HandleFunc("POST /api/nfts/{id}/evolve", s.handleEvolve)
	mux.HandleFunc("POST /api/nfts/{id}/claim", s.handleClaim)
	mux.HandleFunc("POST /api/nfts/{id}/destroy", s.handleDestroy)
	mux.HandleFunc("POST /api/nfts/{id}/transfer", s.handleTransfer)

	s.mux = mux

	var handler http.Handler = mux
	if appState.Debug() {
		handler = logRequests(mux)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Mount registers an extra handler, such as a metrics exporter.
func (s *Server) Mount(pattern string, h http.Handler) { s.mux.Handle(pattern, h) }

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("api server listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("api server: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("api: %s %s caller=%s took=%s", r.Method, r.URL.RequestURI(), r.Header.Get(CallerHeader), time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindPermission:
		status = http.StatusForbidden
	case errs.KindInvariant:
		status = http.StatusConflict
	case errs.KindNotFound:
		status = http.StatusNotFound
	}
	s.writeJSONStatus(w, status, map[string]string{"error": err.Error(), "kind": kind.String()})
}

func (s *Server) amount(v *uint256.Int) string {
	return token.FormatAmount(v, s.appState.Decimals())
}

func (s *Server) parseAmount(raw string) (*uint256.Int, error) {
	v, err := token.ParseAmount(strings.TrimSpace(raw), s.appState.Decimals())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	return v, nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", errs.ErrValidation, name, r.PathValue(name))
	}
	return v, nil
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: bad address %q", errs.ErrValidation, raw)
	}
	return common.HexToAddress(raw), nil
}

func caller(r *http.Request) (common.Address, error) {
	if r.Header.Get(CallerHeader) == "" {
		return common.Address{}, fmt.Errorf("%w: missing %s header", errs.ErrValidation, CallerHeader)
	}
	return parseAddress(r.Header.Get(CallerHeader))
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad body: %w", errs.ErrValidation, err)
	}
	return nil
}

type recordView struct {
	Month   uint64 `json:"month"`
	Staked  string `json:"staked"`
	Minimum string `json:"minimum"`
	Shares  uint64 `json:"shares"`
	Levels  uint64 `json:"levels"`
}

func (s *Server) record(month uint64, rec ledger.Record) recordView {
	return recordView{
		Month:   month,
		Staked:  s.amount(&rec.Staked),
		Minimum: s.amount(&rec.Minimum),
		Shares:  rec.Shares,
		Levels:  rec.Levels,
	}
}

// GET /api/health: liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"running":  s.appState.IsRunning(),
		"month":    s.ledger.CurrentMonth(),
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/month: current month and live position count.
func (s *Server) handleMonth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"month":     s.ledger.CurrentMonth(),
		"live_nfts": s.ledger.LiveCount(),
		"symbol":    s.appState.Symbol(),
	})
}

// GET /api/nfts/{id}: current position state.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.ledger.Position(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	allowance, unlimited, err := s.ledger.StakingAllowance(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"id":                  v.ID,
		"owner":               v.Owner.Hex(),
		"tier":                v.Tier,
		"tier_cap":            v.TierCap,
		"level":               v.Level,
		"shares":              v.Shares,
		"staked":              s.amount(v.Staked),
		"minimum":             s.amount(v.Minimum),
		"floor":               s.amount(v.Floor),
		"minted_month":        v.MintedMonth,
		"minted_at":           v.MintedAt,
		"unlocks_at":          v.UnlocksAt,
		"allowance_unlimited": unlimited,
	}
	if !unlimited {
		resp["allowance"] = s.amount(allowance)
	}
	s.writeJSON(w, resp)
}

// GET /api/nfts/{id}/months/{month}: frozen or current month record.
func (s *Server) handleNftMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	month, err := pathUint(r, "month")
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.ledger.StakedAt(id, month)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.record(month, rec))
}

// GET /api/global/{month}: aggregate record.
func (s *Server) handleGlobalMonth(w http.ResponseWriter, r *http.Request) {
	month, err := pathUint(r, "month")
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.ledger.GlobalAt(month)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.record(month, rec))
}

// GET /api/nfts/{id}/claimable: claimable per strategy.
func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := s.rewards.Claimable(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	type strategyEntry struct {
		Strategy         string `json:"strategy"`
		Claimable        string `json:"claimable"`
		ClaimedTotal     string `json:"claimed_total"`
		LastClaimedMonth uint64 `json:"last_claimed_month"`
	}
	entries := make([]strategyEntry, 0, len(b.ByStrategy))
	for _, d := range s.rewards.Distributors() {
		rec, err := d.Record(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		entries = append(entries, strategyEntry{
			Strategy:         d.Name(),
			Claimable:        s.amount(b.ByStrategy[d.Name()]),
			ClaimedTotal:     s.amount(&rec.ClaimedTotal),
			LastClaimedMonth: rec.LastClaimedMonth,
		})
	}
	s.writeJSON(w, map[string]interface{}{
		"id":         id,
		"month":      s.ledger.CurrentMonth(),
		"total":      s.amount(b.Total),
		"strategies": entries,
	})
}

// GET /api/rewards/{strategy}/months/{month}[?nft=id]: monthly totals.
func (s *Server) handleRewardMonth(w http.ResponseWriter, r *http.Request) {
	d, err := s.rewards.Distributor(r.PathValue("strategy"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	month, err := pathUint(r, "month")
	if err != nil {
		s.writeError(w, err)
		return
	}
	total, err := d.Strategy().RewardTotalMonth(month)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"strategy": d.Name(),
		"month":    month,
		"total":    s.amount(total),
	}
	if raw := r.URL.Query().Get("nft"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: bad nft %q", errs.ErrValidation, raw))
			return
		}
		reward, err := d.Strategy().RewardNftIDMonth(id, month)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp["nft"] = id
		resp["reward"] = s.amount(reward)
	}
	s.writeJSON(w, resp)
}

// GET /api/events[?limit=n&nft=id]: journal, most recent first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	var events []journal.Event
	if raw := r.URL.Query().Get("nft"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: bad nft %q", errs.ErrValidation, raw))
			return
		}
		all := s.events.ForNft(id)
		for i := len(all) - 1; i >= 0 && len(events) < limit; i-- {
			events = append(events, all[i])
		}
	} else {
		events = s.events.Recent(limit)
	}
	if events == nil {
		events = []journal.Event{}
	}
	s.writeJSON(w, map[string]interface{}{"events": events, "count": len(events)})
}

// GET /api/activity: mutation counts per month.
func (s *Server) handleActivity(w http.ResponseWriter, _ *http.Request) {
	if s.activity == nil {
		s.writeError(w, fmt.Errorf("%w: activity not tracked", errs.ErrNotFound))
		return
	}
	snap := s.activity.Activity()
	claimed := make(map[string]string, len(snap.ClaimedByStrategy))
	names := make([]string, 0, len(snap.ClaimedByStrategy))
	for name, v := range snap.ClaimedByStrategy {
		claimed[name] = s.amount(v)
		names = append(names, name)
	}
	sort.Strings(names)
	s.writeJSON(w, map[string]interface{}{
		"months":              snap.Months,
		"by_month":            snap.ByMonth,
		"total":               snap.Total,
		"claimed_by_strategy": claimed,
		"strategies":          names,
		"last_event_at":       snap.LastEventAt,
	})
}

// GET /api/owners/{addr}: cached holdings of one owner.
func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	if s.holdings == nil {
		s.writeError(w, fmt.Errorf("%w: holdings not tracked", errs.ErrNotFound))
		return
	}
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	type holding struct {
		ID        uint64 `json:"id"`
		Tier      int    `json:"tier"`
		Level     int    `json:"level"`
		Staked    string `json:"staked"`
		Claimable string `json:"claimable"`
	}
	resp := map[string]interface{}{
		"owner":           addr.Hex(),
		"holdings":        []holding{},
		"total_staked":    "0",
		"total_claimable": "0",
		"last_sync":       s.holdings.LastSync(),
	}
	if sum, ok := s.holdings.Owner(addr); ok {
		list := make([]holding, 0, len(sum.Holdings))
		for _, h := range sum.Holdings {
			list = append(list, holding{ID: h.ID, Tier: h.Tier, Level: h.Level, Staked: s.amount(h.Staked), Claimable: s.amount(h.Claimable)})
		}
		resp["holdings"] = list
		resp["total_staked"] = s.amount(sum.TotalStaked)
		resp["total_claimable"] = s.amount(sum.TotalClaimable)
	}
	s.writeJSON(w, resp)
}

// GET /api/pools: reward pool balances against the month's emission.
func (s *Server) handlePools(w http.ResponseWriter, _ *http.Request) {
	if s.pools == nil {
		s.writeError(w, fmt.Errorf("%w: pools not tracked", errs.ErrNotFound))
		return
	}
	type poolEntry struct {
		Strategy  string `json:"strategy"`
		Address   string `json:"address"`
		Month     uint64 `json:"month"`
		Due       string `json:"due"`
		Balance   string `json:"balance"`
		Shortfall bool   `json:"shortfall"`
	}
	status := s.pools.Status()
	entries := make([]poolEntry, 0, len(status))
	for _, st := range status {
		entries = append(entries, poolEntry{
			Strategy:  st.Strategy,
			Address:   st.Address.Hex(),
			Month:     st.Month,
			Due:       s.amount(st.Due),
			Balance:   s.amount(st.Balance),
			Shortfall: st.Shortfall,
		})
	}
	s.writeJSON(w, map[string]interface{}{"pools": entries, "last_sync": s.pools.LastSync()})
}

// POST /api/nfts: mint a position; minter only.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if from != s.appState.Minter() {
		s.writeError(w, fmt.Errorf("%w: %s may not mint", errs.ErrPermission, from.Hex()))
		return
	}
	var body struct {
		ID         uint64 `json:"id"`
		Owner      string `json:"owner"`
		Seed       string `json:"seed"`
		LockPeriod string `json:"lock_period"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	owner, err := parseAddress(body.Owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	seed, err := s.parseAmount(body.Seed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var lock time.Duration
	if body.LockPeriod != "" {
		if lock, err = time.ParseDuration(body.LockPeriod); err != nil {
			s.writeError(w, fmt.Errorf("%w: bad lock_period: %w", errs.ErrValidation, err))
			return
		}
	}
	if err := s.ledger.Mint(staking.MintRequest{ID: body.ID, Owner: owner, Seed: seed, LockPeriod: lock}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSONStatus(w, http.StatusCreated, map[string]interface{}{"status": "minted", "id": body.ID})
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// mutation parses the id and caller shared by every position mutation.
func (s *Server) mutation(w http.ResponseWriter, r *http.Request) (uint64, common.Address, bool) {
	id, err := pathUint(r, "id")
	if err != nil {
		s.writeError(w, err)
		return 0, common.Address{}, false
	}
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return 0, common.Address{}, false
	}
	return id, from, true
}

func (s *Server) amountBody(w http.ResponseWriter, r *http.Request) (*uint256.Int, bool) {
	var body amountRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return nil, false
	}
	amt, err := s.parseAmount(body.Amount)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return amt, true
}

// POST /api/nfts/{id}/stake: owner adds tokens.
func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	amt, ok := s.amountBody(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Stake(from, id, amt); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"status": "staked", "id": id, "amount": s.amount(amt)})
}

// POST /api/nfts/{id}/unstake: owner withdraws tokens above the floor.
func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	amt, ok := s.amountBody(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Unstake(from, id, amt); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"status": "unstaked", "id": id, "amount": s.amount(amt)})
}

// POST /api/nfts/{id}/evolve: raise tier.
func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	tier, changed, err := s.ledger.EvolveTier(from, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"id": id, "tier": tier, "changed": changed})
}

// POST /api/nfts/{id}/claim[?strategy=name]: claim and restake rewards.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	if name := r.URL.Query().Get("strategy"); name != "" {
		d, err := s.rewards.Distributor(name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		amt, err := d.Claim(from, id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{
			"id":          id,
			"total":       s.amount(amt),
			"by_strategy": map[string]string{d.Name(): s.amount(amt)},
		})
		return
	}
	b, err := s.rewards.Claim(from, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	by := make(map[string]string, len(b.ByStrategy))
	for name, amt := range b.ByStrategy {
		by[name] = s.amount(amt)
	}
	s.writeJSON(w, map[string]interface{}{"id": id, "total": s.amount(b.Total), "by_strategy": by})
}

// POST /api/nfts/{id}/destroy: refund and retire the position.
func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	refund, err := s.ledger.Destroy(from, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"status": "destroyed", "id": id, "refund": s.amount(refund)})
}

// POST /api/nfts/{id}/transfer: hand the position to a new owner.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, from, ok := s.mutation(w, r)
	if !ok {
		return
	}
	var body struct {
		To string `json:"to"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	to, err := parseAddress(body.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.ledger.TransferOwnership(from, id, to); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"status": "transferred", "id": id, "owner": to.Hex()})
}
