package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cropshield/cropshield/internal/asset"
	"github.com/cropshield/cropshield/internal/domain"
	"github.com/cropshield/cropshield/internal/ledger"
	"github.com/cropshield/cropshield/internal/oracle"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, domain.AuditEntry{
		ID:        int64(len(a.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...), nil
}

func (a *memAudit) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return a.List(context.Background(), domain.ListOpts{})
}

func (a *memAudit) events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Event
	}
	return out
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	stream    [][]byte
}

func newMemBus() *memBus {
	return &memBus{published: make(map[string][][]byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream = append(b.stream, payload)
	return nil
}

func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *memBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

type memSeasonStore struct {
	mu      sync.Mutex
	seasons map[uint64]domain.Season
}

func newMemSeasonStore() *memSeasonStore {
	return &memSeasonStore{seasons: make(map[uint64]domain.Season)}
}

func (s *memSeasonStore) Upsert(_ context.Context, season domain.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[season.ID] = season
	return nil
}

func (s *memSeasonStore) GetByID(_ context.Context, id uint64) (domain.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	season, ok := s.seasons[id]
	if !ok {
		return domain.Season{}, domain.ErrNotFound
	}
	return season, nil
}

func (s *memSeasonStore) List(context.Context, domain.ListOpts) ([]domain.Season, error) {
	return nil, nil
}

func (s *memSeasonStore) Latest(context.Context) (domain.Season, error) {
	return domain.Season{}, domain.ErrNotFound
}

type memPolicyStore struct {
	mu       sync.Mutex
	holdings map[uint64]map[string]int64
}

func newMemPolicyStore() *memPolicyStore {
	return &memPolicyStore{holdings: make(map[uint64]map[string]int64)}
}

func (s *memPolicyStore) Upsert(_ context.Context, h domain.PolicyHolding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdings[h.SeasonID] == nil {
		s.holdings[h.SeasonID] = make(map[string]int64)
	}
	s.holdings[h.SeasonID][h.Holder] = h.Units
	return nil
}

func (s *memPolicyStore) Get(_ context.Context, seasonID uint64, holder string) (domain.PolicyHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	units, ok := s.holdings[seasonID][holder]
	if !ok {
		return domain.PolicyHolding{}, domain.ErrNotFound
	}
	return domain.PolicyHolding{SeasonID: seasonID, Holder: holder, Units: units}, nil
}

func (s *memPolicyStore) ListBySeason(context.Context, uint64) ([]domain.PolicyHolding, error) {
	return nil, nil
}

type memVaultStore struct {
	mu        sync.Mutex
	positions map[string]int64
}

func newMemVaultStore() *memVaultStore {
	return &memVaultStore{positions: make(map[string]int64)}
}

func (s *memVaultStore) Upsert(_ context.Context, pos domain.VaultPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.Investor] = pos.Shares
	return nil
}

func (s *memVaultStore) Get(_ context.Context, investor string) (domain.VaultPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shares, ok := s.positions[investor]
	if !ok {
		return domain.VaultPosition{}, domain.ErrNotFound
	}
	return domain.VaultPosition{Investor: investor, Shares: shares}, nil
}

func (s *memVaultStore) List(context.Context, domain.ListOpts) ([]domain.VaultPosition, error) {
	return nil, nil
}

type memLocks struct {
	mu       sync.Mutex
	held     bool
	acquired int
	releases int
}

func (l *memLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.releases++
	}, nil
}

type memCache struct {
	mu      sync.Mutex
	reading domain.OracleReading
	sets    int
}

func (c *memCache) SetReading(_ context.Context, r domain.OracleReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = r
	c.sets++
	return nil
}

func (c *memCache) GetReading(context.Context) (domain.OracleReading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == 0 {
		return domain.OracleReading{}, domain.ErrNotFound
	}
	return c.reading, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

const (
	testPool   = "pool"
	testAdmin  = "admin"
	testWindow = time.Hour
)

type fixture struct {
	engine   *ledger.Engine
	clock    *ledger.OffsetClock
	assets   *asset.Ledger
	oracle   *oracle.Static
	audit    *memAudit
	bus      *memBus
	seasons  *memSeasonStore
	policies *memPolicyStore
	vault    *memVaultStore
	locks    *memLocks
	recorder *Recorder

	seasonSvc *SeasonService
	policySvc *PolicyService
	vaultSvc  *VaultService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:    ledger.NewOffsetClock(nil),
		assets:   asset.New(testPool),
		oracle:   oracle.NewStatic(50),
		audit:    &memAudit{},
		bus:      newMemBus(),
		seasons:  newMemSeasonStore(),
		policies: newMemPolicyStore(),
		vault:    newMemVaultStore(),
		locks:    &memLocks{},
	}

	engine, err := ledger.New(ledger.Config{
		Window:           testWindow,
		PayoutMultiplier: 4,
		TriggerThreshold: 10,
		Admin:            testAdmin,
		PoolAccount:      testPool,
		InitialPremium:   9,
	}, f.clock, f.assets, f.oracle, quietLogger())
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	f.engine = engine

	logger := quietLogger()
	f.recorder = NewRecorder(f.audit, f.bus, nil, logger)
	f.seasonSvc = NewSeasonService(engine, f.seasons, f.locks, f.recorder, nil, testWindow, logger)
	f.policySvc = NewPolicyService(engine, f.policies, f.seasons, f.recorder, logger)
	f.vaultSvc = NewVaultService(engine, f.vault, f.recorder, logger)
	return f
}

func (f *fixture) fund(t *testing.T, account string, amount int64) {
	t.Helper()
	f.assets.Mint(account, amount)
	f.assets.Approve(account, amount)
}

func (f *fixture) advanceTo(t *testing.T, want domain.Phase) {
	t.Helper()
	for f.engine.CurrentPhase() != want {
		if _, err := f.seasonSvc.AdvancePhase(context.Background(), testAdmin); err != nil {
			t.Fatalf("AdvancePhase: %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPolicyServiceBuyJournals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.fund(t, "investor", 1000)
	if _, err := f.vaultSvc.Deposit(ctx, "investor", 1000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	f.fund(t, "farmer", 27)
	evt, err := f.policySvc.Buy(ctx, "farmer", 3)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if evt.PoolBalance != 1027 {
		t.Fatalf("pool = %d, want 1027", evt.PoolBalance)
	}

	// Holding written through.
	h, err := f.policies.Get(ctx, 1, "farmer")
	if err != nil || h.Units != 3 {
		t.Fatalf("persisted holding = %+v, %v", h, err)
	}
	// Season row reflects units sold.
	season, err := f.seasons.GetByID(ctx, 1)
	if err != nil || season.TotalUnitsSold != 3 {
		t.Fatalf("persisted season = %+v, %v", season, err)
	}
	// Audited and published.
	events := f.audit.events()
	if events[len(events)-1] != domain.EventPolicyBought {
		t.Fatalf("audit events = %v", events)
	}
	if f.bus.count("events:"+domain.EventPolicyBought) != 1 {
		t.Fatal("expected one published purchase event")
	}
}

func TestPolicyServiceClaimPersistsBurnedHolding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.fund(t, "investor", 1000)
	if _, err := f.vaultSvc.Deposit(ctx, "investor", 1000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	f.fund(t, "farmer", 27)
	if _, err := f.policySvc.Buy(ctx, "farmer", 3); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	f.advanceTo(t, domain.PhaseClaim)
	f.oracle.Set(5)

	evt, err := f.policySvc.Claim(ctx, "farmer")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if evt.TotalPayout != 108 {
		t.Fatalf("payout = %d, want 108", evt.TotalPayout)
	}

	// The settled holding persists as a zero-unit row.
	h, err := f.policies.Get(ctx, 1, "farmer")
	if err != nil || h.Units != 0 {
		t.Fatalf("persisted holding = %+v, %v", h, err)
	}
}

func TestPolicyServiceEngineErrorSkipsJournal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// No investor capital yet: purchase must fail and leave no trace.
	f.fund(t, "farmer", 27)
	if _, err := f.policySvc.Buy(ctx, "farmer", 3); !errors.Is(err, domain.ErrNoInvestorCapital) {
		t.Fatalf("err = %v, want ErrNoInvestorCapital", err)
	}
	if got := len(f.audit.events()); got != 0 {
		t.Fatalf("audit entries = %d, want 0", got)
	}
}

func TestVaultServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.fund(t, "investor", 1000)
	dep, err := f.vaultSvc.Deposit(ctx, "investor", 1000)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	pos, err := f.vault.Get(ctx, "investor")
	if err != nil || pos.Shares != 1000 {
		t.Fatalf("persisted position = %+v, %v", pos, err)
	}

	f.advanceTo(t, domain.PhaseWithdraw)
	if _, err := f.vaultSvc.Redeem(ctx, "investor", dep.SharesMinted); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	pos, err = f.vault.Get(ctx, "investor")
	if err != nil || pos.Shares != 0 {
		t.Fatalf("position after redemption = %+v, %v", pos, err)
	}

	events := f.audit.events()
	want := []string{domain.EventInvestmentMade, domain.EventPhaseAdvanced, domain.EventPhaseAdvanced, domain.EventPhaseAdvanced, domain.EventInvestmentWithdrawn}
	if len(events) != len(want) {
		t.Fatalf("audit events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("audit events = %v, want %v", events, want)
		}
	}
}

func TestSeasonServiceRolloverUsesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.advanceTo(t, domain.PhaseFinished)

	evt, err := f.seasonSvc.StartNewSeason(ctx, testAdmin, 12)
	if err != nil {
		t.Fatalf("StartNewSeason: %v", err)
	}
	if evt.SeasonID != 2 || evt.PayoutPerUnit != 48 {
		t.Fatalf("event = %+v", evt)
	}

	// Both the finished and the fresh season were journaled.
	if _, err := f.seasons.GetByID(ctx, 1); err != nil {
		t.Fatalf("season 1 not persisted: %v", err)
	}
	if _, err := f.seasons.GetByID(ctx, 2); err != nil {
		t.Fatalf("season 2 not persisted: %v", err)
	}

	// Lock was taken once per admin mutation (4 advances + 1 rollover) and
	// always released.
	if f.locks.acquired != 5 || f.locks.releases != 5 {
		t.Fatalf("lock acquired %d released %d, want 5/5", f.locks.acquired, f.locks.releases)
	}
}

func TestSeasonServiceHeldLockBlocksMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.locks.held = true
	if _, err := f.seasonSvc.AdvancePhase(ctx, testAdmin); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	// The engine never ran: still in the active phase.
	if got := f.engine.CurrentPhase(); got != domain.PhaseActive {
		t.Fatalf("phase = %s, want active", got)
	}
}

func TestOraclePollerCachesAndAnnounces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cache := &memCache{}

	p := NewOraclePoller(f.oracle, cache, f.bus, time.Minute, quietLogger())

	p.poll(ctx)
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}
	if f.bus.count("events:oracle_round") != 1 {
		t.Fatal("expected round announcement")
	}

	// Same round again: cache refreshed, no duplicate announcement.
	p.poll(ctx)
	if cache.sets != 2 {
		t.Fatalf("cache sets = %d, want 2", cache.sets)
	}
	if f.bus.count("events:oracle_round") != 1 {
		t.Fatal("unexpected duplicate announcement")
	}

	// New round: announced.
	f.oracle.Set(7)
	p.poll(ctx)
	if f.bus.count("events:oracle_round") != 2 {
		t.Fatal("expected second announcement")
	}

	r, err := cache.GetReading(ctx)
	if err != nil || r.Value != 7 {
		t.Fatalf("cached reading = %+v, %v", r, err)
	}
}
