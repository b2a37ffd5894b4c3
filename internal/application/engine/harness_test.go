package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/outcomex/internal/adapters/storage"
	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	treasury  = common.HexToAddress("0x00000000000000000000000000000000000a0002")
	alice     = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol     = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	dave      = common.HexToAddress("0x0000000000000000000000000000000000000da4")

	yesTok = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	noTok  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

const startingBalance = 1_000_000

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// recorder is an in-memory ports.EventSink.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, evs []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
	return nil
}

func (r *recorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	eng    *engine.Engine
	clock  *clock
	sink   *recorder
	market domain.Key
}

// newHarness initializes the system with the given params (authority is the
// caller), creates the yesTok/noTok market and funds alice, bob and carol.
func newHarness(t *testing.T, mutate ...func(*engine.InitParams)) *harness {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		t:     t,
		ctx:   context.Background(),
		clock: &clock{now: t0},
		sink:  &recorder{},
	}
	h.eng = engine.New(db, h.sink, engine.WithClock(h.clock.Now))

	params := engine.InitParams{
		Treasury:      treasury,
		TokenDecimals: 6,
		MinLiquidity:  1,
		DisputeWindow: 48 * time.Hour,
	}
	for _, fn := range mutate {
		fn(&params)
	}
	_, err = h.eng.Initialize(h.ctx, engine.As(authority), params)
	require.NoError(t, err)

	m, err := h.eng.CreateMarket(h.ctx, engine.As(authority), yesTok, noTok, time.Time{})
	require.NoError(t, err)
	h.market = m.Key

	for _, who := range []domain.Address{alice, bob, carol} {
		require.NoError(t, h.eng.Deposit(h.ctx, who, startingBalance))
	}
	return h
}

func (h *harness) mkt() domain.Market {
	h.t.Helper()
	m, err := h.eng.Market(h.ctx, h.market)
	require.NoError(h.t, err)
	return m
}

func (h *harness) balances(who domain.Address) engine.Balances {
	h.t.Helper()
	b, err := h.eng.Balances(h.ctx, h.market, who)
	require.NoError(h.t, err)
	return b
}

func (h *harness) collateral(who domain.Address) uint64 {
	h.t.Helper()
	bal, err := h.eng.CollateralBalance(h.ctx, who)
	require.NoError(h.t, err)
	return bal
}

func (h *harness) seed(who domain.Address, amount uint64) {
	h.t.Helper()
	_, err := h.eng.SeedPool(h.ctx, engine.As(who), h.market, amount, 0)
	require.NoError(h.t, err)
}

func (h *harness) buy(who domain.Address, token domain.TokenType, amount uint64) domain.SwapQuote {
	h.t.Helper()
	q, err := h.eng.Swap(h.ctx, engine.As(who), engine.SwapParams{
		Market: h.market, Amount: amount, Direction: domain.DirectionBuy, Token: token,
	})
	require.NoError(h.t, err)
	return q
}

func (h *harness) resolve(winner domain.TokenType, yesBps, noBps uint64) {
	h.t.Helper()
	_, err := h.eng.Resolve(h.ctx, engine.As(authority), h.market, engine.ResolveParams{
		YesRatioBps: yesBps, NoRatioBps: noBps, Winner: winner, IsCompleted: true,
	})
	require.NoError(h.t, err)
}

// assertConserved checks the ledger invariants and that the market vault
// holds exactly what the two ledgers and the LP fee pot account for.
func (h *harness) assertConserved() {
	h.t.Helper()
	m := h.mkt()
	assert.True(h.t, m.Settlement.Balanced(), "settlement ledger unbalanced: %+v", m.Settlement)
	assert.True(h.t, m.Pool.Consistent(), "pool ledger inconsistent: %+v", m.Pool)
	vault := h.collateral(domain.VaultAddress(m.Key))
	assert.Equal(h.t, m.Settlement.CollateralLocked+m.Pool.CollateralReserve+m.LPFeePot, vault, "vault collateral")
}

const (
	goodReason  = "the official source reports NO" // > 20 chars
	shortReason = "too short here!"                // 15 chars
)
