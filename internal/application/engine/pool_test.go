package engine_test

import (
	"testing"

	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPool_Symmetric(t *testing.T) {
	h := newHarness(t)

	res, err := h.eng.SeedPool(h.ctx, engine.As(alice), h.market, 10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), res.Shares)

	m := h.mkt()
	assert.Equal(t, domain.PoolLedger{CollateralReserve: 10_000, YesReserve: 10_000, NoReserve: 10_000, TotalShares: 10_000}, m.Pool)
	assert.Equal(t, uint64(5_000), m.YesPriceBps())
	assert.Equal(t, domain.SettlementLedger{}, m.Settlement, "seeding never touches the settlement ledger")

	lp, err := h.eng.LPPosition(h.ctx, h.market, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), lp.Shares)
	assert.Equal(t, uint64(10_000), lp.InvestedCollateral)
	h.assertConserved()

	_, err = h.eng.SeedPool(h.ctx, engine.As(bob), h.market, 10_000, 0)
	assert.ErrorIs(t, err, domain.ErrPoolNotEmpty)
}

func TestSeedPool_BelowMinimum(t *testing.T) {
	h := newHarness(t, func(p *engine.InitParams) { p.MinLiquidity = 1_000 })

	_, err := h.eng.SeedPool(h.ctx, engine.As(alice), h.market, 999, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	_, err = h.eng.SeedPool(h.ctx, engine.As(alice), h.market, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestAddLiquidity_SharesProportionalToCollateral(t *testing.T) {
	h := newHarness(t)
	h.seed(alice, 10_000)
	h.buy(bob, domain.TokenYes, 1_000) // pool: C=11000 yes=9091 no=11000

	res, err := h.eng.AddLiquidity(h.ctx, engine.As(carol), h.market, 1_100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), res.Shares) // 1100·10000/11000
	assert.Equal(t, uint64(909), res.Yes)
	assert.Equal(t, uint64(1_100), res.No)

	m := h.mkt()
	assert.Equal(t, domain.PoolLedger{CollateralReserve: 12_100, YesReserve: 10_000, NoReserve: 12_100, TotalShares: 11_000}, m.Pool)
	h.assertConserved()
}

func TestAddLiquidity_Rejections(t *testing.T) {
	h := newHarness(t, func(p *engine.InitParams) { p.MinLiquidity = 100 })
	h.seed(alice, 10_000)

	_, err := h.eng.AddLiquidity(h.ctx, engine.As(bob), h.market, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = h.eng.AddLiquidity(h.ctx, engine.As(bob), h.market, 50)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	_, err = h.eng.AddLiquidity(h.ctx, engine.As(dave), h.market, 500)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestWithdrawLiquidity_RoundTrip(t *testing.T) {
	h := newHarness(t)
	h.seed(alice, 10_000)
	h.buy(bob, domain.TokenYes, 1_000)
	_, err := h.eng.AddLiquidity(h.ctx, engine.As(carol), h.market, 1_100)
	require.NoError(t, err)

	res, err := h.eng.WithdrawLiquidity(h.ctx, engine.As(carol), h.market, 1_000, 1_100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_100), res.Collateral)
	assert.Equal(t, uint64(909), res.Yes)
	assert.Equal(t, uint64(1_100), res.No)

	assert.Equal(t, uint64(startingBalance), h.collateral(carol))
	b := h.balances(carol)
	assert.Equal(t, uint64(909), b.Yes)
	assert.Equal(t, uint64(1_100), b.No)

	lp, err := h.eng.LPPosition(h.ctx, h.market, carol)
	require.NoError(t, err)
	assert.Zero(t, lp.Shares)
	assert.Equal(t, uint64(1_100), lp.WithdrawnCollateral)
	h.assertConserved()
}

func TestWithdrawLiquidity_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seed(alice, 10_000)

	_, err := h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 10_001, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = h.eng.WithdrawLiquidity(h.ctx, engine.As(bob), h.market, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance, "bob has no position")

	_, err = h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 1_000, 1_001)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
	assert.Equal(t, uint64(10_000), h.mkt().Pool.TotalShares)
}

func TestWithdrawLiquidity_LockedUntilPoolSettled(t *testing.T) {
	h := newHarness(t)
	h.seed(alice, 10_000)
	h.resolve(domain.TokenYes, 10_000, 0)

	_, err := h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 10_000, 0)
	assert.ErrorIs(t, err, domain.ErrMarketResolvedLpLocked)

	settled, err := h.eng.SettlePool(h.ctx, engine.As(authority), h.market)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenNo, settled.Swept)
	assert.Equal(t, uint64(10_000), settled.Amount)

	treasuryBal, err := h.eng.Balances(h.ctx, h.market, treasury)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), treasuryBal.No)

	res, err := h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), res.Collateral)
	assert.Equal(t, uint64(10_000), res.Yes)
	assert.Zero(t, res.No)
	assert.True(t, h.mkt().Pool.Empty())
	assert.Equal(t, domain.StatusSettled, h.mkt().Status())
	h.assertConserved()
}

func TestCollectFees_PaysAccruedLPFees(t *testing.T) {
	h := newHarness(t, func(p *engine.InitParams) {
		p.Fees = domain.FeeSchedule{PlatformBuyBps: 100, LPBuyBps: 200}
	})
	h.seed(alice, 10_000)

	q := h.buy(bob, domain.TokenNo, 1_000)
	assert.Equal(t, uint64(10), q.PlatformFee)
	assert.Equal(t, uint64(20), q.LPFee)
	assert.Equal(t, uint64(970), q.Gross)
	assert.Equal(t, uint64(10), h.collateral(treasury))

	m := h.mkt()
	assert.Equal(t, uint64(20), m.LPFeePot)
	assert.Equal(t, uint64(20), m.LPFeesAccrued)
	h.assertConserved()

	paid, err := h.eng.CollectFees(h.ctx, engine.As(alice), h.market)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), paid)
	assert.Equal(t, uint64(startingBalance-10_000+20), h.collateral(alice))
	assert.Zero(t, h.mkt().LPFeePot)
	h.assertConserved()

	paid, err = h.eng.CollectFees(h.ctx, engine.As(alice), h.market)
	require.NoError(t, err)
	assert.Zero(t, paid, "fees are paid once")

	_, err = h.eng.CollectFees(h.ctx, engine.As(bob), h.market)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestCollectFees_SplitBetweenProviders(t *testing.T) {
	h := newHarness(t, func(p *engine.InitParams) {
		p.Fees = domain.FeeSchedule{LPBuyBps: 100}
	})
	h.seed(alice, 10_000)
	_, err := h.eng.AddLiquidity(h.ctx, engine.As(carol), h.market, 10_000)
	require.NoError(t, err)

	h.buy(bob, domain.TokenYes, 4_000) // LP fee 40 over 20000 shares

	a, err := h.eng.CollectFees(h.ctx, engine.As(alice), h.market)
	require.NoError(t, err)
	c, err := h.eng.CollectFees(h.ctx, engine.As(carol), h.market)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), a)
	assert.Equal(t, uint64(20), c)
	h.assertConserved()
}
