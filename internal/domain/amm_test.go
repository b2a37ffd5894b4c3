package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededPool(c uint64) PoolLedger {
	return PoolLedger{CollateralReserve: c, YesReserve: c, NoReserve: c, TotalShares: c}
}

func TestSeedReserves_Symmetric(t *testing.T) {
	for _, p := range []uint64{0, 5000} {
		yes, no, err := SeedReserves(10_000, p)
		require.NoError(t, err)
		assert.Equal(t, uint64(10_000), yes)
		assert.Equal(t, uint64(10_000), no)
	}
}

func TestSeedReserves_Weighted(t *testing.T) {
	yes, no, err := SeedReserves(10_000, 7_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000), yes)
	assert.Equal(t, uint64(14_000), no)
	assert.Equal(t, uint64(7_000), SpotPriceBps(yes, no))
}

func TestSeedReserves_Invalid(t *testing.T) {
	_, _, err := SeedReserves(0, 5000)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = SeedReserves(100, 10_000)
	assert.ErrorIs(t, err, ErrInvalidRatio)
}

func TestSharesForDeposit_EmptyPool(t *testing.T) {
	d, err := SharesForDeposit(PoolLedger{}, 1_234)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234), d.Shares)
}

func TestSharesForDeposit_Proportional(t *testing.T) {
	pool := PoolLedger{CollateralReserve: 11_000, YesReserve: 9_091, NoReserve: 11_000, TotalShares: 10_000}
	d, err := SharesForDeposit(pool, 1_100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), d.Shares)
	assert.Equal(t, uint64(909), d.Yes)
	assert.Equal(t, uint64(1_100), d.No)
}

func TestSharesForDeposit_Zero(t *testing.T) {
	_, err := SharesForDeposit(seededPool(100), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmountsForShares_AllSharesReturnsEverything(t *testing.T) {
	pool := PoolLedger{CollateralReserve: 10_999, YesReserve: 9_091, NoReserve: 11_000, TotalShares: 10_000}
	d, err := AmountsForShares(pool, 10_000)
	require.NoError(t, err)

	after, err := pool.Apply(d, false)
	require.NoError(t, err)
	assert.Equal(t, PoolLedger{}, after)
}

func TestAmountsForShares_TooMany(t *testing.T) {
	_, err := AmountsForShares(seededPool(100), 101)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestQuoteSwap_BuyYes(t *testing.T) {
	q, err := QuoteSwap(seededPool(10_000), FeeSchedule{}, DirectionBuy, TokenYes, 1_000)
	require.NoError(t, err)

	// k = 1e8; no' = 11000; yes' = ceil(1e8/11000) = 9091; out = 11000 - 9091
	assert.Equal(t, uint64(1_909), q.AmountOut)
	assert.Equal(t, uint64(9_091), q.Pool.YesReserve)
	assert.Equal(t, uint64(11_000), q.Pool.NoReserve)
	assert.Equal(t, uint64(11_000), q.Pool.CollateralReserve)
	assert.Equal(t, uint64(5_000), q.PriceBefore)
	assert.Greater(t, q.PriceAfter, q.PriceBefore)
}

func TestQuoteSwap_BuyThenSellLosesOnlyRounding(t *testing.T) {
	buy, err := QuoteSwap(seededPool(10_000), FeeSchedule{}, DirectionBuy, TokenYes, 1_000)
	require.NoError(t, err)

	sell, err := QuoteSwap(buy.Pool, FeeSchedule{}, DirectionSell, TokenYes, buy.AmountOut)
	require.NoError(t, err)

	assert.Equal(t, uint64(999), sell.AmountOut)
	assert.Equal(t, uint64(10_001), sell.Pool.YesReserve)
	assert.Equal(t, uint64(10_001), sell.Pool.NoReserve)
	assert.Equal(t, uint64(10_001), sell.Pool.CollateralReserve)
}

func TestQuoteSwap_ProductNeverDecreases(t *testing.T) {
	pool := seededPool(50_000)
	fees := FeeSchedule{PlatformBuyBps: 50, LPBuyBps: 50, PlatformSellBps: 50, LPSellBps: 50}
	steps := []struct {
		dir    Direction
		token  TokenType
		amount uint64
	}{
		{DirectionBuy, TokenYes, 7_777},
		{DirectionBuy, TokenNo, 3_141},
		{DirectionSell, TokenYes, 2_000},
		{DirectionBuy, TokenYes, 12_345},
		{DirectionSell, TokenNo, 1_000},
	}
	for _, s := range steps {
		before := float64(pool.YesReserve) * float64(pool.NoReserve)
		q, err := QuoteSwap(pool, fees, s.dir, s.token, s.amount)
		require.NoError(t, err)
		after := float64(q.Pool.YesReserve) * float64(q.Pool.NoReserve)
		assert.GreaterOrEqual(t, after, before, "%s %s %d", s.dir, s.token, s.amount)
		pool = q.Pool
	}
}

func TestQuoteSwap_Fees(t *testing.T) {
	fees := FeeSchedule{PlatformBuyBps: 100, LPBuyBps: 200, PlatformSellBps: 100, LPSellBps: 100}
	q, err := QuoteSwap(seededPool(10_000), fees, DirectionBuy, TokenNo, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), q.PlatformFee)
	assert.Equal(t, uint64(20), q.LPFee)
	assert.Equal(t, uint64(970), q.Gross)
	assert.Equal(t, uint64(10_970), q.Pool.CollateralReserve)

	s, err := QuoteSwap(q.Pool, fees, DirectionSell, TokenNo, q.AmountOut)
	require.NoError(t, err)
	assert.Equal(t, s.Gross, s.AmountOut+s.PlatformFee+s.LPFee)
	assert.Equal(t, q.Pool.CollateralReserve-s.Gross, s.Pool.CollateralReserve)
}

func TestQuoteSwap_EmptyPool(t *testing.T) {
	_, err := QuoteSwap(PoolLedger{}, FeeSchedule{}, DirectionBuy, TokenYes, 10)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestQuoteSwap_InvalidInput(t *testing.T) {
	_, err := QuoteSwap(seededPool(100), FeeSchedule{}, DirectionBuy, TokenYes, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = QuoteSwap(seededPool(100), FeeSchedule{}, Direction("HOLD"), TokenYes, 10)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSpotPriceBps(t *testing.T) {
	assert.Equal(t, uint64(0), SpotPriceBps(0, 0))
	assert.Equal(t, uint64(5_000), SpotPriceBps(10, 10))
	assert.Equal(t, uint64(2_500), SpotPriceBps(30, 10))
	assert.Equal(t, uint64(5_000), SpotPriceBps(math.MaxUint64, math.MaxUint64))
}
