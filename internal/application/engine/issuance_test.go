package engine_test

import (
	"math"
	"testing"

	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintCompleteSet_LocksCollateralAndIssuesBothSides(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 100))

	b := h.balances(alice)
	assert.Equal(t, uint64(startingBalance-100), b.Collateral)
	assert.Equal(t, uint64(100), b.Yes)
	assert.Equal(t, uint64(100), b.No)

	m := h.mkt()
	assert.Equal(t, domain.SettlementLedger{CollateralLocked: 100, YesMinted: 100, NoMinted: 100}, m.Settlement)
	assert.True(t, m.Pool.Empty(), "minting never touches the pool")
	h.assertConserved()

	info, err := h.eng.UserInfo(h.ctx, h.market, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), info.YesBalance)
	assert.Equal(t, uint64(100), info.NoBalance)
	assert.Contains(t, h.sink.kinds(), domain.EventMinted)
}

func TestMintCompleteSet_Rejections(t *testing.T) {
	h := newHarness(t)

	err := h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, "InvalidAmount", domain.Code(err))

	err = h.eng.MintCompleteSet(h.ctx, engine.As(dave), h.market, 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance, "dave has no collateral")

	err = h.eng.MintCompleteSet(h.ctx, engine.As(alice), domain.Key{1}, 10)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)

	// rejected operations leave no trace
	assert.Equal(t, domain.SettlementLedger{}, h.mkt().Settlement)
	assert.Equal(t, uint64(startingBalance), h.collateral(alice))
}

func TestMintCompleteSet_OverflowIsRejectedBeforeAnyTransfer(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 100))

	err := h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, math.MaxUint64)
	assert.ErrorIs(t, err, domain.ErrMathOverflow)
	assert.Equal(t, uint64(100), h.mkt().Settlement.CollateralLocked)
	h.assertConserved()
}

func TestMintCompleteSet_AfterResolution(t *testing.T) {
	h := newHarness(t)
	h.resolve(domain.TokenYes, 10_000, 0)

	err := h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 10)
	assert.ErrorIs(t, err, domain.ErrCurveAlreadyCompleted)
}

func TestRedeemCompleteSet(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 100))

	require.NoError(t, h.eng.RedeemCompleteSet(h.ctx, engine.As(alice), h.market, 40))

	b := h.balances(alice)
	assert.Equal(t, uint64(startingBalance-60), b.Collateral)
	assert.Equal(t, uint64(60), b.Yes)
	assert.Equal(t, uint64(60), b.No)
	assert.Equal(t, uint64(60), h.mkt().Settlement.CollateralLocked)
	h.assertConserved()

	err := h.eng.RedeemCompleteSet(h.ctx, engine.As(alice), h.market, 61)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	err = h.eng.RedeemCompleteSet(h.ctx, engine.As(alice), h.market, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRedeemCompleteSet_RequiresBothSides(t *testing.T) {
	h := newHarness(t)
	h.seed(carol, 10_000)
	h.buy(bob, domain.TokenYes, 1_000) // YES only

	err := h.eng.RedeemCompleteSet(h.ctx, engine.As(bob), h.market, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestMintRedeem_RoundTripRestoresCollateral(t *testing.T) {
	h := newHarness(t)

	for _, amount := range []uint64{1, 7, 1_000, 123_456} {
		require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, amount))
		require.NoError(t, h.eng.RedeemCompleteSet(h.ctx, engine.As(alice), h.market, amount))
	}
	assert.Equal(t, uint64(startingBalance), h.collateral(alice))
	assert.Equal(t, domain.SettlementLedger{}, h.mkt().Settlement)
	h.assertConserved()
}
