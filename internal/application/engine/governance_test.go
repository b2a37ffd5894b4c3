package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/outcomex/internal/adapters/storage"
	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/auth"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	eng := engine.New(db, nil)

	_, err = eng.CreateMarket(ctx, engine.As(authority), yesTok, noTok, time.Time{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = eng.Initialize(ctx, engine.As(authority), engine.InitParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidAuthority, "treasury is required")

	_, err = eng.Initialize(ctx, engine.As(authority), engine.InitParams{
		Treasury: treasury,
		Fees:     domain.FeeSchedule{PlatformBuyBps: 600, LPBuyBps: 500},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFee)

	cfg, err := eng.Initialize(ctx, engine.As(authority), engine.InitParams{
		Treasury:  treasury,
		Insurance: domain.InsuranceParams{Enabled: true, Balance: 1_000_000},
	})
	require.NoError(t, err)
	assert.Equal(t, authority, cfg.Authority)
	assert.Equal(t, engine.DefaultDisputeWindow, cfg.DisputeWindow)
	assert.Zero(t, cfg.Insurance.Balance, "insurance starts unfunded")

	_, err = eng.Initialize(ctx, engine.As(bob), engine.InitParams{Treasury: treasury})
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t)

	fees := domain.FeeSchedule{PlatformBuyBps: 50, LPBuyBps: 30, PlatformSellBps: 50, LPSellBps: 30}
	window := 24 * time.Hour
	_, err := h.eng.UpdateConfig(h.ctx, engine.As(alice), engine.ConfigUpdate{Fees: &fees})
	assert.ErrorIs(t, err, domain.ErrIncorrectAuthority)

	cfg, err := h.eng.UpdateConfig(h.ctx, engine.As(authority), engine.ConfigUpdate{Fees: &fees, DisputeWindow: &window})
	require.NoError(t, err)
	assert.Equal(t, fees, cfg.Fees)
	assert.Equal(t, window, cfg.DisputeWindow)
	assert.Equal(t, uint64(1), cfg.MinLiquidity, "unset fields are left alone")

	bad := domain.FeeSchedule{PlatformSellBps: 1_001}
	_, err = h.eng.UpdateConfig(h.ctx, engine.As(authority), engine.ConfigUpdate{Fees: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidFee)

	zero := time.Duration(0)
	_, err = h.eng.UpdateConfig(h.ctx, engine.As(authority), engine.ConfigUpdate{DisputeWindow: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	stored, err := h.eng.Config(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, fees, stored.Fees, "rejected updates change nothing")
}

func TestEmergencyPause(t *testing.T) {
	h := newHarness(t)
	h.seed(alice, 10_000)

	assert.ErrorIs(t, h.eng.EmergencyPause(h.ctx, engine.As(alice), "nope"), domain.ErrIncorrectAuthority)
	require.NoError(t, h.eng.EmergencyPause(h.ctx, engine.As(authority), "oracle incident"))

	err := h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 10)
	assert.ErrorIs(t, err, domain.ErrSystemPaused)
	assert.Equal(t, "SystemPaused", domain.Code(err))
	_, err = h.eng.Swap(h.ctx, engine.As(bob), engine.SwapParams{
		Market: h.market, Amount: 100, Direction: domain.DirectionBuy, Token: domain.TokenYes,
	})
	assert.ErrorIs(t, err, domain.ErrSystemPaused)
	_, err = h.eng.AddLiquidity(h.ctx, engine.As(bob), h.market, 100)
	assert.ErrorIs(t, err, domain.ErrSystemPaused)
	_, err = h.eng.WithdrawLiquidity(h.ctx, engine.As(alice), h.market, 100, 0)
	assert.ErrorIs(t, err, domain.ErrSystemPaused)
	_, err = h.eng.CreateMarket(h.ctx, engine.As(authority), domain.Address{0xee}, domain.Address{0xef}, time.Time{})
	assert.ErrorIs(t, err, domain.ErrSystemPaused)

	require.NoError(t, h.eng.EmergencyUnpause(h.ctx, engine.As(authority), "resolved"))
	assert.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 10))

	kinds := h.sink.kinds()
	assert.Contains(t, kinds, domain.EventPaused)
	assert.Contains(t, kinds, domain.EventUnpaused)
}

func TestAuthorityTransfer(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.eng.NominateAuthority(h.ctx, engine.As(alice), bob), domain.ErrIncorrectAuthority)
	assert.ErrorIs(t, h.eng.NominateAuthority(h.ctx, engine.As(authority), domain.Address{}), domain.ErrInvalidAuthority)
	assert.ErrorIs(t, h.eng.AcceptAuthority(h.ctx, engine.As(bob)), domain.ErrIncorrectAuthority, "nothing pending")

	require.NoError(t, h.eng.NominateAuthority(h.ctx, engine.As(authority), bob))
	assert.ErrorIs(t, h.eng.AcceptAuthority(h.ctx, engine.As(carol)), domain.ErrIncorrectAuthority)

	cfg, err := h.eng.Config(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, authority, cfg.Authority, "nomination alone transfers nothing")
	assert.Equal(t, bob, cfg.PendingAuthority)

	require.NoError(t, h.eng.AcceptAuthority(h.ctx, engine.As(bob)))
	cfg, err = h.eng.Config(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, cfg.Authority)
	assert.False(t, cfg.HasPendingAuthority())

	assert.ErrorIs(t, h.eng.EmergencyPause(h.ctx, engine.As(authority), "old"), domain.ErrIncorrectAuthority)
	assert.NoError(t, h.eng.EmergencyPause(h.ctx, engine.As(bob), "new"))
}

func TestCreateMarket(t *testing.T) {
	h := newHarness(t)
	yes2, no2 := domain.Address{0xa7}, domain.Address{0xb7}

	_, err := h.eng.CreateMarket(h.ctx, engine.As(alice), yesTok, noTok, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketAlreadyExists)

	_, err = h.eng.CreateMarket(h.ctx, engine.As(alice), yes2, yes2, time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = h.eng.CreateMarket(h.ctx, engine.As(alice), yes2, no2, h.clock.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount, "end time in the past")

	allow := true
	_, err = h.eng.UpdateConfig(h.ctx, engine.As(authority), engine.ConfigUpdate{AllowListEnabled: &allow})
	require.NoError(t, err)

	_, err = h.eng.CreateMarket(h.ctx, engine.As(carol), yes2, no2, time.Time{})
	assert.ErrorIs(t, err, domain.ErrCreatorNotAllowed)

	require.NoError(t, h.eng.SetCreatorAllowed(h.ctx, engine.As(authority), carol, true))
	m, err := h.eng.CreateMarket(h.ctx, engine.As(carol), yes2, no2, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, carol, m.Creator)
	assert.Equal(t, domain.MarketKey(yes2, no2), m.Key)

	markets, err := h.eng.Markets(h.ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestCreateMarket_TokenAlreadyIssued(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 1_000))

	// Swapped pair: a different market key over the same two tokens.
	_, err := h.eng.CreateMarket(h.ctx, engine.As(authority), noTok, yesTok, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketAlreadyExists)

	other := domain.Address{0xc9}
	_, err = h.eng.CreateMarket(h.ctx, engine.As(authority), yesTok, other, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketAlreadyExists)
	_, err = h.eng.CreateMarket(h.ctx, engine.As(authority), other, noTok, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketAlreadyExists)
	_, err = h.eng.CreateMarket(h.ctx, engine.As(authority), other, yesTok, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketAlreadyExists)

	markets, err := h.eng.Markets(h.ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 1)

	// alice's tokens stay backed by the one market that minted them.
	m := h.mkt()
	assert.Equal(t, uint64(1_000), m.Settlement.CollateralLocked)
	assert.Equal(t, uint64(1_000), h.balances(alice).Yes)
	h.assertConserved()

	_, err = h.eng.CreateMarket(h.ctx, engine.As(authority), other, domain.Address{0xca}, time.Time{})
	assert.NoError(t, err, "fresh tokens are still accepted")
}

func TestFundInsurance(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.eng.FundInsurance(h.ctx, engine.As(alice), 0), domain.ErrInvalidAmount)
	assert.ErrorIs(t, h.eng.FundInsurance(h.ctx, engine.As(dave), 10), domain.ErrInsufficientBalance)

	require.NoError(t, h.eng.FundInsurance(h.ctx, engine.As(alice), 2_500))
	cfg, err := h.eng.Config(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500), cfg.Insurance.Balance)
	assert.Equal(t, uint64(2_500), h.collateral(domain.InsuranceAddress()))
}

func TestSignedCalls(t *testing.T) {
	h := newHarness(t, func(p *engine.InitParams) { p.RequireSignatures = true })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	require.NoError(t, h.eng.Deposit(h.ctx, signer, 1_000))

	err = h.eng.MintCompleteSet(h.ctx, engine.As(signer), h.market, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature, "unsigned")

	a, err := auth.Sign(key, auth.Request{Op: "mint", Market: h.market, Amount: 100, Nonce: 1, Expiry: t0.Add(time.Hour)})
	require.NoError(t, err)
	call := engine.Call{Caller: signer, Auth: &a}

	err = h.eng.MintCompleteSet(h.ctx, call, h.market, 99)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature, "amount differs from the signed one")

	err = h.eng.MintCompleteSet(h.ctx, engine.Call{Caller: alice, Auth: &a}, h.market, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature, "signer is not the caller")

	require.NoError(t, h.eng.MintCompleteSet(h.ctx, call, h.market, 100))
	assert.Equal(t, uint64(100), h.balances(signer).Yes)

	err = h.eng.MintCompleteSet(h.ctx, call, h.market, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature, "nonce replay")

	late, err := auth.Sign(key, auth.Request{Op: "redeem", Market: h.market, Amount: 50, Nonce: 2, Expiry: t0.Add(time.Minute)})
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)
	err = h.eng.RedeemCompleteSet(h.ctx, engine.Call{Caller: signer, Auth: &late}, h.market, 50)
	assert.ErrorIs(t, err, domain.ErrDeadlineExpired)
}

func TestEvents_OnlyPublishedOnCommit(t *testing.T) {
	h := newHarness(t)
	before := len(h.sink.kinds())

	err := h.eng.MintCompleteSet(h.ctx, engine.As(dave), h.market, 10)
	require.Error(t, err)
	assert.Len(t, h.sink.kinds(), before)

	require.NoError(t, h.eng.MintCompleteSet(h.ctx, engine.As(alice), h.market, 10))
	kinds := h.sink.kinds()
	require.Len(t, kinds, before+1)
	assert.Equal(t, domain.EventMinted, kinds[before])
}
