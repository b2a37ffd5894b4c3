package engine

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/holiman/uint256"
)

// LiquidityResult resume el efecto de una operación de liquidez sobre el caller.
type LiquidityResult struct {
	Shares     uint64
	Collateral uint64
	Yes        uint64
	No         uint64
	// FeesHarvested es el fee de LP pagado como parte de la operación.
	FeesHarvested uint64
}

// SeedPool hace el primer aporte a un pool vacío. yesPriceBps fija el precio
// inicial de YES; 0 o 5000 crean un pool simétrico.
func (e *Engine) SeedPool(ctx context.Context, call Call, market domain.Key, collateral, yesPriceBps uint64) (LiquidityResult, error) {
	var res LiquidityResult
	err := e.run(ctx, "SeedPool", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if collateral == 0 {
			return domain.ErrInvalidAmount
		}
		if collateral < cfg.MinLiquidity {
			return fmt.Errorf("seed %d below minimum %d: %w", collateral, cfg.MinLiquidity, domain.ErrInsufficientLiquidity)
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if m.IsCompleted {
			return domain.ErrCurveAlreadyCompleted
		}
		if !m.Pool.Empty() {
			return domain.ErrPoolNotEmpty
		}
		yes, no, err := domain.SeedReserves(collateral, yesPriceBps)
		if err != nil {
			return err
		}
		if err := t.authorize(cfg, call, "seed", market, collateral); err != nil {
			return err
		}
		if err := t.tx.TransferCollateral(ctx, call.Caller, domain.VaultAddress(m.Key), collateral); err != nil {
			return err
		}
		m.Pool = domain.PoolLedger{
			CollateralReserve: collateral,
			YesReserve:        yes,
			NoReserve:         no,
			TotalShares:       collateral,
		}

		lp, _, err := t.lpPosition(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if res.FeesHarvested, err = t.harvest(&m, &lp); err != nil {
			return err
		}
		lp.Shares += collateral
		if lp.InvestedCollateral, err = domain.AddU64(lp.InvestedCollateral, collateral); err != nil {
			return err
		}
		lp.ResetFeeDebt(&m.AccFeePerShare)

		if err := t.putLPPosition(lp); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		res.Shares, res.Collateral, res.Yes, res.No = collateral, collateral, yes, no
		t.emit(domain.EventPoolSeeded, m.Key, call.Caller, map[string]string{
			"collateral":    num(collateral),
			"yes_reserve":   num(yes),
			"no_reserve":    num(no),
			"yes_price_bps": num(m.YesPriceBps()),
		})
		return nil
	})
	return res, err
}

// AddLiquidity aporta colateral al pool. Las reservas de tokens crecen en la
// misma proporción que la de colateral y el precio no cambia.
func (e *Engine) AddLiquidity(ctx context.Context, call Call, market domain.Key, collateral uint64) (LiquidityResult, error) {
	var res LiquidityResult
	err := e.run(ctx, "AddLiquidity", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if collateral == 0 {
			return domain.ErrInvalidAmount
		}
		if collateral < cfg.MinLiquidity {
			return fmt.Errorf("contribution %d below minimum %d: %w", collateral, cfg.MinLiquidity, domain.ErrInsufficientLiquidity)
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if m.IsCompleted {
			return domain.ErrCurveAlreadyCompleted
		}
		d, err := domain.SharesForDeposit(m.Pool, collateral)
		if err != nil {
			return err
		}
		if m.Pool, err = m.Pool.Apply(d, true); err != nil {
			return err
		}
		if err := t.authorize(cfg, call, "add_liquidity", market, collateral); err != nil {
			return err
		}
		if err := t.tx.TransferCollateral(ctx, call.Caller, domain.VaultAddress(m.Key), collateral); err != nil {
			return err
		}

		lp, _, err := t.lpPosition(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if res.FeesHarvested, err = t.harvest(&m, &lp); err != nil {
			return err
		}
		if lp.Shares, err = domain.AddU64(lp.Shares, d.Shares); err != nil {
			return err
		}
		if lp.InvestedCollateral, err = domain.AddU64(lp.InvestedCollateral, collateral); err != nil {
			return err
		}
		lp.ResetFeeDebt(&m.AccFeePerShare)

		if err := t.putLPPosition(lp); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		res.Shares, res.Collateral, res.Yes, res.No = d.Shares, d.Collateral, d.Yes, d.No
		t.emit(domain.EventLiquidityAdded, m.Key, call.Caller, map[string]string{
			"collateral":   num(collateral),
			"shares":       num(d.Shares),
			"total_shares": num(m.Pool.TotalShares),
		})
		return nil
	})
	return res, err
}

// WithdrawLiquidity quema shares y paga su porción de cada reserva: el
// colateral a la cuenta del caller, YES y NO como tokens. Bloqueado entre la
// resolución y el settlement del pool.
func (e *Engine) WithdrawLiquidity(ctx context.Context, call Call, market domain.Key, shares, minOut uint64) (LiquidityResult, error) {
	var res LiquidityResult
	err := e.run(ctx, "WithdrawLiquidity", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if shares == 0 {
			return domain.ErrInvalidAmount
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if m.IsCompleted && !m.PoolSettled {
			return domain.ErrMarketResolvedLpLocked
		}
		lp, _, err := t.lpPosition(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if lp.Shares < shares {
			return fmt.Errorf("holds %d shares, asked %d: %w", lp.Shares, shares, domain.ErrInsufficientBalance)
		}
		d, err := domain.AmountsForShares(m.Pool, shares)
		if err != nil {
			return err
		}
		if d.Collateral < minOut {
			return fmt.Errorf("collateral out %d < min %d: %w", d.Collateral, minOut, domain.ErrSlippageExceeded)
		}
		if err := t.authorize(cfg, call, "withdraw_liquidity", market, shares); err != nil {
			return err
		}

		if res.FeesHarvested, err = t.harvest(&m, &lp); err != nil {
			return err
		}
		if m.Pool, err = m.Pool.Apply(d, false); err != nil {
			return err
		}
		lp.Shares -= shares
		if lp.WithdrawnCollateral, err = domain.AddU64(lp.WithdrawnCollateral, d.Collateral); err != nil {
			return err
		}
		lp.ResetFeeDebt(&m.AccFeePerShare)

		if err := t.tx.TransferCollateral(ctx, domain.VaultAddress(m.Key), call.Caller, d.Collateral); err != nil {
			return err
		}
		if err := t.tx.MintTokens(ctx, m.YesToken, call.Caller, d.Yes); err != nil {
			return err
		}
		if err := t.tx.MintTokens(ctx, m.NoToken, call.Caller, d.No); err != nil {
			return err
		}
		info, err := t.userInfo(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if err := info.Credit(domain.TokenYes, d.Yes); err != nil {
			return err
		}
		if err := info.Credit(domain.TokenNo, d.No); err != nil {
			return err
		}

		if err := t.putUserInfo(info); err != nil {
			return err
		}
		if err := t.putLPPosition(lp); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		res.Shares, res.Collateral, res.Yes, res.No = shares, d.Collateral, d.Yes, d.No
		t.emit(domain.EventLiquidityWithdrawn, m.Key, call.Caller, map[string]string{
			"shares":       num(shares),
			"collateral":   num(d.Collateral),
			"yes":          num(d.Yes),
			"no":           num(d.No),
			"total_shares": num(m.Pool.TotalShares),
		})
		return nil
	})
	return res, err
}

// CollectFees paga los fees de LP pendientes del caller sin tocar shares.
func (e *Engine) CollectFees(ctx context.Context, call Call, market domain.Key) (uint64, error) {
	var paid uint64
	err := e.run(ctx, "CollectFees", func(t *txn) error {
		if _, err := t.config(); err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		lp, found, err := t.lpPosition(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no position: %w", domain.ErrInsufficientBalance)
		}
		if paid, err = t.harvest(&m, &lp); err != nil {
			return err
		}
		if err := t.putLPPosition(lp); err != nil {
			return err
		}
		return t.putMarket(m)
	})
	return paid, err
}

// harvest paga los fees pendientes de lp desde el vault y reancla su deuda.
func (t *txn) harvest(m *domain.Market, lp *domain.LPPosition) (uint64, error) {
	pending := lp.PendingFees(&m.AccFeePerShare)
	if pending > m.LPFeePot {
		pending = m.LPFeePot
	}
	lp.ResetFeeDebt(&m.AccFeePerShare)
	if pending == 0 {
		return 0, nil
	}
	if err := t.tx.TransferCollateral(t.ctx, domain.VaultAddress(m.Key), lp.Provider, pending); err != nil {
		return 0, fmt.Errorf("harvest: %w", err)
	}
	m.LPFeePot -= pending
	collected, err := domain.AddU64(lp.FeesCollected, pending)
	if err != nil {
		return 0, err
	}
	lp.FeesCollected = collected
	t.emit(domain.EventFeesCollected, m.Key, lp.Provider, map[string]string{
		"amount": num(pending),
	})
	return pending, nil
}

// accrueLPFee suma fee al pot y lo reparte entre las shares vigentes.
func accrueLPFee(m *domain.Market, fee uint64) error {
	if fee == 0 {
		return nil
	}
	pot, err := domain.AddU64(m.LPFeePot, fee)
	if err != nil {
		return err
	}
	accrued, err := domain.AddU64(m.LPFeesAccrued, fee)
	if err != nil {
		return err
	}
	m.LPFeePot, m.LPFeesAccrued = pot, accrued
	if m.Pool.TotalShares == 0 {
		return nil
	}
	inc := new(uint256.Int).Mul(uint256.NewInt(fee), domain.FeeScale)
	inc.Div(inc, uint256.NewInt(m.Pool.TotalShares))
	m.AccFeePerShare.Add(&m.AccFeePerShare, inc)
	return nil
}
