package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// ResolveParams es el veredicto de la authority sobre un mercado.
type ResolveParams struct {
	YesRatioBps uint64
	NoRatioBps  uint64
	Winner      domain.TokenType
	// IsCompleted debe ser true: una resolución siempre completa el mercado.
	IsCompleted bool
	EvidenceRef string
}

// ClaimResult desglosa un pago por fuente de fondos.
type ClaimResult struct {
	Payout         uint64
	FromSettlement uint64
	FromPool       uint64
	FromInsurance  uint64
	YesBurned      uint64
	NoBurned       uint64
}

// SettleResult informa la reserva que SettlePool barrió a la treasury.
type SettleResult struct {
	Swept  domain.TokenType // vacío si ningún lado resolvió a cero
	Amount uint64
}

// Resolve registra el resultado y abre la ventana de disputas.
func (e *Engine) Resolve(ctx context.Context, call Call, market domain.Key, p ResolveParams) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.run(ctx, "Resolve", func(t *txn) error {
		cfg, err := t.authorityConfig(call.Caller)
		if err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if m.IsCompleted {
			return domain.ErrCurveAlreadyCompleted
		}
		if !p.IsCompleted {
			return fmt.Errorf("resolution must complete the market: %w", domain.ErrInvalidRatio)
		}
		if err := domain.ValidateRatios(p.YesRatioBps, p.NoRatioBps, p.Winner); err != nil {
			return fmt.Errorf("yes=%d no=%d winner=%s: %w", p.YesRatioBps, p.NoRatioBps, p.Winner, err)
		}

		m.IsCompleted = true
		m.Winner = p.Winner
		m.YesRatioBps, m.NoRatioBps = p.YesRatioBps, p.NoRatioBps
		res = domain.Resolution{
			Key:               domain.ResolutionKey(m.Key),
			Market:            m.Key,
			YesRatioBps:       p.YesRatioBps,
			NoRatioBps:        p.NoRatioBps,
			Winner:            p.Winner,
			EvidenceRef:       p.EvidenceRef,
			ResolvedBy:        call.Caller,
			ResolvedAt:        t.now,
			DisputeWindowEnds: t.now.Add(cfg.DisputeWindow),
		}
		if err := t.tx.PutResolution(ctx, res); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventResolved, m.Key, call.Caller, map[string]string{
			"winner":         string(p.Winner),
			"yes_ratio_bps":  num(p.YesRatioBps),
			"no_ratio_bps":   num(p.NoRatioBps),
			"dispute_window": res.DisputeWindowEnds.Format(time.RFC3339),
		})
		return nil
	})
	return res, err
}

// ClaimRewards quema todos los YES y NO del caller y paga
// floor((yes·yesBps + no·noBps)/10000). Los fondos salen primero del ledger
// de settlement, luego de la reserva de colateral del pool y por último del
// fondo de seguro.
func (e *Engine) ClaimRewards(ctx context.Context, call Call, market domain.Key) (ClaimResult, error) {
	var res ClaimResult
	err := e.run(ctx, "ClaimRewards", func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if !m.IsCompleted {
			return domain.ErrMarketNotCompleted
		}
		if m.Disputed() {
			return fmt.Errorf("%d open disputes: %w", m.OpenDisputes, domain.ErrMarketDisputed)
		}

		yes, err := t.tx.TokenBalance(ctx, m.YesToken, call.Caller)
		if err != nil {
			return err
		}
		no, err := t.tx.TokenBalance(ctx, m.NoToken, call.Caller)
		if err != nil {
			return err
		}
		if yes == 0 && no == 0 {
			return fmt.Errorf("nothing to claim: %w", domain.ErrInsufficientBalance)
		}
		payout, err := domain.Payout(yes, no, m.YesRatioBps, m.NoRatioBps)
		if err != nil {
			return err
		}
		if err := t.tx.BurnTokens(ctx, m.YesToken, call.Caller, yes); err != nil {
			return err
		}
		if err := t.tx.BurnTokens(ctx, m.NoToken, call.Caller, no); err != nil {
			return err
		}
		res = ClaimResult{Payout: payout, YesBurned: yes, NoBurned: no}

		res.FromSettlement = min(payout, m.Settlement.CollateralLocked)
		if err := m.Settlement.Release(res.FromSettlement); err != nil {
			return err
		}
		rest := payout - res.FromSettlement

		// Queda una unidad en el pool mientras haya shares.
		available := m.Pool.CollateralReserve
		if m.Pool.TotalShares > 0 && available > 0 {
			available--
		}
		res.FromPool = min(rest, available)
		m.Pool.CollateralReserve -= res.FromPool
		rest -= res.FromPool

		var cfgDirty bool
		if rest > 0 {
			if err := insuranceCovers(cfg.Insurance, payout, rest); err != nil {
				return err
			}
			if err := t.tx.TransferCollateral(ctx, domain.InsuranceAddress(), call.Caller, rest); err != nil {
				return err
			}
			cfg.Insurance.Balance -= rest
			res.FromInsurance = rest
			cfgDirty = true
			t.emit(domain.EventInsuranceDrawn, m.Key, call.Caller, map[string]string{
				"amount":  num(rest),
				"payout":  num(payout),
				"balance": num(cfg.Insurance.Balance),
			})
		}
		if err := t.tx.TransferCollateral(ctx, domain.VaultAddress(m.Key), call.Caller, res.FromSettlement+res.FromPool); err != nil {
			return err
		}

		info, err := t.userInfo(m.Key, call.Caller)
		if err != nil {
			return err
		}
		info.YesBalance, info.NoBalance = 0, 0
		info.Claimed = true
		if info.ClaimedAmount, err = domain.AddU64(info.ClaimedAmount, payout); err != nil {
			return err
		}
		at := t.now
		info.LastClaimAt = &at

		if m.TotalClaimed, err = domain.AddU64(m.TotalClaimed, payout); err != nil {
			return err
		}
		// Un reclamo sin pago no ata el resultado: solo cuentan los pagos reales.
		if payout > 0 {
			m.ClaimsPaid++
		}

		if cfgDirty {
			cfg.UpdatedAt = t.now
			if err := t.tx.PutConfig(ctx, cfg); err != nil {
				return err
			}
		}
		if err := t.putUserInfo(info); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventClaimed, m.Key, call.Caller, map[string]string{
			"payout":          num(payout),
			"from_settlement": num(res.FromSettlement),
			"from_pool":       num(res.FromPool),
			"from_insurance":  num(res.FromInsurance),
		})
		return nil
	})
	return res, err
}

// insuranceCovers comprueba si el seguro puede cubrir el faltante completo.
// Nunca paga una compensación parcial: en ese caso el claim falla.
func insuranceCovers(p domain.InsuranceParams, payout, shortfall uint64) error {
	if !p.Enabled {
		return fmt.Errorf("shortfall %d, insurance disabled: %w", shortfall, domain.ErrInsufficientLiquidity)
	}
	threshold, err := domain.BpsOf(payout, p.LossThresholdBps)
	if err != nil {
		return err
	}
	if shortfall < threshold {
		return fmt.Errorf("shortfall %d under loss threshold %d: %w", shortfall, threshold, domain.ErrInsufficientLiquidity)
	}
	limit, err := domain.BpsOf(payout, p.MaxCompensationBps)
	if err != nil {
		return err
	}
	if shortfall > limit {
		return fmt.Errorf("shortfall %d over compensation cap %d: %w", shortfall, limit, domain.ErrInsufficientLiquidity)
	}
	if shortfall > p.Balance {
		return fmt.Errorf("shortfall %d over insurance balance %d: %w", shortfall, p.Balance, domain.ErrInsufficientLiquidity)
	}
	return nil
}

// SettlePool barre a la treasury (como tokens) la reserva del lado que
// resolvió a cero y desbloquea los retiros de LP.
func (e *Engine) SettlePool(ctx context.Context, call Call, market domain.Key) (SettleResult, error) {
	var res SettleResult
	err := e.run(ctx, "SettlePool", func(t *txn) error {
		cfg, err := t.authorityConfig(call.Caller)
		if err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if !m.IsCompleted {
			return domain.ErrMarketNotCompleted
		}
		if m.PoolSettled {
			return domain.ErrPoolAlreadySettled
		}
		if m.Disputed() {
			return fmt.Errorf("%d open disputes: %w", m.OpenDisputes, domain.ErrMarketDisputed)
		}

		for _, side := range []domain.TokenType{domain.TokenYes, domain.TokenNo} {
			if m.RatioBps(side) != 0 {
				continue
			}
			res.Swept, res.Amount = side, m.Pool.Reserve(side)
			if err := t.tx.MintTokens(ctx, m.Token(side), cfg.Treasury, res.Amount); err != nil {
				return err
			}
			if side == domain.TokenYes {
				m.Pool.YesReserve = 0
			} else {
				m.Pool.NoReserve = 0
			}
		}
		m.PoolSettled = true

		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventPoolSettled, m.Key, call.Caller, map[string]string{
			"swept":  string(res.Swept),
			"amount": num(res.Amount),
		})
		return nil
	})
	return res, err
}

// FinalizeResolution cierra una resolución cuando su ventana de disputas ya
// pasó y no queda ninguna abierta. Cualquiera puede llamarla.
func (e *Engine) FinalizeResolution(ctx context.Context, call Call, market domain.Key) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.run(ctx, "FinalizeResolution", func(t *txn) error {
		m, err := t.market(market)
		if err != nil {
			return err
		}
		res, err = t.tx.GetResolution(ctx, domain.ResolutionKey(m.Key))
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrMarketNotCompleted
		}
		if err != nil {
			return err
		}
		if res.Finalized {
			return domain.ErrAlreadyFinalized
		}
		if res.DisputeWindowOpen(t.now) {
			return fmt.Errorf("window ends %s: %w", res.DisputeWindowEnds.Format(time.RFC3339), domain.ErrDisputeWindowOpen)
		}
		if m.Disputed() {
			return fmt.Errorf("%d open disputes: %w", m.OpenDisputes, domain.ErrMarketDisputed)
		}
		res.Finalized = true
		if err := t.tx.PutResolution(ctx, res); err != nil {
			return err
		}
		t.emit(domain.EventResolutionFinalized, m.Key, call.Caller, map[string]string{
			"winner":     string(res.Winner),
			"overturned": fmt.Sprint(res.Overturned),
		})
		return nil
	})
	return res, err
}
