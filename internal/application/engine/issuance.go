package engine

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// MintCompleteSet bloquea amount de colateral del caller en el vault del
// mercado y le emite amount YES y amount NO.
func (e *Engine) MintCompleteSet(ctx context.Context, call Call, market domain.Key, amount uint64) error {
	return e.run(ctx, "MintCompleteSet", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if amount == 0 {
			return domain.ErrInvalidAmount
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if m.IsCompleted {
			return domain.ErrCurveAlreadyCompleted
		}
		if err := t.authorize(cfg, call, "mint", market, amount); err != nil {
			return err
		}
		if err := m.Settlement.Lock(amount); err != nil {
			return fmt.Errorf("lock %d: %w", amount, err)
		}

		if err := t.tx.TransferCollateral(ctx, call.Caller, domain.VaultAddress(m.Key), amount); err != nil {
			return err
		}
		if err := t.tx.MintTokens(ctx, m.YesToken, call.Caller, amount); err != nil {
			return err
		}
		if err := t.tx.MintTokens(ctx, m.NoToken, call.Caller, amount); err != nil {
			return err
		}

		info, err := t.userInfo(m.Key, call.Caller)
		if err != nil {
			return err
		}
		if err := info.Credit(domain.TokenYes, amount); err != nil {
			return err
		}
		if err := info.Credit(domain.TokenNo, amount); err != nil {
			return err
		}
		if err := t.putUserInfo(info); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventMinted, m.Key, call.Caller, map[string]string{
			"amount":            num(amount),
			"collateral_locked": num(m.Settlement.CollateralLocked),
		})
		return nil
	})
}

// RedeemCompleteSet quema amount YES y amount NO del caller y libera amount
// de colateral del vault. Sigue abierto después de resolver: un complete set
// vale exactamente una unidad con cualquier ratio.
func (e *Engine) RedeemCompleteSet(ctx context.Context, call Call, market domain.Key, amount uint64) error {
	return e.run(ctx, "RedeemCompleteSet", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if amount == 0 {
			return domain.ErrInvalidAmount
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if err := t.authorize(cfg, call, "redeem", market, amount); err != nil {
			return err
		}

		// Ambos burns fallan con ErrInsufficientBalance si al caller no le alcanza.
		if err := t.tx.BurnTokens(ctx, m.YesToken, call.Caller, amount); err != nil {
			return err
		}
		if err := t.tx.BurnTokens(ctx, m.NoToken, call.Caller, amount); err != nil {
			return err
		}
		if err := m.Settlement.Release(amount); err != nil {
			return fmt.Errorf("release %d of %d locked: %w", amount, m.Settlement.CollateralLocked, err)
		}
		if err := t.tx.TransferCollateral(ctx, domain.VaultAddress(m.Key), call.Caller, amount); err != nil {
			return err
		}

		info, err := t.userInfo(m.Key, call.Caller)
		if err != nil {
			return err
		}
		info.Debit(domain.TokenYes, amount)
		info.Debit(domain.TokenNo, amount)
		if err := t.putUserInfo(info); err != nil {
			return err
		}
		if err := t.putMarket(m); err != nil {
			return err
		}
		t.emit(domain.EventRedeemed, m.Key, call.Caller, map[string]string{
			"amount":            num(amount),
			"collateral_locked": num(m.Settlement.CollateralLocked),
		})
		return nil
	})
}
