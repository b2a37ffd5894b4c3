package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// SwapParams describe un trade contra el pool.
type SwapParams struct {
	Market    domain.Key
	Amount    uint64 // colateral en compras, tokens en ventas
	Direction domain.Direction
	Token     domain.TokenType
	MinOut    uint64
	// Deadline se compara con el reloj del engine; cero = sin deadline.
	Deadline time.Time
}

// Swap opera contra el pool. Las compras pagan fees del colateral de entrada
// y las ventas del colateral obtenido. Solo se mueve el ledger del pool.
func (e *Engine) Swap(ctx context.Context, call Call, p SwapParams) (domain.SwapQuote, error) {
	var q domain.SwapQuote
	err := e.run(ctx, "Swap", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		if !p.Deadline.IsZero() && t.now.After(p.Deadline) {
			return fmt.Errorf("deadline %s: %w", p.Deadline.Format(time.RFC3339), domain.ErrDeadlineExpired)
		}
		m, err := t.market(p.Market)
		if err != nil {
			return err
		}
		if m.IsCompleted {
			return domain.ErrCurveAlreadyCompleted
		}
		if m.Expired(t.now) {
			return domain.ErrMarketExpired
		}
		if m.Pool.CollateralReserve < cfg.MinTradingLiquidity {
			return fmt.Errorf("pool collateral %d below trading minimum %d: %w",
				m.Pool.CollateralReserve, cfg.MinTradingLiquidity, domain.ErrInsufficientLiquidity)
		}
		if q, err = domain.QuoteSwap(m.Pool, cfg.Fees, p.Direction, p.Token, p.Amount); err != nil {
			return err
		}
		if q.AmountOut < p.MinOut {
			return fmt.Errorf("out %d < min %d: %w", q.AmountOut, p.MinOut, domain.ErrSlippageExceeded)
		}
		op := "swap_buy"
		if p.Direction == domain.DirectionSell {
			op = "swap_sell"
		}
		if err := t.authorize(cfg, call, op, p.Market, p.Amount); err != nil {
			return err
		}

		vault := domain.VaultAddress(m.Key)
		token := m.Token(p.Token)
		info, err := t.userInfo(m.Key, call.Caller)
		if err != nil {
			return err
		}

		var cfgDirty bool
		if p.Direction == domain.DirectionBuy {
			// el neto de la reserva y el fee de LP del pot quedan ambos en el vault
			if err := t.tx.TransferCollateral(ctx, call.Caller, vault, q.Gross+q.LPFee); err != nil {
				return err
			}
			if cfgDirty, err = t.payPlatformFee(&cfg, call.Caller, q.PlatformFee); err != nil {
				return err
			}
			if err := t.tx.MintTokens(ctx, token, call.Caller, q.AmountOut); err != nil {
				return err
			}
			if err := info.Credit(p.Token, q.AmountOut); err != nil {
				return err
			}
		} else {
			if err := t.tx.BurnTokens(ctx, token, call.Caller, p.Amount); err != nil {
				return err
			}
			if err := t.tx.TransferCollateral(ctx, vault, call.Caller, q.AmountOut); err != nil {
				return err
			}
			if cfgDirty, err = t.payPlatformFee(&cfg, vault, q.PlatformFee); err != nil {
				return err
			}
			info.Debit(p.Token, p.Amount)
		}

		m.Pool = q.Pool
		if err := accrueLPFee(&m, q.LPFee); err != nil {
			return err
		}
		if m.PlatformFees, err = domain.AddU64(m.PlatformFees, q.PlatformFee); err != nil {
			return err
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
		t.emit(domain.EventSwap, m.Key, call.Caller, map[string]string{
			"direction":    string(p.Direction),
			"token":        string(p.Token),
			"amount_in":    num(p.Amount),
			"amount_out":   num(q.AmountOut),
			"platform_fee": num(q.PlatformFee),
			"lp_fee":       num(q.LPFee),
			"price_after":  num(q.PriceAfter),
		})
		return nil
	})
	return q, err
}

// Quote cotiza un swap sin ejecutarlo.
func (e *Engine) Quote(ctx context.Context, market domain.Key, amount uint64, dir domain.Direction, token domain.TokenType) (domain.SwapQuote, error) {
	var q domain.SwapQuote
	err := e.view(ctx, "Quote", func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}
		m, err := t.market(market)
		if err != nil {
			return err
		}
		q, err = domain.QuoteSwap(m.Pool, cfg.Fees, dir, token, amount)
		return err
	})
	return q, err
}
