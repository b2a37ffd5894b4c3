package engine

import (
	"context"
	"errors"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// Vistas de solo lectura para la capa de API/UI. Cada llamada lee un snapshot nuevo.

// Config devuelve la configuración global.
func (e *Engine) Config(ctx context.Context) (domain.Config, error) {
	var cfg domain.Config
	err := e.view(ctx, "Config", func(t *txn) error {
		var err error
		cfg, err = t.config()
		return err
	})
	return cfg, err
}

// Market devuelve un mercado.
func (e *Engine) Market(ctx context.Context, key domain.Key) (domain.Market, error) {
	var m domain.Market
	err := e.view(ctx, "Market", func(t *txn) error {
		var err error
		m, err = t.market(key)
		return err
	})
	return m, err
}

// Markets devuelve todos los mercados en orden de creación.
func (e *Engine) Markets(ctx context.Context) ([]domain.Market, error) {
	var ms []domain.Market
	err := e.view(ctx, "Markets", func(t *txn) error {
		var err error
		ms, err = t.tx.ListMarkets(ctx)
		return err
	})
	return ms, err
}

// LPPosition devuelve la posición del LP; si nunca aportó, una posición en cero.
func (e *Engine) LPPosition(ctx context.Context, market domain.Key, provider domain.Address) (domain.LPPosition, error) {
	var p domain.LPPosition
	err := e.view(ctx, "LPPosition", func(t *txn) error {
		var err error
		p, _, err = t.lpPosition(market, provider)
		return err
	})
	return p, err
}

// UserInfo devuelve el registro contable del usuario en un mercado.
func (e *Engine) UserInfo(ctx context.Context, market domain.Key, user domain.Address) (domain.UserInfo, error) {
	var u domain.UserInfo
	err := e.view(ctx, "UserInfo", func(t *txn) error {
		var err error
		u, err = t.userInfo(market, user)
		return err
	})
	return u, err
}

// Resolution devuelve la resolución del mercado.
func (e *Engine) Resolution(ctx context.Context, market domain.Key) (domain.Resolution, error) {
	var r domain.Resolution
	err := e.view(ctx, "Resolution", func(t *txn) error {
		var err error
		r, err = t.tx.GetResolution(ctx, domain.ResolutionKey(market))
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrMarketNotCompleted
		}
		return err
	})
	return r, err
}

// Dispute devuelve una disputa por clave.
func (e *Engine) Dispute(ctx context.Context, key domain.Key) (domain.Dispute, error) {
	var d domain.Dispute
	err := e.view(ctx, "Dispute", func(t *txn) error {
		var err error
		d, err = t.dispute(key)
		return err
	})
	return d, err
}

// Disputes devuelve todas las disputas contra la resolución del mercado.
func (e *Engine) Disputes(ctx context.Context, market domain.Key) ([]domain.Dispute, error) {
	var ds []domain.Dispute
	err := e.view(ctx, "Disputes", func(t *txn) error {
		var err error
		ds, err = t.tx.ListDisputes(ctx, domain.ResolutionKey(market))
		return err
	})
	return ds, err
}

// PendingDisputes devuelve las disputas que esperan la evaluación automática.
func (e *Engine) PendingDisputes(ctx context.Context) ([]domain.Dispute, error) {
	var ds []domain.Dispute
	err := e.view(ctx, "PendingDisputes", func(t *txn) error {
		var err error
		ds, err = t.tx.ListDisputesByStatus(ctx, domain.DisputePending)
		return err
	})
	return ds, err
}

// Balances es lo que una cuenta tiene en un mercado.
type Balances struct {
	Collateral uint64
	Yes        uint64
	No         uint64
}

// Balances devuelve el colateral y los saldos de tokens de owner en market.
func (e *Engine) Balances(ctx context.Context, market domain.Key, owner domain.Address) (Balances, error) {
	var b Balances
	err := e.view(ctx, "Balances", func(t *txn) error {
		m, err := t.market(market)
		if err != nil {
			return err
		}
		if b.Collateral, err = t.tx.CollateralBalance(ctx, owner); err != nil {
			return err
		}
		if b.Yes, err = t.tx.TokenBalance(ctx, m.YesToken, owner); err != nil {
			return err
		}
		b.No, err = t.tx.TokenBalance(ctx, m.NoToken, owner)
		return err
	})
	return b, err
}

// CollateralBalance devuelve el saldo de colateral de owner.
func (e *Engine) CollateralBalance(ctx context.Context, owner domain.Address) (uint64, error) {
	var bal uint64
	err := e.view(ctx, "CollateralBalance", func(t *txn) error {
		var err error
		bal, err = t.tx.CollateralBalance(ctx, owner)
		return err
	})
	return bal, err
}

// Deposit acredita colateral a owner desde fuera del sistema. Hace de puente
// de colateral externo; lo usan el faucet del CLI y los tests.
func (e *Engine) Deposit(ctx context.Context, owner domain.Address, amount uint64) error {
	return e.run(ctx, "Deposit", func(t *txn) error {
		if amount == 0 {
			return domain.ErrInvalidAmount
		}
		return t.tx.DepositCollateral(ctx, owner, amount)
	})
}
