package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// TokenType es uno de los dos lados del mercado.
type TokenType string

const (
	TokenYes TokenType = "YES"
	TokenNo  TokenType = "NO"
)

// Valid indica si t es YES o NO.
func (t TokenType) Valid() bool { return t == TokenYes || t == TokenNo }

// Opposite devuelve el otro lado.
func (t TokenType) Opposite() TokenType {
	if t == TokenYes {
		return TokenNo
	}
	return TokenYes
}

// Direction es el sentido de un swap visto desde el trader.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid indica si d es BUY o SELL.
func (d Direction) Valid() bool { return d == DirectionBuy || d == DirectionSell }

// MarketStatus es la máquina de estados del mercado: Open → Resolved → Settled.
type MarketStatus string

const (
	StatusOpen     MarketStatus = "OPEN"
	StatusResolved MarketStatus = "RESOLVED"
	StatusSettled  MarketStatus = "SETTLED"
)

// SettlementLedger lleva el colateral bloqueado al mintear complete sets.
// Invariante: CollateralLocked == YesMinted == NoMinted.
type SettlementLedger struct {
	CollateralLocked uint64
	YesMinted        uint64
	NoMinted         uint64
}

// Balanced indica si se cumple la invariante del ledger.
func (l SettlementLedger) Balanced() bool {
	return l.CollateralLocked == l.YesMinted && l.YesMinted == l.NoMinted
}

// Lock registra la emisión de amount complete sets.
func (l *SettlementLedger) Lock(amount uint64) error {
	locked, err := AddU64(l.CollateralLocked, amount)
	if err != nil {
		return err
	}
	yes, err := AddU64(l.YesMinted, amount)
	if err != nil {
		return err
	}
	no, err := AddU64(l.NoMinted, amount)
	if err != nil {
		return err
	}
	l.CollateralLocked, l.YesMinted, l.NoMinted = locked, yes, no
	return nil
}

// Release registra la quema de amount complete sets (redeem o pago de claim).
func (l *SettlementLedger) Release(amount uint64) error {
	if amount > l.CollateralLocked || amount > l.YesMinted || amount > l.NoMinted {
		return ErrInsufficientLiquidity
	}
	l.CollateralLocked -= amount
	l.YesMinted -= amount
	l.NoMinted -= amount
	return nil
}

// PoolLedger guarda las reservas del AMM y el supply de shares de LP.
// Invariante: TotalShares == 0 ⇔ CollateralReserve == 0.
type PoolLedger struct {
	CollateralReserve uint64
	YesReserve        uint64
	NoReserve         uint64
	TotalShares       uint64
}

// Empty indica si el pool nunca tuvo seed o se retiró por completo.
func (p PoolLedger) Empty() bool { return p.TotalShares == 0 }

// Consistent indica si se cumple la invariante shares/colateral.
func (p PoolLedger) Consistent() bool {
	return (p.TotalShares == 0) == (p.CollateralReserve == 0)
}

// Reserve devuelve la reserva del lado dado.
func (p PoolLedger) Reserve(t TokenType) uint64 {
	if t == TokenYes {
		return p.YesReserve
	}
	return p.NoReserve
}

// Market es el registro de cada par (YES, NO). Sus dos ledgers son
// independientes: el mint nunca toca el pool y los swaps nunca tocan el
// ledger de settlement.
type Market struct {
	Key      Key
	YesToken Address
	NoToken  Address
	Creator  Address
	EndTime  time.Time // cero = sin fecha límite de trading

	Settlement SettlementLedger
	Pool       PoolLedger

	// LPFeePot es el colateral del vault reservado a fees de LP sin cobrar.
	// No forma parte de Pool.CollateralReserve.
	LPFeePot       uint64
	AccFeePerShare uint256.Int // escalado por FeeScale
	LPFeesAccrued  uint64      // histórico
	PlatformFees   uint64      // histórico

	IsCompleted bool
	Winner      TokenType
	YesRatioBps uint64
	NoRatioBps  uint64
	PoolSettled bool

	OpenDisputes        int
	TotalClaimed        uint64
	ClaimsPaid          int
	NeedsReconciliation bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status deriva el estado actual de la máquina de estados.
func (m Market) Status() MarketStatus {
	switch {
	case m.IsCompleted && m.PoolSettled:
		return StatusSettled
	case m.IsCompleted:
		return StatusResolved
	default:
		return StatusOpen
	}
}

// Token devuelve la dirección del token del lado dado.
func (m Market) Token(t TokenType) Address {
	if t == TokenYes {
		return m.YesToken
	}
	return m.NoToken
}

// RatioBps devuelve el ratio de pago del lado dado.
func (m Market) RatioBps(t TokenType) uint64 {
	if t == TokenYes {
		return m.YesRatioBps
	}
	return m.NoRatioBps
}

// Expired indica si el trading terminó en now.
func (m Market) Expired(now time.Time) bool {
	return !m.EndTime.IsZero() && !now.Before(m.EndTime)
}

// Disputed indica si alguna disputa sigue esperando veredicto.
func (m Market) Disputed() bool { return m.OpenDisputes > 0 }

// YesPriceBps devuelve el precio marginal de YES del pool en bps, o 0 si
// el pool está vacío.
func (m Market) YesPriceBps() uint64 {
	return SpotPriceBps(m.Pool.YesReserve, m.Pool.NoReserve)
}
