package domain

import "time"

// FeeSchedule guarda las tasas de fees de trading en bps.
type FeeSchedule struct {
	PlatformBuyBps  uint64
	PlatformSellBps uint64
	LPBuyBps        uint64
	LPSellBps       uint64
}

// BuyBps es el fee total de una compra.
func (f FeeSchedule) BuyBps() uint64 { return f.PlatformBuyBps + f.LPBuyBps }

// SellBps es el fee total de una venta.
func (f FeeSchedule) SellBps() uint64 { return f.PlatformSellBps + f.LPSellBps }

// maxTotalFeeBps limita los fees de compra o venta al 10%.
const maxTotalFeeBps = 1_000

// Validate rechaza fees por encima del 10% por lado.
func (f FeeSchedule) Validate() error {
	if f.BuyBps() > maxTotalFeeBps || f.SellBps() > maxTotalFeeBps {
		return ErrInvalidFee
	}
	return nil
}

// InsuranceParams configura el fondo de seguro que cubre los faltantes de
// un claim cuando los dos ledgers del mercado se agotan.
type InsuranceParams struct {
	Enabled bool
	// Balance es el colateral que tiene hoy la cuenta de seguro.
	Balance uint64
	// AllocationBps es la parte de los fees de plataforma que va al fondo.
	AllocationBps uint64
	// LossThresholdBps es el faltante mínimo, relativo al payout, para que
	// el fondo entre a cubrir.
	LossThresholdBps uint64
	// MaxCompensationBps limita la compensación relativa al payout.
	MaxCompensationBps uint64
}

// Validate comprueba que cada ratio sea un valor válido en bps.
func (p InsuranceParams) Validate() error {
	if p.AllocationBps > BasisPoints || p.LossThresholdBps > BasisPoints || p.MaxCompensationBps > BasisPoints {
		return ErrInvalidFee
	}
	return nil
}

// Config es el registro global único. Authority y PendingAuthority forman
// la transferencia en dos pasos: PendingAuthority solo lo fija la authority
// actual y solo lo promueve la propia cuenta pendiente.
type Config struct {
	Authority        Address
	PendingAuthority Address
	Treasury         Address
	CollateralAsset  Address

	Fees          FeeSchedule
	TokenDecimals uint8

	// MinLiquidity es el aporte de liquidez mínimo aceptado.
	MinLiquidity uint64
	// MinTradingLiquidity es el colateral del pool por debajo del cual se
	// rechazan los swaps.
	MinTradingLiquidity uint64

	Paused      bool
	PauseReason string

	AllowListEnabled  bool
	RequireSignatures bool

	DisputeWindow time.Duration
	Insurance     InsuranceParams

	UpdatedAt time.Time
}

// IsAuthority indica si addr es la authority actual.
func (c Config) IsAuthority(addr Address) bool {
	return addr == c.Authority
}

// HasPendingAuthority indica si hay una transferencia en curso.
func (c Config) HasPendingAuthority() bool {
	return c.PendingAuthority != (Address{})
}
