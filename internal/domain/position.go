package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// LPPosition es la participación de un LP en el pool de un mercado. Se crea
// con el primer aporte y nunca se borra; Shares puede volver a cero.
type LPPosition struct {
	Key                 Key
	Market              Key
	Provider            Address
	Shares              uint64
	InvestedCollateral  uint64
	WithdrawnCollateral uint64
	// FeeDebt es Shares*AccFeePerShare en el último cobro (estilo MasterChef).
	FeeDebt       uint256.Int
	FeesCollected uint64
	UpdatedAt     time.Time
}

// PendingFees devuelve los fees ganados desde el último cobro.
func (p LPPosition) PendingFees(accFeePerShare *uint256.Int) uint64 {
	earned := new(uint256.Int).Mul(uint256.NewInt(p.Shares), accFeePerShare)
	if earned.Lt(&p.FeeDebt) {
		return 0
	}
	earned.Sub(earned, &p.FeeDebt)
	earned.Div(earned, FeeScale)
	if !earned.IsUint64() {
		return 0
	}
	return earned.Uint64()
}

// ResetFeeDebt reancla la deuda tras un cobro o un cambio de shares.
func (p *LPPosition) ResetFeeDebt(accFeePerShare *uint256.Int) {
	p.FeeDebt.Mul(uint256.NewInt(p.Shares), accFeePerShare)
}

// UserInfo es la contabilidad de un usuario en un mercado. Los saldos
// transferibles viven en el ledger de tokens; este registro refleja lo que el
// engine emitió y quemó para el usuario y el estado de idempotencia del claim.
type UserInfo struct {
	Key           Key
	Market        Key
	User          Address
	YesBalance    uint64
	NoBalance     uint64
	Claimed       bool
	ClaimedAmount uint64
	LastClaimAt   *time.Time
	UpdatedAt     time.Time
}

// Credit suma amount al lado dado.
func (u *UserInfo) Credit(t TokenType, amount uint64) error {
	if t == TokenYes {
		v, err := AddU64(u.YesBalance, amount)
		if err != nil {
			return err
		}
		u.YesBalance = v
		return nil
	}
	v, err := AddU64(u.NoBalance, amount)
	if err != nil {
		return err
	}
	u.NoBalance = v
	return nil
}

// Debit resta amount del lado dado. Los tokens pueden llegar de fuera del
// engine (transferencias), así que el reflejo se queda en cero en vez de
// fallar: la fuente de verdad de los saldos es el ledger de tokens.
func (u *UserInfo) Debit(t TokenType, amount uint64) {
	if t == TokenYes {
		u.YesBalance = floorSub(u.YesBalance, amount)
		return
	}
	u.NoBalance = floorSub(u.NoBalance, amount)
}

func floorSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
