package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Resolution es el resultado de un mercado; se crea una sola vez.
type Resolution struct {
	Key               Key
	Market            Key
	YesRatioBps       uint64
	NoRatioBps        uint64
	Winner            TokenType
	EvidenceRef       string
	ResolvedBy        Address
	ResolvedAt        time.Time
	DisputeWindowEnds time.Time
	Finalized         bool
	// Overturned se marca cuando una revisión humana invirtió el resultado original.
	Overturned bool
}

// DisputeWindowOpen indica si en now todavía se aceptan disputas.
func (r Resolution) DisputeWindowOpen(now time.Time) bool {
	return !now.After(r.DisputeWindowEnds)
}

// ValidateRatios valida el reparto de una resolución. Los resultados binarios
// son 10000/0; los escalares reparten los 10000 bps libremente y el ganador
// declarado debe tener al menos la mitad.
func ValidateRatios(yesBps, noBps uint64, winner TokenType) error {
	if yesBps+noBps != BasisPoints || yesBps > BasisPoints || noBps > BasisPoints {
		return ErrInvalidRatio
	}
	if !winner.Valid() {
		return ErrInvalidRatio
	}
	if winner == TokenYes && yesBps < noBps {
		return ErrInvalidRatio
	}
	if winner == TokenNo && noBps < yesBps {
		return ErrInvalidRatio
	}
	return nil
}

// Payout calcula floor((yes*yesBps + no*noBps) / 10000).
func Payout(yes, no, yesBps, noBps uint64) (uint64, error) {
	a := new(uint256.Int).Mul(uint256.NewInt(yes), uint256.NewInt(yesBps))
	b := new(uint256.Int).Mul(uint256.NewInt(no), uint256.NewInt(noBps))
	a.Add(a, b)
	a.Div(a, uint256.NewInt(BasisPoints))
	if !a.IsUint64() {
		return 0, ErrMathOverflow
	}
	return a.Uint64(), nil
}
