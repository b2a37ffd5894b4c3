package domain

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// BasisPoints es el denominador de todo ratio y fee (100% = 10000).
const BasisPoints = 10_000

// FeeScale escala el acumulador de fees de LP por share.
var FeeScale = uint256.NewInt(1_000_000_000_000_000_000)

// Los montos son enteros sin signo en la unidad mínima del colateral. Toda
// aritmética que pueda pasarse de uint64 usa estos helpers.

// AddU64 devuelve a+b o ErrMathOverflow.
func AddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// SubU64 devuelve a-b o ErrMathOverflow si hay underflow.
func SubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

// MulDiv devuelve floor(a*b/d) con un intermedio de 256 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrMathOverflow
	}
	z, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(d))
	if overflow || !z.IsUint64() {
		return 0, ErrMathOverflow
	}
	return z.Uint64(), nil
}

// MulDivUp devuelve ceil(a*b/d).
func MulDivUp(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrMathOverflow
	}
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(num, uint256.NewInt(d), r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrMathOverflow
	}
	return q.Uint64(), nil
}

// BpsOf devuelve floor(amount*bps/10000).
func BpsOf(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BasisPoints)
}

// sqrtCeil devuelve ceil(sqrt(x)).
func sqrtCeil(x *uint256.Int) *uint256.Int {
	s := new(uint256.Int).Sqrt(x)
	if new(uint256.Int).Mul(s, s).Lt(x) {
		s.AddUint64(s, 1)
	}
	return s
}
