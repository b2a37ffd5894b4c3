package domain

// amm.go — precios del pool.
//
// El pool es un market maker de producto constante sobre las dos reservas.
// Compra del lado S con colateral neto x:
//   el pool emite x complete sets propios (yes += x, no += x, collateral += x)
//   y entrega S hasta que yes·no vuelve a (al menos) su valor previo.
// Venta de t tokens del lado S:
//   el pool recibe los tokens, quema r complete sets propios y paga r de
//   colateral, con r el mayor valor que mantiene yes·no ≥ k.
// Todo redondeo favorece al pool: yes·no nunca baja en un swap.

import "github.com/holiman/uint256"

// SpotPriceBps devuelve el precio marginal de YES, no/(yes+no), en bps.
func SpotPriceBps(yes, no uint64) uint64 {
	if yes == 0 && no == 0 {
		return 0
	}
	total, err := AddU64(yes, no)
	if err != nil {
		total, no = yes/2+no/2, no/2
	}
	p, _ := MulDiv(no, BasisPoints, total)
	return p
}

// SeedReserves devuelve las reservas iniciales para un seed de colateral al
// precio de YES pedido. 0 y 5000 significan ambos un pool simétrico 50/50.
func SeedReserves(collateral, yesPriceBps uint64) (yes, no uint64, err error) {
	if collateral == 0 {
		return 0, 0, ErrInvalidAmount
	}
	if yesPriceBps == 0 || yesPriceBps == BasisPoints/2 {
		return collateral, collateral, nil
	}
	if yesPriceBps >= BasisPoints {
		return 0, 0, ErrInvalidRatio
	}
	yes, err = MulDiv(collateral, 2*(BasisPoints-yesPriceBps), BasisPoints)
	if err != nil {
		return 0, 0, err
	}
	no, err = MulDiv(collateral, 2*yesPriceBps, BasisPoints)
	if err != nil {
		return 0, 0, err
	}
	if yes == 0 || no == 0 {
		return 0, 0, ErrInvalidAmount
	}
	return yes, no, nil
}

// LiquidityDelta describe un cambio proporcional de todas las reservas del pool.
type LiquidityDelta struct {
	Shares     uint64
	Collateral uint64
	Yes        uint64
	No         uint64
}

// SharesForDeposit devuelve las shares emitidas por un aporte de colateral:
// el propio aporte si el pool está vacío, si no
// floor(collateral·totalShares/collateralReserve). Las reservas de tokens
// crecen en la misma proporción que la de colateral.
func SharesForDeposit(pool PoolLedger, collateral uint64) (LiquidityDelta, error) {
	if collateral == 0 {
		return LiquidityDelta{}, ErrInvalidAmount
	}
	if pool.Empty() {
		return LiquidityDelta{Shares: collateral, Collateral: collateral, Yes: collateral, No: collateral}, nil
	}
	shares, err := MulDiv(collateral, pool.TotalShares, pool.CollateralReserve)
	if err != nil {
		return LiquidityDelta{}, err
	}
	if shares == 0 {
		return LiquidityDelta{}, ErrInsufficientLiquidity
	}
	yes, err := MulDiv(collateral, pool.YesReserve, pool.CollateralReserve)
	if err != nil {
		return LiquidityDelta{}, err
	}
	no, err := MulDiv(collateral, pool.NoReserve, pool.CollateralReserve)
	if err != nil {
		return LiquidityDelta{}, err
	}
	return LiquidityDelta{Shares: shares, Collateral: collateral, Yes: yes, No: no}, nil
}

// AmountsForShares devuelve la porción (redondeada hacia abajo) de cada
// reserva que corresponde a shares. Quemar todas las shares devuelve las
// reservas exactas.
func AmountsForShares(pool PoolLedger, shares uint64) (LiquidityDelta, error) {
	if shares == 0 {
		return LiquidityDelta{}, ErrInvalidAmount
	}
	if shares > pool.TotalShares {
		return LiquidityDelta{}, ErrInsufficientBalance
	}
	coll, err := MulDiv(shares, pool.CollateralReserve, pool.TotalShares)
	if err != nil {
		return LiquidityDelta{}, err
	}
	yes, err := MulDiv(shares, pool.YesReserve, pool.TotalShares)
	if err != nil {
		return LiquidityDelta{}, err
	}
	no, err := MulDiv(shares, pool.NoReserve, pool.TotalShares)
	if err != nil {
		return LiquidityDelta{}, err
	}
	return LiquidityDelta{Shares: shares, Collateral: coll, Yes: yes, No: no}, nil
}

// Apply suma (positivo) o resta (negativo) el delta al pool.
func (p PoolLedger) Apply(d LiquidityDelta, add bool) (PoolLedger, error) {
	var err error
	out := p
	if add {
		if out.TotalShares, err = AddU64(out.TotalShares, d.Shares); err != nil {
			return p, err
		}
		if out.CollateralReserve, err = AddU64(out.CollateralReserve, d.Collateral); err != nil {
			return p, err
		}
		if out.YesReserve, err = AddU64(out.YesReserve, d.Yes); err != nil {
			return p, err
		}
		if out.NoReserve, err = AddU64(out.NoReserve, d.No); err != nil {
			return p, err
		}
		return out, nil
	}
	if out.TotalShares, err = SubU64(out.TotalShares, d.Shares); err != nil {
		return p, err
	}
	if out.CollateralReserve, err = SubU64(out.CollateralReserve, d.Collateral); err != nil {
		return p, err
	}
	if out.YesReserve, err = SubU64(out.YesReserve, d.Yes); err != nil {
		return p, err
	}
	if out.NoReserve, err = SubU64(out.NoReserve, d.No); err != nil {
		return p, err
	}
	return out, nil
}

// SwapQuote es el efecto completo de un swap sobre el pool y el trader.
type SwapQuote struct {
	Direction Direction
	Token     TokenType
	AmountIn  uint64 // colateral en compras, tokens en ventas
	// Gross es el colateral que entra (compra) o sale (venta) de la reserva.
	Gross       uint64
	PlatformFee uint64
	LPFee       uint64
	AmountOut   uint64 // tokens en compras, colateral en ventas
	PriceBefore uint64 // precio de YES, bps
	PriceAfter  uint64
	Pool        PoolLedger // pool después del swap
}

// QuoteSwap cotiza un swap. En compras los fees salen del colateral de
// entrada antes de mover las reservas; en ventas salen del colateral
// obtenido. Ambos fees quedan en colateral.
func QuoteSwap(pool PoolLedger, fees FeeSchedule, dir Direction, token TokenType, amount uint64) (SwapQuote, error) {
	if amount == 0 {
		return SwapQuote{}, ErrInvalidAmount
	}
	if !dir.Valid() || !token.Valid() {
		return SwapQuote{}, ErrInvalidAmount
	}
	if pool.Empty() || pool.YesReserve == 0 || pool.NoReserve == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	q := SwapQuote{
		Direction:   dir,
		Token:       token,
		AmountIn:    amount,
		PriceBefore: SpotPriceBps(pool.YesReserve, pool.NoReserve),
	}
	in, other := pool.Reserve(token), pool.Reserve(token.Opposite())

	var err error
	if dir == DirectionBuy {
		if q.PlatformFee, err = BpsOf(amount, fees.PlatformBuyBps); err != nil {
			return SwapQuote{}, err
		}
		if q.LPFee, err = BpsOf(amount, fees.LPBuyBps); err != nil {
			return SwapQuote{}, err
		}
		net := amount - q.PlatformFee - q.LPFee
		if net == 0 {
			return SwapQuote{}, ErrInvalidAmount
		}
		out, newIn, newOther, err := buyOut(in, other, net)
		if err != nil {
			return SwapQuote{}, err
		}
		q.Gross, q.AmountOut = net, out
		pool = setReserves(pool, token, newIn, newOther)
		if pool.CollateralReserve, err = AddU64(pool.CollateralReserve, net); err != nil {
			return SwapQuote{}, err
		}
	} else {
		r, newIn, newOther, err := sellReturn(in, other, amount)
		if err != nil {
			return SwapQuote{}, err
		}
		if r == 0 {
			return SwapQuote{}, ErrInsufficientLiquidity
		}
		// el pool conserva colateral mientras queden shares
		if r >= pool.CollateralReserve {
			return SwapQuote{}, ErrInsufficientLiquidity
		}
		if q.PlatformFee, err = BpsOf(r, fees.PlatformSellBps); err != nil {
			return SwapQuote{}, err
		}
		if q.LPFee, err = BpsOf(r, fees.LPSellBps); err != nil {
			return SwapQuote{}, err
		}
		q.Gross = r
		q.AmountOut = r - q.PlatformFee - q.LPFee
		pool = setReserves(pool, token, newIn, newOther)
		pool.CollateralReserve -= r
	}
	if q.AmountOut == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	q.Pool = pool
	q.PriceAfter = SpotPriceBps(pool.YesReserve, pool.NoReserve)
	return q, nil
}

func setReserves(pool PoolLedger, token TokenType, side, other uint64) PoolLedger {
	if token == TokenYes {
		pool.YesReserve, pool.NoReserve = side, other
	} else {
		pool.NoReserve, pool.YesReserve = side, other
	}
	return pool
}

// buyOut: ambas reservas crecen en net y luego el lado comprado baja a
// ceil(k / (other+net)).
func buyOut(side, other, net uint64) (out, newSide, newOther uint64, err error) {
	k := new(uint256.Int).Mul(uint256.NewInt(side), uint256.NewInt(other))
	newOther, err = AddU64(other, net)
	if err != nil {
		return 0, 0, 0, err
	}
	grown, err := AddU64(side, net)
	if err != nil {
		return 0, 0, 0, err
	}
	denom := uint256.NewInt(newOther)
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(k, denom, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() || q.Uint64() > grown {
		return 0, 0, 0, ErrMathOverflow
	}
	newSide = q.Uint64()
	return grown - newSide, newSide, newOther, nil
}

// sellReturn resuelve (side+t-r)(other-r) ≥ side·other para el mayor entero r:
//
//	r = floor((S - ceil(sqrt(S² - 4·t·other))) / 2),  S = side + t + other.
func sellReturn(side, other, t uint64) (r, newSide, newOther uint64, err error) {
	grown, err := AddU64(side, t)
	if err != nil {
		return 0, 0, 0, err
	}
	s := new(uint256.Int).Add(uint256.NewInt(grown), uint256.NewInt(other))
	d := new(uint256.Int).Mul(s, s)
	four := new(uint256.Int).Mul(uint256.NewInt(t), uint256.NewInt(other))
	four.Lsh(four, 2)
	if d.Lt(four) {
		return 0, 0, 0, ErrMathOverflow
	}
	d.Sub(d, four)
	root := sqrtCeil(d)
	if s.Lt(root) {
		return 0, 0, 0, ErrMathOverflow
	}
	s.Sub(s, root)
	s.Rsh(s, 1)
	if !s.IsUint64() {
		return 0, 0, 0, ErrMathOverflow
	}
	r = s.Uint64()
	if r > other || r > grown {
		return 0, 0, 0, ErrInsufficientLiquidity
	}
	return r, grown - r, other - r, nil
}
