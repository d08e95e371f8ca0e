/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"math/big"
)

// Exact affine arithmetic for the emulator. The instructions take scalars
// as given, without clamping or reduction, so the emulator cannot use the
// curve libraries that normalise their inputs.

type edwardsCurve struct {
	p, a, d *big.Int
}

type montgomeryCurve struct {
	p    *big.Int
	a24  *big.Int
	bits int
}

var (
	edwards25519 = func() *edwardsCurve {
		p := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))
		d := new(big.Int).ModInverse(big.NewInt(121666), p)
		d.Mul(d, big.NewInt(-121665))
		d.Mod(d, p)
		return &edwardsCurve{p: p, a: new(big.Int).Sub(p, big.NewInt(1)), d: d}
	}()

	edwards448 = func() *edwardsCurve {
		p := p448()
		return &edwardsCurve{p: p, a: big.NewInt(1), d: new(big.Int).Sub(p, big.NewInt(39081))}
	}()

	curve25519 = &montgomeryCurve{
		p:    edwards25519.p,
		a24:  big.NewInt(121665),
		bits: 255,
	}

	curve448 = &montgomeryCurve{
		p:    p448(),
		a24:  big.NewInt(39081),
		bits: 448,
	}
)

func p448() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 448)
	p.Sub(p, new(big.Int).Lsh(big.NewInt(1), 224))
	return p.Sub(p, big.NewInt(1))
}

func (c *edwardsCurve) isOnCurve(x, y *big.Int) bool {
	if x.Cmp(c.p) >= 0 || y.Cmp(c.p) >= 0 {
		return false
	}
	x2 := new(big.Int).Mul(x, x)
	y2 := new(big.Int).Mul(y, y)
	lhs := new(big.Int).Mul(c.a, x2)
	lhs.Add(lhs, y2)
	lhs.Mod(lhs, c.p)

	rhs := new(big.Int).Mul(x2, y2)
	rhs.Mul(rhs, c.d)
	rhs.Add(rhs, big.NewInt(1))
	rhs.Mod(rhs, c.p)
	return lhs.Cmp(rhs) == 0
}

// add uses the unified twisted Edwards addition law, complete for both
// curves since d is not a square.
func (c *edwardsCurve) add(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	t := new(big.Int).Mul(x1, x2)
	t.Mul(t, y1)
	t.Mul(t, y2)
	t.Mul(t, c.d)
	t.Mod(t, c.p)

	xn := new(big.Int).Mul(x1, y2)
	xn.Add(xn, new(big.Int).Mul(y1, x2))
	xd := new(big.Int).Add(big.NewInt(1), t)
	xd.ModInverse(xd, c.p)
	xn.Mul(xn, xd)
	xn.Mod(xn, c.p)

	yn := new(big.Int).Mul(y1, y2)
	yn.Sub(yn, new(big.Int).Mul(c.a, new(big.Int).Mul(x1, x2)))
	yd := new(big.Int).Sub(big.NewInt(1), t)
	yd.Mod(yd, c.p)
	yd.ModInverse(yd, c.p)
	yn.Mul(yn, yd)
	yn.Mod(yn, c.p)

	return xn, yn
}

func (c *edwardsCurve) scalarMult(k, x, y *big.Int) (*big.Int, *big.Int) {
	rx, ry := big.NewInt(0), big.NewInt(1)
	for i := k.BitLen() - 1; i >= 0; i-- {
		rx, ry = c.add(rx, ry, rx, ry)
		if k.Bit(i) == 1 {
			rx, ry = c.add(rx, ry, x, y)
		}
	}
	return rx, ry
}

// ladder is the RFC 7748 Montgomery ladder over all bits of the curve.
func (c *montgomeryCurve) ladder(k, u *big.Int) *big.Int {
	p := c.p
	x1 := new(big.Int).Mod(u, p)
	x2, z2 := big.NewInt(1), big.NewInt(0)
	x3, z3 := new(big.Int).Set(x1), big.NewInt(1)
	swap := uint(0)

	mod := func(v *big.Int) *big.Int { return v.Mod(v, p) }

	for t := c.bits - 1; t >= 0; t-- {
		kt := k.Bit(t)
		swap ^= kt
		if swap == 1 {
			x2, x3 = x3, x2
			z2, z3 = z3, z2
		}
		swap = kt

		a := mod(new(big.Int).Add(x2, z2))
		aa := mod(new(big.Int).Mul(a, a))
		b := mod(new(big.Int).Sub(x2, z2))
		bb := mod(new(big.Int).Mul(b, b))
		e := mod(new(big.Int).Sub(aa, bb))
		cc := mod(new(big.Int).Add(x3, z3))
		d := mod(new(big.Int).Sub(x3, z3))
		da := mod(new(big.Int).Mul(d, a))
		cb := mod(new(big.Int).Mul(cc, b))

		x3 = new(big.Int).Add(da, cb)
		x3 = mod(x3.Mul(x3, x3))
		z3 = new(big.Int).Sub(da, cb)
		z3 = mod(z3.Mul(z3, z3))
		z3 = mod(z3.Mul(z3, x1))
		x2 = mod(new(big.Int).Mul(aa, bb))
		z2 = new(big.Int).Mul(c.a24, e)
		z2.Add(z2, aa)
		z2 = mod(z2.Mul(z2, e))
	}
	if swap == 1 {
		x2, z2 = x3, z3
	}

	inv := new(big.Int).Exp(z2, new(big.Int).Sub(p, big.NewInt(2)), p)
	return mod(inv.Mul(inv, x2))
}
