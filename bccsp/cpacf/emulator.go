/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/hyperledger/fabric-ecc/bccsp"
)

// Emulator is a Facility that executes PCC and KDSA parameter blocks in
// software, with the field layout, byte order and condition codes of the
// machine instructions. It lets the instruction tier run on any platform.
type Emulator struct {
	funcs  [2]FunctionSet
	random io.Reader
}

// NewEmulator returns an emulator with every elliptic curve function code
// installed.
func NewEmulator() *Emulator {
	var pcc, kdsa []uint64
	for _, id := range bccsp.Curves() {
		c, _ := bccsp.Describe(id)
		if fc, ok := c.FunctionCode(bccsp.OpScalarMultiply); ok {
			pcc = append(pcc, fc)
		}
		if fc, ok := c.FunctionCode(bccsp.OpECDSASign); ok {
			kdsa = append(kdsa, fc)
		}
		if fc, ok := c.FunctionCode(bccsp.OpECDSAVerify); ok {
			kdsa = append(kdsa, fc)
		}
	}
	return &Emulator{
		funcs:  [2]FunctionSet{PCC: NewFunctionSet(pcc...), KDSA: NewFunctionSet(kdsa...)},
		random: rand.Reader,
	}
}

// Without returns a copy of e where the given function codes of inst are
// not installed.
func (e *Emulator) Without(inst Instruction, fcs ...uint64) *Emulator {
	cp := *e
	bits := e.funcs[inst].bits.Clone()
	for _, fc := range fcs {
		bits.Clear(uint(fc))
	}
	cp.funcs[inst] = FunctionSet{bits: bits}
	return &cp
}

// WithoutCurve removes every function code of the curve from both
// instructions.
func (e *Emulator) WithoutCurve(id bccsp.CurveID) *Emulator {
	c, err := bccsp.Describe(id)
	if err != nil {
		return e
	}
	out := e
	if fc, ok := c.FunctionCode(bccsp.OpScalarMultiply); ok {
		out = out.Without(PCC, fc)
	}
	for _, op := range []bccsp.Operation{bccsp.OpECDSASign, bccsp.OpECDSAVerify} {
		if fc, ok := c.FunctionCode(op); ok {
			out = out.Without(KDSA, fc)
		}
	}
	return out
}

func (e *Emulator) Query(inst Instruction) FunctionSet {
	return e.funcs[inst]
}

func (e *Emulator) PCC(fc uint64, params *ParamBlock) ConditionCode {
	if !e.funcs[PCC].Has(fc) {
		return CCFailure
	}
	c := curveFor(bccsp.OpScalarMultiply, fc)
	if c == nil {
		return CCFailure
	}
	switch c.Family {
	case bccsp.Weierstrass:
		return e.weierstrassMultiply(c, viewParamBlock(c, params))
	case bccsp.Edwards:
		return e.edwardsMultiply(c, viewParamBlock(c, params))
	default:
		return e.ladder(c, viewParamBlock(c, params))
	}
}

func (e *Emulator) KDSA(fc uint64, params *ParamBlock) ConditionCode {
	if !e.funcs[KDSA].Has(fc) {
		return CCFailure
	}
	base := fc &^ DeterministicFlag
	if c := curveFor(bccsp.OpECDSASign, base); c != nil {
		return e.sign(c, viewParamBlock(c, params), fc&DeterministicFlag != 0)
	}
	if c := curveFor(bccsp.OpECDSAVerify, base); c != nil {
		return e.verify(c, viewParamBlock(c, params))
	}
	return CCFailure
}

func curveFor(op bccsp.Operation, fc uint64) *bccsp.Curve {
	for _, id := range bccsp.Curves() {
		c, _ := bccsp.Describe(id)
		if code, ok := c.FunctionCode(op); ok && code == fc {
			return c
		}
	}
	return nil
}

func toInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func (e *Emulator) weierstrassMultiply(c *bccsp.Curve, p *paramBlock) ConditionCode {
	curve := c.Elliptic()
	x, y := toInt(p.value(pointX)), toInt(p.value(pointY))
	if !curve.IsOnCurve(x, y) {
		return CCFailure
	}
	rx, ry := curve.ScalarMult(x, y, p.value(pointScalar))
	if rx.Sign() == 0 && ry.Sign() == 0 {
		return CCFailure
	}
	rx.FillBytes(p.value(pointResX))
	ry.FillBytes(p.value(pointResY))
	return CCSuccess
}

func (e *Emulator) edwardsMultiply(c *bccsp.Curve, p *paramBlock) ConditionCode {
	curve := edwards25519
	if c.ID == bccsp.Ed448 {
		curve = edwards448
	}
	x, y := toInt(p.value(pointX)), toInt(p.value(pointY))
	if !curve.isOnCurve(x, y) {
		return CCFailure
	}
	rx, ry := curve.scalarMult(toInt(p.value(pointScalar)), x, y)
	rx.FillBytes(p.value(pointResX))
	ry.FillBytes(p.value(pointResY))
	return CCSuccess
}

func (e *Emulator) ladder(c *bccsp.Curve, p *paramBlock) ConditionCode {
	curve := curve25519
	if c.ID == bccsp.X448 {
		curve = curve448
	}
	u := curve.ladder(toInt(p.value(ladderScalar)), toInt(p.value(ladderU)))
	u.FillBytes(p.value(ladderResU))
	return CCSuccess
}

func (e *Emulator) sign(c *bccsp.Curve, p *paramBlock, deterministic bool) ConditionCode {
	curve := c.Elliptic()
	n := curve.Params().N

	d := toInt(p.value(kdsaKey))
	defer d.SetInt64(0)
	if d.Sign() == 0 || d.Cmp(n) >= 0 {
		return CCFailure
	}

	var k *big.Int
	if deterministic {
		k = toInt(p.value(kdsaAux))
		if k.Sign() == 0 || k.Cmp(n) >= 0 {
			return CCRetry
		}
	} else {
		var err error
		k, err = rand.Int(e.random, new(big.Int).Sub(n, big.NewInt(1)))
		if err != nil {
			return CCFailure
		}
		k.Add(k, big.NewInt(1))
	}
	defer k.SetInt64(0)

	kx, _ := curve.ScalarBaseMult(k.FillBytes(make([]byte, c.ByteLen)))
	r := new(big.Int).Mod(kx, n)
	if r.Sign() == 0 {
		return CCRetry
	}

	hash := toInt(p.field(kdsaHash))
	s := new(big.Int).Mul(r, d)
	s.Add(s, hash)
	s.Mul(s, new(big.Int).ModInverse(k, n))
	s.Mod(s, n)
	if s.Sign() == 0 {
		return CCRetry
	}

	r.FillBytes(p.value(kdsaSigR))
	s.FillBytes(p.value(kdsaSigS))
	return CCSuccess
}

func (e *Emulator) verify(c *bccsp.Curve, p *paramBlock) ConditionCode {
	curve := c.Elliptic()
	n := curve.Params().N

	r, s := toInt(p.value(kdsaSigR)), toInt(p.value(kdsaSigS))
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return CCFailure
	}
	qx, qy := toInt(p.value(kdsaKey)), toInt(p.value(kdsaAux))
	if !curve.IsOnCurve(qx, qy) {
		return CCFailure
	}

	hash := toInt(p.field(kdsaHash))
	w := new(big.Int).ModInverse(s, n)
	u1 := hash.Mul(hash, w)
	u1.Mod(u1, n)
	u2 := w.Mul(r, w)
	u2.Mod(u2, n)

	x1, y1 := curve.ScalarBaseMult(u1.Bytes())
	x2, y2 := curve.ScalarMult(qx, qy, u2.Bytes())
	x, y := addPoints(curve, x1, y1, x2, y2)
	if x.Sign() == 0 && y.Sign() == 0 {
		return CCFailure
	}
	if x.Mod(x, n).Cmp(r) != 0 {
		return CCFailure
	}
	return CCSuccess
}

// addPoints adds two affine points where (0, 0) is the point at infinity.
func addPoints(curve elliptic.Curve, x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	if x1.Sign() == 0 && y1.Sign() == 0 {
		return x2, y2
	}
	if x2.Sign() == 0 && y2.Sign() == 0 {
		return x1, y1
	}
	return curve.Add(x1, y1, x2, y2)
}
