/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bccsp

import (
	"crypto/elliptic"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// CurveID identifies an elliptic curve known to at least one tier.
type CurveID int

const (
	P256 CurveID = iota + 1
	P384
	P521
	X25519
	X448
	Ed25519
	Ed448
)

// Operation names a primitive that has its own hardware function code.
type Operation int

const (
	// OpScalarMultiply is the PCC scalar multiplication (point or ladder).
	OpScalarMultiply Operation = iota
	OpECDSASign
	OpECDSAVerify
)

// Family groups curves by their coordinate system.
type Family int

const (
	Weierstrass Family = iota
	Montgomery
	Edwards
)

// CCACurveTypePrime is the coprocessor curve type of the NIST prime curves.
const CCACurveTypePrime byte = 0x00

// Curve is the immutable description of a curve.
type Curve struct {
	ID     CurveID
	Name   string
	Family Family

	// ByteLen is the width of a scalar or coordinate.
	ByteLen int

	// BitLen is the bit length written into coprocessor key tokens. For
	// P-521 it is 521 even though values occupy 66 bytes.
	BitLen int

	// FieldWidth is the width of one field of a CPACF parameter block.
	FieldWidth int

	// CCACurveType is only meaningful when HasCCAType is true.
	CCACurveType byte
	HasCCAType   bool

	functionCodes map[Operation]uint64
	baseX, baseY  string
	baseU         byte
	elliptic      elliptic.Curve
}

var curves = map[CurveID]*Curve{
	P256: {
		ID: P256, Name: "P-256", Family: Weierstrass,
		ByteLen: 32, BitLen: 256, FieldWidth: 32,
		CCACurveType: CCACurveTypePrime, HasCCAType: true,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 64, OpECDSAVerify: 1, OpECDSASign: 9},
		elliptic:      elliptic.P256(),
	},
	P384: {
		ID: P384, Name: "P-384", Family: Weierstrass,
		ByteLen: 48, BitLen: 384, FieldWidth: 48,
		CCACurveType: CCACurveTypePrime, HasCCAType: true,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 65, OpECDSAVerify: 2, OpECDSASign: 10},
		elliptic:      elliptic.P384(),
	},
	P521: {
		ID: P521, Name: "P-521", Family: Weierstrass,
		ByteLen: 66, BitLen: 521, FieldWidth: 80,
		CCACurveType: CCACurveTypePrime, HasCCAType: true,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 66, OpECDSAVerify: 3, OpECDSASign: 11},
		elliptic:      elliptic.P521(),
	},
	X25519: {
		ID: X25519, Name: "X25519", Family: Montgomery,
		ByteLen: 32, BitLen: 255, FieldWidth: 32,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 80},
		baseU:         9,
	},
	X448: {
		ID: X448, Name: "X448", Family: Montgomery,
		ByteLen: 56, BitLen: 448, FieldWidth: 64,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 81},
		baseU:         5,
	},
	Ed25519: {
		ID: Ed25519, Name: "Ed25519", Family: Edwards,
		ByteLen: 32, BitLen: 255, FieldWidth: 32,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 72},
		baseX:         "216936d3cd6e53fec0a4e231fdd6dc5c692cc7609525a7b2c9562d608f25d51a",
		baseY:         "6666666666666666666666666666666666666666666666666666666666666658",
	},
	Ed448: {
		ID: Ed448, Name: "Ed448", Family: Edwards,
		ByteLen: 57, BitLen: 448, FieldWidth: 64,
		functionCodes: map[Operation]uint64{OpScalarMultiply: 73},
		baseX: "00" +
			"4f1970c66bed0ded221d15a622bf36da9e146570470f1767" +
			"ea6de324a3d3a46412ae1af72ab66511433b80e18b00938e" +
			"2626a82bc70cc05e",
		baseY: "00" +
			"693f46716eb6bc248876203756c9c7624bea73736ca39840" +
			"87789c1e05a0c2d73ad3ff1ce67c39c4fdbd132c4ed7c8ad" +
			"9808795bf230fa14",
	},
}

// Describe returns the descriptor of a curve. The returned value is a copy;
// the registry itself never changes.
func Describe(id CurveID) (*Curve, error) {
	c, ok := curves[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCurve, "unknown curve id %d", int(id))
	}
	cp := *c
	return &cp, nil
}

// Curves lists every registered curve id in a stable order.
func Curves() []CurveID {
	return []CurveID{P256, P384, P521, X25519, X448, Ed25519, Ed448}
}

// ParseCurveID maps a curve name such as "P-256", "p256" or "ed448" to its id.
func ParseCurveID(name string) (CurveID, error) {
	norm := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	for _, id := range Curves() {
		if strings.ToLower(strings.ReplaceAll(curves[id].Name, "-", "")) == norm {
			return id, nil
		}
	}
	switch norm {
	case "prime256v1", "secp256r1":
		return P256, nil
	case "secp384r1":
		return P384, nil
	case "secp521r1":
		return P521, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedCurve, "unknown curve name %q", name)
}

func (id CurveID) String() string {
	if c, ok := curves[id]; ok {
		return c.Name
	}
	return "unknown"
}

// FunctionCode returns the hardware function code of op for this curve. The
// second result is false when the instruction tier does not implement it.
func (c *Curve) FunctionCode(op Operation) (uint64, bool) {
	fc, ok := c.functionCodes[op]
	return fc, ok
}

// Elliptic returns the crypto/elliptic curve for Weierstrass curves and nil
// for all others.
func (c *Curve) Elliptic() elliptic.Curve {
	return c.elliptic
}

// Order returns the order of the base point of a Weierstrass curve.
func (c *Curve) Order() *big.Int {
	if c.elliptic == nil {
		return nil
	}
	return new(big.Int).Set(c.elliptic.Params().N)
}

// BasePoint returns the affine base point as big-endian values of ByteLen
// bytes. Montgomery curves have no y coordinate here; see BaseU.
func (c *Curve) BasePoint() (x, y []byte) {
	switch c.Family {
	case Weierstrass:
		p := c.elliptic.Params()
		x = make([]byte, c.ByteLen)
		y = make([]byte, c.ByteLen)
		p.Gx.FillBytes(x)
		p.Gy.FillBytes(y)
		return x, y
	case Edwards:
		x, _ = hex.DecodeString(c.baseX)
		y, _ = hex.DecodeString(c.baseY)
		return x, y
	}
	return nil, nil
}

// BaseU returns the little-endian u coordinate of a Montgomery base point.
func (c *Curve) BaseU() []byte {
	if c.Family != Montgomery {
		return nil
	}
	u := make([]byte, c.ByteLen)
	u[0] = c.baseU
	return u
}
