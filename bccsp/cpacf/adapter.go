/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"crypto/rand"
	"io"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("bccsp_cpacf")

// Adapter runs elliptic curve primitives through the PCC and KDSA
// instructions of a Facility. Operations return bccsp.ErrUnsupportedCurve
// when the curve has no function code for the operation or the facility
// does not install it, and bccsp.ErrIOFault when the instruction fails.
type Adapter struct {
	facility Facility
	random   io.Reader
}

// New returns an adapter on top of f.
func New(f Facility) *Adapter {
	return &Adapter{facility: f, random: rand.Reader}
}

// Facility returns the facility the adapter executes on.
func (a *Adapter) Facility() Facility {
	return a.facility
}

func (a *Adapter) functionCode(c *bccsp.Curve, inst Instruction, op bccsp.Operation) (uint64, error) {
	fc, ok := c.FunctionCode(op)
	if !ok {
		return 0, errors.Wrapf(bccsp.ErrUnsupportedCurve, "no %s function for %s", inst, c.Name)
	}
	if !a.facility.Query(inst).Has(fc) {
		logger.Debugf("%s function %d for %s is not installed", inst, fc, c.Name)
		return 0, errors.Wrapf(bccsp.ErrUnsupportedCurve, "%s function %d for %s is not installed", inst, fc, c.Name)
	}
	return fc, nil
}

// PointMultiply computes scalar*(x, y) on a Weierstrass or Edwards curve.
// All values are big-endian and ByteLen bytes wide.
func (a *Adapter) PointMultiply(id bccsp.CurveID, scalar, x, y []byte) (rx, ry []byte, err error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, nil, err
	}
	if c.Family == bccsp.Montgomery {
		return nil, nil, errors.Wrapf(bccsp.ErrUnsupportedCurve, "%s has no point multiplication, use the ladder", c.Name)
	}
	fc, err := a.functionCode(c, PCC, bccsp.OpScalarMultiply)
	if err != nil {
		return nil, nil, err
	}
	if len(scalar) != c.ByteLen || len(x) != c.ByteLen || len(y) != c.ByteLen {
		return nil, nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s point multiplication needs %d byte operands", c.Name, c.ByteLen)
	}

	p := newParamBlock(c)
	defer p.wipe()

	p.put(pointX, x)
	p.put(pointY, y)
	p.put(pointScalar, scalar)

	if cc := a.facility.PCC(fc, p.buf); cc != CCSuccess {
		return nil, nil, errors.Wrapf(bccsp.ErrIOFault, "PCC function %d ended with condition code %d", fc, cc)
	}
	return p.get(pointResX), p.get(pointResY), nil
}

// LadderMultiply computes the Montgomery ladder scalar*u on X25519 or X448.
// scalar and u are little-endian as in RFC 7748 and are clamped before use;
// the result is little-endian.
func (a *Adapter) LadderMultiply(id bccsp.CurveID, scalar, u []byte) ([]byte, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	if c.Family != bccsp.Montgomery {
		return nil, errors.Wrapf(bccsp.ErrUnsupportedCurve, "%s is not a Montgomery curve", c.Name)
	}
	fc, err := a.functionCode(c, PCC, bccsp.OpScalarMultiply)
	if err != nil {
		return nil, err
	}
	if len(scalar) != c.ByteLen || len(u) != c.ByteLen {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s ladder needs %d byte operands", c.Name, c.ByteLen)
	}

	k := append([]byte(nil), scalar...)
	defer bccsp.Wipe(k)
	uu := append([]byte(nil), u...)
	clamp(c.ID, k, uu)

	// the instruction takes big-endian operands
	bccsp.Reverse(k, k)
	bccsp.Reverse(uu, uu)

	p := newParamBlock(c)
	defer p.wipe()

	p.put(ladderU, uu)
	p.put(ladderScalar, k)

	if cc := a.facility.PCC(fc, p.buf); cc != CCSuccess {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "PCC function %d ended with condition code %d", fc, cc)
	}

	res := p.get(ladderResU)
	bccsp.Reverse(res, res)
	return res, nil
}

func clamp(id bccsp.CurveID, k, u []byte) {
	switch id {
	case bccsp.X25519:
		u[31] &= 0x7f
		k[0] &= 248
		k[31] &= 127
		k[31] |= 64
	case bccsp.X448:
		k[0] &= 252
		k[55] |= 128
	}
}
