/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"github.com/hyperledger/fabric-ecc/bccsp"
)

// Field indexes of the parameter layouts. Every field is one curve field
// width wide and fields follow each other without gaps.
const (
	// PCC scalar multiplication of a point.
	pointResX = iota
	pointResY
	pointX
	pointY
	pointScalar
)

const (
	// PCC Montgomery ladder.
	ladderResU = iota
	ladderU
	ladderScalar
)

const (
	// KDSA ECDSA sign and verify. The key field holds the private scalar
	// when signing and X when verifying; the last field holds the random
	// value or Y.
	kdsaSigR = iota
	kdsaSigS
	kdsaHash
	kdsaKey
	kdsaAux
)

// paramBlock is a parameter block together with the curve-specific layout
// selected for it. The whole block is wiped, whatever layout was used.
type paramBlock struct {
	buf   *ParamBlock
	width int
	size  int
}

func newParamBlock(c *bccsp.Curve) *paramBlock {
	return &paramBlock{buf: new(ParamBlock), width: c.FieldWidth, size: c.ByteLen}
}

// viewParamBlock applies the layout of c to an existing block.
func viewParamBlock(c *bccsp.Curve, params *ParamBlock) *paramBlock {
	return &paramBlock{buf: params, width: c.FieldWidth, size: c.ByteLen}
}

// field returns the full width of field i.
func (p *paramBlock) field(i int) []byte {
	return p.buf[i*p.width : (i+1)*p.width]
}

// value returns the right-aligned value part of field i.
func (p *paramBlock) value(i int) []byte {
	f := p.field(i)
	return f[p.width-p.size:]
}

// put right-aligns v in field i. v must not be longer than the field.
func (p *paramBlock) put(i int, v []byte) {
	f := p.field(i)
	copy(f[len(f)-len(v):], v)
}

// get copies the value part of field i.
func (p *paramBlock) get(i int) []byte {
	return append([]byte(nil), p.value(i)...)
}

// putHash stores the leftmost bytes of hash that fit into the hash field,
// right-aligned.
func (p *paramBlock) putHash(i int, hash []byte) {
	if len(hash) > p.width {
		hash = hash[:p.width]
	}
	p.put(i, hash)
}

func (p *paramBlock) wipe() {
	bccsp.Wipe(p.buf[:])
}
