/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"crypto/sha512"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// X25519DerivePublic returns the 32-byte public value of an X25519 private
// key. Both are little-endian per RFC 7748.
func (a *Adapter) X25519DerivePublic(priv []byte) ([]byte, error) {
	return a.deriveMontgomery(bccsp.X25519, priv)
}

// X448DerivePublic returns the 56-byte public value of an X448 private key.
func (a *Adapter) X448DerivePublic(priv []byte) ([]byte, error) {
	return a.deriveMontgomery(bccsp.X448, priv)
}

func (a *Adapter) deriveMontgomery(id bccsp.CurveID, priv []byte) ([]byte, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	return a.LadderMultiply(id, priv, c.BaseU())
}

// Ed25519DerivePublic returns the RFC 8032 encoding of the public key that
// belongs to a 32-byte Ed25519 seed.
func (a *Adapter) Ed25519DerivePublic(seed []byte) ([]byte, error) {
	if len(seed) != 32 {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "Ed25519 seed is %d bytes, want 32", len(seed))
	}
	c, err := bccsp.Describe(bccsp.Ed25519)
	if err != nil {
		return nil, err
	}
	if _, err := a.functionCode(c, PCC, bccsp.OpScalarMultiply); err != nil {
		return nil, err
	}

	h := sha512.Sum512(seed)
	defer bccsp.Wipe(h[:])

	k := h[:32]
	k[0] &= 0xf8 // multiple of the cofactor
	k[31] &= 0x3f
	k[31] |= 0x40
	bccsp.Reverse(k, k)

	bx, by := c.BasePoint()
	rx, ry, err := a.PointMultiply(bccsp.Ed25519, k, bx, by)
	if err != nil {
		return nil, err
	}
	return encodeEdwards(rx, ry), nil
}

// Ed448DerivePublic returns the RFC 8032 encoding of the public key that
// belongs to a 57-byte Ed448 seed.
func (a *Adapter) Ed448DerivePublic(seed []byte) ([]byte, error) {
	if len(seed) != 57 {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "Ed448 seed is %d bytes, want 57", len(seed))
	}
	c, err := bccsp.Describe(bccsp.Ed448)
	if err != nil {
		return nil, err
	}
	if _, err := a.functionCode(c, PCC, bccsp.OpScalarMultiply); err != nil {
		return nil, err
	}

	h := make([]byte, 114)
	defer bccsp.Wipe(h)
	sha3.ShakeSum256(h, seed)

	bccsp.Wipe(h[57:])
	h[0] &= 0xfc // multiple of the cofactor
	h[55] |= 0x80
	h[56] = 0

	k := make([]byte, 57)
	defer bccsp.Wipe(k)
	bccsp.Reverse(k, h[:57])

	bx, by := c.BasePoint()
	rx, ry, err := a.PointMultiply(bccsp.Ed448, k, bx, by)
	if err != nil {
		return nil, err
	}
	return encodeEdwards(rx, ry), nil
}

// encodeEdwards turns big-endian affine coordinates into the little-endian
// y with the parity of x in the most significant bit.
func encodeEdwards(x, y []byte) []byte {
	n := len(y)
	pub := make([]byte, n)
	bccsp.Reverse(pub, y)
	pub[n-1] |= (x[n-1] & 1) << 7
	return pub
}
