/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bccsp

import (
	"github.com/pkg/errors"
)

// ECKey is an elliptic curve key in raw fixed-width form. D, X and Y are
// big-endian and exactly ByteLen bytes long. X and Y are nil for a
// private-only key; D is nil for a public key.
//
// Montgomery and Edwards keys use the RFC 7748 and RFC 8032 encodings: D is
// the private value, X the encoded public value and Y stays nil.
type ECKey struct {
	Curve CurveID
	D     []byte
	X     []byte
	Y     []byte
}

// HasPublic reports whether both public coordinates are present.
func (k *ECKey) HasPublic() bool {
	if k == nil || k.X == nil {
		return false
	}
	if c, ok := curves[k.Curve]; ok && c.Family != Weierstrass {
		return true
	}
	return k.Y != nil
}

// CheckPrivate verifies that k carries a private scalar of the curve's width.
func (k *ECKey) CheckPrivate() (*Curve, error) {
	if k == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil key")
	}
	c, err := Describe(k.Curve)
	if err != nil {
		return nil, err
	}
	if len(k.D) != c.ByteLen {
		return nil, errors.Wrapf(ErrInvalidArgument, "private scalar is %d bytes, %s needs %d", len(k.D), c.Name, c.ByteLen)
	}
	if k.X != nil || k.Y != nil {
		if err := checkCoordinates(c, k.X, k.Y); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CheckPublic verifies that k carries both public coordinates of the curve's
// width.
func (k *ECKey) CheckPublic() (*Curve, error) {
	if k == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil key")
	}
	c, err := Describe(k.Curve)
	if err != nil {
		return nil, err
	}
	if err := checkCoordinates(c, k.X, k.Y); err != nil {
		return nil, err
	}
	return c, nil
}

func checkCoordinates(c *Curve, x, y []byte) error {
	if c.Family != Weierstrass {
		if len(x) != c.ByteLen || y != nil {
			return errors.Wrapf(ErrInvalidArgument, "%s public value is %d bytes, needs %d", c.Name, len(x), c.ByteLen)
		}
		return nil
	}
	if len(x) != c.ByteLen || len(y) != c.ByteLen {
		return errors.Wrapf(ErrInvalidArgument, "public coordinates are %d/%d bytes, %s needs %d", len(x), len(y), c.Name, c.ByteLen)
	}
	return nil
}

// Public returns a copy of the public half of k.
func (k *ECKey) Public() *ECKey {
	pub := &ECKey{Curve: k.Curve, X: append([]byte(nil), k.X...)}
	if k.Y != nil {
		pub.Y = append([]byte(nil), k.Y...)
	}
	return pub
}

// Wipe overwrites the private scalar.
func (k *ECKey) Wipe() {
	if k != nil {
		Wipe(k.D)
	}
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	clear(b)
}

// PadLeft returns src right-aligned in a zeroed slice of n bytes. Leading
// zero bytes of src beyond n are dropped; any other overflow is an error.
func PadLeft(src []byte, n int) ([]byte, error) {
	for len(src) > n {
		if src[0] != 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "value of %d bytes does not fit in %d", len(src), n)
		}
		src = src[1:]
	}
	out := make([]byte, n)
	copy(out[n-len(src):], src)
	return out, nil
}

// Reverse writes src to dst in reverse byte order. dst and src may be the
// same slice.
func Reverse(dst, src []byte) {
	n := len(src)
	for i := 0; i < n/2; i++ {
		dst[i], dst[n-1-i] = src[n-1-i], src[i]
	}
	if n%2 == 1 {
		dst[n/2] = src[n/2]
	}
}
