/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"encoding/binary"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
)

// Key token identifiers and markers.
const (
	TokenInternal      = 0x1E
	SectionPrivateKey  = 0x20
	SectionPublicKey   = 0x21
	KeyFormatClear     = 0x40
	UncompressedMarker = 0x04

	UsageKeyAgreement = 0xC0
	UsageSignature    = 0x80

	// signatureTokenFlags is the reserved word of tokens used for ECDSA.
	signatureTokenFlags = 0x0020
	// nullTokenFlags is the reserved word of the ECC null token.
	nullTokenFlags = 0x0010
)

// Fixed parts of the token formats.
const (
	tokenPrefixLen   = 4  // key_len, reserved
	tokenHeaderLen   = 8  // id, version, tkn_length, reserved
	privSectionLen   = 76 // private key section without D
	assocDataLen     = 16 // associated data mirror
	pubSectionLen    = 14 // public key section without the point
	privTokenFixed   = tokenPrefixLen + tokenHeaderLen + privSectionLen + assocDataLen + pubSectionLen + 1
	pubBlockFixed    = tokenPrefixLen + tokenHeaderLen + pubSectionLen + 1
	keyGenTokenLen   = tokenPrefixLen + tokenHeaderLen + privSectionLen + assocDataLen + pubSectionLen
	nullTokenLen     = 5
	nullKeyLen       = 68
	ecdhNullKeySlots = 4

	// offsets of the private key section
	privOffset         = tokenPrefixLen + tokenHeaderLen
	assocOffset        = privOffset + privSectionLen
	privateValueOffset = assocOffset + assocDataLen
)

// PrivateTokenLen is the size of a private key token carrying D, X and Y
// for a curve of n byte values.
func PrivateTokenLen(n int) int { return privTokenFixed + 3*n }

// PublicKeyBlockLen is the size of an ECDSA public key block.
func PublicKeyBlockLen(n int) int { return pubBlockFixed + 2*n }

func bitLen(c *bccsp.Curve) uint16 {
	return uint16(c.BitLen)
}

func curveType(c *bccsp.Curve) (byte, error) {
	if !c.HasCCAType {
		return 0, errors.Wrapf(bccsp.ErrUnsupportedCurve, "no coprocessor curve type for %s", c.Name)
	}
	return c.CCACurveType, nil
}

func putTokenHeader(b []byte, keyLen int, flags uint16) {
	be := binary.BigEndian
	be.PutUint16(b[0:], uint16(keyLen))
	be.PutUint16(b[2:], flags)
	b[4] = TokenInternal
	b[5] = 0
	be.PutUint16(b[6:], uint16(keyLen-tokenPrefixLen))
}

// putPublicSection writes a public key section followed by the marker and
// the point. n is the coordinate width, zero for a skeleton section.
func putPublicSection(b []byte, c *bccsp.Curve, ct byte, x, y []byte) int {
	n := len(x)
	be := binary.BigEndian
	b[0] = SectionPublicKey
	b[1] = 0
	qLen := 0
	if n > 0 {
		qLen = 2*n + 1
	}
	be.PutUint16(b[2:], uint16(pubSectionLen+qLen))
	b[8] = ct
	b[9] = 0
	be.PutUint16(b[10:], bitLen(c))
	be.PutUint16(b[12:], uint16(qLen))
	if n == 0 {
		return pubSectionLen
	}
	b[pubSectionLen] = UncompressedMarker
	copy(b[pubSectionLen+1:], x)
	copy(b[pubSectionLen+1+n:], y)
	return pubSectionLen + qLen
}

// putPrivateSection writes the private key section and the associated data
// mirror. n is the width of the private value that follows, zero for the
// key generation skeleton.
func putPrivateSection(b []byte, c *bccsp.Curve, ct, usage byte, n int) {
	be := binary.BigEndian
	p := b[privOffset:]
	p[0] = SectionPrivateKey
	p[1] = 0
	be.PutUint16(p[2:], uint16(privSectionLen+assocDataLen+n))
	p[8] = usage
	p[9] = ct
	p[10] = KeyFormatClear
	be.PutUint16(p[12:], bitLen(c))
	be.PutUint16(p[14:], assocDataLen)
	be.PutUint16(p[72:], assocDataLen)
	be.PutUint16(p[74:], uint16(n))

	a := b[assocOffset:]
	a[0] = 0
	a[1] = 0
	be.PutUint16(a[2:], assocDataLen)
	be.PutUint16(a[4:], 0)
	a[6] = 0
	a[7] = ct
	be.PutUint16(a[8:], bitLen(c))
	a[10] = usage
	a[11] = KeyFormatClear
}

// putPrivateToken writes a private key token holding d and the point (x, y)
// and returns its length. For ECDH the point is the peer's public key.
func putPrivateToken(b []byte, c *bccsp.Curve, usage byte, d, x, y []byte) (int, error) {
	ct, err := curveType(c)
	if err != nil {
		return 0, err
	}
	n := c.ByteLen
	size := PrivateTokenLen(n)
	flags := uint16(0)
	if usage == UsageSignature {
		flags = signatureTokenFlags
	}
	putTokenHeader(b, size, flags)
	putPrivateSection(b, c, ct, usage, n)
	copy(b[privateValueOffset:], d)
	putPublicSection(b[privateValueOffset+n:], c, ct, x, y)
	return size, nil
}

// putPublicKeyBlock writes the public key token used by ECDSA verification.
func putPublicKeyBlock(b []byte, c *bccsp.Curve, x, y []byte) (int, error) {
	ct, err := curveType(c)
	if err != nil {
		return 0, err
	}
	size := PublicKeyBlockLen(c.ByteLen)
	putTokenHeader(b, size, 0)
	putPublicSection(b[tokenPrefixLen+tokenHeaderLen:], c, ct, x, y)
	return size, nil
}

// putKeyGenToken writes the skeleton token that tells the card which curve
// to generate a key on.
func putKeyGenToken(b []byte, c *bccsp.Curve) (int, error) {
	ct, err := curveType(c)
	if err != nil {
		return 0, err
	}
	putTokenHeader(b, keyGenTokenLen, signatureTokenFlags)
	putPrivateSection(b, c, ct, UsageSignature, 0)
	putPublicSection(b[privateValueOffset:], c, ct, nil, nil)
	return keyGenTokenLen, nil
}

func putNullToken(b []byte) int {
	binary.BigEndian.PutUint16(b[0:], nullTokenLen)
	binary.BigEndian.PutUint16(b[2:], nullTokenFlags)
	b[4] = 0
	return nullTokenLen
}

func putNullKey(b []byte) int {
	clear(b[:nullKeyLen])
	binary.BigEndian.PutUint16(b[0:], nullKeyLen)
	return nullKeyLen
}

// curveFromBits maps the curve type and bit length of a token back to the
// registry.
func curveFromBits(ct byte, bits uint16) (*bccsp.Curve, error) {
	for _, id := range bccsp.Curves() {
		c, _ := bccsp.Describe(id)
		if c.HasCCAType && c.CCACurveType == ct && c.BitLen == int(bits) {
			return c, nil
		}
	}
	return nil, errors.Wrapf(bccsp.ErrUnsupportedCurve, "no curve of type %#x with %d bits", ct, bits)
}

// Token is a decoded private key token or public key block.
type Token struct {
	Curve *bccsp.Curve
	Usage byte
	D     []byte
	X     []byte
	Y     []byte
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(bccsp.ErrIOFault, "malformed key token: "+format, args...)
}

// parsePublicSection checks a public key section and returns the point and
// the section length including the point.
func parsePublicSection(b []byte, c *bccsp.Curve) (x, y []byte, size int, err error) {
	be := binary.BigEndian
	if len(b) < pubSectionLen {
		return nil, nil, 0, malformed("public section truncated")
	}
	if b[0] != SectionPublicKey {
		return nil, nil, 0, malformed("public section id %#x", b[0])
	}
	if b[8] != c.CCACurveType || be.Uint16(b[10:]) != bitLen(c) {
		return nil, nil, 0, malformed("public section describes another curve")
	}
	n := c.ByteLen
	qLen := int(be.Uint16(b[12:]))
	size = int(be.Uint16(b[2:]))
	if qLen != 2*n+1 || size != pubSectionLen+qLen || len(b) < size {
		return nil, nil, 0, malformed("public section length %d with point length %d for %s", size, qLen, c.Name)
	}
	if b[pubSectionLen] != UncompressedMarker {
		return nil, nil, 0, malformed("point marker %#x", b[pubSectionLen])
	}
	x = append([]byte(nil), b[pubSectionLen+1:pubSectionLen+1+n]...)
	y = append([]byte(nil), b[pubSectionLen+1+n:pubSectionLen+1+2*n]...)
	return x, y, size, nil
}

// ParsePrivateToken decodes a private key token and checks every length
// field against the curve it names.
func ParsePrivateToken(b []byte) (*Token, error) {
	be := binary.BigEndian
	if len(b) < privateValueOffset {
		return nil, malformed("%d bytes", len(b))
	}
	size := int(be.Uint16(b[0:]))
	if b[4] != TokenInternal || int(be.Uint16(b[6:])) != size-tokenPrefixLen {
		return nil, malformed("header id %#x, length %d", b[4], be.Uint16(b[6:]))
	}
	p := b[privOffset:]
	if p[0] != SectionPrivateKey || p[10] != KeyFormatClear {
		return nil, malformed("private section id %#x, format %#x", p[0], p[10])
	}
	c, err := curveFromBits(p[9], be.Uint16(p[12:]))
	if err != nil {
		return nil, err
	}
	n := c.ByteLen
	if size != PrivateTokenLen(n) || len(b) < size {
		return nil, malformed("token length %d for %s", size, c.Name)
	}
	if int(be.Uint16(p[2:])) != privSectionLen+assocDataLen+n || int(be.Uint16(p[74:])) != n {
		return nil, malformed("private section lengths %d/%d for %s", be.Uint16(p[2:]), be.Uint16(p[74:]), c.Name)
	}
	if be.Uint16(p[14:]) != assocDataLen || be.Uint16(p[72:]) != assocDataLen {
		return nil, malformed("associated data length")
	}
	a := b[assocOffset:]
	if a[7] != p[9] || be.Uint16(a[8:]) != bitLen(c) || a[10] != p[8] || a[11] != KeyFormatClear {
		return nil, malformed("associated data does not mirror the private section")
	}
	t := &Token{
		Curve: c,
		Usage: p[8],
		D:     append([]byte(nil), b[privateValueOffset:privateValueOffset+n]...),
	}
	t.X, t.Y, _, err = parsePublicSection(b[privateValueOffset+n:size], c)
	if err != nil {
		bccsp.Wipe(t.D)
		return nil, err
	}
	return t, nil
}

// ParsePublicKeyBlock decodes an ECDSA public key block.
func ParsePublicKeyBlock(b []byte) (*Token, error) {
	be := binary.BigEndian
	if len(b) < tokenPrefixLen+tokenHeaderLen+pubSectionLen {
		return nil, malformed("%d bytes", len(b))
	}
	size := int(be.Uint16(b[0:]))
	if b[4] != TokenInternal || int(be.Uint16(b[6:])) != size-tokenPrefixLen {
		return nil, malformed("header id %#x, length %d", b[4], be.Uint16(b[6:]))
	}
	s := b[tokenPrefixLen+tokenHeaderLen:]
	c, err := curveFromBits(s[8], be.Uint16(s[10:]))
	if err != nil {
		return nil, err
	}
	if size != PublicKeyBlockLen(c.ByteLen) || len(b) < size {
		return nil, malformed("public key block length %d for %s", size, c.Name)
	}
	x, y, _, err := parsePublicSection(s[:size-tokenPrefixLen-tokenHeaderLen], c)
	if err != nil {
		return nil, err
	}
	return &Token{Curve: c, X: x, Y: y}, nil
}

// ParseKeyGenToken decodes the skeleton token of a key generation request
// and returns the curve it asks for.
func ParseKeyGenToken(b []byte) (*bccsp.Curve, error) {
	be := binary.BigEndian
	if len(b) < keyGenTokenLen {
		return nil, malformed("%d bytes", len(b))
	}
	if int(be.Uint16(b[0:])) != keyGenTokenLen || b[4] != TokenInternal || int(be.Uint16(b[6:])) != keyGenTokenLen-tokenPrefixLen {
		return nil, malformed("skeleton token length %d", be.Uint16(b[0:]))
	}
	p := b[privOffset:]
	if p[0] != SectionPrivateKey || int(be.Uint16(p[2:])) != privSectionLen+assocDataLen || be.Uint16(p[74:]) != 0 {
		return nil, malformed("skeleton private section")
	}
	c, err := curveFromBits(p[9], be.Uint16(p[12:]))
	if err != nil {
		return nil, err
	}
	s := b[privateValueOffset:]
	if s[0] != SectionPublicKey || be.Uint16(s[2:]) != pubSectionLen || be.Uint16(s[12:]) != 0 {
		return nil, malformed("skeleton public section")
	}
	return c, nil
}

func checkNullToken(b []byte) error {
	if len(b) < nullTokenLen || binary.BigEndian.Uint16(b) != nullTokenLen || binary.BigEndian.Uint16(b[2:]) != nullTokenFlags {
		return malformed("null token")
	}
	return nil
}

func checkNullKey(b []byte) error {
	if len(b) < nullKeyLen || binary.BigEndian.Uint16(b) != nullKeyLen {
		return malformed("null key")
	}
	return nil
}
