/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nistCurves = []bccsp.CurveID{bccsp.P256, bccsp.P384, bccsp.P521}

func testKey(t *testing.T, id bccsp.CurveID) *bccsp.ECKey {
	c, err := bccsp.Describe(id)
	require.NoError(t, err)
	priv, err := ecdsa.GenerateKey(c.Elliptic(), rand.Reader)
	require.NoError(t, err)
	n := c.ByteLen
	return &bccsp.ECKey{
		Curve: id,
		D:     priv.D.FillBytes(make([]byte, n)),
		X:     priv.X.FillBytes(make([]byte, n)),
		Y:     priv.Y.FillBytes(make([]byte, n)),
	}
}

func fixedDomain(t *testing.T, value string) *DomainResolver {
	return &DomainResolver{Path: writeDomainFile(t, value)}
}

func TestHeaderRoundTrip(t *testing.T) {
	b := make([]byte, CPRBXSize)
	h := newRequestHeader(736, 9)
	h.ReturnCode = 4
	h.ReasonCode = 429
	h.Marshal(b)

	assert.Equal(t, []byte{0x00, 0xDC}, b[0:2])
	assert.Equal(t, byte(0x02), b[2])
	assert.Equal(t, []byte("T2"), b[6:8])
	assert.Equal(t, uint32(736), binary.BigEndian.Uint32(b[12:]))
	assert.Equal(t, uint32(2268), binary.BigEndian.Uint32(b[20:]))
	assert.Equal(t, uint64(220), binary.BigEndian.Uint64(b[56:]))
	assert.Equal(t, uint64(2488), binary.BigEndian.Uint64(b[88:]))
	assert.Equal(t, uint16(9), binary.BigEndian.Uint16(b[170:]))

	got, err := UnmarshalHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	b[6] = 'X'
	_, err = UnmarshalHeader(b)
	assert.ErrorIs(t, err, bccsp.ErrIOFault)
	_, err = UnmarshalHeader(b[:100])
	assert.ErrorIs(t, err, bccsp.ErrIOFault)
}

func TestXCRBLayout(t *testing.T) {
	x := XCRB{
		AgentID:            AgentCA,
		UserDefined:        AutoSelect,
		RequestControlLen:  956,
		RequestControlAddr: 0x1122334455667788,
		ReplyControlLen:    2268,
		ReplyControlAddr:   0x1122334455667788 + ReplyOffset,
		Status:             7,
	}
	b := x.Marshal()
	require.Len(t, b, XCRBSize)
	assert.Equal(t, []byte("CA"), b[0:2])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, b[2:6])
	assert.Equal(t, uint32(956), binary.BigEndian.Uint32(b[8:]))
	assert.Equal(t, make([]byte, 8), b[12:20])
	assert.Equal(t, uint64(0x1122334455667788), binary.BigEndian.Uint64(b[20:]))
	assert.Equal(t, uint32(2268), binary.BigEndian.Uint32(b[48:]))
	assert.Equal(t, uint32(7), binary.BigEndian.Uint32(b[90:]))
	assert.Equal(t, x, UnmarshalXCRB(b))
}

func TestRequestLengths(t *testing.T) {
	b := &Builder{Domain: fixedDomain(t, "3")}
	hash := sha256.Sum256([]byte("message"))

	for _, id := range nistCurves {
		key := testKey(t, id)
		peer := testKey(t, id)
		n := len(key.D)
		tok := 119 + 3*n

		cases := []struct {
			verb    Verb
			build   func() (*Request, error)
			parmLen int
		}{
			{VerbECDH, func() (*Request, error) { return b.ECDH(key, peer) }, 32 + 2 + 2*tok + 4*68},
			{VerbSign, func() (*Request, error) { return b.Sign(key, hash[:]) }, 16 + 32 + 2 + tok},
			{VerbVerify, func() (*Request, error) { return b.Verify(key.Public(), hash[:], make([]byte, 2*n)) }, 16 + 32 + 2 + 2*n + 2 + 27 + 2*n},
			{VerbKeyGen, func() (*Request, error) { return b.KeyGen(id) }, 14 + 2 + 118 + 5},
		}
		for _, tc := range cases {
			t.Run(id.String()+"/"+tc.verb.String(), func(t *testing.T) {
				r, err := tc.build()
				require.NoError(t, err)
				defer r.Wipe()

				h, err := r.Header()
				require.NoError(t, err)
				assert.Equal(t, uint32(tc.parmLen), h.ReqParmLen)
				assert.Equal(t, uint16(3), h.Domain)
				assert.Len(t, r.Buffer(), BufferSize)
				assert.Equal(t, uint32(CPRBXSize+tc.parmLen), r.XCRB(0).RequestControlLen)

				parms := r.Buffer()[CPRBXSize:]
				assert.Equal(t, uint16(tc.verb), binary.BigEndian.Uint16(parms))
				assert.Equal(t, uint16(10), binary.BigEndian.Uint16(parms[2:]))
				// nothing beyond the announced parameters
				assert.Equal(t, make([]byte, ParmBlockSize-tc.parmLen), parms[tc.parmLen:ParmBlockSize])
			})
		}
	}
}

func TestRequestsParseBack(t *testing.T) {
	b := &Builder{Domain: fixedDomain(t, "12")}
	hash := sha256.Sum256([]byte("message"))

	for _, id := range nistCurves {
		key := testKey(t, id)
		peer := testKey(t, id)
		n := len(key.D)

		r, err := b.ECDH(key, peer)
		require.NoError(t, err)
		call, err := ParseCall(r.Buffer())
		require.NoError(t, err)
		assert.Equal(t, VerbECDH, call.Verb)
		assert.Equal(t, id, call.Curve.ID)
		assert.Equal(t, uint16(12), call.Domain)
		assert.Equal(t, byte(UsageKeyAgreement), call.Key.Usage)
		assert.Equal(t, key.D, call.Key.D)
		assert.Equal(t, peer.X, call.Key.X)
		assert.Equal(t, peer.Y, call.Key.Y)

		r, err = b.Sign(key, hash[:20])
		require.NoError(t, err)
		call, err = ParseCall(r.Buffer())
		require.NoError(t, err)
		assert.Equal(t, hash[:20], call.Hash)
		assert.Equal(t, byte(UsageSignature), call.Key.Usage)
		assert.Equal(t, key.D, call.Key.D)
		assert.Equal(t, key.X, call.Key.X)

		sig := bytes.Repeat([]byte{0xA5}, 2*n)
		r, err = b.Verify(key.Public(), hash[:], sig)
		require.NoError(t, err)
		call, err = ParseCall(r.Buffer())
		require.NoError(t, err)
		assert.Equal(t, sig, call.Signature)
		assert.Nil(t, call.Key.D)
		assert.Equal(t, key.Y, call.Key.Y)

		r, err = b.KeyGen(id)
		require.NoError(t, err)
		call, err = ParseCall(r.Buffer())
		require.NoError(t, err)
		assert.Equal(t, VerbKeyGen, call.Verb)
		assert.Equal(t, id, call.Curve.ID)
	}
}

func TestPrivateTokenLayoutP521(t *testing.T) {
	key := testKey(t, bccsp.P521)
	c, _ := bccsp.Describe(bccsp.P521)
	b := make([]byte, PrivateTokenLen(66))
	size, err := putPrivateToken(b, c, UsageSignature, key.D, key.X, key.Y)
	require.NoError(t, err)
	require.Equal(t, 317, size)

	be := binary.BigEndian
	assert.Equal(t, uint16(317), be.Uint16(b[0:]))
	assert.Equal(t, uint16(0x0020), be.Uint16(b[2:]))
	assert.Equal(t, byte(0x1E), b[4])
	assert.Equal(t, uint16(313), be.Uint16(b[6:]))
	assert.Equal(t, byte(0x20), b[12])
	assert.Equal(t, uint16(92+66), be.Uint16(b[14:]))
	assert.Equal(t, byte(0x80), b[20])
	assert.Equal(t, byte(0x40), b[22])
	assert.Equal(t, uint16(521), be.Uint16(b[24:]))
	assert.Equal(t, uint16(66), be.Uint16(b[86:]))
	assert.Equal(t, uint16(521), be.Uint16(b[96:]))
	assert.Equal(t, key.D, b[104:170])
	assert.Equal(t, byte(0x21), b[170])
	assert.Equal(t, uint16(14+133), be.Uint16(b[172:]))
	assert.Equal(t, uint16(133), be.Uint16(b[182:]))
	assert.Equal(t, byte(0x04), b[184])
	assert.Equal(t, key.X, b[185:251])
	assert.Equal(t, key.Y, b[251:317])
}

func TestTokenParseRejectsInconsistentLengths(t *testing.T) {
	key := testKey(t, bccsp.P256)
	c, _ := bccsp.Describe(bccsp.P256)
	fresh := func() []byte {
		b := make([]byte, PrivateTokenLen(32))
		_, err := putPrivateToken(b, c, UsageKeyAgreement, key.D, key.X, key.Y)
		require.NoError(t, err)
		return b
	}
	tok, err := ParsePrivateToken(fresh())
	require.NoError(t, err)
	assert.Equal(t, key.D, tok.D)

	for name, off := range map[string]int{
		"key length":          1,
		"token length":        7,
		"section length":      15,
		"value length":        87,
		"mirrored bit length": 97,
		"point length":        136 + 13,
		"marker":              136 + 14,
	} {
		b := fresh()
		b[off]++
		_, err := ParsePrivateToken(b)
		assert.ErrorIs(t, err, bccsp.ErrIOFault, name)
	}

	b := fresh()
	b[25]++
	_, err = ParsePrivateToken(b)
	assert.ErrorIs(t, err, bccsp.ErrUnsupportedCurve)
}

func TestBuilderRejects(t *testing.T) {
	b := &Builder{Domain: fixedDomain(t, "1")}
	key := testKey(t, bccsp.P521)

	_, err := b.Sign(key, make([]byte, 2048-(16+2+317)))
	assert.NoError(t, err)
	_, err = b.Sign(key, make([]byte, 2048-(16+2+317)+1))
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = b.Sign(key, nil)
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = b.Sign(&bccsp.ECKey{Curve: bccsp.P521, D: key.D}, []byte{1})
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = b.Verify(key.Public(), []byte{1}, make([]byte, 131))
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = b.ECDH(key, testKey(t, bccsp.P256))
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)

	_, err = b.KeyGen(bccsp.X25519)
	assert.ErrorIs(t, err, bccsp.ErrUnsupportedCurve)
	x := &bccsp.ECKey{Curve: bccsp.Ed25519, D: make([]byte, 32), X: make([]byte, 32), Y: make([]byte, 32)}
	_, err = b.Sign(x, []byte{1})
	assert.ErrorIs(t, err, bccsp.ErrUnsupportedCurve)
}

func TestRequestWipe(t *testing.T) {
	b := &Builder{Domain: fixedDomain(t, "1")}
	r, err := b.Sign(testKey(t, bccsp.P256), []byte{1, 2, 3})
	require.NoError(t, err)
	r.Wipe()
	assert.Equal(t, make([]byte, BufferSize), r.Buffer())
}

func TestParseCallRejectsTampering(t *testing.T) {
	b := &Builder{Domain: fixedDomain(t, "1")}
	key := testKey(t, bccsp.P384)

	build := func() []byte {
		r, err := b.ECDH(key, testKey(t, bccsp.P384))
		require.NoError(t, err)
		return r.Buffer()
	}
	parms := func(buf []byte) []byte { return buf[CPRBXSize:] }

	buf := build()
	parms(buf)[2] = 0x0B
	_, err := ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "rule array length")

	buf = build()
	copy(parms(buf)[4:], "PASSTHRX")
	_, err = ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "rule array")

	buf = build()
	parms(buf)[20]++
	_, err = ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "VUD")

	buf = build()
	parms(buf)[33]++
	_, err = ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "key block length")

	// the second null key slot
	buf = build()
	parms(buf)[34+2*(119+3*48)+68+1]++
	_, err = ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "null key")

	buf = build()
	binary.BigEndian.PutUint16(parms(buf), 0x4141)
	_, err = ParseCall(buf)
	assert.ErrorIs(t, err, bccsp.ErrIOFault, "subfunction")
}
