/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"encoding/binary"
	"fmt"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
)

// Verb is the two character subfunction code that opens a parameter block.
type Verb uint16

const (
	VerbECDH   Verb = 0x4448 // "DH"
	VerbSign   Verb = 0x5347 // "SG"
	VerbVerify Verb = 0x5356 // "SV"
	VerbKeyGen Verb = 0x5047 // "PG"
)

func (v Verb) String() string {
	switch v {
	case VerbECDH, VerbSign, VerbVerify, VerbKeyGen:
		return string([]byte{byte(v >> 8), byte(v)})
	default:
		return fmt.Sprintf("Verb(%#04x)", uint16(v))
	}
}

// Rule array keywords, blank padded to eight characters.
const (
	RulePassThru = "PASSTHRU"
	RuleECDSA    = "ECDSA   "
	RuleClear    = "CLEAR   "
)

const (
	ruleArrayLen = 2 + 8
	verbHeadLen  = 2 + ruleArrayLen
)

// ecdhVUD is the fixed VUD of a pass-through ECDH request: four empty
// fields tagged 0x0091, 0x0093, 0x0090 and 0x0092.
var ecdhVUD = []byte{
	0x00, 0x14,
	0x00, 0x04, 0x00, 0x91,
	0x00, 0x06, 0x00, 0x93, 0x00, 0x00,
	0x00, 0x04, 0x00, 0x90,
	0x00, 0x04, 0x00, 0x92,
}

// Parameter block sizes without the key block.
func ecdhParmLen() int           { return verbHeadLen + len(ecdhVUD) }
func signParmLen(h int) int      { return verbHeadLen + 4 + h }
func verifyParmLen(h, n int) int { return verbHeadLen + 4 + h + 2 + 2*n }
func keyGenParmLen() int         { return verbHeadLen + 2 }

// Key block sizes including the leading length word.
func ecdhKeyBlockLen(n int) int   { return 2 + 2*PrivateTokenLen(n) + ecdhNullKeySlots*nullKeyLen }
func signKeyBlockLen(n int) int   { return 2 + PrivateTokenLen(n) }
func verifyKeyBlockLen(n int) int { return 2 + PublicKeyBlockLen(n) }
func keyGenKeyBlockLen() int      { return 2 + keyGenTokenLen + nullTokenLen }

// parmWriter appends big-endian fields to a parameter area.
type parmWriter struct {
	b   []byte
	off int
}

func (w *parmWriter) u16(v int) {
	binary.BigEndian.PutUint16(w.b[w.off:], uint16(v))
	w.off += 2
}

func (w *parmWriter) bytes(p []byte) {
	w.off += copy(w.b[w.off:], p)
}

func (w *parmWriter) verb(v Verb, rule string) {
	w.u16(int(v))
	w.u16(ruleArrayLen)
	w.bytes([]byte(rule))
}

func (w *parmWriter) token(put func([]byte) (int, error)) error {
	n, err := put(w.b[w.off:])
	w.off += n
	return err
}

// parmReader reads big-endian fields and fails once it runs past the end.
type parmReader struct {
	b   []byte
	off int
	err error
}

func (r *parmReader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Wrapf(bccsp.ErrIOFault, format, args...)
	}
}

func (r *parmReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.fail("parameter block truncated at offset %d", r.off)
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *parmReader) u16() int {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return int(binary.BigEndian.Uint16(p))
}

func (r *parmReader) rule(want string) {
	if l := r.u16(); r.err == nil && l != ruleArrayLen {
		r.fail("rule array length %d", l)
		return
	}
	if got := string(r.take(8)); r.err == nil && got != want {
		r.fail("rule array %q, want %q", got, want)
	}
}

// Call is a request as the card sees it. For ECDH, Key holds the private
// scalar together with the peer's public point.
type Call struct {
	Verb      Verb
	Domain    uint16
	Curve     *bccsp.Curve
	Key       *Token
	Hash      []byte
	Signature []byte
}

// ParseCall decodes the request half of a buffer and checks every length
// field it carries. It is the card's view of a request.
func ParseCall(buf []byte) (*Call, error) {
	if len(buf) != BufferSize {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "request buffer is %d bytes", len(buf))
	}
	h, err := UnmarshalHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.ReqParmLen > ParmBlockSize || h.ReplyMsgLen != ReplyOffset {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "request geometry: parameters %d, reply %d", h.ReqParmLen, h.ReplyMsgLen)
	}
	r := &parmReader{b: buf[CPRBXSize : CPRBXSize+int(h.ReqParmLen)]}
	call := &Call{Verb: Verb(r.u16()), Domain: h.Domain}

	switch call.Verb {
	case VerbECDH:
		r.rule(RulePassThru)
		vud := r.take(len(ecdhVUD))
		if r.err == nil && string(vud) != string(ecdhVUD) {
			r.fail("ECDH VUD")
		}
		call.Key = parseECDHKeyBlock(r)
	case VerbSign:
		r.rule(RuleECDSA)
		vudLen := r.u16()
		hLen := r.u16()
		if r.err == nil && (vudLen != hLen+2 || hLen < 2) {
			r.fail("sign VUD lengths %d/%d", vudLen, hLen)
		}
		call.Hash = append([]byte(nil), r.take(hLen-2)...)
		call.Key = parsePrivateKeyBlock(r, UsageSignature)
	case VerbVerify:
		r.rule(RuleECDSA)
		vudLen := r.u16()
		hLen := r.u16()
		call.Hash = append([]byte(nil), r.take(hLen-2)...)
		sLen := r.u16()
		call.Signature = append([]byte(nil), r.take(sLen-2)...)
		if r.err == nil && vudLen != 2+hLen+sLen {
			r.fail("verify VUD length %d, fields %d/%d", vudLen, hLen, sLen)
		}
		call.Key = parsePublicKeyBlock(r)
		if r.err == nil && len(call.Signature) != 2*call.Key.Curve.ByteLen {
			r.fail("signature of %d bytes for %s", len(call.Signature), call.Key.Curve.Name)
		}
	case VerbKeyGen:
		r.rule(RuleClear)
		if l := r.u16(); r.err == nil && l != 2 {
			r.fail("key generation VUD length %d", l)
		}
		call.Curve = parseKeyGenKeyBlock(r)
	default:
		return nil, errors.Wrapf(bccsp.ErrIOFault, "unknown subfunction %s", call.Verb)
	}
	if r.err == nil && r.off != len(r.b) {
		r.fail("%d trailing parameter bytes", len(r.b)-r.off)
	}
	if r.err != nil {
		if call.Key != nil {
			bccsp.Wipe(call.Key.D)
		}
		return nil, r.err
	}
	if call.Key != nil {
		call.Curve = call.Key.Curve
	}
	return call, nil
}

func parsePrivateKeyBlock(r *parmReader, usage byte) *Token {
	kbLen := r.u16()
	body := r.take(kbLen - 2)
	if r.err != nil {
		return nil
	}
	t, err := ParsePrivateToken(body)
	if err != nil {
		r.err = err
		return nil
	}
	if kbLen != signKeyBlockLen(t.Curve.ByteLen) || t.Usage != usage {
		bccsp.Wipe(t.D)
		r.fail("key block length %d, usage %#x", kbLen, t.Usage)
		return nil
	}
	return t
}

func parseECDHKeyBlock(r *parmReader) *Token {
	kbLen := r.u16()
	body := r.take(kbLen - 2)
	if r.err != nil {
		return nil
	}
	t, err := ParsePrivateToken(body)
	if err != nil {
		r.err = err
		return nil
	}
	n := t.Curve.ByteLen
	tl := PrivateTokenLen(n)
	if kbLen != ecdhKeyBlockLen(n) || t.Usage != UsageKeyAgreement {
		bccsp.Wipe(t.D)
		r.fail("ECDH key block length %d, usage %#x", kbLen, t.Usage)
		return nil
	}
	// token, null key, token, null key, null key, null key
	off := tl
	err = checkNullKey(body[off:])
	off += nullKeyLen
	if err == nil {
		var second *Token
		if second, err = ParsePrivateToken(body[off : off+tl]); err == nil {
			bccsp.Wipe(second.D)
		}
		off += tl
	}
	for i := 1; err == nil && i < ecdhNullKeySlots; i++ {
		err = checkNullKey(body[off:])
		off += nullKeyLen
	}
	if err != nil {
		bccsp.Wipe(t.D)
		r.err = err
		return nil
	}
	return t
}

func parsePublicKeyBlock(r *parmReader) *Token {
	kbLen := r.u16()
	body := r.take(kbLen - 2)
	if r.err != nil {
		return nil
	}
	t, err := ParsePublicKeyBlock(body)
	if err != nil {
		r.err = err
		return nil
	}
	if kbLen != verifyKeyBlockLen(t.Curve.ByteLen) {
		r.fail("public key block length %d", kbLen)
		return nil
	}
	return t
}

func parseKeyGenKeyBlock(r *parmReader) *bccsp.Curve {
	kbLen := r.u16()
	if r.err == nil && kbLen != keyGenKeyBlockLen() {
		r.fail("key generation key block length %d", kbLen)
		return nil
	}
	body := r.take(kbLen - 2)
	if r.err != nil {
		return nil
	}
	c, err := ParseKeyGenToken(body)
	if err == nil {
		err = checkNullToken(body[keyGenTokenLen:])
	}
	if err != nil {
		r.err = err
		return nil
	}
	return c
}
