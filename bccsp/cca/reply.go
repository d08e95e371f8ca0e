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

// Return and reason codes with a meaning of their own.
const (
	ReturnOK       = 0
	ReturnWarning  = 4
	ReturnError    = 8
	ReasonBadSig   = 429
	ReasonBadCurve = 874
)

// replyParmOffset is where the reply parameters start in the buffer.
const replyParmOffset = ReplyOffset + CPRBXSize

// Offsets within the reply parameters. Every reply starts with the
// subfunction code, an empty rule array and the VUD length.
const (
	rplVerb      = 0
	rplRuleLen   = 2
	rplVUDLen    = 4
	rplECDHKey   = 6  // key length, flags, Z
	rplSignSig   = 12 // after section length, id and reserved word
	rplKeyBlock  = 6  // key block length, then the token
	rplKeyToken  = 8
	rplFixedHead = 6
)

// ReplyLengthField returns the offset, within the reply parameters, of the
// length word the decoder of v checks against the curve, or -1 when the
// reply carries none.
func ReplyLengthField(v Verb) int {
	switch v {
	case VerbECDH:
		return rplECDHKey
	case VerbSign:
		return rplVUDLen
	case VerbKeyGen:
		return rplKeyToken + privOffset + 74
	}
	return -1
}

func ioFault(r *Request, format string, args ...interface{}) error {
	return errors.Wrapf(bccsp.ErrIOFault, "%s reply for %s: "+format, append([]interface{}{r.Verb, r.curve.Name}, args...)...)
}

// replyParms checks the reply CPRBX and returns the reply header and the
// reply parameters. A nonzero return code is left to the caller.
func replyParms(r *Request, v Verb) (Header, []byte, error) {
	if r.Verb != v {
		return Header{}, nil, errors.Wrapf(bccsp.ErrInvalidArgument, "cannot decode a %s reply for a %s request", v, r.Verb)
	}
	h, err := r.ReplyHeader()
	if err != nil {
		return Header{}, nil, err
	}
	if h.ReplyParmLen > ParmBlockSize {
		return h, nil, ioFault(r, "parameter length %d", h.ReplyParmLen)
	}
	return h, r.buf[replyParmOffset : replyParmOffset+int(h.ReplyParmLen)], nil
}

func checkReturn(r *Request, h Header) error {
	if h.ReturnCode != ReturnOK {
		return ioFault(r, "return code %d, reason code %d", h.ReturnCode, h.ReasonCode)
	}
	return nil
}

// DecodeECDH returns the shared secret of an ECDH reply.
func DecodeECDH(r *Request) ([]byte, error) {
	h, p, err := replyParms(r, VerbECDH)
	if err != nil {
		return nil, err
	}
	if err := checkReturn(r, h); err != nil {
		return nil, err
	}
	n := r.curve.ByteLen
	if len(p) < rplECDHKey+4 {
		return nil, ioFault(r, "%d parameter bytes", len(p))
	}
	keyLen := int(binary.BigEndian.Uint16(p[rplECDHKey:]))
	if keyLen-4 != n {
		return nil, ioFault(r, "key length %d", keyLen)
	}
	if len(p) < rplECDHKey+keyLen {
		return nil, ioFault(r, "%d parameter bytes for a %d byte key", len(p), keyLen)
	}
	return append([]byte(nil), p[rplECDHKey+4:rplECDHKey+keyLen]...), nil
}

// DecodeSign returns the r||s signature of a signature reply.
func DecodeSign(r *Request) ([]byte, error) {
	h, p, err := replyParms(r, VerbSign)
	if err != nil {
		return nil, err
	}
	if err := checkReturn(r, h); err != nil {
		return nil, err
	}
	n := r.curve.ByteLen
	if len(p) < rplSignSig {
		return nil, ioFault(r, "%d parameter bytes", len(p))
	}
	vudLen := int(binary.BigEndian.Uint16(p[rplVUDLen:]))
	if vudLen-8 != 2*n {
		return nil, ioFault(r, "VUD length %d", vudLen)
	}
	if len(p) < rplSignSig+2*n {
		return nil, ioFault(r, "%d parameter bytes for a %d byte signature", len(p), 2*n)
	}
	return append([]byte(nil), p[rplSignSig:rplSignSig+2*n]...), nil
}

// DecodeVerify maps the status of a verification reply. The card reports a
// mismatching signature with return code 4, reason code 429.
func DecodeVerify(r *Request) error {
	h, _, err := replyParms(r, VerbVerify)
	if err != nil {
		return err
	}
	switch {
	case h.ReturnCode == ReturnOK:
		return nil
	case h.ReturnCode == ReturnWarning && h.ReasonCode == ReasonBadSig:
		return errors.Wrapf(bccsp.ErrInvalidSignature, "coprocessor rejected %s signature", r.curve.Name)
	default:
		return checkReturn(r, h)
	}
}

// DecodeKeyGen returns the key pair of a key generation reply. The private
// section must carry an n byte value and the public section an
// uncompressed point.
func DecodeKeyGen(r *Request) (*bccsp.ECKey, error) {
	h, p, err := replyParms(r, VerbKeyGen)
	if err != nil {
		return nil, err
	}
	if err := checkReturn(r, h); err != nil {
		return nil, err
	}
	be := binary.BigEndian
	n := r.curve.ByteLen
	if len(p) < rplKeyToken+privateValueOffset {
		return nil, ioFault(r, "%d parameter bytes", len(p))
	}
	kbLen := int(be.Uint16(p[rplKeyBlock:]))
	if kbLen < 2+privateValueOffset || rplKeyBlock+kbLen > len(p) {
		return nil, ioFault(r, "key block of %d bytes in %d parameter bytes", kbLen, len(p))
	}
	tok := p[rplKeyToken : rplKeyBlock+kbLen]

	priv := tok[privOffset:]
	if priv[0] != SectionPrivateKey {
		return nil, ioFault(r, "private section id %#x", priv[0])
	}
	if dl := int(be.Uint16(priv[74:])); dl != n {
		return nil, ioFault(r, "private value length %d", dl)
	}
	secLen := int(be.Uint16(priv[2:]))
	pub := privOffset + secLen
	if secLen < privSectionLen+assocDataLen+n || pub+pubSectionLen+1+2*n > len(tok) {
		return nil, ioFault(r, "private section length %d in a %d byte token", secLen, len(tok))
	}
	if tok[pub] != SectionPublicKey {
		return nil, ioFault(r, "public section id %#x", tok[pub])
	}
	if tok[pub+pubSectionLen] != UncompressedMarker {
		return nil, ioFault(r, "point marker %#x", tok[pub+pubSectionLen])
	}

	q := tok[pub+pubSectionLen+1:]
	d := privateValueOffset - privOffset
	return &bccsp.ECKey{
		Curve: r.curve.ID,
		D:     append([]byte(nil), priv[d:d+n]...),
		X:     append([]byte(nil), q[:n]...),
		Y:     append([]byte(nil), q[n:2*n]...),
	}, nil
}

// writeReply writes the reply CPRBX and parameters into buf.
func writeReply(buf []byte, parms []byte, rt, rs uint16) {
	req, _ := UnmarshalHeader(buf)
	h := Header{
		Length:       CPRBXSize,
		Version:      CPRBVersion,
		Function:     FunctionID,
		ReplyParmLen: uint32(len(parms)),
		ReturnCode:   rt,
		ReasonCode:   rs,
		Domain:       req.Domain,
	}
	h.Marshal(buf[ReplyOffset:])
	copy(buf[replyParmOffset:], parms)
}

func replyHead(v Verb, vudLen, size int) []byte {
	p := make([]byte, size)
	binary.BigEndian.PutUint16(p[rplVerb:], uint16(v))
	binary.BigEndian.PutUint16(p[rplRuleLen:], 2)
	binary.BigEndian.PutUint16(p[rplVUDLen:], uint16(vudLen))
	return p
}

// WriteStatus writes a reply that carries only a return and reason code.
func WriteStatus(buf []byte, v Verb, rt, rs uint16) {
	writeReply(buf, replyHead(v, 2, rplFixedHead), rt, rs)
}

// WriteECDHReply writes a successful ECDH reply carrying z.
func WriteECDHReply(buf []byte, z []byte) {
	p := replyHead(VerbECDH, 2, rplECDHKey+4+len(z))
	binary.BigEndian.PutUint16(p[rplECDHKey:], uint16(len(z)+4))
	copy(p[rplECDHKey+4:], z)
	writeReply(buf, p, ReturnOK, 0)
	bccsp.Wipe(p)
}

// WriteSignReply writes a successful signature reply carrying sig.
func WriteSignReply(buf []byte, sig []byte) {
	p := replyHead(VerbSign, 8+len(sig), rplSignSig+len(sig))
	binary.BigEndian.PutUint16(p[6:], uint16(6+len(sig)))
	copy(p[rplSignSig:], sig)
	writeReply(buf, p, ReturnOK, 0)
}

// WriteKeyGenReply writes a successful key generation reply carrying key.
func WriteKeyGenReply(buf []byte, key *bccsp.ECKey) error {
	c, err := key.CheckPrivate()
	if err != nil {
		return err
	}
	if !key.HasPublic() {
		return errors.Wrap(bccsp.ErrInvalidArgument, "generated key has no public part")
	}
	size := PrivateTokenLen(c.ByteLen)
	p := replyHead(VerbKeyGen, 2, rplKeyToken+size)
	defer bccsp.Wipe(p)
	binary.BigEndian.PutUint16(p[rplKeyBlock:], uint16(2+size))
	if _, err := putPrivateToken(p[rplKeyToken:], c, UsageSignature, key.D, key.X, key.Y); err != nil {
		return err
	}
	writeReply(buf, p, ReturnOK, 0)
	return nil
}
