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

// Request owns the buffer of one coprocessor exchange: the request CPRBX
// and its parameters followed by room for the reply CPRBX and reply
// parameters. The buffer holds key material until Wipe is called.
type Request struct {
	Verb  Verb
	curve *bccsp.Curve
	buf   []byte
}

// Curve returns the curve the request was built for.
func (r *Request) Curve() *bccsp.Curve { return r.curve }

// Buffer returns the whole exchange buffer. Transports pass it to the card
// unchanged apart from the address fields.
func (r *Request) Buffer() []byte { return r.buf }

// Header decodes the request CPRBX.
func (r *Request) Header() (Header, error) {
	return UnmarshalHeader(r.buf)
}

// ReplyHeader decodes the reply CPRBX.
func (r *Request) ReplyHeader() (Header, error) {
	return UnmarshalHeader(r.buf[ReplyOffset:])
}

// XCRB returns the control block for the buffer located at address base.
func (r *Request) XCRB(base uint64) XCRB {
	parmLen := binary.BigEndian.Uint32(r.buf[offReqParmLen:])
	return XCRB{
		AgentID:            AgentCA,
		UserDefined:        AutoSelect,
		RequestControlLen:  CPRBXSize + parmLen,
		RequestControlAddr: base,
		ReplyControlLen:    binary.BigEndian.Uint32(r.buf[offReplyMsgLen:]),
		ReplyControlAddr:   base + ReplyOffset,
	}
}

// Wipe clears the buffer.
func (r *Request) Wipe() {
	if r != nil {
		bccsp.Wipe(r.buf)
	}
}

// Builder turns key material into coprocessor requests. A nil Domain uses
// the process wide resolver.
type Builder struct {
	Domain *DomainResolver
}

func (b *Builder) domain() uint16 {
	if b == nil || b.Domain == nil {
		return defaultResolver.Domain()
	}
	return b.Domain.Domain()
}

// newRequest allocates the buffer for a request with parmLen bytes of
// parameters and writes its header.
func (b *Builder) newRequest(v Verb, c *bccsp.Curve, parmLen int) (*Request, *parmWriter, error) {
	if !c.HasCCAType {
		return nil, nil, errors.Wrapf(bccsp.ErrUnsupportedCurve, "no coprocessor curve type for %s", c.Name)
	}
	if parmLen > ParmBlockSize {
		return nil, nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s request needs %d parameter bytes, at most %d fit", v, parmLen, ParmBlockSize)
	}
	r := &Request{Verb: v, curve: c, buf: make([]byte, BufferSize)}
	h := newRequestHeader(parmLen, b.domain())
	h.Marshal(r.buf)
	return r, &parmWriter{b: r.buf[CPRBXSize : CPRBXSize+parmLen]}, nil
}

// finish checks that the writer filled exactly the announced parameters.
func finish(r *Request, w *parmWriter, err error) (*Request, error) {
	if err == nil && w.off != len(w.b) {
		err = errors.Errorf("%s request wrote %d of %d parameter bytes", r.Verb, w.off, len(w.b))
	}
	if err != nil {
		r.Wipe()
		return nil, err
	}
	return r, nil
}

// ECDH builds a pass-through ECDH request for priv and the peer point.
// priv.X and priv.Y are ignored; the token carries the peer's point.
func (b *Builder) ECDH(priv, peer *bccsp.ECKey) (*Request, error) {
	c, err := priv.CheckPrivate()
	if err != nil {
		return nil, err
	}
	if _, err := peer.CheckPublic(); err != nil {
		return nil, err
	}
	if peer.Curve != priv.Curve {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "peer key is on %s, private key on %s", peer.Curve, priv.Curve)
	}

	n := c.ByteLen
	r, w, err := b.newRequest(VerbECDH, c, ecdhParmLen()+ecdhKeyBlockLen(n))
	if err != nil {
		return nil, err
	}
	w.verb(VerbECDH, RulePassThru)
	w.bytes(ecdhVUD)
	w.u16(ecdhKeyBlockLen(n))
	put := func(p []byte) (int, error) {
		return putPrivateToken(p, c, UsageKeyAgreement, priv.D, peer.X, peer.Y)
	}
	err = w.token(put)
	if err == nil {
		w.off += putNullKey(w.b[w.off:])
		err = w.token(put)
	}
	for i := 1; err == nil && i < ecdhNullKeySlots; i++ {
		w.off += putNullKey(w.b[w.off:])
	}
	return finish(r, w, err)
}

// Sign builds an ECDSA signature request. key must carry D, X and Y.
func (b *Builder) Sign(key *bccsp.ECKey, hash []byte) (*Request, error) {
	c, err := key.CheckPrivate()
	if err != nil {
		return nil, err
	}
	if !key.HasPublic() {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "coprocessor signing needs the public key")
	}
	if len(hash) == 0 {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}

	n := c.ByteLen
	r, w, err := b.newRequest(VerbSign, c, signParmLen(len(hash))+signKeyBlockLen(n))
	if err != nil {
		return nil, err
	}
	w.verb(VerbSign, RuleECDSA)
	w.u16(len(hash) + 4)
	w.u16(len(hash) + 2)
	w.bytes(hash)
	w.u16(signKeyBlockLen(n))
	err = w.token(func(p []byte) (int, error) {
		return putPrivateToken(p, c, UsageSignature, key.D, key.X, key.Y)
	})
	return finish(r, w, err)
}

// Verify builds an ECDSA verification request. sig is r||s, 2n bytes.
func (b *Builder) Verify(pub *bccsp.ECKey, hash, sig []byte) (*Request, error) {
	c, err := pub.CheckPublic()
	if err != nil {
		return nil, err
	}
	n := c.ByteLen
	if len(sig) != 2*n {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s signature must be %d bytes, got %d", c.Name, 2*n, len(sig))
	}
	if len(hash) == 0 {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}

	r, w, err := b.newRequest(VerbVerify, c, verifyParmLen(len(hash), n)+verifyKeyBlockLen(n))
	if err != nil {
		return nil, err
	}
	w.verb(VerbVerify, RuleECDSA)
	w.u16(2 + (2 + len(hash)) + (2 + 2*n))
	w.u16(2 + len(hash))
	w.bytes(hash)
	w.u16(2 + 2*n)
	w.bytes(sig)
	w.u16(verifyKeyBlockLen(n))
	err = w.token(func(p []byte) (int, error) {
		return putPublicKeyBlock(p, c, pub.X, pub.Y)
	})
	return finish(r, w, err)
}

// KeyGen builds a request for a clear ECDSA key pair on curve id.
func (b *Builder) KeyGen(id bccsp.CurveID) (*Request, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	r, w, err := b.newRequest(VerbKeyGen, c, keyGenParmLen()+keyGenKeyBlockLen())
	if err != nil {
		return nil, err
	}
	w.verb(VerbKeyGen, RuleClear)
	w.u16(2)
	w.u16(keyGenKeyBlockLen())
	err = w.token(func(p []byte) (int, error) { return putKeyGenToken(p, c) })
	if err == nil {
		w.off += putNullToken(w.b[w.off:])
	}
	return finish(r, w, err)
}
