/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ccasim is a Crypto Express card in software. It decodes requests
// with the same codec the host uses, executes them with the Go crypto
// packages and answers in the card's reply format.
package ccasim

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/big"
	"sync"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("bccsp_ccasim")

// Card implements cca.Device. The zero value is not usable; use New.
type Card struct {
	mu sync.Mutex

	curves        map[bccsp.CurveID]bool
	status        *[2]uint16
	corruptLength bool
	sendErr       error
	random        io.Reader

	calls   int
	domains []uint16
}

// Option configures a Card.
type Option func(*Card)

// WithCurves restricts the card to the given curves. Requests for other
// curves are answered with return code 8, reason 874.
func WithCurves(ids ...bccsp.CurveID) Option {
	return func(c *Card) {
		c.curves = map[bccsp.CurveID]bool{}
		for _, id := range ids {
			c.curves[id] = true
		}
	}
}

// WithStatus makes every reply carry the given return and reason codes
// instead of a result.
func WithStatus(returnCode, reasonCode uint16) Option {
	return func(c *Card) { c.status = &[2]uint16{returnCode, reasonCode} }
}

// WithCorruptLength makes the card misstate the length word that the host
// checks against the curve.
func WithCorruptLength() Option {
	return func(c *Card) { c.corruptLength = true }
}

// WithSendError makes SendCPRB fail with err without touching the buffer.
func WithSendError(err error) Option {
	return func(c *Card) { c.sendErr = err }
}

// WithRandom sets the randomness used for signatures and key generation.
func WithRandom(r io.Reader) Option {
	return func(c *Card) { c.random = r }
}

// New returns a card that supports every curve with a coprocessor type.
func New(opts ...Option) *Card {
	c := &Card{random: rand.Reader}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Calls returns the number of requests the card received.
func (c *Card) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Domains returns the usage domain of every request received.
func (c *Card) Domains() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.domains...)
}

func (c *Card) supports(id bccsp.CurveID) bool {
	return c.curves == nil || c.curves[id]
}

// SendCPRB executes r and writes the reply into its buffer. Malformed
// requests are a transport failure, as the driver would reject them.
func (c *Card) SendCPRB(r *cca.Request) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.sendErr != nil {
		return c.sendErr
	}
	buf := r.Buffer()
	call, err := cca.ParseCall(buf)
	if err != nil {
		logger.Warningf("rejecting malformed request: %s", err)
		return err
	}
	defer func() {
		if call.Key != nil {
			bccsp.Wipe(call.Key.D)
		}
	}()

	c.mu.Lock()
	c.domains = append(c.domains, call.Domain)
	c.mu.Unlock()

	logger.Debugf("executing %s on %s", call.Verb, call.Curve.Name)
	switch {
	case c.status != nil:
		cca.WriteStatus(buf, call.Verb, c.status[0], c.status[1])
		return nil
	case !c.supports(call.Curve.ID):
		cca.WriteStatus(buf, call.Verb, cca.ReturnError, cca.ReasonBadCurve)
		return nil
	}

	switch call.Verb {
	case cca.VerbECDH:
		err = c.ecdh(buf, call)
	case cca.VerbSign:
		err = c.sign(buf, call)
	case cca.VerbVerify:
		c.verify(buf, call)
	case cca.VerbKeyGen:
		err = c.generate(buf, call.Curve)
	}
	if err != nil {
		logger.Debugf("%s failed: %s", call.Verb, err)
		cca.WriteStatus(buf, call.Verb, cca.ReturnError, 0)
		return nil
	}
	if c.corruptLength {
		if off := cca.ReplyLengthField(call.Verb); off >= 0 {
			p := buf[cca.ReplyOffset+cca.CPRBXSize+off:]
			binary.BigEndian.PutUint16(p, binary.BigEndian.Uint16(p)+1)
		}
	}
	return nil
}

func ecdhCurve(id bccsp.CurveID) ecdh.Curve {
	switch id {
	case bccsp.P256:
		return ecdh.P256()
	case bccsp.P384:
		return ecdh.P384()
	case bccsp.P521:
		return ecdh.P521()
	}
	return nil
}

func (c *Card) ecdh(buf []byte, call *cca.Call) error {
	curve := ecdhCurve(call.Curve.ID)
	if curve == nil {
		return errors.Errorf("no key agreement on %s", call.Curve.Name)
	}
	priv, err := curve.NewPrivateKey(call.Key.D)
	if err != nil {
		return err
	}
	point := append([]byte{cca.UncompressedMarker}, call.Key.X...)
	pub, err := curve.NewPublicKey(append(point, call.Key.Y...))
	if err != nil {
		return err
	}
	z, err := priv.ECDH(pub)
	if err != nil {
		return err
	}
	defer bccsp.Wipe(z)
	cca.WriteECDHReply(buf, z)
	return nil
}

func ecdsaKey(call *cca.Call) *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: call.Curve.Elliptic(),
		X:     new(big.Int).SetBytes(call.Key.X),
		Y:     new(big.Int).SetBytes(call.Key.Y),
	}
}

func (c *Card) sign(buf []byte, call *cca.Call) error {
	priv := &ecdsa.PrivateKey{PublicKey: *ecdsaKey(call), D: new(big.Int).SetBytes(call.Key.D)}
	defer priv.D.SetInt64(0)
	r, s, err := ecdsa.Sign(c.random, priv, call.Hash)
	if err != nil {
		return err
	}
	n := call.Curve.ByteLen
	sig := make([]byte, 2*n)
	r.FillBytes(sig[:n])
	s.FillBytes(sig[n:])
	cca.WriteSignReply(buf, sig)
	return nil
}

func (c *Card) verify(buf []byte, call *cca.Call) {
	n := call.Curve.ByteLen
	r := new(big.Int).SetBytes(call.Signature[:n])
	s := new(big.Int).SetBytes(call.Signature[n:])
	if !ecdsa.Verify(ecdsaKey(call), call.Hash, r, s) {
		cca.WriteStatus(buf, cca.VerbVerify, cca.ReturnWarning, cca.ReasonBadSig)
		return
	}
	cca.WriteStatus(buf, cca.VerbVerify, cca.ReturnOK, 0)
}

func (c *Card) generate(buf []byte, curve *bccsp.Curve) error {
	priv, err := ecdsa.GenerateKey(curve.Elliptic(), c.random)
	if err != nil {
		return err
	}
	n := curve.ByteLen
	key := &bccsp.ECKey{
		Curve: curve.ID,
		D:     priv.D.FillBytes(make([]byte, n)),
		X:     priv.X.FillBytes(make([]byte, n)),
		Y:     priv.Y.FillBytes(make([]byte, n)),
	}
	defer key.Wipe()
	priv.D.SetInt64(0)
	return cca.WriteKeyGenReply(buf, key)
}
