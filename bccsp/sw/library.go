/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sw

import (
	"crypto/fips140"
	"crypto/rand"
	"io"
	"sync"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("bccsp_sw")

type operation int

const (
	opSign operation = iota
	opVerify
	opDerive
	opKeyGen
	opPublicKey
	opDerivePublic
)

var opNames = map[operation]string{
	opSign:         "sign",
	opVerify:       "verify",
	opDerive:       "derive shared secret",
	opKeyGen:       "generate key pair",
	opPublicKey:    "public key",
	opDerivePublic: "derive public",
}

// supported lists the curves the Go crypto packages handle per operation.
var supported = map[operation][]bccsp.CurveID{
	opSign:         {bccsp.P256, bccsp.P384, bccsp.P521},
	opVerify:       {bccsp.P256, bccsp.P384, bccsp.P521},
	opDerive:       {bccsp.P256, bccsp.P384, bccsp.P521, bccsp.X25519, bccsp.X448},
	opKeyGen:       bccsp.Curves(),
	opPublicKey:    bccsp.Curves(),
	opDerivePublic: {bccsp.X25519, bccsp.X448, bccsp.Ed25519, bccsp.Ed448},
}

// Library is the software tier. Every operation checks the curve and the
// FIPS policy first and then runs on the library's default method, whatever
// method is installed with SetMethod.
type Library struct {
	// FIPS requires the Go crypto module to run in FIPS 140 mode.
	FIPS bool

	fipsMode func() bool
	def      Method

	mu       sync.RWMutex
	override Method
}

// Option configures a Library.
type Option func(*Library)

// WithRandom sets the randomness for signatures and key generation.
func WithRandom(r io.Reader) Option {
	return func(l *Library) { l.def = &goMethod{random: r} }
}

// WithFIPS sets the FIPS flag.
func WithFIPS(enabled bool) Option {
	return func(l *Library) { l.FIPS = enabled }
}

// WithFIPSProbe replaces the check that reports whether the crypto module
// runs in FIPS mode.
func WithFIPSProbe(probe func() bool) Option {
	return func(l *Library) { l.fipsMode = probe }
}

// New returns the software tier.
func New(opts ...Option) *Library {
	l := &Library{
		fipsMode: fips140.Enabled,
		def:      &goMethod{random: rand.Reader},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// DefaultMethod returns the method backed by the Go crypto packages.
func (l *Library) DefaultMethod() Method {
	return l.def
}

// SetMethod installs m as the library's method for other consumers. The
// operations of the Library itself never use it. A nil m removes the
// override.
func (l *Library) SetMethod(m Method) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override = m
}

// Method returns the installed method, or the default method when none is
// installed.
func (l *Library) Method() Method {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.override != nil {
		return l.override
	}
	return l.def
}

// FIPSMode reports whether the crypto module runs in FIPS mode.
func (l *Library) FIPSMode() bool {
	return l.fipsMode()
}

// begin checks that op can run on curve id and returns the method to run
// it on.
func (l *Library) begin(op operation, id bccsp.CurveID) (Method, error) {
	known := false
	for _, s := range supported[op] {
		known = known || s == id
	}
	if !known {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "software %s does not support curve %s", opNames[op], id)
	}
	if l.FIPS && !l.fipsMode() {
		logger.Warningf("refusing software %s on %s: FIPS mode required but not active", opNames[op], id)
		return nil, errors.Wrapf(bccsp.ErrPermissionDenied, "software %s on %s", opNames[op], id)
	}
	return l.DefaultMethod(), nil
}

func curveOf(k *bccsp.ECKey) bccsp.CurveID {
	if k == nil {
		return 0
	}
	return k.Curve
}

// Sign returns the r||s ECDSA signature of hash. Missing public
// coordinates are computed from D.
func (l *Library) Sign(key *bccsp.ECKey, hash []byte) ([]byte, error) {
	m, err := l.begin(opSign, curveOf(key))
	if err != nil {
		return nil, err
	}
	if len(hash) == 0 {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}
	return m.Sign(key, hash)
}

// Verify checks the r||s ECDSA signature of hash.
func (l *Library) Verify(pub *bccsp.ECKey, hash, sig []byte) error {
	m, err := l.begin(opVerify, curveOf(pub))
	if err != nil {
		return err
	}
	if len(hash) == 0 {
		return errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}
	return m.Verify(pub, hash, sig)
}

// DeriveSharedSecret returns the ECDH shared secret, the x coordinate for
// the NIST curves and the RFC 7748 value for X25519 and X448.
func (l *Library) DeriveSharedSecret(priv, peer *bccsp.ECKey) ([]byte, error) {
	m, err := l.begin(opDerive, curveOf(priv))
	if err != nil {
		return nil, err
	}
	return m.DeriveSharedSecret(priv, peer)
}

// GenerateKeyPair returns a fresh key pair on curve id.
func (l *Library) GenerateKeyPair(id bccsp.CurveID) (*bccsp.ECKey, error) {
	m, err := l.begin(opKeyGen, id)
	if err != nil {
		return nil, err
	}
	return m.GenerateKeyPair(id)
}

// PublicKey returns the public half of priv, computed from D.
func (l *Library) PublicKey(priv *bccsp.ECKey) (*bccsp.ECKey, error) {
	m, err := l.begin(opPublicKey, curveOf(priv))
	if err != nil {
		return nil, err
	}
	return m.PublicKey(priv)
}

// DerivePublic returns the encoded public value of an X25519, X448, Ed25519
// or Ed448 private value.
func (l *Library) DerivePublic(id bccsp.CurveID, priv []byte) ([]byte, error) {
	m, err := l.begin(opDerivePublic, id)
	if err != nil {
		return nil, err
	}
	return m.DerivePublic(id, priv)
}
