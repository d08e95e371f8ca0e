/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hw runs elliptic curve operations on IBM Z hardware. Each entry
// point tries the CPACF instructions first and falls through to a Crypto
// Express coprocessor when the instructions do not support the curve.
// Software is never tried; callers that want it use package sw.
package hw

import (
	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/bccsp/cpacf"
	"github.com/hyperledger/fabric-ecc/bccsp/sw"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("bccsp_hw")

// Config holds the switches that select tiers.
type Config struct {
	// InstructionsEnabled allows the CPACF tier.
	InstructionsEnabled bool
	// CoprocessorPermitted allows the coprocessor tier.
	CoprocessorPermitted bool
	// OffloadForced sends ECDH, signing and verification straight to the
	// coprocessor.
	OffloadForced bool
}

// Provider is the hardware tier dispatcher. It holds no per-call state and
// may be used concurrently.
type Provider struct {
	config   Config
	cpacf    *cpacf.Adapter
	cca      *cca.Client
	sw       *sw.Library
	recorder Recorder
}

// Option configures a Provider.
type Option func(*Provider)

// WithFacility runs the instruction tier on f instead of the machine.
func WithFacility(f cpacf.Facility) Option {
	return func(p *Provider) { p.cpacf = cpacf.New(f) }
}

// WithDomain makes coprocessor requests use the domain from d.
func WithDomain(d *cca.DomainResolver) Option {
	return func(p *Provider) { p.cca = &cca.Client{Builder: cca.Builder{Domain: d}} }
}

// WithSoftware sets the library used to complete keys for the
// coprocessor.
func WithSoftware(l *sw.Library) Option {
	return func(p *Provider) { p.sw = l }
}

// WithRecorder sets the observer of every operation.
func WithRecorder(r Recorder) Option {
	return func(p *Provider) { p.recorder = r }
}

// New returns a dispatcher configured by c.
func New(c Config, opts ...Option) *Provider {
	p := &Provider{
		config:   c,
		cpacf:    cpacf.New(cpacf.Native()),
		cca:      &cca.Client{},
		sw:       sw.New(),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(p)
	}
	logger.Debugf("hardware tier: instructions %t, coprocessor %t, offload %t",
		c.InstructionsEnabled, c.CoprocessorPermitted, c.OffloadForced)
	return p
}

// Config returns the dispatcher's configuration.
func (p *Provider) Config() Config {
	return p.config
}

// Facility returns the facility of the instruction tier.
func (p *Provider) Facility() cpacf.Facility {
	return p.cpacf.Facility()
}

type tierFunc func() error

// dispatch runs op through the tiers. The instruction tier is tried unless
// disabled; only bccsp.ErrUnsupportedCurve moves on to the coprocessor,
// every other result is final. A nil coprocessor function means the
// operation has no coprocessor path.
func (p *Provider) dispatch(op Op, id bccsp.CurveID, dev cca.Device, instr, coproc tierFunc) (err error) {
	tier := TierNone
	done := p.recorder.Start(op, id)
	defer func() { done(tier, err) }()

	log := logger.ForOperation(string(op), id.String())
	skip := !p.config.InstructionsEnabled || (p.config.OffloadForced && op.offloadable())
	if !skip {
		tier = TierInstruction
		err = instr()
		if !errors.Is(err, bccsp.ErrUnsupportedCurve) {
			return err
		}
		log.Debugf("instruction tier: %s", err)
	}

	if coproc == nil || !p.config.CoprocessorPermitted {
		tier = TierNone
		return errors.Wrapf(bccsp.ErrNoDevice, "%s on %s: no hardware tier available", op, id)
	}
	log.Debugf("trying the coprocessor")
	tier = TierCoprocessor
	if dev == nil || dev == cca.DriverNotLoaded {
		return errors.Wrapf(bccsp.ErrIOFault, "%s on %s: coprocessor driver not loaded", op, id)
	}
	err = coproc()
	if errors.Is(err, bccsp.ErrUnsupportedCurve) {
		tier = TierNone
		return errors.Wrapf(bccsp.ErrNoDevice, "%s on %s: %s", op, id, err)
	}
	return err
}

// ECDH returns the x coordinate of D*peer.
func (p *Provider) ECDH(dev cca.Device, priv, peer *bccsp.ECKey) (z []byte, err error) {
	if _, err := priv.CheckPrivate(); err != nil {
		return nil, err
	}
	if _, err := peer.CheckPublic(); err != nil {
		return nil, err
	}
	if priv.Curve != peer.Curve {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "peer key is on %s, private key on %s", peer.Curve, priv.Curve)
	}

	err = p.dispatch(OpECDH, priv.Curve, dev,
		func() (err error) {
			c, _ := bccsp.Describe(priv.Curve)
			if c.Family != bccsp.Weierstrass {
				return errors.Wrapf(bccsp.ErrUnsupportedCurve, "no ECDH on %s", c.Name)
			}
			z, _, err = p.cpacf.PointMultiply(priv.Curve, priv.D, peer.X, peer.Y)
			return err
		},
		func() (err error) {
			z, err = p.cca.ECDH(dev, priv, peer)
			return err
		})
	if err != nil {
		return nil, err
	}
	return z, nil
}

// ECDSASign signs hash with priv. The instruction tier draws its own random
// value.
func (p *Provider) ECDSASign(dev cca.Device, priv *bccsp.ECKey, hash []byte) ([]byte, error) {
	return p.ECDSASignWithRandom(dev, priv, hash, nil)
}

// ECDSASignWithRandom signs hash with priv, taking the per-attempt random
// value from rnd on the instruction tier. The coprocessor always uses its
// own randomness.
func (p *Provider) ECDSASignWithRandom(dev cca.Device, priv *bccsp.ECKey, hash []byte, rnd cpacf.RandomSource) (sig []byte, err error) {
	if _, err := priv.CheckPrivate(); err != nil {
		return nil, err
	}
	if len(hash) == 0 {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}

	err = p.dispatch(OpSign, priv.Curve, dev,
		func() (err error) {
			sig, err = p.cpacf.ECDSASign(priv, hash, rnd)
			return err
		},
		func() (err error) {
			key := priv
			if !priv.HasPublic() {
				pub, err := p.sw.DefaultMethod().PublicKey(priv)
				if err != nil {
					return err
				}
				key = &bccsp.ECKey{Curve: priv.Curve, D: priv.D, X: pub.X, Y: pub.Y}
			}
			sig, err = p.cca.Sign(dev, key, hash)
			return err
		})
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// ECDSAVerify checks the r||s signature sig of hash.
func (p *Provider) ECDSAVerify(dev cca.Device, pub *bccsp.ECKey, hash, sig []byte) error {
	if _, err := pub.CheckPublic(); err != nil {
		return err
	}
	if len(hash) == 0 {
		return errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}
	return p.dispatch(OpVerify, pub.Curve, dev,
		func() error { return p.cpacf.ECDSAVerify(pub, hash, sig) },
		func() error { return p.cca.Verify(dev, pub, hash, sig) })
}

// GenerateKey returns a fresh key pair on curve id. Forced offload does not
// apply to key generation.
func (p *Provider) GenerateKey(dev cca.Device, id bccsp.CurveID) (key *bccsp.ECKey, err error) {
	if _, err := bccsp.Describe(id); err != nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s", err)
	}
	err = p.dispatch(OpGenerateKey, id, dev,
		func() (err error) {
			key, err = p.cpacf.GenerateKey(id)
			return err
		},
		func() (err error) {
			key, err = p.cca.GenerateKey(dev, id)
			return err
		})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// instructionOnly runs an entry point that has no coprocessor path.
func (p *Provider) instructionOnly(op Op, id bccsp.CurveID, f func() ([]byte, error)) (out []byte, err error) {
	err = p.dispatch(op, id, nil, func() (err error) {
		out, err = f()
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// X25519 returns the RFC 7748 shared secret of priv and the peer's u
// coordinate.
func (p *Provider) X25519(priv, peer []byte) ([]byte, error) {
	return p.instructionOnly(OpX25519, bccsp.X25519, func() ([]byte, error) {
		return p.cpacf.LadderMultiply(bccsp.X25519, priv, peer)
	})
}

// X448 returns the RFC 7748 shared secret of priv and the peer's u
// coordinate.
func (p *Provider) X448(priv, peer []byte) ([]byte, error) {
	return p.instructionOnly(OpX448, bccsp.X448, func() ([]byte, error) {
		return p.cpacf.LadderMultiply(bccsp.X448, priv, peer)
	})
}

// X25519DerivePublic returns the public value of an X25519 private key.
func (p *Provider) X25519DerivePublic(priv []byte) ([]byte, error) {
	return p.instructionOnly(OpX25519Derive, bccsp.X25519, func() ([]byte, error) {
		return p.cpacf.X25519DerivePublic(priv)
	})
}

// X448DerivePublic returns the public value of an X448 private key.
func (p *Provider) X448DerivePublic(priv []byte) ([]byte, error) {
	return p.instructionOnly(OpX448Derive, bccsp.X448, func() ([]byte, error) {
		return p.cpacf.X448DerivePublic(priv)
	})
}

// Ed25519DerivePublic returns the public key of an Ed25519 seed.
func (p *Provider) Ed25519DerivePublic(seed []byte) ([]byte, error) {
	return p.instructionOnly(OpEd25519Derive, bccsp.Ed25519, func() ([]byte, error) {
		return p.cpacf.Ed25519DerivePublic(seed)
	})
}

// Ed448DerivePublic returns the public key of an Ed448 seed.
func (p *Provider) Ed448DerivePublic(seed []byte) ([]byte, error) {
	return p.instructionOnly(OpEd448Derive, bccsp.Ed448, func() ([]byte, error) {
		return p.cpacf.Ed448DerivePublic(seed)
	})
}
