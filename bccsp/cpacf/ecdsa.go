/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"crypto/rand"
	"math/big"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
)

// RandomSource fills b with the random value of one deterministic signing
// attempt.
type RandomSource func(b []byte)

// ECDSASign signs hash with the private scalar of key. With a nil rnd the
// instruction draws its own random value and runs once. Otherwise it runs
// in deterministic mode and rnd supplies the random value, again for every
// attempt the instruction rejects. The signature is r||s, each ByteLen
// bytes.
func (a *Adapter) ECDSASign(key *bccsp.ECKey, hash []byte, rnd RandomSource) ([]byte, error) {
	if key == nil {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "nil key")
	}
	c, err := bccsp.Describe(key.Curve)
	if err != nil {
		return nil, err
	}
	fc, err := a.functionCode(c, KDSA, bccsp.OpECDSASign)
	if err != nil {
		return nil, err
	}
	if _, err := key.CheckPrivate(); err != nil {
		return nil, err
	}
	if len(hash) == 0 {
		return nil, errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}

	p := newParamBlock(c)
	defer p.wipe()

	p.putHash(kdsaHash, hash)
	p.put(kdsaKey, key.D)

	if rnd != nil {
		fc |= DeterministicFlag
	}
	for {
		if rnd != nil {
			rnd(p.value(kdsaAux))
		}
		cc := a.facility.KDSA(fc, p.buf)
		if cc == CCRetry && rnd != nil {
			continue
		}
		if cc != CCSuccess {
			return nil, errors.Wrapf(bccsp.ErrIOFault, "KDSA function %d ended with condition code %d", fc, cc)
		}
		break
	}

	sig := make([]byte, 2*c.ByteLen)
	copy(sig, p.value(kdsaSigR))
	copy(sig[c.ByteLen:], p.value(kdsaSigS))
	return sig, nil
}

// ECDSAVerify checks the r||s signature sig of hash under the public key.
// A signature the instruction rejects yields bccsp.ErrInvalidSignature.
func (a *Adapter) ECDSAVerify(key *bccsp.ECKey, hash, sig []byte) error {
	if key == nil {
		return errors.Wrap(bccsp.ErrInvalidArgument, "nil key")
	}
	c, err := bccsp.Describe(key.Curve)
	if err != nil {
		return err
	}
	fc, err := a.functionCode(c, KDSA, bccsp.OpECDSAVerify)
	if err != nil {
		return err
	}
	if _, err := key.CheckPublic(); err != nil {
		return err
	}
	if len(hash) == 0 {
		return errors.Wrap(bccsp.ErrInvalidArgument, "empty hash")
	}
	if len(sig) != 2*c.ByteLen {
		return errors.Wrapf(bccsp.ErrInvalidArgument, "signature is %d bytes, %s needs %d", len(sig), c.Name, 2*c.ByteLen)
	}

	p := newParamBlock(c)
	defer p.wipe()

	p.putHash(kdsaHash, hash)
	p.put(kdsaSigR, sig[:c.ByteLen])
	p.put(kdsaSigS, sig[c.ByteLen:])
	p.put(kdsaKey, key.X)
	p.put(kdsaAux, key.Y)

	if cc := a.facility.KDSA(fc, p.buf); cc != CCSuccess {
		return errors.Wrapf(bccsp.ErrInvalidSignature, "KDSA function %d ended with condition code %d", fc, cc)
	}
	return nil
}

// GenerateKey draws a private scalar uniformly from [1, n) and computes the
// public point with the PCC scalar multiplication. Only the Weierstrass
// curves are supported.
func (a *Adapter) GenerateKey(id bccsp.CurveID) (*bccsp.ECKey, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	if c.Family != bccsp.Weierstrass {
		return nil, errors.Wrapf(bccsp.ErrUnsupportedCurve, "no key generation for %s", c.Name)
	}
	if _, err := a.functionCode(c, PCC, bccsp.OpScalarMultiply); err != nil {
		return nil, err
	}

	max := new(big.Int).Sub(c.Order(), big.NewInt(1))
	d, err := rand.Int(a.random, max)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "drawing private scalar: %s", err)
	}
	d.Add(d, big.NewInt(1))

	key := &bccsp.ECKey{Curve: id, D: d.FillBytes(make([]byte, c.ByteLen))}
	d.SetInt64(0)

	bx, by := c.BasePoint()
	key.X, key.Y, err = a.PointMultiply(id, key.D, bx, by)
	if err != nil {
		key.Wipe()
		return nil, err
	}
	return key, nil
}
