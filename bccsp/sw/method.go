/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sw

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/sha512"
	"io"
	"math/big"

	"filippo.io/edwards25519"
	"github.com/cloudflare/circl/dh/x448"
	"github.com/cloudflare/circl/sign/ed448"
	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"
)

// Method is a table of elliptic curve primitives. The library's own table
// runs on the Go crypto packages; a provider built on this package may be
// installed in its place with Library.SetMethod.
type Method interface {
	Sign(key *bccsp.ECKey, hash []byte) ([]byte, error)
	Verify(pub *bccsp.ECKey, hash, sig []byte) error
	DeriveSharedSecret(priv, peer *bccsp.ECKey) ([]byte, error)
	GenerateKeyPair(id bccsp.CurveID) (*bccsp.ECKey, error)
	PublicKey(priv *bccsp.ECKey) (*bccsp.ECKey, error)
	DerivePublic(id bccsp.CurveID, priv []byte) ([]byte, error)
}

// goMethod implements Method with crypto/ecdsa, crypto/ecdh, x/crypto,
// circl and edwards25519.
type goMethod struct {
	random io.Reader
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

func ecdsaPublic(c *bccsp.Curve, x, y []byte) *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: c.Elliptic(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
}

func weierstrass(c *bccsp.Curve, op string) error {
	if c.Family != bccsp.Weierstrass {
		return errors.Wrapf(bccsp.ErrInvalidArgument, "no %s on %s", op, c.Name)
	}
	return nil
}

func (m *goMethod) Sign(key *bccsp.ECKey, hash []byte) ([]byte, error) {
	c, err := key.CheckPrivate()
	if err != nil {
		return nil, err
	}
	if err := weierstrass(c, "ECDSA"); err != nil {
		return nil, err
	}
	full := key
	if !key.HasPublic() {
		if full, err = m.PublicKey(key); err != nil {
			return nil, err
		}
	}
	priv := &ecdsa.PrivateKey{PublicKey: *ecdsaPublic(c, full.X, full.Y), D: new(big.Int).SetBytes(key.D)}
	defer priv.D.SetInt64(0)

	r, s, err := ecdsa.Sign(m.random, priv, hash)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "%s signature: %s", c.Name, err)
	}
	n := c.ByteLen
	sig := make([]byte, 2*n)
	r.FillBytes(sig[:n])
	s.FillBytes(sig[n:])
	return sig, nil
}

func (m *goMethod) Verify(pub *bccsp.ECKey, hash, sig []byte) error {
	c, err := pub.CheckPublic()
	if err != nil {
		return err
	}
	if err := weierstrass(c, "ECDSA"); err != nil {
		return err
	}
	n := c.ByteLen
	if len(sig) != 2*n {
		return errors.Wrapf(bccsp.ErrInvalidArgument, "signature is %d bytes, %s needs %d", len(sig), c.Name, 2*n)
	}
	r := new(big.Int).SetBytes(sig[:n])
	s := new(big.Int).SetBytes(sig[n:])
	if !ecdsa.Verify(ecdsaPublic(c, pub.X, pub.Y), hash, r, s) {
		return errors.Wrapf(bccsp.ErrInvalidSignature, "%s signature does not verify", c.Name)
	}
	return nil
}

func (m *goMethod) DeriveSharedSecret(priv, peer *bccsp.ECKey) ([]byte, error) {
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

	switch c.ID {
	case bccsp.X25519:
		z, err := curve25519.X25519(priv.D, peer.X)
		if err != nil {
			return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "X25519: %s", err)
		}
		return z, nil
	case bccsp.X448:
		var z, sk, pk x448.Key
		defer bccsp.Wipe(sk[:])
		copy(sk[:], priv.D)
		copy(pk[:], peer.X)
		if !x448.Shared(&z, &sk, &pk) {
			return nil, errors.Wrap(bccsp.ErrInvalidArgument, "X448 peer value of low order")
		}
		return z[:], nil
	}

	curve := ecdhCurve(c.ID)
	if curve == nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "no key agreement on %s", c.Name)
	}
	sk, err := curve.NewPrivateKey(priv.D)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s private key: %s", c.Name, err)
	}
	pk, err := curve.NewPublicKey(uncompressed(peer.X, peer.Y))
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s peer key: %s", c.Name, err)
	}
	z, err := sk.ECDH(pk)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s key agreement: %s", c.Name, err)
	}
	return z, nil
}

func uncompressed(x, y []byte) []byte {
	p := make([]byte, 0, 1+len(x)+len(y))
	p = append(p, 0x04)
	p = append(p, x...)
	return append(p, y...)
}

func (m *goMethod) GenerateKeyPair(id bccsp.CurveID) (*bccsp.ECKey, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	if c.Family == bccsp.Weierstrass {
		priv, err := ecdsa.GenerateKey(c.Elliptic(), m.random)
		if err != nil {
			return nil, errors.Wrapf(bccsp.ErrIOFault, "%s key generation: %s", c.Name, err)
		}
		n := c.ByteLen
		key := &bccsp.ECKey{
			Curve: id,
			D:     priv.D.FillBytes(make([]byte, n)),
			X:     priv.X.FillBytes(make([]byte, n)),
			Y:     priv.Y.FillBytes(make([]byte, n)),
		}
		priv.D.SetInt64(0)
		return key, nil
	}

	key := &bccsp.ECKey{Curve: id, D: make([]byte, c.ByteLen)}
	if _, err := io.ReadFull(m.random, key.D); err != nil {
		return nil, errors.Wrapf(bccsp.ErrIOFault, "%s key generation: %s", c.Name, err)
	}
	if key.X, err = m.DerivePublic(id, key.D); err != nil {
		key.Wipe()
		return nil, err
	}
	return key, nil
}

func (m *goMethod) PublicKey(priv *bccsp.ECKey) (*bccsp.ECKey, error) {
	c, err := priv.CheckPrivate()
	if err != nil {
		return nil, err
	}
	if c.Family != bccsp.Weierstrass {
		x, err := m.DerivePublic(c.ID, priv.D)
		if err != nil {
			return nil, err
		}
		return &bccsp.ECKey{Curve: c.ID, X: x}, nil
	}

	sk, err := ecdhCurve(c.ID).NewPrivateKey(priv.D)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s private key: %s", c.Name, err)
	}
	q := sk.PublicKey().Bytes()
	n := c.ByteLen
	return &bccsp.ECKey{
		Curve: c.ID,
		X:     append([]byte(nil), q[1:1+n]...),
		Y:     append([]byte(nil), q[1+n:]...),
	}, nil
}

func (m *goMethod) DerivePublic(id bccsp.CurveID, priv []byte) ([]byte, error) {
	c, err := bccsp.Describe(id)
	if err != nil {
		return nil, err
	}
	if len(priv) != c.ByteLen {
		return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s private value is %d bytes, needs %d", c.Name, len(priv), c.ByteLen)
	}

	switch id {
	case bccsp.X25519:
		pub, err := curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "X25519: %s", err)
		}
		return pub, nil
	case bccsp.X448:
		var pk, sk x448.Key
		defer bccsp.Wipe(sk[:])
		copy(sk[:], priv)
		x448.KeyGen(&pk, &sk)
		return pk[:], nil
	case bccsp.Ed25519:
		h := sha512.Sum512(priv)
		defer bccsp.Wipe(h[:])
		s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
		if err != nil {
			return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "Ed25519: %s", err)
		}
		return new(edwards25519.Point).ScalarBaseMult(s).Bytes(), nil
	case bccsp.Ed448:
		sk := ed448.NewKeyFromSeed(priv)
		defer bccsp.Wipe(sk)
		return append([]byte(nil), sk.Public().(ed448.PublicKey)...), nil
	}
	return nil, errors.Wrapf(bccsp.ErrInvalidArgument, "%s has no encoded public value", c.Name)
}
