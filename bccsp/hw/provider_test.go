/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hw_test

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/bccsp/cca/ccasim"
	"github.com/hyperledger/fabric-ecc/bccsp/cpacf"
	"github.com/hyperledger/fabric-ecc/bccsp/hw"
	"github.com/hyperledger/fabric-ecc/bccsp/mocks"
	"github.com/hyperledger/fabric-ecc/bccsp/sw"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nistCurves = []bccsp.CurveID{bccsp.P256, bccsp.P384, bccsp.P521}

var allTiers = hw.Config{InstructionsEnabled: true, CoprocessorPermitted: true}

func unhex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func newProvider(t *testing.T, c hw.Config, f cpacf.Facility, opts ...hw.Option) (*hw.Provider, *mocks.Recorder) {
	rec := &mocks.Recorder{}
	opts = append([]hw.Option{
		hw.WithFacility(f),
		hw.WithDomain(&cca.DomainResolver{Path: filepath.Join(t.TempDir(), "ap_domain")}),
		hw.WithRecorder(rec),
	}, opts...)
	return hw.New(c, opts...), rec
}

func TestECDHAgreesAcrossTiers(t *testing.T) {
	soft := sw.New()
	card := ccasim.New()
	instr, _ := newProvider(t, hw.Config{InstructionsEnabled: true}, cpacf.NewEmulator())
	offload, rec := newProvider(t, hw.Config{InstructionsEnabled: true, CoprocessorPermitted: true, OffloadForced: true}, cpacf.NewEmulator())

	for _, id := range nistCurves {
		t.Run(id.String(), func(t *testing.T) {
			a, err := soft.GenerateKeyPair(id)
			require.NoError(t, err)
			b, err := soft.GenerateKeyPair(id)
			require.NoError(t, err)

			want, err := soft.DeriveSharedSecret(a, b.Public())
			require.NoError(t, err)

			z, err := instr.ECDH(nil, a, b.Public())
			require.NoError(t, err)
			assert.Equal(t, want, z)

			calls := card.Calls()
			z, err = offload.ECDH(card, b, a.Public())
			require.NoError(t, err)
			assert.Equal(t, want, z)
			assert.Equal(t, calls+1, card.Calls())
			assert.Equal(t, hw.TierCoprocessor, rec.Last().Tier)
		})
	}
}

func TestSignaturesVerifyAcrossTiers(t *testing.T) {
	soft := sw.New()
	card := ccasim.New()
	p, rec := newProvider(t, allTiers, cpacf.NewEmulator())
	offload, _ := newProvider(t, hw.Config{CoprocessorPermitted: true, OffloadForced: true, InstructionsEnabled: true}, cpacf.NewEmulator())
	hash := sha256.Sum256([]byte("tiers"))

	for _, id := range nistCurves {
		t.Run(id.String(), func(t *testing.T) {
			key, err := p.GenerateKey(card, id)
			require.NoError(t, err)
			assert.Equal(t, hw.TierInstruction, rec.Last().Tier)

			sig, err := p.ECDSASign(card, key, hash[:])
			require.NoError(t, err)
			require.NoError(t, soft.Verify(key.Public(), hash[:], sig))
			require.NoError(t, offload.ECDSAVerify(card, key.Public(), hash[:], sig))

			sig, err = offload.ECDSASign(card, key, hash[:])
			require.NoError(t, err)
			require.NoError(t, p.ECDSAVerify(card, key.Public(), hash[:], sig))

			sig, err = soft.Sign(key, hash[:])
			require.NoError(t, err)
			require.NoError(t, p.ECDSAVerify(card, key.Public(), hash[:], sig))

			for i := 0; i < len(sig)*8; i += 13 {
				bad := append([]byte(nil), sig...)
				bad[i/8] ^= 1 << (i % 8)
				assert.ErrorIs(t, p.ECDSAVerify(card, key.Public(), hash[:], bad), bccsp.ErrInvalidSignature, "bit %d", i)
				assert.ErrorIs(t, offload.ECDSAVerify(card, key.Public(), hash[:], bad), bccsp.ErrInvalidSignature, "bit %d", i)
			}
		})
	}
}

func TestFallthroughToCoprocessor(t *testing.T) {
	card := ccasim.New()
	p, rec := newProvider(t, allTiers, cpacf.NewEmulator().WithoutCurve(bccsp.P384))
	hash := sha256.Sum256([]byte("fallthrough"))

	key, err := p.GenerateKey(card, bccsp.P384)
	require.NoError(t, err)
	assert.Equal(t, 1, card.Calls())
	assert.Equal(t, hw.TierCoprocessor, rec.Last().Tier)

	// a private key without its public point is completed in software
	sig, err := p.ECDSASign(card, &bccsp.ECKey{Curve: bccsp.P384, D: key.D}, hash[:])
	require.NoError(t, err)
	require.NoError(t, p.ECDSAVerify(card, key.Public(), hash[:], sig))
	assert.Equal(t, 3, card.Calls())

	peer, err := sw.New().GenerateKeyPair(bccsp.P384)
	require.NoError(t, err)
	z, err := p.ECDH(card, key, peer.Public())
	require.NoError(t, err)
	want, err := sw.New().DeriveSharedSecret(peer, key.Public())
	require.NoError(t, err)
	assert.Equal(t, want, z)

	// curves the instructions handle never reach the card
	_, err = p.GenerateKey(card, bccsp.P256)
	require.NoError(t, err)
	assert.Equal(t, 4, card.Calls())
}

func TestNoDevice(t *testing.T) {
	card := ccasim.New()
	key, err := sw.New().GenerateKeyPair(bccsp.P521)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("nothing"))

	t.Run("CoprocessorNotPermitted", func(t *testing.T) {
		p, rec := newProvider(t, hw.Config{InstructionsEnabled: true}, cpacf.NewEmulator().WithoutCurve(bccsp.P521))
		_, err := p.ECDSASign(card, key, hash[:])
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		assert.Equal(t, hw.TierNone, rec.Last().Tier)
		assert.Zero(t, card.Calls())
	})

	t.Run("EverythingDisabled", func(t *testing.T) {
		p, _ := newProvider(t, hw.Config{}, cpacf.NewEmulator())
		_, err := p.GenerateKey(card, bccsp.P521)
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		_, err = p.X25519DerivePublic(make([]byte, 32))
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		assert.Zero(t, card.Calls())
	})

	t.Run("UnsupportedByBothTiers", func(t *testing.T) {
		p, _ := newProvider(t, allTiers, cpacf.NewEmulator())
		ed, err := sw.New().GenerateKeyPair(bccsp.Ed25519)
		require.NoError(t, err)
		_, err = p.ECDSASign(card, ed, hash[:])
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		_, err = p.GenerateKey(card, bccsp.X448)
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
	})

	t.Run("CardWithoutCurve", func(t *testing.T) {
		small := ccasim.New(ccasim.WithCurves(bccsp.P256))
		p, _ := newProvider(t, allTiers, cpacf.NewEmulator().WithoutCurve(bccsp.P521))
		_, err := p.ECDSASign(small, key, hash[:])
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		assert.Equal(t, 1, small.Calls())
	})

	t.Run("InstructionOnlyEntryPoints", func(t *testing.T) {
		f := cpacf.NewEmulator().WithoutCurve(bccsp.X25519).WithoutCurve(bccsp.Ed448)
		p, rec := newProvider(t, allTiers, f)
		_, err := p.X25519(make([]byte, 32), make([]byte, 32))
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		_, err = p.Ed448DerivePublic(make([]byte, 57))
		assert.ErrorIs(t, err, bccsp.ErrNoDevice)
		assert.Equal(t, hw.OpEd448Derive, rec.Last().Op)
	})
}

func TestDriverNotLoaded(t *testing.T) {
	key, err := sw.New().GenerateKeyPair(bccsp.P256)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("driver"))
	p, rec := newProvider(t, hw.Config{InstructionsEnabled: true, CoprocessorPermitted: true, OffloadForced: true}, cpacf.NewEmulator())

	for _, dev := range []cca.Device{nil, cca.DriverNotLoaded} {
		_, err := p.ECDSASign(dev, key, hash[:])
		assert.ErrorIs(t, err, bccsp.ErrIOFault)
		assert.Equal(t, hw.TierCoprocessor, rec.Last().Tier)
		_, err = p.ECDH(dev, key, key.Public())
		assert.ErrorIs(t, err, bccsp.ErrIOFault)
	}

	// key generation ignores offload and never needs the device
	_, err = p.GenerateKey(nil, bccsp.P256)
	assert.NoError(t, err)
	assert.Equal(t, hw.TierInstruction, rec.Last().Tier)
}

func TestCoprocessorFailuresAreTerminal(t *testing.T) {
	key, err := sw.New().GenerateKeyPair(bccsp.P256)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("failures"))
	cfg := hw.Config{InstructionsEnabled: true, CoprocessorPermitted: true, OffloadForced: true}
	p, _ := newProvider(t, cfg, cpacf.NewEmulator())

	dev := &mocks.Device{SendCPRBErr: errors.New("EIO")}
	_, err = p.ECDSASign(dev, key, hash[:])
	assert.ErrorIs(t, err, bccsp.ErrIOFault)
	assert.Equal(t, []cca.Verb{cca.VerbSign}, dev.Requests())

	_, err = p.ECDSASign(ccasim.New(ccasim.WithStatus(cca.ReturnError, 0)), key, hash[:])
	assert.ErrorIs(t, err, bccsp.ErrIOFault)

	_, err = p.ECDH(ccasim.New(ccasim.WithCorruptLength()), key, key.Public())
	assert.ErrorIs(t, err, bccsp.ErrIOFault)
}

func TestInstructionFailuresAreTerminal(t *testing.T) {
	card := ccasim.New()
	p, rec := newProvider(t, allTiers, cpacf.NewEmulator())
	key, err := p.GenerateKey(card, bccsp.P256)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("terminal"))

	err = p.ECDSAVerify(card, key.Public(), hash[:], make([]byte, 64))
	assert.ErrorIs(t, err, bccsp.ErrInvalidSignature)
	assert.Equal(t, hw.TierInstruction, rec.Last().Tier)
	assert.Equal(t, err, rec.Last().Err)
	assert.Zero(t, card.Calls())
}

func TestInvalidArguments(t *testing.T) {
	card := ccasim.New()
	p, rec := newProvider(t, allTiers, cpacf.NewEmulator())
	key, err := sw.New().GenerateKeyPair(bccsp.P256)
	require.NoError(t, err)
	other, err := sw.New().GenerateKeyPair(bccsp.P384)
	require.NoError(t, err)

	_, err = p.ECDH(card, key, other.Public())
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = p.ECDH(card, key.Public(), other.Public())
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = p.ECDSASign(card, key, nil)
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	_, err = p.ECDSASign(card, nil, []byte{1})
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)
	assert.ErrorIs(t, p.ECDSAVerify(card, nil, []byte{1}, nil), bccsp.ErrInvalidArgument)
	assert.ErrorIs(t, p.ECDSAVerify(card, key.Public(), nil, make([]byte, 64)), bccsp.ErrInvalidArgument)
	_, err = p.GenerateKey(card, bccsp.CurveID(42))
	assert.ErrorIs(t, err, bccsp.ErrInvalidArgument)

	assert.Empty(t, rec.Records())
	assert.Zero(t, card.Calls())
}

func TestEmptyHashRejectedOnEveryTier(t *testing.T) {
	soft := sw.New()
	key, err := soft.GenerateKeyPair(bccsp.P256)
	require.NoError(t, err)
	// a signature over a zero digest must not pass for a missing one
	sig, err := soft.Sign(key, []byte{0})
	require.NoError(t, err)

	card := ccasim.New()
	instr, instrRec := newProvider(t, hw.Config{InstructionsEnabled: true}, cpacf.NewEmulator())
	offload, offloadRec := newProvider(t, hw.Config{CoprocessorPermitted: true, OffloadForced: true}, cpacf.NewEmulator())

	for _, hash := range [][]byte{nil, {}} {
		assert.ErrorIs(t, instr.ECDSAVerify(card, key.Public(), hash, sig), bccsp.ErrInvalidArgument)
		assert.ErrorIs(t, offload.ECDSAVerify(card, key.Public(), hash, sig), bccsp.ErrInvalidArgument)
		assert.ErrorIs(t, soft.Verify(key.Public(), hash, sig), bccsp.ErrInvalidArgument)
		assert.ErrorIs(t, cpacf.New(cpacf.NewEmulator()).ECDSAVerify(key.Public(), hash, sig), bccsp.ErrInvalidArgument)
	}
	assert.Empty(t, instrRec.Records())
	assert.Empty(t, offloadRec.Records())
	assert.Zero(t, card.Calls())

	require.NoError(t, instr.ECDSAVerify(card, key.Public(), []byte{0}, sig))
}

func TestDeterministicSigning(t *testing.T) {
	p, _ := newProvider(t, allTiers, cpacf.NewEmulator())
	key := &bccsp.ECKey{
		Curve: bccsp.P256,
		D:     unhex(t, "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721"),
	}
	k := unhex(t, "a6e3c57dd01abe90086538398355dd4c3b17aa873382b0f24d6129493d8aad60")
	hash := sha256.Sum256([]byte("sample"))

	sig, err := p.ECDSASignWithRandom(nil, key, hash[:], func(b []byte) { copy(b, k) })
	require.NoError(t, err)
	assert.Equal(t,
		"efd48b2aacb6a8fd1140dd9cd45e81d69d2c877b56aaf991c34d0ea84eaf3716"+
			"f7cb1c942d657c41d436c7a1b6e29f65f3e900dbb9aff4064dc4ab2f843acda8",
		hex.EncodeToString(sig))
}

func TestMontgomeryAndEdwards(t *testing.T) {
	p, rec := newProvider(t, allTiers, cpacf.NewEmulator())

	z, err := p.X25519(
		unhex(t, "a546e36bf0527c9d3b16154b82465edd62144c0ac1fc5a18506a2244ba449ac4"),
		unhex(t, "e6db6867583030db3594c1a424b15f7c726624ec26b3353b10a903a6d0ab1c4c"),
	)
	require.NoError(t, err)
	assert.Equal(t, "c3da55379de9c6908e94ea4df28d084f32eccf03491c71f754b4075577a28552", hex.EncodeToString(z))
	assert.Equal(t, mocks.Record{Op: hw.OpX25519, Curve: bccsp.X25519, Tier: hw.TierInstruction, Done: true}, rec.Last())

	pub, err := p.X25519DerivePublic(unhex(t, "77076d0a7318a57d3c16c17251b26645df4c2f87ebc0992ab177fba51db92c2a"))
	require.NoError(t, err)
	assert.Equal(t, "8520f0098930a754748b7ddcb43ef75a0dbf3a0d26381af4eba4a98eaa9b4e6a", hex.EncodeToString(pub))

	pub, err = p.Ed25519DerivePublic(unhex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"))
	require.NoError(t, err)
	assert.Equal(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", hex.EncodeToString(pub))

	soft := sw.New()
	for _, id := range []bccsp.CurveID{bccsp.X448, bccsp.Ed448} {
		key, err := soft.GenerateKeyPair(id)
		require.NoError(t, err)
		derive := p.X448DerivePublic
		if id == bccsp.Ed448 {
			derive = p.Ed448DerivePublic
		}
		pub, err := derive(key.D)
		require.NoError(t, err, id.String())
		assert.Equal(t, key.X, pub, id.String())
	}

	x448 := func(priv, peer []byte) []byte {
		z, err := p.X448(priv, peer)
		require.NoError(t, err)
		return z
	}
	a, err := soft.GenerateKeyPair(bccsp.X448)
	require.NoError(t, err)
	b, err := soft.GenerateKeyPair(bccsp.X448)
	require.NoError(t, err)
	assert.Equal(t, x448(a.D, b.X), x448(b.D, a.X))
}

func TestMontgomeryKeysHaveNoECDHPath(t *testing.T) {
	p, _ := newProvider(t, allTiers, cpacf.NewEmulator())
	key, err := sw.New().GenerateKeyPair(bccsp.X25519)
	require.NoError(t, err)

	_, err = p.ECDH(ccasim.New(), key, key.Public())
	assert.ErrorIs(t, err, bccsp.ErrNoDevice)
}
