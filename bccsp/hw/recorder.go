/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hw

import (
	"github.com/hyperledger/fabric-ecc/bccsp"
)

// Tier is the execution strategy that ran an operation.
type Tier int

const (
	TierNone Tier = iota
	TierInstruction
	TierCoprocessor
	TierSoftware
)

func (t Tier) String() string {
	switch t {
	case TierInstruction:
		return "cpacf"
	case TierCoprocessor:
		return "cca"
	case TierSoftware:
		return "sw"
	default:
		return "none"
	}
}

// Op names an entry point for logging and statistics.
type Op string

const (
	OpECDH          Op = "ecdh"
	OpSign          Op = "sign"
	OpVerify        Op = "verify"
	OpGenerateKey   Op = "keygen"
	OpX25519        Op = "x25519"
	OpX448          Op = "x448"
	OpX25519Derive  Op = "x25519_derive"
	OpX448Derive    Op = "x448_derive"
	OpEd25519Derive Op = "ed25519_derive"
	OpEd448Derive   Op = "ed448_derive"
	// OpPublicKey is only run by the software tier.
	OpPublicKey Op = "public_key"
)

// offloadable reports whether forced offload skips the instruction tier
// for op.
func (o Op) offloadable() bool {
	return o == OpECDH || o == OpSign || o == OpVerify
}

// Recorder observes operations. Start is called when an entry point is
// entered; the function it returns is called once with the last tier
// attempted and the outcome. Recorders must not block.
type Recorder interface {
	Start(op Op, curve bccsp.CurveID) func(tier Tier, err error)
}

type nopRecorder struct{}

func (nopRecorder) Start(Op, bccsp.CurveID) func(Tier, error) {
	return func(Tier, error) {}
}
