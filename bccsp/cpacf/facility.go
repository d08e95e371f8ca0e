/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"github.com/bits-and-blooms/bitset"
)

// ParamBlockSize is the size of the parameter block handed to PCC and KDSA.
// It covers the largest parameter layout plus the reserved area the
// instructions may touch.
const ParamBlockSize = 4096

// ParamBlock is the memory operand of a PCC or KDSA invocation.
type ParamBlock = [ParamBlockSize]byte

// Instruction selects one of the two instruction families.
type Instruction int

const (
	// PCC is PERFORM CRYPTOGRAPHIC COMPUTATION (scalar multiplication).
	PCC Instruction = iota
	// KDSA is COMPUTE DIGITAL SIGNATURE AUTHENTICATION.
	KDSA
)

func (i Instruction) String() string {
	if i == KDSA {
		return "KDSA"
	}
	return "PCC"
}

// ConditionCode is the condition code set by an instruction.
type ConditionCode uint64

const (
	CCSuccess ConditionCode = 0
	// CCFailure reports invalid operands or a failed verification.
	CCFailure ConditionCode = 1
	// CCRetry asks the caller to retry signing with a new random value.
	CCRetry ConditionCode = 2
)

// DeterministicFlag is or-ed into a KDSA signing function code to make the
// instruction take its random value from the parameter block.
const DeterministicFlag = 0x80

// Facility executes the PCC and KDSA instructions on a parameter block.
type Facility interface {
	// Query returns the installed function codes of an instruction.
	Query(inst Instruction) FunctionSet
	PCC(fc uint64, params *ParamBlock) ConditionCode
	KDSA(fc uint64, params *ParamBlock) ConditionCode
}

// FunctionSet is the set of installed function codes of one instruction.
type FunctionSet struct {
	bits *bitset.BitSet
}

// NewFunctionSet returns a set holding the given function codes.
func NewFunctionSet(fcs ...uint64) FunctionSet {
	b := bitset.New(128)
	for _, fc := range fcs {
		b.Set(uint(fc))
	}
	return FunctionSet{bits: b}
}

// ParseQueryMask decodes the status word stored by the query function (code
// 0). Bit n, counted from the leftmost bit of the first byte, is set when
// function code n is installed.
func ParseQueryMask(mask []byte) FunctionSet {
	b := bitset.New(uint(len(mask) * 8))
	for i, v := range mask {
		for j := 0; j < 8; j++ {
			if v&(0x80>>uint(j)) != 0 {
				b.Set(uint(i*8 + j))
			}
		}
	}
	return FunctionSet{bits: b}
}

// Has reports whether fc, without the modifier bit, is installed.
func (s FunctionSet) Has(fc uint64) bool {
	if s.bits == nil {
		return false
	}
	return s.bits.Test(uint(fc &^ DeterministicFlag))
}

// Len returns the number of installed function codes.
func (s FunctionSet) Len() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.Count())
}
