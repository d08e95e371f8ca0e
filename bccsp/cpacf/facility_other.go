/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:build !s390x

package cpacf

type absent struct{}

// Native returns the facility of the running machine. Only IBM Z provides
// the instructions; elsewhere nothing is installed.
func Native() Facility {
	return absent{}
}

func (absent) Query(Instruction) FunctionSet { return FunctionSet{} }

func (absent) PCC(uint64, *ParamBlock) ConditionCode { return CCFailure }

func (absent) KDSA(uint64, *ParamBlock) ConditionCode { return CCFailure }
