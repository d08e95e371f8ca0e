/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"sync"

	"golang.org/x/sys/cpu"
)

//go:noescape
func pcc(fc uint64, params *ParamBlock) uint64

//go:noescape
func kdsa(fc uint64, params *ParamBlock) uint64

type machine struct {
	once  sync.Once
	funcs [2]FunctionSet
}

var native = &machine{}

// Native returns the facility of the running machine. Without message
// security assist 9 no function is reported as installed.
func Native() Facility {
	return native
}

func (m *machine) Query(inst Instruction) FunctionSet {
	m.once.Do(func() {
		if !cpu.S390X.HasKDSA {
			return
		}
		var params ParamBlock
		if pcc(0, &params) == 0 {
			m.funcs[PCC] = ParseQueryMask(params[:16])
		}
		params = ParamBlock{}
		if kdsa(0, &params) == 0 {
			m.funcs[KDSA] = ParseQueryMask(params[:16])
		}
	})
	return m.funcs[inst]
}

func (m *machine) PCC(fc uint64, params *ParamBlock) ConditionCode {
	return ConditionCode(pcc(fc, params))
}

func (m *machine) KDSA(fc uint64, params *ParamBlock) ConditionCode {
	return ConditionCode(kdsa(fc, params))
}
