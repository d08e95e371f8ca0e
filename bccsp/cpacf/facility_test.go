/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cpacf

import (
	"runtime"
	"testing"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryMask(t *testing.T) {
	mask := make([]byte, 16)
	// function codes 0, 9 and 81
	mask[0] = 0x80
	mask[1] = 0x40
	mask[10] = 0x40

	s := ParseQueryMask(mask)
	assert.True(t, s.Has(0))
	assert.True(t, s.Has(9))
	assert.True(t, s.Has(9|DeterministicFlag))
	assert.True(t, s.Has(81))
	assert.False(t, s.Has(1))
	assert.False(t, s.Has(80))
	assert.False(t, s.Has(200))
	assert.Equal(t, 3, s.Len())
}

func TestEmptyFunctionSet(t *testing.T) {
	var s FunctionSet
	assert.False(t, s.Has(0))
	assert.Equal(t, 0, s.Len())
}

func TestEmulatorFunctions(t *testing.T) {
	e := NewEmulator()
	for _, fc := range []uint64{64, 65, 66, 72, 73, 80, 81} {
		assert.True(t, e.Query(PCC).Has(fc), "PCC %d", fc)
	}
	for _, fc := range []uint64{1, 2, 3, 9, 10, 11} {
		assert.True(t, e.Query(KDSA).Has(fc), "KDSA %d", fc)
	}

	w := e.WithoutCurve(bccsp.P384)
	assert.False(t, w.Query(PCC).Has(65))
	assert.False(t, w.Query(KDSA).Has(2))
	assert.False(t, w.Query(KDSA).Has(10))
	assert.True(t, e.Query(PCC).Has(65), "WithoutCurve leaves the receiver unchanged")
}

func TestNativeWithoutInstructions(t *testing.T) {
	if runtime.GOARCH == "s390x" {
		t.Skip("the machine may provide the instructions")
	}
	a := New(Native())
	for _, id := range bccsp.Curves() {
		c, err := bccsp.Describe(id)
		require.NoError(t, err)
		_, err = a.functionCode(c, PCC, bccsp.OpScalarMultiply)
		assert.True(t, errors.Is(err, bccsp.ErrUnsupportedCurve), id.String())
	}

	c, err := bccsp.Describe(bccsp.P256)
	require.NoError(t, err)
	bx, by := c.BasePoint()
	_, _, err = a.PointMultiply(bccsp.P256, make([]byte, 32), bx, by)
	assert.True(t, errors.Is(err, bccsp.ErrUnsupportedCurve))
}
