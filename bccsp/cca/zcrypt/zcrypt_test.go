/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package zcrypt

import (
	"path/filepath"
	"testing"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "z90crypt")
	d, err := Open(path)
	require.Error(t, err)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, bccsp.ErrNoDevice)
	assert.Contains(t, err.Error(), path)
}

func TestOpenOrNotLoaded(t *testing.T) {
	dev := OpenOrNotLoaded(filepath.Join(t.TempDir(), "z90crypt"))
	assert.Equal(t, cca.DriverNotLoaded, dev)
}
