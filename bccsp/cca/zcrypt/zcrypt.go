/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package zcrypt submits CCA requests to a Crypto Express card through the
// zcrypt device driver.
package zcrypt

import (
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/common/flogging"
)

// DefaultPath is the zcrypt device node.
const DefaultPath = "/dev/z90crypt"

var logger = flogging.MustGetLogger("bccsp_zcrypt")

// OpenOrNotLoaded opens the device at path and returns cca.DriverNotLoaded
// when that fails.
func OpenOrNotLoaded(path string) cca.Device {
	d, err := Open(path)
	if err != nil {
		logger.Debugf("coprocessor unavailable: %s", err)
		return cca.DriverNotLoaded
	}
	return d
}
