/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:build !(linux && s390x)

package zcrypt

import (
	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/pkg/errors"
)

// Device is a zcrypt device node. Only linux/s390x has one.
type Device struct{}

// Open fails with bccsp.ErrNoDevice on this platform.
func Open(path string) (*Device, error) {
	return nil, errors.Wrapf(bccsp.ErrNoDevice, "no zcrypt driver on this platform, cannot open %s", path)
}

// SendCPRB fails with bccsp.ErrNoDevice.
func (*Device) SendCPRB(*cca.Request) error {
	return errors.Wrap(bccsp.ErrNoDevice, "no zcrypt driver on this platform")
}

// Close does nothing.
func (*Device) Close() error { return nil }
