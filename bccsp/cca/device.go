/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("bccsp_cca")

// Device submits a request to a coprocessor and returns once the reply has
// been written into the request buffer.
type Device interface {
	SendCPRB(*Request) error
}

type driverNotLoaded struct{}

func (driverNotLoaded) SendCPRB(*Request) error {
	return errors.Wrap(bccsp.ErrIOFault, "zcrypt driver not loaded")
}

// DriverNotLoaded is the device of a system where the zcrypt device node
// could not be opened.
var DriverNotLoaded Device = driverNotLoaded{}

// Client runs ECC operations on a coprocessor: it builds the request,
// submits it, decodes the reply and wipes the buffer on every path.
type Client struct {
	Builder Builder
}

func (c *Client) exchange(dev Device, r *Request) error {
	if dev == nil || dev == DriverNotLoaded {
		return errors.Wrap(bccsp.ErrIOFault, "no coprocessor driver")
	}
	logger.Debugf("sending %s request for %s", r.Verb, r.curve.Name)
	if err := dev.SendCPRB(r); err != nil {
		if bccsp.KindOf(err) == bccsp.KindUnknown {
			err = errors.Wrapf(bccsp.ErrIOFault, "sending %s request: %s", r.Verb, err)
		}
		return err
	}
	return nil
}

// ECDH derives the shared secret of priv and the peer's public key.
func (c *Client) ECDH(dev Device, priv, peer *bccsp.ECKey) ([]byte, error) {
	r, err := c.Builder.ECDH(priv, peer)
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	if err := c.exchange(dev, r); err != nil {
		return nil, err
	}
	return DecodeECDH(r)
}

// Sign returns the r||s signature of hash. key must carry its public point.
func (c *Client) Sign(dev Device, key *bccsp.ECKey, hash []byte) ([]byte, error) {
	r, err := c.Builder.Sign(key, hash)
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	if err := c.exchange(dev, r); err != nil {
		return nil, err
	}
	return DecodeSign(r)
}

// Verify checks the r||s signature of hash.
func (c *Client) Verify(dev Device, pub *bccsp.ECKey, hash, sig []byte) error {
	r, err := c.Builder.Verify(pub, hash, sig)
	if err != nil {
		return err
	}
	defer r.Wipe()
	if err := c.exchange(dev, r); err != nil {
		return err
	}
	return DecodeVerify(r)
}

// GenerateKey has the card generate a key pair on curve id.
func (c *Client) GenerateKey(dev Device, id bccsp.CurveID) (*bccsp.ECKey, error) {
	r, err := c.Builder.KeyGen(id)
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	if err := c.exchange(dev, r); err != nil {
		return nil, err
	}
	return DecodeKeyGen(r)
}
