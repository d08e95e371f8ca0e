/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:build linux && s390x

package zcrypt

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Device is an open zcrypt device node.
type Device struct {
	path string

	mu sync.RWMutex
	fd int
}

// Open opens the zcrypt device node at path.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(bccsp.ErrNoDevice, "opening %s: %s", path, err)
	}
	logger.Debugf("opened %s", path)
	return &Device{path: path, fd: fd}, nil
}

// SendCPRB patches the absolute parameter addresses into the request and
// issues ZSECSENDCPRB. The call blocks until the card has answered.
func (d *Device) SendCPRB(r *cca.Request) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fd < 0 {
		return errors.Wrapf(bccsp.ErrIOFault, "%s is closed", d.path)
	}

	buf := r.Buffer()
	base := uint64(uintptr(unsafe.Pointer(&buf[0])))
	cca.SetAddresses(buf, base+cca.CPRBXSize, base+cca.ReplyOffset+cca.CPRBXSize)
	x := r.XCRB(base)
	xcrb := x.Marshal()

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), cca.ZSECSENDCPRB, uintptr(unsafe.Pointer(&xcrb[0])))
	runtime.KeepAlive(buf)
	runtime.KeepAlive(xcrb)
	if errno != 0 {
		status := cca.UnmarshalXCRB(xcrb).Status
		return errors.Wrapf(bccsp.ErrIOFault, "ZSECSENDCPRB on %s failed with status %#x: %s", d.path, status, errno)
	}
	return nil
}

// Close closes the device node.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
