/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"encoding/binary"
)

const (
	// AgentCA is the agent id of CCA requests ("CA").
	AgentCA = 0x4341
	// AutoSelect lets the driver choose the card.
	AutoSelect = 0xFFFFFFFF
	// ZSECSENDCPRB is the ioctl request code that submits an xcRB.
	ZSECSENDCPRB = 0xC0007A81

	// XCRBSize is the size of the packed ica_xcRB structure.
	XCRBSize = 94
)

// XCRB is the control block handed to the ZSECSENDCPRB ioctl. The layout is
// the packed structure of the zcrypt driver on a 64-bit big-endian machine.
type XCRB struct {
	AgentID            uint16
	UserDefined        uint32
	RequestID          uint16
	RequestControlLen  uint32
	RequestControlAddr uint64
	RequestDataLen     uint32
	RequestDataAddr    uint64
	ReplyControlLen    uint32
	ReplyControlAddr   uint64
	ReplyDataLen       uint32
	ReplyDataAddr      uint64
	PriorityWindow     uint16
	Status             uint32
}

// Marshal returns the wire form of x.
func (x *XCRB) Marshal() []byte {
	b := make([]byte, XCRBSize)
	be := binary.BigEndian
	be.PutUint16(b[0:], x.AgentID)
	be.PutUint32(b[2:], x.UserDefined)
	be.PutUint16(b[6:], x.RequestID)
	be.PutUint32(b[8:], x.RequestControlLen)
	be.PutUint64(b[20:], x.RequestControlAddr)
	be.PutUint32(b[28:], x.RequestDataLen)
	be.PutUint64(b[40:], x.RequestDataAddr)
	be.PutUint32(b[48:], x.ReplyControlLen)
	be.PutUint64(b[60:], x.ReplyControlAddr)
	be.PutUint32(b[68:], x.ReplyDataLen)
	be.PutUint64(b[80:], x.ReplyDataAddr)
	be.PutUint16(b[88:], x.PriorityWindow)
	be.PutUint32(b[90:], x.Status)
	return b
}

// UnmarshalXCRB reads an xcRB. b must be at least XCRBSize bytes long.
func UnmarshalXCRB(b []byte) XCRB {
	_ = b[XCRBSize-1]
	be := binary.BigEndian
	return XCRB{
		AgentID:            be.Uint16(b[0:]),
		UserDefined:        be.Uint32(b[2:]),
		RequestID:          be.Uint16(b[6:]),
		RequestControlLen:  be.Uint32(b[8:]),
		RequestControlAddr: be.Uint64(b[20:]),
		RequestDataLen:     be.Uint32(b[28:]),
		RequestDataAddr:    be.Uint64(b[40:]),
		ReplyControlLen:    be.Uint32(b[48:]),
		ReplyControlAddr:   be.Uint64(b[60:]),
		ReplyDataLen:       be.Uint32(b[68:]),
		ReplyDataAddr:      be.Uint64(b[80:]),
		PriorityWindow:     be.Uint16(b[88:]),
		Status:             be.Uint32(b[90:]),
	}
}
