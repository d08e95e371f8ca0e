/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"encoding/binary"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/pkg/errors"
)

// Geometry of a request buffer. The request CPRBX and its parameters come
// first, the reply CPRBX and the reply parameters follow at ReplyOffset.
const (
	CPRBXSize     = 220
	ParmBlockSize = 2048
	ReplyOffset   = CPRBXSize + ParmBlockSize
	BufferSize    = 2 * ReplyOffset
)

const (
	// CPRBVersion is the version of the extended CPRB.
	CPRBVersion = 0x02
	// AnyDomain lets the driver pick the usage domain.
	AnyDomain = 0xFFFF
)

// FunctionID is the function tag of a type 2 CPRBX.
var FunctionID = [2]byte{'T', '2'}

// Offsets of the CPRBX fields used by this package. Address fields are 8
// bytes wide and preceded by 8 bytes of padding.
const (
	offCPRBLen       = 0
	offVersion       = 2
	offFunctionID    = 6
	offReqParmLen    = 12
	offReqDataLen    = 16
	offReplyMsgLen   = 20
	offReplyParmLen  = 24
	offReqParmAddr   = 56
	offReplyParmAddr = 88
	offReturnCode    = 144
	offReasonCode    = 146
	offDomain        = 170
)

// Header is the part of a CPRBX that carries meaning for the ECC verbs.
// ReqParmAddr and ReplyParmAddr hold displacements from the start of the
// request buffer until the transport replaces them with addresses.
type Header struct {
	Length        uint16
	Version       byte
	Function      [2]byte
	ReqParmLen    uint32
	ReplyMsgLen   uint32
	ReplyParmLen  uint32
	ReqParmAddr   uint64
	ReplyParmAddr uint64
	ReturnCode    uint16
	ReasonCode    uint16
	Domain        uint16
}

// newRequestHeader returns the header of a request with parmLen bytes of
// parameters.
func newRequestHeader(parmLen int, domain uint16) Header {
	return Header{
		Length:        CPRBXSize,
		Version:       CPRBVersion,
		Function:      FunctionID,
		ReqParmLen:    uint32(parmLen),
		ReplyMsgLen:   ReplyOffset,
		ReqParmAddr:   CPRBXSize,
		ReplyParmAddr: ReplyOffset + CPRBXSize,
		Domain:        domain,
	}
}

// Marshal writes h into the first CPRBXSize bytes of b. Fields this package
// does not model are left untouched.
func (h *Header) Marshal(b []byte) {
	_ = b[CPRBXSize-1]
	binary.BigEndian.PutUint16(b[offCPRBLen:], h.Length)
	b[offVersion] = h.Version
	copy(b[offFunctionID:], h.Function[:])
	binary.BigEndian.PutUint32(b[offReqParmLen:], h.ReqParmLen)
	binary.BigEndian.PutUint32(b[offReqDataLen:], 0)
	binary.BigEndian.PutUint32(b[offReplyMsgLen:], h.ReplyMsgLen)
	binary.BigEndian.PutUint32(b[offReplyParmLen:], h.ReplyParmLen)
	binary.BigEndian.PutUint64(b[offReqParmAddr:], h.ReqParmAddr)
	binary.BigEndian.PutUint64(b[offReplyParmAddr:], h.ReplyParmAddr)
	binary.BigEndian.PutUint16(b[offReturnCode:], h.ReturnCode)
	binary.BigEndian.PutUint16(b[offReasonCode:], h.ReasonCode)
	binary.BigEndian.PutUint16(b[offDomain:], h.Domain)
}

// UnmarshalHeader reads a CPRBX header and checks its length, version and
// function tag.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) < CPRBXSize {
		return Header{}, errors.Wrapf(bccsp.ErrIOFault, "CPRBX needs %d bytes, have %d", CPRBXSize, len(b))
	}
	h := Header{
		Length:        binary.BigEndian.Uint16(b[offCPRBLen:]),
		Version:       b[offVersion],
		ReqParmLen:    binary.BigEndian.Uint32(b[offReqParmLen:]),
		ReplyMsgLen:   binary.BigEndian.Uint32(b[offReplyMsgLen:]),
		ReplyParmLen:  binary.BigEndian.Uint32(b[offReplyParmLen:]),
		ReqParmAddr:   binary.BigEndian.Uint64(b[offReqParmAddr:]),
		ReplyParmAddr: binary.BigEndian.Uint64(b[offReplyParmAddr:]),
		ReturnCode:    binary.BigEndian.Uint16(b[offReturnCode:]),
		ReasonCode:    binary.BigEndian.Uint16(b[offReasonCode:]),
		Domain:        binary.BigEndian.Uint16(b[offDomain:]),
	}
	copy(h.Function[:], b[offFunctionID:])

	if h.Length != CPRBXSize || h.Version != CPRBVersion || h.Function != FunctionID {
		return Header{}, errors.Wrapf(bccsp.ErrIOFault, "malformed CPRBX: length %d, version %#x, function %q", h.Length, h.Version, h.Function[:])
	}
	return h, nil
}

// SetAddresses overwrites the parameter block address fields of the CPRBX in
// b. The transport uses it to turn displacements into addresses.
func SetAddresses(b []byte, reqParm, replyParm uint64) {
	binary.BigEndian.PutUint64(b[offReqParmAddr:], reqParm)
	binary.BigEndian.PutUint64(b[offReplyParmAddr:], replyParm)
}
