/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bccsp

import (
	"github.com/pkg/errors"
)

// The error taxonomy shared by every tier. Components wrap these with
// context; callers classify with errors.Is or KindOf.
var (
	// ErrUnsupportedCurve means the tier attempted does not implement the
	// curve for the operation. The dispatcher treats it as a fallthrough
	// signal.
	ErrUnsupportedCurve = errors.New("curve not supported by this tier")
	ErrNoDevice         = errors.New("no cryptographic device available")
	ErrIOFault          = errors.New("cryptographic device I/O fault")
	ErrInvalidSignature = errors.New("signature is invalid")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("operation not permitted by FIPS policy")
	ErrOutOfMemory      = errors.New("out of memory")
)

// Kind is the classification of an error returned by this module.
type Kind int

const (
	KindNone Kind = iota
	KindUnsupportedCurve
	KindNoDevice
	KindIOFault
	KindInvalidSignature
	KindInvalidArgument
	KindPermissionDenied
	KindOutOfMemory
	KindUnknown
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnsupportedCurve, KindUnsupportedCurve},
	{ErrNoDevice, KindNoDevice},
	{ErrIOFault, KindIOFault},
	{ErrInvalidSignature, KindInvalidSignature},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrOutOfMemory, KindOutOfMemory},
}

// KindOf classifies err. A nil error is KindNone; an error outside the
// taxonomy is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindUnsupportedCurve:
		return "unsupported curve"
	case KindNoDevice:
		return "no device"
	case KindIOFault:
		return "I/O fault"
	case KindInvalidSignature:
		return "invalid signature"
	case KindInvalidArgument:
		return "invalid argument"
	case KindPermissionDenied:
		return "permission denied"
	case KindOutOfMemory:
		return "out of memory"
	default:
		return "unknown"
	}
}
