/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bccsp

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Hash function names accepted by GetHash.
const (
	SHA256   = "SHA256"
	SHA384   = "SHA384"
	SHA512   = "SHA512"
	SHA3_256 = "SHA3_256"
	SHA3_384 = "SHA3_384"
)

// GetHash returns a new hash.Hash for the named function. Names are matched
// without regard to case, dashes and underscores.
func GetHash(hashFunction string) (hash.Hash, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToUpper(hashFunction))
	switch norm {
	case "SHA256":
		return sha256.New(), nil
	case "SHA384":
		return sha512.New384(), nil
	case "SHA512":
		return sha512.New(), nil
	case "SHA3256":
		return sha3.New256(), nil
	case "SHA3384":
		return sha3.New384(), nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "hash function not recognized [%s]", hashFunction)
}

// Digest hashes msg with the named function.
func Digest(hashFunction string, msg []byte) ([]byte, error) {
	h, err := GetHash(hashFunction)
	if err != nil {
		return nil, err
	}
	h.Write(msg)
	return h.Sum(nil), nil
}
