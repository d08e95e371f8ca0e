/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is the entrypoint for the ecctool binary
// and calls only into the ecctool package.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-ecc/internal/ecctool"
)

func main() {
	if err := ecctool.NewCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
