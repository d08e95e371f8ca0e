/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package factory

import (
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/bccsp/cca/zcrypt"
)

const (
	// HardwareFactoryName selects the hardware tier dispatcher.
	HardwareFactoryName = "HW"
	// SoftwareFactoryName selects the software tier.
	SoftwareFactoryName = "SW"
)

// FactoryOpts holds configuration information used to initialize the
// providers.
type FactoryOpts struct {
	Default string  `mapstructure:"default" json:"default" yaml:"Default"`
	SW      *SWOpts `mapstructure:"SW,omitempty" json:"SW,omitempty" yaml:"SW,omitempty"`
	HW      *HWOpts `mapstructure:"HW,omitempty" json:"HW,omitempty" yaml:"HW,omitempty"`
}

// SWOpts configures the software tier.
type SWOpts struct {
	// FIPS refuses every software operation unless the Go crypto module
	// runs in FIPS 140 mode.
	FIPS bool `mapstructure:"fips" json:"fips" yaml:"FIPS"`
}

// HWOpts configures the hardware tier.
type HWOpts struct {
	Instructions bool `mapstructure:"instructions" json:"instructions" yaml:"Instructions"`
	Coprocessor  bool `mapstructure:"coprocessor" json:"coprocessor" yaml:"Coprocessor"`
	// Offload sends ECDH, signing and verification to the coprocessor even
	// when the instructions support the curve.
	Offload    bool   `mapstructure:"offload" json:"offload" yaml:"Offload"`
	Device     string `mapstructure:"device" json:"device" yaml:"Device"`
	DomainFile string `mapstructure:"domainfile" json:"domainfile" yaml:"DomainFile"`
	// Emulate replaces the instructions and the coprocessor with software
	// emulations of both.
	Emulate bool `mapstructure:"emulate" json:"emulate" yaml:"Emulate"`
	// Metrics is the metrics provider: prometheus or disabled.
	Metrics string `mapstructure:"metrics" json:"metrics" yaml:"Metrics"`
}

// GetDefaultOpts offers a default implementation for Opts
// returns a new instance every time
func GetDefaultOpts() *FactoryOpts {
	return &FactoryOpts{
		Default: HardwareFactoryName,
		SW:      &SWOpts{},
		HW: &HWOpts{
			Instructions: true,
			Coprocessor:  true,
			Device:       zcrypt.DefaultPath,
			DomainFile:   cca.DefaultDomainFile,
			Metrics:      "disabled",
		},
	}
}

// FactoryName returns the name of the default provider.
func (o *FactoryOpts) FactoryName() string {
	return o.Default
}
