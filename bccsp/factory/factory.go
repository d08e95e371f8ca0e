/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package factory

import (
	"io"
	"reflect"
	"strings"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/bccsp/cca/ccasim"
	"github.com/hyperledger/fabric-ecc/bccsp/cca/zcrypt"
	"github.com/hyperledger/fabric-ecc/bccsp/cpacf"
	"github.com/hyperledger/fabric-ecc/bccsp/hw"
	"github.com/hyperledger/fabric-ecc/bccsp/stats"
	"github.com/hyperledger/fabric-ecc/bccsp/sw"
	"github.com/hyperledger/fabric-ecc/common/flogging"
	"github.com/hyperledger/fabric-ecc/common/metrics"
	"github.com/hyperledger/fabric-ecc/common/metrics/disabled"
	"github.com/hyperledger/fabric-ecc/common/metrics/prometheus"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

var logger = flogging.MustGetLogger("bccsp_factory")

// Providers is the set of tiers built from a FactoryOpts.
type Providers struct {
	// Default is the name of the provider callers should prefer.
	Default string
	SW      *sw.Library
	HW      *hw.Provider
	// Device is the coprocessor handed to the hardware entry points.
	Device cca.Device
	Stats  *stats.Recorder
	// Registry holds the collectors when HWOpts.Metrics is "prometheus".
	// Every Providers gets its own, callers expose it as they see fit.
	Registry *prom.Registry
}

// Option configures New.
type Option func(*options)

type options struct {
	metrics metrics.Provider
}

// WithMetricsProvider makes the hardware tier report to p whatever
// HWOpts.Metrics names.
func WithMetricsProvider(p metrics.Provider) Option {
	return func(o *options) { o.metrics = p }
}

func metricsProvider(name string) (metrics.Provider, *prom.Registry, error) {
	switch strings.ToLower(name) {
	case "", "disabled":
		return &disabled.Provider{}, nil, nil
	case "prometheus":
		registry := prom.NewRegistry()
		return &prometheus.Provider{Registerer: registry}, registry, nil
	default:
		return nil, nil, errors.Errorf("unknown metrics provider '%s'", name)
	}
}

// New builds the providers described by opts. A nil opts means
// GetDefaultOpts.
func New(opts *FactoryOpts, o ...Option) (*Providers, error) {
	if opts == nil {
		opts = GetDefaultOpts()
	}
	var cfg options
	for _, fn := range o {
		fn(&cfg)
	}

	name := strings.ToUpper(opts.Default)
	if name == "" {
		name = HardwareFactoryName
	}
	if name != HardwareFactoryName && name != SoftwareFactoryName {
		return nil, errors.Errorf("Could not find provider, no '%s' provider", opts.Default)
	}

	swOpts := opts.SW
	if swOpts == nil {
		swOpts = &SWOpts{}
	}
	lib := sw.New(sw.WithFIPS(swOpts.FIPS))

	hwOpts := opts.HW
	if hwOpts == nil {
		hwOpts = GetDefaultOpts().HW
	}
	mp := cfg.metrics
	var registry *prom.Registry
	if mp == nil {
		var err error
		if mp, registry, err = metricsProvider(hwOpts.Metrics); err != nil {
			return nil, errors.WithMessage(err, "Failed initializing HW provider")
		}
	}
	rec := stats.New(mp, nil)

	var facility cpacf.Facility = cpacf.Native()
	var dev cca.Device
	if hwOpts.Emulate {
		facility = cpacf.NewEmulator()
		dev = ccasim.New()
	} else if hwOpts.Coprocessor {
		path := hwOpts.Device
		if path == "" {
			path = zcrypt.DefaultPath
		}
		dev = zcrypt.OpenOrNotLoaded(path)
	} else {
		dev = cca.DriverNotLoaded
	}
	rec.ReportFacility(facility)

	domain := cca.DefaultDomainResolver()
	if hwOpts.DomainFile != "" && hwOpts.DomainFile != cca.DefaultDomainFile {
		domain = &cca.DomainResolver{Path: hwOpts.DomainFile}
	}

	p := hw.New(
		hw.Config{
			InstructionsEnabled:  hwOpts.Instructions,
			CoprocessorPermitted: hwOpts.Coprocessor,
			OffloadForced:        hwOpts.Offload,
		},
		hw.WithFacility(facility),
		hw.WithDomain(domain),
		hw.WithSoftware(lib),
		hw.WithRecorder(rec),
	)
	logger.Debugf("initialized providers, default %s, emulated hardware %t", name, hwOpts.Emulate)

	return &Providers{
		Default:  name,
		SW:       lib,
		HW:       p,
		Device:   dev,
		Stats:    rec,
		Registry: registry,
	}, nil
}

// Software runs fn as op on the software tier and reports it to Stats the
// way the hardware entry points report themselves.
func (p *Providers) Software(op hw.Op, id bccsp.CurveID, fn func() error) error {
	done := p.Stats.Start(op, id)
	err := fn()
	done(hw.TierSoftware, err)
	return err
}

// Close releases the coprocessor device.
func (p *Providers) Close() error {
	if c, ok := p.Device.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewViper returns a viper instance that reads the options from the
// environment, with prefix ECC, and from the file at path when path is not
// empty.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ECC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := GetDefaultOpts()
	v.SetDefault("default", def.Default)
	v.SetDefault("sw.fips", def.SW.FIPS)
	v.SetDefault("hw.instructions", def.HW.Instructions)
	v.SetDefault("hw.coprocessor", def.HW.Coprocessor)
	v.SetDefault("hw.offload", def.HW.Offload)
	v.SetDefault("hw.device", def.HW.Device)
	v.SetDefault("hw.domainfile", def.HW.DomainFile)
	v.SetDefault("hw.emulate", def.HW.Emulate)
	v.SetDefault("hw.metrics", def.HW.Metrics)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", path)
		}
	}
	return v, nil
}

// trimSpace strips the blanks that environment values and hand-edited
// files tend to carry around strings.
func trimSpace(f, t reflect.Kind, data interface{}) (interface{}, error) {
	if f != reflect.String || t != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(data.(string)), nil
}

// LoadOpts decodes the options held by v.
func LoadOpts(v *viper.Viper) (*FactoryOpts, error) {
	opts := &FactoryOpts{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		trimSpace,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(opts, hook); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	return opts, nil
}
