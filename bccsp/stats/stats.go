/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package stats reports hardware tier activity through a metrics provider.
package stats

import (
	"code.cloudfoundry.org/clock"
	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cpacf"
	"github.com/hyperledger/fabric-ecc/bccsp/hw"
	"github.com/hyperledger/fabric-ecc/common/metrics"
)

var (
	operationsOpts = metrics.CounterOpts{
		Namespace:  "ecc",
		Name:       "operations_total",
		Help:       "The number of operations completed, by the tier that completed them.",
		LabelNames: []string{"operation", "tier"},
	}
	errorsOpts = metrics.CounterOpts{
		Namespace:  "ecc",
		Name:       "operation_errors_total",
		Help:       "The number of failed operations, by error kind.",
		LabelNames: []string{"operation", "kind"},
	}
	durationOpts = metrics.HistogramOpts{
		Namespace:  "ecc",
		Name:       "operation_duration_seconds",
		Help:       "The time an operation took, including every tier attempted.",
		Buckets:    []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		LabelNames: []string{"operation", "tier"},
	}
	functionsOpts = metrics.GaugeOpts{
		Namespace:  "ecc",
		Subsystem:  "cpacf",
		Name:       "installed_functions",
		Help:       "The number of installed function codes per instruction.",
		LabelNames: []string{"instruction"},
	}
)

// Recorder implements hw.Recorder.
type Recorder struct {
	Clock clock.Clock

	Operations metrics.Counter
	Errors     metrics.Counter
	Duration   metrics.Histogram
	Functions  metrics.Gauge
}

// New creates the meters on p. A nil clock means the wall clock.
func New(p metrics.Provider, c clock.Clock) *Recorder {
	if c == nil {
		c = clock.NewClock()
	}
	return &Recorder{
		Clock:      c,
		Operations: p.NewCounter(operationsOpts),
		Errors:     p.NewCounter(errorsOpts),
		Duration:   p.NewHistogram(durationOpts),
		Functions:  p.NewGauge(functionsOpts),
	}
}

func (r *Recorder) Start(op hw.Op, _ bccsp.CurveID) func(hw.Tier, error) {
	start := r.Clock.Now()
	return func(tier hw.Tier, err error) {
		r.Duration.With("operation", string(op), "tier", tier.String()).Observe(r.Clock.Since(start).Seconds())
		if err != nil {
			r.Errors.With("operation", string(op), "kind", bccsp.KindOf(err).String()).Add(1)
			return
		}
		r.Operations.With("operation", string(op), "tier", tier.String()).Add(1)
	}
}

// ReportFacility publishes the number of function codes f installs.
func (r *Recorder) ReportFacility(f cpacf.Facility) {
	for _, inst := range []cpacf.Instruction{cpacf.PCC, cpacf.KDSA} {
		r.Functions.With("instruction", inst.String()).Set(float64(f.Query(inst).Len()))
	}
}
