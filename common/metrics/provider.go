/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics defines the meters the hardware tier reports through.
// Implementations live in the prometheus and disabled subpackages.
package metrics

// Provider creates meters. Each Opts value must be used at most once per
// provider.
type Provider interface {
	NewCounter(CounterOpts) Counter
	NewGauge(GaugeOpts) Gauge
	NewHistogram(HistogramOpts) Histogram
}

// Counter only goes up.
type Counter interface {
	// With binds label values, given as alternating names and values. Every
	// name in LabelNames must be bound before Add.
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Gauge holds a value that can go both ways.
type Gauge interface {
	With(labelValues ...string) Gauge
	Add(delta float64)
	Set(value float64)
}

// Histogram counts observations into buckets.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// CounterOpts names a counter. The exported name is
// Namespace_Subsystem_Name with empty parts left out.
type CounterOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// GaugeOpts names a gauge.
type GaugeOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// HistogramOpts names a histogram. Nil Buckets selects the default
// prometheus buckets.
type HistogramOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	Buckets    []float64
	LabelNames []string
}
