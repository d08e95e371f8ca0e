/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package disabled is the metrics provider used when no sink is configured.
package disabled

import (
	"github.com/hyperledger/fabric-ecc/common/metrics"
)

// Provider hands out meters that discard every update. The meters are
// shared, With returns the receiver.
type Provider struct{}

var (
	counter   = nopCounter{}
	gauge     = nopGauge{}
	histogram = nopHistogram{}
)

func (Provider) NewCounter(metrics.CounterOpts) metrics.Counter       { return counter }
func (Provider) NewGauge(metrics.GaugeOpts) metrics.Gauge             { return gauge }
func (Provider) NewHistogram(metrics.HistogramOpts) metrics.Histogram { return histogram }

type nopCounter struct{}

func (nopCounter) Add(float64)                      {}
func (c nopCounter) With(...string) metrics.Counter { return c }

type nopGauge struct{}

func (nopGauge) Add(float64)                    {}
func (nopGauge) Set(float64)                    {}
func (g nopGauge) With(...string) metrics.Gauge { return g }

type nopHistogram struct{}

func (nopHistogram) Observe(float64)                    {}
func (h nopHistogram) With(...string) metrics.Histogram { return h }
