/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disabled_test

import (
	"github.com/hyperledger/fabric-ecc/common/metrics"
	"github.com/hyperledger/fabric-ecc/common/metrics/disabled"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Provider", func() {
	var p metrics.Provider = &disabled.Provider{}

	DescribeTable("meters accept updates for any label set",
		func(update func()) {
			Expect(update).NotTo(Panic())
		},
		Entry("counter", func() {
			c := p.NewCounter(metrics.CounterOpts{Name: "operations_total"})
			c.Add(1)
			c.With("operation", "sign", "tier", "cpacf").Add(2)
		}),
		Entry("gauge", func() {
			g := p.NewGauge(metrics.GaugeOpts{Name: "installed_functions"})
			g.Set(3)
			g.With("instruction", "KDSA").Add(-1)
		}),
		Entry("histogram", func() {
			h := p.NewHistogram(metrics.HistogramOpts{Name: "operation_duration_seconds"})
			h.Observe(0.5)
			h.With("operation", "ecdh").Observe(0.001)
		}),
	)

	It("hands out the same meters for every name", func() {
		a := p.NewCounter(metrics.CounterOpts{Name: "a"})
		b := p.NewCounter(metrics.CounterOpts{Name: "a"})
		Expect(a).To(Equal(b))
		Expect(a.With("tier", "cca")).To(Equal(a))
	})
})
