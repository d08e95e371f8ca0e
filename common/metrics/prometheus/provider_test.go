/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus_test

import (
	"github.com/hyperledger/fabric-ecc/common/metrics"
	"github.com/hyperledger/fabric-ecc/common/metrics/prometheus"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var _ = Describe("Provider", func() {
	var (
		registry *prom.Registry
		p        metrics.Provider
	)

	BeforeEach(func() {
		registry = prom.NewRegistry()
		p = &prometheus.Provider{Registerer: registry}
	})

	gather := func(name string) *dto.MetricFamily {
		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		for _, mf := range families {
			if mf.GetName() == name {
				return mf
			}
		}
		return nil
	}

	labels := func(m *dto.Metric) map[string]string {
		out := map[string]string{}
		for _, lp := range m.GetLabel() {
			out[lp.GetName()] = lp.GetValue()
		}
		return out
	}

	It("creates counters that accumulate per label set", func() {
		c := p.NewCounter(metrics.CounterOpts{
			Namespace:  "ecc",
			Name:       "operations_total",
			Help:       "operations",
			LabelNames: []string{"operation", "tier"},
		})
		c.With("operation", "sign", "tier", "cpacf").Add(1)
		c.With("operation", "sign", "tier", "cpacf").Add(2)
		c.With("operation", "ecdh", "tier", "cca").Add(1)

		mf := gather("ecc_operations_total")
		Expect(mf).NotTo(BeNil())
		Expect(mf.GetType()).To(Equal(dto.MetricType_COUNTER))
		Expect(mf.GetMetric()).To(HaveLen(2))
		for _, m := range mf.GetMetric() {
			switch labels(m)["operation"] {
			case "sign":
				Expect(labels(m)["tier"]).To(Equal("cpacf"))
				Expect(m.GetCounter().GetValue()).To(Equal(3.0))
			case "ecdh":
				Expect(labels(m)["tier"]).To(Equal("cca"))
				Expect(m.GetCounter().GetValue()).To(Equal(1.0))
			default:
				Fail("unexpected label set")
			}
		}
	})

	It("creates gauges", func() {
		g := p.NewGauge(metrics.GaugeOpts{
			Namespace:  "ecc",
			Subsystem:  "cpacf",
			Name:       "functions",
			Help:       "installed functions",
			LabelNames: []string{"instruction"},
		})
		g.With("instruction", "PCC").Set(7)
		g.With("instruction", "PCC").Add(-1)

		mf := gather("ecc_cpacf_functions")
		Expect(mf).NotTo(BeNil())
		Expect(mf.GetMetric()).To(HaveLen(1))
		Expect(mf.GetMetric()[0].GetGauge().GetValue()).To(Equal(6.0))
	})

	It("creates histograms with the requested buckets", func() {
		h := p.NewHistogram(metrics.HistogramOpts{
			Namespace:  "ecc",
			Name:       "operation_duration_seconds",
			Help:       "duration",
			Buckets:    []float64{0.001, 0.01},
			LabelNames: []string{"operation"},
		})
		h.With("operation", "keygen").Observe(0.005)
		h.With("operation", "keygen").Observe(0.5)

		mf := gather("ecc_operation_duration_seconds")
		Expect(mf).NotTo(BeNil())
		hist := mf.GetMetric()[0].GetHistogram()
		Expect(hist.GetSampleCount()).To(Equal(uint64(2)))
		Expect(hist.GetBucket()).To(HaveLen(2))
		Expect(hist.GetBucket()[0].GetCumulativeCount()).To(Equal(uint64(0)))
		Expect(hist.GetBucket()[1].GetCumulativeCount()).To(Equal(uint64(1)))
	})

	It("refuses to register a name twice", func() {
		opts := metrics.CounterOpts{Name: "twice", Help: "twice"}
		p.NewCounter(opts)
		Expect(func() { p.NewCounter(opts) }).To(Panic())
	})
})
