// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package metrics exports the state of a stream management session to
// Prometheus.
package metrics // import "mellium.im/xmppsm/metrics"

import (
	"github.com/prometheus/client_golang/prometheus"
	"mellium.im/xmppsm/sm"
)

const subsystem = "sm"

// StatsSource is implemented by types that can report stream management
// counters.
// *sm.Manager is a StatsSource.
type StatsSource interface {
	Stats() sm.Stats
}

// Collector is a prometheus.Collector that reads the counters of a
// StatsSource each time it is scraped.
type Collector struct {
	src StatsSource

	enabled  *prometheus.Desc
	inbound  *prometheus.Desc
	outbound *prometheus.Desc
	pending  *prometheus.Desc
	acked    *prometheus.Desc
}

// NewCollector returns a collector for src.
// Metric names are prefixed with namespace, which may be empty.
func NewCollector(namespace string, src StatsSource) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, subsystem, n)
	}
	return &Collector{
		src: src,
		enabled: prometheus.NewDesc(name("enabled"),
			"Whether stream management is enabled (1) or not (0).", nil, nil),
		inbound: prometheus.NewDesc(name("inbound_count"),
			"Number of stanzas handled on the current stream, modulo 2^32.", nil, nil),
		outbound: prometheus.NewDesc(name("outbound_count"),
			"Number of stanzas sent on the current stream, modulo 2^32.", nil, nil),
		pending: prometheus.NewDesc(name("pending_stanzas"),
			"Number of sent stanzas waiting for an acknowledgement.", nil, nil),
		acked: prometheus.NewDesc(name("acked_stanzas_total"),
			"Total number of stanzas acknowledged by the remote entity.", nil, nil),
	}
}

// Describe satisfies the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enabled
	ch <- c.inbound
	ch <- c.outbound
	ch <- c.pending
	ch <- c.acked
}

// Collect satisfies the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	var enabled float64
	if st.Enabled {
		enabled = 1
	}
	ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, enabled)
	ch <- prometheus.MustNewConstMetric(c.inbound, prometheus.GaugeValue, float64(st.Inbound))
	ch <- prometheus.MustNewConstMetric(c.outbound, prometheus.GaugeValue, float64(st.Outbound))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(st.Pending))
	ch <- prometheus.MustNewConstMetric(c.acked, prometheus.CounterValue, float64(st.TotalAcked))
}
