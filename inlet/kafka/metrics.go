// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	gometrics "github.com/rcrowley/go-metrics"

	"unifimon/common/reporter"
)

type metrics struct {
	c *Component

	messagesSent reporter.Counter
	bytesSent    reporter.Counter
	errors       *reporter.CounterVec

	kafkaIncomingByteRate *reporter.MetricDesc
	kafkaOutgoingByteRate *reporter.MetricDesc
	kafkaRequestSize      *reporter.MetricDesc
	kafkaRequestLatency   *reporter.MetricDesc
	kafkaRequestsInFlight *reporter.MetricDesc
	kafkaRecordSendRate   *reporter.MetricDesc
	kafkaCompressionRatio *reporter.MetricDesc
}

func (c *Component) initMetrics() {
	c.metrics.c = c

	c.metrics.messagesSent = c.r.Counter(
		reporter.CounterOpts{
			Name: "sent_messages_total",
			Help: "Number of flow messages sent.",
		},
	)
	c.metrics.bytesSent = c.r.Counter(
		reporter.CounterOpts{
			Name: "sent_bytes_total",
			Help: "Number of bytes sent.",
		},
	)
	c.metrics.errors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of errors when sending.",
		},
		[]string{"error"},
	)

	c.metrics.kafkaIncomingByteRate = c.r.MetricDesc(
		"brokers_incoming_byte_rate",
		"Bytes/second read off a given broker.",
		[]string{"broker"})
	c.metrics.kafkaOutgoingByteRate = c.r.MetricDesc(
		"brokers_outgoing_byte_rate",
		"Bytes/second written off a given broker.",
		[]string{"broker"})
	c.metrics.kafkaRequestSize = c.r.MetricDesc(
		"brokers_request_size",
		"Distribution of the request size in bytes for a given broker.",
		[]string{"broker"})
	c.metrics.kafkaRequestLatency = c.r.MetricDesc(
		"brokers_request_latency_ms",
		"Distribution of the request latency in ms for a given broker.",
		[]string{"broker"})
	c.metrics.kafkaRequestsInFlight = c.r.MetricDesc(
		"brokers_requests_in_flight",
		"The current number of in-flight requests awaiting a response for a given broker.",
		[]string{"broker"})
	c.metrics.kafkaRecordSendRate = c.r.MetricDesc(
		"producer_record_send_rate",
		"Records/second sent.",
		nil)
	c.metrics.kafkaCompressionRatio = c.r.MetricDesc(
		"producer_compression_ratio",
		"Distribution of the compression ratio times 100 of record batches.",
		nil)

	c.r.MetricCollector(c.metrics)
}

// Describe collected metrics
func (m metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.kafkaIncomingByteRate
	ch <- m.kafkaOutgoingByteRate
	ch <- m.kafkaRequestSize
	ch <- m.kafkaRequestLatency
	ch <- m.kafkaRequestsInFlight
	ch <- m.kafkaRecordSendRate
	ch <- m.kafkaCompressionRatio
}

// Collect metrics from the sarama registry
func (m metrics) Collect(ch chan<- prometheus.Metric) {
	m.c.kafkaConfig.MetricRegistry.Each(func(name string, gom interface{}) {
		if broker := metricBroker(name, "incoming-byte-rate"); broker != "" {
			gomMeter(ch, m.kafkaIncomingByteRate, gom, broker)
			return
		}
		if broker := metricBroker(name, "outgoing-byte-rate"); broker != "" {
			gomMeter(ch, m.kafkaOutgoingByteRate, gom, broker)
			return
		}
		if broker := metricBroker(name, "request-size"); broker != "" {
			gomHistogram(ch, m.kafkaRequestSize, gom, broker)
			return
		}
		if broker := metricBroker(name, "request-latency-in-ms"); broker != "" {
			gomHistogram(ch, m.kafkaRequestLatency, gom, broker)
			return
		}
		if broker := metricBroker(name, "requests-in-flight"); broker != "" {
			snap := gom.(gometrics.Counter).Snapshot()
			ch <- prometheus.MustNewConstMetric(m.kafkaRequestsInFlight,
				prometheus.GaugeValue, float64(snap.Count()), broker)
			return
		}
		switch name {
		case "record-send-rate":
			gomMeter(ch, m.kafkaRecordSendRate, gom)
		case "compression-ratio":
			gomHistogram(ch, m.kafkaCompressionRatio, gom)
		}
	})
}

func metricBroker(name string, prefix string) string {
	prefix = prefix + "-for-broker-"
	if strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix)
	}
	return ""
}

func gomMeter(ch chan<- prometheus.Metric, desc *reporter.MetricDesc, m interface{}, labels ...string) {
	snap := m.(gometrics.Meter).Snapshot()
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, snap.Rate1(), labels...)
}

func gomHistogram(ch chan<- prometheus.Metric, desc *reporter.MetricDesc, m interface{}, labels ...string) {
	snap := m.(gometrics.Histogram).Snapshot()
	buckets := map[float64]uint64{
		0.5:  uint64(snap.Percentile(0.5)),
		0.9:  uint64(snap.Percentile(0.9)),
		0.99: uint64(snap.Percentile(0.99)),
	}
	ch <- prometheus.MustNewConstHistogram(desc, uint64(snap.Count()), float64(snap.Sum()), buckets, labels...)
}
