// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"unifimon/common/helpers"
	"unifimon/common/reporter"
)

func TestMetrics(t *testing.T) {
	r := reporter.NewMock(t)

	counter1 := r.Counter(reporter.CounterOpts{
		Name: "counter1",
		Help: "Some counter",
	})
	counter1.Add(18)

	r.CounterFunc(reporter.CounterOpts{
		Name: "counter2",
		Help: "Some other counter",
	}, func() float64 { return 1.17 })

	counter3 := r.CounterVec(reporter.CounterOpts{
		Name: "counter3",
		Help: "Another counter",
	}, []string{"label1", "label2"})
	counter3.WithLabelValues("value1", "value2").Add(42)
	counter3.WithLabelValues("value3", "value4").Add(167)

	r.GaugeFunc(reporter.GaugeOpts{
		Name: "gauge1",
		Help: "Some gauge",
	}, func() float64 { return 77 })

	summary1 := r.SummaryVec(reporter.SummaryOpts{
		Name:       "summary1",
		Help:       "Some summary",
		Objectives: map[float64]float64{0.5: 0.05},
	}, []string{"label"})
	summary1.WithLabelValues("value1").Observe(10)

	// Registering the same metric twice returns the first one
	again := r.Counter(reporter.CounterOpts{
		Name: "counter1",
		Help: "Some counter",
	})
	again.Inc()

	gotMetrics := r.GetMetrics("unifimon_common_reporter_test_")
	expectedMetrics := map[string]string{
		`counter1`: "19",
		`counter2`: "1.17",
		`counter3{label1="value1",label2="value2"}`: "42",
		`counter3{label1="value3",label2="value4"}`: "167",
		`gauge1`: "77",
		`summary1_count{label="value1"}`:          "1",
		`summary1_sum{label="value1"}`:            "10",
		`summary1{label="value1",quantile="0.5"}`: "10",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("metrics (-got, +want):\n%s", diff)
	}

	gotMetrics = r.GetMetrics("unifimon_common_reporter_test_", "counter3")
	if len(gotMetrics) != 2 {
		t.Fatalf("GetMetrics() with subset: got %v", gotMetrics)
	}
}

type customMetrics struct {
	metric *reporter.MetricDesc
}

func (m customMetrics) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(m, ch)
}

func (m customMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(m.metric, prometheus.GaugeValue, 18)
}

func TestMetricCollector(t *testing.T) {
	r := reporter.NewMock(t)
	m := customMetrics{
		metric: r.MetricDesc("custom", "Custom metric", nil),
	}
	r.MetricCollector(m)

	gotMetrics := r.GetMetrics("unifimon_common_reporter_test_")
	expectedMetrics := map[string]string{
		`custom`: "18",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("collected metrics (-got, +want):\n%s", diff)
	}
}
