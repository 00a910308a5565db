// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Factory registers new metrics. Unlike promauto, registering the same
// metric twice returns the existing one.
type Factory struct {
	prefix   string
	registry *prometheus.Registry
}

// register registers a collector or returns the already registered one.
func register[T prometheus.Collector](f *Factory, c T) T {
	if err := f.registry.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(T)
		}
		panic(err)
	}
	return c
}

// NewCounter registers a new counter.
func (f *Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewCounter(opts))
}

// NewCounterVec registers a new counter vector.
func (f *Factory) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewCounterVec(opts, labelNames))
}

// NewCounterFunc registers a new counter whose value is provided by a function.
func (f *Factory) NewCounterFunc(opts prometheus.CounterOpts, function func() float64) prometheus.CounterFunc {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewCounterFunc(opts, function))
}

// NewGauge registers a new gauge.
func (f *Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGauge(opts))
}

// NewGaugeVec registers a new gauge vector.
func (f *Factory) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGaugeVec(opts, labelNames))
}

// NewGaugeFunc registers a new gauge whose value is provided by a function.
func (f *Factory) NewGaugeFunc(opts prometheus.GaugeOpts, function func() float64) prometheus.GaugeFunc {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGaugeFunc(opts, function))
}

// NewSummary registers a new summary.
func (f *Factory) NewSummary(opts prometheus.SummaryOpts) prometheus.Summary {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewSummary(opts))
}

// NewSummaryVec registers a new summary vector.
func (f *Factory) NewSummaryVec(opts prometheus.SummaryOpts, labelNames []string) *prometheus.SummaryVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewSummaryVec(opts, labelNames))
}

// NewHistogram registers a new histogram.
func (f *Factory) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewHistogram(opts))
}

// NewHistogramVec registers a new histogram vector.
func (f *Factory) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewHistogramVec(opts, labelNames))
}
