// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics handles metrics for unifimon.
//
// This is a wrapper around the Prometheus Go client. Metric names are
// prefixed with the package path of the caller.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unifimon/common/reporter/logger"
	"unifimon/common/reporter/stack"
)

// Metrics represents the internal state of the metric subsystem.
type Metrics struct {
	logger   logger.Logger
	config   Configuration
	registry *prometheus.Registry

	factoriesLock sync.RWMutex
	factories     map[string]*Factory
}

// New creates a new metric registry with the Go and process collectors
// already registered.
func New(logger logger.Logger, configuration Configuration) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return &Metrics{
		logger:    logger,
		config:    configuration,
		registry:  registry,
		factories: make(map[string]*Factory),
	}, nil
}

// HTTPHandler returns an handler serving Prometheus metrics.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: promHTTPLogger{m.logger},
	})
}

// prefixFor turns a function name into a metric prefix:
// "unifimon/inlet/flow.(*Component).flush" becomes "unifimon_inlet_flow_".
func prefixFor(function string) string {
	module := stack.ModuleName
	if strings.HasPrefix(function, stack.ModuleName) {
		module, _, _ = strings.Cut(function, ".")
	}
	return strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(module) + "_"
}

// callerFunction returns the name of the function calling into the
// reporter, skipping skip additional frames.
func callerFunction(skip int) string {
	return stack.Callers()[2+skip].FunctionName()
}

// Factory returns a factory registering metrics prefixed by the module
// of the caller. Factories are cached by calling function.
func (m *Metrics) Factory(skip int) *Factory {
	function := callerFunction(skip)

	m.factoriesLock.RLock()
	factory, ok := m.factories[function]
	m.factoriesLock.RUnlock()
	if ok {
		return factory
	}

	m.factoriesLock.Lock()
	defer m.factoriesLock.Unlock()
	factory = &Factory{
		prefix:   prefixFor(function),
		registry: m.registry,
	}
	m.factories[function] = factory
	return factory
}

// Desc creates a new metric description prefixed by the module of the
// caller.
func (m *Metrics) Desc(skip int, name, help string, variableLabels []string) *prometheus.Desc {
	return prometheus.NewDesc(prefixFor(callerFunction(skip))+name, help, variableLabels, nil)
}

// Collector registers a custom collector.
func (m *Metrics) Collector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}

// CollectorForCurrentModule registers a custom collector whose metrics
// are prefixed by the module of the caller.
func (m *Metrics) CollectorForCurrentModule(skip int, c prometheus.Collector) {
	prefix := prefixFor(callerFunction(skip))
	prometheus.WrapRegistererWithPrefix(prefix, m.registry).MustRegister(c)
}
