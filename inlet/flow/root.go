// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package flow receives NetFlow/IPFIX datagrams, decodes them into flow
// records and hands batches of records to sinks.
package flow

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/common/schema"
	"unifimon/inlet/flow/decoder/netflow"
	"unifimon/inlet/flow/input"
)

// MaxPacketSize is the size of the largest datagram accepted.
const MaxPacketSize = 65535

// FlowSink receives batches of flow records. The slice is owned by the
// sink once the call starts.
type FlowSink interface {
	InsertFlowBatch(ctx context.Context, ts time.Time, flows []schema.FlowRecord) error
}

// Component represents the flow component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	inputs    []input.Input
	errLogger reporter.Logger

	// mu protects the batch, the decoder and the limiters.
	mu       sync.Mutex
	batch    batch
	decoder  *netflow.Decoder
	limiters map[netip.Addr]*rate.Limiter

	flushRequests chan struct{}

	metrics struct {
		oversized    reporter.Counter
		rateLimited  *reporter.CounterVec
		flushes      reporter.Counter
		flushedFlows reporter.Counter
		flushErrors  *reporter.CounterVec
		flushSeconds reporter.Histogram
	}
}

// batch is the list of flow records waiting to be flushed.
type batch struct {
	flows []schema.FlowRecord
	first time.Time
	last  time.Time
}

// Dependencies are the dependencies of the flow component.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
	Sinks  []FlowSink
}

// New creates a new flow component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if len(configuration.Inputs) == 0 {
		return nil, errors.New("no input configured")
	}
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	c := Component{
		r:             r,
		d:             &dependencies,
		config:        configuration,
		inputs:        make([]input.Input, len(configuration.Inputs)),
		errLogger:     r.Sample(reporter.BurstSampler(time.Minute, 3)),
		decoder:       netflow.New(r),
		limiters:      make(map[netip.Addr]*rate.Limiter),
		flushRequests: make(chan struct{}, 1),
	}

	for idx, input := range c.config.Inputs {
		var err error
		c.inputs[idx], err = input.Config.New(r, c.d.Daemon, c.handlePacket)
		if err != nil {
			return nil, err
		}
	}

	c.metrics.oversized = c.r.Counter(
		reporter.CounterOpts{
			Name: "oversized_packets_total",
			Help: "Datagrams dropped because they are too large.",
		},
	)
	c.metrics.rateLimited = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "rate_limited_flows_total",
			Help: "Flows dropped by the rate limiter.",
		},
		[]string{"exporter"},
	)
	c.metrics.flushes = c.r.Counter(
		reporter.CounterOpts{
			Name: "flushes_total",
			Help: "Number of non-empty batches flushed.",
		},
	)
	c.metrics.flushedFlows = c.r.Counter(
		reporter.CounterOpts{
			Name: "flushed_flows_total",
			Help: "Number of flows handed to sinks.",
		},
	)
	c.metrics.flushErrors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flush_errors_total",
			Help: "Number of batches a sink failed to accept.",
		},
		[]string{"sink"},
	)
	c.metrics.flushSeconds = c.r.Histogram(
		reporter.HistogramOpts{
			Name:    "flush_duration_seconds",
			Help:    "Time spent flushing a batch to all sinks.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
	c.r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "pending_flows",
			Help: "Number of flows waiting to be flushed.",
		},
		func() float64 {
			return float64(c.pending())
		},
	)

	c.d.Daemon.Track(&c.t, "inlet/flow")
	return &c, nil
}

// Start starts the inputs and the flush worker.
func (c *Component) Start() error {
	c.r.Info().Msg("starting flow component")
	for _, input := range c.inputs {
		if err := input.Start(); err != nil {
			return err
		}
	}

	c.t.Go(func() error {
		ticker := c.d.Clock.Ticker(c.config.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.t.Dying():
				return nil
			case <-ticker.C:
			case <-c.flushRequests:
			}
			c.flush(context.Background())
		}
	})
	return nil
}

// Stop stops the inputs, then flushes the last batch.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("flow component stopped")
	c.r.Info().Msg("stopping flow component")
	var errs []error
	for _, input := range c.inputs {
		if err := input.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	c.t.Kill(nil)
	if err := c.t.Wait(); err != nil {
		errs = append(errs, err)
	}
	c.flush(context.Background())
	return errors.Join(errs...)
}

// LocalAddr returns the address of the first UDP input. It returns nil
// if there is none.
func (c *Component) LocalAddr() net.Addr {
	for _, input := range c.inputs {
		if in, ok := input.(interface{ LocalAddr() net.Addr }); ok {
			return in.LocalAddr()
		}
	}
	return nil
}

// handlePacket decodes a datagram and appends the resulting flows to the
// batch. A full batch triggers a flush without waiting for it.
func (c *Component) handlePacket(exporter netip.Addr, payload []byte) {
	if len(payload) > MaxPacketSize {
		c.metrics.oversized.Inc()
		c.errLogger.Warn().
			Str("exporter", exporter.String()).
			Int("size", len(payload)).
			Msg("dropping oversized datagram")
		return
	}

	c.mu.Lock()
	flows := c.decoder.Decode(exporter, payload)
	dropped := 0
	if len(flows) > 0 && c.config.RateLimit > 0 {
		accepted := c.allow(exporter, len(flows))
		dropped = len(flows) - accepted
		flows = flows[:accepted]
	}
	if len(flows) > 0 {
		now := c.d.Clock.Now()
		if len(c.batch.flows) == 0 {
			c.batch.first = now
		}
		c.batch.last = now
		c.batch.flows = append(c.batch.flows, flows...)
	}
	full := len(c.batch.flows) >= c.config.BatchSize
	c.mu.Unlock()

	if dropped > 0 {
		c.metrics.rateLimited.WithLabelValues(exporter.String()).Add(float64(dropped))
	}

	if full {
		select {
		case c.flushRequests <- struct{}{}:
		default:
		}
	}
}

// allow returns how many of count flows the rate limiter of an exporter
// accepts. Flows are admitted one by one. Must be called with the lock
// held.
func (c *Component) allow(exporter netip.Addr, count int) int {
	limiter, ok := c.limiters[exporter]
	if !ok {
		limiter = rate.NewLimiter(c.config.RateLimit, int(c.config.RateLimit))
		c.limiters[exporter] = limiter
	}
	now := c.d.Clock.Now()
	for i := range count {
		if !limiter.AllowN(now, 1) {
			return i
		}
	}
	return count
}

// flush hands the current batch to the sinks. The batch is dropped even
// when a sink fails.
func (c *Component) flush(ctx context.Context) {
	c.mu.Lock()
	b := c.batch
	c.batch = batch{}
	c.mu.Unlock()
	if len(b.flows) == 0 {
		return
	}

	start := c.d.Clock.Now()
	for _, sink := range c.d.Sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, c.config.FlushTimeout)
		err := sink.InsertFlowBatch(sinkCtx, start, b.flows)
		cancel()
		if err != nil {
			c.metrics.flushErrors.WithLabelValues(sinkName(sink)).Inc()
			c.r.Err(err).
				Int("flows", len(b.flows)).
				Time("first", b.first).
				Msg("cannot flush flow batch")
		}
	}
	c.metrics.flushes.Inc()
	c.metrics.flushedFlows.Add(float64(len(b.flows)))
	c.metrics.flushSeconds.Observe(c.d.Clock.Since(start).Seconds())
}

// pending returns the number of flows in the batch.
func (c *Component) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batch.flows)
}

func sinkName(sink FlowSink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
