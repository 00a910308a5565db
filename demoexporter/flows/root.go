// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package flows simulates a UniFi gateway exporting IPFIX, NetFlow v9
// or NetFlow v5. It also provides the builders to craft such packets.
package flows

import (
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
)

// Component represents the flows component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	metrics struct {
		sent   *reporter.CounterVec
		errors *reporter.CounterVec
	}
}

// Dependencies define the dependencies of the flows component.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
}

// New creates a new flows component.
func New(r *reporter.Reporter, config Configuration, dependencies Dependencies) (*Component, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	c := Component{
		r:      r,
		d:      &dependencies,
		config: config,
	}

	c.metrics.sent = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "sent_packets_total",
			Help: "Number of packets sent.",
		},
		[]string{"type"},
	)
	c.metrics.errors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of transmission errors.",
		},
		[]string{"error"},
	)

	c.d.Daemon.Track(&c.t, "demo-exporter/flows")
	return &c, nil
}

// Start starts the flows component.
func (c *Component) Start() error {
	c.r.Info().Str("version", c.config.Version).Msg("starting flows component")
	conn, err := net.Dial("udp", c.config.Target)
	if err != nil {
		return fmt.Errorf("cannot create socket to %q: %w", c.config.Target, err)
	}

	sequenceNumber := uint32(1)
	start := c.d.Clock.Now()
	ticker := c.d.Clock.Ticker(time.Second)
	errLogger := c.r.Sample(reporter.BurstSampler(time.Minute, 10))
	templateEvery := int(c.config.TemplateInterval / time.Second)
	if templateEvery < 1 {
		templateEvery = 1
	}

	c.t.Go(func() error {
		defer conn.Close()
		defer ticker.Stop()
		transmit := func(kind string, payloads [][]byte) {
			for _, payload := range payloads {
				if _, err := conn.Write(payload); err != nil {
					c.metrics.errors.WithLabelValues("cannot write").Inc()
					errLogger.Err(err).Msg("unable to send UDP payload")
				} else {
					c.metrics.sent.WithLabelValues(kind).Inc()
				}
			}
		}
		ticks := 0
		for {
			select {
			case <-c.t.Dying():
				return nil
			case now := <-ticker.C:
				if ticks%templateEvery == 0 {
					transmit("template",
						templatePackets(c.config.Version, sequenceNumber,
							c.config.DomainID, start, now))
				}
				ticks++
				flows := generateFlows(c.config.Flows, c.config.Seed, now)
				transmit("data",
					dataPackets(c.config.Version, flows, &sequenceNumber,
						c.config.DomainID, start, now))
			}
		}
	})
	return nil
}

// Stop stops the flows component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("flows component stopped")
	c.r.Info().Msg("stopping the flows component")
	c.t.Kill(nil)
	return c.t.Wait()
}
