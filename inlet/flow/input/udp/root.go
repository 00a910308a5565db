// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package udp handles UDP listeners.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/inlet/flow/input"
)

// bufferSize is one byte larger than the largest datagram we accept, to
// let the handler notice larger ones.
const bufferSize = 65536

// Input represents the state of an UDP listener.
type Input struct {
	r      *reporter.Reporter
	t      tomb.Tomb
	config *Configuration

	metrics struct {
		bytes         *reporter.CounterVec
		packets       *reporter.CounterVec
		packetSizeSum *reporter.SummaryVec
		errors        *reporter.CounterVec
		inDrops       *reporter.GaugeVec
	}

	address net.Addr          // listening address, for testing purpose
	handler input.HandlerFunc // function to handle datagrams
}

var (
	_ input.Input         = &Input{}
	_ input.Configuration = &Configuration{}
)

// New instantiate a new UDP listener from the provided configuration.
func (configuration *Configuration) New(r *reporter.Reporter, daemon daemon.Component, handler input.HandlerFunc) (input.Input, error) {
	input := &Input{
		r:       r,
		config:  configuration,
		handler: handler,
	}

	input.metrics.bytes = r.CounterVec(
		reporter.CounterOpts{
			Name: "bytes_total",
			Help: "Bytes received by the application.",
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.packets = r.CounterVec(
		reporter.CounterOpts{
			Name: "packets_total",
			Help: "Packets received by the application.",
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.packetSizeSum = r.SummaryVec(
		reporter.SummaryOpts{
			Name:       "size_bytes",
			Help:       "Summary of packet size.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.errors = r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Errors while receiving packets by the application.",
		},
		[]string{"listener"},
	)
	input.metrics.inDrops = r.GaugeVec(
		reporter.GaugeOpts{
			Name: "in_dropped_packets",
			Help: "Dropped packets due to listen queue full.",
		},
		[]string{"listener"},
	)

	daemon.Track(&input.t, "inlet/flow/input/udp")
	return input, nil
}

// Start starts listening to the provided UDP socket and handling datagrams.
func (in *Input) Start() error {
	in.r.Info().Str("listen", in.config.Listen).Msg("starting UDP input")

	pconn, err := listenConfig.ListenPacket(in.t.Context(context.Background()), "udp", in.config.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen to %v: %w", in.config.Listen, err)
	}
	conn := pconn.(*net.UDPConn)
	in.address = conn.LocalAddr()
	in.r.Info().Str("listen", in.address.String()).Msg("UDP input listening")
	if in.config.ReceiveBuffer > 0 {
		if err := conn.SetReadBuffer(int(in.config.ReceiveBuffer)); err != nil {
			// On Linux, this does not trigger an error when we are above net.core.rmem_max.
			in.r.Warn().
				Str("error", err.Error()).
				Str("listen", in.config.Listen).
				Msgf("unable to set requested buffer size (%d bytes)", in.config.ReceiveBuffer)
		}
	}

	in.t.Go(func() error {
		payload := make([]byte, bufferSize)
		oob := make([]byte, oobLength)
		listen := in.config.Listen
		errLogger := in.r.Sample(reporter.BurstSampler(time.Minute, 1))
		for {
			n, oobn, _, source, err := conn.ReadMsgUDP(payload, oob)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				errLogger.Err(err).Msg("unable to receive UDP packet")
				in.metrics.errors.WithLabelValues(listen).Inc()
				continue
			}

			oobMsg, err := parseSocketControlMessage(oob[:oobn])
			if err != nil {
				errLogger.Err(err).Msg("unable to decode UDP control message")
			} else {
				in.metrics.inDrops.WithLabelValues(listen).Set(float64(oobMsg.Drops))
			}

			exporter := source.AddrPort().Addr().Unmap()
			exporterStr := exporter.String()
			in.metrics.bytes.WithLabelValues(listen, exporterStr).Add(float64(n))
			in.metrics.packets.WithLabelValues(listen, exporterStr).Inc()
			in.metrics.packetSizeSum.WithLabelValues(listen, exporterStr).Observe(float64(n))

			in.handler(exporter, payload[:n])
		}
	})

	// Watch for termination and close on dying
	in.t.Go(func() error {
		<-in.t.Dying()
		conn.Close()
		return nil
	})

	return nil
}

// Stop stops the UDP listener.
func (in *Input) Stop() error {
	l := in.r.With().Str("listen", in.config.Listen).Logger()
	defer l.Info().Msg("UDP listener stopped")
	in.t.Kill(nil)
	return in.t.Wait()
}

// LocalAddr returns the address the input is listening to.
func (in *Input) LocalAddr() net.Addr {
	return in.address
}
