// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package input defines the interface of a flow input: something
// receiving NetFlow/IPFIX datagrams.
package input

import (
	"net/netip"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
)

// Input is the interface any input should meet
type Input interface {
	// Start instructs an input to start delivering datagrams.
	Start() error
	// Stop instructs the input to stop delivering datagrams.
	Stop() error
}

// HandlerFunc is called for each received datagram. The payload is only
// valid during the call.
type HandlerFunc func(exporter netip.Addr, payload []byte)

// Configuration the interface for the configuration for an input module.
type Configuration interface {
	// New instantiates a new input from its configuration.
	New(r *reporter.Reporter, daemon daemon.Component, handler HandlerFunc) (Input, error)
}
