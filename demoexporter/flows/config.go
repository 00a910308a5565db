// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"net/netip"
	"time"
)

// Configuration describes the configuration for the flows component.
type Configuration struct {
	// Version is the export protocol to use.
	Version string `validate:"oneof=ipfix netflow9 netflow5"`
	// Flows describe the flows we want to generate.
	Flows []FlowConfiguration `validate:"min=1,dive"`
	// Target specify the IP address and port to generate flows to.
	Target string `validate:"required,hostname_port"`
	// TemplateInterval tells how often templates are sent.
	TemplateInterval time.Duration `validate:"min=1s"`
	// DomainID is the observation domain (or source ID) to use.
	DomainID uint32
	// Seed defines a seed to add to the random generator. Without
	// one, all exporters will produce the same data if provided
	// the same flows.
	Seed int64
}

// FlowConfiguration describes the configuration for a flow.
type FlowConfiguration struct {
	// PerSecond defines how many of those flows should be created per second
	PerSecond float64 `validate:"required,gt=0"`
	// PeakHour defines the peak hour
	PeakHour time.Duration `validate:"min=0,max=24h"`
	// PeakMultiplier defines how to multiply the `PerSecond` when near the peak hour
	Multiplier float64 `validate:"required,gt=0"`
	// SrcNet defines the source network to use
	SrcNet netip.Prefix `validate:"required"`
	// DstNet defines the destination network to use
	DstNet netip.Prefix `validate:"required"`
	// SrcPort defines the source port to use
	SrcPort []uint16
	// DstPort defines the destination port to use
	DstPort []uint16
	// Proto defines the IP protocol to use
	Protocol []string `validate:"min=1,dive,oneof=tcp udp icmp"`
	// Size defines the packet size to use
	Size uint `validate:"isdefault|min=64,isdefault|max=9000"`
	// ReverseDirectionRatio generate a second flow for each flow
	// generated in the opposite direction, by applying the
	// provided ratio for the Size.
	ReverseDirectionRatio float32 `validate:"min=0"`
}

// DefaultConfiguration represents the default configuration for the flows component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Version:          "ipfix",
		Target:           "127.0.0.1:2055",
		TemplateInterval: 30 * time.Second,
	}
}
