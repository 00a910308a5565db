// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package netflow decodes NetFlow v1, v5, v9 and IPFIX packets into flow
// records.
package netflow

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"strconv"
	"time"

	"unifimon/common/reporter"
	"unifimon/common/schema"
)

// Decoder contains the state for the NetFlow/IPFIX decoder: one template
// store per exporter. It is not safe for concurrent use: the caller
// serializes calls to Decode.
type Decoder struct {
	r         *reporter.Reporter
	errLogger reporter.Logger
	stores    map[netip.Addr]*TemplateStore

	metrics struct {
		packets   *reporter.CounterVec
		flows     *reporter.CounterVec
		errors    *reporter.CounterVec
		sets      *reporter.CounterVec
		templates *reporter.CounterVec
	}
}

// New instantiates a new NetFlow/IPFIX decoder.
func New(r *reporter.Reporter) *Decoder {
	nd := &Decoder{
		r:         r,
		errLogger: r.Sample(reporter.BurstSampler(30*time.Second, 3)),
		stores:    make(map[netip.Addr]*TemplateStore),
	}

	nd.metrics.packets = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "packets_total",
			Help: "NetFlow/IPFIX packets processed.",
		},
		[]string{"exporter", "version"},
	)
	nd.metrics.flows = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_total",
			Help: "NetFlow/IPFIX flow records decoded.",
		},
		[]string{"exporter", "version"},
	)
	nd.metrics.errors = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "NetFlow/IPFIX processing errors.",
		},
		[]string{"exporter", "error"},
	)
	nd.metrics.sets = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "sets_total",
			Help: "NetFlow/IPFIX sets processed, by result.",
		},
		[]string{"exporter", "version", "result"},
	)
	nd.metrics.templates = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "templates_total",
			Help: "NetFlow/IPFIX template definitions and withdrawals.",
		},
		[]string{"exporter", "version", "action"},
	)
	return nd
}

// Templates returns the template store for an exporter, creating it if
// needed.
func (nd *Decoder) Templates(exporter netip.Addr) *TemplateStore {
	exporter = exporter.Unmap()
	store, ok := nd.stores[exporter]
	if !ok {
		store = NewTemplateStore()
		nd.stores[exporter] = store
	}
	return store
}

// Decode decodes a NetFlow/IPFIX payload received from exporter. Malformed
// input yields fewer flows, never an error. A nil payload panics.
func (nd *Decoder) Decode(exporter netip.Addr, payload []byte) []schema.FlowRecord {
	if payload == nil {
		panic("netflow: Decode() called with a nil payload")
	}
	exporterStr := exporter.Unmap().String()
	if len(payload) < 4 {
		nd.metrics.errors.WithLabelValues(exporterStr, ErrShortHeader.Error()).Inc()
		return nil
	}

	version := binary.BigEndian.Uint16(payload)
	versionStr := strconv.Itoa(int(version))
	var flows []schema.FlowRecord
	var err error
	switch version {
	case versionV1, versionV5:
		flows, err = decodeLegacy(version, payload)
	case versionV9, versionIPFIX:
		var stats packetStats
		flows, stats, err = decodeTemplated(nd.Templates(exporter), version, payload)
		for result, count := range stats.sets {
			if count > 0 {
				nd.metrics.sets.WithLabelValues(exporterStr, versionStr, setResult(result).String()).
					Add(float64(count))
			}
		}
		if stats.templates > 0 {
			nd.metrics.templates.WithLabelValues(exporterStr, versionStr, "upsert").Add(float64(stats.templates))
		}
		if stats.withdrawals > 0 {
			nd.metrics.templates.WithLabelValues(exporterStr, versionStr, "withdraw").Add(float64(stats.withdrawals))
		}
		for _, setErr := range stats.errors {
			nd.metrics.errors.WithLabelValues(exporterStr, setErr.Error()).Inc()
			nd.errLogger.Debug().Err(setErr).Str("exporter", exporterStr).Msg("cannot decode set")
		}
	default:
		err = ErrUnsupportedVersion
	}
	if err != nil {
		nd.metrics.errors.WithLabelValues(exporterStr, err.Error()).Inc()
		if errors.Is(err, ErrUnsupportedVersion) {
			nd.errLogger.Debug().Uint16("version", version).Str("exporter", exporterStr).
				Msg("unsupported NetFlow version")
		} else {
			nd.errLogger.Debug().Err(err).Str("exporter", exporterStr).Msg("cannot decode packet")
		}
		return nil
	}
	nd.metrics.packets.WithLabelValues(exporterStr, versionStr).Inc()
	if len(flows) > 0 {
		nd.metrics.flows.WithLabelValues(exporterStr, versionStr).Add(float64(len(flows)))
	}
	return flows
}
