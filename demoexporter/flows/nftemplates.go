// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"time"

	"github.com/netsampler/goflow2/v2/decoders/netflow"
)

const (
	ipv4TemplateID    = 256
	ipv6TemplateID    = 257
	optionsTemplateID = 258

	// maxPayloadSize is the maximum size of a data payload, assuming
	// transmission over IPv6.
	maxPayloadSize = 1400
	// maxLegacyFlows is the maximum number of flows in a NetFlow v5 packet.
	maxLegacyFlows = 30
)

var ipfixTemplates = []TemplateRecord{
	{
		ID: ipv4TemplateID,
		Fields: []Field{
			{Type: netflow.IPFIX_FIELD_sourceIPv4Address, Length: 4},
			{Type: netflow.IPFIX_FIELD_destinationIPv4Address, Length: 4},
			{Type: netflow.IPFIX_FIELD_sourceTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_destinationTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_protocolIdentifier, Length: 1},
			{Type: netflow.IPFIX_FIELD_octetDeltaCount, Length: 8},
			{Type: netflow.IPFIX_FIELD_packetDeltaCount, Length: 8},
		},
	}, {
		ID: ipv6TemplateID,
		Fields: []Field{
			{Type: netflow.IPFIX_FIELD_sourceIPv6Address, Length: 16},
			{Type: netflow.IPFIX_FIELD_destinationIPv6Address, Length: 16},
			{Type: netflow.IPFIX_FIELD_sourceTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_destinationTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_protocolIdentifier, Length: 1},
			{Type: netflow.IPFIX_FIELD_octetDeltaCount, Length: 8},
			{Type: netflow.IPFIX_FIELD_packetDeltaCount, Length: 8},
		},
	},
}

var nfv9Templates = []TemplateRecord{
	{
		ID: ipv4TemplateID,
		Fields: []Field{
			{Type: netflow.NFV9_FIELD_IPV4_SRC_ADDR, Length: 4},
			{Type: netflow.NFV9_FIELD_IPV4_DST_ADDR, Length: 4},
			{Type: netflow.NFV9_FIELD_L4_SRC_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_L4_DST_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_PROTOCOL, Length: 1},
			{Type: netflow.NFV9_FIELD_IN_BYTES, Length: 4},
			{Type: netflow.NFV9_FIELD_IN_PKTS, Length: 4},
		},
	}, {
		ID: ipv6TemplateID,
		Fields: []Field{
			{Type: netflow.NFV9_FIELD_IPV6_SRC_ADDR, Length: 16},
			{Type: netflow.NFV9_FIELD_IPV6_DST_ADDR, Length: 16},
			{Type: netflow.NFV9_FIELD_L4_SRC_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_L4_DST_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_PROTOCOL, Length: 1},
			{Type: netflow.NFV9_FIELD_IN_BYTES, Length: 4},
			{Type: netflow.NFV9_FIELD_IN_PKTS, Length: 4},
		},
	},
}

// Sampler options. The collector does not use them but real
// exporters send them along the data templates.
var nfv9OptionsTemplate = TemplateRecord{
	ID:              optionsTemplateID,
	ScopeFieldCount: 1,
	Fields: []Field{
		{Type: 1, Length: 4}, // system scope
		{Type: netflow.NFV9_FIELD_FLOW_SAMPLER_ID, Length: 2},
		{Type: netflow.NFV9_FIELD_FLOW_SAMPLER_RANDOM_INTERVAL, Length: 4},
		{Type: netflow.NFV9_FIELD_FLOW_SAMPLER_MODE, Length: 1},
	},
}

// recordLength returns the length of a data record for a template.
func recordLength(t TemplateRecord) int {
	length := 0
	for _, f := range t.Fields {
		length += int(f.Length)
	}
	return length
}

// templatePackets returns the payloads defining templates for the
// provided version. NetFlow v5 has no templates.
func templatePackets(version string, sequenceNumber, domainID uint32, start, now time.Time) [][]byte {
	switch version {
	case "ipfix":
		return [][]byte{
			IPFIXPacket(now, sequenceNumber, domainID, IPFIXTemplateSet(ipfixTemplates...)),
		}
	case "netflow9":
		options := DataSet(optionsTemplateID,
			Record([]byte{0xaa, 0xbb, 0xcc, 0xdd}, uint16(1), uint32(1), uint8(2)))
		return [][]byte{
			NetFlowV9Packet(now.Sub(start), now, sequenceNumber, domainID,
				NetFlowV9TemplateSet(nfv9Templates...),
				NetFlowV9OptionsTemplateSet(nfv9OptionsTemplate),
				options),
		}
	}
	return nil
}
