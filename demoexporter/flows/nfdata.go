// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"time"
)

// dataPackets transforms the generated flows into UDP payloads to be
// sent on the wire. The sequence number is incremented for each
// payload (or each flow for IPFIX and NetFlow v5).
func dataPackets(version string, flows []generatedFlow, sequenceNumber *uint32, domainID uint32, start, now time.Time) [][]byte {
	payloads := [][]byte{}
	uptime := now.Sub(start)

	if version == "netflow5" {
		legacy := make([]LegacyFlow, 0, len(flows))
		for _, flow := range flows {
			if !flow.SrcAddr.Is4() {
				continue
			}
			legacy = append(legacy, LegacyFlow{
				SrcAddr: flow.SrcAddr,
				DstAddr: flow.DstAddr,
				SrcPort: flow.SrcPort,
				DstPort: flow.DstPort,
				Proto:   flow.Proto,
				Packets: flow.Packets,
				Octets:  flow.Octets,
			})
		}
		for i := 0; i < len(legacy); i += maxLegacyFlows {
			upper := min(i+maxLegacyFlows, len(legacy))
			payloads = append(payloads, NetFlowV5Packet(uptime, now, *sequenceNumber, legacy[i:upper]...))
			*sequenceNumber += uint32(upper - i)
		}
		return payloads
	}

	templates := ipfixTemplates
	if version == "netflow9" {
		templates = nfv9Templates
	}
	// IPv4 and IPv6 flows use different templates
	for idx, template := range templates {
		records := [][]byte{}
		for _, flow := range flows {
			if flow.SrcAddr.Is4() != (idx == 0) {
				continue
			}
			records = append(records, encodeFlow(version, flow))
		}
		maxRecords := (maxPayloadSize - 24) / recordLength(template)
		for i := 0; i < len(records); i += maxRecords {
			upper := min(i+maxRecords, len(records))
			set := DataSet(template.ID, records[i:upper]...)
			if version == "ipfix" {
				payloads = append(payloads, IPFIXPacket(now, *sequenceNumber, domainID, set))
				*sequenceNumber += uint32(upper - i)
			} else {
				payloads = append(payloads, NetFlowV9Packet(uptime, now, *sequenceNumber, domainID, set))
				*sequenceNumber++
			}
		}
	}
	return payloads
}

func encodeFlow(version string, flow generatedFlow) []byte {
	if version == "ipfix" {
		return Record(flow.SrcAddr, flow.DstAddr, flow.SrcPort, flow.DstPort,
			flow.Proto, uint64(flow.Octets), uint64(flow.Packets))
	}
	return Record(flow.SrcAddr, flow.DstAddr, flow.SrcPort, flow.DstPort,
		flow.Proto, flow.Octets, flow.Packets)
}
