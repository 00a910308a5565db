// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package schema

import "net/netip"

// FlowRecord is one decoded flow. Every field always holds a value: when
// the exporter did not provide one, addresses are the unspecified address
// of the family and numbers are 0.
type FlowRecord struct {
	SrcAddr   netip.Addr `json:"src_ip"`
	DstAddr   netip.Addr `json:"dst_ip"`
	IPVersion uint8      `json:"ip_version"`
	SrcPort   uint16     `json:"src_port"`
	DstPort   uint16     `json:"dst_port"`
	Proto     uint8      `json:"protocol"`
	Bytes     uint64     `json:"bytes"`
	Packets   uint64     `json:"packets"`
}

// NewFlowRecord returns a flow record for the provided IP version with
// addresses set to the unspecified address.
func NewFlowRecord(ipVersion uint8) FlowRecord {
	fr := FlowRecord{IPVersion: 4, SrcAddr: netip.IPv4Unspecified(), DstAddr: netip.IPv4Unspecified()}
	if ipVersion == 6 {
		fr.IPVersion = 6
		fr.SrcAddr = netip.IPv6Unspecified()
		fr.DstAddr = netip.IPv6Unspecified()
	}
	return fr
}

// Well-known protocol numbers.
const (
	ProtoICMP   = 1
	ProtoTCP    = 6
	ProtoUDP    = 17
	ProtoICMPv6 = 58
)

// ProtocolName returns a short name for an IP protocol number.
func ProtocolName(proto uint8) string {
	switch proto {
	case ProtoICMP:
		return "ICMP"
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMPv6:
		return "ICMPv6"
	}
	return "Other"
}
