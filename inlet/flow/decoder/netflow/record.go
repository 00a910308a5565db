// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"encoding/binary"
	"errors"
	"net/netip"

	"github.com/netsampler/goflow2/v2/decoders/netflow"

	"unifimon/common/schema"
)

// FieldKind tells which member of a FieldValue is set.
type FieldKind uint8

const (
	// KindUnsigned is an unsigned big-endian integer. Only the low 8
	// bytes of wider values are kept.
	KindUnsigned FieldKind = iota + 1
	// KindAddress is an IPv4 or IPv6 address.
	KindAddress
	// KindBytes is a variable-length value, kept opaque.
	KindBytes
)

// FieldValue is a decoded field value.
type FieldValue struct {
	Kind     FieldKind
	Unsigned uint64
	Addr     netip.Addr
	Raw      []byte
}

// ErrShortRecord is returned when a record is shorter than its template.
var ErrShortRecord = errors.New("record shorter than template")

// fieldIPVersion is the IANA ipVersion information element.
const fieldIPVersion = 60

// addressWidth gives the expected width of fields holding an address.
var addressWidth = map[uint16]int{
	netflow.IPFIX_FIELD_sourceIPv4Address:      4,
	netflow.IPFIX_FIELD_destinationIPv4Address: 4,
	netflow.IPFIX_FIELD_sourceIPv6Address:      16,
	netflow.IPFIX_FIELD_destinationIPv6Address: 16,
}

// decodeRecord decodes one record at the start of data. It returns the
// decoded fields and the number of bytes consumed. Enterprise-specific
// fields are consumed but not returned.
func decodeRecord(t Template, data []byte) (map[uint16]FieldValue, int, error) {
	fields := make(map[uint16]FieldValue, len(t.Fields))
	offset := 0
	for _, spec := range t.Fields {
		length := int(spec.Length)
		if spec.Length == variableLength {
			if offset+1 > len(data) {
				return nil, 0, ErrShortRecord
			}
			length = int(data[offset])
			offset++
			if length == 255 {
				if offset+2 > len(data) {
					return nil, 0, ErrShortRecord
				}
				length = int(binary.BigEndian.Uint16(data[offset:]))
				offset += 2
			}
		}
		if offset+length > len(data) {
			return nil, 0, ErrShortRecord
		}
		value := data[offset : offset+length]
		offset += length
		if spec.EnterpriseNumber != 0 {
			continue
		}
		fields[spec.Type] = decodeValue(spec, value)
	}
	return fields, offset, nil
}

func decodeValue(spec FieldSpecifier, value []byte) FieldValue {
	if width, ok := addressWidth[spec.Type]; ok {
		return FieldValue{Kind: KindAddress, Addr: decodeAddress(value, width)}
	}
	if spec.Length == variableLength {
		return FieldValue{Kind: KindBytes, Raw: value}
	}
	if len(value) > 8 {
		value = value[len(value)-8:]
	}
	return FieldValue{Kind: KindUnsigned, Unsigned: decodeUnsigned(value)}
}

// decodeUnsigned decodes a big-endian unsigned integer of up to 8 bytes.
func decodeUnsigned(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b))
	case 8:
		return binary.BigEndian.Uint64(b)
	}
	var o uint64
	for _, v := range b {
		o = o<<8 | uint64(v)
	}
	return o
}

// decodeAddress decodes an address of the provided width (4 or 16). A
// value with another size is left-padded with zeroes or truncated to its
// low-order bytes.
func decodeAddress(b []byte, width int) netip.Addr {
	if len(b) > width {
		b = b[len(b)-width:]
	}
	if width == 4 {
		var a [4]byte
		copy(a[4-len(b):], b)
		return netip.AddrFrom4(a)
	}
	var a [16]byte
	copy(a[16-len(b):], b)
	return netip.AddrFrom16(a)
}

// Ordered aliases for each normalized field. IPFIX information elements
// and NetFlow v9 field types share their numbers: each IPFIX name is
// paired with the NetFlow v9 name of the same number for readability.
// Only the following entries are real fallbacks.
var (
	aliasSrcAddr4 = []uint16{netflow.IPFIX_FIELD_sourceIPv4Address, netflow.NFV9_FIELD_IPV4_SRC_ADDR}
	aliasDstAddr4 = []uint16{netflow.IPFIX_FIELD_destinationIPv4Address, netflow.NFV9_FIELD_IPV4_DST_ADDR}
	aliasSrcAddr6 = []uint16{netflow.IPFIX_FIELD_sourceIPv6Address, netflow.NFV9_FIELD_IPV6_SRC_ADDR}
	aliasDstAddr6 = []uint16{netflow.IPFIX_FIELD_destinationIPv6Address, netflow.NFV9_FIELD_IPV6_DST_ADDR}
	aliasSrcPort  = []uint16{netflow.IPFIX_FIELD_sourceTransportPort, netflow.NFV9_FIELD_L4_SRC_PORT}
	aliasDstPort  = []uint16{netflow.IPFIX_FIELD_destinationTransportPort, netflow.NFV9_FIELD_L4_DST_PORT}
	aliasProto    = []uint16{netflow.IPFIX_FIELD_protocolIdentifier, netflow.NFV9_FIELD_PROTOCOL}
	aliasBytes    = []uint16{
		netflow.IPFIX_FIELD_octetDeltaCount, netflow.NFV9_FIELD_IN_BYTES,
		netflow.IPFIX_FIELD_postOctetDeltaCount, netflow.NFV9_FIELD_OUT_BYTES,
		netflow.IPFIX_FIELD_initiatorOctets,
	}
	aliasPackets = []uint16{
		netflow.IPFIX_FIELD_packetDeltaCount, netflow.NFV9_FIELD_IN_PKTS,
		netflow.IPFIX_FIELD_postPacketDeltaCount, netflow.NFV9_FIELD_OUT_PKTS,
	}
)

func lookup(fields map[uint16]FieldValue, kind FieldKind, aliases []uint16) (FieldValue, bool) {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && v.Kind == kind {
			return v, true
		}
	}
	return FieldValue{}, false
}

func lookupUnsigned(fields map[uint16]FieldValue, aliases []uint16) uint64 {
	v, _ := lookup(fields, KindUnsigned, aliases)
	return v.Unsigned
}

// recordIPVersion tells if a record is IPv4 or IPv6. An explicit
// ipVersion field wins. Otherwise, a record with only IPv6 addresses is
// IPv6.
func recordIPVersion(fields map[uint16]FieldValue) uint8 {
	if v, ok := fields[fieldIPVersion]; ok && v.Kind == KindUnsigned {
		if v.Unsigned == 6 {
			return 6
		}
		return 4
	}
	_, src4 := lookup(fields, KindAddress, aliasSrcAddr4)
	_, dst4 := lookup(fields, KindAddress, aliasDstAddr4)
	if src4 || dst4 {
		return 4
	}
	_, src6 := lookup(fields, KindAddress, aliasSrcAddr6)
	_, dst6 := lookup(fields, KindAddress, aliasDstAddr6)
	if src6 || dst6 {
		return 6
	}
	return 4
}

// project turns decoded fields into a flow record. Missing fields keep
// their default value.
func project(fields map[uint16]FieldValue) schema.FlowRecord {
	version := recordIPVersion(fields)
	fr := schema.NewFlowRecord(version)
	srcAliases, dstAliases := aliasSrcAddr4, aliasDstAddr4
	if version == 6 {
		srcAliases, dstAliases = aliasSrcAddr6, aliasDstAddr6
	}
	if v, ok := lookup(fields, KindAddress, srcAliases); ok {
		fr.SrcAddr = v.Addr
	}
	if v, ok := lookup(fields, KindAddress, dstAliases); ok {
		fr.DstAddr = v.Addr
	}
	fr.SrcPort = uint16(lookupUnsigned(fields, aliasSrcPort))
	fr.DstPort = uint16(lookupUnsigned(fields, aliasDstPort))
	fr.Proto = uint8(lookupUnsigned(fields, aliasProto))
	fr.Bytes = lookupUnsigned(fields, aliasBytes)
	fr.Packets = lookupUnsigned(fields, aliasPackets)
	return fr
}
