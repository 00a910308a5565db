// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	"github.com/netsampler/goflow2/v2/decoders/netflow"
)

type nfv9Header struct {
	Version        uint16
	Count          uint16
	SystemUptime   uint32
	UnixSeconds    uint32
	SequenceNumber uint32
	SourceID       uint32
}

type ipfixHeader struct {
	Version             uint16
	Length              uint16
	ExportTime          uint32
	SequenceNumber      uint32
	ObservationDomainID uint32
}

type nfv5Header struct {
	Version          uint16
	Count            uint16
	SystemUptime     uint32
	UnixSeconds      uint32
	UnixNanoseconds  uint32
	SequenceNumber   uint32
	EngineType       uint8
	EngineID         uint8
	SamplingInterval uint16
}

type nfv1Header struct {
	Version         uint16
	Count           uint16
	SystemUptime    uint32
	UnixSeconds     uint32
	UnixNanoseconds uint32
}

type nfv5Record struct {
	SrcAddr  [4]byte
	DstAddr  [4]byte
	NextHop  [4]byte
	Input    uint16
	Output   uint16
	Packets  uint32
	Octets   uint32
	First    uint32
	Last     uint32
	SrcPort  uint16
	DstPort  uint16
	Pad1     uint8
	TCPFlags uint8
	Proto    uint8
	ToS      uint8
	SrcAS    uint16
	DstAS    uint16
	SrcMask  uint8
	DstMask  uint8
	Pad2     uint16
}

type nfv1Record struct {
	SrcAddr  [4]byte
	DstAddr  [4]byte
	NextHop  [4]byte
	Input    uint16
	Output   uint16
	Packets  uint32
	Octets   uint32
	First    uint32
	Last     uint32
	SrcPort  uint16
	DstPort  uint16
	Pad1     uint16
	Proto    uint8
	ToS      uint8
	TCPFlags uint8
	Reserved [7]byte
}

type flowSetHeader netflow.FlowSetHeader

type templateRecordHeader struct {
	TemplateID uint16
	FieldCount uint16
}

type ipfixOptionsTemplateRecordHeader struct {
	TemplateID      uint16
	FieldCount      uint16
	ScopeFieldCount uint16
}

type nfv9OptionsTemplateRecordHeader struct {
	TemplateID   uint16
	ScopeLength  uint16
	OptionLength uint16
}

// Field is a field specifier in a template. A non-zero enterprise number
// is only encoded in IPFIX templates.
type Field struct {
	Type             uint16
	Length           uint16
	EnterpriseNumber uint32
}

// TemplateRecord is a template definition. ScopeFieldCount is only used
// for options templates: the first fields are the scope fields.
type TemplateRecord struct {
	ID              uint16
	Fields          []Field
	ScopeFieldCount int
}

// Set is a set (or flowset) to be included in a packet.
type Set struct {
	ID   uint16
	Body []byte
}

func write(buf *bytes.Buffer, data any) {
	if err := binary.Write(buf, binary.BigEndian, data); err != nil {
		panic(err)
	}
}

func writeFields(buf *bytes.Buffer, fields []Field, enterprise bool) {
	for _, f := range fields {
		if enterprise && f.EnterpriseNumber != 0 {
			write(buf, []uint16{f.Type | 0x8000, f.Length})
			write(buf, f.EnterpriseNumber)
			continue
		}
		write(buf, []uint16{f.Type, f.Length})
	}
}

// IPFIXTemplateSet builds an IPFIX template set.
func IPFIXTemplateSet(templates ...TemplateRecord) Set {
	buf := new(bytes.Buffer)
	for _, t := range templates {
		write(buf, templateRecordHeader{TemplateID: t.ID, FieldCount: uint16(len(t.Fields))})
		writeFields(buf, t.Fields, true)
	}
	return Set{ID: 2, Body: buf.Bytes()}
}

// IPFIXOptionsTemplateSet builds an IPFIX options template set.
func IPFIXOptionsTemplateSet(templates ...TemplateRecord) Set {
	buf := new(bytes.Buffer)
	for _, t := range templates {
		write(buf, ipfixOptionsTemplateRecordHeader{
			TemplateID:      t.ID,
			FieldCount:      uint16(len(t.Fields)),
			ScopeFieldCount: uint16(t.ScopeFieldCount),
		})
		writeFields(buf, t.Fields, true)
	}
	return Set{ID: 3, Body: buf.Bytes()}
}

// IPFIXWithdrawalSet builds an IPFIX template set withdrawing the
// provided templates. Withdrawing template 2 withdraws all templates.
func IPFIXWithdrawalSet(templateIDs ...uint16) Set {
	buf := new(bytes.Buffer)
	for _, id := range templateIDs {
		write(buf, templateRecordHeader{TemplateID: id})
	}
	return Set{ID: 2, Body: buf.Bytes()}
}

// IPFIXOptionsWithdrawalSet builds an IPFIX options template set
// withdrawing the provided options templates. Withdrawing template 3
// withdraws all options templates.
func IPFIXOptionsWithdrawalSet(templateIDs ...uint16) Set {
	buf := new(bytes.Buffer)
	for _, id := range templateIDs {
		write(buf, templateRecordHeader{TemplateID: id})
	}
	return Set{ID: 3, Body: buf.Bytes()}
}

// NetFlowV9TemplateSet builds a NetFlow v9 template flowset.
func NetFlowV9TemplateSet(templates ...TemplateRecord) Set {
	buf := new(bytes.Buffer)
	for _, t := range templates {
		write(buf, templateRecordHeader{TemplateID: t.ID, FieldCount: uint16(len(t.Fields))})
		writeFields(buf, t.Fields, false)
	}
	return Set{ID: 0, Body: buf.Bytes()}
}

// NetFlowV9OptionsTemplateSet builds a NetFlow v9 options template
// flowset.
func NetFlowV9OptionsTemplateSet(templates ...TemplateRecord) Set {
	buf := new(bytes.Buffer)
	for _, t := range templates {
		write(buf, nfv9OptionsTemplateRecordHeader{
			TemplateID:   t.ID,
			ScopeLength:  uint16(4 * t.ScopeFieldCount),
			OptionLength: uint16(4 * (len(t.Fields) - t.ScopeFieldCount)),
		})
		writeFields(buf, t.Fields, false)
	}
	return Set{ID: 1, Body: buf.Bytes()}
}

// DataSet builds a data set for the provided template from encoded
// records (see Record).
func DataSet(templateID uint16, records ...[]byte) Set {
	return Set{ID: templateID, Body: bytes.Join(records, nil)}
}

// Padded returns a copy of the set with padding bytes appended.
func (s Set) Padded(n int) Set {
	body := make([]byte, len(s.Body)+n)
	copy(body, s.Body)
	return Set{ID: s.ID, Body: body}
}

func (s Set) length() int {
	return len(s.Body) + 4
}

// Record encodes a record from a list of values. Integers are encoded
// big-endian using their width, addresses with their family size and
// byte slices as is.
func Record(values ...any) []byte {
	buf := new(bytes.Buffer)
	for _, value := range values {
		switch v := value.(type) {
		case uint8, uint16, uint32, uint64:
			write(buf, v)
		case netip.Addr:
			buf.Write(v.AsSlice())
		case []byte:
			buf.Write(v)
		default:
			panic(fmt.Sprintf("unsupported value type %T", value))
		}
	}
	return buf.Bytes()
}

// VariableLength encodes a variable-length IPFIX value with its length
// prefix.
func VariableLength(value []byte) []byte {
	if len(value) < 255 {
		return append([]byte{byte(len(value))}, value...)
	}
	out := []byte{255, byte(len(value) >> 8), byte(len(value))}
	return append(out, value...)
}

// IPFIXPacket builds an IPFIX packet from the provided sets.
func IPFIXPacket(exportTime time.Time, sequenceNumber, domainID uint32, sets ...Set) []byte {
	length := 16
	for _, s := range sets {
		length += s.length()
	}
	buf := new(bytes.Buffer)
	write(buf, ipfixHeader{
		Version:             10,
		Length:              uint16(length),
		ExportTime:          uint32(exportTime.Unix()),
		SequenceNumber:      sequenceNumber,
		ObservationDomainID: domainID,
	})
	writeSets(buf, sets)
	return buf.Bytes()
}

// NetFlowV9Packet builds a NetFlow v9 packet from the provided flowsets.
func NetFlowV9Packet(uptime time.Duration, now time.Time, sequenceNumber, sourceID uint32, sets ...Set) []byte {
	buf := new(bytes.Buffer)
	write(buf, nfv9Header{
		Version:        9,
		Count:          uint16(len(sets)),
		SystemUptime:   uint32(uptime.Milliseconds()),
		UnixSeconds:    uint32(now.Unix()),
		SequenceNumber: sequenceNumber,
		SourceID:       sourceID,
	})
	writeSets(buf, sets)
	return buf.Bytes()
}

func writeSets(buf *bytes.Buffer, sets []Set) {
	for _, s := range sets {
		write(buf, flowSetHeader{Id: s.ID, Length: uint16(s.length())})
		buf.Write(s.Body)
	}
}

// LegacyFlow is a flow for NetFlow v1 and v5 packets.
type LegacyFlow struct {
	SrcAddr netip.Addr
	DstAddr netip.Addr
	SrcPort uint16
	DstPort uint16
	Proto   uint8
	Packets uint32
	Octets  uint32
}

// NetFlowV5Packet builds a NetFlow v5 packet.
func NetFlowV5Packet(uptime time.Duration, now time.Time, sequenceNumber uint32, flows ...LegacyFlow) []byte {
	buf := new(bytes.Buffer)
	write(buf, nfv5Header{
		Version:         5,
		Count:           uint16(len(flows)),
		SystemUptime:    uint32(uptime.Milliseconds()),
		UnixSeconds:     uint32(now.Unix()),
		UnixNanoseconds: uint32(now.Nanosecond()),
		SequenceNumber:  sequenceNumber,
	})
	for _, f := range flows {
		write(buf, nfv5Record{
			SrcAddr: f.SrcAddr.As4(),
			DstAddr: f.DstAddr.As4(),
			Packets: f.Packets,
			Octets:  f.Octets,
			First:   uint32(uptime.Milliseconds()),
			Last:    uint32(uptime.Milliseconds()),
			SrcPort: f.SrcPort,
			DstPort: f.DstPort,
			Proto:   f.Proto,
		})
	}
	return buf.Bytes()
}

// NetFlowV1Packet builds a NetFlow v1 packet.
func NetFlowV1Packet(uptime time.Duration, now time.Time, flows ...LegacyFlow) []byte {
	buf := new(bytes.Buffer)
	write(buf, nfv1Header{
		Version:         1,
		Count:           uint16(len(flows)),
		SystemUptime:    uint32(uptime.Milliseconds()),
		UnixSeconds:     uint32(now.Unix()),
		UnixNanoseconds: uint32(now.Nanosecond()),
	})
	for _, f := range flows {
		write(buf, nfv1Record{
			SrcAddr: f.SrcAddr.As4(),
			DstAddr: f.DstAddr.As4(),
			Packets: f.Packets,
			Octets:  f.Octets,
			First:   uint32(uptime.Milliseconds()),
			Last:    uint32(uptime.Milliseconds()),
			SrcPort: f.SrcPort,
			DstPort: f.DstPort,
			Proto:   f.Proto,
		})
	}
	return buf.Bytes()
}
