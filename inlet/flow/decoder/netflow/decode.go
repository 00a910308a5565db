// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"encoding/binary"
	"errors"
	"net/netip"

	"unifimon/common/schema"
)

// Protocol versions.
const (
	versionV1    = 1
	versionV5    = 5
	versionV9    = 9
	versionIPFIX = 10
)

const (
	headerLengthV1    = 16
	headerLengthV5    = 24
	headerLengthV9    = 20
	headerLengthIPFIX = 16

	legacyRecordLength = 48
	maxRecordsV1       = 24
	maxRecordsV5       = 30

	setHeaderLength = 4

	setIDV9Template           = 0
	setIDV9OptionsTemplate    = 1
	setIDIPFIXTemplate        = 2
	setIDIPFIXOptionsTemplate = 3
	minDataSetID              = 256
)

var (
	// ErrShortHeader is returned when a packet is shorter than its header.
	ErrShortHeader = errors.New("packet shorter than header")
	// ErrUnsupportedVersion is returned for an unknown protocol version.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrTruncatedSet is returned when a set overruns the packet.
	ErrTruncatedSet = errors.New("truncated set")
	// ErrShortSet is returned when a set length is smaller than the set
	// header.
	ErrShortSet = errors.New("set shorter than header")
	// ErrTruncatedTemplate is returned when a template definition
	// overruns its set.
	ErrTruncatedTemplate = errors.New("truncated template")
)

// setResult is the outcome of processing one set.
type setResult int

const (
	setDecoded setResult = iota
	setSkipped
	setFailed
)

func (sr setResult) String() string {
	switch sr {
	case setDecoded:
		return "decoded"
	case setSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// packetStats summarizes what happened while decoding one packet.
type packetStats struct {
	sets        [3]int
	templates   int
	withdrawals int
	errors      []error
}

func (ps *packetStats) set(result setResult, err error) {
	ps.sets[result]++
	if err != nil {
		ps.errors = append(ps.errors, err)
	}
}

// decodeLegacy decodes NetFlow v1 and v5 packets. These packets carry
// fixed-layout records without length framing: a truncated body yields
// the records fully present.
func decodeLegacy(version uint16, payload []byte) ([]schema.FlowRecord, error) {
	headerLength, maxRecords := headerLengthV5, maxRecordsV5
	if version == versionV1 {
		headerLength, maxRecords = headerLengthV1, maxRecordsV1
	}
	if len(payload) < headerLength {
		return nil, ErrShortHeader
	}
	count := int(binary.BigEndian.Uint16(payload[2:]))
	body := payload[headerLength:]
	count = min(count, maxRecords, len(body)/legacyRecordLength)

	flows := make([]schema.FlowRecord, 0, count)
	for i := 0; i < count; i++ {
		record := body[i*legacyRecordLength : (i+1)*legacyRecordLength]
		fr := schema.NewFlowRecord(4)
		fr.SrcAddr = netip.AddrFrom4([4]byte(record[0:4]))
		fr.DstAddr = netip.AddrFrom4([4]byte(record[4:8]))
		fr.Packets = uint64(binary.BigEndian.Uint32(record[16:]))
		fr.Bytes = uint64(binary.BigEndian.Uint32(record[20:]))
		fr.SrcPort = binary.BigEndian.Uint16(record[32:])
		fr.DstPort = binary.BigEndian.Uint16(record[34:])
		fr.Proto = record[38]
		flows = append(flows, fr)
	}
	return flows, nil
}

// decodeTemplated decodes NetFlow v9 and IPFIX packets. Each set is
// processed on its own: a set failing to decode does not prevent the
// following ones to be decoded, unless its framing is broken.
func decodeTemplated(store *TemplateStore, version uint16, payload []byte) ([]schema.FlowRecord, packetStats, error) {
	var stats packetStats
	headerLength := headerLengthV9
	if version == versionIPFIX {
		headerLength = headerLengthIPFIX
	}
	if len(payload) < headerLength {
		return nil, stats, ErrShortHeader
	}
	var domainID uint32
	end := len(payload)
	if version == versionIPFIX {
		end = min(end, int(binary.BigEndian.Uint16(payload[2:])))
		domainID = binary.BigEndian.Uint32(payload[12:])
	} else {
		domainID = binary.BigEndian.Uint32(payload[16:])
	}

	flows := []schema.FlowRecord{}
	offset := headerLength
	for offset+setHeaderLength <= end {
		setID := binary.BigEndian.Uint16(payload[offset:])
		setLength := int(binary.BigEndian.Uint16(payload[offset+2:]))
		if setLength < setHeaderLength {
			stats.set(setFailed, ErrShortSet)
			break
		}
		if offset+setLength > end {
			stats.set(setFailed, ErrTruncatedSet)
			return flows, stats, nil
		}
		body := payload[offset+setHeaderLength : offset+setLength]
		offset += setLength

		switch {
		case isTemplateSet(version, setID):
			result, err := decodeTemplateSet(store, version, domainID, setID, body, &stats)
			stats.set(result, err)
		case setID >= minDataSetID:
			key := TemplateKey{Version: version, DomainID: domainID, ID: setID}
			var result setResult
			var err error
			flows, result, err = decodeDataSet(store, key, body, flows)
			stats.set(result, err)
		default:
			stats.set(setSkipped, nil)
		}
	}
	return flows, stats, nil
}

func isTemplateSet(version uint16, setID uint16) bool {
	if version == versionIPFIX {
		return setID == setIDIPFIXTemplate || setID == setIDIPFIXOptionsTemplate
	}
	return setID == setIDV9Template || setID == setIDV9OptionsTemplate
}

func isOptionsTemplateSet(setID uint16) bool {
	return setID == setIDIPFIXOptionsTemplate || setID == setIDV9OptionsTemplate
}

// decodeTemplateSet applies all template definitions of a set to the
// store. Definitions decoded before an error stay applied.
func decodeTemplateSet(store *TemplateStore, version uint16, domainID uint32, setID uint16, body []byte, stats *packetStats) (setResult, error) {
	options := isOptionsTemplateSet(setID)
	offset := 0
	for len(body)-offset >= 4 {
		templateID := binary.BigEndian.Uint16(body[offset:])
		fieldCount := int(binary.BigEndian.Uint16(body[offset+2:]))
		offset += 4

		if templateID < minDataSetID && !(version == versionIPFIX && templateID == setID) {
			// Padding
			break
		}
		if fieldCount == 0 && !(options && version == versionV9) {
			// Withdrawal
			if version == versionIPFIX && templateID == setID {
				store.WithdrawAll(version, domainID, options)
			} else {
				store.Withdraw(TemplateKey{Version: version, DomainID: domainID, ID: templateID})
			}
			stats.withdrawals++
			continue
		}

		var fields []FieldSpecifier
		var err error
		switch {
		case options && version == versionIPFIX:
			// Scope field count, then regular field specifiers.
			if len(body)-offset < 2 {
				return setFailed, ErrTruncatedTemplate
			}
			offset += 2
			fields, offset, err = decodeFieldSpecifiers(body, offset, fieldCount, true)
		case options:
			// NetFlow v9 gives the scope and option lengths in bytes.
			scopeLength := fieldCount
			if len(body)-offset < 2 {
				return setFailed, ErrTruncatedTemplate
			}
			optionLength := int(binary.BigEndian.Uint16(body[offset:]))
			offset += 2
			fields, offset, err = decodeFieldSpecifiers(body, offset, (scopeLength+optionLength)/4, false)
		default:
			fields, offset, err = decodeFieldSpecifiers(body, offset, fieldCount, version == versionIPFIX)
		}
		if err != nil {
			return setFailed, err
		}
		store.Upsert(TemplateKey{Version: version, DomainID: domainID, ID: templateID},
			Template{Fields: fields, Options: options})
		stats.templates++
	}
	return setDecoded, nil
}

// decodeFieldSpecifiers decodes count field specifiers starting at offset.
// With enterprise set, a type with the high bit set is followed by an
// enterprise number.
func decodeFieldSpecifiers(body []byte, offset int, count int, enterprise bool) ([]FieldSpecifier, int, error) {
	fields := make([]FieldSpecifier, 0, count)
	for i := 0; i < count; i++ {
		if len(body)-offset < 4 {
			return nil, offset, ErrTruncatedTemplate
		}
		spec := FieldSpecifier{
			Type:   binary.BigEndian.Uint16(body[offset:]),
			Length: binary.BigEndian.Uint16(body[offset+2:]),
		}
		offset += 4
		if enterprise && spec.Type&0x8000 != 0 {
			if len(body)-offset < 4 {
				return nil, offset, ErrTruncatedTemplate
			}
			spec.Type &= 0x7fff
			spec.EnterpriseNumber = binary.BigEndian.Uint32(body[offset:])
			offset += 4
		}
		fields = append(fields, spec)
	}
	return fields, offset, nil
}

// decodeDataSet decodes the records of a data set and appends the
// resulting flows. An unknown template skips the set. A record failing to
// decode ends the set, keeping the previous records.
func decodeDataSet(store *TemplateStore, key TemplateKey, body []byte, flows []schema.FlowRecord) ([]schema.FlowRecord, setResult, error) {
	template, ok := store.Lookup(key)
	if !ok || template.Options {
		return flows, setSkipped, nil
	}
	minLength := template.minLength()
	offset := 0
	// Trailing bytes shorter than a record are padding.
	for minLength > 0 && len(body)-offset >= minLength {
		fields, consumed, err := decodeRecord(template, body[offset:])
		if err != nil {
			return flows, setFailed, err
		}
		offset += consumed
		flows = append(flows, project(fields))
	}
	return flows, setDecoded, nil
}
