// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/netsampler/goflow2/v2/decoders/netflow"

	"unifimon/common/helpers"
	"unifimon/common/reporter"
	"unifimon/common/schema"
	"unifimon/demoexporter/flows"
	nfdecoder "unifimon/inlet/flow/decoder/netflow"
)

var (
	exporter   = netip.MustParseAddr("192.168.1.1")
	exportTime = time.Date(2026, 3, 15, 9, 14, 12, 0, time.UTC)
	uptime     = 10 * time.Minute
)

// template256 is the template sent by UniFi gateways for IPv4 flows,
// without packet count.
var template256 = flows.TemplateRecord{
	ID: 256,
	Fields: []flows.Field{
		{Type: netflow.IPFIX_FIELD_sourceIPv4Address, Length: 4},
		{Type: netflow.IPFIX_FIELD_destinationIPv4Address, Length: 4},
		{Type: netflow.IPFIX_FIELD_sourceTransportPort, Length: 2},
		{Type: netflow.IPFIX_FIELD_destinationTransportPort, Length: 2},
		{Type: netflow.IPFIX_FIELD_protocolIdentifier, Length: 1},
		{Type: netflow.IPFIX_FIELD_octetDeltaCount, Length: 4},
	},
}

func record256(src, dst string, sport, dport uint16, proto uint8, octets uint32) []byte {
	return flows.Record(netip.MustParseAddr(src), netip.MustParseAddr(dst), sport, dport, proto, octets)
}

func flow4(src, dst string, sport, dport uint16, proto uint8, octets, packets uint64) schema.FlowRecord {
	return schema.FlowRecord{
		SrcAddr:   netip.MustParseAddr(src),
		DstAddr:   netip.MustParseAddr(dst),
		IPVersion: 4,
		SrcPort:   sport,
		DstPort:   dport,
		Proto:     proto,
		Bytes:     octets,
		Packets:   packets,
	}
}

func ipfix(sets ...flows.Set) []byte {
	return flows.IPFIXPacket(exportTime, 1, 0, sets...)
}

func TestDecodeIPFIXTemplateAndData(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	payload := ipfix(
		flows.IPFIXTemplateSet(template256),
		flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
	)
	got := nfd.Decode(exporter, payload)
	expected := []schema.FlowRecord{
		flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}

	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_")
	expectedMetrics := map[string]string{
		`flows_total{exporter="192.168.1.1",version="10"}`:                     "1",
		`packets_total{exporter="192.168.1.1",version="10"}`:                   "1",
		`sets_total{exporter="192.168.1.1",result="decoded",version="10"}`:     "2",
		`templates_total{action="upsert",exporter="192.168.1.1",version="10"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeTemplateAcrossPackets(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	got := nfd.Decode(exporter, ipfix(flows.IPFIXTemplateSet(template256)))
	if len(got) != 0 {
		t.Fatalf("Decode() returned %d flows for a template-only packet", len(got))
	}
	got = nfd.Decode(exporter, ipfix(
		flows.DataSet(256,
			record256("192.168.1.10", "1.1.1.1", 40000, 53, 17, 120),
			record256("192.168.1.11", "1.0.0.1", 40001, 853, 6, 3000)),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.10", "1.1.1.1", 40000, 53, 17, 120, 0),
		flow4("192.168.1.11", "1.0.0.1", 40001, 853, 6, 3000, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}

	// Another exporter does not share templates
	got = nfd.Decode(netip.MustParseAddr("192.168.1.2"), ipfix(
		flows.DataSet(256, record256("192.168.1.10", "1.1.1.1", 40000, 53, 17, 120)),
	))
	if len(got) != 0 {
		t.Fatalf("Decode() used templates from another exporter")
	}

	// Another observation domain does not share templates either
	got = nfd.Decode(exporter, flows.IPFIXPacket(exportTime, 2, 1,
		flows.DataSet(256, record256("192.168.1.10", "1.1.1.1", 40000, 53, 17, 120)),
	))
	if len(got) != 0 {
		t.Fatalf("Decode() used templates from another observation domain")
	}
}

func TestDecodeTemplateRedefinition(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	// Same definition twice is idempotent
	nfd.Decode(exporter, ipfix(flows.IPFIXTemplateSet(template256)))
	nfd.Decode(exporter, ipfix(flows.IPFIXTemplateSet(template256)))
	if got := nfd.Templates(exporter).Len(); got != 1 {
		t.Fatalf("Templates().Len() == %d, expected 1", got)
	}

	// A new definition replaces the previous one
	redefined := flows.TemplateRecord{
		ID: 256,
		Fields: []flows.Field{
			{Type: netflow.IPFIX_FIELD_destinationIPv4Address, Length: 4},
			{Type: netflow.IPFIX_FIELD_packetDeltaCount, Length: 2},
		},
	}
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXTemplateSet(redefined),
		flows.DataSet(256, flows.Record(netip.MustParseAddr("8.8.4.4"), uint16(7))),
	))
	expected := []schema.FlowRecord{
		flow4("0.0.0.0", "8.8.4.4", 0, 0, 0, 0, 7),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestDecodeUnknownTemplate(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	got := nfd.Decode(exporter, ipfix(
		flows.DataSet(300, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
		flows.IPFIXTemplateSet(template256),
		flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_", "sets_total", "errors_total")
	expectedMetrics := map[string]string{
		`sets_total{exporter="192.168.1.1",result="decoded",version="10"}`: "2",
		`sets_total{exporter="192.168.1.1",result="skipped",version="10"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeWithdrawal(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	template257 := template256
	template257.ID = 257
	nfd.Decode(exporter, ipfix(flows.IPFIXTemplateSet(template256, template257)))
	if got := nfd.Templates(exporter).Len(); got != 2 {
		t.Fatalf("Templates().Len() == %d, expected 2", got)
	}

	// Withdraw one template, data for it is skipped
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXWithdrawalSet(256),
		flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
		flows.DataSet(257, record256("192.168.1.12", "8.8.8.8", 54321, 443, 6, 100)),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.12", "8.8.8.8", 54321, 443, 6, 100, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}

	// Withdrawing an unknown template is harmless
	nfd.Decode(exporter, ipfix(flows.IPFIXWithdrawalSet(400)))
	if got := nfd.Templates(exporter).Len(); got != 1 {
		t.Fatalf("Templates().Len() == %d, expected 1", got)
	}

	// Withdraw all templates
	nfd.Decode(exporter, ipfix(flows.IPFIXWithdrawalSet(2)))
	if got := nfd.Templates(exporter).Len(); got != 0 {
		t.Fatalf("Templates().Len() == %d, expected 0", got)
	}

	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_", "templates_total")
	expectedMetrics := map[string]string{
		`templates_total{action="upsert",exporter="192.168.1.1",version="10"}`:   "2",
		`templates_total{action="withdraw",exporter="192.168.1.1",version="10"}`: "3",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeOptionsWithdrawAll(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	options := flows.TemplateRecord{
		ID:              258,
		ScopeFieldCount: 1,
		Fields: []flows.Field{
			{Type: 149, Length: 4},
			{Type: netflow.IPFIX_FIELD_samplingInterval, Length: 4},
		},
	}
	nfd.Decode(exporter, ipfix(
		flows.IPFIXTemplateSet(template256),
		flows.IPFIXOptionsTemplateSet(options),
	))
	if got := nfd.Templates(exporter).Len(); got != 2 {
		t.Fatalf("Templates().Len() == %d, expected 2", got)
	}

	// Withdrawing all options templates keeps regular templates
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXOptionsWithdrawalSet(3),
		flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
	if got := nfd.Templates(exporter).Len(); got != 1 {
		t.Fatalf("Templates().Len() == %d, expected 1", got)
	}

	// Withdrawing all regular templates
	nfd.Decode(exporter, ipfix(flows.IPFIXWithdrawalSet(2)))
	if got := nfd.Templates(exporter).Len(); got != 0 {
		t.Fatalf("Templates().Len() == %d, expected 0", got)
	}
}

func TestDecodeMissingFields(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	template := flows.TemplateRecord{
		ID: 260,
		Fields: []flows.Field{
			{Type: netflow.IPFIX_FIELD_sourceIPv4Address, Length: 4},
			{Type: netflow.IPFIX_FIELD_flowStartMilliseconds, Length: 8},
		},
	}
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXTemplateSet(template),
		flows.DataSet(260, flows.Record(netip.MustParseAddr("192.168.1.20"), uint64(1773566052000))),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.20", "0.0.0.0", 0, 0, 0, 0, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestDecodeIPv6(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	template := flows.TemplateRecord{
		ID: 257,
		Fields: []flows.Field{
			{Type: netflow.IPFIX_FIELD_sourceIPv6Address, Length: 16},
			{Type: netflow.IPFIX_FIELD_destinationIPv6Address, Length: 16},
			{Type: netflow.IPFIX_FIELD_sourceTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_destinationTransportPort, Length: 2},
			{Type: netflow.IPFIX_FIELD_protocolIdentifier, Length: 1},
			{Type: netflow.IPFIX_FIELD_octetDeltaCount, Length: 8},
			{Type: netflow.IPFIX_FIELD_packetDeltaCount, Length: 8},
		},
	}
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXTemplateSet(template),
		flows.DataSet(257, flows.Record(
			netip.MustParseAddr("2001:db8::10"), netip.MustParseAddr("2606:4700::1111"),
			uint16(50123), uint16(443), uint8(17), uint64(1<<33), uint64(12))),
	))
	expected := []schema.FlowRecord{
		{
			SrcAddr:   netip.MustParseAddr("2001:db8::10"),
			DstAddr:   netip.MustParseAddr("2606:4700::1111"),
			IPVersion: 6,
			SrcPort:   50123,
			DstPort:   443,
			Proto:     17,
			Bytes:     1 << 33,
			Packets:   12,
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestDecodeEnterpriseAndVariableLengthFields(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	template := flows.TemplateRecord{
		ID: 258,
		Fields: []flows.Field{
			{Type: netflow.IPFIX_FIELD_sourceIPv4Address, Length: 4},
			{Type: 12, Length: 4, EnterpriseNumber: 41715},
			{Type: netflow.IPFIX_FIELD_applicationName, Length: 65535},
			{Type: netflow.IPFIX_FIELD_destinationIPv4Address, Length: 4},
			{Type: netflow.IPFIX_FIELD_octetDeltaCount, Length: 4},
		},
	}
	long := make([]byte, 300)
	got := nfd.Decode(exporter, ipfix(
		flows.IPFIXTemplateSet(template),
		flows.DataSet(258,
			flows.Record(netip.MustParseAddr("192.168.1.30"),
				netip.MustParseAddr("10.0.0.1"), // enterprise field, ignored
				flows.VariableLength([]byte("dns")),
				netip.MustParseAddr("9.9.9.9"), uint32(500)),
			flows.Record(netip.MustParseAddr("192.168.1.31"),
				netip.MustParseAddr("10.0.0.1"),
				flows.VariableLength(long),
				netip.MustParseAddr("9.9.9.10"), uint32(600)),
		),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.30", "9.9.9.9", 0, 0, 0, 500, 0),
		flow4("192.168.1.31", "9.9.9.10", 0, 0, 0, 600, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestDecodeBrokenSets(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	nfd.Decode(exporter, ipfix(flows.IPFIXTemplateSet(template256)))

	t.Run("record overrun", func(t *testing.T) {
		// Second record is truncated, first one is kept. Next set is decoded.
		variable := flows.TemplateRecord{
			ID: 259,
			Fields: []flows.Field{
				{Type: netflow.IPFIX_FIELD_sourceIPv4Address, Length: 4},
				{Type: netflow.IPFIX_FIELD_applicationName, Length: 65535},
			},
		}
		got := nfd.Decode(exporter, ipfix(
			flows.IPFIXTemplateSet(variable),
			flows.DataSet(259,
				flows.Record(netip.MustParseAddr("192.168.1.40"), flows.VariableLength([]byte("a"))),
				flows.Record(netip.MustParseAddr("192.168.1.41"), []byte{200, 'b'})),
			flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
		))
		expected := []schema.FlowRecord{
			flow4("192.168.1.40", "0.0.0.0", 0, 0, 0, 0, 0),
			flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
		}
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})

	t.Run("padding", func(t *testing.T) {
		got := nfd.Decode(exporter, ipfix(
			flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)).Padded(3),
		))
		expected := []schema.FlowRecord{
			flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
		}
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})

	t.Run("set overrun", func(t *testing.T) {
		payload := ipfix(
			flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
			flows.DataSet(256, record256("192.168.1.11", "8.8.8.8", 54321, 443, 6, 50000)),
		)
		// Drop the end of the last set and fix the message length
		payload = payload[:len(payload)-5]
		payload[2], payload[3] = byte(len(payload)>>8), byte(len(payload))
		got := nfd.Decode(exporter, payload)
		expected := []schema.FlowRecord{
			flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
		}
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})

	t.Run("short set", func(t *testing.T) {
		payload := ipfix(
			flows.DataSet(256, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
			flows.DataSet(256, record256("192.168.1.11", "8.8.8.8", 54321, 443, 6, 50000)),
		)
		// Second set claims a length of 2
		offset := 16 + 4 + 17
		payload[offset+2], payload[offset+3] = 0, 2
		got := nfd.Decode(exporter, payload)
		expected := []schema.FlowRecord{
			flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
		}
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})

	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_", "errors_total")
	expectedMetrics := map[string]string{
		`errors_total{error="record shorter than template",exporter="192.168.1.1"}`: "1",
		`errors_total{error="set shorter than header",exporter="192.168.1.1"}`:      "1",
		`errors_total{error="truncated set",exporter="192.168.1.1"}`:                "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeNetFlowV9(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	template := flows.TemplateRecord{
		ID: 300,
		Fields: []flows.Field{
			{Type: netflow.NFV9_FIELD_IPV4_SRC_ADDR, Length: 4},
			{Type: netflow.NFV9_FIELD_IPV4_DST_ADDR, Length: 4},
			{Type: netflow.NFV9_FIELD_L4_SRC_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_L4_DST_PORT, Length: 2},
			{Type: netflow.NFV9_FIELD_PROTOCOL, Length: 1},
			{Type: netflow.NFV9_FIELD_OUT_BYTES, Length: 4},
			{Type: netflow.NFV9_FIELD_OUT_PKTS, Length: 4},
		},
	}
	options := flows.TemplateRecord{
		ID:              301,
		ScopeFieldCount: 1,
		Fields: []flows.Field{
			{Type: 1, Length: 4},
			{Type: netflow.NFV9_FIELD_SAMPLING_INTERVAL, Length: 4},
		},
	}
	got := nfd.Decode(exporter, flows.NetFlowV9Packet(uptime, exportTime, 1, 0,
		flows.NetFlowV9TemplateSet(template),
		flows.NetFlowV9OptionsTemplateSet(options),
		flows.DataSet(301, flows.Record(uint32(0), uint32(1000))),
		flows.DataSet(300,
			flows.Record(netip.MustParseAddr("192.168.1.50"), netip.MustParseAddr("17.253.144.10"),
				uint16(60000), uint16(443), uint8(6), uint32(8000), uint32(9))),
	))
	expected := []schema.FlowRecord{
		flow4("192.168.1.50", "17.253.144.10", 60000, 443, 6, 8000, 9),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
	if got := nfd.Templates(exporter).Len(); got != 2 {
		t.Fatalf("Templates().Len() == %d, expected 2", got)
	}

	// IPFIX templates with the same ID are distinct
	got = nfd.Decode(exporter, ipfix(
		flows.DataSet(300, record256("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000)),
	))
	if len(got) != 0 {
		t.Fatalf("Decode() used NetFlow v9 template for IPFIX")
	}

	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_", "sets_total")
	expectedMetrics := map[string]string{
		`sets_total{exporter="192.168.1.1",result="decoded",version="9"}`:  "3",
		`sets_total{exporter="192.168.1.1",result="skipped",version="9"}`:  "1",
		`sets_total{exporter="192.168.1.1",result="skipped",version="10"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeLegacy(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	legacyFlows := []flows.LegacyFlow{
		{
			SrcAddr: netip.MustParseAddr("192.168.1.60"),
			DstAddr: netip.MustParseAddr("142.250.74.46"),
			SrcPort: 51000,
			DstPort: 443,
			Proto:   6,
			Packets: 20,
			Octets:  18000,
		}, {
			SrcAddr: netip.MustParseAddr("192.168.1.61"),
			DstAddr: netip.MustParseAddr("1.1.1.1"),
			SrcPort: 51001,
			DstPort: 53,
			Proto:   17,
			Packets: 1,
			Octets:  70,
		},
	}
	expected := []schema.FlowRecord{
		flow4("192.168.1.60", "142.250.74.46", 51000, 443, 6, 18000, 20),
		flow4("192.168.1.61", "1.1.1.1", 51001, 53, 17, 70, 1),
	}

	t.Run("v5", func(t *testing.T) {
		got := nfd.Decode(exporter, flows.NetFlowV5Packet(uptime, exportTime, 1, legacyFlows...))
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})
	t.Run("v5 truncated", func(t *testing.T) {
		payload := flows.NetFlowV5Packet(uptime, exportTime, 1, legacyFlows...)
		got := nfd.Decode(exporter, payload[:len(payload)-10])
		if diff := helpers.Diff(got, expected[:1]); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})
	t.Run("v1", func(t *testing.T) {
		got := nfd.Decode(exporter, flows.NetFlowV1Packet(uptime, exportTime, legacyFlows...))
		if diff := helpers.Diff(got, expected); diff != "" {
			t.Fatalf("Decode() (-got, +want):\n%s", diff)
		}
	})
	t.Run("v5 header only", func(t *testing.T) {
		payload := flows.NetFlowV5Packet(uptime, exportTime, 1, legacyFlows...)
		got := nfd.Decode(exporter, payload[:20])
		if len(got) != 0 {
			t.Fatalf("Decode() returned %d flows for a truncated header", len(got))
		}
	})
}

func TestDecodeInvalidPackets(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	cases := []struct {
		Pos     helpers.Pos
		Payload []byte
	}{
		{helpers.Mark(), []byte{}},
		{helpers.Mark(), []byte{0, 10}},
		{helpers.Mark(), []byte{0, 7, 0, 1, 0, 0, 0, 0}},
		{helpers.Mark(), []byte{0, 10, 0, 16, 0, 0}},
	}
	for _, tc := range cases {
		if got := nfd.Decode(exporter, tc.Payload); len(got) != 0 {
			t.Errorf("%sDecode() returned %d flows", tc.Pos, len(got))
		}
	}
	gotMetrics := r.GetMetrics("unifimon_inlet_flow_decoder_netflow_")
	expectedMetrics := map[string]string{
		`errors_total{error="packet shorter than header",exporter="192.168.1.1"}`: "3",
		`errors_total{error="unsupported version",exporter="192.168.1.1"}`:        "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	defer func() {
		if recover() == nil {
			t.Fatal("Decode(nil) did not panic")
		}
	}()
	nfd.Decode(exporter, nil)
}

func TestDecodeCapture(t *testing.T) {
	r := reporter.NewMock(t)
	nfd := nfdecoder.New(r)
	got := []schema.FlowRecord{}
	for _, payload := range helpers.ReadPcapPayloads(t, "testdata/ipfix.pcap") {
		got = append(got, nfd.Decode(exporter, payload)...)
	}
	expected := []schema.FlowRecord{
		flow4("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 0),
		flow4("192.168.1.11", "1.1.1.1", 40000, 53, 17, 120, 0),
		flow4("192.168.1.12", "9.9.9.9", 40001, 853, 6, 3000, 0),
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}
