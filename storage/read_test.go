// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"unifimon/common/helpers"
	"unifimon/common/reporter"
	"unifimon/common/schema"
)

var base = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func flow(src, dst string, sport, dport uint16, proto uint8, octets, packets uint64) schema.FlowRecord {
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

func populateFlows(t *testing.T, c *Component) {
	t.Helper()
	ctx := context.Background()
	batches := []struct {
		ts    time.Time
		flows []schema.FlowRecord
	}{
		{base, []schema.FlowRecord{
			flow("192.168.1.10", "8.8.8.8", 54321, 443, 6, 50000, 40),
			flow("192.168.1.11", "1.1.1.1", 40000, 53, 17, 120, 1),
			flow("192.168.1.10", "1.1.1.1", 40001, 53, 17, 100, 1),
		}},
		{base.Add(2 * time.Minute), []schema.FlowRecord{
			flow("192.168.1.12", "9.9.9.9", 40002, 853, 6, 3000, 10),
			flow("192.168.1.11", "8.8.8.8", 50000, 443, 6, 20000, 20),
		}},
		{base.Add(7 * time.Minute), []schema.FlowRecord{
			flow("192.168.1.10", "1.1.1.1", 40003, 53, 17, 90, 1),
		}},
	}
	for _, batch := range batches {
		if err := c.InsertFlowBatch(ctx, batch.ts, batch.flows); err != nil {
			t.Fatalf("InsertFlowBatch() error:\n%+v", err)
		}
	}
}

func TestTrafficAggregations(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, clock.NewMock())
	populateFlows(t, c)
	ctx := context.Background()
	since := base.Add(-time.Hour)

	talkers, err := c.TopTalkers(ctx, since, 10)
	if err != nil {
		t.Fatalf("TopTalkers() error:\n%+v", err)
	}
	if diff := helpers.Diff(talkers, []HostTraffic{
		{IP: "192.168.1.10", TotalBytes: 50190, TotalPackets: 42, FlowCount: 3},
		{IP: "192.168.1.11", TotalBytes: 20120, TotalPackets: 21, FlowCount: 2},
		{IP: "192.168.1.12", TotalBytes: 3000, TotalPackets: 10, FlowCount: 1},
	}); diff != "" {
		t.Errorf("TopTalkers() (-got, +want):\n%s", diff)
	}

	talkers, err = c.TopTalkers(ctx, base, 2)
	if err != nil {
		t.Fatalf("TopTalkers() error:\n%+v", err)
	}
	if diff := helpers.Diff(talkers, []HostTraffic{
		{IP: "192.168.1.11", TotalBytes: 20000, TotalPackets: 20, FlowCount: 1},
		{IP: "192.168.1.12", TotalBytes: 3000, TotalPackets: 10, FlowCount: 1},
	}); diff != "" {
		t.Errorf("TopTalkers(base, 2) (-got, +want):\n%s", diff)
	}

	destinations, err := c.TopDestinations(ctx, since, 10)
	if err != nil {
		t.Fatalf("TopDestinations() error:\n%+v", err)
	}
	if diff := helpers.Diff(destinations, []HostTraffic{
		{IP: "8.8.8.8", TotalBytes: 70000, TotalPackets: 60, FlowCount: 2},
		{IP: "9.9.9.9", TotalBytes: 3000, TotalPackets: 10, FlowCount: 1},
		{IP: "1.1.1.1", TotalBytes: 310, TotalPackets: 3, FlowCount: 3},
	}); diff != "" {
		t.Errorf("TopDestinations() (-got, +want):\n%s", diff)
	}

	ports, err := c.TopPorts(ctx, since, 10)
	if err != nil {
		t.Fatalf("TopPorts() error:\n%+v", err)
	}
	if diff := helpers.Diff(ports, []PortTraffic{
		{DstPort: 443, Protocol: 6, ProtocolName: "TCP", TotalBytes: 70000, FlowCount: 2},
		{DstPort: 853, Protocol: 6, ProtocolName: "TCP", TotalBytes: 3000, FlowCount: 1},
		{DstPort: 53, Protocol: 17, ProtocolName: "UDP", TotalBytes: 310, FlowCount: 3},
	}); diff != "" {
		t.Errorf("TopPorts() (-got, +want):\n%s", diff)
	}

	bandwidth, err := c.Bandwidth(ctx, since, 5*time.Minute)
	if err != nil {
		t.Fatalf("Bandwidth() error:\n%+v", err)
	}
	if diff := helpers.Diff(bandwidth, []BandwidthPoint{
		{Bucket: base, TotalBytes: 73220, TotalPackets: 72},
		{Bucket: base.Add(5 * time.Minute), TotalBytes: 90, TotalPackets: 1},
	}); diff != "" {
		t.Errorf("Bandwidth() (-got, +want):\n%s", diff)
	}
	if _, err := c.Bandwidth(ctx, since, 0); err == nil {
		t.Error("Bandwidth(0) did not error")
	}
}

func TestDNSAggregations(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, clock.NewMock())
	populateFlows(t, c)
	ctx := context.Background()
	since := base.Add(-time.Hour)

	queries, err := c.DNSQueries(ctx, since, 100)
	if err != nil {
		t.Fatalf("DNSQueries() error:\n%+v", err)
	}
	if diff := helpers.Diff(queries, []DNSConversation{
		{SrcIP: "192.168.1.10", DstIP: "1.1.1.1", TotalBytes: 190, TotalPackets: 2, QueryCount: 2},
		{SrcIP: "192.168.1.12", DstIP: "9.9.9.9", TotalBytes: 3000, TotalPackets: 10, QueryCount: 1},
		{SrcIP: "192.168.1.11", DstIP: "1.1.1.1", TotalBytes: 120, TotalPackets: 1, QueryCount: 1},
	}); diff != "" {
		t.Errorf("DNSQueries() (-got, +want):\n%s", diff)
	}

	clients, err := c.DNSTopClients(ctx, since, 20)
	if err != nil {
		t.Fatalf("DNSTopClients() error:\n%+v", err)
	}
	if diff := helpers.Diff(clients, []DNSHost{
		{IP: "192.168.1.10", TotalBytes: 190, TotalPackets: 2, QueryCount: 2},
		{IP: "192.168.1.12", TotalBytes: 3000, TotalPackets: 10, QueryCount: 1},
		{IP: "192.168.1.11", TotalBytes: 120, TotalPackets: 1, QueryCount: 1},
	}); diff != "" {
		t.Errorf("DNSTopClients() (-got, +want):\n%s", diff)
	}

	servers, err := c.DNSTopServers(ctx, since, 20)
	if err != nil {
		t.Fatalf("DNSTopServers() error:\n%+v", err)
	}
	if diff := helpers.Diff(servers, []DNSHost{
		{IP: "1.1.1.1", TotalBytes: 310, TotalPackets: 3, QueryCount: 3},
		{IP: "9.9.9.9", TotalBytes: 3000, TotalPackets: 10, QueryCount: 1},
	}); diff != "" {
		t.Errorf("DNSTopServers() (-got, +want):\n%s", diff)
	}
}

func TestEmptyDatabase(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, clock.NewMock())
	ctx := context.Background()

	wan, err := c.LatestWAN(ctx)
	if err != nil {
		t.Fatalf("LatestWAN() error:\n%+v", err)
	}
	if wan != nil {
		t.Errorf("LatestWAN() == %+v, expected nil", wan)
	}
	devices, err := c.LatestDevices(ctx)
	if err != nil {
		t.Fatalf("LatestDevices() error:\n%+v", err)
	}
	if len(devices) != 0 {
		t.Errorf("LatestDevices() == %+v, expected empty", devices)
	}
	alarms, err := c.ActiveAlarms(ctx)
	if err != nil {
		t.Fatalf("ActiveAlarms() error:\n%+v", err)
	}
	if len(alarms) != 0 {
		t.Errorf("ActiveAlarms() == %+v, expected empty", alarms)
	}
	talkers, err := c.TopTalkers(ctx, base, 10)
	if err != nil {
		t.Fatalf("TopTalkers() error:\n%+v", err)
	}
	if len(talkers) != 0 {
		t.Errorf("TopTalkers() == %+v, expected empty", talkers)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error:\n%+v", err)
	}
	if diff := helpers.Diff(stats, Stats{Rows: map[string]int64{
		"netflow": 0, "wan_metrics": 0, "devices": 0, "clients": 0, "alarms": 0,
	}}); diff != "" {
		t.Errorf("Stats() (-got, +want):\n%s", diff)
	}
}

func TestPolledData(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, clock.NewMock())
	ctx := context.Background()
	t1 := base
	t2 := base.Add(30 * time.Second)

	// WAN
	wan1 := schema.WANStatus{Status: "ok", LatencyMS: 12, WANIP: "203.0.113.4", CPUPct: 5, MemPct: 40}
	wan2 := schema.WANStatus{Status: "ok", LatencyMS: 14, WANIP: "203.0.113.4", CPUPct: 6, MemPct: 41}
	for _, sample := range []struct {
		ts  time.Time
		wan schema.WANStatus
	}{{t1, wan1}, {t2, wan2}} {
		if err := c.InsertWAN(ctx, sample.ts, sample.wan); err != nil {
			t.Fatalf("InsertWAN() error:\n%+v", err)
		}
	}
	wan1.Timestamp = t1
	wan2.Timestamp = t2
	latest, err := c.LatestWAN(ctx)
	if err != nil {
		t.Fatalf("LatestWAN() error:\n%+v", err)
	}
	if diff := helpers.Diff(latest, &wan2); diff != "" {
		t.Errorf("LatestWAN() (-got, +want):\n%s", diff)
	}
	history, err := c.WANHistory(ctx, t1.Add(-time.Second))
	if err != nil {
		t.Fatalf("WANHistory() error:\n%+v", err)
	}
	if diff := helpers.Diff(history, []schema.WANStatus{wan1, wan2}); diff != "" {
		t.Errorf("WANHistory() (-got, +want):\n%s", diff)
	}
	export, err := c.ExportWAN(ctx, t1.Add(-time.Second), 1)
	if err != nil {
		t.Fatalf("ExportWAN() error:\n%+v", err)
	}
	if diff := helpers.Diff(export, []schema.WANStatus{wan2}); diff != "" {
		t.Errorf("ExportWAN() (-got, +want):\n%s", diff)
	}

	// Devices
	gateway := schema.Device{MAC: "aa:aa:aa:aa:aa:01", Name: "gateway", Model: "UDM", State: 1}
	ap := schema.Device{MAC: "aa:aa:aa:aa:aa:02", Name: "office-ap", Model: "U6-Lite", State: 0}
	if err := c.InsertDevices(ctx, t1, []schema.Device{gateway, ap}); err != nil {
		t.Fatalf("InsertDevices() error:\n%+v", err)
	}
	if err := c.InsertDevices(ctx, t2, []schema.Device{gateway}); err != nil {
		t.Fatalf("InsertDevices() error:\n%+v", err)
	}
	devices, err := c.LatestDevices(ctx)
	if err != nil {
		t.Fatalf("LatestDevices() error:\n%+v", err)
	}
	gateway.Timestamp = t2
	if diff := helpers.Diff(devices, []schema.Device{gateway}); diff != "" {
		t.Errorf("LatestDevices() (-got, +want):\n%s", diff)
	}

	// Clients
	laptop := schema.Client{MAC: "bb:bb:bb:bb:bb:01", Hostname: "laptop", IP: "192.168.1.10", SSID: "home", SignalDBM: -55}
	printer := schema.Client{MAC: "bb:bb:bb:bb:bb:02", Hostname: "printer", IP: "192.168.1.20", IsWired: true}
	if err := c.InsertClients(ctx, t1, []schema.Client{laptop, printer}); err != nil {
		t.Fatalf("InsertClients() error:\n%+v", err)
	}
	laptop2 := laptop
	laptop2.SignalDBM = -60
	laptop2.TxBytes = 1 << 40
	if err := c.InsertClients(ctx, t2, []schema.Client{laptop2}); err != nil {
		t.Fatalf("InsertClients() error:\n%+v", err)
	}
	laptop.Timestamp = t1
	printer.Timestamp = t1
	laptop2.Timestamp = t2
	clients, err := c.LatestClients(ctx)
	if err != nil {
		t.Fatalf("LatestClients() error:\n%+v", err)
	}
	if diff := helpers.Diff(clients, []schema.Client{laptop2}); diff != "" {
		t.Errorf("LatestClients() (-got, +want):\n%s", diff)
	}
	clientHistory, err := c.ClientHistory(ctx, laptop.MAC, t1.Add(-time.Second))
	if err != nil {
		t.Fatalf("ClientHistory() error:\n%+v", err)
	}
	if diff := helpers.Diff(clientHistory, []schema.Client{laptop, laptop2}); diff != "" {
		t.Errorf("ClientHistory() (-got, +want):\n%s", diff)
	}
	clientExport, err := c.ExportClients(ctx, t1.Add(-time.Second), 10)
	if err != nil {
		t.Fatalf("ExportClients() error:\n%+v", err)
	}
	if diff := helpers.Diff(clientExport, []schema.Client{laptop2, laptop, printer}); diff != "" {
		t.Errorf("ExportClients() (-got, +want):\n%s", diff)
	}

	// Alarms
	if err := c.InsertAlarms(ctx, t1, []schema.Alarm{
		{AlarmID: "a1", Type: "EVT_GW_WANTransition", Message: "WAN down"},
	}); err != nil {
		t.Fatalf("InsertAlarms() error:\n%+v", err)
	}
	if err := c.InsertAlarms(ctx, t2, []schema.Alarm{
		{AlarmID: "a1", Type: "EVT_GW_WANTransition", Message: "WAN down", Archived: true},
		{AlarmID: "a2", Type: "EVT_AP_Lost_Contact", Message: "AP lost contact", DeviceName: "office-ap"},
	}); err != nil {
		t.Fatalf("InsertAlarms() error:\n%+v", err)
	}
	alarms, err := c.ActiveAlarms(ctx)
	if err != nil {
		t.Fatalf("ActiveAlarms() error:\n%+v", err)
	}
	if diff := helpers.Diff(alarms, []schema.Alarm{
		{Timestamp: t2, AlarmID: "a2", Type: "EVT_AP_Lost_Contact", Message: "AP lost contact", DeviceName: "office-ap"},
	}); diff != "" {
		t.Errorf("ActiveAlarms() (-got, +want):\n%s", diff)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error:\n%+v", err)
	}
	if diff := helpers.Diff(stats, Stats{
		Rows: map[string]int64{
			"netflow": 0, "wan_metrics": 2, "devices": 3, "clients": 3, "alarms": 3,
		},
		LastWrite: t2,
	}); diff != "" {
		t.Errorf("Stats() (-got, +want):\n%s", diff)
	}
}

func TestOverview(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, clock.NewMock())
	ctx := context.Background()
	now := base.Add(time.Minute)

	got, err := c.Overview(ctx, now)
	if err != nil {
		t.Fatalf("Overview() error:\n%+v", err)
	}
	if diff := helpers.Diff(got, schema.Overview{
		HealthScore:   60,
		HealthFactors: []string{"WAN down"},
		WAN:           schema.OverviewWAN{Status: schema.WANStatusNoData},
		Timestamp:     now,
	}); diff != "" {
		t.Errorf("Overview() (-got, +want):\n%s", diff)
	}

	if err := c.InsertWAN(ctx, base, schema.WANStatus{Status: "ok", LatencyMS: 60.04, WANIP: "203.0.113.4"}); err != nil {
		t.Fatalf("InsertWAN() error:\n%+v", err)
	}
	if err := c.InsertDevices(ctx, base, []schema.Device{
		{MAC: "aa:aa:aa:aa:aa:01", State: 1},
		{MAC: "aa:aa:aa:aa:aa:02", State: 0},
	}); err != nil {
		t.Fatalf("InsertDevices() error:\n%+v", err)
	}
	if err := c.InsertClients(ctx, base, []schema.Client{
		{MAC: "bb:bb:bb:bb:bb:01", IsWired: true},
		{MAC: "bb:bb:bb:bb:bb:02"},
		{MAC: "bb:bb:bb:bb:bb:03"},
	}); err != nil {
		t.Fatalf("InsertClients() error:\n%+v", err)
	}
	got, err = c.Overview(ctx, now)
	if err != nil {
		t.Fatalf("Overview() error:\n%+v", err)
	}
	if diff := helpers.Diff(got, schema.Overview{
		HealthScore:   80,
		HealthFactors: []string{"Elevated latency (60ms)", "1 device(s) offline"},
		WAN:           schema.OverviewWAN{Status: "ok", LatencyMS: 60, WANIP: "203.0.113.4"},
		Devices:       schema.OverviewDevices{Total: 2, Online: 1},
		Clients:       schema.OverviewClients{Total: 3, Wireless: 2, Wired: 1},
		Timestamp:     now,
	}); diff != "" {
		t.Errorf("Overview() (-got, +want):\n%s", diff)
	}
}
