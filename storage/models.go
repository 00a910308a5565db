// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"net/netip"
	"time"

	"unifimon/common/schema"
)

// Timestamps are stored as Unix milliseconds in the ts column of each
// table.

type flowRow struct {
	ID       uint64 `gorm:"primaryKey"`
	TS       int64  `gorm:"column:ts;not null;index"`
	SrcIP    string `gorm:"column:src_ip;size:45"`
	DstIP    string `gorm:"column:dst_ip;size:45"`
	SrcPort  uint16 `gorm:"column:src_port"`
	DstPort  uint16 `gorm:"column:dst_port"`
	Protocol uint8  `gorm:"column:protocol"`
	Bytes    uint64 `gorm:"column:bytes"`
	Packets  uint64 `gorm:"column:packets"`
}

func (flowRow) TableName() string { return "netflow" }

type wanRow struct {
	ID          uint64  `gorm:"primaryKey"`
	TS          int64   `gorm:"column:ts;not null;index"`
	Status      string  `gorm:"column:status;size:32"`
	LatencyMS   float64 `gorm:"column:latency_ms"`
	DownloadBps float64 `gorm:"column:download_bps"`
	UploadBps   float64 `gorm:"column:upload_bps"`
	WANIP       string  `gorm:"column:wan_ip;size:45"`
	CPUPct      float64 `gorm:"column:cpu_pct"`
	MemPct      float64 `gorm:"column:mem_pct"`
}

func (wanRow) TableName() string { return "wan_metrics" }

type deviceRow struct {
	ID           uint64  `gorm:"primaryKey"`
	TS           int64   `gorm:"column:ts;not null;index;index:idx_devices_mac_ts,priority:2"`
	MAC          string  `gorm:"column:mac;size:17;not null;index:idx_devices_mac_ts,priority:1"`
	Name         string  `gorm:"column:name"`
	Model        string  `gorm:"column:model"`
	IP           string  `gorm:"column:ip;size:45"`
	State        int     `gorm:"column:state"`
	CPUPct       float64 `gorm:"column:cpu_pct"`
	MemPct       float64 `gorm:"column:mem_pct"`
	NumClients   int     `gorm:"column:num_clients"`
	Satisfaction int     `gorm:"column:satisfaction"`
	TxBytesRate  float64 `gorm:"column:tx_bytes_r"`
	RxBytesRate  float64 `gorm:"column:rx_bytes_r"`
}

func (deviceRow) TableName() string { return "devices" }

type clientRow struct {
	ID           uint64  `gorm:"primaryKey"`
	TS           int64   `gorm:"column:ts;not null;index;index:idx_clients_mac_ts,priority:2"`
	MAC          string  `gorm:"column:mac;size:17;not null;index:idx_clients_mac_ts,priority:1"`
	Hostname     string  `gorm:"column:hostname"`
	IP           string  `gorm:"column:ip;size:45"`
	IsWired      bool    `gorm:"column:is_wired"`
	SSID         string  `gorm:"column:ssid"`
	SignalDBM    int     `gorm:"column:signal_dbm"`
	Satisfaction int     `gorm:"column:satisfaction"`
	Channel      int     `gorm:"column:channel"`
	Radio        string  `gorm:"column:radio;size:8"`
	TxBytes      uint64  `gorm:"column:tx_bytes"`
	RxBytes      uint64  `gorm:"column:rx_bytes"`
	TxRate       float64 `gorm:"column:tx_rate"`
	RxRate       float64 `gorm:"column:rx_rate"`
}

func (clientRow) TableName() string { return "clients" }

type alarmRow struct {
	ID         uint64 `gorm:"primaryKey"`
	TS         int64  `gorm:"column:ts;not null;index"`
	AlarmID    string `gorm:"column:alarm_id"`
	Type       string `gorm:"column:type"`
	Message    string `gorm:"column:message"`
	DeviceName string `gorm:"column:device_name"`
	Archived   bool   `gorm:"column:archived"`
}

func (alarmRow) TableName() string { return "alarms" }

// tables lists every model, in migration order.
var tables = []interface {
	TableName() string
}{
	&flowRow{}, &wanRow{}, &deviceRow{}, &clientRow{}, &alarmRow{},
}

func toTS(t time.Time) int64 {
	return t.UnixMilli()
}

func fromTS(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}

func newFlowRow(ts int64, f schema.FlowRecord) flowRow {
	return flowRow{
		TS:       ts,
		SrcIP:    addrString(f.SrcAddr),
		DstIP:    addrString(f.DstAddr),
		SrcPort:  f.SrcPort,
		DstPort:  f.DstPort,
		Protocol: f.Proto,
		Bytes:    f.Bytes,
		Packets:  f.Packets,
	}
}

func addrString(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}

func newWANRow(ts int64, w schema.WANStatus) wanRow {
	return wanRow{
		TS:          ts,
		Status:      w.Status,
		LatencyMS:   w.LatencyMS,
		DownloadBps: w.DownloadBps,
		UploadBps:   w.UploadBps,
		WANIP:       w.WANIP,
		CPUPct:      w.CPUPct,
		MemPct:      w.MemPct,
	}
}

func (r wanRow) status() schema.WANStatus {
	return schema.WANStatus{
		Timestamp:   fromTS(r.TS),
		Status:      r.Status,
		LatencyMS:   r.LatencyMS,
		DownloadBps: r.DownloadBps,
		UploadBps:   r.UploadBps,
		WANIP:       r.WANIP,
		CPUPct:      r.CPUPct,
		MemPct:      r.MemPct,
	}
}

func newDeviceRow(ts int64, d schema.Device) deviceRow {
	return deviceRow{
		TS:           ts,
		MAC:          d.MAC,
		Name:         d.Name,
		Model:        d.Model,
		IP:           d.IP,
		State:        d.State,
		CPUPct:       d.CPUPct,
		MemPct:       d.MemPct,
		NumClients:   d.NumClients,
		Satisfaction: d.Satisfaction,
		TxBytesRate:  d.TxBytesRate,
		RxBytesRate:  d.RxBytesRate,
	}
}

func (r deviceRow) device() schema.Device {
	return schema.Device{
		Timestamp:    fromTS(r.TS),
		MAC:          r.MAC,
		Name:         r.Name,
		Model:        r.Model,
		IP:           r.IP,
		State:        r.State,
		CPUPct:       r.CPUPct,
		MemPct:       r.MemPct,
		NumClients:   r.NumClients,
		Satisfaction: r.Satisfaction,
		TxBytesRate:  r.TxBytesRate,
		RxBytesRate:  r.RxBytesRate,
	}
}

func newClientRow(ts int64, c schema.Client) clientRow {
	return clientRow{
		TS:           ts,
		MAC:          c.MAC,
		Hostname:     c.Hostname,
		IP:           c.IP,
		IsWired:      c.IsWired,
		SSID:         c.SSID,
		SignalDBM:    c.SignalDBM,
		Satisfaction: c.Satisfaction,
		Channel:      c.Channel,
		Radio:        c.Radio,
		TxBytes:      c.TxBytes,
		RxBytes:      c.RxBytes,
		TxRate:       c.TxRate,
		RxRate:       c.RxRate,
	}
}

func (r clientRow) client() schema.Client {
	return schema.Client{
		Timestamp:    fromTS(r.TS),
		MAC:          r.MAC,
		Hostname:     r.Hostname,
		IP:           r.IP,
		IsWired:      r.IsWired,
		SSID:         r.SSID,
		SignalDBM:    r.SignalDBM,
		Satisfaction: r.Satisfaction,
		Channel:      r.Channel,
		Radio:        r.Radio,
		TxBytes:      r.TxBytes,
		RxBytes:      r.RxBytes,
		TxRate:       r.TxRate,
		RxRate:       r.RxRate,
	}
}

func newAlarmRow(ts int64, a schema.Alarm) alarmRow {
	return alarmRow{
		TS:         ts,
		AlarmID:    a.AlarmID,
		Type:       a.Type,
		Message:    a.Message,
		DeviceName: a.DeviceName,
		Archived:   a.Archived,
	}
}

func (r alarmRow) alarm() schema.Alarm {
	return schema.Alarm{
		Timestamp:  fromTS(r.TS),
		AlarmID:    r.AlarmID,
		Type:       r.Type,
		Message:    r.Message,
		DeviceName: r.DeviceName,
		Archived:   r.Archived,
	}
}
