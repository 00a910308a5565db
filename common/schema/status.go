// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package schema

import "time"

// WANStatus is the state of the uplink as reported by the gateway.
type WANStatus struct {
	Timestamp   time.Time `json:"ts" mapstructure:"-"`
	Status      string    `json:"status" mapstructure:"status"`
	LatencyMS   float64   `json:"latency_ms" mapstructure:"latency_ms"`
	DownloadBps float64   `json:"download_bps" mapstructure:"download_bps"`
	UploadBps   float64   `json:"upload_bps" mapstructure:"upload_bps"`
	WANIP       string    `json:"wan_ip" mapstructure:"wan_ip"`
	CPUPct      float64   `json:"cpu_pct" mapstructure:"cpu_pct"`
	MemPct      float64   `json:"mem_pct" mapstructure:"mem_pct"`
}

// Device is an adopted network device (gateway, switch, access point).
type Device struct {
	Timestamp    time.Time `json:"ts" mapstructure:"-"`
	MAC          string    `json:"mac" mapstructure:"mac"`
	Name         string    `json:"name" mapstructure:"name"`
	Model        string    `json:"model" mapstructure:"model"`
	IP           string    `json:"ip" mapstructure:"ip"`
	State        int       `json:"state" mapstructure:"state"`
	CPUPct       float64   `json:"cpu_pct" mapstructure:"cpu_pct"`
	MemPct       float64   `json:"mem_pct" mapstructure:"mem_pct"`
	NumClients   int       `json:"num_clients" mapstructure:"num_clients"`
	Satisfaction int       `json:"satisfaction" mapstructure:"satisfaction"`
	TxBytesRate  float64   `json:"tx_bytes_r" mapstructure:"tx_bytes_r"`
	RxBytesRate  float64   `json:"rx_bytes_r" mapstructure:"rx_bytes_r"`
}

// DeviceStateOnline is the state of a connected device.
const DeviceStateOnline = 1

// Online tells if the device is connected.
func (d Device) Online() bool {
	return d.State == DeviceStateOnline
}

// Client is a station connected to the network.
type Client struct {
	Timestamp    time.Time `json:"ts" mapstructure:"-"`
	MAC          string    `json:"mac" mapstructure:"mac"`
	Hostname     string    `json:"hostname" mapstructure:"hostname"`
	IP           string    `json:"ip" mapstructure:"ip"`
	IsWired      bool      `json:"is_wired" mapstructure:"is_wired"`
	SSID         string    `json:"ssid" mapstructure:"ssid"`
	SignalDBM    int       `json:"signal_dbm" mapstructure:"signal_dbm"`
	Satisfaction int       `json:"satisfaction" mapstructure:"satisfaction"`
	Channel      int       `json:"channel" mapstructure:"channel"`
	Radio        string    `json:"radio" mapstructure:"radio"`
	TxBytes      uint64    `json:"tx_bytes" mapstructure:"tx_bytes"`
	RxBytes      uint64    `json:"rx_bytes" mapstructure:"rx_bytes"`
	TxRate       float64   `json:"tx_rate" mapstructure:"tx_rate"`
	RxRate       float64   `json:"rx_rate" mapstructure:"rx_rate"`
}

// Alarm is an event raised by the controller.
type Alarm struct {
	Timestamp  time.Time `json:"ts" mapstructure:"-"`
	AlarmID    string    `json:"alarm_id" mapstructure:"alarm_id"`
	Type       string    `json:"type" mapstructure:"type"`
	Message    string    `json:"message" mapstructure:"message"`
	DeviceName string    `json:"device_name" mapstructure:"device_name"`
	Archived   bool      `json:"archived" mapstructure:"archived"`
}
