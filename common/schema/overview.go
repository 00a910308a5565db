// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package schema

import (
	"fmt"
	"math"
	"time"
)

// Overview is a summary of the network state at a given time.
type Overview struct {
	HealthScore   int             `json:"health_score" expr:"health_score"`
	HealthFactors []string        `json:"health_factors" expr:"health_factors"`
	WAN           OverviewWAN     `json:"wan" expr:"wan"`
	Devices       OverviewDevices `json:"devices" expr:"devices"`
	Clients       OverviewClients `json:"clients" expr:"clients"`
	Alarms        int             `json:"alarms" expr:"alarms"`
	Timestamp     time.Time       `json:"timestamp" expr:"timestamp"`
}

// OverviewWAN is the WAN part of an overview.
type OverviewWAN struct {
	Status    string  `json:"status" expr:"status"`
	LatencyMS float64 `json:"latency_ms" expr:"latency_ms"`
	WANIP     string  `json:"wan_ip" expr:"wan_ip"`
	CPUPct    float64 `json:"cpu_pct" expr:"cpu_pct"`
	MemPct    float64 `json:"mem_pct" expr:"mem_pct"`
}

// OverviewDevices counts devices.
type OverviewDevices struct {
	Total  int `json:"total" expr:"total"`
	Online int `json:"online" expr:"online"`
}

// Offline returns the number of devices not online.
func (od OverviewDevices) Offline() int {
	return od.Total - od.Online
}

// OverviewClients counts clients.
type OverviewClients struct {
	Total    int `json:"total" expr:"total"`
	Wireless int `json:"wireless" expr:"wireless"`
	Wired    int `json:"wired" expr:"wired"`
}

// WANStatusNoData is the WAN status reported when no sample exists.
const WANStatusNoData = "no data"

// NewOverview builds an overview from the latest samples. wan may be nil
// when nothing was polled yet. alarms should only contain active alarms.
func NewOverview(now time.Time, wan *WANStatus, devices []Device, clients []Client, alarms []Alarm) Overview {
	o := Overview{
		WAN:       OverviewWAN{Status: WANStatusNoData},
		Alarms:    len(alarms),
		Timestamp: now,
	}
	if wan != nil {
		o.WAN = OverviewWAN{
			Status:    wan.Status,
			LatencyMS: round1(wan.LatencyMS),
			WANIP:     wan.WANIP,
			CPUPct:    round1(wan.CPUPct),
			MemPct:    round1(wan.MemPct),
		}
		if o.WAN.Status == "" {
			o.WAN.Status = "unknown"
		}
	}
	o.Devices.Total = len(devices)
	for _, d := range devices {
		if d.Online() {
			o.Devices.Online++
		}
	}
	o.Clients.Total = len(clients)
	for _, c := range clients {
		if c.IsWired {
			o.Clients.Wired++
		} else {
			o.Clients.Wireless++
		}
	}
	o.HealthScore, o.HealthFactors = HealthScore(wan, devices, alarms)
	return o
}

// HealthScore computes a score between 0 and 100 and the factors which
// lowered it.
func HealthScore(wan *WANStatus, devices []Device, alarms []Alarm) (int, []string) {
	score := 100
	factors := []string{}

	switch {
	case wan == nil || wan.Status != "ok":
		score -= 40
		factors = append(factors, "WAN down")
	case wan.LatencyMS > 100:
		score -= 15
		factors = append(factors, fmt.Sprintf("High latency (%.0fms)", wan.LatencyMS))
	case wan.LatencyMS > 50:
		score -= 5
		factors = append(factors, fmt.Sprintf("Elevated latency (%.0fms)", wan.LatencyMS))
	}

	offline := 0
	for _, d := range devices {
		if !d.Online() {
			offline++
		}
	}
	if offline > 0 {
		score -= min(30, 15*offline)
		factors = append(factors, fmt.Sprintf("%d device(s) offline", offline))
	}

	if penalty := min(30, 5*len(alarms)); penalty > 0 {
		score -= penalty
		factors = append(factors, fmt.Sprintf("%d active alarm(s)", len(alarms)))
	}

	return max(0, score), factors
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
