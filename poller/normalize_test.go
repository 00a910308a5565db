// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package poller

import (
	"context"
	"encoding/json"
	"testing"

	"unifimon/common/helpers"
	"unifimon/common/schema"
)

func decodeJSON(t *testing.T, input string) []interface{} {
	t.Helper()
	var data []interface{}
	if err := json.Unmarshal([]byte(input), &data); err != nil {
		t.Fatalf("Unmarshal() error:\n%+v", err)
	}
	return data
}

func TestNormalize(t *testing.T) {
	p, err := compilePrograms()
	if err != nil {
		t.Fatalf("compilePrograms() error:\n%+v", err)
	}
	ctx := context.Background()

	wan, err := p.wanStatus(ctx, decodeJSON(t, cannedHealth))
	if err != nil {
		t.Fatalf("wanStatus() error:\n%+v", err)
	}
	if diff := helpers.Diff(wan, &expectedWAN); diff != "" {
		t.Errorf("wanStatus() (-got, +want):\n%s", diff)
	}

	wan, err = p.wanStatus(ctx, decodeJSON(t, `[{"subsystem": "www", "status": "ok"}]`))
	if err != nil {
		t.Fatalf("wanStatus() error:\n%+v", err)
	}
	if wan != nil {
		t.Errorf("wanStatus() == %+v, expected nil", wan)
	}

	wan, err = p.wanStatus(ctx, decodeJSON(t, `[{"subsystem": "wan", "gw_wan_ip": "198.51.100.1", "latency": "n/a"}]`))
	if err != nil {
		t.Fatalf("wanStatus() error:\n%+v", err)
	}
	if diff := helpers.Diff(wan, &schema.WANStatus{Status: "unknown", WANIP: "198.51.100.1"}); diff != "" {
		t.Errorf("wanStatus() (-got, +want):\n%s", diff)
	}

	devices, err := p.deviceList(ctx, decodeJSON(t, cannedDevices))
	if err != nil {
		t.Fatalf("deviceList() error:\n%+v", err)
	}
	if diff := helpers.Diff(devices, expectedDevices); diff != "" {
		t.Errorf("deviceList() (-got, +want):\n%s", diff)
	}

	clients, err := p.clientList(ctx, decodeJSON(t, cannedClients))
	if err != nil {
		t.Fatalf("clientList() error:\n%+v", err)
	}
	if diff := helpers.Diff(clients, expectedClients); diff != "" {
		t.Errorf("clientList() (-got, +want):\n%s", diff)
	}

	alarms, err := p.alarmList(ctx, decodeJSON(t, cannedAlarms))
	if err != nil {
		t.Fatalf("alarmList() error:\n%+v", err)
	}
	if diff := helpers.Diff(alarms, expectedAlarms); diff != "" {
		t.Errorf("alarmList() (-got, +want):\n%s", diff)
	}

	empty, err := p.deviceList(ctx, []interface{}{})
	if err != nil {
		t.Fatalf("deviceList() error:\n%+v", err)
	}
	if len(empty) != 0 {
		t.Errorf("deviceList() == %+v, expected empty", empty)
	}
}
