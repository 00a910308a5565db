// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package poller

import (
	"context"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/mitchellh/mapstructure"

	"unifimon/common/schema"
)

// Programs turning controller answers into objects matching the
// mapstructure tags of the schema types. Controller firmwares disagree
// on field names and types: numbers may be strings, and several fields
// have fallbacks.
const (
	jqPrelude = `def num: (tonumber? // 0); def str: (if . == null then "" else tostring end);`

	jqWAN = jqPrelude + `
first(.[] | select(.subsystem == "wan") | {
  status: (.status // "unknown"),
  wan_ip: ((.wan_ip // .gw_wan_ip) | str),
  latency_ms: (.latency | num),
  download_bps: (.["rx_bytes-r"] | num),
  upload_bps: (.["tx_bytes-r"] | num),
  cpu_pct: (.["gw_system-stats"].cpu | num),
  mem_pct: (.["gw_system-stats"].mem | num)
})`

	jqDevices = jqPrelude + `
.[] | select((.mac // "") != "") | {
  mac: .mac,
  name: ((.name // .hostname // .mac) | str),
  model: ((if (.model | type) == "string" then .model else null end)
          // .model_long_name // .type // "unknown" | str),
  ip: (.ip | str),
  state: (.state | num),
  cpu_pct: (.["system-stats"].cpu | num),
  mem_pct: (.["system-stats"].mem | num),
  num_clients: (.num_sta | num),
  satisfaction: (.satisfaction | num),
  tx_bytes_r: (.["tx_bytes-r"] | num),
  rx_bytes_r: (.["rx_bytes-r"] | num)
}`

	jqClients = jqPrelude + `
.[] | select((.mac // "") != "") | {
  mac: .mac,
  hostname: ((.hostname // .name // .oui // .mac) | str),
  ip: (.ip | str),
  is_wired: (.is_wired == true),
  ssid: (.essid | str),
  signal_dbm: (.signal | num),
  satisfaction: (.satisfaction | num),
  channel: (.channel | num),
  radio: (.radio | str),
  tx_bytes: (.tx_bytes | num),
  rx_bytes: (.rx_bytes | num),
  tx_rate: ((.tx_rate // .["tx_bytes-r"]) | num),
  rx_rate: ((.rx_rate // .["rx_bytes-r"]) | num)
}`

	jqAlarms = jqPrelude + `
.[] | {
  alarm_id: (._id | str),
  type: ((.type // .key // "unknown") | str),
  message: ((.msg // .message) | str),
  device_name: ((.device_name // .ap_name) | str),
  archived: (.archived == true)
}`
)

// programs are the compiled normalization programs.
type programs struct {
	wan     *gojq.Code
	devices *gojq.Code
	clients *gojq.Code
	alarms  *gojq.Code
}

func compile(src string) (*gojq.Code, error) {
	query, err := gojq.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("cannot parse jq program: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("cannot compile jq program: %w", err)
	}
	return code, nil
}

func compilePrograms() (programs, error) {
	var (
		p   programs
		err error
	)
	for _, target := range []struct {
		code **gojq.Code
		src  string
	}{
		{&p.wan, jqWAN},
		{&p.devices, jqDevices},
		{&p.clients, jqClients},
		{&p.alarms, jqAlarms},
	} {
		if *target.code, err = compile(target.src); err != nil {
			return programs{}, err
		}
	}
	return p, nil
}

// normalize runs a program over the data part of an answer and decodes
// each result.
func normalize[T any](ctx context.Context, code *gojq.Code, data []interface{}) ([]T, error) {
	results := []T{}
	iter := code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("cannot execute jq program: %w", err)
		}
		var result T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &result,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		})
		if err != nil {
			panic(err)
		}
		if err := decoder.Decode(v); err != nil {
			return nil, fmt.Errorf("cannot map returned value: %w", err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (p programs) wanStatus(ctx context.Context, data []interface{}) (*schema.WANStatus, error) {
	results, err := normalize[schema.WANStatus](ctx, p.wan, data)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

func (p programs) deviceList(ctx context.Context, data []interface{}) ([]schema.Device, error) {
	return normalize[schema.Device](ctx, p.devices, data)
}

func (p programs) clientList(ctx context.Context, data []interface{}) ([]schema.Client, error) {
	return normalize[schema.Client](ctx, p.clients, data)
}

func (p programs) alarmList(ctx context.Context, data []interface{}) ([]schema.Alarm, error) {
	return normalize[schema.Alarm](ctx, p.alarms, data)
}
