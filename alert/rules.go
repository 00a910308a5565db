// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package alert

import (
	"fmt"
	"reflect"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"unifimon/common/schema"
)

// Rule fires an alert when its condition is true for an overview.
type Rule struct {
	// Name identifies the rule in alerts and metrics.
	Name string `validate:"required"`
	// When is a boolean expression over the overview.
	When Condition
	// Value is an expression whose result is attached to the alert. It
	// is also available to Message as "value".
	Value Expression
	// Message is a string expression describing the alert.
	Message Message
	// Cooldown is the minimum time between two alerts of this rule.
	Cooldown time.Duration `validate:"min=0"`
}

// environment is what expressions can access. It contains the overview
// and a few shortcuts.
type environment struct {
	HealthScore   int                    `expr:"health_score"`
	HealthFactors []string               `expr:"health_factors"`
	WAN           schema.OverviewWAN     `expr:"wan"`
	Devices       schema.OverviewDevices `expr:"devices"`
	Clients       schema.OverviewClients `expr:"clients"`
	Alarms        int                    `expr:"alarms"`

	WANStatus     string  `expr:"wan_status"`
	WANLatency    float64 `expr:"wan_latency"`
	DeviceOffline int     `expr:"device_offline"`

	Value interface{} `expr:"value"`
}

func newEnvironment(o schema.Overview) environment {
	return environment{
		HealthScore:   o.HealthScore,
		HealthFactors: o.HealthFactors,
		WAN:           o.WAN,
		Devices:       o.Devices,
		Clients:       o.Clients,
		Alarms:        o.Alarms,
		WANStatus:     o.WAN.Status,
		WANLatency:    o.WAN.LatencyMS,
		DeviceOffline: o.Devices.Offline(),
	}
}

type compiled struct {
	program *vm.Program
	source  string
}

func (p *compiled) compile(text []byte, kind string, options ...expr.Option) error {
	options = append([]expr.Option{expr.Env(environment{})}, options...)
	program, err := expr.Compile(string(text), options...)
	if err != nil {
		return fmt.Errorf("cannot compile %s %q: %w", kind, string(text), err)
	}
	p.program = program
	p.source = string(text)
	return nil
}

func (p compiled) run(env environment) (interface{}, error) {
	if p.program == nil {
		return nil, nil
	}
	return expr.Run(p.program, env)
}

// String turns an expression into a string.
func (p compiled) String() string {
	return p.source
}

// MarshalText turns an expression into a bytearray.
func (p compiled) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Condition is a compiled boolean expression.
type Condition struct{ compiled }

// UnmarshalText compiles a condition.
func (c *Condition) UnmarshalText(text []byte) error {
	return c.compile(text, "condition", expr.AsBool())
}

// Expression is a compiled expression of any type.
type Expression struct{ compiled }

// UnmarshalText compiles an expression.
func (e *Expression) UnmarshalText(text []byte) error {
	return e.compile(text, "expression")
}

// Message is a compiled string expression.
type Message struct{ compiled }

// UnmarshalText compiles a message.
func (m *Message) UnmarshalText(text []byte) error {
	return m.compile(text, "message", expr.AsKind(reflect.String))
}

func mustRule(name, when, value, message string, cooldown time.Duration) Rule {
	rule := Rule{Name: name, Cooldown: cooldown}
	for _, target := range []struct {
		unmarshaler interface{ UnmarshalText([]byte) error }
		text        string
	}{
		{&rule.When, when},
		{&rule.Value, value},
		{&rule.Message, message},
	} {
		if target.text == "" {
			continue
		}
		if err := target.unmarshaler.UnmarshalText([]byte(target.text)); err != nil {
			panic(err)
		}
	}
	return rule
}

// DefaultRules returns the rules used when none are configured.
func DefaultRules() []Rule {
	return []Rule{
		mustRule("wan_status",
			`wan_status != "ok"`,
			`wan_status`,
			`"WAN is " + wan_status`,
			5*time.Minute),
		mustRule("health_score",
			`health_score < 50`,
			`health_score`,
			`"Health score dropped to " + string(health_score)`,
			5*time.Minute),
		mustRule("device_offline",
			`device_offline > 0`,
			`device_offline`,
			`string(device_offline) + " device(s) offline"`,
			5*time.Minute),
		mustRule("wan_latency",
			`wan_latency > 100`,
			`wan_latency`,
			`"WAN latency " + string(wan_latency) + "ms"`,
			10*time.Minute),
	}
}
