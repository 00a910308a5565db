// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"time"

	"golang.org/x/time/rate"

	"unifimon/common/helpers"
	"unifimon/inlet/flow/input"
	"unifimon/inlet/flow/input/file"
	"unifimon/inlet/flow/input/udp"
)

// Configuration describes the configuration for the flow component
type Configuration struct {
	// Inputs define a list of input modules to enable
	Inputs []InputConfiguration `validate:"min=1,dive"`
	// FlushInterval is the maximum time flows stay in the batch.
	FlushInterval time.Duration `validate:"min=100ms"`
	// BatchSize is the number of flows triggering an early flush.
	BatchSize int `validate:"min=1"`
	// FlushTimeout bounds the time given to each sink for one batch.
	FlushTimeout time.Duration `validate:"min=1s"`
	// RateLimit defines a rate limit on the number of flows per
	// second. The limit is per-exporter. 0 disables it.
	RateLimit rate.Limit `validate:"isdefault|min=100"`
}

// DefaultConfiguration represents the default configuration for the flow component
func DefaultConfiguration() Configuration {
	return Configuration{
		Inputs: []InputConfiguration{{
			Config: udp.DefaultConfiguration(),
		}},
		FlushInterval: 10 * time.Second,
		BatchSize:     1000,
		FlushTimeout:  30 * time.Second,
	}
}

// InputConfiguration represents the configuration for an input.
type InputConfiguration struct {
	// Config is the actual configuration of the input.
	Config input.Configuration
}

// MarshalYAML undoes the unmarshaller hook registered below.
func (ic InputConfiguration) MarshalYAML() (interface{}, error) {
	return helpers.ParametrizedConfigurationMarshalYAML(ic, inputs)
}

var inputs = map[string](func() input.Configuration){
	"udp":  udp.DefaultConfiguration,
	"file": file.DefaultConfiguration,
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.ParametrizedConfigurationUnmarshallerHook(InputConfiguration{}, inputs))
}
