// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package logger

// Configuration is the configuration for the logger.
type Configuration struct {
	// Level overrides the global log level when not empty.
	Level string `validate:"omitempty,oneof=trace debug info warn error"`
}

// DefaultConfiguration is the default logging configuration.
func DefaultConfiguration() Configuration {
	return Configuration{}
}
