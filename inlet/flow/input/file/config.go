// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package file

import "unifimon/inlet/flow/input"

// Configuration describes file input configuration.
type Configuration struct {
	// Paths are PCAP files to replay.
	Paths []string `validate:"min=1,dive,required"`
	// Loop tells to replay files forever.
	Loop bool
}

// DefaultConfiguration describes the default configuration for file input.
func DefaultConfiguration() input.Configuration {
	return &Configuration{}
}
