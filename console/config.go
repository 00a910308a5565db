// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package console

import "time"

// Configuration describes the configuration for the console component.
type Configuration struct {
	// Username and Password enable Basic authentication when both are
	// set.
	Username string
	Password string `validate:"required_with=Username"`
	// CacheTTL is the time traffic aggregations are kept in cache.
	CacheTTL time.Duration `validate:"min=1s"`
	// Version is the version to display to the user.
	Version string `yaml:"-"`
}

// DefaultConfiguration represents the default configuration for the console component.
func DefaultConfiguration() Configuration {
	return Configuration{
		CacheTTL: 30 * time.Second,
	}
}
