// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import "time"

// Configuration describes the configuration for the storage component.
type Configuration struct {
	// Driver defines the driver for the database
	Driver string `validate:"oneof=sqlite mysql postgres"`
	// DSN defines the DSN to connect to the database
	DSN string `validate:"required"`
	// Retention is how long rows are kept.
	Retention time.Duration `validate:"min=1h"`
	// CleanupInterval is how often old rows are removed.
	CleanupInterval time.Duration `validate:"min=1m"`
	// BatchSize is the number of rows inserted per statement.
	BatchSize int `validate:"min=1"`
}

// DefaultConfiguration represents the default configuration for the storage component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Driver:          "sqlite",
		DSN:             "unifimon.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		Retention:       168 * time.Hour,
		CleanupInterval: time.Hour,
		BatchSize:       500,
	}
}
