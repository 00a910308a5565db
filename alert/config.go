// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package alert

import "time"

// Configuration describes the configuration for the alert component.
type Configuration struct {
	// Rules are evaluated after each poll. The default rules are used
	// when empty.
	Rules []Rule `validate:"dive"`
	// WebhookURL is where fired alerts are posted. Alerts are only
	// logged when empty.
	WebhookURL string `validate:"omitempty,url"`
	// Timeout is the maximum duration of a webhook request.
	Timeout time.Duration `validate:"min=1s"`
	// QueueSize is the number of pending notifications before new ones
	// are dropped.
	QueueSize int `validate:"min=1"`
}

// DefaultConfiguration represents the default configuration for the alert component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Timeout:   10 * time.Second,
		QueueSize: 16,
	}
}
