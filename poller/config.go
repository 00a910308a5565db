// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package poller

import "time"

// Configuration describes the configuration for the poller component.
type Configuration struct {
	// Enabled tells if the controller should be polled.
	Enabled bool
	// Host is the hostname or IP address of the gateway running the
	// UniFi controller.
	Host string `validate:"required_if=Enabled true"`
	// Port is the HTTPS port of the controller.
	Port int `validate:"min=1,max=65535"`
	// Username and Password are the credentials of a local account.
	Username string `validate:"required_if=Enabled true"`
	Password string
	// Site is the controller site to poll.
	Site string `validate:"required"`
	// InsecureSkipVerify disables the verification of the certificate
	// presented by the gateway. Gateways use a self-signed certificate.
	InsecureSkipVerify bool
	// Interval is the time between two polls.
	Interval time.Duration `validate:"min=5s"`
	// Timeout is the maximum duration of one request.
	Timeout time.Duration `validate:"min=1s"`
	// LoginRetry is the maximum time spent retrying a failed login.
	LoginRetry time.Duration `validate:"min=1s"`
}

// DefaultConfiguration represents the default configuration for the poller component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Enabled:            true,
		Host:               "192.168.1.1",
		Port:               443,
		Username:           "admin",
		Site:               "default",
		InsecureSkipVerify: true,
		Interval:           30 * time.Second,
		Timeout:            15 * time.Second,
		LoginRetry:         time.Minute,
	}
}
