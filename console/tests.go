// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package console

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"unifimon/common/daemon"
	"unifimon/common/helpers"
	"unifimon/common/httpserver"
	"unifimon/common/reporter"
	"unifimon/console/live"
	"unifimon/storage"
)

// NewMock instantiates a new console component with an in-memory
// storage and a mock clock set to 2026-03-15 10:00 UTC.
func NewMock(t *testing.T, config Configuration) (*Component, *httpserver.Component, *storage.Component, *clock.Mock) {
	t.Helper()
	r := reporter.NewMock(t)
	h := httpserver.NewMock(t, r)
	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	s := storage.NewMock(t, r, mockClock)
	c, err := New(r, config, Dependencies{
		Daemon:  daemon.NewMock(t),
		HTTP:    h,
		Clock:   mockClock,
		Storage: s,
		Hub:     live.New(r),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, c)
	return c, h, s, mockClock
}
