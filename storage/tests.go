// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package storage

import (
	"fmt"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"

	"unifimon/common/daemon"
	"unifimon/common/helpers"
	"unifimon/common/reporter"
)

// NewMock instantiates a storage component backed by a private
// in-memory SQLite database.
func NewMock(t *testing.T, r *reporter.Reporter, clk clock.Clock) *Component {
	t.Helper()
	config := DefaultConfiguration()
	config.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	c, err := New(r, config, Dependencies{
		Daemon: daemon.NewMock(t),
		Clock:  clk,
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, c)
	return c
}
