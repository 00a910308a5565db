// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"net/netip"
	"testing"
	"time"

	"unifimon/common/helpers"
)

func TestDefaultConfiguration(t *testing.T) {
	config := DefaultConfiguration()
	config.Flows = []FlowConfiguration{
		{
			PerSecond:             10,
			PeakHour:              21 * time.Hour,
			Multiplier:            3.0,
			SrcNet:                netip.MustParsePrefix("192.168.1.0/24"),
			DstNet:                netip.MustParsePrefix("2001:db8:2::/64"),
			DstPort:               []uint16{443},
			Protocol:              []string{"tcp"},
			Size:                  1400,
			ReverseDirectionRatio: 0.2,
		},
	}
	if err := helpers.Validate.Struct(config); err != nil {
		t.Fatalf("validate.Struct() error:\n%+v", err)
	}

	config.Version = "netflow7"
	if err := helpers.Validate.Struct(config); err == nil {
		t.Fatal("validate.Struct() did not error on invalid version")
	}
}
