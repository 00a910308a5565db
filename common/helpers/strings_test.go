// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package helpers_test

import (
	"testing"

	"unifimon/common/helpers"
)

func TestCapitalize(t *testing.T) {
	cases := []struct {
		In  string
		Out string
	}{
		{"", ""},
		{"a", "A"},
		{"key: 'Limit' error", "Key: 'Limit' error"},
		{"élan", "Élan"},
	}
	for _, tc := range cases {
		if got := helpers.Capitalize(tc.In); got != tc.Out {
			t.Errorf("Capitalize(%q) == %q, expected %q", tc.In, got, tc.Out)
		}
	}
}
