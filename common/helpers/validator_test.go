// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package helpers_test

import (
	"testing"

	"unifimon/common/helpers"
)

func TestListenValidator(t *testing.T) {
	s := struct {
		Listen string `validate:"listen"`
	}{}
	cases := []struct {
		Listen string
		Err    bool
	}{
		{"127.0.0.1:2055", false},
		{"localhost:2055", false},
		{"0.0.0.0:2055", false},
		{":2055", false},
		{"[::1]:8080", false},
		{"127.0.0.1:0", false},
		{"localhost", true},
		{"127.0.0.1", true},
		{"127.0.0.1:what", true},
		{"127.0.0.1:100000", true},
	}
	for _, tc := range cases {
		s.Listen = tc.Listen
		err := helpers.Validate.Struct(s)
		if err == nil && tc.Err {
			t.Errorf("Validate.Struct(%q) expected an error", tc.Listen)
		} else if err != nil && !tc.Err {
			t.Errorf("Validate.Struct(%q) error:\n%+v", tc.Listen, err)
		}
	}
}
