// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package helpers_test

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"

	"unifimon/common/helpers"
)

func TestMapStructureMatchName(t *testing.T) {
	cases := []struct {
		pos       helpers.Pos
		mapKey    string
		fieldName string
		expected  bool
	}{
		{helpers.Mark(), "one", "one", true},
		{helpers.Mark(), "one", "One", true},
		{helpers.Mark(), "one-two", "OneTwo", true},
		{helpers.Mark(), "onetwo", "OneTwo", true},
		{helpers.Mark(), "One-Two", "OneTwo", true},
		{helpers.Mark(), "two", "one", false},
	}
	for _, tc := range cases {
		got := helpers.MapStructureMatchName(tc.mapKey, tc.fieldName)
		if got && !tc.expected {
			t.Errorf("%sMapStructureMatchName(%q, %q) == true but expected false", tc.pos, tc.mapKey, tc.fieldName)
		} else if !got && tc.expected {
			t.Errorf("%sMapStructureMatchName(%q, %q) == false but expected true", tc.pos, tc.mapKey, tc.fieldName)
		}
	}
}

func TestDecoderConfig(t *testing.T) {
	type configuration struct {
		FlushInterval time.Duration
		BatchSize     int
		Brokers       []string
	}
	var got configuration
	decoder, err := mapstructure.NewDecoder(helpers.GetMapStructureDecoderConfig(&got))
	if err != nil {
		t.Fatalf("NewDecoder() error:\n%+v", err)
	}
	if err := decoder.Decode(map[string]interface{}{
		"flush-interval": "5s",
		"batch-size":     "100",
		"brokers":        "kafka1:9092,kafka2:9092",
	}); err != nil {
		t.Fatalf("Decode() error:\n%+v", err)
	}
	expected := configuration{
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
		Brokers:       []string{"kafka1:9092", "kafka2:9092"},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}

	if err := decoder.Decode(map[string]interface{}{"unknown": 1}); err == nil {
		t.Fatal("Decode() with unknown key did not error")
	}
}

func TestParametrizedConfig(t *testing.T) {
	type innerConfiguration1 struct {
		CC string
		DD string
	}
	type innerConfiguration2 struct {
		CC string
		EE int
	}
	type outerConfiguration struct {
		AA     string
		Config any
	}
	available := map[string](func() any){
		"type1": func() any { return &innerConfiguration1{CC: "cc1", DD: "dd1"} },
		"type2": func() any { return &innerConfiguration2{CC: "cc2", EE: 2} },
	}
	hook := helpers.ParametrizedConfigurationUnmarshallerHook(outerConfiguration{}, available)

	cases := []struct {
		Description   string
		Initial       outerConfiguration
		Configuration map[string]interface{}
		Expected      outerConfiguration
		Error         bool
	}{
		{
			Description:   "type1",
			Configuration: map[string]interface{}{"type": "type1", "aa": "a1", "cc": "c1"},
			Expected: outerConfiguration{
				AA:     "a1",
				Config: &innerConfiguration1{CC: "c1", DD: "dd1"},
			},
		}, {
			Description:   "type2",
			Configuration: map[string]interface{}{"type": "Type2", "ee": "12"},
			Expected: outerConfiguration{
				Config: &innerConfiguration2{CC: "cc2", EE: 12},
			},
		}, {
			Description: "keep current type",
			Initial: outerConfiguration{
				AA:     "a0",
				Config: &innerConfiguration2{CC: "c0", EE: 5},
			},
			Configuration: map[string]interface{}{"ee": 6},
			Expected: outerConfiguration{
				AA:     "a0",
				Config: &innerConfiguration2{CC: "c0", EE: 6},
			},
		}, {
			Description:   "unknown type",
			Configuration: map[string]interface{}{"type": "type3"},
			Error:         true,
		}, {
			Description:   "no type",
			Configuration: map[string]interface{}{"aa": "a1"},
			Error:         true,
		}, {
			Description:   "unknown key",
			Configuration: map[string]interface{}{"type": "type1", "ff": "f1"},
			Error:         true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.Description, func(t *testing.T) {
			got := tc.Initial
			decoder, err := mapstructure.NewDecoder(helpers.GetMapStructureDecoderConfig(&got, hook))
			if err != nil {
				t.Fatalf("NewDecoder() error:\n%+v", err)
			}
			err = decoder.Decode(tc.Configuration)
			if err != nil && !tc.Error {
				t.Fatalf("Decode() error:\n%+v", err)
			} else if err == nil && tc.Error {
				t.Fatal("Decode() did not error")
			}
			if tc.Error {
				return
			}
			if diff := helpers.Diff(got, tc.Expected); diff != "" {
				t.Fatalf("Decode() (-got, +want):\n%s", diff)
			}
		})
	}
}

func TestParametrizedConfigMarshalYAML(t *testing.T) {
	type innerConfiguration1 struct {
		CC string
		DD string
	}
	type innerConfiguration2 struct {
		CC string
		EE int
	}
	type outerConfiguration struct {
		AA     string
		Config any
	}
	available := map[string](func() any){
		"type1": func() any { return &innerConfiguration1{} },
		"type2": func() any { return &innerConfiguration2{} },
	}

	got, err := helpers.ParametrizedConfigurationMarshalYAML(outerConfiguration{
		AA:     "a1",
		Config: &innerConfiguration2{CC: "c1", EE: 4},
	}, available)
	if err != nil {
		t.Fatalf("ParametrizedConfigurationMarshalYAML() error:\n%+v", err)
	}
	expected := map[string]interface{}{
		"type": "type2",
		"aa":   "a1",
		"cc":   "c1",
		"ee":   4,
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("ParametrizedConfigurationMarshalYAML() (-got, +want):\n%s", diff)
	}

	if _, err := helpers.ParametrizedConfigurationMarshalYAML(outerConfiguration{
		Config: &struct{ FF string }{},
	}, available); err == nil {
		t.Fatal("ParametrizedConfigurationMarshalYAML() did not error")
	}
}
