// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
)

// NewMock creates a new Kafka component with a mocked Kafka. It will
// fail the test if it cannot be started.
func NewMock(t *testing.T, reporter *reporter.Reporter, configuration Configuration) (*Component, *mocks.AsyncProducer) {
	t.Helper()
	c, err := New(reporter, configuration, Dependencies{Daemon: daemon.NewMock(t)})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}

	// Use a mocked Kafka producer
	var mockProducer *mocks.AsyncProducer
	c.createKafkaProducer = func() (sarama.AsyncProducer, error) {
		mockProducer = mocks.NewAsyncProducer(t, c.kafkaConfig)
		return mockProducer, nil
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error:\n%+v", err)
	}
	return c, mockProducer
}
