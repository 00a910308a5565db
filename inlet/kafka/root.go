// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package kafka publishes flow batches to Kafka as JSON messages.
package kafka

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/common/schema"
)

// Component represents the Kafka flow sink.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	kafkaConfig         *sarama.Config
	kafkaProducer       sarama.AsyncProducer
	createKafkaProducer func() (sarama.AsyncProducer, error)
	errLogger           reporter.Logger
	metrics             metrics
}

// Dependencies define the dependencies of the Kafka flow sink.
type Dependencies struct {
	Daemon daemon.Component
}

// message is the JSON payload sent for each flow.
type message struct {
	TimeReceived time.Time `json:"ts"`
	schema.FlowRecord
}

// New creates a new Kafka flow sink.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = sarama.KafkaVersion(configuration.Version)
	kafkaConfig.ClientID = "unifimon"
	kafkaConfig.Metadata.AllowAutoTopicCreation = true
	kafkaConfig.ChannelBufferSize = configuration.QueueSize
	kafkaConfig.Producer.MaxMessageBytes = configuration.MaxMessageBytes
	kafkaConfig.Producer.Compression = sarama.CompressionCodec(configuration.CompressionCodec)
	kafkaConfig.Producer.Return.Successes = false
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Flush.Bytes = configuration.FlushBytes
	kafkaConfig.Producer.Flush.Frequency = configuration.FlushInterval
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if configuration.UseTLS {
		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("cannot initialize TLS: %w", err)
		}
		kafkaConfig.Net.TLS.Enable = true
		kafkaConfig.Net.TLS.Config = &tls.Config{RootCAs: rootCAs}
	}
	if configuration.SASL.Mechanism != SASLNone {
		kafkaConfig.Net.SASL.Enable = true
		kafkaConfig.Net.SASL.User = configuration.SASL.Username
		kafkaConfig.Net.SASL.Password = configuration.SASL.Password
		switch configuration.SASL.Mechanism {
		case SASLPlain:
			kafkaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		case SASLScramSHA256:
			kafkaConfig.Net.SASL.Handshake = true
			kafkaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			kafkaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: sha256.New}
			}
		case SASLScramSHA512:
			kafkaConfig.Net.SASL.Handshake = true
			kafkaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			kafkaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: sha512.New}
			}
		default:
			return nil, fmt.Errorf("unknown SASL mechanism: %s", configuration.SASL.Mechanism)
		}
	}
	if err := kafkaConfig.Validate(); err != nil {
		return nil, fmt.Errorf("cannot validate Kafka configuration: %w", err)
	}

	c := Component{
		r:           r,
		d:           &dependencies,
		config:      configuration,
		kafkaConfig: kafkaConfig,
		errLogger:   r.Sample(reporter.BurstSampler(10*time.Second, 3)),
	}
	c.initMetrics()
	c.createKafkaProducer = func() (sarama.AsyncProducer, error) {
		return sarama.NewAsyncProducer(c.config.Brokers, c.kafkaConfig)
	}
	c.d.Daemon.Track(&c.t, "inlet/kafka")
	return &c, nil
}

// Start starts the Kafka component.
func (c *Component) Start() error {
	c.r.Info().Msg("starting Kafka component")
	globalKafkaLogger.r.Store(c.r)

	kafkaProducer, err := c.createKafkaProducer()
	if err != nil {
		c.r.Err(err).
			Str("brokers", strings.Join(c.config.Brokers, ",")).
			Msg("unable to create async producer")
		return fmt.Errorf("unable to create Kafka async producer: %w", err)
	}
	c.kafkaProducer = kafkaProducer

	// Error loop
	c.t.Go(func() error {
		defer kafkaProducer.Close()
		for {
			select {
			case <-c.t.Dying():
				c.r.Debug().Msg("stop error logger")
				return nil
			case msg := <-kafkaProducer.Errors():
				if msg == nil {
					continue
				}
				c.metrics.errors.WithLabelValues(msg.Err.Error()).Inc()
				c.errLogger.Err(msg.Err).
					Str("topic", msg.Msg.Topic).
					Int64("offset", msg.Msg.Offset).
					Int32("partition", msg.Msg.Partition).
					Msg("Kafka producer error")
			}
		}
	})
	return nil
}

// Stop stops the Kafka component
func (c *Component) Stop() error {
	defer globalKafkaLogger.r.Store(nil)
	c.r.Info().Msg("stopping Kafka component")
	defer c.r.Info().Msg("Kafka component stopped")
	c.t.Kill(nil)
	return c.t.Wait()
}

// Name identifies the sink in flow listener metrics.
func (c *Component) Name() string {
	return "kafka"
}

// InsertFlowBatch publishes one JSON message per flow, keyed by source
// address. It only fails when the context expires while the producer
// queue is full.
func (c *Component) InsertFlowBatch(ctx context.Context, ts time.Time, flows []schema.FlowRecord) error {
	for _, flow := range flows {
		payload, err := json.Marshal(message{TimeReceived: ts.UTC(), FlowRecord: flow})
		if err != nil {
			return fmt.Errorf("cannot encode flow: %w", err)
		}
		msg := &sarama.ProducerMessage{
			Topic: c.config.Topic,
			Key:   sarama.StringEncoder(flow.SrcAddr.String()),
			Value: sarama.ByteEncoder(payload),
		}
		select {
		case c.kafkaProducer.Input() <- msg:
			c.metrics.messagesSent.Inc()
			c.metrics.bytesSent.Add(float64(len(payload)))
		case <-ctx.Done():
			return fmt.Errorf("cannot publish flows to Kafka: %w", ctx.Err())
		}
	}
	return nil
}
