// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Configuration describes the configuration for the Kafka flow sink.
type Configuration struct {
	// Enabled tells if flows should be published to Kafka.
	Enabled bool
	// Topic defines the topic to write flows to.
	Topic string `validate:"required"`
	// Brokers is the list of brokers to connect to.
	Brokers []string `validate:"min=1,dive,listen"`
	// Version is the version of Kafka we assume to work
	Version Version
	// UseTLS tells if we should use TLS.
	UseTLS bool
	// SASL defines SASL configuration
	SASL SASLConfiguration
	// FlushInterval tells how often to flush pending data to Kafka.
	FlushInterval time.Duration `validate:"min=100ms"`
	// FlushBytes tells to flush when there are many bytes to write
	FlushBytes int `validate:"min=1000"`
	// MaxMessageBytes is the maximum permitted size of a message.
	// Should be set equal or smaller than broker's
	// `message.max.bytes`.
	MaxMessageBytes int `validate:"min=1"`
	// CompressionCodec defines the compression to use.
	CompressionCodec CompressionCodec
	// QueueSize defines the size of the channel used to send to Kafka.
	QueueSize int `validate:"min=1"`
}

// SASLConfiguration defines SASL configuration.
type SASLConfiguration struct {
	// Username tells the SASL username
	Username string `validate:"required_with=Mechanism"`
	// Password tells the SASL password
	Password string `validate:"required_with=Mechanism"`
	// Mechanism tells the SASL algorithm
	Mechanism SASLMechanism
}

// DefaultConfiguration represents the default configuration for the Kafka flow sink.
func DefaultConfiguration() Configuration {
	return Configuration{
		Topic:            "unifimon-flows",
		Brokers:          []string{"127.0.0.1:9092"},
		Version:          Version(sarama.V2_8_1_0),
		FlushInterval:    time.Second,
		FlushBytes:       int(sarama.MaxRequestSize) - 1,
		MaxMessageBytes:  1000000,
		CompressionCodec: CompressionCodec(sarama.CompressionNone),
		QueueSize:        256,
	}
}

// Version represents a supported version of Kafka
type Version sarama.KafkaVersion

// UnmarshalText parses a version of Kafka
func (v *Version) UnmarshalText(text []byte) error {
	version, err := sarama.ParseKafkaVersion(string(text))
	if err != nil {
		return err
	}
	*v = Version(version)
	return nil
}

// String turns a Kafka version into a string
func (v Version) String() string {
	return sarama.KafkaVersion(v).String()
}

// MarshalText turns a Kafka version into a string
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// CompressionCodec represents a compression codec.
type CompressionCodec sarama.CompressionCodec

// UnmarshalText produces a compression codec
func (cc *CompressionCodec) UnmarshalText(text []byte) error {
	codecs := map[string]sarama.CompressionCodec{
		"none":   sarama.CompressionNone,
		"gzip":   sarama.CompressionGZIP,
		"snappy": sarama.CompressionSnappy,
		"lz4":    sarama.CompressionLZ4,
		"zstd":   sarama.CompressionZSTD,
	}
	codec, ok := codecs[string(text)]
	if !ok {
		return fmt.Errorf("cannot parse %q as a compression codec", string(text))
	}
	*cc = CompressionCodec(codec)
	return nil
}

// String turns a compression codec into a string
func (cc CompressionCodec) String() string {
	return sarama.CompressionCodec(cc).String()
}

// MarshalText turns a compression codec into a string
func (cc CompressionCodec) MarshalText() ([]byte, error) {
	return []byte(cc.String()), nil
}

// SASLMechanism defines an SASL algorithm
type SASLMechanism int

const (
	// SASLNone means no user authentication
	SASLNone SASLMechanism = iota
	// SASLPlain means user/password in plain text
	SASLPlain
	// SASLScramSHA256 enables SCRAM challenge with SHA256
	SASLScramSHA256
	// SASLScramSHA512 enables SCRAM challenge with SHA512
	SASLScramSHA512
)

var saslMechanisms = map[SASLMechanism]string{
	SASLNone:        "none",
	SASLPlain:       "plain",
	SASLScramSHA256: "scram-sha256",
	SASLScramSHA512: "scram-sha512",
}

// UnmarshalText parses an SASL mechanism
func (sm *SASLMechanism) UnmarshalText(text []byte) error {
	for mechanism, name := range saslMechanisms {
		if name == string(text) {
			*sm = mechanism
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as an SASL mechanism", string(text))
}

// String turns an SASL mechanism into a string
func (sm SASLMechanism) String() string {
	if name, ok := saslMechanisms[sm]; ok {
		return name
	}
	return fmt.Sprintf("SASLMechanism(%d)", int(sm))
}

// MarshalText turns an SASL mechanism into a string
func (sm SASLMechanism) MarshalText() ([]byte, error) {
	return []byte(sm.String()), nil
}
