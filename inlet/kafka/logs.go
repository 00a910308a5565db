// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"fmt"
	"sync/atomic"

	"github.com/IBM/sarama"

	"unifimon/common/reporter"
)

func init() {
	// The logger in Sarama is global. Do the same.
	sarama.Logger = &globalKafkaLogger
}

var globalKafkaLogger kafkaLogger

type kafkaLogger struct {
	r atomic.Pointer[reporter.Reporter]
}

func (l *kafkaLogger) log(msg string) {
	if r := l.r.Load(); r != nil {
		if e := r.Debug(); e.Enabled() {
			e.Msg(msg)
		}
	}
}

func (l *kafkaLogger) Print(v ...interface{}) {
	l.log(fmt.Sprint(v...))
}

func (l *kafkaLogger) Println(v ...interface{}) {
	l.log(fmt.Sprint(v...))
}

func (l *kafkaLogger) Printf(format string, v ...interface{}) {
	l.log(fmt.Sprintf(format, v...))
}
