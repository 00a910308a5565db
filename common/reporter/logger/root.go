// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package logger handles logging for unifimon.
//
// This is a thin wrapper around zerolog. Each event gets a "module" and
// a "caller" field computed from the stack, so logs can be filtered per
// package without passing sub-loggers around.
package logger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"unifimon/common/reporter/stack"
)

// Logger is a logger instance. It exposes the zerolog API.
type Logger struct {
	zerolog.Logger
}

// New creates a new logger.
func New(config Configuration) (Logger, error) {
	l := log.Logger.Hook(contextHook{})
	if config.Level != "" {
		level, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return Logger{}, err
		}
		l = l.Level(level)
	}
	return Logger{l}, nil
}

type contextHook struct{}

// Run adds "caller" and "module" to an event.
func (h contextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	callStack := stack.Callers()
	if len(callStack) <= 3 {
		return
	}
	callStack = callStack[3:] // hook, event and zerolog internals
	e.Str("caller", callStack[0].SourceFile(true))
	for _, call := range callStack {
		name := call.FunctionName()
		if !strings.HasPrefix(name, stack.ModuleName+"/") {
			continue
		}
		module, _, _ := strings.Cut(name, ".")
		e.Str("module", module)
		break
	}
}
