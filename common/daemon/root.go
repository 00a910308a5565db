// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package daemon handles daemon-related operations: tracking the
// goroutines of each component and exiting on signal or on the death of
// one of them.
package daemon

import (
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/tomb.v2"

	"unifimon/common/reporter"
)

// Component is the interface the daemon component provides.
type Component interface {
	Start() error
	Stop() error
	Track(t *tomb.Tomb, who string)

	// Lifecycle
	Terminated() <-chan struct{}
	Terminate()
}

type trackedTomb struct {
	tomb   *tomb.Tomb
	origin string
}

// realComponent is a non-mock implementation of the Component interface.
type realComponent struct {
	r     *reporter.Reporter
	tombs []trackedTomb

	lifecycleComponent
}

// New creates a new daemon component.
func New(r *reporter.Reporter) (Component, error) {
	return &realComponent{
		r: r,
		lifecycleComponent: lifecycleComponent{
			terminateChannel: make(chan struct{}),
		},
	}, nil
}

// Start watches the tracked tombs and the termination signals.
func (c *realComponent) Start() error {
	for _, tt := range c.tombs {
		go func() {
			select {
			case <-tt.tomb.Dying():
			case <-c.Terminated():
				return
			}
			if err := tt.tomb.Err(); err != nil && err != tomb.ErrStillAlive {
				c.r.Err(err).Str("component", tt.origin).Msg("component error, quitting")
			} else {
				c.r.Debug().Str("component", tt.origin).Msg("component shutting down, quitting")
			}
			c.Terminate()
		}()
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case s := <-signals:
			c.r.Info().Stringer("signal", s).Msg("signal received, quitting")
			c.Terminate()
		case <-c.Terminated():
		}
	}()
	return nil
}

// Stop requests termination.
func (c *realComponent) Stop() error {
	c.Terminate()
	return nil
}

// Track adds a new tomb to watch. This is only used before Start().
func (c *realComponent) Track(t *tomb.Tomb, who string) {
	c.tombs = append(c.tombs, trackedTomb{tomb: t, origin: who})
}
