// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package poller periodically polls the UniFi controller for the state
// of the WAN link, devices, clients and alarms. Samples are written to
// storage and an overview is published after each poll.
package poller

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/common/schema"
)

// Store is where polled samples are written.
type Store interface {
	InsertWAN(ctx context.Context, ts time.Time, wan schema.WANStatus) error
	InsertDevices(ctx context.Context, ts time.Time, devices []schema.Device) error
	InsertClients(ctx context.Context, ts time.Time, clients []schema.Client) error
	InsertAlarms(ctx context.Context, ts time.Time, alarms []schema.Alarm) error
	Overview(ctx context.Context, now time.Time) (schema.Overview, error)
}

// Publisher receives the overview built after each poll.
type Publisher interface {
	Publish(overview schema.Overview)
}

// Component represents the poller component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	client      *client
	programs    programs
	lastSuccess atomic.Int64

	metrics struct {
		polls  reporter.Counter
		errors *reporter.CounterVec
	}
}

// Dependencies define the dependencies of the poller component.
type Dependencies struct {
	Daemon     daemon.Component
	Clock      clock.Clock
	Store      Store
	Publishers []Publisher
}

// New creates a new poller component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	client, err := newClient(configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to create UniFi client: %w", err)
	}
	programs, err := compilePrograms()
	if err != nil {
		return nil, err
	}
	c := Component{
		r:        r,
		d:        &dependencies,
		config:   configuration,
		client:   client,
		programs: programs,
	}

	c.metrics.polls = c.r.Counter(
		reporter.CounterOpts{
			Name: "polls_total",
			Help: "Number of poll cycles.",
		})
	c.metrics.errors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of errors while polling the controller.",
		},
		[]string{"endpoint"})
	c.r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "last_success_seconds",
			Help: "Time of the last poll cycle without error.",
		}, func() float64 {
			return float64(c.lastSuccess.Load())
		})

	c.r.RegisterHealthcheck("poller", c.healthcheck())
	c.d.Daemon.Track(&c.t, "poller")
	return &c, nil
}

// Start starts polling the controller.
func (c *Component) Start() error {
	c.r.Info().
		Str("host", c.config.Host).
		Str("site", c.config.Site).
		Dur("interval", c.config.Interval).
		Msg("starting poller component")
	c.t.Go(func() error {
		ticker := c.d.Clock.Ticker(c.config.Interval)
		defer ticker.Stop()
		for {
			c.poll(c.t.Context(nil))
			select {
			case <-c.t.Dying():
				return nil
			case <-ticker.C:
			}
		}
	})
	return nil
}

// Stop stops the poller component.
func (c *Component) Stop() error {
	defer func() {
		c.client.close()
		c.r.Info().Msg("poller component stopped")
	}()
	c.r.Info().Msg("stopping poller component")
	c.t.Kill(nil)
	return c.t.Wait()
}

// poll runs one poll cycle. A failing endpoint does not prevent the
// others from being polled.
func (c *Component) poll(ctx context.Context) {
	ts := c.d.Clock.Now()
	c.metrics.polls.Inc()

	loginCtx, cancel := context.WithTimeout(ctx, c.config.LoginRetry+c.config.Timeout)
	err := c.client.ensureAuth(loginCtx)
	cancel()
	if err != nil {
		c.metrics.errors.WithLabelValues("login").Inc()
		c.r.Err(err).Msg("cannot login to controller")
		return
	}

	failed := false
	for _, step := range []struct {
		endpoint string
		poll     func(context.Context, time.Time) error
	}{
		{"health", c.pollHealth},
		{"device", c.pollDevices},
		{"sta", c.pollClients},
		{"alarm", c.pollAlarms},
	} {
		stepCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		err := step.poll(stepCtx, ts)
		cancel()
		if err != nil {
			failed = true
			c.metrics.errors.WithLabelValues(step.endpoint).Inc()
			c.r.Err(err).Str("endpoint", step.endpoint).Msg("poll failed")
		}
	}
	if !failed {
		c.lastSuccess.Store(ts.Unix())
	}

	overviewCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	overview, err := c.d.Store.Overview(overviewCtx, ts)
	cancel()
	if err != nil {
		c.metrics.errors.WithLabelValues("overview").Inc()
		c.r.Err(err).Msg("cannot build overview")
		return
	}
	for _, publisher := range c.d.Publishers {
		publisher.Publish(overview)
	}
}

func (c *Component) pollHealth(ctx context.Context, ts time.Time) error {
	data, err := c.client.get(ctx, "health")
	if err != nil {
		return err
	}
	wan, err := c.programs.wanStatus(ctx, data)
	if err != nil {
		return err
	}
	if wan == nil {
		return nil
	}
	return c.d.Store.InsertWAN(ctx, ts, *wan)
}

func (c *Component) pollDevices(ctx context.Context, ts time.Time) error {
	data, err := c.client.get(ctx, "device")
	if err != nil {
		return err
	}
	devices, err := c.programs.deviceList(ctx, data)
	if err != nil {
		return err
	}
	return c.d.Store.InsertDevices(ctx, ts, devices)
}

func (c *Component) pollClients(ctx context.Context, ts time.Time) error {
	data, err := c.client.get(ctx, "sta")
	if err != nil {
		return err
	}
	clients, err := c.programs.clientList(ctx, data)
	if err != nil {
		return err
	}
	return c.d.Store.InsertClients(ctx, ts, clients)
}

func (c *Component) pollAlarms(ctx context.Context, ts time.Time) error {
	data, err := c.client.get(ctx, "alarm")
	if err != nil {
		return err
	}
	alarms, err := c.programs.alarmList(ctx, data)
	if err != nil {
		return err
	}
	return c.d.Store.InsertAlarms(ctx, ts, alarms)
}

func (c *Component) healthcheck() reporter.HealthcheckFunc {
	return func(context.Context) reporter.HealthcheckResult {
		unix := c.lastSuccess.Load()
		last := time.Unix(unix, 0)
		switch {
		case unix == 0:
			return reporter.HealthcheckResult{
				Status: reporter.HealthcheckWarning,
				Reason: "no successful poll yet",
			}
		case c.d.Clock.Since(last) > 3*c.config.Interval:
			return reporter.HealthcheckResult{
				Status: reporter.HealthcheckWarning,
				Reason: fmt.Sprintf("last successful poll at %s", last.Format(time.RFC3339)),
			}
		}
		return reporter.HealthcheckResult{
			Status: reporter.HealthcheckOK,
			Reason: "polling",
		}
	}
}
