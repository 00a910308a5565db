// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package alert evaluates rules over each overview and posts the fired
// alerts to a webhook.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
	"unifimon/common/schema"
)

// Alert is a fired rule.
type Alert struct {
	Rule      string      `json:"rule"`
	Value     interface{} `json:"value"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"ts"`
}

// payload is the body posted to the webhook.
type payload struct {
	Alerts    []Alert   `json:"alerts"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Component represents the alert component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	errLogger reporter.Logger
	client    *http.Client
	queue     chan []Alert

	lastFiredLock sync.Mutex
	lastFired     map[string]time.Time

	metrics struct {
		fired            *reporter.CounterVec
		evaluationErrors *reporter.CounterVec
		webhookErrors    reporter.Counter
		dropped          reporter.Counter
	}
}

// Dependencies define the dependencies of the alert component.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
}

// New creates a new alert component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	if len(configuration.Rules) == 0 {
		configuration.Rules = DefaultRules()
	}
	c := Component{
		r:         r,
		d:         &dependencies,
		config:    configuration,
		errLogger: r.Sample(reporter.BurstSampler(time.Minute, 10)),
		client:    &http.Client{Timeout: configuration.Timeout},
		queue:     make(chan []Alert, configuration.QueueSize),
		lastFired: make(map[string]time.Time),
	}

	c.metrics.fired = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "fired_total",
			Help: "Number of fired alerts.",
		},
		[]string{"rule"})
	c.metrics.evaluationErrors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "evaluation_errors_total",
			Help: "Number of errors while evaluating a rule.",
		},
		[]string{"rule"})
	c.metrics.webhookErrors = c.r.Counter(
		reporter.CounterOpts{
			Name: "webhook_errors_total",
			Help: "Number of failed webhook notifications.",
		})
	c.metrics.dropped = c.r.Counter(
		reporter.CounterOpts{
			Name: "dropped_notifications_total",
			Help: "Number of notifications dropped because the queue was full.",
		})

	c.d.Daemon.Track(&c.t, "alert")
	return &c, nil
}

// Start starts the notification worker.
func (c *Component) Start() error {
	c.r.Info().Int("rules", len(c.config.Rules)).Msg("starting alert component")
	c.t.Go(func() error {
		for {
			select {
			case <-c.t.Dying():
				return nil
			case alerts := <-c.queue:
				ctx, cancel := context.WithTimeout(c.t.Context(nil), c.config.Timeout)
				c.notify(ctx, alerts)
				cancel()
			}
		}
	})
	return nil
}

// Stop stops the alert component. Pending notifications are dropped.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("alert component stopped")
	c.r.Info().Msg("stopping alert component")
	c.t.Kill(nil)
	return c.t.Wait()
}

// Evaluate returns the alerts fired by the provided overview. A rule
// that failed to evaluate does not fire. A rule in cooldown does not
// fire either.
func (c *Component) Evaluate(overview schema.Overview) []Alert {
	now := c.d.Clock.Now()
	fired := []Alert{}

	c.lastFiredLock.Lock()
	defer c.lastFiredLock.Unlock()
	for _, rule := range c.config.Rules {
		env := newEnvironment(overview)
		result, err := rule.When.run(env)
		if err != nil {
			c.metrics.evaluationErrors.WithLabelValues(rule.Name).Inc()
			c.errLogger.Err(err).Str("rule", rule.Name).Msg("cannot evaluate condition")
			continue
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}
		if last, ok := c.lastFired[rule.Name]; ok && now.Sub(last) < rule.Cooldown {
			continue
		}
		value, err := rule.Value.run(env)
		if err != nil {
			c.metrics.evaluationErrors.WithLabelValues(rule.Name).Inc()
			c.errLogger.Err(err).Str("rule", rule.Name).Msg("cannot evaluate value")
			continue
		}
		env.Value = value
		message, err := rule.Message.run(env)
		if err != nil {
			c.metrics.evaluationErrors.WithLabelValues(rule.Name).Inc()
			c.errLogger.Err(err).Str("rule", rule.Name).Msg("cannot evaluate message")
			continue
		}
		text, _ := message.(string)
		if text == "" {
			text = rule.Name
		}

		c.lastFired[rule.Name] = now
		c.metrics.fired.WithLabelValues(rule.Name).Inc()
		fired = append(fired, Alert{
			Rule:      rule.Name,
			Value:     value,
			Message:   text,
			Timestamp: now,
		})
	}
	return fired
}

// Publish evaluates the rules and queues the fired alerts for
// notification.
func (c *Component) Publish(overview schema.Overview) {
	alerts := c.Evaluate(overview)
	for _, alert := range alerts {
		c.r.Warn().
			Str("rule", alert.Rule).
			Interface("value", alert.Value).
			Msg(alert.Message)
	}
	if len(alerts) == 0 || c.config.WebhookURL == "" {
		return
	}
	select {
	case c.queue <- alerts:
	default:
		c.metrics.dropped.Inc()
		c.errLogger.Warn().Int("alerts", len(alerts)).Msg("notification queue full")
	}
}

// notify posts alerts to the webhook.
func (c *Component) notify(ctx context.Context, alerts []Alert) {
	body, err := json.Marshal(payload{
		Alerts:    alerts,
		Source:    "unifimon",
		Timestamp: c.d.Clock.Now(),
	})
	if err != nil {
		c.metrics.webhookErrors.Inc()
		c.errLogger.Err(err).Msg("cannot encode alerts")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		c.metrics.webhookErrors.Inc()
		c.errLogger.Err(err).Msg("cannot build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.webhookErrors.Inc()
		c.errLogger.Err(err).Msg("webhook request failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.metrics.webhookErrors.Inc()
		c.errLogger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(bytes.TrimSpace(excerpt))).
			Msg("webhook returned an error")
		return
	}
	c.r.Info().Int("alerts", len(alerts)).Msg("webhook notified")
}
