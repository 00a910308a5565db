// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package console exposes the read API and the live updates.
package console

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"

	"unifimon/common/daemon"
	"unifimon/common/helpers"
	"unifimon/common/httpserver"
	"unifimon/common/reporter"
	"unifimon/console/live"
	"unifimon/storage"
)

// Component represents the console component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	config Configuration

	checker   CredentialChecker
	startTime time.Time

	metrics struct {
		storageQueries *reporter.CounterVec
		storageErrors  *reporter.CounterVec
		authFailures   reporter.Counter
	}
}

// Dependencies define the dependencies of the console component.
type Dependencies struct {
	Daemon  daemon.Component
	HTTP    *httpserver.Component
	Clock   clock.Clock
	Storage *storage.Component
	Hub     *live.Hub
	// Credentials overrides the checker built from the configuration.
	Credentials CredentialChecker
}

// New creates a new console component.
func New(r *reporter.Reporter, config Configuration, dependencies Dependencies) (*Component, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	if err := helpers.Validate.Struct(config); err != nil {
		return nil, err
	}
	c := Component{
		r:       r,
		d:       &dependencies,
		config:  config,
		checker: dependencies.Credentials,
	}
	if c.checker == nil && config.Username != "" && config.Password != "" {
		c.checker = BasicCredentials{
			Username: config.Username,
			Password: config.Password,
		}
	}

	c.metrics.storageQueries = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "storage_queries_total",
			Help: "Number of requests to the storage.",
		}, []string{"query"},
	)
	c.metrics.storageErrors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "storage_errors_total",
			Help: "Number of failed requests to the storage.",
		}, []string{"query"},
	)
	c.metrics.authFailures = c.r.Counter(
		reporter.CounterOpts{
			Name: "authentication_failures_total",
			Help: "Number of rejected requests.",
		},
	)
	return &c, nil
}

// Start starts the console component.
func (c *Component) Start() error {
	c.r.Info().Msg("starting console component")
	c.startTime = c.d.Clock.Now()

	endpoint := c.d.HTTP.GinRouter.Group("/api/v0", c.basicAuthentication())
	endpoint.GET("/health", c.healthHandlerFunc)
	endpoint.GET("/configuration", c.configHandlerFunc)
	endpoint.GET("/auth/token", c.authTokenHandlerFunc)
	endpoint.GET("/overview", c.overviewHandlerFunc)
	endpoint.GET("/clients", c.clientsHandlerFunc)
	endpoint.GET("/clients/:mac/history", c.clientHistoryHandlerFunc)
	endpoint.GET("/devices", c.devicesHandlerFunc)
	endpoint.GET("/wan/history", c.wanHistoryHandlerFunc)
	endpoint.GET("/alarms", c.alarmsHandlerFunc)

	traffic := endpoint.Group("/traffic", c.d.HTTP.CacheByRequestURI(c.config.CacheTTL))
	traffic.GET("/top-talkers", c.topTalkersHandlerFunc)
	traffic.GET("/top-destinations", c.topDestinationsHandlerFunc)
	traffic.GET("/top-ports", c.topPortsHandlerFunc)
	traffic.GET("/bandwidth", c.bandwidthHandlerFunc)

	dns := endpoint.Group("/dns", c.d.HTTP.CacheByRequestURI(c.config.CacheTTL))
	dns.GET("/queries", c.dnsQueriesHandlerFunc)
	dns.GET("/top-clients", c.dnsTopClientsHandlerFunc)
	dns.GET("/top-servers", c.dnsTopServersHandlerFunc)

	endpoint.GET("/export/clients", c.exportClientsHandlerFunc)
	endpoint.GET("/export/wan", c.exportWANHandlerFunc)
	endpoint.GET("/ws", c.wsHandlerFunc)
	return nil
}

// Stop stops the console component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("console component stopped")
	c.r.Info().Msg("stopping console component")
	c.d.Hub.Close()
	return nil
}

func (c *Component) configHandlerFunc(gc *gin.Context) {
	gc.JSON(http.StatusOK, gin.H{
		"version":        c.config.Version,
		"authentication": c.checker != nil,
	})
}

// storageQuery counts a query to the storage and reports an error to
// the client. It returns false when the handler should stop.
func (c *Component) storageQuery(gc *gin.Context, query string, err error) bool {
	c.metrics.storageQueries.WithLabelValues(query).Inc()
	if err != nil {
		c.metrics.storageErrors.WithLabelValues(query).Inc()
		c.r.Err(err).Str("query", query).Msg("unable to query database")
		gc.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to query database."})
		return false
	}
	return true
}

func badRequest(gc *gin.Context, err error) {
	gc.JSON(http.StatusBadRequest, gin.H{"message": helpers.Capitalize(err.Error())})
}
