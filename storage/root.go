// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package storage keeps flows and polled metrics in a relational
// database and answers the aggregation queries of the console.
package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/glebarez/sqlite"
	"gopkg.in/tomb.v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"unifimon/common/daemon"
	"unifimon/common/reporter"
)

// Component represents the storage component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	db        *gorm.DB
	lastWrite atomic.Int64

	metrics struct {
		insertedRows *reporter.CounterVec
		deletedRows  *reporter.CounterVec
		errors       *reporter.CounterVec
	}
}

// Dependencies define the dependencies of the storage component.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
}

// New creates a new storage component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	c := Component{
		r:      r,
		d:      &dependencies,
		config: configuration,
	}

	var dialector gorm.Dialector
	switch c.config.Driver {
	case "sqlite":
		dialector = sqlite.Open(c.config.DSN)
	case "mysql":
		dialector = mysql.Open(c.config.DSN)
	case "postgres":
		dialector = postgres.Open(c.config.DSN)
	default:
		return nil, fmt.Errorf("%q is not a supported driver", c.config.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 &logger{r},
		CreateBatchSize:        c.config.BatchSize,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if c.config.Driver == "sqlite" {
		// SQLite only supports one writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("unable to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	c.db = db

	c.metrics.insertedRows = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "inserted_rows_total",
			Help: "Number of rows inserted.",
		},
		[]string{"table"},
	)
	c.metrics.deletedRows = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "deleted_rows_total",
			Help: "Number of rows removed by the retention cleanup.",
		},
		[]string{"table"},
	)
	c.metrics.errors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of errors while writing to the database.",
		},
		[]string{"table"},
	)

	c.r.RegisterHealthcheck("storage", c.healthcheck())
	c.d.Daemon.Track(&c.t, "storage")
	return &c, nil
}

// Start migrates the schema and starts the retention loop.
func (c *Component) Start() error {
	c.r.Info().Msg("starting storage component")
	models := make([]interface{}, len(tables))
	for i, table := range tables {
		models[i] = table
	}
	if err := c.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("cannot migrate database: %w", err)
	}

	c.t.Go(func() error {
		ticker := c.d.Clock.Ticker(c.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.t.Dying():
				return nil
			case <-ticker.C:
				cutoff := c.d.Clock.Now().Add(-c.config.Retention)
				ctx, cancel := context.WithTimeout(c.t.Context(nil), time.Minute)
				deleted, err := c.DeleteOlderThan(ctx, cutoff)
				cancel()
				if err != nil {
					c.r.Err(err).Msg("cannot remove old rows")
					continue
				}
				c.r.Info().
					Int64("rows", deleted).
					Dur("retention", c.config.Retention).
					Msg("removed old rows")
			}
		}
	})
	return nil
}

// Stop stops the retention loop and closes the database.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("storage component stopped")
	c.r.Info().Msg("stopping storage component")
	c.t.Kill(nil)
	if err := c.t.Wait(); err != nil {
		return err
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Name identifies the sink in flow listener metrics.
func (c *Component) Name() string {
	return "storage"
}

func (c *Component) healthcheck() reporter.HealthcheckFunc {
	return func(ctx context.Context) reporter.HealthcheckResult {
		sqlDB, err := c.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return reporter.HealthcheckResult{
				Status: reporter.HealthcheckError,
				Reason: fmt.Sprintf("database unreachable: %s", err),
			}
		}
		return reporter.HealthcheckResult{
			Status: reporter.HealthcheckOK,
			Reason: "database reachable",
		}
	}
}
