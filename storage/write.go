// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"unifimon/common/schema"
)

// insert creates the provided rows in table. Empty batches are a no-op.
func insert[T any](ctx context.Context, c *Component, table string, ts time.Time, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&rows).Error; err != nil {
		c.metrics.errors.WithLabelValues(table).Inc()
		return fmt.Errorf("cannot insert into %s: %w", table, err)
	}
	c.metrics.insertedRows.WithLabelValues(table).Add(float64(len(rows)))
	c.lastWrite.Store(toTS(ts))
	return nil
}

// InsertFlowBatch stores a batch of flows received at ts.
func (c *Component) InsertFlowBatch(ctx context.Context, ts time.Time, flows []schema.FlowRecord) error {
	t := toTS(ts)
	rows := make([]flowRow, len(flows))
	for i, flow := range flows {
		rows[i] = newFlowRow(t, flow)
	}
	return insert(ctx, c, "netflow", ts, rows)
}

// InsertWAN stores one WAN sample.
func (c *Component) InsertWAN(ctx context.Context, ts time.Time, wan schema.WANStatus) error {
	return insert(ctx, c, "wan_metrics", ts, []wanRow{newWANRow(toTS(ts), wan)})
}

// InsertDevices stores a snapshot of devices.
func (c *Component) InsertDevices(ctx context.Context, ts time.Time, devices []schema.Device) error {
	t := toTS(ts)
	rows := make([]deviceRow, len(devices))
	for i, device := range devices {
		rows[i] = newDeviceRow(t, device)
	}
	return insert(ctx, c, "devices", ts, rows)
}

// InsertClients stores a snapshot of clients.
func (c *Component) InsertClients(ctx context.Context, ts time.Time, clients []schema.Client) error {
	t := toTS(ts)
	rows := make([]clientRow, len(clients))
	for i, client := range clients {
		rows[i] = newClientRow(t, client)
	}
	return insert(ctx, c, "clients", ts, rows)
}

// InsertAlarms appends the alarms of one poll. Readers only consider
// the latest poll.
func (c *Component) InsertAlarms(ctx context.Context, ts time.Time, alarms []schema.Alarm) error {
	t := toTS(ts)
	rows := make([]alarmRow, len(alarms))
	for i, alarm := range alarms {
		rows[i] = newAlarmRow(t, alarm)
	}
	return insert(ctx, c, "alarms", ts, rows)
}

// DeleteOlderThan removes rows older than cutoff from every table and
// returns the number of rows removed.
func (c *Component) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted := make([]int64, len(tables))
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, table := range tables {
			result := tx.Where("ts < ?", toTS(cutoff)).Delete(table)
			if result.Error != nil {
				return fmt.Errorf("cannot delete from %s: %w", table.TableName(), result.Error)
			}
			deleted[i] = result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	var total int64
	for i, table := range tables {
		c.metrics.deletedRows.WithLabelValues(table.TableName()).Add(float64(deleted[i]))
		total += deleted[i]
	}
	return total, nil
}
