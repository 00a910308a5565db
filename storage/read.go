// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"unifimon/common/schema"
)

// HostTraffic is the traffic aggregated for one address.
type HostTraffic struct {
	IP           string `json:"ip"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	FlowCount    int64  `json:"flow_count"`
}

// PortTraffic is the traffic aggregated for one destination port.
type PortTraffic struct {
	DstPort      uint16 `json:"dst_port"`
	Protocol     uint8  `json:"protocol"`
	ProtocolName string `json:"protocol_name" gorm:"-"`
	TotalBytes   uint64 `json:"total_bytes"`
	FlowCount    int64  `json:"flow_count"`
}

// DNSConversation is the DNS traffic between a client and a server.
type DNSConversation struct {
	SrcIP        string `json:"src_ip"`
	DstIP        string `json:"dst_ip"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	QueryCount   int64  `json:"query_count"`
}

// DNSHost is the DNS traffic aggregated for one client or one server.
type DNSHost struct {
	IP           string `json:"ip"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	QueryCount   int64  `json:"query_count"`
}

// BandwidthPoint is the traffic seen during one bucket.
type BandwidthPoint struct {
	Bucket       time.Time `json:"bucket"`
	TotalBytes   uint64    `json:"total_bytes"`
	TotalPackets uint64    `json:"total_packets"`
}

type bandwidthRow struct {
	TS           int64  `gorm:"column:ts"`
	TotalBytes   uint64 `gorm:"column:total_bytes"`
	TotalPackets uint64 `gorm:"column:total_packets"`
}

// Stats is a summary of the database content.
type Stats struct {
	Rows      map[string]int64 `json:"rows"`
	LastWrite time.Time        `json:"last_write"`
}

// dnsPorts are DNS and DNS over TLS.
var dnsPorts = []int{53, 853}

func (c *Component) flows(ctx context.Context, since time.Time) *gorm.DB {
	return c.db.WithContext(ctx).Model(&flowRow{}).Where("ts > ?", toTS(since))
}

func (c *Component) dnsFlows(ctx context.Context, since time.Time) *gorm.DB {
	return c.flows(ctx, since).
		Where("dst_port IN ?", dnsPorts).
		Where("protocol IN ?", []int{schema.ProtoTCP, schema.ProtoUDP})
}

func (c *Component) topHosts(ctx context.Context, column string, since time.Time, limit int) ([]HostTraffic, error) {
	results := []HostTraffic{}
	err := c.flows(ctx, since).
		Select(column + " AS ip, SUM(bytes) AS total_bytes, SUM(packets) AS total_packets, COUNT(*) AS flow_count").
		Group(column).
		Order("total_bytes DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get top hosts by %s: %w", column, err)
	}
	return results, nil
}

// TopTalkers returns the source addresses sending the most bytes since
// the provided time.
func (c *Component) TopTalkers(ctx context.Context, since time.Time, limit int) ([]HostTraffic, error) {
	return c.topHosts(ctx, "src_ip", since, limit)
}

// TopDestinations returns the destination addresses receiving the most
// bytes since the provided time.
func (c *Component) TopDestinations(ctx context.Context, since time.Time, limit int) ([]HostTraffic, error) {
	return c.topHosts(ctx, "dst_ip", since, limit)
}

// TopPorts returns the destination ports receiving the most bytes.
func (c *Component) TopPorts(ctx context.Context, since time.Time, limit int) ([]PortTraffic, error) {
	results := []PortTraffic{}
	err := c.flows(ctx, since).
		Select("dst_port, protocol, SUM(bytes) AS total_bytes, COUNT(*) AS flow_count").
		Group("dst_port, protocol").
		Order("total_bytes DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get top ports: %w", err)
	}
	for i := range results {
		results[i].ProtocolName = schema.ProtocolName(results[i].Protocol)
	}
	return results, nil
}

// DNSQueries returns the DNS conversations with the most flows.
func (c *Component) DNSQueries(ctx context.Context, since time.Time, limit int) ([]DNSConversation, error) {
	results := []DNSConversation{}
	err := c.dnsFlows(ctx, since).
		Select("src_ip, dst_ip, SUM(bytes) AS total_bytes, SUM(packets) AS total_packets, COUNT(*) AS query_count").
		Group("src_ip, dst_ip").
		Order("query_count DESC").Order("total_bytes DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get DNS queries: %w", err)
	}
	return results, nil
}

func (c *Component) dnsHosts(ctx context.Context, column string, since time.Time, limit int) ([]DNSHost, error) {
	results := []DNSHost{}
	err := c.dnsFlows(ctx, since).
		Select(column + " AS ip, SUM(bytes) AS total_bytes, SUM(packets) AS total_packets, COUNT(*) AS query_count").
		Group(column).
		Order("query_count DESC").Order("total_bytes DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get DNS hosts by %s: %w", column, err)
	}
	return results, nil
}

// DNSTopClients returns the clients sending the most DNS queries.
func (c *Component) DNSTopClients(ctx context.Context, since time.Time, limit int) ([]DNSHost, error) {
	return c.dnsHosts(ctx, "src_ip", since, limit)
}

// DNSTopServers returns the servers receiving the most DNS queries.
func (c *Component) DNSTopServers(ctx context.Context, since time.Time, limit int) ([]DNSHost, error) {
	return c.dnsHosts(ctx, "dst_ip", since, limit)
}

// Bandwidth returns the traffic since the provided time, summed per
// bucket. Buckets are aligned on the Unix epoch.
func (c *Component) Bandwidth(ctx context.Context, since time.Time, bucket time.Duration) ([]BandwidthPoint, error) {
	if bucket < time.Millisecond {
		return nil, errors.New("bucket should be at least 1ms")
	}
	// Flows of one batch share the same timestamp: the database returns
	// one row per batch and buckets are computed here.
	var rows []bandwidthRow
	err := c.flows(ctx, since).
		Select("ts, SUM(bytes) AS total_bytes, SUM(packets) AS total_packets").
		Group("ts").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get bandwidth: %w", err)
	}
	width := bucket.Milliseconds()
	buckets := map[int64]*BandwidthPoint{}
	for _, row := range rows {
		key := row.TS - row.TS%width
		point, ok := buckets[key]
		if !ok {
			point = &BandwidthPoint{Bucket: fromTS(key)}
			buckets[key] = point
		}
		point.TotalBytes += row.TotalBytes
		point.TotalPackets += row.TotalPackets
	}
	results := make([]BandwidthPoint, 0, len(buckets))
	for _, point := range buckets {
		results = append(results, *point)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Bucket.Before(results[j].Bucket)
	})
	return results, nil
}

// LatestWAN returns the most recent WAN sample or nil if there is none.
func (c *Component) LatestWAN(ctx context.Context) (*schema.WANStatus, error) {
	var rows []wanRow
	if err := c.db.WithContext(ctx).Order("ts DESC").Order("id DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cannot get latest WAN status: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	wan := rows[0].status()
	return &wan, nil
}

// WANHistory returns the WAN samples since the provided time, oldest first.
func (c *Component) WANHistory(ctx context.Context, since time.Time) ([]schema.WANStatus, error) {
	var rows []wanRow
	err := c.db.WithContext(ctx).
		Where("ts > ?", toTS(since)).
		Order("ts").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get WAN history: %w", err)
	}
	results := make([]schema.WANStatus, len(rows))
	for i, row := range rows {
		results[i] = row.status()
	}
	return results, nil
}

// latestTS returns the most recent timestamp of a table and false when
// the table is empty.
func (c *Component) latestTS(ctx context.Context, model interface{}) (int64, bool, error) {
	var latest sql.NullInt64
	if err := c.db.WithContext(ctx).Model(model).Select("MAX(ts)").Row().Scan(&latest); err != nil {
		return 0, false, err
	}
	return latest.Int64, latest.Valid, nil
}

// LatestDevices returns the devices of the most recent poll.
func (c *Component) LatestDevices(ctx context.Context) ([]schema.Device, error) {
	ts, ok, err := c.latestTS(ctx, &deviceRow{})
	if err != nil {
		return nil, fmt.Errorf("cannot get latest devices: %w", err)
	}
	results := []schema.Device{}
	if !ok {
		return results, nil
	}
	var rows []deviceRow
	if err := c.db.WithContext(ctx).Where("ts = ?", ts).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cannot get latest devices: %w", err)
	}
	for _, row := range rows {
		results = append(results, row.device())
	}
	return results, nil
}

// LatestClients returns the clients of the most recent poll.
func (c *Component) LatestClients(ctx context.Context) ([]schema.Client, error) {
	ts, ok, err := c.latestTS(ctx, &clientRow{})
	if err != nil {
		return nil, fmt.Errorf("cannot get latest clients: %w", err)
	}
	results := []schema.Client{}
	if !ok {
		return results, nil
	}
	var rows []clientRow
	if err := c.db.WithContext(ctx).Where("ts = ?", ts).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cannot get latest clients: %w", err)
	}
	for _, row := range rows {
		results = append(results, row.client())
	}
	return results, nil
}

// ClientHistory returns the samples of one client since the provided
// time, oldest first.
func (c *Component) ClientHistory(ctx context.Context, mac string, since time.Time) ([]schema.Client, error) {
	var rows []clientRow
	err := c.db.WithContext(ctx).
		Where("mac = ? AND ts > ?", mac, toTS(since)).
		Order("ts").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get client history: %w", err)
	}
	results := make([]schema.Client, len(rows))
	for i, row := range rows {
		results[i] = row.client()
	}
	return results, nil
}

// ActiveAlarms returns the non-archived alarms of the most recent poll.
func (c *Component) ActiveAlarms(ctx context.Context) ([]schema.Alarm, error) {
	ts, ok, err := c.latestTS(ctx, &alarmRow{})
	if err != nil {
		return nil, fmt.Errorf("cannot get active alarms: %w", err)
	}
	results := []schema.Alarm{}
	if !ok {
		return results, nil
	}
	var rows []alarmRow
	err = c.db.WithContext(ctx).
		Where("ts = ? AND archived = ?", ts, false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot get active alarms: %w", err)
	}
	for _, row := range rows {
		results = append(results, row.alarm())
	}
	return results, nil
}

// ExportClients returns client samples since the provided time, most
// recent first.
func (c *Component) ExportClients(ctx context.Context, since time.Time, limit int) ([]schema.Client, error) {
	var rows []clientRow
	err := c.db.WithContext(ctx).
		Where("ts > ?", toTS(since)).
		Order("ts DESC").Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot export clients: %w", err)
	}
	results := make([]schema.Client, len(rows))
	for i, row := range rows {
		results[i] = row.client()
	}
	return results, nil
}

// ExportWAN returns WAN samples since the provided time, most recent
// first.
func (c *Component) ExportWAN(ctx context.Context, since time.Time, limit int) ([]schema.WANStatus, error) {
	var rows []wanRow
	err := c.db.WithContext(ctx).
		Where("ts > ?", toTS(since)).
		Order("ts DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot export WAN samples: %w", err)
	}
	results := make([]schema.WANStatus, len(rows))
	for i, row := range rows {
		results[i] = row.status()
	}
	return results, nil
}

// Stats returns the number of rows of each table and the time of the
// last write.
func (c *Component) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Rows: make(map[string]int64, len(tables))}
	for _, table := range tables {
		var count int64
		if err := c.db.WithContext(ctx).Model(table).Count(&count).Error; err != nil {
			return Stats{}, fmt.Errorf("cannot count rows of %s: %w", table.TableName(), err)
		}
		stats.Rows[table.TableName()] = count
	}
	if last := c.lastWrite.Load(); last != 0 {
		stats.LastWrite = fromTS(last)
	}
	return stats, nil
}

// Overview builds an overview from the latest WAN sample, devices,
// clients and active alarms.
func (c *Component) Overview(ctx context.Context, now time.Time) (schema.Overview, error) {
	wan, err := c.LatestWAN(ctx)
	if err != nil {
		return schema.Overview{}, err
	}
	devices, err := c.LatestDevices(ctx)
	if err != nil {
		return schema.Overview{}, err
	}
	clients, err := c.LatestClients(ctx)
	if err != nil {
		return schema.Overview{}, err
	}
	alarms, err := c.ActiveAlarms(ctx)
	if err != nil {
		return schema.Overview{}, err
	}
	return schema.NewOverview(now, wan, devices, clients, alarms), nil
}
