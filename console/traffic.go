// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package console

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"unifimon/storage"
)

type trafficQuery struct {
	Hours float64 `form:"hours,default=1" binding:"min=0.1,max=8760"`
	Limit int     `form:"limit,default=20" binding:"min=1,max=1000"`
}

type dnsQueriesQuery struct {
	Hours float64 `form:"hours,default=1" binding:"min=0.1,max=8760"`
	Limit int     `form:"limit,default=100" binding:"min=1,max=1000"`
}

type bandwidthQuery struct {
	Hours         float64 `form:"hours,default=24" binding:"min=0.1,max=8760"`
	BucketMinutes int     `form:"bucket_minutes,default=5" binding:"min=1,max=1440"`
}

type hostTraffic struct {
	storage.HostTraffic
	TotalBytesFmt string `json:"total_bytes_fmt"`
}

type portTraffic struct {
	storage.PortTraffic
	TotalBytesFmt string `json:"total_bytes_fmt"`
}

type dnsConversation struct {
	storage.DNSConversation
	TotalBytesFmt string `json:"total_bytes_fmt"`
}

type dnsHost struct {
	storage.DNSHost
	TotalBytesFmt string `json:"total_bytes_fmt"`
}

type bandwidthPoint struct {
	storage.BandwidthPoint
	Mbps float64 `json:"mbps"`
}

// trafficHandler binds the query, runs it and formats each row.
func trafficHandler[Q any, R any, O any](c *Component, name string,
	query func(context.Context, Q) ([]R, error), format func(Q, R) O) gin.HandlerFunc {
	return func(gc *gin.Context) {
		var input Q
		if err := gc.ShouldBindQuery(&input); err != nil {
			badRequest(gc, err)
			return
		}
		rows, err := query(gc.Request.Context(), input)
		if !c.storageQuery(gc, name, err) {
			return
		}
		output := make([]O, len(rows))
		for i, row := range rows {
			output[i] = format(input, row)
		}
		gc.JSON(http.StatusOK, output)
	}
}

func (c *Component) topHostsHandlerFunc(name string,
	query func(context.Context, time.Time, int) ([]storage.HostTraffic, error)) gin.HandlerFunc {
	return trafficHandler(c, name,
		func(ctx context.Context, q trafficQuery) ([]storage.HostTraffic, error) {
			return query(ctx, c.since(q.Hours), q.Limit)
		},
		func(_ trafficQuery, row storage.HostTraffic) hostTraffic {
			return hostTraffic{row, humanize.IBytes(row.TotalBytes)}
		})
}

func (c *Component) topTalkersHandlerFunc(gc *gin.Context) {
	c.topHostsHandlerFunc("top-talkers", c.d.Storage.TopTalkers)(gc)
}

func (c *Component) topDestinationsHandlerFunc(gc *gin.Context) {
	c.topHostsHandlerFunc("top-destinations", c.d.Storage.TopDestinations)(gc)
}

func (c *Component) topPortsHandlerFunc(gc *gin.Context) {
	trafficHandler(c, "top-ports",
		func(ctx context.Context, q trafficQuery) ([]storage.PortTraffic, error) {
			return c.d.Storage.TopPorts(ctx, c.since(q.Hours), q.Limit)
		},
		func(_ trafficQuery, row storage.PortTraffic) portTraffic {
			return portTraffic{row, humanize.IBytes(row.TotalBytes)}
		})(gc)
}

func (c *Component) bandwidthHandlerFunc(gc *gin.Context) {
	trafficHandler(c, "bandwidth",
		func(ctx context.Context, q bandwidthQuery) ([]storage.BandwidthPoint, error) {
			return c.d.Storage.Bandwidth(ctx, c.since(q.Hours), time.Duration(q.BucketMinutes)*time.Minute)
		},
		func(q bandwidthQuery, row storage.BandwidthPoint) bandwidthPoint {
			mbps := float64(row.TotalBytes*8) / float64(q.BucketMinutes*60*1_000_000)
			return bandwidthPoint{row, math.Round(mbps*100) / 100}
		})(gc)
}

func (c *Component) dnsQueriesHandlerFunc(gc *gin.Context) {
	trafficHandler(c, "dns-queries",
		func(ctx context.Context, q dnsQueriesQuery) ([]storage.DNSConversation, error) {
			return c.d.Storage.DNSQueries(ctx, c.since(q.Hours), q.Limit)
		},
		func(_ dnsQueriesQuery, row storage.DNSConversation) dnsConversation {
			return dnsConversation{row, humanize.IBytes(row.TotalBytes)}
		})(gc)
}

func (c *Component) dnsHostsHandlerFunc(name string,
	query func(context.Context, time.Time, int) ([]storage.DNSHost, error)) gin.HandlerFunc {
	return trafficHandler(c, name,
		func(ctx context.Context, q trafficQuery) ([]storage.DNSHost, error) {
			return query(ctx, c.since(q.Hours), q.Limit)
		},
		func(_ trafficQuery, row storage.DNSHost) dnsHost {
			return dnsHost{row, humanize.IBytes(row.TotalBytes)}
		})
}

func (c *Component) dnsTopClientsHandlerFunc(gc *gin.Context) {
	c.dnsHostsHandlerFunc("dns-top-clients", c.d.Storage.DNSTopClients)(gc)
}

func (c *Component) dnsTopServersHandlerFunc(gc *gin.Context) {
	c.dnsHostsHandlerFunc("dns-top-servers", c.d.Storage.DNSTopServers)(gc)
}
