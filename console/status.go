// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package console

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type historyQuery struct {
	Hours float64 `form:"hours,default=24" binding:"min=0.1,max=8760"`
}

type clientsQuery struct {
	Offset int `form:"offset,default=0" binding:"min=0"`
	Limit  int `form:"limit,default=50" binding:"min=1,max=500"`
}

type clientURI struct {
	MAC string `uri:"mac" binding:"required,mac"`
}

// since returns the time hours ago.
func (c *Component) since(hours float64) time.Time {
	return c.d.Clock.Now().Add(-time.Duration(hours * float64(time.Hour)))
}

func (c *Component) healthHandlerFunc(gc *gin.Context) {
	now := c.d.Clock.Now()
	response := gin.H{
		"status":   "ok",
		"uptime_s": math.Round(now.Sub(c.startTime).Seconds()*10) / 10,
	}
	stats, err := c.d.Storage.Stats(gc.Request.Context())
	if err != nil {
		c.r.Err(err).Msg("unable to get database statistics")
		response["status"] = "degraded"
		gc.JSON(http.StatusOK, response)
		return
	}
	response["rows"] = stats.Rows
	response["last_write_ts"] = int64(0)
	if !stats.LastWrite.IsZero() {
		response["last_write_ts"] = stats.LastWrite.Unix()
	}
	gc.JSON(http.StatusOK, response)
}

func (c *Component) overviewHandlerFunc(gc *gin.Context) {
	overview, err := c.d.Storage.Overview(gc.Request.Context(), c.d.Clock.Now())
	if !c.storageQuery(gc, "overview", err) {
		return
	}
	gc.JSON(http.StatusOK, overview)
}

func (c *Component) clientsHandlerFunc(gc *gin.Context) {
	var input clientsQuery
	if err := gc.ShouldBindQuery(&input); err != nil {
		badRequest(gc, err)
		return
	}
	clients, err := c.d.Storage.LatestClients(gc.Request.Context())
	if !c.storageQuery(gc, "clients", err) {
		return
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].RxBytes > clients[j].RxBytes
	})
	start := min(input.Offset, len(clients))
	end := min(start+input.Limit, len(clients))
	gc.JSON(http.StatusOK, gin.H{
		"total":  len(clients),
		"offset": input.Offset,
		"limit":  input.Limit,
		"data":   clients[start:end],
	})
}

func (c *Component) clientHistoryHandlerFunc(gc *gin.Context) {
	var uri clientURI
	if err := gc.ShouldBindUri(&uri); err != nil {
		badRequest(gc, err)
		return
	}
	var input historyQuery
	if err := gc.ShouldBindQuery(&input); err != nil {
		badRequest(gc, err)
		return
	}
	history, err := c.d.Storage.ClientHistory(gc.Request.Context(), uri.MAC, c.since(input.Hours))
	if !c.storageQuery(gc, "client-history", err) {
		return
	}
	gc.JSON(http.StatusOK, history)
}

func (c *Component) devicesHandlerFunc(gc *gin.Context) {
	devices, err := c.d.Storage.LatestDevices(gc.Request.Context())
	if !c.storageQuery(gc, "devices", err) {
		return
	}
	gc.JSON(http.StatusOK, devices)
}

func (c *Component) wanHistoryHandlerFunc(gc *gin.Context) {
	var input historyQuery
	if err := gc.ShouldBindQuery(&input); err != nil {
		badRequest(gc, err)
		return
	}
	history, err := c.d.Storage.WANHistory(gc.Request.Context(), c.since(input.Hours))
	if !c.storageQuery(gc, "wan-history", err) {
		return
	}
	gc.JSON(http.StatusOK, history)
}

func (c *Component) alarmsHandlerFunc(gc *gin.Context) {
	alarms, err := c.d.Storage.ActiveAlarms(gc.Request.Context())
	if !c.storageQuery(gc, "alarms", err) {
		return
	}
	gc.JSON(http.StatusOK, alarms)
}
