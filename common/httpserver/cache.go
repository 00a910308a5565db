// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package httpserver

import (
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/gin-gonic/gin"

	"unifimon/common/reporter"
)

// CacheByRequestURI is a middleware to cache the request using the path and
// the query string as key.
func (c *Component) CacheByRequestURI(expire time.Duration) gin.HandlerFunc {
	opts := c.commonCacheOptions()
	opts = append(opts, cache.WithCacheStrategyByRequest(func(gc *gin.Context) (bool, cache.Strategy) {
		return true, cache.Strategy{
			CacheKey: gc.Request.URL.RequestURI(),
		}
	}))
	return cache.Cache(c.cacheStore, expire, opts...)
}

func (c *Component) commonCacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithLogger(cacheLogger{c.r}),
		cache.WithOnHitCache(func(gc *gin.Context) {
			c.metrics.cacheHit.WithLabelValues(gc.Request.URL.Path, gc.Request.Method).Inc()
		}),
		cache.WithOnMissCache(func(gc *gin.Context) {
			c.metrics.cacheMiss.WithLabelValues(gc.Request.URL.Path, gc.Request.Method).Inc()
		}),
		cache.WithPrefixKey("cache-"),
	}
}

type cacheLogger struct {
	r *reporter.Reporter
}

func (cl cacheLogger) Errorf(msg string, args ...interface{}) {
	cl.r.Error().Msgf(msg, args...)
}
