// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/go-redis/redis/v8"
)

// Configuration describes the configuration for the HTTP server.
type Configuration struct {
	// Listen defines the listening string to listen to.
	Listen string `validate:"required,listen"`
	// Profiler enables Go profiler as /debug
	Profiler bool
	// Cache configuration
	Cache CacheConfiguration
}

// CacheConfiguration describes the configuration of the HTTP cache used for
// expensive API endpoints.
type CacheConfiguration struct {
	// Type is either "memory" or "redis"
	Type string `validate:"oneof=memory redis"`
	// TTL is the default expiration for the memory store
	TTL time.Duration `validate:"min=1s"`
	// Redis is the configuration of the Redis backend
	Redis RedisCacheConfiguration
}

// RedisCacheConfiguration is the configuration for a Redis cache.
type RedisCacheConfiguration struct {
	// Protocol to connect with
	Protocol string `validate:"oneof=tcp unix"`
	// Server to connect to (with port)
	Server string
	// Optional username
	Username string
	// Optional password
	Password string
	// Database to connect to
	DB int
}

// DefaultConfiguration is the default configuration of the HTTP server.
func DefaultConfiguration() Configuration {
	return Configuration{
		Listen: "0.0.0.0:8080",
		Cache: CacheConfiguration{
			Type: "memory",
			TTL:  5 * time.Minute,
			Redis: RedisCacheConfiguration{
				Protocol: "tcp",
				Server:   "127.0.0.1:6379",
			},
		},
	}
}

// ErrUnknownCacheType is returned when the cache type is not known.
var ErrUnknownCacheType = errors.New("unknown cache type")

// newStore creates the cache store matching the configuration. The returned
// function releases resources attached to the store.
func (cc CacheConfiguration) newStore(ctx context.Context) (persist.CacheStore, func() error, error) {
	switch cc.Type {
	case "", "memory":
		return persist.NewMemoryStore(cc.TTL), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Network:  cc.Redis.Protocol,
			Addr:     cc.Redis.Server,
			Username: cc.Redis.Username,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		if _, err := client.Ping(ctx).Result(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("cannot ping Redis server: %w", err)
		}
		return persist.NewRedisStore(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCacheType, cc.Type)
	}
}
