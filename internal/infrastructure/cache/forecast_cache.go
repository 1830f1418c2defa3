// Package cache keeps the last-known forecast per user so the dashboard can
// render something while a fresh prediction is on its way. The cache is a
// presentation nicety, never a source of truth: entries expire and a cache
// miss simply means the dashboard waits for the backend.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/forecast"
	"github.com/glucomeal/web/internal/infrastructure/config"
)

// ForecastCache stores the most recent forecast series per user
type ForecastCache interface {
	Get(ctx context.Context, userID int64) (forecast.Series, bool)
	Set(ctx context.Context, userID int64, series forecast.Series)
}

// New selects the cache backend from configuration: Redis when an address is
// configured, otherwise a process-local map.
func New(cfg *config.Config, logger *zap.Logger) ForecastCache {
	if cfg.Redis.Addr == "" {
		logger.Info("forecast cache using in-memory store")
		return NewMemoryCache(cfg.Redis.CacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	logger.Info("forecast cache using redis", zap.String("addr", cfg.Redis.Addr))
	return &RedisCache{
		client: client,
		ttl:    cfg.Redis.CacheTTL,
		logger: logger,
	}
}

// RedisCache keeps forecasts in Redis so they survive frontend restarts
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func forecastKey(userID int64) string {
	return fmt.Sprintf("forecast:last:%d", userID)
}

// Get returns the cached series for a user, if any
func (c *RedisCache) Get(ctx context.Context, userID int64) (forecast.Series, bool) {
	raw, err := c.client.Get(ctx, forecastKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("forecast cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var series forecast.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		c.logger.Warn("discarding undecodable cached forecast", zap.Error(err))
		return nil, false
	}
	return series, true
}

// Set stores the latest series for a user. Failures are logged and ignored;
// the cache must never fail a page load.
func (c *RedisCache) Set(ctx context.Context, userID int64, series forecast.Series) {
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, forecastKey(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("forecast cache write failed", zap.Error(err))
	}
}

// MemoryCache is the fallback when no Redis is configured
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	series    forecast.Series
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory forecast cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryCache{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
	}
}

// Get returns the cached series for a user, if present and unexpired
func (c *MemoryCache) Get(_ context.Context, userID int64) (forecast.Series, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.series, true
}

// Set stores the latest series for a user
func (c *MemoryCache) Set(_ context.Context, userID int64, series forecast.Series) {
	c.mu.Lock()
	c.entries[userID] = memoryEntry{series: series, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
