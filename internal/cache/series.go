// Package cache stores generated series in Redis for the HTTP API.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkugel/radiation-server/internal/resample"
)

// CachedSeries is the stored form of one sensor's resampled series.
type CachedSeries struct {
	SensorID    int64            `json:"sensor_id"`
	Profile     string           `json:"profile"`
	GeneratedAt time.Time        `json:"generated_at"`
	Series      []resample.Point `json:"series"`
}

// SeriesCache manages resampled series in Redis
type SeriesCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSeriesCache creates a new series cache
func NewSeriesCache(redisClient *redis.Client, ttl time.Duration) *SeriesCache {
	return &SeriesCache{redis: redisClient, ttl: ttl}
}

func seriesKey(profile string, sensorID int64) string {
	return fmt.Sprintf("series:%s:%d", profile, sensorID)
}

// Set stores a generated series under its profile and sensor.
func (c *SeriesCache) Set(ctx context.Context, entry *CachedSeries) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	key := seriesKey(entry.Profile, entry.SensorID)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set series in Redis: %w", err)
	}
	return nil
}

// Get retrieves a cached series; a cache miss returns (nil, nil).
func (c *SeriesCache) Get(ctx context.Context, profile string, sensorID int64) (*CachedSeries, error) {
	data, err := c.redis.Get(ctx, seriesKey(profile, sensorID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series from Redis: %w", err)
	}

	var entry CachedSeries
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}
	return &entry, nil
}

// Delete removes a cached series.
func (c *SeriesCache) Delete(ctx context.Context, profile string, sensorID int64) error {
	return c.redis.Del(ctx, seriesKey(profile, sensorID)).Err()
}
