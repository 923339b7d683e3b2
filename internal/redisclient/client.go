// Package redisclient wraps the Redis connection used for the platform
// settings cache and short-lived submit locks. Redis is never the
// authority for any balance; the database transactions are.
package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	settingsKey = "platform:settings"
	settingsTTL = 30 * time.Second
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetSettings returns the cached platform settings, or (nil, false) on a
// miss. Errors degrade to a miss so the caller falls through to the
// database.
func (c *Client) GetSettings(ctx context.Context) (*models.PlatformSettings, bool) {
	raw, err := c.rdb.Get(ctx, settingsKey).Bytes()
	if err != nil {
		return nil, false
	}

	var settings models.PlatformSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false
	}
	return &settings, true
}

// SetSettings caches the platform settings with a short TTL
func (c *Client) SetSettings(ctx context.Context, settings *models.PlatformSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return c.rdb.Set(ctx, settingsKey, raw, settingsTTL).Err()
}

// InvalidateSettings drops the cached settings after a fee update
func (c *Client) InvalidateSettings(ctx context.Context) error {
	return c.rdb.Del(ctx, settingsKey).Err()
}

// AcquireLock acquires a short-lived lock; used to reject withdrawal
// double-submits before the transaction ever opens
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
