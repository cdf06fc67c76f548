package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache TTLs per result kind
const (
	AnalysisTTL      = 30 * time.Minute
	OpportunitiesTTL = 10 * time.Minute
	InventoryTTL     = 5 * time.Minute
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

// SetAnalysis caches a serialized analysis result under its request key
func (c *Client) SetAnalysis(ctx context.Context, key string, value interface{}) error {
	return c.setJSON(ctx, fmt.Sprintf("analysis:%s", key), value, AnalysisTTL)
}

// GetAnalysis retrieves a cached analysis result.
// Returns false when the key is absent.
func (c *Client) GetAnalysis(ctx context.Context, key string, dest interface{}) (bool, error) {
	return c.getJSON(ctx, fmt.Sprintf("analysis:%s", key), dest)
}

// SetOpportunities caches an opportunity report
func (c *Client) SetOpportunities(ctx context.Context, key string, value interface{}) error {
	return c.setJSON(ctx, fmt.Sprintf("opportunities:%s", key), value, OpportunitiesTTL)
}

// GetOpportunities retrieves a cached opportunity report
func (c *Client) GetOpportunities(ctx context.Context, key string, dest interface{}) (bool, error) {
	return c.getJSON(ctx, fmt.Sprintf("opportunities:%s", key), dest)
}

// SetInventory caches the inventory snapshot
func (c *Client) SetInventory(ctx context.Context, value interface{}) error {
	return c.setJSON(ctx, "inventory:all", value, InventoryTTL)
}

// GetInventory retrieves the cached inventory snapshot
func (c *Client) GetInventory(ctx context.Context, dest interface{}) (bool, error) {
	return c.getJSON(ctx, "inventory:all", dest)
}

// InvalidateAnalysis drops all cached analysis and opportunity results,
// called after a ledger refresh
func (c *Client) InvalidateAnalysis(ctx context.Context) error {
	for _, pattern := range []string{"analysis:*", "opportunities:*"} {
		iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

// AcquireLock acquires a distributed lock, used to keep concurrent
// analysis runs for the same request from duplicating work
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func (c *Client) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Client) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}
