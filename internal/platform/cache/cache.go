package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis cache configuration
type Config struct {
	Address      string
	Password     string // #nosec G117
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// Cache wraps redis.Client with additional functionality
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a new Redis cache client
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("redis connection established",
		"address", cfg.Address,
		"db", cfg.DB,
	)

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	c.logger.Info("redis connection closed")
	return nil
}

// HealthCheck performs a health check on Redis
func (c *Cache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return c.client.Ping(ctx).Err()
}

// PushCapped prepends value to the list at key and trims the list to size
// elements. A positive ttl refreshes the key expiry.
func (c *Cache) PushCapped(ctx context.Context, key string, value []byte, size int64, ttl time.Duration) error {
	if size <= 0 {
		return fmt.Errorf("list size must be positive")
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, size-1)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		if isContextDoneError(err) {
			c.logger.Debug("cache push aborted by context", "key", key, "error", err)
			return fmt.Errorf("failed to push list: %w", err)
		}
		c.logger.Error("failed to push list", "key", key, "error", err)
		return fmt.Errorf("failed to push list: %w", err)
	}
	return nil
}

// RangeBytes returns list elements start..stop (inclusive) at key.
func (c *Cache) RangeBytes(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := c.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		c.logger.Error("failed to read list", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

var incrementWithTTLScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if v == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// IncrementWithTTL increments a counter and starts its window when the key is created.
func (c *Cache) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be positive")
	}
	val, err := incrementWithTTLScript.Run(ctx, c.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		c.logger.Error("failed to increment counter", "key", key, "error", err)
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return val, nil
}

// Delete deletes a value from cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("failed to delete cache", "keys", keys, "error", err)
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func isContextDoneError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
