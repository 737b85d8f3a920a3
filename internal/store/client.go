package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps the Redis connection with the hash-store primitives the brain
// needs. Every operation logs failures and returns them wrapped; missing keys
// and fields read as zero values, not errors.
type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewClientFromRedis wires an existing redis client; used by tests running
// against miniredis.
func NewClientFromRedis(rdb *redis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		c.logger.Error("Store get failed", zap.String("key", key), zap.Error(err))
		return "", errors.NewCacheError("get failed", "get", key, err)
	}
	return value, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		c.logger.Error("Store set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Error("Store keys search failed", zap.String("pattern", pattern), zap.Error(err))
		return nil, errors.NewCacheError("keys search failed", "keys", pattern, err)
	}
	return keys, nil
}

// BatchGet fetches many string keys in one round trip. The result slice is
// positionally aligned with keys; missing keys and keys holding non-string
// values come back as empty strings.
func (c *Client) BatchGet(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}

	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("Store batch get failed", zap.Int("keys", len(keys)), zap.Error(err))
		return nil, errors.NewCacheError("batch get failed", "mget", fmt.Sprintf("%d keys", len(keys)), err)
	}

	values := make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			values[i] = s
		}
	}
	return values, nil
}

// BatchSet writes many string keys in one pipelined round trip.
func (c *Client) BatchSet(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return errors.NewValidationError("batch set requires at least one entry", "entries", entries)
	}

	pipe := c.rdb.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("Store batch set failed", zap.Int("entries", len(entries)), zap.Error(err))
		return errors.NewCacheError("batch set failed", "pipeline set", fmt.Sprintf("%d entries", len(entries)), err)
	}
	return nil
}

func (c *Client) HashGet(ctx context.Context, key, field string) (string, error) {
	value, err := c.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		c.logger.Error("Store hget failed", zap.String("key", key), zap.String("field", field), zap.Error(err))
		return "", errors.NewCacheError("hget failed", "hget", key, err)
	}
	return value, nil
}

func (c *Client) HashSet(ctx context.Context, key, field, value string) error {
	if err := c.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		c.logger.Error("Store hset failed", zap.String("key", key), zap.String("field", field), zap.Error(err))
		return errors.NewCacheError("hset failed", "hset", key, err)
	}
	return nil
}

func (c *Client) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		c.logger.Error("Store hgetall failed", zap.String("key", key), zap.Error(err))
		return nil, errors.NewCacheError("hgetall failed", "hgetall", key, err)
	}
	return values, nil
}

// HashIncrBy relies on the server-side HINCRBY so concurrent increments of
// the same field commute without client-side locking.
func (c *Client) HashIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	total, err := c.rdb.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		c.logger.Error("Store hincrby failed",
			zap.String("key", key),
			zap.String("field", field),
			zap.Int64("delta", delta),
			zap.Error(err),
		)
		return 0, errors.NewCacheError("hincrby failed", "hincrby", key, err)
	}
	return total, nil
}

func (c *Client) IsConnected(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
