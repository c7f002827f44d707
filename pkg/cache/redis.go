package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisClient stores collections as plain Redis string keys. It implements
// kvstore.Store and kvstore.Batcher.
type RedisClient struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// Options configures NewRedisClient.
type Options struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every collection key, e.g. "pos:".
	KeyPrefix string
}

// NewRedisClient initializes and returns a new Redis client
func NewRedisClient(opts Options, logger *zap.Logger) (*RedisClient, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.String("ping", pong))

	return &RedisClient{client: client, prefix: opts.KeyPrefix, logger: logger}, nil
}

func (c *RedisClient) key(k string) string {
	return c.prefix + k
}

// Get returns the value stored under key; redis.Nil is reported as not found.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to GET %s from Redis: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key with no expiration.
func (c *RedisClient) Put(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET %s in Redis: %w", key, err)
	}
	return nil
}

// PutMulti writes all values inside one MULTI/EXEC block.
func (c *RedisClient) PutMulti(ctx context.Context, values map[string][]byte) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, c.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to execute Redis transaction: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() {
	if c.client != nil {
		c.client.Close()
		c.logger.Info("redis connection closed")
	}
}

// GetClient returns the underlying *redis.Client instance
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}
