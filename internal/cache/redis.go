package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitmatch/fitmatch/internal/config"
)

// EventChannelPattern matches every per-user event channel. The dispatcher's
// bridge goroutine PSUBSCRIBEs to it so events published by any process reach
// local subscribers.
const EventChannelPattern = "events:user:*"

type RedisCache struct {
	Client *redis.Client

	// CounterTTL bounds how long cached counters live without refresh.
	CounterTTL time.Duration
}

// NewRedisCache initializes a Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	ttl := time.Duration(cfg.Match.CounterTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisCache{Client: redis.NewClient(opts), CounterTTL: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForUnreadNotifications is the cached unread-notification counter key.
func (c *RedisCache) KeyForUnreadNotifications(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// KeyForUnreadMessages is the cached unread-message counter key.
func (c *RedisCache) KeyForUnreadMessages(userID uint64) string {
	return fmt.Sprintf("messages:unread:%d", userID)
}

// KeyForLikeCount is the cached received-likes counter key.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// GetCounter reads a cached counter. A cache miss returns (0, false, nil).
func (c *RedisCache) GetCounter(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, c.CounterTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetCounter stores a counter with the configured TTL.
func (c *RedisCache) SetCounter(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, n, c.CounterTTL).Err()
}

// BumpCounter adjusts a counter by delta and refreshes its TTL. Best-effort:
// callers ignore the error, the DB remains the source of truth.
func (c *RedisCache) BumpCounter(ctx context.Context, key string, delta int64) error {
	if err := c.Client.IncrBy(ctx, key, delta).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, c.CounterTTL).Err()
}

// DropCounter invalidates a cached counter.
func (c *RedisCache) DropCounter(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// EventChannel names the pub/sub channel carrying a user's live events.
func (c *RedisCache) EventChannel(userID uint64) string {
	return fmt.Sprintf("events:user:%d", userID)
}

// PublishEvent pushes a serialized event onto the recipient's channel.
// Zero subscribers is a normal, silent case.
func (c *RedisCache) PublishEvent(ctx context.Context, userID uint64, payload []byte) error {
	return c.Client.Publish(ctx, c.EventChannel(userID), payload).Err()
}

// SubscribeEvents opens a pattern subscription over all per-user event
// channels. The caller owns the returned PubSub and must Close it.
func (c *RedisCache) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return c.Client.PSubscribe(ctx, EventChannelPattern)
}
