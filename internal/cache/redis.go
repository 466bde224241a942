package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/catmatch/internal/config"
)

type RedisCache struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedisCache initializes Redis client from config.
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
	ttl := cfg.Chat.UnreadTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{Client: redis.NewClient(opts), ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForUnread generates the Redis key for a reader's unread count in a match.
func (c *RedisCache) KeyForUnread(matchID, userID string) string {
	return fmt.Sprintf("unread:count:%s:%s", matchID, userID)
}

// ChannelForMatch is the pub/sub channel new messages of a match are fanned out on.
func (c *RedisCache) ChannelForMatch(matchID string) string {
	return "chat:" + matchID
}

// incrIfPresent bumps an existing counter and refreshes its TTL. A missing
// key stays missing and yields -1.
var incrIfPresent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	local n = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], ARGV[1])
	return n
end
return -1
`)

// IncrUnread bumps the reader's unread counter and refreshes its TTL. It
// never creates the counter: ok is false when there was none, and the next
// read rebuilds it from the database.
func (c *RedisCache) IncrUnread(ctx context.Context, matchID, userID string) (n int64, ok bool, err error) {
	secs := int64(c.ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	n, err = incrIfPresent.Run(ctx, c.Client, []string{c.KeyForUnread(matchID, userID)}, secs).Int64()
	if err != nil {
		return 0, false, err
	}
	if n < 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// SetUnread stores a count recomputed from the database.
func (c *RedisCache) SetUnread(ctx context.Context, matchID, userID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnread(matchID, userID), count, c.ttl).Err()
}

// GetUnread returns the cached count. ok is false on a cache miss.
func (c *RedisCache) GetUnread(ctx context.Context, matchID, userID string) (count int64, ok bool, err error) {
	key := c.KeyForUnread(matchID, userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, c.ttl).Err()
	return n, true, nil
}

// ClearUnread drops the reader's counter after a mark-read so the next read
// recounts from the database.
func (c *RedisCache) ClearUnread(ctx context.Context, matchID, userID string) error {
	return c.Client.Del(ctx, c.KeyForUnread(matchID, userID)).Err()
}

// Publish fans a payload out to everyone subscribed to the match channel.
func (c *RedisCache) Publish(ctx context.Context, matchID string, payload []byte) error {
	return c.Client.Publish(ctx, c.ChannelForMatch(matchID), payload).Err()
}

// Subscribe opens a subscription on the match channel. The caller must Close it.
func (c *RedisCache) Subscribe(ctx context.Context, matchID string) (*redis.PubSub, error) {
	sub := c.Client.Subscribe(ctx, c.ChannelForMatch(matchID))
	// wait for the subscription confirmation so no publish races past us
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}
