package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix = "musicbox:lyrics:"
	redisOpTimeout = 3 * time.Second
	redisScanCount = 100
)

// RedisCache shares lyric entries between machines. expiry is delegated to
// redis key TTLs.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func redisKey(id string) string {
	return redisKeyPrefix + generateKey(id)
}

func (c *RedisCache) Get(id string) (*Entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrCacheMiss
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Version != cacheVersion {
		_ = c.rdb.Del(ctx, redisKey(id)).Err()
		return nil, ErrCacheCorrupt
	}
	return &entry, nil
}

func (c *RedisCache) Set(id string, entry *Entry) error {
	if strings.TrimSpace(id) == "" || entry == nil {
		return ErrInvalidKey
	}

	now := time.Now()
	entry.Version = cacheVersion
	entry.TrackID = id
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now.Unix()
	}
	entry.ExpiresAt = now.Add(c.ttl).Unix()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Set(ctx, redisKey(id), data, c.ttl).Err()
}

func (c *RedisCache) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Del(ctx, redisKey(id)).Err()
}

func (c *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Prune is a no-op; redis expires keys on its own.
func (c *RedisCache) Prune() (int, error) {
	return 0, nil
}

func (c *RedisCache) Stats() (Stats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := c.keys(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Count: len(keys)}
	for _, key := range keys {
		n, err := c.rdb.StrLen(ctx, key).Result()
		if err != nil {
			continue
		}
		stats.SizeBytes += n
	}
	return stats, nil
}

func (c *RedisCache) ListAll() ([]*Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := c.keys(ctx)
	if err != nil {
		return nil, err
	}

	var result []*Entry
	for _, key := range keys {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		result = append(result, &entry)
	}
	return result, nil
}

func (c *RedisCache) keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", redisScanCount).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
