package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/achados/internal/model"
)

// Redis is an ItemCache shared between processes. Every written key is also
// recorded in a set so Invalidate can drop them without scanning.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys are namespaced under prefix.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func (r *Redis) itemsKey(key string) string {
	return r.prefix + ":items:" + key
}

func (r *Redis) keySet() string {
	return r.prefix + ":items:keys"
}

func (r *Redis) GetItems(ctx context.Context, key string) ([]model.Item, bool, error) {
	data, err := r.client.Get(ctx, r.itemsKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cached items: %w", err)
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decoding cached items: %w", err)
	}
	return items, true, nil
}

func (r *Redis) SetItems(ctx context.Context, key string, items []model.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.itemsKey(key), data, r.ttl)
	pipe.SAdd(ctx, r.keySet(), r.itemsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching items: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, r.keySet()).Result()
	if err != nil {
		return fmt.Errorf("listing cached keys: %w", err)
	}

	pipe := r.client.Pipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, r.keySet())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	return nil
}
