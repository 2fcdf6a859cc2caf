package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss signals the key is not cached; callers fall through to the
// database.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the read-through cache the service consults on reads and
// invalidates on mutations. Get methods return ErrCacheMiss for an absent
// key; any other error means the backend is unavailable and the caller
// falls through to the database.
type Cache interface {
	GetList(ctx context.Context) ([]Listing, error)
	SetList(ctx context.Context, listings []Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	SetByID(ctx context.Context, l *Listing) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// RedisCache is the Redis-backed Cache. Every mutation invalidates both
// the collection key and the affected listing key, so a stale entry can
// outlive its row only for the duration of an in-flight request.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func listKey() string {
	return "listings:all"
}

func itemKey(id uuid.UUID) string {
	return fmt.Sprintf("listings:id:%s", id)
}

// GetList returns the cached collection or ErrCacheMiss
func (c *RedisCache) GetList(ctx context.Context) ([]Listing, error) {
	data, err := c.client.Get(ctx, listKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached listings: %w", err)
	}

	var listings []Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode cached listings: %w", err)
	}

	return listings, nil
}

// SetList caches the full collection
func (c *RedisCache) SetList(ctx context.Context, listings []Listing) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to encode listings: %w", err)
	}

	if err := c.client.Set(ctx, listKey(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache listings: %w", err)
	}

	return nil
}

// GetByID returns a cached listing or ErrCacheMiss
func (c *RedisCache) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	data, err := c.client.Get(ctx, itemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached listing: %w", err)
	}

	l := new(Listing)
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to decode cached listing: %w", err)
	}

	return l, nil
}

// SetByID caches a single listing
func (c *RedisCache) SetByID(ctx context.Context, l *Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}

	if err := c.client.Set(ctx, itemKey(l.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache listing: %w", err)
	}

	return nil
}

// Invalidate drops the collection key and the key for id after a mutation
func (c *RedisCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, listKey(), itemKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing cache: %w", err)
	}
	return nil
}
