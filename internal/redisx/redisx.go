package redisx

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct{ Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
	return c.Rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.Rdb.Exists(ctx, key).Result()
	return n == 1, err
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.Rdb.TTL(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error) {
	return c.Rdb.SetNX(ctx, key, val, ttl).Result()
}

// SourceIDCache resolves source_code -> sources.id, the lookup the store
// gateway does on every single UpsertListing call. A Redis-backed cache
// (default 1h TTL) avoids a roundtrip per listing; when no Redis client is
// configured it falls back to an in-process sync.Map so the gateway behaves
// identically in a single-process deployment.
type SourceIDCache struct {
	client *Client
	ttl    time.Duration
	local  sync.Map
}

// NewSourceIDCache builds a cache. client may be nil, in which case only the
// in-process map is used.
func NewSourceIDCache(client *Client, ttl time.Duration) *SourceIDCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SourceIDCache{client: client, ttl: ttl}
}

func sourceIDCacheKey(code string) string { return "source_id:" + code }

// Get returns the cached id for code, if present.
func (c *SourceIDCache) Get(ctx context.Context, code string) (string, bool) {
	if v, ok := c.local.Load(code); ok {
		return v.(string), true
	}
	if c.client == nil {
		return "", false
	}
	v, err := c.client.Get(ctx, sourceIDCacheKey(code))
	if err != nil {
		return "", false
	}
	c.local.Store(code, v)
	return v, true
}

// Set stores id for code in both the local map and Redis (if configured).
func (c *SourceIDCache) Set(ctx context.Context, code, id string) {
	c.local.Store(code, id)
	if c.client == nil {
		return
	}
	_ = c.client.Set(ctx, sourceIDCacheKey(code), id, c.ttl)
}
