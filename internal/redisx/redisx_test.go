package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSourceIDCacheLocalOnly(t *testing.T) {
	c := NewSourceIDCache(nil, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "sreality")
	require.False(t, ok)

	c.Set(ctx, "sreality", "src-id|Sreality.cz")
	id, ok := c.Get(ctx, "sreality")
	require.True(t, ok)
	require.Equal(t, "src-id|Sreality.cz", id)
}

func TestSourceIDCacheDefaultsTTL(t *testing.T) {
	c := NewSourceIDCache(nil, 0)
	require.Equal(t, time.Hour, c.ttl)
}

func TestSourceIDCacheKeyNamespacing(t *testing.T) {
	require.Equal(t, "source_id:remax", sourceIDCacheKey("remax"))
}

func TestSourceIDCacheMissingCodeUnaffected(t *testing.T) {
	c := NewSourceIDCache(nil, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "idnes", "id-1|iDNES Reality")
	_, ok := c.Get(ctx, "century21")
	require.False(t, ok)
}
