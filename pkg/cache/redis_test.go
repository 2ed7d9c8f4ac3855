//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/testhelpers"
)

func TestRedisStore_RoundTripAndExpiry(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, []byte("value"), time.Second))

	val, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), val)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	time.Sleep(1500 * time.Millisecond)
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryCache_Redis(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	c := NewQueryCache(NewRedisStore(client), zap.NewNop())
	ctx := context.Background()
	tenant := uuid.New()

	c.Put(ctx, tenant, "What is ML?", sampleResult(), time.Minute)

	got, ok := c.Get(ctx, tenant, "What is ML?")
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)
}
