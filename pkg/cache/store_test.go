package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestMemoryStore(size int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(size, 24*time.Hour)
	s.clock = clock.now
	return s, clock
}

func TestMemoryStore_RoundTripAndExpiry(t *testing.T) {
	s, clock := newTestMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Hour))

	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	clock.t = clock.t.Add(59 * time.Minute)
	_, ok, _ = s.Get(ctx, "k")
	assert.True(t, ok, "entry is live before its TTL")

	clock.t = clock.t.Add(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry is absent once its TTL has elapsed")
	assert.Zero(t, s.Len())
}

func TestMemoryStore_MissIsNotAnError(t *testing.T) {
	s, _ := newTestMemoryStore(10)
	val, ok, err := s.Get(context.Background(), "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestMemoryStore_Bounded(t *testing.T) {
	s, _ := newTestMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour))
	}

	assert.Equal(t, 3, s.Len())
	_, ok, _ := s.Get(ctx, "k0")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok, _ = s.Get(ctx, "k4")
	assert.True(t, ok)
}

func TestMemoryStore_OverwriteRefreshesTTL(t *testing.T) {
	s, clock := newTestMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Minute))
	clock.t = clock.t.Add(30 * time.Second)
	require.NoError(t, s.Set(ctx, "k", []byte("new"), time.Minute))
	clock.t = clock.t.Add(45 * time.Second)

	val, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), val)
}
