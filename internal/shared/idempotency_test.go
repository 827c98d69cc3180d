package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyAcquireOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewIdempotencyStore(client, 24*time.Hour)
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "backfill", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "backfill", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Acquire(ctx, "other", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "backfill", "u1"))
	ok, err = store.Acquire(ctx, "backfill", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 24*time.Hour, mr.TTL("idempotency:backfill:u1"))
}

func TestIdempotencyValidatesInput(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewIdempotencyStore(client, 0)

	_, err := store.Acquire(context.Background(), "backfill", "")
	assert.Error(t, err)
	_, err = store.Acquire(context.Background(), "", "k")
	assert.Error(t, err)

	var nilStore *IdempotencyStore
	_, err = nilStore.Acquire(context.Background(), "m", "k")
	assert.Error(t, err)
	assert.NoError(t, nilStore.Release(context.Background(), "m", "k"))
}
