package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	hash := fmt.Sprintf("promoradar:test:history:%d", time.Now().UnixNano())
	store := NewRedisStore("localhost:6379", 0, hash)
	defer store.Close()

	// Test if Redis is available
	if err := store.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	defer store.client.Del(ctx, hash)

	tr := NewTracker(store, DefaultPolicy(), nil)
	key := Key("Rhoback", "SAVE 20% SITEWIDE")

	_, err := tr.Upsert(ctx, key, "SAVE 20% SITEWIDE", "Rhoback", t0)
	require.NoError(t, err)
	e, err := tr.Upsert(ctx, key, "SAVE 20% SITEWIDE", "Rhoback", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, e.TimesSeen)
	require.NoError(t, tr.Commit(ctx))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.FirstSeen.Equal(t0))
	assert.True(t, got.LastSeen.Equal(t0.Add(2*time.Hour)))

	// corrupt values are skipped, not fatal
	require.NoError(t, store.client.HSet(ctx, hash, "broken", "{not json").Err())
	_, ok, err = store.Get(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, ok)

	keys := map[string]bool{}
	require.NoError(t, store.Iterate(ctx, func(k string, _ Entry) bool {
		keys[k] = true
		return true
	}))
	assert.Equal(t, map[string]bool{key: true}, keys)

	n, err := tr.Evict(ctx, map[string]struct{}{}, t0.Add(27*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
