package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/kv"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/internal/data/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) kv.KV {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return stores.NewKVStore(database)
}

type view struct {
	Items []string `json:"items"`
	Token string   `json:"token"`
}

func TestCache_PutAndLookup(t *testing.T) {
	ctx := context.Background()
	cache := kv.NewCache[view](newTestKV(t), "views", time.Minute)

	_, ok, err := cache.Lookup(ctx, "task1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "task1", view{Items: []string{"a", "b"}, Token: "t1"}))

	got, ok, err := cache.Lookup(ctx, "task1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.Items)
	assert.Equal(t, "t1", got.Token)
}

func TestCache_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)
	alpha := kv.NewCache[int](store, "alpha", 0)
	beta := kv.NewCache[int](store, "beta", 0)

	require.NoError(t, alpha.Put(ctx, "count", 10))
	require.NoError(t, beta.Put(ctx, "count", 20))

	a, _, err := alpha.Lookup(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 10, a)

	b, _, err := beta.Lookup(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 20, b)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "alpha:count")
	assert.Contains(t, keys, "beta:count")

	alphaKeys, err := alpha.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"count"}, alphaKeys)
}

func TestCache_Evict(t *testing.T) {
	ctx := context.Background()
	cache := kv.NewCache[string](newTestKV(t), "ns", time.Minute)

	require.NoError(t, cache.Put(ctx, "key", "val"))
	require.NoError(t, cache.Evict(ctx, "key"))
	require.NoError(t, cache.Evict(ctx, "never-set"))

	_, ok, err := cache.Lookup(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expires(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)
	cache := kv.NewCache[string](store, "ttl", time.Millisecond)

	require.NoError(t, cache.Put(ctx, "temp", "gone"))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := cache.Lookup(ctx, "temp")
	require.NoError(t, err)
	assert.False(t, ok)

	var dest string
	assert.True(t, kv.IsMiss(store.Get(ctx, "ttl:temp", &dest)))
}
