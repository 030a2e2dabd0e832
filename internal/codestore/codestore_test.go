package codestore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "admin@zen.store", "123456", 10*time.Minute))

	got, err := store.Get(ctx, "admin@zen.store")
	require.NoError(t, err)
	assert.Equal(t, "123456", got)

	now = now.Add(10 * time.Minute)
	_, err = store.Get(ctx, "admin@zen.store")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", "v", time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, "2fa")

	require.NoError(t, store.Put(ctx, "admin@zen.store", "654321", 10*time.Minute))
	assert.True(t, mr.Exists("2fa:admin@zen.store"))

	got, err := store.Get(ctx, "admin@zen.store")
	require.NoError(t, err)
	assert.Equal(t, "654321", got)

	mr.FastForward(10 * time.Minute)
	_, err = store.Get(ctx, "admin@zen.store")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newStores(t *testing.T) (map[string]Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "2fa"),
	}, mr
}

func TestStores_TakeHandsOutValueOnce(t *testing.T) {
	stores, _ := newStores(t)
	ctx := context.Background()

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "admin@zen.store", "246810", time.Minute))

			var (
				wg    sync.WaitGroup
				taken int32
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if v, err := store.Take(ctx, "admin@zen.store"); err == nil && v == "246810" {
						atomic.AddInt32(&taken, 1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), taken)
			_, err := store.Get(ctx, "admin@zen.store")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStores_IncrCountsUntilExpiry(t *testing.T) {
	stores, mr := newStores(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stores["memory"].(*MemoryStore).now = func() time.Time { return now }

	for name, store := range stores {
		for want := int64(1); want <= 3; want++ {
			n, err := store.Incr(ctx, "attempts", time.Minute)
			require.NoError(t, err, name)
			assert.Equal(t, want, n, name)
		}
	}

	now = now.Add(time.Minute)
	mr.FastForward(time.Minute)

	for name, store := range stores {
		n, err := store.Incr(ctx, "attempts", time.Minute)
		require.NoError(t, err, name)
		assert.Equal(t, int64(1), n, "%s: an expired counter starts over", name)
	}
}

func TestMemoryStore_IncrRejectsNonCounter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", "abc", time.Minute))

	_, err := store.Incr(ctx, "k", time.Minute)
	assert.Error(t, err)
}

// Feature: order-ledger, Property: Both stores return what was put until deleted
func TestProperty_StoresRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "prop"),
	}

	properties := gopter.NewProperties(nil)

	properties.Property("put then get returns the value; delete removes it", prop.ForAll(
		func(key string, value string) bool {
			ctx := context.Background()
			for name, store := range stores {
				if err := store.Put(ctx, key, value, time.Minute); err != nil {
					t.Logf("%s put: %v", name, err)
					return false
				}
				got, err := store.Get(ctx, key)
				if err != nil || got != value {
					t.Logf("%s get: %q, %v", name, got, err)
					return false
				}
				if err := store.Delete(ctx, key); err != nil {
					return false
				}
				if _, err := store.Get(ctx, key); err != ErrNotFound {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.com`),
		gen.RegexMatch(`[0-9]{6}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
