package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newTestBoltCache(t *testing.T) *BoltCache {
	t.Helper()
	cache, err := NewBoltCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestBoltCache_SetAndGet(t *testing.T) {
	cache := newTestBoltCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "record:abc", []byte(`{"source":"ocr"}`), time.Minute))

	got, err := cache.Get(ctx, "record:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"source":"ocr"}`, string(got))

	exists, err := cache.Exists(ctx, "record:abc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBoltCache_Miss(t *testing.T) {
	cache := newTestBoltCache(t)

	_, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	exists, err := cache.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBoltCache_Expiry(t *testing.T) {
	cache := newTestBoltCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	exists, err := cache.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = cache.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestBoltCache_Delete(t *testing.T) {
	cache := newTestBoltCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "gone", []byte("v"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "gone"))

	_, err := cache.Get(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestBoltCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	first, err := NewBoltCache(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "key", []byte("survives"), time.Hour))
	require.NoError(t, first.Close())

	second, err := NewBoltCache(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "survives", string(got))
}

func TestDecodeEntry(t *testing.T) {
	now := time.Now()

	value, ok := decodeEntry(encodeEntry([]byte("abc"), now.Add(time.Minute)), now)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(value))

	_, ok = decodeEntry(encodeEntry([]byte("abc"), now.Add(-time.Minute)), now)
	assert.False(t, ok)

	_, ok = decodeEntry([]byte{1, 2, 3}, now)
	assert.False(t, ok)
}

func TestBoltCache_DeleteIfExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("removes entry that is still expired", func(t *testing.T) {
		cache := newTestBoltCache(t)
		require.NoError(t, cache.Set(ctx, "stale", []byte("old"), time.Millisecond))
		time.Sleep(10 * time.Millisecond)

		require.NoError(t, cache.deleteIfExpired("stale"))

		err := cache.db.View(func(tx *bbolt.Tx) error {
			assert.Nil(t, tx.Bucket(recordsBucket).Get([]byte("stale")))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("keeps a value rewritten after the expired read", func(t *testing.T) {
		cache := newTestBoltCache(t)
		require.NoError(t, cache.Set(ctx, "key", []byte("old"), time.Millisecond))
		time.Sleep(10 * time.Millisecond)

		// A writer refreshes the key between Get's read and its cleanup
		require.NoError(t, cache.Set(ctx, "key", []byte("fresh"), time.Minute))
		require.NoError(t, cache.deleteIfExpired("key"))

		got, err := cache.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(got))
	})
}
