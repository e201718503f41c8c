package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteKV(t *testing.T) *SQLiteKV {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "canvas.db"))
	require.NoError(t, err)
	kv := NewSQLiteKV(db)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func newRedisKV(t *testing.T) *RedisKV {
	t.Helper()
	s := miniredis.RunT(t)
	kv, err := NewRedisKV("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func backends(t *testing.T) map[string]KV {
	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": newSQLiteKV(t),
		"redis":  newRedisKV(t),
	}
}

func TestKVBackends(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrKeyNotFound)

			require.NoError(t, kv.Set(ctx, "ai-canvas-canvases", []byte(`[]`)))
			require.NoError(t, kv.Set(ctx, "ai-canvas-autosave-a", []byte(`{"id":"a"}`)))
			require.NoError(t, kv.Set(ctx, "ai-canvas-autosave-b", []byte(`{"id":"b"}`)))
			require.NoError(t, kv.Set(ctx, "ai-canvas-autosave-a", []byte(`{"id":"a2"}`)))

			v, err := kv.Get(ctx, "ai-canvas-autosave-a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"a2"}`, string(v))

			keys, err := kv.Keys(ctx, "ai-canvas-autosave-")
			require.NoError(t, err)
			assert.Equal(t, []string{"ai-canvas-autosave-a", "ai-canvas-autosave-b"}, keys)

			require.NoError(t, kv.Delete(ctx, "ai-canvas-autosave-a"))
			require.NoError(t, kv.Delete(ctx, "ai-canvas-autosave-a"))
			_, err = kv.Get(ctx, "ai-canvas-autosave-a")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestSQLiteKeysEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	kv := newSQLiteKV(t)
	require.NoError(t, kv.Set(ctx, "a_b-1", []byte("1")))
	require.NoError(t, kv.Set(ctx, "axb-2", []byte("2")))

	keys, err := kv.Keys(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b-1"}, keys)
}

func TestMemoryKVQuota(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	kv.Quota = 8

	require.NoError(t, kv.Set(ctx, "k", []byte("12345678")))
	assert.ErrorIs(t, kv.Set(ctx, "j", []byte("1")), ErrQuotaExceeded)
	// Replacing a value frees its previous size.
	require.NoError(t, kv.Set(ctx, "k", []byte("1234")))
	require.NoError(t, kv.Set(ctx, "j", []byte("1234")))
}

func TestMemoryKVDisabled(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	kv.Disabled = true

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, kv.Set(ctx, "k", nil), ErrStorageDisabled)
	_, err = kv.Keys(ctx, "")
	assert.ErrorIs(t, err, ErrStorageDisabled)
}
