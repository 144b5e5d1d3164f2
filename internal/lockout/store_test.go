package lockout

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "lockout.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStores(t *testing.T) {
	backends := []struct {
		name    string
		newFunc func(t *testing.T) Store
	}{
		{
			name:    BackendMemory,
			newFunc: func(*testing.T) Store { return NewMemoryStore() },
		},
		{
			name:    BackendSQLite,
			newFunc: func(t *testing.T) Store { return newTestSQLiteStore(t) },
		},
		{
			name: BackendRedis,
			newFunc: func(t *testing.T) Store {
				store, _ := newTestRedisStore(t)
				return store
			},
		},
	}

	lockUntil := time.Unix(1_700_000_123, 250_000_000)

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("missing record reads as zero", func(t *testing.T) {
				store := backend.newFunc(t)
				status, err := store.GetStatus(ctx, "nobody")
				require.NoError(t, err)
				assert.Equal(t, 0, status.FailedCount)
				assert.True(t, status.LockUntil.IsZero())
			})

			t.Run("failed count round trip", func(t *testing.T) {
				store := backend.newFunc(t)
				require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 2}))

				for i := 0; i < 2; i++ {
					status, err := store.GetStatus(ctx, "alice")
					require.NoError(t, err)
					assert.Equal(t, 2, status.FailedCount)
					assert.True(t, status.LockUntil.IsZero())
				}
			})

			t.Run("lock round trip", func(t *testing.T) {
				store := backend.newFunc(t)
				require.NoError(t, store.SetStatus(ctx, "alice", Status{LockUntil: lockUntil}))

				status, err := store.GetStatus(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, 0, status.FailedCount)
				assert.True(t, lockUntil.Equal(status.LockUntil), "got %s", status.LockUntil)
				assert.True(t, status.Locked(lockUntil.Add(-time.Second)))
				assert.False(t, status.Locked(lockUntil))
			})

			t.Run("overwrite replaces both fields", func(t *testing.T) {
				store := backend.newFunc(t)
				require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 2}))
				require.NoError(t, store.SetStatus(ctx, "alice", Status{LockUntil: lockUntil}))

				status, err := store.GetStatus(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, 0, status.FailedCount)
				assert.True(t, lockUntil.Equal(status.LockUntil))
			})

			t.Run("reset clears state", func(t *testing.T) {
				store := backend.newFunc(t)
				require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 1, LockUntil: lockUntil}))
				require.NoError(t, store.Reset(ctx, "alice"))
				require.NoError(t, store.Reset(ctx, "alice"))

				status, err := store.GetStatus(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, Status{}, status)
			})

			t.Run("usernames are independent", func(t *testing.T) {
				store := backend.newFunc(t)
				require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 2}))
				require.NoError(t, store.SetStatus(ctx, "bob", Status{FailedCount: 1}))
				require.NoError(t, store.Reset(ctx, "bob"))

				status, err := store.GetStatus(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, 2, status.FailedCount)
			})

			t.Run("ping", func(t *testing.T) {
				store := backend.newFunc(t)
				assert.NoError(t, store.Ping(ctx))
				assert.Equal(t, backend.name, store.Name())
			})
		})
	}
}

func TestMemoryStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 2}))
	require.NoError(t, store.SetStatus(ctx, "bob", Status{FailedCount: 1}))

	require.NoError(t, store.ClearAll(ctx))

	_, exists := store.lookup("alice")
	assert.False(t, exists)
	_, exists = store.lookup("bob")
	assert.False(t, exists)
}

func TestSQLiteStore_ClearAllAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "lockout.db")

	store, err := OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "alice", Status{FailedCount: 2}))
	require.NoError(t, store.Close())

	// State survives a restart and migrations are idempotent.
	store, err = OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())

	status, err := store.GetStatus(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, status.FailedCount)

	require.NoError(t, store.ClearAll(ctx))
	status, err = store.GetStatus(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", zap.NewNop())
	assert.Error(t, err)
}

func TestRedisStore_Keys(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	lockUntil := time.Unix(1_700_000_010, 0)
	require.NoError(t, store.SetStatus(ctx, "admin", Status{LockUntil: lockUntil}))

	failed, err := mr.Get("auth:admin:failed")
	require.NoError(t, err)
	assert.Equal(t, "0", failed)

	until, err := mr.Get("auth:admin:lock_until")
	require.NoError(t, err)
	assert.Equal(t, "1700000010", until)

	require.NoError(t, store.Reset(ctx, "admin"))
	assert.False(t, mr.Exists("auth:admin:failed"))
	assert.False(t, mr.Exists("auth:admin:lock_until"))
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed value is not transient", func(t *testing.T) {
		store, mr := newTestRedisStore(t)
		require.NoError(t, mr.Set("auth:admin:failed", "many"))

		_, err := store.GetStatus(ctx, "admin")
		require.Error(t, err)
		assert.False(t, IsTransient(err))
	})

	t.Run("server errors are transient", func(t *testing.T) {
		store, mr := newTestRedisStore(t)
		mr.SetError("LOADING redis is loading the dataset")

		_, err := store.GetStatus(ctx, "admin")
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.ErrorIs(t, err, ErrBackendUnavailable)

		assert.True(t, IsTransient(store.SetStatus(ctx, "admin", Status{FailedCount: 1})))
		assert.True(t, IsTransient(store.Reset(ctx, "admin")))
		assert.True(t, IsTransient(store.Ping(ctx)))
	})
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("empty address", func(t *testing.T) {
		_, err := OpenRedis(ctx, &config.RedisConfig{}, time.Second)
		assert.Error(t, err)
	})

	t.Run("reachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := OpenRedis(ctx, &config.RedisConfig{Addr: mr.Addr()}, time.Second)
		require.NoError(t, err)
		defer store.Close()
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = OpenRedis(ctx, &config.RedisConfig{Addr: addr}, 200*time.Millisecond)
		assert.Error(t, err)
	})
}

func TestEpochSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
	}{
		{name: "zero", in: time.Time{}},
		{name: "whole seconds", in: time.Unix(1_700_000_000, 0)},
		{name: "microseconds", in: time.Unix(1_700_000_000, 123_456_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fromEpochSeconds(epochSeconds(tt.in))
			assert.True(t, tt.in.Equal(got), "want %s, got %s", tt.in, got)
		})
	}

	assert.True(t, fromEpochSeconds(-5).IsZero())
}
