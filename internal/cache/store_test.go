package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := Open(Config{Path: path, TTL: time.Hour})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_PutThenGetRoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := Entry{Valid: true, CanonicalName: "BRCA1", Provider: "ncbi"}
	require.NoError(t, store.Put(ctx, "human", "brca1", entry))

	got, hit, err := store.Get(ctx, "human", "brca1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "BRCA1", got.CanonicalName)
	assert.Equal(t, "ncbi", got.Provider)
	assert.True(t, got.Valid)
}

func TestStore_GetMissReturnsFalse(t *testing.T) {
	store := openTestStore(t)

	_, hit, err := store.Get(context.Background(), "human", "nonexistent")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStore_ExpiredEntryIsTreatedAsMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := Entry{
		Valid:     true,
		Provider:  "ncbi",
		StoredAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Put(ctx, "human", "brca1", entry))

	_, hit, err := store.Get(ctx, "human", "brca1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStore_ClearExpiredIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	n, err := store.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = store.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_ClearExpiredRemovesOnlyExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "human", "live", Entry{Valid: true, Provider: "ncbi"}))
	require.NoError(t, store.Put(ctx, "human", "dead", Entry{
		Valid: true, Provider: "ncbi",
		StoredAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour),
	}))

	n, err := store.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, hit, err := store.Get(ctx, "human", "live")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStore_Purge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "human", "brca1", Entry{Valid: true, Provider: "ncbi"}))
	require.NoError(t, store.Purge(ctx))

	_, hit, err := store.Get(ctx, "human", "brca1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStore_GetOrResolve_CachesAfterFirstResolve(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var calls int32

	resolve := func(ctx context.Context) (Entry, bool, error) {
		atomic.AddInt32(&calls, 1)

		return Entry{Valid: true, Provider: "ncbi", CanonicalName: "BRCA1"}, true, nil
	}

	entry, hit, err := store.GetOrResolve(ctx, "human", "brca1", resolve)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "BRCA1", entry.CanonicalName)

	entry2, hit2, err := store.GetOrResolve(ctx, "human", "brca1", resolve)
	require.NoError(t, err)
	assert.True(t, hit2)
	assert.Equal(t, "BRCA1", entry2.CanonicalName)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStore_GetOrResolve_CoalescesConcurrentMisses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var calls int32

	resolve := func(ctx context.Context) (Entry, bool, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)

		return Entry{Valid: true, Provider: "ncbi"}, true, nil
	}

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := store.GetOrResolve(ctx, "human", "brca1", resolve)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStore_GetOrResolve_DegradedResultIsNotCached(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	degraded := func(ctx context.Context) (Entry, bool, error) {
		return Entry{Valid: false, Provider: "degraded"}, false, nil
	}

	_, _, err := store.GetOrResolve(ctx, "human", "brca1", degraded)
	require.NoError(t, err)

	_, hit, err := store.Get(ctx, "human", "brca1")
	require.NoError(t, err)
	assert.False(t, hit, "degraded outcomes must not be cached")
}

func TestStore_GetOrResolve_PropagatesResolveError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("provider unreachable")
	failing := func(ctx context.Context) (Entry, bool, error) {
		return Entry{}, false, boom
	}

	_, _, err := store.GetOrResolve(ctx, "human", "brca1", failing)
	assert.Error(t, err)
}

func TestStore_Stats_ReportsHitsAndMisses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "human", "brca1", Entry{Valid: true, Provider: "ncbi"}))

	_, _, err := store.Get(ctx, "human", "brca1")
	require.NoError(t, err)

	_, _, err = store.Get(ctx, "human", "missing")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Writes)
	assert.Equal(t, int64(1), stats.ByProvider["ncbi"])
}

func TestStore_Warm_SkipsAlreadyCachedPairs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "human", "brca1", Entry{Valid: true, Provider: "ncbi"}))

	var resolved []string

	err := store.Warm(ctx, [][2]string{{"human", "brca1"}, {"human", "tp53"}},
		func(ctx context.Context, organism, identifier string) (Entry, error) {
			resolved = append(resolved, identifier)

			return Entry{Valid: true, Provider: "ncbi"}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"tp53"}, resolved)
}
