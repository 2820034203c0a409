package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/tagged-content/pkg/taggedcontent/cache"
)

func TestInsertAndGet(t *testing.T) {
	store := cache.New[string]()
	id := uuid.New()

	_, ok := store.Get(id)
	assert.False(t, ok)

	snapshot := store.Insert(id, "hello")
	assert.Equal(t, "hello", snapshot.Value())

	cached, ok := store.Get(id)
	require.True(t, ok)
	assert.Same(t, snapshot, cached)
}

func TestInsertExistingWins(t *testing.T) {
	store := cache.New[string]()
	id := uuid.New()

	first := store.Insert(id, "first")
	second := store.Insert(id, "second")

	// A concurrent insert must not replace an existing snapshot; readers
	// holding the first snapshot and new readers see the same value.
	assert.Same(t, first, second)
	assert.Equal(t, "first", second.Value())
}

func TestInvalidate(t *testing.T) {
	store := cache.New[string]()
	id := uuid.New()

	store.Insert(id, "stale")
	store.Invalidate(id)

	_, ok := store.Get(id)
	assert.False(t, ok)
}

func TestFetchLoadsOnce(t *testing.T) {
	store := cache.New[int]()
	id := uuid.New()

	var loads atomic.Int64
	load := func(ctx context.Context) (int, error) {
		loads.Add(1)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot, err := store.Fetch(context.Background(), id, load)
			assert.NoError(t, err)
			assert.Equal(t, 42, snapshot.Value())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load())
}

func TestFetchPropagatesLoadError(t *testing.T) {
	store := cache.New[int]()
	id := uuid.New()

	wantErr := errors.New("load failed")
	_, err := store.Fetch(context.Background(), id, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// A failed load must not poison the cache.
	_, ok := store.Get(id)
	assert.False(t, ok)
}

func TestInvalidateDuringLoadSupersedesResult(t *testing.T) {
	store := cache.New[int]()
	id := uuid.New()

	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan *cache.Snapshot[int])
	go func() {
		snapshot, err := store.Fetch(context.Background(), id, func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		assert.NoError(t, err)
		done <- snapshot
	}()

	// The load has read its value; a mutation commits and invalidates
	// before the load's result lands.
	<-started
	store.Invalidate(id)
	close(release)

	// The in-flight caller still gets the value it loaded, but the store
	// must not serve it to anyone else: the invalidation wins.
	snapshot := <-done
	assert.Equal(t, 1, snapshot.Value())

	_, ok := store.Get(id)
	assert.False(t, ok)

	fresh, err := store.Fetch(context.Background(), id, func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Value())
}

func TestFetchAfterInvalidateReloads(t *testing.T) {
	store := cache.New[int]()
	id := uuid.New()

	value := 1
	load := func(ctx context.Context) (int, error) { return value, nil }

	snapshot, err := store.Fetch(context.Background(), id, load)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Value())

	store.Invalidate(id)
	value = 2

	fresh, err := store.Fetch(context.Background(), id, load)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Value())

	// The stale snapshot is unchanged; staleness is visible only through
	// the store.
	assert.Equal(t, 1, snapshot.Value())
}
