package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/cache"
)

func TestMemoCachesWithinTTL(t *testing.T) {
	m := cache.NewMemo(50*time.Millisecond, 10)
	var calls int32

	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	v1, err := m.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", v1)

	v2, err := m.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", v2)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMemoRefetchesAfterExpiry(t *testing.T) {
	m := cache.NewMemo(10*time.Millisecond, 10)
	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return atomic.LoadInt32(&calls), nil
	}

	_, err := m.Get(context.Background(), "k", fetch)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = m.Get(context.Background(), "k", fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestMemoCollapsesConcurrentFetches is the single-flight property: N
// concurrent misses on the same key must produce exactly one fetch.
func TestMemoCollapsesConcurrentFetches(t *testing.T) {
	m := cache.NewMemo(time.Second, 10)
	var calls int32
	start := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-start
		return "v", nil
	}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = m.Get(context.Background(), "shared", fetch)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
