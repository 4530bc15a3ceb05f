package wmicache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCollector struct {
	calls int32
}

func (c *countingCollector) Collect() (Snapshot, error) {
	n := atomic.AddInt32(&c.calls, 1)
	return Snapshot{"calls": n}, nil
}

func TestQueryReturnsFreshSnapshot(t *testing.T) {
	h := Start(&countingCollector{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap, err := h.Query(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap["calls"])
}

func TestConcurrentQueriesCoalesce(t *testing.T) {
	h := Start(&countingCollector{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Prime one collection so the collector has run at least once.
	_, err := h.Query(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Snapshot, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clone := h.Clone()
			snap, err := clone.Query(ctx)
			require.NoError(t, err)
			results[i] = snap
		}(i)
	}
	wg.Wait()

	first := results[0]["calls"]
	for _, r := range results {
		assert.Equal(t, first, r["calls"])
	}
}
