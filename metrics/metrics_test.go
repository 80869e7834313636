package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/repochat/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	t.Parallel()

	t.Run("increments and adds", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		reg.Increment("requests")
		reg.Increment("requests")
		reg.Add("requests", 3)

		assert.Equal(t, int64(5), reg.Counter("requests"))
	})

	t.Run("unknown counter reads zero", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		assert.Zero(t, reg.Counter("never_touched"))
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					reg.Increment("hits")
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(5000), reg.Counter("hits"))
	})
}

func TestRegistry_Timers(t *testing.T) {
	t.Parallel()

	t.Run("reports count and average", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		reg.RecordTime("query", 100*time.Millisecond)
		reg.RecordTime("query", 300*time.Millisecond)

		snap := reg.Snapshot()
		stats, ok := snap.Timers["query"]
		require.True(t, ok)
		assert.Equal(t, int64(2), stats.Count)
		assert.Equal(t, 200*time.Millisecond, stats.Avg)
	})
}

func TestRegistry_Snapshot(t *testing.T) {
	t.Parallel()

	t.Run("does not observe later mutation", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		reg.Increment("events")
		snap := reg.Snapshot()
		reg.Increment("events")

		assert.Equal(t, int64(1), snap.Counters["events"])
		assert.Equal(t, int64(2), reg.Counter("events"))
	})

	t.Run("empty registry yields empty maps", func(t *testing.T) {
		t.Parallel()

		snap := metrics.NewRegistry().Snapshot()
		assert.Empty(t, snap.Counters)
		assert.Empty(t, snap.Timers)
	})
}

func TestRegistry_Reset(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	reg.Increment("events")
	reg.RecordTime("query", time.Millisecond)

	reg.Reset()

	snap := reg.Snapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Timers)
}
