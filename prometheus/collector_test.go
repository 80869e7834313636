package prometheus_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/repochat/metrics"
	"github.com/fwojciec/repochat/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	t.Run("exposes counters with a sanitized namespaced name", func(t *testing.T) {
		t.Parallel()
		reg := metrics.NewRegistry()
		reg.Add("pool.acquire_success", 3)
		c := prometheus.NewCollector(reg, "repochat")

		expected := `
# HELP repochat_pool_acquire_success_total Value of the pool.acquire_success counter.
# TYPE repochat_pool_acquire_success_total counter
repochat_pool_acquire_success_total 3
`
		err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"repochat_pool_acquire_success_total")
		require.NoError(t, err)
	})

	t.Run("exposes timers as sample count and average", func(t *testing.T) {
		t.Parallel()
		reg := metrics.NewRegistry()
		reg.RecordTime("query", 100*time.Millisecond)
		reg.RecordTime("query", 300*time.Millisecond)
		c := prometheus.NewCollector(reg, "repochat")

		expected := `
# HELP repochat_query_samples_total Number of query samples recorded.
# TYPE repochat_query_samples_total counter
repochat_query_samples_total 2
# HELP repochat_query_seconds_avg Average duration of query in seconds.
# TYPE repochat_query_seconds_avg gauge
repochat_query_seconds_avg 0.2
`
		err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"repochat_query_samples_total", "repochat_query_seconds_avg")
		require.NoError(t, err)
	})

	t.Run("empty registry exposes nothing", func(t *testing.T) {
		t.Parallel()
		c := prometheus.NewCollector(metrics.NewRegistry(), "repochat")
		assert.Equal(t, 0, testutil.CollectAndCount(c))
	})
}
