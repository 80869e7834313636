package main

import (
	"fmt"
	"sort"

	repochatprom "github.com/fwojciec/repochat/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Run executes the metrics command. It prints the counters and timers
// collected during this invocation, which is mostly useful after
// chaining commands in scripts with REPOCHAT_LOG_LEVEL=debug.
func (c *MetricsCmd) Run(deps *Dependencies) error {
	if c.Prometheus {
		return c.runPrometheus(deps)
	}

	snap := deps.Metrics.Snapshot()

	if len(snap.Counters) == 0 && len(snap.Timers) == 0 {
		fmt.Fprintln(deps.Stdout, "No metrics recorded.")
		return nil
	}

	names := make([]string, 0, len(snap.Counters))
	for name := range snap.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(deps.Stdout, "%-40s %d\n", name, snap.Counters[name])
	}

	names = names[:0]
	for name := range snap.Timers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := snap.Timers[name]
		fmt.Fprintf(deps.Stdout, "%-40s count=%d avg=%s\n", name, stats.Count, stats.Avg)
	}

	return nil
}

// runPrometheus prints the registry in text exposition format, suitable
// for piping into tooling that understands it.
func (c *MetricsCmd) runPrometheus(deps *Dependencies) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(repochatprom.NewCollector(deps.Metrics, "repochat")); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(deps.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
