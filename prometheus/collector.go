// Package prometheus exposes a metrics.Registry to Prometheus scrapes.
// The registry stays the source of truth; the collector converts a
// snapshot into const metrics on every Collect.
package prometheus

import (
	"fmt"
	"strings"

	"github.com/fwojciec/repochat/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Ensure Collector implements prometheus.Collector at compile time.
var _ prometheus.Collector = (*Collector)(nil)

// Collector adapts a metrics.Registry into a prometheus.Collector.
// Counters become <namespace>_<name>_total; timers become
// <namespace>_<name>_seconds_avg and <namespace>_<name>_samples_total.
type Collector struct {
	reg       *metrics.Registry
	namespace string
}

// NewCollector creates a Collector over reg. Metric names are prefixed
// with namespace.
func NewCollector(reg *metrics.Registry, namespace string) *Collector {
	return &Collector{reg: reg, namespace: namespace}
}

// Describe implements prometheus.Collector. The metric set is dynamic,
// so the collector is unchecked and describes nothing.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.reg.Snapshot()

	for name, v := range snap.Counters {
		desc := prometheus.NewDesc(
			c.fqName(name)+"_total",
			fmt.Sprintf("Value of the %s counter.", name),
			nil, nil,
		)
		m, err := prometheus.NewConstMetric(desc, prometheus.CounterValue, float64(v))
		if err != nil {
			continue
		}
		ch <- m
	}

	for name, stats := range snap.Timers {
		countDesc := prometheus.NewDesc(
			c.fqName(name)+"_samples_total",
			fmt.Sprintf("Number of %s samples recorded.", name),
			nil, nil,
		)
		if m, err := prometheus.NewConstMetric(countDesc, prometheus.CounterValue, float64(stats.Count)); err == nil {
			ch <- m
		}

		avgDesc := prometheus.NewDesc(
			c.fqName(name)+"_seconds_avg",
			fmt.Sprintf("Average duration of %s in seconds.", name),
			nil, nil,
		)
		if m, err := prometheus.NewConstMetric(avgDesc, prometheus.GaugeValue, stats.Avg.Seconds()); err == nil {
			ch <- m
		}
	}
}

// fqName converts a registry metric name into a valid, namespaced
// Prometheus metric name.
func (c *Collector) fqName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return c.namespace + "_" + sanitized
}
