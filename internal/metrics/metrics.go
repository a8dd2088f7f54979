// Package metrics exposes Prometheus instrumentation for the dispatch
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the engine's Prometheus metrics.
type Collector struct {
	ticks          prometheus.Counter
	tickFailures   prometheus.Counter
	tickDuration   prometheus.Histogram
	schedulesDue   prometheus.Gauge
	dispatches     *prometheus.CounterVec
	skips          *prometheus.CounterVec
	webhookUpdates prometheus.Counter
	cacheEvictions prometheus.Counter
}

// NewCollector registers the engine metrics with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wakeup_ticks_total",
			Help: "Total number of poll ticks executed",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wakeup_tick_failures_total",
			Help: "Total number of poll ticks aborted at store level",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wakeup_tick_duration_seconds",
			Help:    "Poll tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		schedulesDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wakeup_schedules_due",
			Help: "Number of schedules selected as due in the last tick",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wakeup_dispatches_total",
			Help: "Total dispatch attempts by recorded outcome",
		}, []string{"outcome"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wakeup_dispatch_skips_total",
			Help: "Schedules skipped before call placement, by reason",
		}, []string{"reason"}),
		webhookUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wakeup_webhook_updates_total",
			Help: "Total call-status webhook updates reconciled",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wakeup_audio_cache_evictions_total",
			Help: "Total audio cache artifacts evicted by the cleanup job",
		}),
	}
	reg.MustRegister(
		c.ticks, c.tickFailures, c.tickDuration, c.schedulesDue,
		c.dispatches, c.skips, c.webhookUpdates, c.cacheEvictions,
	)
	return c
}

// Nil-receiver guards let components run unmetered in tests.

func (c *Collector) ObserveTick(seconds float64, due int, failed bool) {
	if c == nil {
		return
	}
	c.ticks.Inc()
	c.tickDuration.Observe(seconds)
	c.schedulesDue.Set(float64(due))
	if failed {
		c.tickFailures.Inc()
	}
}

func (c *Collector) RecordDispatch(outcome string) {
	if c == nil {
		return
	}
	c.dispatches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	c.skips.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordWebhookUpdate() {
	if c == nil {
		return
	}
	c.webhookUpdates.Inc()
}

func (c *Collector) RecordEvictions(n int) {
	if c == nil {
		return
	}
	c.cacheEvictions.Add(float64(n))
}
