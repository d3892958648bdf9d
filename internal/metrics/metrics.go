package metrics

import "github.com/prometheus/client_golang/prometheus"

type Counter interface {
	Inc(labels ...string)
}

type Counters struct {
	EntriesEnqueued Counter
	EntriesDropped  Counter

	FlushCycles   Counter
	FlushFailures Counter
	TrimFailures  Counter

	AlertsPublished  Counter
	AlertsSuppressed Counter
	AlertsFailed     Counter
}

type PrometheusCounter struct {
	counter *prometheus.CounterVec
}

func NewPrometheusCounter(name, help string, labels []string) *PrometheusCounter {
	c := &PrometheusCounter{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, labels),
	}
	prometheus.MustRegister(c.counter)
	return c
}

func (p *PrometheusCounter) Inc(labels ...string) {
	p.counter.WithLabelValues(labels...).Inc()
}

func New() *Counters {
	return &Counters{
		EntriesEnqueued: NewPrometheusCounter(
			"emberlog_entries_enqueued_total",
			"Entries accepted into the capture buffer",
			[]string{"level"},
		),
		EntriesDropped: NewPrometheusCounter(
			"emberlog_entries_dropped_total",
			"Entries evicted from a full capture buffer",
			[]string{"level"},
		),
		FlushCycles: NewPrometheusCounter(
			"emberlog_flush_cycles_total",
			"Retention worker flush cycles",
			[]string{"backend"},
		),
		FlushFailures: NewPrometheusCounter(
			"emberlog_flush_failures_total",
			"Flush batches lost after a failed retry",
			[]string{"backend"},
		),
		TrimFailures: NewPrometheusCounter(
			"emberlog_trim_failures_total",
			"Failed retention trim passes",
			[]string{"backend", "kind"},
		),
		AlertsPublished: NewPrometheusCounter(
			"emberlog_alerts_published_total",
			"Alert notifications handed to the broker",
			[]string{"event"},
		),
		AlertsSuppressed: NewPrometheusCounter(
			"emberlog_alerts_suppressed_total",
			"Alert notifications suppressed by the fingerprint cooldown",
			[]string{"event"},
		),
		AlertsFailed: NewPrometheusCounter(
			"emberlog_alerts_failed_total",
			"Alert notifications the broker rejected",
			[]string{"event"},
		),
	}
}

func NewTestCounters() *Counters {
	reg := prometheus.NewRegistry()

	newCounter := func(name string, labels []string) *PrometheusCounter {
		c := &PrometheusCounter{
			counter: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: name,
			}, labels),
		}
		reg.MustRegister(c.counter)
		return c
	}

	return &Counters{
		EntriesEnqueued:  newCounter("emberlog_entries_enqueued_total", []string{"level"}),
		EntriesDropped:   newCounter("emberlog_entries_dropped_total", []string{"level"}),
		FlushCycles:      newCounter("emberlog_flush_cycles_total", []string{"backend"}),
		FlushFailures:    newCounter("emberlog_flush_failures_total", []string{"backend"}),
		TrimFailures:     newCounter("emberlog_trim_failures_total", []string{"backend", "kind"}),
		AlertsPublished:  newCounter("emberlog_alerts_published_total", []string{"event"}),
		AlertsSuppressed: newCounter("emberlog_alerts_suppressed_total", []string{"event"}),
		AlertsFailed:     newCounter("emberlog_alerts_failed_total", []string{"event"}),
	}
}
