// Package promhook exports engine events as Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/unkn0wn-root/querysync"
)

// Hooks counts events without key labels; query keys are unbounded.
type Hooks struct {
	fetches    *prometheus.CounterVec
	superseded *prometheus.CounterVec
	failures   prometheus.Counter
	published  *prometheus.CounterVec
	fanout     prometheus.Histogram
	storeErrs  *prometheus.CounterVec
}

var _ querysync.Hooks = (*Hooks)(nil)

// New registers the collectors with reg. A nil reg uses the default
// registerer. namespace prefixes every metric name.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Fetch requests by result of the dedup check",
			},
			[]string{"result"}, // "issued", "deduplicated"
		),
		superseded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_discarded_total",
				Help:      "Settled fetch results that were not published",
			},
			[]string{"reason"},
		),
		failures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Fetches that settled with an error",
			},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "published_total",
				Help:      "Outcomes broadcast to subscribers",
			},
			[]string{"outcome"},
		),
		fanout: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_subscribers",
				Help:      "Subscribers reached per broadcast",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		storeErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Failed cache store operations",
			},
			[]string{"operation"}, // "get", "set", "evict", "evict_all"
		),
	}
}

func (h *Hooks) FetchIssued(string)       { h.fetches.WithLabelValues("issued").Inc() }
func (h *Hooks) FetchDeduplicated(string) { h.fetches.WithLabelValues("deduplicated").Inc() }
func (h *Hooks) ResultSuperseded(_, reason string) {
	h.superseded.WithLabelValues(reason).Inc()
}
func (h *Hooks) FetchFailed(string, error) { h.failures.Inc() }

func (h *Hooks) Published(_ string, kind querysync.Outcome, subscribers int) {
	h.published.WithLabelValues(kind.String()).Inc()
	h.fanout.Observe(float64(subscribers))
}

func (h *Hooks) StoreError(op, _ string, _ error) {
	h.storeErrs.WithLabelValues(op).Inc()
}
