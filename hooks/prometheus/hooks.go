// Package promhook exports stash events as Prometheus metrics.
//
// Metric names are <namespace>_stash_<name>; keys never become labels.
package promhook

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/stash"
)

type Hooks struct {
	lookups       *prometheus.CounterVec // tier=local|remote
	fetches       *prometheus.CounterVec // result=ok|error
	fetchDuration prometheus.Histogram
	contended     prometheus.Counter
	exhausted     prometheus.Counter
	decodeErrors  prometheus.Counter
	invalidations *prometheus.CounterVec // result=applied|<drop reason>
	publishErrors prometheus.Counter
}

var _ stash.Hooks = (*Hooks)(nil)

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "stash", Name: name, Help: help}
	}

	h := &Hooks{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts(opts("hits_total", "Gets served from a cache tier.")),
			[]string{"tier"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts(opts("fetches_total", "Fetch function runs under the lock.")),
			[]string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stash",
			Name:      "fetch_duration_seconds",
			Help:      "Fetch function run time.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		contended:     prometheus.NewCounter(prometheus.CounterOpts(opts("lock_contended_total", "Failed lock attempts."))),
		exhausted:     prometheus.NewCounter(prometheus.CounterOpts(opts("lock_exhausted_total", "Gets that gave up on the lock."))),
		decodeErrors:  prometheus.NewCounter(prometheus.CounterOpts(opts("decode_errors_total", "Remote values that failed to decode."))),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts(opts("invalidations_total", "Invalidation messages received.")), []string{"result"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts(opts("publish_errors_total", "Invalidations that could not be broadcast."))),
	}

	for _, c := range []prometheus.Collector{
		h.lookups, h.fetches, h.fetchDuration, h.contended,
		h.exhausted, h.decodeErrors, h.invalidations, h.publishErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("promhook: register: %w", err)
		}
	}
	return h, nil
}

func (h *Hooks) LocalHit(string)  { h.lookups.WithLabelValues("local").Inc() }
func (h *Hooks) RemoteHit(string) { h.lookups.WithLabelValues("remote").Inc() }

func (h *Hooks) Fetched(_ string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.fetches.WithLabelValues(result).Inc()
	h.fetchDuration.Observe(took.Seconds())
}

func (h *Hooks) LockContended(string, int)        { h.contended.Inc() }
func (h *Hooks) LockExhausted(string, int, error) { h.exhausted.Inc() }
func (h *Hooks) DecodeFailed(string, error)       { h.decodeErrors.Inc() }
func (h *Hooks) InvalidationReceived(string)      { h.invalidations.WithLabelValues("applied").Inc() }
func (h *Hooks) InvalidationDropped(reason string) {
	h.invalidations.WithLabelValues(reason).Inc()
}
func (h *Hooks) PublishFailed(string, error) { h.publishErrors.Inc() }
