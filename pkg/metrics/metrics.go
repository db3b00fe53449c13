// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package metrics exposes the driver loop's counters and gauges as
// Prometheus collectors on a private registry, so multiple Drivers in
// one process (the CLI's multi-worker local mode) never collide on the
// global default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder wraps one Driver's collectors. A nil *Recorder disables
// metrics entirely; every method is nil-safe.
type Recorder struct {
	registry *prometheus.Registry

	Executions   prometheus.Counter
	Solutions    prometheus.Counter
	CorpusSize      prometheus.Gauge
	// FavoredSize is registered, but Driver never sets it, so it reads
	// zero unless a caller updates it.
	FavoredSize     prometheus.Gauge
	EdgeRarityScore prometheus.Gauge
	RunLatencyUs    prometheus.Histogram
}

// NewRecorder builds a Recorder registered on a fresh private registry,
// labelling every collector with worker so one process can run several
// Drivers without metric name collisions.
func NewRecorder(worker string) *Recorder {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"worker": worker}
	r := &Recorder{
		registry: registry,
		Executions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fuzzforge",
			Name:        "executions_total",
			Help:        "Number of target executions completed.",
			ConstLabels: labels,
		}),
		Solutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fuzzforge",
			Name:        "solutions_total",
			Help:        "Number of objective-interesting inputs found.",
			ConstLabels: labels,
		}),
		CorpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fuzzforge",
			Name:        "corpus_size",
			Help:        "Number of live testcases in the corpus.",
			ConstLabels: labels,
		}),
		FavoredSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fuzzforge",
			Name:        "favored_size",
			Help:        "Number of testcases in the minimizer's favored set.",
			ConstLabels: labels,
		}),
		EdgeRarityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fuzzforge",
			Name:        "edge_rarity_score",
			Help:        "Count of rare edges hit by the most recently added testcase.",
			ConstLabels: labels,
		}),
		RunLatencyUs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "fuzzforge",
			Name:        "run_latency_microseconds",
			Help:        "Per-execution target run latency.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(10, 2, 16),
		}),
	}
	registry.MustRegister(r.Executions, r.Solutions, r.CorpusSize, r.FavoredSize,
		r.EdgeRarityScore, r.RunLatencyUs)
	return r
}

// Registry returns the private registry an HTTP handler can serve.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
