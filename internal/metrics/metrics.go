// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts what happens during a resolution run and writes the
// counters in Prometheus text format for the node-exporter textfile
// collector. Nothing listens on a port. A nil *Recorder is valid and records
// nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/ontomap/pkg/types"
)

const namespace = "ontomap"

// Annotator call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRetry       = "retry"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Recorder owns a private registry with the run's collectors.
type Recorder struct {
	reg *prometheus.Registry

	results        *prometheus.CounterVec
	annotatorCalls *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	ambiguous      prometheus.Counter
	duration       prometheus.Gauge
	lastRun        prometheus.Gauge
}

// New creates a recorder with every collector registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Resolution results by mapping type.",
		}, []string{"source", "mapping_type"}),
		annotatorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "annotator",
			Name:      "calls_total",
			Help:      "Annotator RPC attempts by outcome.",
		}, []string{"operation", "outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "annotator",
			Name:      "cache_lookups_total",
			Help:      "Annotator cache lookups by result.",
		}, []string{"result"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Records skipped before resolution, by reason.",
		}, []string{"reason"}),
		ambiguous: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ambiguous_genes_total",
			Help:      "Gene lookups resolved by deterministic pick.",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveResult counts one resolution result.
func (r *Recorder) ObserveResult(source string, mt types.MappingType) {
	if r == nil {
		return
	}
	r.results.WithLabelValues(source, string(mt)).Inc()
}

// ObserveAnnotatorCall counts one annotator attempt.
func (r *Recorder) ObserveAnnotatorCall(operation, outcome string) {
	if r == nil {
		return
	}
	r.annotatorCalls.WithLabelValues(operation, outcome).Inc()
}

// ObserveCache counts one cache lookup.
func (r *Recorder) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveSkipped counts a record dropped before resolution.
func (r *Recorder) ObserveSkipped(reason string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(reason).Inc()
}

// ObserveAmbiguous counts a gene ambiguity resolved by deterministic pick.
func (r *Recorder) ObserveAmbiguous() {
	if r == nil {
		return
	}
	r.ambiguous.Inc()
}

// Finish records the run duration and completion time.
func (r *Recorder) Finish(elapsed time.Duration, now time.Time) {
	if r == nil {
		return
	}
	r.duration.Set(elapsed.Seconds())
	r.lastRun.Set(float64(now.Unix()))
}

// WriteTextfile writes every collector to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
