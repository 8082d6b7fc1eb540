// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records verification telemetry on a private Prometheus
// registry. A nil *Metrics is valid and records nothing, so callers never
// need to guard observations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "citeverify"

// Lookup outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Cache results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheCorrupt = "corrupt"
	CacheError   = "error"
)

// Metrics holds every collector the engine updates.
type Metrics struct {
	registry *prometheus.Registry

	lookups       *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	verifications *prometheus.CounterVec
	duplicates    prometheus.Counter
	duration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_lookups_total",
			Help:      "Registry requests by source, fallback level and outcome.",
		}, []string{"source", "level", "outcome"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Registry cache reads by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verified citations by final status.",
		}, []string{"status"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Citations marked as duplicates of an earlier entry.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Wall time of one full fallback chain per source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
	}
	m.registry.MustRegister(m.lookups, m.cacheRequests, m.verifications, m.duplicates, m.duration)
	return m
}

// Registry exposes the underlying registry for scraping or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveLookup(source, level, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(source, level, outcome).Inc()
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status).Inc()
}

func (m *Metrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicates.Add(float64(n))
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Lookups returns the collector for tests.
func (m *Metrics) Lookups() *prometheus.CounterVec { return m.lookups }

// CacheRequests returns the collector for tests.
func (m *Metrics) CacheRequests() *prometheus.CounterVec { return m.cacheRequests }

// Verifications returns the collector for tests.
func (m *Metrics) Verifications() *prometheus.CounterVec { return m.verifications }

// Duplicates returns the collector for tests.
func (m *Metrics) Duplicates() prometheus.Counter { return m.duplicates }
