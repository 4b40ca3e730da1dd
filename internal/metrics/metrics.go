// Package metrics exposes Prometheus instruments for the scene core.
//
// Every instrument lives in a private registry so tests and multiple sessions
// in one process never collide on the default registerer. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "planetarium"

// Metrics bundles the instruments recorded by the store, persistence and
// storage layers.
type Metrics struct {
	Registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	instances       prometheus.Gauge
	storageErrors   *prometheus.CounterVec
	storageDisabled prometheus.Gauge
	dropped         prometheus.Counter
	saveDuration    prometheus.Histogram
}

// New creates and registers all instruments in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Effective store mutations by operation.",
		}, []string{"op"}),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_instances",
			Help:      "Number of records currently held by the store.",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Storage operations that failed and were treated as no-ops.",
		}, []string{"op"}),
		storageDisabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_disabled",
			Help:      "1 once a storage path fault has disabled storage for the process.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitize_dropped_total",
			Help:      "Persisted records discarded during rehydration.",
		}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_save_seconds",
			Help:      "Time spent writing the persisted document.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	m.Registry.MustRegister(
		m.mutations,
		m.instances,
		m.storageErrors,
		m.storageDisabled,
		m.dropped,
		m.saveDuration,
	)
	return m
}

// Mutation counts one effective store mutation and records the new size.
func (m *Metrics) Mutation(op string, size int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
	m.instances.Set(float64(size))
}

// Size records the store size without counting a mutation.
func (m *Metrics) Size(size int) {
	if m == nil {
		return
	}
	m.instances.Set(float64(size))
}

// StorageError counts a failed storage operation.
func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// StorageDisabled marks storage as disabled for the process.
func (m *Metrics) StorageDisabled() {
	if m == nil {
		return
	}
	m.storageDisabled.Set(1)
}

// Dropped counts records discarded by the sanitizer.
func (m *Metrics) Dropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.Add(float64(n))
}

// ObserveSave records the duration of one save in seconds.
func (m *Metrics) ObserveSave(seconds float64) {
	if m == nil {
		return
	}
	m.saveDuration.Observe(seconds)
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot flattens counters and gauges into samples sorted by name.
// Histograms report their sample count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
			out = append(out, Sample{Name: fam.GetName(), Labels: labels, Value: value})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
