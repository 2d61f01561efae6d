package testutils

import (
	"maps"
	"sync"
	"time"
)

// MetricRecord is one call observed by MockMetricsCollector.
type MetricRecord struct {
	Kind   string
	Name   string
	Value  float64
	Labels map[string]string
}

// MockMetricsCollector implements ports.MetricsCollector by recording
// every call.
type MockMetricsCollector struct {
	mu      sync.Mutex
	records []MetricRecord
}

// NewMockMetricsCollector creates an empty collector.
func NewMockMetricsCollector() *MockMetricsCollector { return &MockMetricsCollector{} }

func (m *MockMetricsCollector) add(kind, name string, v float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, MetricRecord{Kind: kind, Name: name, Value: v, Labels: maps.Clone(labels)})
}

// RecordLatency implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	m.add("latency", operation, d.Seconds(), labels)
}

// RecordCounter implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordCounter(metric string, v float64, labels map[string]string) {
	m.add("counter", metric, v, labels)
}

// RecordGauge implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordGauge(metric string, v float64, labels map[string]string) {
	m.add("gauge", metric, v, labels)
}

// RecordHistogram implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordHistogram(metric string, v float64, labels map[string]string) {
	m.add("histogram", metric, v, labels)
}

// Records returns the records named name.
func (m *MockMetricsCollector) Records(name string) []MetricRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MetricRecord
	for _, r := range m.records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// Sum adds the values of counters named name whose labels include want.
func (m *MockMetricsCollector) Sum(name string, want map[string]string) float64 {
	var total float64
	for _, r := range m.Records(name) {
		if matches(r.Labels, want) {
			total += r.Value
		}
	}
	return total
}

func matches(labels, want map[string]string) bool {
	for k, v := range want {
		if labels[k] != v {
			return false
		}
	}
	return true
}
