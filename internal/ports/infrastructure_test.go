package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource implements Source over an in-memory body.
type staticSource struct {
	body    []byte
	version string
}

func (s *staticSource) Fetch(_ context.Context, known string) (Payload, error) {
	if known != "" && known == s.version {
		return Payload{Version: s.version, NotModified: true, Location: s.Location()}, nil
	}
	return Payload{Body: s.body, Version: s.version, Location: s.Location()}, nil
}

func (s *staticSource) Location() string { return "memory" }

// recordingMetrics implements MetricsCollector by counting calls.
type recordingMetrics struct{ calls map[string]int }

func (m *recordingMetrics) RecordLatency(op string, _ time.Duration, _ map[string]string) {
	m.calls["latency:"+op]++
}
func (m *recordingMetrics) RecordCounter(metric string, _ float64, _ map[string]string) {
	m.calls["counter:"+metric]++
}
func (m *recordingMetrics) RecordGauge(metric string, _ float64, _ map[string]string) {
	m.calls["gauge:"+metric]++
}
func (m *recordingMetrics) RecordHistogram(metric string, _ float64, _ map[string]string) {
	m.calls["histogram:"+metric]++
}

func TestSource_ConditionalFetch(t *testing.T) {
	var src Source = &staticSource{body: []byte("a,b\n"), version: "v1"}

	p, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, p.NotModified)
	assert.Equal(t, "v1", p.Version)

	p, err = src.Fetch(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, p.NotModified, "A matching known version should short-circuit.")
	assert.Empty(t, p.Body)
}

func TestMetricsCollector_Implementation(t *testing.T) {
	var m MetricsCollector = &recordingMetrics{calls: map[string]int{}}

	m.RecordLatency("build", time.Millisecond, nil)
	m.RecordCounter("rows", 3, nil)
	m.RecordGauge("providers", 2, nil)
	m.RecordHistogram("aipi", 0.4, nil)

	rm := m.(*recordingMetrics)
	assert.Len(t, rm.calls, 4)
}
