package testutils

import (
	"context"
	"sync"

	"github.com/ahrav/go-aipi/internal/ports"
)

// MockResult is one scripted answer of a MockSource.
type MockResult struct {
	Payload ports.Payload
	Err     error
}

// MockSource implements ports.Source with scripted results. Once the
// script is exhausted it serves Body with a version derived from Version,
// answering NotModified when the caller already holds that version.
type MockSource struct {
	mu sync.Mutex
	// Script is consumed one entry per Fetch.
	Script []MockResult
	// Body and Version describe the steady-state document.
	Body    []byte
	Version string
	// Loc is returned by Location.
	Loc string

	calls []string
}

// NewMockSource serves body under version.
func NewMockSource(body, version string) *MockSource {
	return &MockSource{Body: []byte(body), Version: version, Loc: "mock://dataset.csv"}
}

// Fetch implements ports.Source.
func (m *MockSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, knownVersion)
	if err := ctx.Err(); err != nil {
		return ports.Payload{}, err
	}
	if len(m.Script) > 0 {
		r := m.Script[0]
		m.Script = m.Script[1:]
		return r.Payload, r.Err
	}
	if m.Version != "" && knownVersion == m.Version {
		return ports.Payload{Version: m.Version, NotModified: true, Location: m.Loc}, nil
	}
	return ports.Payload{Body: m.Body, Version: m.Version, Location: m.Loc}, nil
}

// Location implements ports.Source.
func (m *MockSource) Location() string { return m.Loc }

// Set replaces the steady-state document.
func (m *MockSource) Set(body, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Body, m.Version = []byte(body), version
}

// Calls returns the known versions passed to each Fetch so far.
func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times Fetch was called.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
