package application

import (
	"bytes"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-aipi/internal/ports"
)

// Snapshot is one built index together with the provenance of the data it
// was built from.
type Snapshot struct {
	Index *Index
	// Version is the cache key: the source's ETag or a content digest.
	Version string
	// DatasetHash is a stable identifier derived from the dataset bytes.
	DatasetHash string
	// Location is where the dataset was read from.
	Location string
	// LoadedAt is when the snapshot was built.
	LoadedAt time.Time
	// Meta is the raw meta document, nil when none is configured or it
	// could not be read.
	Meta []byte
}

// IndexCache holds the most recently built snapshot, keyed by source
// version. Concurrent builds of the same version are collapsed into one.
// The cache never expires on its own; callers invalidate it explicitly or
// by presenting a different version.
type IndexCache struct {
	mu    sync.RWMutex
	entry *Snapshot
	// sf prevents concurrent builds of the same version.
	sf      singleflight.Group
	metrics ports.MetricsCollector
}

// NewIndexCache creates an empty cache. metrics may be nil.
func NewIndexCache(metrics ports.MetricsCollector) *IndexCache {
	return &IndexCache{metrics: metrics}
}

// Current returns the cached snapshot, if any.
func (c *IndexCache) Current() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry, c.entry != nil
}

// Get returns the cached snapshot when it was built from version.
func (c *IndexCache) Get(version string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.entry.Version != version {
		return nil, false
	}
	return c.entry, true
}

// Load returns the snapshot for version, calling build only when the cache
// holds a different version. The built snapshot replaces the cached one.
func (c *IndexCache) Load(version string, build func() (*Snapshot, error)) (*Snapshot, error) {
	if snap, ok := c.Get(version); ok {
		c.record("hit")
		return snap, nil
	}

	v, err, _ := c.sf.Do(version, func() (any, error) {
		// Check again inside singleflight to handle a build that finished
		// between the first check and joining the group.
		if snap, ok := c.Get(version); ok {
			return snap, nil
		}
		c.record("miss")

		snap, err := build()
		if err != nil {
			return nil, err
		}
		snap.Version = version

		c.mu.Lock()
		c.entry = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// ReplaceMeta swaps the meta document of the cached snapshot when it was
// built from version. The index is shared with the previous snapshot. A
// nil meta keeps the current document.
func (c *IndexCache) ReplaceMeta(version string, meta []byte) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.entry.Version != version {
		return nil, false
	}
	if meta == nil || bytes.Equal(meta, c.entry.Meta) {
		return c.entry, true
	}
	next := *c.entry
	next.Meta = meta
	c.entry = &next
	return c.entry, true
}

// Invalidate drops the cached snapshot so the next Load rebuilds.
func (c *IndexCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

func (c *IndexCache) record(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCounter("index_cache_requests_total", 1, map[string]string{"result": result})
}
