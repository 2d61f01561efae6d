// Package ports defines the interfaces between the index service and its
// infrastructure: dataset sources, the release archive and metrics.
package ports

import (
	"context"
	"time"
)

// Payload is the result of one dataset fetch.
type Payload struct {
	// Body is the raw dataset text. It is empty when NotModified is set.
	Body []byte

	// Version identifies the content: an HTTP ETag when the host provides
	// one, otherwise a digest of Body. It is the cache invalidation key.
	Version string

	// NotModified is set when a conditional fetch confirmed that the
	// previously seen version is still current.
	NotModified bool

	// Location is the path or URL the payload came from.
	Location string
}

// Source retrieves a dataset. Implementations read files, call HTTP hosts,
// or decorate another Source with retries, rate limiting and the like.
type Source interface {
	// Fetch retrieves the dataset. A non-empty knownVersion lets the
	// implementation skip the transfer when the content is unchanged, in
	// which case the returned Payload has NotModified set.
	Fetch(ctx context.Context, knownVersion string) (Payload, error)

	// Location describes where the source reads from, for logs and errors.
	Location() string
}

// Release is one archived build of the index.
type Release struct {
	Tag           string    `json:"tag"`
	DatasetHash   string    `json:"dataset_hash"`
	SourceVersion string    `json:"source_version"`
	GeneratedUTC  time.Time `json:"generated_utc"`
	Providers     int       `json:"providers"`
	// Documents holds the archived build artifacts keyed by file name.
	Documents map[string][]byte `json:"-"`
}

// ReleaseStore persists builds so that past releases stay inspectable.
type ReleaseStore interface {
	// Save stores r, replacing any release with the same tag and hash.
	Save(ctx context.Context, r Release) error

	// List returns releases newest first, at most limit (all when limit <= 0).
	List(ctx context.Context, limit int) ([]Release, error)

	// Get returns the newest release with tag, including its documents.
	// It returns ErrReleaseNotFound when none exists.
	Get(ctx context.Context, tag string) (Release, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
