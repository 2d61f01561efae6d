// Package application aggregates the dataset into an immutable index and
// serves it, cached per source version, to every presentation surface.
package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/export"
	"github.com/ahrav/go-aipi/internal/domain"
	"github.com/ahrav/go-aipi/internal/ports"
)

// Service fetches the dataset, aggregates it and keeps the result cached
// until the source reports a new version. It is the single entry point
// every presentation surface reads scores through.
type Service struct {
	source     ports.Source
	meta       ports.Source
	cache      *IndexCache
	classifier domain.Classifier
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
	now        func() time.Time

	revalidateAfter time.Duration
	checkMu         sync.Mutex
	checkedAt       time.Time
	// sf collapses concurrent revalidations into one source fetch.
	sf singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetaSource fetches a meta document alongside the dataset.
func WithMetaSource(src ports.Source) ServiceOption {
	return func(s *Service) { s.meta = src }
}

// WithClassifier sets the status classifier used by built indexes.
func WithClassifier(c domain.Classifier) ServiceOption {
	return func(s *Service) { s.classifier = c }
}

// WithMetrics records build and cache metrics to collector.
func WithMetrics(collector ports.MetricsCollector) ServiceOption {
	return func(s *Service) { s.metrics = collector }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithRevalidateAfter serves the cached index for d before asking the
// source again. Zero, the default, asks on every Snapshot.
func WithRevalidateAfter(d time.Duration) ServiceOption {
	return func(s *Service) { s.revalidateAfter = d }
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service reading from src.
func NewService(src ports.Source, opts ...ServiceOption) (*Service, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is required", domain.ErrInvalidConfiguration)
	}
	s := &Service{
		source:     src,
		classifier: domain.NewClassifier(domain.DefaultStatusThresholds()),
		tracer:     otel.Tracer("github.com/ahrav/go-aipi/internal/application"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewIndexCache(s.metrics)
	return s, nil
}

// Snapshot returns the index for the current source version. Within the
// revalidation interval the cached index is served without contacting the
// source; after it, the source is asked whether the cached version is still
// current and the dataset is only re-aggregated when it changed.
// Concurrent revalidations are collapsed into one fetch. When the source
// cannot be reached and an index is cached, the cached index is served.
// Otherwise fetch failures wrap ports.ErrSourceUnavailable.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if cur, ok := s.cache.Current(); ok && s.fresh() {
		s.cache.record("fresh")
		return cur, nil
	}

	ch := s.sf.DoChan("revalidate", func() (any, error) {
		// A revalidation may have finished between the check above and
		// joining the group.
		if cur, ok := s.cache.Current(); ok && s.fresh() {
			return cur, nil
		}
		return s.revalidate(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, sourceUnavailable(s.source.Location(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Refresh drops the cached index and builds a new one.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.cache.Invalidate()
	return s.revalidate(ctx)
}

func (s *Service) revalidate(ctx context.Context) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "aipi.snapshot",
		trace.WithAttributes(attribute.String("source.location", s.source.Location())))
	defer span.End()

	cur, cached := s.cache.Current()
	known := ""
	if cached {
		known = cur.Version
	}

	payload, meta, err := s.fetch(ctx, known)
	if err != nil {
		span.RecordError(err)
		if cached {
			klog.FromContext(ctx).Error(err, "source unavailable, serving cached index", "version", cur.Version)
			s.markChecked()
			s.cache.record("stale")
			span.SetAttributes(attribute.Bool("cache.stale", true))
			return cur, nil
		}
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	s.markChecked()

	if payload.NotModified {
		if snap, ok := s.cache.ReplaceMeta(known, meta); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return snap, nil
		}
		// The cache was invalidated while the conditional fetch was in
		// flight; fetch the full body.
		if payload, meta, err = s.fetch(ctx, ""); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, err
		}
	}

	version := payload.Version
	if version == "" {
		version = ContentVersion(payload.Body)
	}
	span.SetAttributes(attribute.String("source.version", version))

	snap, err := s.cache.Load(version, func() (*Snapshot, error) {
		return s.build(ctx, payload, meta)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}
	// Sources without their own version answer with the full body, so a
	// cache hit here still carries the newest meta document.
	if updated, ok := s.cache.ReplaceMeta(version, meta); ok {
		snap = updated
	}
	return snap, nil
}

// fresh reports whether the source was checked within the revalidation
// interval.
func (s *Service) fresh() bool {
	if s.revalidateAfter <= 0 {
		return false
	}
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	return !s.checkedAt.IsZero() && s.now().Sub(s.checkedAt) < s.revalidateAfter
}

func (s *Service) markChecked() {
	s.checkMu.Lock()
	s.checkedAt = s.now()
	s.checkMu.Unlock()
}

// Cache exposes the service's index cache.
func (s *Service) Cache() *IndexCache { return s.cache }

// fetch retrieves the dataset and, when configured, the meta document in
// parallel. A missing meta document is logged and otherwise ignored.
func (s *Service) fetch(ctx context.Context, known string) (ports.Payload, []byte, error) {
	log := klog.FromContext(ctx)

	var (
		payload ports.Payload
		meta    []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.source.Fetch(gctx, known)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if s.meta != nil {
		g.Go(func() error {
			p, err := s.meta.Fetch(gctx, "")
			if err != nil {
				log.Error(err, "meta document unavailable", "location", s.meta.Location())
				return nil
			}
			meta = p.Body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.Payload{}, nil, sourceUnavailable(s.source.Location(), err)
	}
	log.V(2).Info("dataset fetched", "location", payload.Location, "version", payload.Version,
		"notModified", payload.NotModified, "bytes", len(payload.Body))
	return payload, meta, nil
}

func (s *Service) build(ctx context.Context, payload ports.Payload, meta []byte) (*Snapshot, error) {
	log := klog.FromContext(ctx)
	_, span := s.tracer.Start(ctx, "aipi.build_index",
		trace.WithAttributes(attribute.Int("dataset.bytes", len(payload.Body))))
	defer span.End()

	start := s.now()
	idx, err := BuildIndex(payload.Body, s.classifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	elapsed := s.now().Sub(start)

	stats := idx.Stats()
	span.SetAttributes(
		attribute.Int("dataset.rows", stats.Rows),
		attribute.Int("dataset.skipped", stats.SkippedTotal()),
		attribute.Int("index.providers", idx.Len()),
	)
	if len(stats.MissingColumns) > 0 {
		log.Info("dataset header is missing columns", "columns", stats.MissingColumns)
	}
	log.Info("index built", "providers", idx.Len(), "rows", stats.Rows,
		"skipped", stats.SkippedTotal(), "elapsed", elapsed)

	if s.metrics != nil {
		s.metrics.RecordLatency("build_index", elapsed, nil)
		s.metrics.RecordCounter("dataset_rows_total", float64(stats.Rows), map[string]string{"result": "kept"})
		for reason, n := range stats.Skipped {
			s.metrics.RecordCounter("dataset_rows_total", float64(n), map[string]string{"result": string(reason)})
		}
		s.metrics.RecordGauge("index_providers", float64(idx.Len()), nil)
		for _, mode := range domain.Modes {
			for _, sc := range idx.Rankings(mode) {
				s.metrics.RecordHistogram("provider_aipi", sc.AIPI, map[string]string{"mode": string(mode)})
			}
		}
	}

	return &Snapshot{
		Index:       idx,
		DatasetHash: export.DatasetHash(payload.Body),
		Location:    payload.Location,
		LoadedAt:    s.now().UTC(),
		Meta:        meta,
	}, nil
}

// ContentVersion derives a cache version from dataset bytes for sources
// that carry no version of their own.
func ContentVersion(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func sourceUnavailable(location string, err error) error {
	if errors.Is(err, ports.ErrSourceUnavailable) {
		return err
	}
	var srcErr *ports.SourceError
	if errors.As(err, &srcErr) {
		return fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	return ports.NewSourceError("Fetch", location, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err))
}
