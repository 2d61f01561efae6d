package source

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-aipi/internal/ports"
)

type metricsSource struct {
	next      ports.Source
	collector ports.MetricsCollector
}

// MetricsMiddleware records fetch latency and outcome counts.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ports.Source) ports.Source {
		if collector == nil {
			return next
		}
		return &metricsSource{next: next, collector: collector}
	}
}

func (m *metricsSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	start := time.Now()
	payload, err := m.next.Fetch(ctx, knownVersion)

	labels := map[string]string{"status": fetchStatus(payload, err)}
	m.collector.RecordHistogram("source_fetch_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("source_requests_total", 1, labels)
	if err == nil && !payload.NotModified {
		m.collector.RecordGauge("source_payload_bytes", float64(len(payload.Body)), nil)
	}
	return payload, err
}

func (m *metricsSource) Location() string { return m.next.Location() }

func fetchStatus(payload ports.Payload, err error) string {
	switch {
	case err == nil && payload.NotModified:
		return "not_modified"
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ports.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

type tracedSource struct {
	next   ports.Source
	tracer trace.Tracer
}

// TracingMiddleware wraps each fetch in a span from the global tracer
// provider.
func TracingMiddleware() Middleware {
	return func(next ports.Source) ports.Source {
		return &tracedSource{next: next, tracer: otel.Tracer("aipi.source")}
	}
}

func (t *tracedSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	ctx, span := t.tracer.Start(ctx, "source.fetch",
		trace.WithAttributes(
			attribute.String("source.location", t.next.Location()),
			attribute.Bool("source.conditional", knownVersion != ""),
		),
	)
	defer span.End()

	payload, err := t.next.Fetch(ctx, knownVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return payload, err
	}
	span.SetAttributes(
		attribute.Bool("source.not_modified", payload.NotModified),
		attribute.Int("source.bytes", len(payload.Body)),
	)
	return payload, nil
}

func (t *tracedSource) Location() string { return t.next.Location() }
