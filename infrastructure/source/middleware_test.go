package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/ports"
	"github.com/ahrav/go-aipi/internal/testutils"
)

var errTransient = ports.NewSourceError("Fetch", "mock", fmt.Errorf("%w: 503", ports.ErrSourceUnavailable))

// TestChain_Order tests that the first middleware is the outermost.
func TestChain_Order(t *testing.T) {
	var mu sync.Mutex
	var order []string
	tag := func(name string) Middleware {
		return func(next ports.Source) ports.Source {
			return sourceFunc{next: next, fn: func(ctx context.Context, v string) (ports.Payload, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return next.Fetch(ctx, v)
			}}
		}
	}

	src := Chain(testutils.NewMockSource("x", "v1"), tag("outer"), tag("inner"))
	_, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "mock://dataset.csv", src.Location(), "location should pass through every layer.")
}

// TestRetryMiddleware_RecoversFromTransientFailures tests that retryable
// failures are retried until the source answers.
func TestRetryMiddleware_RecoversFromTransientFailures(t *testing.T) {
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}, {Err: errTransient}}

	src := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(mock)
	p, err := src.Fetch(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "body", string(p.Body))
	assert.Equal(t, 3, mock.CallCount(), "two failures and one success.")
}

// TestRetryMiddleware_GivesUp tests that the last error is returned after
// all attempts are used.
func TestRetryMiddleware_GivesUp(t *testing.T) {
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}, {Err: errTransient}, {Err: errTransient}}

	_, err := RetryMiddleware(2, time.Millisecond, time.Millisecond)(mock).Fetch(context.Background(), "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrSourceUnavailable, "the cause should be preserved.")
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, mock.CallCount())
}

// TestRetryMiddleware_NonRetryable tests that permanent failures and open
// circuits are returned at once.
func TestRetryMiddleware_NonRetryable(t *testing.T) {
	for _, cause := range []error{
		ports.NewSourceError("Fetch", "mock", ports.ErrInvalidResponse),
		ErrCircuitOpen,
		errors.New("boom"),
	} {
		mock := testutils.NewMockSource("body", "v1")
		mock.Script = []testutils.MockResult{{Err: cause}}

		_, err := RetryMiddleware(5, time.Millisecond, time.Millisecond)(mock).Fetch(context.Background(), "")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, mock.CallCount(), "%v should not be retried.", cause)
	}
}

// TestRetryMiddleware_HonorsRetryAfter tests that a Retry-After hint
// lengthens the wait, capped by the maximum delay.
func TestRetryMiddleware_HonorsRetryAfter(t *testing.T) {
	hinted := ports.NewSourceError("Fetch", "mock", ports.ErrRateLimited)
	hinted.RetryAfter = durationPtr(time.Hour)

	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: hinted}}

	start := time.Now()
	_, err := RetryMiddleware(2, time.Millisecond, 30*time.Millisecond)(mock).Fetch(context.Background(), "")
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "the hint should raise the delay to the cap.")
	assert.Less(t, elapsed, time.Second, "the hint must not exceed the cap.")
}

// TestRetryMiddleware_ContextCancelled tests that waiting between attempts
// stops on cancellation.
func TestRetryMiddleware_ContextCancelled(t *testing.T) {
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := RetryMiddleware(3, time.Hour, time.Hour)(mock).Fetch(ctx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRetryMiddleware_CalculateDelay tests the backoff bounds.
func TestRetryMiddleware_CalculateDelay(t *testing.T) {
	r := &retrySource{baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	for attempt, base := range []time.Duration{100, 200, 400, 800} {
		base *= time.Millisecond
		d := r.calculateDelay(attempt)
		assert.GreaterOrEqual(t, d, base*3/4, "attempt %d below the jitter floor.", attempt)
		assert.LessOrEqual(t, d, min(base*5/4, time.Second), "attempt %d above the jitter ceiling.", attempt)
	}
	assert.Equal(t, time.Second, r.calculateDelay(100), "large attempts should be capped.")
}

// TestCircuitBreaker_Lifecycle tests the closed, open and half-open
// transitions.
func TestCircuitBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	fail := func() error { return errTransient }
	ok := func() error { return nil }

	require.ErrorIs(t, cb.Call(fail), ports.ErrSourceUnavailable)
	assert.Equal(t, StateClosed, cb.State(), "one failure is below the threshold.")
	require.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.State(), "the threshold opens the circuit.")

	calls := 0
	err := cb.Call(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open circuits must not call through.")

	now = now.Add(time.Minute)
	require.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.State(), "a failed probe reopens the circuit.")

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State(), "a successful probe closes the circuit.")
}

// TestCircuitBreakerMiddleware_ReportsState tests that the breaker state is
// published as a gauge.
func TestCircuitBreakerMiddleware_ReportsState(t *testing.T) {
	collector := testutils.NewMockMetricsCollector()
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}}

	src := CircuitBreakerMiddlewareWithMetrics(1, time.Hour, collector)(mock)
	_, err := src.Fetch(context.Background(), "")
	require.Error(t, err)
	_, err = src.Fetch(context.Background(), "")
	require.ErrorIs(t, err, ErrCircuitOpen)

	gauges := collector.Records("source_circuit_state")
	require.Len(t, gauges, 2)
	assert.Equal(t, float64(StateOpen), gauges[1].Value)
	assert.Equal(t, "open", StateOpen.String())
}

// TestRateLimitMiddleware tests that pacing respects cancellation and that
// a zero rate disables it.
func TestRateLimitMiddleware(t *testing.T) {
	mock := testutils.NewMockSource("body", "v1")
	assert.Same(t, ports.Source(mock), RateLimitMiddleware(0, 0)(mock), "zero rps should not wrap.")

	src := RateLimitMiddleware(0.001, 1)(mock)
	_, err := src.Fetch(context.Background(), "")
	require.NoError(t, err, "the burst allows the first fetch.")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = src.Fetch(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, mock.CallCount(), "paced fetches must not reach the source.")
}

// TestTimeoutMiddleware tests that each fetch gets a deadline.
func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	inner := sourceFunc{fn: func(ctx context.Context, _ string) (ports.Payload, error) {
		deadline, hasDeadline = ctx.Deadline()
		return ports.Payload{}, nil
	}}

	_, err := TimeoutMiddleware(time.Minute)(inner).Fetch(context.Background(), "")
	require.NoError(t, err)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	_, err = TimeoutMiddleware(0)(inner).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hasDeadline, "a zero timeout adds no deadline.")
}

// TestMetricsMiddleware tests the status labels of recorded fetches.
func TestMetricsMiddleware(t *testing.T) {
	collector := testutils.NewMockMetricsCollector()
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}}

	src := MetricsMiddleware(collector)(mock)
	_, _ = src.Fetch(context.Background(), "")
	_, _ = src.Fetch(context.Background(), "")
	_, _ = src.Fetch(context.Background(), "v1")

	assert.Equal(t, 1.0, collector.Sum("source_requests_total", map[string]string{"status": "error"}))
	assert.Equal(t, 1.0, collector.Sum("source_requests_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, collector.Sum("source_requests_total", map[string]string{"status": "not_modified"}))
	assert.Len(t, collector.Records("source_fetch_seconds"), 3)

	bytes := collector.Records("source_payload_bytes")
	require.Len(t, bytes, 1)
	assert.Equal(t, 4.0, bytes[0].Value)
}

// TestFetchStatus tests the outcome classification.
func TestFetchStatus(t *testing.T) {
	assert.Equal(t, "circuit_open", fetchStatus(ports.Payload{}, fmt.Errorf("x: %w", ErrCircuitOpen)))
	assert.Equal(t, "rate_limited", fetchStatus(ports.Payload{}, ports.NewSourceError("Fetch", "u", ports.ErrRateLimited)))
	assert.Equal(t, "timeout", fetchStatus(ports.Payload{}, context.DeadlineExceeded))
}

// TestTracingMiddleware tests that tracing leaves payloads and errors
// untouched.
func TestTracingMiddleware(t *testing.T) {
	mock := testutils.NewMockSource("body", "v1")
	mock.Script = []testutils.MockResult{{Err: errTransient}}
	src := TracingMiddleware()(mock)

	_, err := src.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, errTransient, "errors should pass through unchanged.")

	p, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "body", string(p.Body))

	p, err = src.Fetch(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, p.NotModified)
}

// sourceFunc adapts a function to ports.Source.
type sourceFunc struct {
	next ports.Source
	fn   func(context.Context, string) (ports.Payload, error)
}

func (s sourceFunc) Fetch(ctx context.Context, v string) (ports.Payload, error) { return s.fn(ctx, v) }

func (s sourceFunc) Location() string {
	if s.next != nil {
		return s.next.Location()
	}
	return "func"
}
