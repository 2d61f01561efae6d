package source

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-aipi/internal/ports"
)

type retrySource struct {
	next       ports.Source
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries retryable fetch failures with exponential
// backoff. maxAttempts counts the first try.
func RetryMiddleware(maxAttempts int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next ports.Source) ports.Source {
		return &retrySource{
			next:       next,
			maxRetries: max(maxAttempts-1, 0),
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retrySource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		payload, err := r.next.Fetch(ctx, knownVersion)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			if attempt == 0 {
				return ports.Payload{}, err
			}
			return ports.Payload{}, fmt.Errorf("fetch failed after %d attempts: %w", attempt+1, err)
		}

		delay := r.calculateDelay(attempt)
		var serr *ports.SourceError
		if errors.As(err, &serr) && serr.RetryAfter != nil && *serr.RetryAfter > delay {
			delay = min(*serr.RetryAfter, r.maxDelay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ports.Payload{}, ctx.Err()
		case <-t.C:
		}
	}

	return ports.Payload{}, lastErr
}

func (r *retrySource) Location() string { return r.next.Location() }

func (r *retrySource) calculateDelay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	// #nosec G115 - attempt is bounded between 0 and 30
	delay := time.Duration(float64(r.baseDelay) * float64(uint64(1)<<uint(attempt)))

	// ±25% jitter.
	// #nosec G404 - weak RNG is fine for jitter
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	return min(delay, r.maxDelay)
}

func retryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var serr *ports.SourceError
	if errors.As(err, &serr) {
		return serr.IsRetryable()
	}
	return errors.Is(err, ports.ErrSourceUnavailable) || errors.Is(err, ports.ErrTimeout)
}
