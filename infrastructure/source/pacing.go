package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-aipi/internal/ports"
)

type rateLimitedSource struct {
	next    ports.Source
	limiter *rate.Limiter
}

// RateLimitMiddleware paces fetches to rps per second with the given burst.
// A non-positive rps disables pacing.
func RateLimitMiddleware(rps float64, burst int) Middleware {
	return func(next ports.Source) ports.Source {
		if rps <= 0 {
			return next
		}
		return &rateLimitedSource{next: next, limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1))}
	}
}

func (r *rateLimitedSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.Payload{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Fetch(ctx, knownVersion)
}

func (r *rateLimitedSource) Location() string { return r.next.Location() }

type timeoutSource struct {
	next    ports.Source
	timeout time.Duration
}

// TimeoutMiddleware bounds each fetch by timeout. A zero timeout disables
// the bound.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next ports.Source) ports.Source {
		if timeout <= 0 {
			return next
		}
		return &timeoutSource{next: next, timeout: timeout}
	}
}

func (t *timeoutSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Fetch(ctx, knownVersion)
}

func (t *timeoutSource) Location() string { return t.next.Location() }
