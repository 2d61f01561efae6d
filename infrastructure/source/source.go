// Package source retrieves the published dataset from local files or HTTP
// hosts. Remote sources are wrapped in a middleware chain that adds
// retries, pacing, timeouts, circuit breaking, metrics and tracing.
package source

import (
	"github.com/ahrav/go-aipi/internal/ports"
)

// Middleware wraps a Source to add cross-cutting behavior.
type Middleware func(ports.Source) ports.Source

// Chain wraps src with middlewares. The first middleware is the outermost,
// so it sees every call first and every result last.
//
// Example:
//
//	src := source.Chain(source.NewHTTPSource(url, nil),
//	    source.TracingMiddleware(),
//	    source.MetricsMiddleware(collector),
//	    source.RetryMiddleware(3, 250*time.Millisecond, 5*time.Second),
//	    source.CircuitBreakerMiddleware(5, 30*time.Second),
//	    source.RateLimitMiddleware(2, 4),
//	    source.TimeoutMiddleware(15*time.Second),
//	)
func Chain(src ports.Source, middlewares ...Middleware) ports.Source {
	for i := len(middlewares) - 1; i >= 0; i-- {
		src = middlewares[i](src)
	}
	return src
}
