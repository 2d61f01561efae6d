package source

import (
	"net/http"
	"time"

	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/ports"
)

// FromConfig builds the dataset source and, when configured, the meta
// source. Remote sources get the full middleware chain; local files are
// only traced and measured. collector may be nil.
func FromConfig(cfg application.SourceConfig, collector ports.MetricsCollector) (data, meta ports.Source) {
	client := &http.Client{Timeout: cfg.Timeout}
	data = build(cfg, cfg.Path, cfg.URL, client, collector)
	if cfg.MetaLocation() != "" {
		meta = build(cfg, cfg.MetaPath, cfg.MetaURL, client, nil)
	}
	return data, meta
}

func build(cfg application.SourceConfig, path, url string, client *http.Client, collector ports.MetricsCollector) ports.Source {
	if url == "" {
		return Chain(NewFileSource(path), TracingMiddleware(), MetricsMiddleware(collector))
	}

	mws := []Middleware{TracingMiddleware(), MetricsMiddleware(collector)}
	if cfg.Retry.MaxAttempts > 1 {
		mws = append(mws, RetryMiddleware(cfg.Retry.MaxAttempts,
			time.Duration(cfg.Retry.InitialWait)*time.Millisecond,
			time.Duration(cfg.Retry.MaxWait)*time.Millisecond))
	}
	if cfg.CircuitBreaker.MaxFailures > 0 {
		mws = append(mws, CircuitBreakerMiddlewareWithMetrics(
			cfg.CircuitBreaker.MaxFailures, cfg.CircuitBreaker.Cooldown, collector))
	}
	mws = append(mws, RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst), TimeoutMiddleware(cfg.Timeout))
	return Chain(NewHTTPSource(url, client), mws...)
}
