package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-aipi/internal/ports"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// HTTPSource fetches a dataset over HTTP. Entity tags returned by the host
// are used as versions and sent back as If-None-Match on the next fetch.
type HTTPSource struct {
	url       string
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates a source for url. A nil client uses
// http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client, userAgent: "go-aipi"}
}

// Location returns the URL.
func (h *HTTPSource) Location() string { return h.url }

// Fetch performs a conditional GET. A 304 answer yields a NotModified
// payload carrying knownVersion.
func (h *HTTPSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return ports.Payload{}, ports.NewSourceError("Fetch", h.url, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/csv, application/json;q=0.9, */*;q=0.5")
	if isEntityTag(knownVersion) {
		req.Header.Set("If-None-Match", knownVersion)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ports.Payload{}, ports.NewSourceError("Fetch", h.url, fmt.Errorf("%w: %w", ports.ErrTimeout, err))
		}
		if ctx.Err() != nil {
			return ports.Payload{}, ports.NewSourceError("Fetch", h.url, ctx.Err())
		}
		return ports.Payload{}, ports.NewSourceError("Fetch", h.url, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return ports.Payload{Version: knownVersion, NotModified: true, Location: h.url}, nil
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if err != nil {
			return ports.Payload{}, h.statusError(resp, fmt.Errorf("%w: reading body: %w", ports.ErrSourceUnavailable, err))
		}
		if len(body) > maxBodyBytes {
			return ports.Payload{}, h.statusError(resp, fmt.Errorf("%w: body exceeds %d bytes", ports.ErrInvalidResponse, maxBodyBytes))
		}
		return ports.Payload{Body: body, Version: resp.Header.Get("ETag"), Location: h.url}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		serr := h.statusError(resp, ports.ErrRateLimited)
		serr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return ports.Payload{}, serr
	case resp.StatusCode >= 500:
		return ports.Payload{}, h.statusError(resp, ports.ErrSourceUnavailable)
	default:
		return ports.Payload{}, h.statusError(resp, ports.ErrInvalidResponse)
	}
}

func (h *HTTPSource) statusError(resp *http.Response, err error) *ports.SourceError {
	serr := ports.NewSourceError("Fetch", h.url, fmt.Errorf("%w: %s", err, resp.Status))
	serr.StatusCode = resp.StatusCode
	return serr
}

func isEntityTag(v string) bool {
	return strings.HasPrefix(v, `"`) || strings.HasPrefix(v, `W/"`)
}

// parseRetryAfter accepts either delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) *time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := max(t.Sub(now), 0)
		return &d
	}
	return nil
}
