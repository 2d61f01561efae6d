package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/ports"
)

// TestHTTPSource_ConditionalFetch tests that the ETag of a response is sent
// back as If-None-Match and a 304 becomes a not-modified payload.
func TestHTTPSource_ConditionalFetch(t *testing.T) {
	const etag = `"v1"`
	var conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("provider_id\n"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, srv.Client())

	first, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, etag, first.Version, "the ETag should be the version.")
	assert.Equal(t, "provider_id\n", string(first.Body))

	second, err := src.Fetch(context.Background(), first.Version)
	require.NoError(t, err)
	assert.True(t, second.NotModified, "304 should map to NotModified.")
	assert.Equal(t, etag, second.Version, "the known version should be echoed.")
	assert.Equal(t, int32(1), conditional.Load(), "exactly one conditional request should be sent.")
}

// TestHTTPSource_ContentVersionNotSentAsETag tests that versions which are
// not entity tags are never used for conditional requests.
func TestHTTPSource_ContentVersionNotSentAsETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("If-None-Match"), "digests are not entity tags.")
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, srv.Client()).Fetch(context.Background(), "sha256:abc")
	require.NoError(t, err)
}

// TestHTTPSource_StatusErrors tests how failing status codes map to source
// errors.
func TestHTTPSource_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantErr    error
		retryable  bool
		wantWait   *time.Duration
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "2", wantErr: ports.ErrRateLimited, retryable: true, wantWait: durationPtr(2 * time.Second)},
		{name: "server error", status: http.StatusBadGateway, wantErr: ports.ErrSourceUnavailable, retryable: true},
		{name: "not found", status: http.StatusNotFound, wantErr: ports.ErrInvalidResponse, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, srv.Client()).Fetch(context.Background(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var serr *ports.SourceError
			require.True(t, errors.As(err, &serr), "errors should be SourceErrors.")
			assert.Equal(t, tt.status, serr.StatusCode, "the status should be kept.")
			assert.Equal(t, tt.retryable, serr.IsRetryable())
			assert.Equal(t, tt.wantWait, serr.RetryAfter)
		})
	}
}

// TestHTTPSource_Unreachable tests that transport failures are retryable.
func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, nil).Fetch(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrSourceUnavailable)
}

// TestParseRetryAfter tests both Retry-After encodings.
func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, durationPtr(30*time.Second), parseRetryAfter("30", now))
	assert.Equal(t, durationPtr(90*time.Second), parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, durationPtr(0), parseRetryAfter(now.Add(-time.Hour).Format(http.TimeFormat), now), "past dates mean retry now.")
	assert.Nil(t, parseRetryAfter("", now))
	assert.Nil(t, parseRetryAfter("soon", now))
	assert.Nil(t, parseRetryAfter("-5", now))
}

func durationPtr(d time.Duration) *time.Duration { return &d }
