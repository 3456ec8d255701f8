// Package httpx is the single place transient-vs-fatal HTTP failure
// classification lives. Every adapter and enrichment client builds its
// client through NewClient so the retry policy never drifts between call
// sites.
package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultTimeout is the per-request adapter-level timeout (spec §5).
	DefaultTimeout = 30 * time.Second
	// maxBodyBytes guards against runaway response bodies from misbehaving
	// or compromised upstreams.
	maxBodyBytes = 8 << 20
)

// NewClient builds a retryablehttp.Client with the shared retry policy:
// three attempts in all (two retries), exponential backoff 2s -> 4s capped
// at 10s (retryablehttp counts RetryMax as retries after the first), retrying
// only on connection errors, timeouts, 429, 503, and other 5xx — anything
// else (4xx other than 429) is returned immediately to the caller.
func NewClient(userAgent string) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.CheckRetry = CheckRetry
	rc.Backoff = retryablehttp.DefaultBackoff

	if userAgent != "" {
		rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
			req.Header.Set("User-Agent", userAgent)
		}
	}
	return rc
}

// CheckRetry is the one classification point for transient vs fatal HTTP
// failures, shared by every adapter and enrichment client (spec §7, §9).
func CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// Network errors, connection resets, timeouts: transient.
		return true, nil
	}
	if resp == nil {
		return true, nil
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return true, nil
	case resp.StatusCode >= 500:
		return true, nil
	case resp.StatusCode >= 400:
		// Non-retryable 4xx: surface immediately.
		return false, nil
	default:
		return false, nil
	}
}

// ErrBodyTooLarge is returned by ReadLimited when a response exceeds
// maxBodyBytes.
var ErrBodyTooLarge = errors.New("httpx: response body too large")

// ErrDailyQuotaExceeded is returned by RateLimitedTransport when a
// configured daily request cap has been reached.
var ErrDailyQuotaExceeded = errors.New("httpx: daily request quota exceeded")

// ReadLimited reads r up to maxBodyBytes, returning ErrBodyTooLarge if the
// body is larger.
func ReadLimited(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxBodyBytes+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}
