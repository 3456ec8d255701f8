package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedTransport wraps a base RoundTripper with a token-bucket rate
// limiter, generalized from the teacher's attom.quotaTransport. Used by the
// enrichment clients, which both owe public APIs a strict 1 request/second
// ceiling.
type RateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter

	mu       sync.Mutex
	dayKey   string
	dayCount int
	dayLimit int // 0 disables the daily cap
}

// NewRateLimitedTransport builds a transport enforcing perSecond requests/s
// (burst 1, matching the strict external-API etiquette both enrichment
// clients must observe) on top of base. dayLimit of 0 disables the daily
// quota counter entirely.
func NewRateLimitedTransport(base http.RoundTripper, perSecond float64, dayLimit int) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{
		base:     base,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		dayLimit: dayLimit,
	}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if t.dayLimit > 0 {
		if err := t.checkDailyQuota(); err != nil {
			return nil, err
		}
	}
	return t.base.RoundTrip(req)
}

func (t *RateLimitedTransport) checkDailyQuota() error {
	now := time.Now().UTC()
	dayKey := now.Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dayKey != dayKey {
		t.dayKey = dayKey
		t.dayCount = 0
	}
	if t.dayCount >= t.dayLimit {
		return ErrDailyQuotaExceeded
	}
	t.dayCount++
	return nil
}
