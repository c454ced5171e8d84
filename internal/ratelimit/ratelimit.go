// Package ratelimit throttles outbound calls to oracle gateways on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/KPR-V/stellar/internal/apperror"
)

// Limiter is a token bucket shared by all callers of one upstream.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New allows requestsPerMinute with a burst of a tenth of that (minimum 1).
// A non-positive rate disables limiting.
func New(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	burst := max(requestsPerMinute/10, 1)
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
	}
}

// NewWithBurst creates a limiter with an explicit per-second rate and burst.
func NewWithBurst(name string, requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{name: name, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available. Cancellation surfaces as a
// rate-limit error so callers can tell it apart from transport failures.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(l.name))
	}
	return nil
}

// Allow reports whether a call may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name identifies the upstream this limiter guards.
func (l *Limiter) Name() string {
	return l.name
}
