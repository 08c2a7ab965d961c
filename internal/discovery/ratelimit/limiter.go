// internal/discovery/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"time"

	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/common/metrics"
)

// Decision is the outcome of one quota check.
type Decision struct {
	Limited    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
	FailOpen   bool
}

// Limiter enforces a trailing-window request count per identity and endpoint.
//
// The check is read-then-increment and not atomic: concurrent requests from the
// same identity may each observe the same count. Any store read failure allows
// the request (fail-open) so that an outage of the counting store never blocks
// someone looking for help.
type Limiter struct {
	store  CounterStore
	logger logger.Logger
	now    func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(store CounterStore, log logger.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		logger: log.With(map[string]interface{}{"component": "ratelimit"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts usage in the trailing window and records this request when permitted.
func (l *Limiter) Check(ctx context.Context, identity Identity, endpoint string, maxRequests, windowMinutes int) Decision {
	window := time.Duration(windowMinutes) * time.Minute
	now := l.now()

	count, err := l.store.CountSince(ctx, identity.Key, endpoint, now.Add(-window))
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", map[string]interface{}{
			"endpoint": endpoint,
			"identity": identity.Key,
			"error":    err.Error(),
		})
		metrics.RateLimitDecisions.WithLabelValues(endpoint, "fail_open").Inc()
		return Decision{Remaining: maxRequests, Limit: maxRequests, FailOpen: true}
	}

	if count >= maxRequests {
		metrics.RateLimitDecisions.WithLabelValues(endpoint, "limited").Inc()
		return Decision{
			Limited:    true,
			Remaining:  0,
			Limit:      maxRequests,
			RetryAfter: window,
		}
	}

	if err := l.store.Record(ctx, identity.Key, endpoint, now, window); err != nil {
		l.logger.Warn("failed to record rate limit usage", map[string]interface{}{
			"endpoint": endpoint,
			"identity": identity.Key,
			"error":    err.Error(),
		})
	}

	metrics.RateLimitDecisions.WithLabelValues(endpoint, "allowed").Inc()
	return Decision{
		Remaining: maxRequests - count - 1,
		Limit:     maxRequests,
	}
}
