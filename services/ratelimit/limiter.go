package ratelimit

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Rule configures a single named bucket: at most Limit requests per
// fixed Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store persists per-key fixed windows. Hit locates or creates the window
// for (key, bucket), resetting it when the window has elapsed, then
// increments and returns the new count together with the window start.
type Store interface {
	Hit(key, bucket string, now time.Time, window time.Duration) (count int, windowStart time.Time, err error)
	// Sweep evicts windows idle for longer than maxIdle and returns the
	// number evicted.
	Sweep(now time.Time, maxIdle time.Duration) int
}

// Limiter is a fixed-window request-rate limiter keyed by
// (client key, bucket name). Unknown buckets are always admitted.
type Limiter struct {
	rules      map[string]Rule
	store      Store
	failClosed bool
	logger     *zap.Logger
	now        func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(l *Limiter) { l.store = store }
}

// WithFailClosed rejects requests when the store errors instead of the
// default fail-open behavior.
func WithFailClosed() Option {
	return func(l *Limiter) { l.failClosed = true }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a Limiter with the given per-bucket rules.
func NewLimiter(rules map[string]Rule, logger *zap.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		rules:  rules,
		store:  NewMemoryStore(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit checks and consumes one request slot for (clientKey, bucket).
// A store failure never propagates: it degrades to the configured failure
// policy (allow by default) and is logged.
func (l *Limiter) Admit(clientKey, bucket string) Decision {
	rule, ok := l.rules[bucket]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true, Remaining: math.MaxInt}
	}

	now := l.now()
	count, windowStart, err := l.store.Hit(clientKey, bucket, now, rule.Window)
	if err != nil {
		l.logger.Error("rate limit store failure, degrading",
			zap.String("bucket", bucket),
			zap.Bool("fail_closed", l.failClosed),
			zap.Error(err))
		if l.failClosed {
			return Decision{Allowed: false, RetryAfter: rule.Window}
		}
		return Decision{Allowed: true, Remaining: rule.Limit}
	}

	if count > rule.Limit {
		retryAfter := rule.Window - now.Sub(windowStart)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}
	return Decision{Allowed: true, Remaining: rule.Limit - count}
}

// StartSweeper evicts idle windows every interval until stop is closed.
func (l *Limiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	maxIdle := interval
	for _, rule := range l.rules {
		if rule.Window > maxIdle {
			maxIdle = rule.Window
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := l.store.Sweep(l.now(), maxIdle); evicted > 0 {
				l.logger.Debug("evicted idle rate limit windows", zap.Int("count", evicted))
			}
		case <-stop:
			return
		}
	}
}
