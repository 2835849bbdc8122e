package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter checks whether a request should be allowed based on
// the identity's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds rate limit settings for a service tier.
type TierConfig struct {
	RequestsPerMinute int
}

const windowLength = time.Minute

// InProcessLimiter is a fixed-window rate limiter keyed by subject and
// tier. State lives in process memory; multi-instance deployments need
// an external limiter in front.
type InProcessLimiter struct {
	tiers      map[string]TierConfig
	defaultRPM int

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	used  int
}

// NewInProcessLimiter creates a rate limiter with per-tier configuration.
// Tiers without an entry fall back to defaultRPM; zero or negative values
// disable limiting for that tier.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		windows:    make(map[string]*window),
	}
}

func (l *InProcessLimiter) limitFor(tier string) int {
	if tc, ok := l.tiers[tier]; ok {
		return tc.RequestsPerMinute
	}
	return l.defaultRPM
}

// Allow checks if the request is within the rate limit.
// Fails open: any internal error allows the request.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.ServiceTier
	if tier == "" {
		tier = "default"
	}

	rpm := l.limitFor(tier)
	if rpm <= 0 {
		return nil
	}

	now := time.Now()
	key := identity.Subject + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= windowLength {
		l.windows[key] = &window{start: now, used: 1}
		l.sweep(now)
		return nil
	}

	w.used++
	if w.used > rpm {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops expired windows so idle subjects do not accumulate.
// Called with the mutex held, only when a window rolls over.
func (l *InProcessLimiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= windowLength {
			delete(l.windows, key)
		}
	}
}
