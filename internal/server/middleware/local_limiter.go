package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/zento/internal/domain"
)

// maxIdleKeys triggers a sweep of limiters that have refilled completely.
const maxIdleKeys = 4096

// LocalRateLimiter is an in-process token-bucket domain.RateLimiter used
// when no Redis is configured. Each key gets a bucket of size limit that
// refills over window.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

var _ domain.RateLimiter = (*LocalRateLimiter)(nil)

// NewLocalRateLimiter returns an empty limiter.
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Allow consumes one token from key's bucket.
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxIdleKeys {
			l.sweep(now, window)
		}
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// sweep drops buckets untouched for a full window; they would be full again.
func (l *LocalRateLimiter) sweep(now time.Time, window time.Duration) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= window {
			delete(l.buckets, k)
		}
	}
}
