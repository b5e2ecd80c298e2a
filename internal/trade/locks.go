package trade

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

// LocalLocks is an in-process domain.LockManager used when no shared lock
// backend is configured. Entries expire after their TTL so a crashed
// holder cannot wedge a wallet forever. It is safe for concurrent use.
type LocalLocks struct {
	held map[string]lease
	next uint64
	mu   sync.Mutex
	now  func() time.Time
}

type lease struct {
	token   uint64
	expires time.Time
}

var _ domain.LockManager = (*LocalLocks)(nil)

// NewLocalLocks creates an empty lock table.
func NewLocalLocks() *LocalLocks {
	return &LocalLocks{
		held: make(map[string]lease),
		now:  time.Now,
	}
}

// Acquire takes key for ttl. It returns domain.ErrLockHeld while another
// unexpired lease exists. The returned unlock is safe to call repeatedly
// and never releases a lease taken by someone else after expiry.
func (l *LocalLocks) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	if _, ok := l.held[key]; ok {
		return nil, domain.ErrLockHeld
	}
	l.next++
	token := l.next
	l.held[key] = lease{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}

// sweep drops expired leases. Callers hold mu.
func (l *LocalLocks) sweep(now time.Time) {
	for k, cur := range l.held {
		if !now.Before(cur.expires) {
			delete(l.held, k)
		}
	}
}
