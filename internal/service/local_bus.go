package service

import (
	"context"
	"strings"
	"sync"

	"github.com/alanyoungcy/zento/internal/domain"
)

// LocalBus is an in-process domain.SignalBus used when no Redis is
// configured. A subscriber that falls behind loses messages rather than
// blocking publishers.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[*localSub]struct{}
}

type localSub struct {
	pattern string
	ch      chan []byte
}

var _ domain.SignalBus = (*LocalBus)(nil)

// NewLocalBus creates an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[*localSub]struct{})}
}

// Publish delivers payload to every matching subscriber.
func (b *LocalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !matchChannel(s.pattern, channel) {
			continue
		}
		select {
		case s.ch <- append([]byte(nil), payload...):
		default:
		}
	}
	return nil
}

// Subscribe returns payloads published on channel, which may end in "*".
// The channel is closed when ctx is done.
func (b *LocalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &localSub{pattern: channel, ch: make(chan []byte, 128)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

func matchChannel(pattern, channel string) bool {
	if p, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, p)
	}
	return pattern == channel
}
