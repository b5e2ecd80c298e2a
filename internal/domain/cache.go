package domain

import (
	"context"
	"time"
)

// MarketCache keeps the last MarketState read for each market.
type MarketCache interface {
	Set(ctx context.Context, m MarketState) error
	Get(ctx context.Context, id uint64) (MarketState, error)
	Invalidate(ctx context.Context, id uint64) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between the pipelines and websocket clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ConversationStore keeps conversations between requests.
type ConversationStore interface {
	Save(ctx context.Context, c *Conversation) error
	Get(ctx context.Context, id string) (*Conversation, error)
	Delete(ctx context.Context, id string) error
}

// RateLimiter admits at most limit requests per key within window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
