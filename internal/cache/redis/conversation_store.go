package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/zento/internal/domain"
)

const defaultConversationTTL = 24 * time.Hour

// ConversationStore implements domain.ConversationStore. Conversations
// expire ttl after their last save.
type ConversationStore struct {
	c   *Client
	ttl time.Duration
}

// NewConversationStore creates a ConversationStore. A zero ttl uses 24h.
func NewConversationStore(c *Client, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = defaultConversationTTL
	}
	return &ConversationStore{c: c, ttl: ttl}
}

// Save stores conv, resetting its expiry.
func (s *ConversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("redis: marshal conversation %s: %w", conv.ID, err)
	}
	if err := s.c.rdb.Set(ctx, s.c.key("conversation", conv.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Get loads a conversation or returns domain.ErrSessionNotFound.
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	data, err := s.c.rdb.Get(ctx, s.c.key("conversation", id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis: get conversation %s: %w", id, err)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("redis: unmarshal conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	if err := s.c.rdb.Del(ctx, s.c.key("conversation", id)).Err(); err != nil {
		return fmt.Errorf("redis: delete conversation %s: %w", id, err)
	}
	return nil
}

var _ domain.ConversationStore = (*ConversationStore)(nil)
