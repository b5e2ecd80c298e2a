package service

import (
	"context"
	"sync"

	"github.com/alanyoungcy/zento/internal/domain"
)

// MemoryConversationStore keeps conversations in process memory. It is
// used when no Redis is configured; a restart loses every conversation.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*domain.Conversation
}

var _ domain.ConversationStore = (*MemoryConversationStore)(nil)

// NewMemoryConversationStore creates an empty store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[string]*domain.Conversation)}
}

// Save stores a copy of c.
func (s *MemoryConversationStore) Save(_ context.Context, c *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ID] = c.Clone()
	return nil
}

// Get returns a copy of the stored conversation.
func (s *MemoryConversationStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return c.Clone(), nil
}

// Delete removes a conversation. Deleting an unknown id is not an error.
func (s *MemoryConversationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}
