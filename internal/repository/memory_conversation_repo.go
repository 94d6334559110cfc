package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"chat-relay/internal/domain"
)

// MemoryConversationStore guarda las conversaciones en un mapa del proceso.
type MemoryConversationStore struct {
	mu     sync.RWMutex
	convos map[string]*domain.Conversation
	order  []string
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		convos: make(map[string]*domain.Conversation),
	}
}

func (s *MemoryConversationStore) CreateConversation(_ context.Context) (domain.Conversation, error) {
	id := uuid.NewString()
	convo := &domain.Conversation{
		ID:       id,
		Title:    id,
		Messages: []domain.Message{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convos[id] = convo
	s.order = append(s.order, id)
	return cloneConversation(convo), nil
}

func (s *MemoryConversationStore) GetConversation(_ context.Context, id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convo, ok := s.convos[id]
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(convo), nil
}

func (s *MemoryConversationStore) GetConversations(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConversationSummary, 0, len(s.order))
	for _, id := range s.order {
		convo := s.convos[id]
		out = append(out, domain.ConversationSummary{ConvoID: convo.ID, ConvoTitle: convo.Title})
	}
	return out, nil
}

func (s *MemoryConversationStore) AddMessageToConversation(_ context.Context, id string, message domain.Message) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convo, ok := s.convos[id]
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}
	convo.Messages = append(convo.Messages, message)
	return cloneConversation(convo), nil
}

// cloneConversation copia el transcript para que el llamador no comparta el slice interno.
func cloneConversation(c *domain.Conversation) domain.Conversation {
	msgs := make([]domain.Message, len(c.Messages))
	copy(msgs, c.Messages)
	return domain.Conversation{ID: c.ID, Title: c.Title, Messages: msgs}
}
