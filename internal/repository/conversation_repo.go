package repository

import (
	"context"
	"errors"

	"chat-relay/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)

// ConversationStore define el contrato de persistencia de conversaciones.
// Los tres backends (memoria, SQLite, Postgres) lo implementan sin diferencias observables.
type ConversationStore interface {
	CreateConversation(ctx context.Context) (domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
	GetConversations(ctx context.Context) ([]domain.ConversationSummary, error)
	AddMessageToConversation(ctx context.Context, id string, message domain.Message) (domain.Conversation, error)
}
