package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chat-relay/internal/domain"
	"chat-relay/internal/llm"
	"chat-relay/internal/repository"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrInvalidInput             = errors.New("chat invalid input")
)

// ChatService orquesta un turno: persiste el mensaje del usuario, pide la respuesta al LLM
// con el transcript completo y persiste la respuesta del asistente.
type ChatService struct {
	store     repository.ConversationStore
	completer llm.Completer
	locker    ConversationLocker
	logger    *zap.Logger
}

func NewChatService(
	store repository.ConversationStore,
	completer llm.Completer,
	locker ConversationLocker,
	logger *zap.Logger,
) *ChatService {
	if locker == nil {
		locker = NewMemoryConversationLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		store:     store,
		completer: completer,
		locker:    locker,
		logger:    logger,
	}
}

// Chat procesa un turno completo y devuelve la conversacion actualizada.
// Si el LLM no devuelve texto, el mensaje del usuario queda persistido y no se agrega nada mas.
func (s *ChatService) Chat(ctx context.Context, conversationID, userText string) (domain.Conversation, error) {
	if s == nil || s.store == nil || s.completer == nil {
		return domain.Conversation{}, ErrChatServiceNotConfigured
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" || strings.TrimSpace(userText) == "" {
		return domain.Conversation{}, ErrInvalidInput
	}

	unlock, err := s.locker.Lock(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()

	convo, err := s.store.AddMessageToConversation(ctx, conversationID, domain.Message{
		Role:    domain.RoleUser,
		Content: userText,
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("append user message: %w", err)
	}

	reply, err := s.completer.Complete(ctx, convo.Messages)
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("conversation_id", conversationID),
			zap.Int("transcript_len", len(convo.Messages)),
			zap.Error(err),
		)
		return domain.Conversation{}, fmt.Errorf("complete: %w", err)
	}

	convo, err = s.store.AddMessageToConversation(ctx, conversationID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: reply,
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("append assistant message: %w", err)
	}
	return convo, nil
}
