package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/llm"
	"chat-relay/internal/repository"
	"chat-relay/internal/service"
)

// Pinger reporta si el backend de persistencia responde.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConversationHandler mantiene dependencias para los endpoints de conversaciones.
type ConversationHandler struct {
	logger  *zap.Logger
	convos  repository.ConversationStore
	chatSvc *service.ChatService
	health  Pinger
}

// NewConversationHandler crea una instancia de ConversationHandler con dependencias necesarias.
func NewConversationHandler(
	logger *zap.Logger,
	convos repository.ConversationStore,
	chatSvc *service.ChatService,
	health Pinger,
) *ConversationHandler {
	return &ConversationHandler{
		logger:  logger,
		convos:  convos,
		chatSvc: chatSvc,
		health:  health,
	}
}

// CreateConversation maneja GET /create.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	convo, err := h.convos.CreateConversation(c.Request.Context())
	if err != nil {
		h.logger.Error("create conversation failed", zap.Error(err))
		h.writeStoreError(c, err, "could not create conversation")
		return
	}
	c.JSON(http.StatusOK, convo)
}

// GetConversations maneja GET /convos.
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	summaries, err := h.convos.GetConversations(c.Request.Context())
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		h.writeStoreError(c, err, "could not list conversations")
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetConversation maneja GET /convo/:id.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id := c.Param("id")
	convo, err := h.convos.GetConversation(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrConversationNotFound) {
			h.logger.Error("get conversation failed", zap.String("conversation_id", id), zap.Error(err))
		}
		h.writeStoreError(c, err, "could not fetch conversation")
		return
	}
	c.JSON(http.StatusOK, convo)
}

// Chat maneja POST /chat.
func (h *ConversationHandler) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
		ID      string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	convo, err := h.chatSvc.Chat(c.Request.Context(), req.ID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, llm.ErrBadCompletion):
			h.logger.Warn("bad completion", zap.String("conversation_id", req.ID), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bad prompt"})
		case errors.Is(err, repository.ErrConversationNotFound), errors.Is(err, repository.ErrStorageUnavailable):
			h.logger.Warn("chat turn failed", zap.String("conversation_id", req.ID), zap.Error(err))
			h.writeStoreError(c, err, "could not process chat")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.logger.Warn("chat turn cancelled", zap.String("conversation_id", req.ID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
		default:
			h.logger.Error("chat turn failed", zap.String("conversation_id", req.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not generate response"})
		}
		return
	}

	c.JSON(http.StatusOK, convo)
}

// Health maneja GET /healthz.
func (h *ConversationHandler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ConversationHandler) writeStoreError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, repository.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
