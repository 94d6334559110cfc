package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-relay/internal/domain"
)

// PgConversationStore implementa ConversationStore usando pgxpool.
type PgConversationStore struct {
	pool *pgxpool.Pool
}

func NewPgConversationStore(pool *pgxpool.Pool) *PgConversationStore {
	return &PgConversationStore{pool: pool}
}

func (r *PgConversationStore) CreateConversation(ctx context.Context) (domain.Conversation, error) {
	const query = `
		INSERT INTO conversations (id, title)
		VALUES ($1, $2)
	`
	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx, query, id, id); err != nil {
		return domain.Conversation{}, pgError("create conversation", err)
	}
	return domain.Conversation{ID: id, Title: id, Messages: []domain.Message{}}, nil
}

func (r *PgConversationStore) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	const convoQuery = `
		SELECT id, title
		FROM conversations
		WHERE id = $1
	`
	const messagesQuery = `
		SELECT role, content
		FROM messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`

	var convo domain.Conversation
	if err := pgxscan.Get(ctx, r.pool, &convo, convoQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return domain.Conversation{}, pgError("get conversation", err)
	}

	if err := pgxscan.Select(ctx, r.pool, &convo.Messages, messagesQuery, id); err != nil {
		return domain.Conversation{}, pgError("list messages", err)
	}
	if convo.Messages == nil {
		convo.Messages = []domain.Message{}
	}
	return convo, nil
}

func (r *PgConversationStore) GetConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT id, title
		FROM conversations
		ORDER BY created_at ASC, id ASC
	`
	var summaries []domain.ConversationSummary
	if err := pgxscan.Select(ctx, r.pool, &summaries, query); err != nil {
		return nil, pgError("list conversations", err)
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

func (r *PgConversationStore) AddMessageToConversation(ctx context.Context, id string, message domain.Message) (domain.Conversation, error) {
	const query = `
		INSERT INTO messages (conversation_id, role, content)
		SELECT $1::text, $2::text, $3::text
		WHERE EXISTS (SELECT 1 FROM conversations WHERE id = $1)
	`
	tag, err := r.pool.Exec(ctx, query, id, message.Role, message.Content)
	if err != nil {
		return domain.Conversation{}, pgError("append message", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return r.GetConversation(ctx, id)
}

// Ping verifica conectividad con Postgres.
func (r *PgConversationStore) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// pgError distingue errores del servidor (SQL invalido, constraints) de fallos de conexion.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
