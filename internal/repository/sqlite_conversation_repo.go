package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"chat-relay/internal/domain"
)

// SQLiteConversationStore implementa ConversationStore sobre un archivo SQLite.
type SQLiteConversationStore struct {
	db *sql.DB
}

func NewSQLiteConversationStore(db *sql.DB) *SQLiteConversationStore {
	return &SQLiteConversationStore{db: db}
}

func (r *SQLiteConversationStore) CreateConversation(ctx context.Context) (domain.Conversation, error) {
	const query = `
		INSERT INTO conversations (id, title)
		VALUES (?, ?)
	`
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, query, id, id); err != nil {
		return domain.Conversation{}, sqliteError("create conversation", err)
	}
	return domain.Conversation{ID: id, Title: id, Messages: []domain.Message{}}, nil
}

func (r *SQLiteConversationStore) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	const convoQuery = `
		SELECT id, title
		FROM conversations
		WHERE id = ?
	`
	const messagesQuery = `
		SELECT role, content
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC
	`

	var convo domain.Conversation
	if err := sqlscan.Get(ctx, r.db, &convo, convoQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return domain.Conversation{}, sqliteError("get conversation", err)
	}

	if err := sqlscan.Select(ctx, r.db, &convo.Messages, messagesQuery, id); err != nil {
		return domain.Conversation{}, sqliteError("list messages", err)
	}
	if convo.Messages == nil {
		convo.Messages = []domain.Message{}
	}
	return convo, nil
}

func (r *SQLiteConversationStore) GetConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT id, title
		FROM conversations
		ORDER BY created_at ASC, rowid ASC
	`
	var summaries []domain.ConversationSummary
	if err := sqlscan.Select(ctx, r.db, &summaries, query); err != nil {
		return nil, sqliteError("list conversations", err)
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

func (r *SQLiteConversationStore) AddMessageToConversation(ctx context.Context, id string, message domain.Message) (domain.Conversation, error) {
	// El INSERT ... SELECT no inserta nada si la conversacion no existe.
	const query = `
		INSERT INTO messages (conversation_id, role, content)
		SELECT ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM conversations WHERE id = ?)
	`
	res, err := r.db.ExecContext(ctx, query, id, message.Role, message.Content, id)
	if err != nil {
		return domain.Conversation{}, sqliteError("append message", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Conversation{}, sqliteError("append message", err)
	}
	if affected == 0 {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return r.GetConversation(ctx, id)
}

// Ping verifica que el archivo siga accesible.
func (r *SQLiteConversationStore) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// sqliteError marca como no disponible todo fallo del archivo o del lock; SQL invalido y
// constraints quedan como error interno.
func sqliteError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_IOERR,
			sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_FULL, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
			return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
