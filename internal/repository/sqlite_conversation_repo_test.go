package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/db"
	"chat-relay/internal/domain"
)

func newTestSQLiteStore(t *testing.T, path string) *SQLiteConversationStore {
	t.Helper()
	ctx := context.Background()
	handle, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })
	require.NoError(t, db.MigrateSQLite(ctx, handle))
	return NewSQLiteConversationStore(handle)
}

func TestSQLiteConversationStore(t *testing.T) {
	runConversationStoreSuite(t, func(t *testing.T) ConversationStore {
		return newTestSQLiteStore(t, filepath.Join(t.TempDir(), "chat.db"))
	})
}

func TestSQLiteConversationStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	first := newTestSQLiteStore(t, path)
	convo, err := first.CreateConversation(ctx)
	require.NoError(t, err)
	_, err = first.AddMessageToConversation(ctx, convo.ID, domain.Message{Role: domain.RoleUser, Content: "persisted"})
	require.NoError(t, err)
	require.NoError(t, first.db.Close())

	second := newTestSQLiteStore(t, path)
	fetched, err := second.GetConversation(ctx, convo.ID)
	require.NoError(t, err)
	require.Equal(t, []domain.Message{{Role: domain.RoleUser, Content: "persisted"}}, fetched.Messages)
}

func TestSQLiteConversationStore_ReadOnlyFileIsUnavailable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")
	writable := newTestSQLiteStore(t, path)
	convo, err := writable.CreateConversation(ctx)
	require.NoError(t, err)

	handle, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })
	readOnly := NewSQLiteConversationStore(handle)

	_, err = readOnly.CreateConversation(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = readOnly.AddMessageToConversation(ctx, convo.ID, domain.Message{Role: domain.RoleUser, Content: "hola"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	// Las lecturas siguen funcionando.
	_, err = readOnly.GetConversation(ctx, convo.ID)
	assert.NoError(t, err)
}

func TestStoreErrors_ContextErrorsAreNotUnavailable(t *testing.T) {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		for name, wrap := range map[string]func(string, error) error{"sqlite": sqliteError, "postgres": pgError} {
			err := wrap("get conversation", ctxErr)
			assert.ErrorIs(t, err, ctxErr, name)
			assert.False(t, errors.Is(err, ErrStorageUnavailable), "%s: %v", name, err)
		}
	}

	assert.ErrorIs(t, pgError("get conversation", errors.New("dial tcp: connection refused")), ErrStorageUnavailable)
	assert.ErrorIs(t, sqliteError("get conversation", sql.ErrConnDone), ErrStorageUnavailable)
}
