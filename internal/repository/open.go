package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chat-relay/internal/config"
	"chat-relay/internal/db"
)

// Backend agrupa el store elegido por configuracion con sus recursos de ciclo de vida.
type Backend struct {
	Name  string
	Store ConversationStore
	ping  func(ctx context.Context) error
	close func()
}

// Ping verifica que el medio de persistencia responda.
func (b *Backend) Ping(ctx context.Context) error {
	if b == nil || b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close libera el pool o el handle abierto al arrancar.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// Open construye el backend indicado por cfg.StoreBackend y aplica las migraciones pendientes.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		logger.Info("using in-memory conversation store")
		return &Backend{Name: config.BackendMemory, Store: NewMemoryConversationStore()}, nil

	case config.BackendSQLite:
		handle, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if err := db.MigrateSQLite(ctx, handle); err != nil {
			handle.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("using sqlite conversation store", zap.String("path", cfg.SQLitePath))
		store := NewSQLiteConversationStore(handle)
		return &Backend{
			Name:  config.BackendSQLite,
			Store: store,
			ping:  store.Ping,
			close: func() { handle.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if err := db.Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("using postgres conversation store")
		store := NewPgConversationStore(pool)
		return &Backend{
			Name:  config.BackendPostgres,
			Store: store,
			ping:  store.Ping,
			close: pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
