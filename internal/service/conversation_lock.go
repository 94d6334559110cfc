package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConversationLocker serializa los turnos de chat sobre una misma conversacion.
// Lock bloquea hasta obtener el lock o hasta que ctx termine; el func devuelto lo libera.
type ConversationLocker interface {
	Lock(ctx context.Context, conversationID string) (func(), error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

type memoryConversationLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewMemoryConversationLocker sirve para un unico proceso.
func NewMemoryConversationLocker() ConversationLocker {
	return &memoryConversationLocker{
		locks: make(map[string]*lockEntry),
	}
}

func (l *memoryConversationLocker) Lock(ctx context.Context, conversationID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[conversationID]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(conversationID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(conversationID, entry)
		})
	}, nil
}

func (l *memoryConversationLocker) release(conversationID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, conversationID)
	}
}

const redisUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisConversationLocker struct {
	client     redisLockClient
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
	logger     *zap.Logger
}

// NewRedisConversationLocker comparte el lock entre replicas. Ante errores de Redis
// el turno continua sin lock (fail-open) y se registra un warning.
func NewRedisConversationLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) ConversationLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisConversationLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 50 * time.Millisecond,
		prefix:     "chat:lock:",
		logger:     logger,
	}
}

func (l *redisConversationLocker) Lock(ctx context.Context, conversationID string) (func(), error) {
	key := l.prefix + strings.TrimSpace(conversationID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.logger.Warn("redis lock failed, continuing unlocked", zap.String("conversation_id", conversationID), zap.Error(err))
			return func() {}, nil
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := l.client.Eval(releaseCtx, redisUnlockScript, []string{key}, token).Err(); err != nil {
				l.logger.Warn("redis unlock failed", zap.String("conversation_id", conversationID), zap.Error(err))
			}
		})
	}, nil
}
