package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestMemoryConversationLocker(t *testing.T) {
	t.Run("same conversation blocks until unlock", func(t *testing.T) {
		l := NewMemoryConversationLocker()
		unlock, err := l.Lock(context.Background(), "c1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		acquired := make(chan struct{})
		go func() {
			unlock2, err := l.Lock(context.Background(), "c1")
			if err != nil {
				t.Errorf("second lock: %v", err)
				return
			}
			close(acquired)
			unlock2()
		}()

		select {
		case <-acquired:
			t.Fatalf("expected second lock to wait")
		case <-time.After(30 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatalf("expected second lock after unlock")
		}
	})

	t.Run("different conversations do not block", func(t *testing.T) {
		l := NewMemoryConversationLocker()
		unlockA, err := l.Lock(context.Background(), "a")
		if err != nil {
			t.Fatalf("lock a: %v", err)
		}
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		unlockB, err := l.Lock(ctx, "b")
		if err != nil {
			t.Fatalf("expected b to lock independently, got %v", err)
		}
		unlockB()
	})

	t.Run("context cancel while waiting", func(t *testing.T) {
		l := NewMemoryConversationLocker().(*memoryConversationLocker)
		unlock, _ := l.Lock(context.Background(), "c1")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := l.Lock(ctx, "c1"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}

		unlock()
		unlock()
		l.mu.Lock()
		defer l.mu.Unlock()
		if len(l.locks) != 0 {
			t.Fatalf("expected lock entries to be released, got %d", len(l.locks))
		}
	})
}

type mockRedisLockClient struct {
	setResults []bool
	setErr     error
	setCalls   int
	lastKey    string
	lastValue  interface{}
	lastTTL    time.Duration

	evalScript string
	evalKeys   []string
	evalArgs   []interface{}
	evalErr    error
}

func (m *mockRedisLockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.lastKey = key
	m.lastValue = value
	m.lastTTL = expiration
	cmd := redis.NewBoolCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	ok := true
	if m.setCalls < len(m.setResults) {
		ok = m.setResults[m.setCalls]
	}
	m.setCalls++
	cmd.SetVal(ok)
	return cmd
}

func (m *mockRedisLockClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.evalScript = script
	m.evalKeys = keys
	m.evalArgs = args
	cmd := redis.NewCmd(ctx)
	if m.evalErr != nil {
		cmd.SetErr(m.evalErr)
		return cmd
	}
	cmd.SetVal(int64(1))
	return cmd
}

func newTestRedisLocker(client redisLockClient) *redisConversationLocker {
	return &redisConversationLocker{
		client:     client,
		ttl:        time.Minute,
		retryDelay: time.Millisecond,
		prefix:     "chat:lock:",
		logger:     zap.NewNop(),
	}
}

func TestRedisConversationLocker(t *testing.T) {
	t.Run("nil client returns nil locker", func(t *testing.T) {
		if l := NewRedisConversationLocker(nil, time.Minute, nil); l != nil {
			t.Fatalf("expected nil locker")
		}
	})

	t.Run("acquire and release with token", func(t *testing.T) {
		mock := &mockRedisLockClient{}
		l := newTestRedisLocker(mock)

		unlock, err := l.Lock(context.Background(), " c1 ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if mock.lastKey != "chat:lock:c1" || mock.lastTTL != time.Minute {
			t.Fatalf("unexpected SetNX key/ttl: %q %s", mock.lastKey, mock.lastTTL)
		}
		token, _ := mock.lastValue.(string)
		if token == "" {
			t.Fatalf("expected lock token")
		}

		unlock()
		if mock.evalScript != redisUnlockScript {
			t.Fatalf("expected unlock script")
		}
		if len(mock.evalKeys) != 1 || mock.evalKeys[0] != "chat:lock:c1" {
			t.Fatalf("unexpected unlock keys %+v", mock.evalKeys)
		}
		if len(mock.evalArgs) != 1 || mock.evalArgs[0] != token {
			t.Fatalf("expected unlock with same token, got %+v", mock.evalArgs)
		}
	})

	t.Run("retries while held", func(t *testing.T) {
		mock := &mockRedisLockClient{setResults: []bool{false, false, true}}
		l := newTestRedisLocker(mock)

		unlock, err := l.Lock(context.Background(), "c1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer unlock()
		if mock.setCalls != 3 {
			t.Fatalf("expected 3 SetNX attempts, got %d", mock.setCalls)
		}
	})

	t.Run("context cancel while held", func(t *testing.T) {
		mock := &mockRedisLockClient{setResults: make([]bool, 1000)}
		l := newTestRedisLocker(mock)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := l.Lock(ctx, "c1"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		mock := &mockRedisLockClient{setErr: errors.New("redis down")}
		l := newTestRedisLocker(mock)

		unlock, err := l.Lock(context.Background(), "c1")
		if err != nil {
			t.Fatalf("expected fail-open, got %v", err)
		}
		unlock()
		if mock.evalScript != "" {
			t.Fatalf("expected no unlock call when lock was never taken")
		}
	})
}
