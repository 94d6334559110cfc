package llm

import (
	"context"
	"sync"

	"chat-relay/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	mu    sync.Mutex
	Calls [][]domain.Message
}

func (m *MockClient) Complete(_ context.Context, transcript []domain.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]domain.Message, len(transcript))
	copy(snapshot, transcript)
	m.Calls = append(m.Calls, snapshot)
	return m.Response, m.Err
}
