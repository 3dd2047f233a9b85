package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/log"
)

// MockHistory is an in-memory implementation of the convo.History interface
// used for testing and development.
type MockHistory struct {
	// Messages indexed by conversation ID, in append order
	messages map[string][]convo.Message

	// MessagesErr, when set, is returned by Messages to simulate failures
	MessagesErr error

	// Mutex for safe concurrent access
	mutex sync.RWMutex
}

// NewMockHistory creates a new instance of the MockHistory.
func NewMockHistory() *MockHistory {
	history := &MockHistory{
		messages: make(map[string][]convo.Message),
	}

	log.Debug("Initialized conversation mock history adapter")
	return history
}

// Append implements the convo.History interface.
func (m *MockHistory) Append(ctx context.Context, message convo.Message) (string, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)

	return message.ID, nil
}

// Messages implements the convo.History interface.
func (m *MockHistory) Messages(ctx context.Context, conversationID string) ([]convo.Message, error) {
	if m.MessagesErr != nil {
		return nil, m.MessagesErr
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stored := m.messages[conversationID]
	results := make([]convo.Message, len(stored))
	copy(results, stored)

	return results, nil
}
