package services

import (
	"context"
	"sync"

	"github.com/eduquest/adventure-engine/pkg/chat"
)

// MockLLM is a mock implementation of LLMService and ImageService for
// testing.
type MockLLM struct {
	InitModelFunc       func(ctx context.Context, modelName string) error
	GenerateContentFunc func(ctx context.Context, messages []chat.Message) (string, error)
	GenerateImageFunc   func(ctx context.Context, prompt string) (string, error)

	// Track calls for testing
	InitModelCalls       []string
	GenerateContentCalls [][]chat.Message
	GenerateImageCalls   []string

	mu sync.Mutex // protects all fields above
}

var (
	_ LLMService   = (*MockLLM)(nil)
	_ ImageService = (*MockLLM)(nil)
)

// NewMockLLM creates a new mock LLM service
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []chat.Message) (string, error) {
	m.mu.Lock()
	m.GenerateContentCalls = append(m.GenerateContentCalls, messages)
	fn := m.GenerateContentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return "{}", nil
}

func (m *MockLLM) GenerateImage(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.GenerateImageCalls = append(m.GenerateImageCalls, prompt)
	fn := m.GenerateImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "https://images.example.com/mock.png", nil
}

// SetResponses queues fixed responses returned in order; the last one
// repeats once the queue drains.
func (m *MockLLM) SetResponses(responses ...string) {
	var idx int
	var qmu sync.Mutex
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateContentFunc = func(ctx context.Context, messages []chat.Message) (string, error) {
		qmu.Lock()
		defer qmu.Unlock()
		resp := responses[idx]
		if idx < len(responses)-1 {
			idx++
		}
		return resp, nil
	}
}

// SetError makes every generation call fail with err.
func (m *MockLLM) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateContentFunc = func(ctx context.Context, messages []chat.Message) (string, error) {
		return "", err
	}
	m.GenerateImageFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", err
	}
}

// CallCount returns how many content generations were requested.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateContentCalls)
}

// Reset clears all call tracking
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = nil
	m.GenerateContentCalls = nil
	m.GenerateImageCalls = nil
}
