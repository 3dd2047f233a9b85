package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/reasoning"
)

// Call represents a recorded method call on the mock engine.
type Call struct {
	// Method is the name of the method that was called.
	Method string

	// Args contains the arguments passed to the method.
	Args []interface{}
}

// MockEngine implements the reasoning.Engine interface with canned responses.
type MockEngine struct {
	// cannedResponses maps prompts to predetermined responses
	cannedResponses map[string]string

	// defaultResponse is returned when no matching canned response is found
	defaultResponse string

	// cannedEmbeddings maps text to predetermined embeddings
	cannedEmbeddings map[string][]float32

	// deterministicEmbeddings derives a stable pseudo-embedding from the
	// input text when no canned embedding matches, so identical texts
	// always map to identical vectors
	deterministicEmbeddings bool

	// defaultEmbedding is returned when no matching canned embedding is found
	defaultEmbedding []float32

	// exactMatch determines if prompt matching is exact or uses Contains
	exactMatch bool

	// shouldError indicates if the engine should return errors
	shouldError bool

	// mutex protects the maps from concurrent access
	mutex sync.RWMutex

	// callHistory records all calls made to the engine
	callHistory []Call
}

// MockOption is a function that configures a MockEngine.
type MockOption func(*MockEngine)

// WithDefaultResponse sets the default response for the mock engine.
func WithDefaultResponse(resp string) MockOption {
	return func(m *MockEngine) {
		m.defaultResponse = resp
	}
}

// WithDefaultEmbedding sets the default embedding for the mock engine.
func WithDefaultEmbedding(embedding []float32) MockOption {
	return func(m *MockEngine) {
		m.defaultEmbedding = embedding
	}
}

// WithDeterministicEmbeddings makes the engine derive a stable vector from
// each input text instead of returning the default embedding.
func WithDeterministicEmbeddings() MockOption {
	return func(m *MockEngine) {
		m.deterministicEmbeddings = true
	}
}

// WithExactMatch configures whether the mock engine uses exact matching.
func WithExactMatch(exact bool) MockOption {
	return func(m *MockEngine) {
		m.exactMatch = exact
	}
}

// WithShouldError configures whether the mock engine returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockEngine) {
		m.shouldError = shouldErr
	}
}

// NewMockEngine creates a new MockEngine with the given options.
func NewMockEngine(opts ...MockOption) *MockEngine {
	m := &MockEngine{
		cannedResponses:  make(map[string]string),
		defaultResponse:  "This is a mock response",
		cannedEmbeddings: make(map[string][]float32),
		defaultEmbedding: []float32{0.0, 0.0, 0.0},
		exactMatch:       false, // Default to substring matching
		callHistory:      make([]Call, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AddCannedResponse registers a response for prompts matching the key.
func (m *MockEngine) AddCannedResponse(prompt, response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.cannedResponses[prompt] = response
}

// AddCannedEmbedding registers an embedding for an exact text.
func (m *MockEngine) AddCannedEmbedding(text string, embedding []float32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.cannedEmbeddings[text] = embedding
}

// SetShouldError toggles error behavior after construction.
func (m *MockEngine) SetShouldError(shouldErr bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.shouldError = shouldErr
}

// CallHistory returns a copy of all recorded calls.
func (m *MockEngine) CallHistory() []Call {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	history := make([]Call, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

func (m *MockEngine) record(method string, args ...interface{}) {
	m.callHistory = append(m.callHistory, Call{Method: method, Args: args})
}

// ProcessMessages implements the reasoning.Engine interface.
func (m *MockEngine) ProcessMessages(ctx context.Context, messages []reasoning.Message, opts ...reasoning.Option) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.record("ProcessMessages", messages)

	if m.shouldError {
		return "", errors.Wrap(errors.ErrProvider, "mock engine error")
	}

	// Match against the last message, which carries the actual prompt.
	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}

	return m.responseFor(prompt), nil
}

// Process implements the reasoning.Engine interface.
func (m *MockEngine) Process(ctx context.Context, prompt string, opts ...reasoning.Option) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.record("Process", prompt)

	if m.shouldError {
		return "", errors.Wrap(errors.ErrProvider, "mock engine error")
	}

	return m.responseFor(prompt), nil
}

// GenerateEmbeddings implements the reasoning.Engine interface.
func (m *MockEngine) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.record("GenerateEmbeddings", texts)

	if m.shouldError {
		return nil, errors.Wrap(errors.ErrProvider, "mock engine error")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if canned, ok := m.cannedEmbeddings[text]; ok {
			embeddings[i] = canned
			continue
		}
		if m.deterministicEmbeddings {
			embeddings[i] = deriveEmbedding(text)
			continue
		}
		embeddings[i] = m.defaultEmbedding
	}

	return embeddings, nil
}

func (m *MockEngine) responseFor(prompt string) string {
	if m.exactMatch {
		if resp, ok := m.cannedResponses[prompt]; ok {
			return resp
		}
		return m.defaultResponse
	}

	for key, resp := range m.cannedResponses {
		if strings.Contains(prompt, key) {
			return resp
		}
	}
	return m.defaultResponse
}

// deriveEmbedding hashes the text into a small fixed-size vector. Identical
// texts produce identical vectors, distinct texts almost always diverge,
// which is enough for similarity round-trips in tests.
func deriveEmbedding(text string) []float32 {
	const dimensions = 8

	vector := make([]float32, dimensions)
	for i := 0; i < dimensions; i++ {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		vector[i] = float32(h.Sum32()%1000)/1000.0 + 0.001
	}
	return vector
}
