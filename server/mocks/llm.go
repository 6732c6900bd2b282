package mocks

import (
	"context"
	"sync"

	"github.com/teilomillet/gollm"
	"github.com/teilomillet/gollm/llm"
	"github.com/teilomillet/gollm/utils"
)

// MockLLM implements gollm.LLM for tests of the gollm backend. Generate calls
// GenerateFunc and records the text of every prompt it receives.
type MockLLM struct {
	GenerateFunc func(context.Context, *gollm.Prompt) (string, error)
	DebugFunc    func(string, ...interface{})
	Provider     string
	Model        string

	mu      sync.Mutex
	prompts []string
	options map[string]interface{}
}

// NewMockLLM creates a MockLLM. A nil generateFunc makes Generate return "".
func NewMockLLM(generateFunc func(context.Context, *gollm.Prompt) (string, error)) *MockLLM {
	return NewMockLLMWithConfig("mock", "mock-model", generateFunc)
}

// NewMockLLMWithConfig creates a MockLLM reporting the given provider and model.
func NewMockLLMWithConfig(provider, model string, generateFunc func(context.Context, *gollm.Prompt) (string, error)) *MockLLM {
	return &MockLLM{
		GenerateFunc: generateFunc,
		Provider:     provider,
		Model:        model,
		options:      make(map[string]interface{}),
	}
}

// Generate records the prompt and delegates to GenerateFunc.
func (m *MockLLM) Generate(ctx context.Context, prompt *gollm.Prompt, opts ...llm.GenerateOption) (string, error) {
	m.mu.Lock()
	if prompt.Input != "" {
		m.prompts = append(m.prompts, prompt.Input)
	}
	for _, msg := range prompt.Messages {
		m.prompts = append(m.prompts, msg.Content)
	}
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Prompts returns the prompt inputs and message contents received so far.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Option returns an option set with SetOption.
func (m *MockLLM) Option(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.options[key]
	return v, ok
}

// Debug forwards to DebugFunc when set.
func (m *MockLLM) Debug(format string, args ...interface{}) {
	if m.DebugFunc != nil {
		m.DebugFunc(format, args...)
	}
}

func (m *MockLLM) GetPromptJSONSchema(opts ...gollm.SchemaOption) ([]byte, error) {
	return []byte(`{}`), nil
}

// GetProvider returns the mock provider name
func (m *MockLLM) GetProvider() string {
	return m.Provider
}

// GetModel returns the mock model name
func (m *MockLLM) GetModel() string {
	return m.Model
}

func (m *MockLLM) GetLogLevel() gollm.LogLevel {
	return gollm.LogLevelInfo
}

// UpdateLogLevel is a no-op.
func (m *MockLLM) UpdateLogLevel(level gollm.LogLevel) {
}

// SetLogLevel is a no-op.
func (m *MockLLM) SetLogLevel(level gollm.LogLevel) {
}

func (m *MockLLM) GetLogger() utils.Logger {
	return nil
}

func (m *MockLLM) NewPrompt(text string) *gollm.Prompt {
	return &gollm.Prompt{
		Messages: []gollm.PromptMessage{
			{Role: "user", Content: text},
		},
	}
}

// SetEndpoint is a no-op.
func (m *MockLLM) SetEndpoint(endpoint string) {
}

// SetOption records the option.
func (m *MockLLM) SetOption(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[key] = value
}

func (m *MockLLM) SupportsJSONSchema() bool {
	return true
}

// GenerateWithSchema ignores the schema.
func (m *MockLLM) GenerateWithSchema(ctx context.Context, prompt *gollm.Prompt, schema interface{}, opts ...llm.GenerateOption) (string, error) {
	return m.Generate(ctx, prompt, opts...)
}

// SetOllamaEndpoint is a no-op.
func (m *MockLLM) SetOllamaEndpoint(endpoint string) error {
	return nil
}

// SetSystemPrompt is a no-op.
func (m *MockLLM) SetSystemPrompt(prompt string, cacheType llm.CacheType) {
}
