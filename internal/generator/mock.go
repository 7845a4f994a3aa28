package generator

import (
	"context"
	"sync"
)

// Mock is a scripted Generator for tests. If Fn is set it is called for every
// invocation; otherwise Response/Err are returned. Calls are recorded.
type Mock struct {
	mu    sync.Mutex
	calls []MockCall

	Fn       func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Response string
	Err      error
}

// MockCall records the prompts of one invocation.
type MockCall struct {
	SystemPrompt string
	UserPrompt   string
}

// Invoke implements Generator.
func (m *Mock) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, systemPrompt, userPrompt)
	}
	return m.Response, m.Err
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of invocations so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
