package generate

import (
	"context"
	"sync"
)

// Mock is a test generator that records calls and returns configured
// responses in order. The last response repeats once the script runs out.
type Mock struct {
	responses []MockResponse
	calls     []MockCall
	mu        sync.Mutex
	respIndex int
}

// MockResponse is a pre-configured completion or error.
type MockResponse struct {
	Text string
	Err  error
}

// MockCall records one Generate invocation.
type MockCall struct {
	Prompt string
	Opts   Options
}

// NewMock creates a mock generator.
func NewMock(responses ...MockResponse) *Mock {
	return &Mock{responses: responses}
}

// Generate records the call and replays the next configured response.
func (m *Mock) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Prompt: prompt, Opts: opts})

	if len(m.responses) == 0 {
		return "", nil
	}
	resp := m.responses[m.respIndex]
	if m.respIndex < len(m.responses)-1 {
		m.respIndex++
	}
	return resp.Text, resp.Err
}

// Name identifies the mock backend.
func (m *Mock) Name() string { return "mock" }

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
