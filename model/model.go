package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/mcphost/core"
	"github.com/hupe1980/mcphost/tool"
)

// Request captures the normalized backend input produced by the engine.
// Tools is nil on follow-up calls; a backend must not advertise any tool
// catalog in that case.
type Request struct {
	System   string            `json:"system,omitempty"` // Optional system instruction
	Messages []core.Message    `json:"messages"`         // Ordered conversation buffer
	Tools    []tool.Descriptor `json:"tools,omitempty"`  // Available tools for this call
}

// Block represents a polymorphic segment of a model response. Concrete block
// types implement the unexported isBlock marker enabling a closed set.
type Block interface{ isBlock() }

// TextBlock is a plain text response segment.
type TextBlock struct {
	Text string
}

// isBlock implements the Block interface for TextBlock.
func (TextBlock) isBlock() {}

// ToolUseBlock is a response segment requesting a named tool invocation with
// structured arguments.
type ToolUseBlock struct {
	ID    string         // Provider-assigned call id (may be empty)
	Name  string         // Requested tool name
	Input map[string]any // Structured arguments
}

// isBlock implements the Block interface for ToolUseBlock.
func (ToolUseBlock) isBlock() {}

// Response is the complete backend output for one call: an ordered sequence
// of content blocks, each either text or tool_use.
type Response struct {
	ID         string  `json:"id,omitempty"`
	Blocks     []Block `json:"blocks"`
	StopReason string  `json:"stop_reason,omitempty"` // "end_turn", "tool_use", etc.
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "anthropic", "openai", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Backend is the minimal interface required by the engine to drive
// generation. Calls are synchronous; the bounded turn protocol never issues
// overlapping calls against the same backend.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the backend implementation.
	Info() Info
}

// BackendError wraps a model API failure. It is the only error class that
// aborts a turn; the engine propagates it unretried to the caller.
type BackendError struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend call failed: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError creates a BackendError for the given provider.
func NewBackendError(provider string, err error) *BackendError {
	return &BackendError{Provider: provider, Err: err}
}

// MockBackend is a lightweight in-memory Backend useful for tests & examples.
// Responses are played back in enqueue order; every received request is
// recorded for later inspection.
type MockBackend struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	requests  []Request
}

// NewMockBackend constructs an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Enqueue appends a scripted response to the playback queue.
func (m *MockBackend) Enqueue(resp *Response) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return m
}

// EnqueueText is shorthand for a single-text-block response.
func (m *MockBackend) EnqueueText(text string) *MockBackend {
	return m.Enqueue(&Response{Blocks: []Block{TextBlock{Text: text}}, StopReason: "end_turn"})
}

// FailWith makes every subsequent Generate call return err.
func (m *MockBackend) FailWith(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Requests returns a copy of all requests received so far.
func (m *MockBackend) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Backend; pops the next scripted response.
func (m *MockBackend) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewBackendError("mock", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, NewBackendError("mock", m.err)
	}
	if len(m.responses) == 0 {
		return nil, NewBackendError("mock", fmt.Errorf("no scripted response for request %d", len(m.requests)))
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Info implements the Backend interface.
func (m *MockBackend) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}
