package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/mcphost/model"
	"github.com/hupe1980/mcphost/tool"
)

// RecordedCall captures one CallTool invocation received by a FakeProvider.
type RecordedCall struct {
	Tool string
	Args map[string]any
}

// FakeProvider is an in-memory tool.Provider with canned results per tool
// name and full call recording. Safe for concurrent use.
type FakeProvider struct {
	ProviderName string
	Catalog      []tool.Descriptor

	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	calls   []RecordedCall
}

// NewFakeProvider creates a provider advertising the given tool names with
// generic object schemas.
func NewFakeProvider(name string, toolNames ...string) *FakeProvider {
	p := &FakeProvider{
		ProviderName: name,
		results:      map[string]string{},
		errs:         map[string]error{},
	}
	for _, tn := range toolNames {
		p.Catalog = append(p.Catalog, tool.Descriptor{
			Name:        tn,
			Description: tn + " (test tool)",
			InputSchema: map[string]any{"type": "object"},
		})
	}
	return p
}

// WithResult scripts a successful result for the named tool.
func (p *FakeProvider) WithResult(toolName, result string) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[toolName] = result
	return p
}

// WithError scripts a failure for the named tool.
func (p *FakeProvider) WithError(toolName string, err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[toolName] = err
	return p
}

// Name implements tool.Provider.
func (p *FakeProvider) Name() string { return p.ProviderName }

// Tools implements tool.Provider.
func (p *FakeProvider) Tools() []tool.Descriptor { return p.Catalog }

// CallTool implements tool.Provider using the scripted results.
func (p *FakeProvider) CallTool(_ context.Context, name string, args map[string]any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, RecordedCall{Tool: name, Args: args})

	if err, ok := p.errs[name]; ok {
		return "", err
	}
	if res, ok := p.results[name]; ok {
		return res, nil
	}
	return "", tool.NewExecutionError(name, p.ProviderName, "no scripted result", nil)
}

// Calls returns a copy of all recorded invocations.
func (p *FakeProvider) Calls() []RecordedCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// TextResponse builds a backend response consisting of text blocks in order.
func TextResponse(texts ...string) *model.Response {
	resp := &model.Response{StopReason: "end_turn"}
	for _, t := range texts {
		resp.Blocks = append(resp.Blocks, model.TextBlock{Text: t})
	}
	return resp
}

// ToolUseResponse builds a backend response requesting a single tool
// invocation, optionally preceded by text blocks.
func ToolUseResponse(toolName string, input map[string]any, leadingTexts ...string) *model.Response {
	resp := &model.Response{StopReason: "tool_use"}
	for _, t := range leadingTexts {
		resp.Blocks = append(resp.Blocks, model.TextBlock{Text: t})
	}
	if input == nil {
		input = map[string]any{}
	}
	resp.Blocks = append(resp.Blocks, model.ToolUseBlock{ID: "call_" + toolName, Name: toolName, Input: input})
	return resp
}
