package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/mcphost/core"
	"github.com/hupe1980/mcphost/internal/testutil"
	"github.com/hupe1980/mcphost/model"
	"github.com/hupe1980/mcphost/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(backend model.Backend, providers ...tool.Provider) *Engine {
	return New(backend, tool.Build(providers))
}

func TestTextOnlyTurn(t *testing.T) {
	backend := model.NewMockBackend().Enqueue(testutil.TextResponse("Hello", "there"))
	provider := testutil.NewFakeProvider("osinfo", "get_os_name")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "hi", nil)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, core.RoleAssistant, out[0].Role)
	assert.Equal(t, "Hello", out[0].Content)
	assert.Equal(t, "there", out[1].Content)

	// No tool was invoked and only one model call was made.
	assert.Empty(t, provider.Calls())
	assert.Len(t, backend.Requests(), 1)
}

func TestSingleToolUseTurnOrdering(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_os_name", map[string]any{}, "Let me check.")).
		Enqueue(testutil.TextResponse("You are running Linux."))
	provider := testutil.NewFakeProvider("osinfo", "get_os_name").WithResult("get_os_name", "Linux")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "what os?", nil)
	require.NoError(t, err)

	// Leading text -> raw result -> follow-up text, strictly in that order.
	require.Len(t, out, 3)
	assert.Equal(t, "Let me check.", out[0].Content)
	assert.Nil(t, out[0].Metadata)

	assert.Equal(t, "```\nLinux\n```", out[1].Content)
	require.NotNil(t, out[1].Metadata)
	assert.Equal(t, "Raw Output", out[1].Metadata.Title)

	assert.Equal(t, "You are running Linux.", out[2].Content)
	assert.Nil(t, out[2].Metadata)

	require.Len(t, provider.Calls(), 1)
	assert.Equal(t, "get_os_name", provider.Calls()[0].Tool)
}

func TestFollowUpCallCarriesResultWithoutTools(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_os_name", map[string]any{})).
		Enqueue(testutil.TextResponse("Linux it is."))
	provider := testutil.NewFakeProvider("osinfo", "get_os_name").WithResult("get_os_name", "Linux")
	e := newEngine(backend, provider)

	_, err := e.ProcessTurn(context.Background(), "what os?", nil)
	require.NoError(t, err)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)

	// Model-Call-1 carries the catalog; the follow-up must not.
	assert.NotEmpty(t, reqs[0].Tools)
	assert.Empty(t, reqs[1].Tools)

	// The raw result is appended to the buffer as a synthetic user message.
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, core.RoleUser, last.Role)
	assert.Equal(t, "Tool result for get_os_name:\nLinux", last.Content)
}

func TestUnresolvedToolProducesVisibleError(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_weather", map[string]any{"city": "Berlin"}))
	provider := testutil.NewFakeProvider("osinfo", "get_os_name")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "weather?", nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, core.RoleAssistant, out[0].Role)
	assert.True(t, strings.HasPrefix(out[0].Content, "Error:"))
	assert.Contains(t, out[0].Content, "get_weather")

	// No session is invoked and no follow-up call is made.
	assert.Empty(t, provider.Calls())
	assert.Len(t, backend.Requests(), 1)
}

func TestToolExecutionFailureDoesNotAbortTurn(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(&model.Response{Blocks: []model.Block{
			model.ToolUseBlock{Name: "broken_tool", Input: map[string]any{}},
			model.ToolUseBlock{Name: "get_os_name", Input: map[string]any{}},
		}}).
		Enqueue(testutil.TextResponse("Recovered."))
	provider := testutil.NewFakeProvider("osinfo", "broken_tool", "get_os_name").
		WithError("broken_tool", tool.NewExecutionError("broken_tool", "osinfo", "subprocess died", nil)).
		WithResult("get_os_name", "Linux")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "go", nil)
	require.NoError(t, err)

	// Visible error for the failed block, then the remaining block proceeds.
	require.Len(t, out, 3)
	assert.Contains(t, out[0].Content, "subprocess died")
	assert.Equal(t, "```\nLinux\n```", out[1].Content)
	assert.Equal(t, "Recovered.", out[2].Content)

	require.Len(t, provider.Calls(), 2)
}

func TestBackendFailureAbortsTurn(t *testing.T) {
	cause := errors.New("api unreachable")
	backend := model.NewMockBackend().FailWith(cause)
	e := newEngine(backend, testutil.NewFakeProvider("osinfo", "get_os_name"))

	out, err := e.ProcessTurn(context.Background(), "hi", nil)
	assert.Nil(t, out)

	var be *model.BackendError
	require.ErrorAs(t, err, &be)
	assert.True(t, errors.Is(err, cause))
}

func TestFollowUpBackendFailureAbortsTurn(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_os_name", map[string]any{}))
	// Queue exhausted: the follow-up call fails.
	provider := testutil.NewFakeProvider("osinfo", "get_os_name").WithResult("get_os_name", "Linux")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "what os?", nil)
	assert.Nil(t, out)

	var be *model.BackendError
	require.ErrorAs(t, err, &be)
}

func TestHistoryNotMutated(t *testing.T) {
	backend := model.NewMockBackend().Enqueue(testutil.TextResponse("ok"))
	e := newEngine(backend, testutil.NewFakeProvider("osinfo"))

	history := []core.Message{
		core.NewUserMessage("earlier question"),
		core.NewAssistantMessage("earlier answer"),
	}
	snapshot := make([]core.Message, len(history))
	copy(snapshot, history)

	out, err := e.ProcessTurn(context.Background(), "next", history)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, snapshot, history)

	// The request buffer sees history plus the new user message.
	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 3)
	assert.Equal(t, "next", reqs[0].Messages[2].Content)
}

func TestFollowUpWithoutTextBlockAddsNothing(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_os_name", map[string]any{})).
		Enqueue(&model.Response{StopReason: "end_turn"})
	provider := testutil.NewFakeProvider("osinfo", "get_os_name").WithResult("get_os_name", "Linux")
	e := newEngine(backend, provider)

	out, err := e.ProcessTurn(context.Background(), "what os?", nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "```\nLinux\n```", out[0].Content)
}

func TestSystemPromptAttachedToEveryCall(t *testing.T) {
	backend := model.NewMockBackend().
		Enqueue(testutil.ToolUseResponse("get_os_name", map[string]any{})).
		Enqueue(testutil.TextResponse("done"))
	provider := testutil.NewFakeProvider("osinfo", "get_os_name").WithResult("get_os_name", "Linux")
	e := New(backend, tool.Build([]tool.Provider{provider}), func(o *Options) {
		o.SystemPrompt = "be brief"
	})

	_, err := e.ProcessTurn(context.Background(), "what os?", nil)
	require.NoError(t, err)

	for _, req := range backend.Requests() {
		assert.Equal(t, "be brief", req.System)
	}
}
