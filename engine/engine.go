package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/mcphost/core"
	"github.com/hupe1980/mcphost/logging"
	"github.com/hupe1980/mcphost/model"
	"github.com/hupe1980/mcphost/tool"
)

// Options configures an Engine instance.
type Options struct {
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// SystemPrompt is an optional instruction attached to every model call.
	SystemPrompt string
}

// Engine drives the bounded model/tool-call protocol for one turn at a time:
// it formats conversation history and the tool catalog for the backend,
// interprets the response block by block, dispatches tool invocations through
// the registry and folds results into the turn output.
//
// The protocol is deliberately capped: each tool_use block triggers exactly
// one follow-up model call, issued without the tool catalog, so the follow-up
// cannot request further tools. A model that wants to chain two tool calls
// sequentially cannot do so within a single user turn.
type Engine struct {
	backend  model.Backend
	registry *tool.Registry
	opts     Options
}

// New creates an Engine over the given backend and registry.
func New(backend model.Backend, registry *tool.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{backend: backend, registry: registry, opts: opts}
}

// ProcessTurn processes exactly one user input against the stored history and
// returns the new messages it produced, in generation order. History is never
// mutated; the caller appends the user message and the returned addendum.
//
// Per-block tool failures (unresolved names, provider errors) are recovered
// locally and surfaced as readable error content. Backend failures are not
// retried and abort the turn.
func (e *Engine) ProcessTurn(ctx context.Context, userText string, history []core.Message) ([]core.Message, error) {
	turnID := core.NewID()
	buffer := composeBuffer(history, userText)
	descriptors := e.registry.Descriptors()

	e.opts.Logger.Debug("engine.turn.start",
		"turn_id", turnID,
		"history_len", len(history),
		"tool_count", len(descriptors),
	)

	start := time.Now()
	resp, err := e.backend.Generate(ctx, model.Request{
		System:   e.opts.SystemPrompt,
		Messages: buffer,
		Tools:    descriptors,
	})
	if err != nil {
		e.opts.Logger.Error("engine.model.error", "turn_id", turnID, "error", err.Error())
		return nil, err
	}

	var out []core.Message
	for _, block := range resp.Blocks {
		switch blk := block.(type) {
		case model.TextBlock:
			out = append(out, core.NewAssistantMessage(blk.Text))
		case model.ToolUseBlock:
			msgs, err := e.handleToolUse(ctx, turnID, blk, &buffer)
			if err != nil {
				return nil, err
			}
			out = append(out, msgs...)
		}
	}

	e.opts.Logger.Info("engine.turn.complete",
		"turn_id", turnID,
		"messages", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// handleToolUse resolves and executes one tool_use block, then performs the
// single follow-up model call with the raw result appended to the buffer.
// Resolution and execution failures are converted into visible assistant
// messages; only a backend failure is returned as an error.
func (e *Engine) handleToolUse(ctx context.Context, turnID string, blk model.ToolUseBlock, buffer *[]core.Message) ([]core.Message, error) {
	provider, ok := e.registry.Resolve(blk.Name)
	if !ok {
		resErr := tool.NewResolutionError(blk.Name)
		e.opts.Logger.Warn("engine.tool.unresolved", "turn_id", turnID, "tool", blk.Name)
		return []core.Message{core.NewAssistantMessage("Error: " + resErr.Error())}, nil
	}

	start := time.Now()
	result, err := provider.CallTool(ctx, blk.Name, blk.Input)
	if err != nil {
		e.opts.Logger.Error("engine.tool.error",
			"turn_id", turnID,
			"tool", blk.Name,
			"server", provider.Name(),
			"error", err.Error(),
		)
		return []core.Message{core.NewAssistantMessage("Error: " + err.Error())}, nil
	}

	e.opts.Logger.Info("engine.tool.executed",
		"turn_id", turnID,
		"tool", blk.Name,
		"server", provider.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	msgs := []core.Message{core.NewRawResultMessage(blk.Name, result)}

	// Feed the raw result back as a synthetic user message and issue the one
	// follow-up call. The catalog is not re-attached: the follow-up cannot
	// request further tools.
	*buffer = append(*buffer, core.NewUserMessage(fmt.Sprintf("Tool result for %s:\n%s", blk.Name, result)))

	follow, err := e.backend.Generate(ctx, model.Request{
		System:   e.opts.SystemPrompt,
		Messages: *buffer,
	})
	if err != nil {
		e.opts.Logger.Error("engine.model.error", "turn_id", turnID, "error", err.Error())
		return nil, err
	}

	if len(follow.Blocks) > 0 {
		if tb, ok := follow.Blocks[0].(model.TextBlock); ok {
			msgs = append(msgs, core.NewAssistantMessage(tb.Text))
		}
	}

	return msgs, nil
}

// composeBuffer copies the valid-role portion of history and appends the new
// user message. The returned slice is the request buffer for this turn.
func composeBuffer(history []core.Message, userText string) []core.Message {
	buffer := make([]core.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role.Valid() {
			buffer = append(buffer, m)
		}
	}
	return append(buffer, core.NewUserMessage(userText))
}
