// Package mcphost provides a high-level façade over the multi-session tool
// orchestrator: it launches a fixed set of independent tool-provider sessions
// over a subprocess transport, builds a unified tool registry across them and
// drives a bounded model/tool-call protocol per user turn. Most applications
// interact with this package by:
//  1. Creating a Host via New() with a model backend and the server launch specs
//  2. Calling StartAll() once to connect every session (failures are isolated
//     per session and reported in the returned status)
//  3. Calling HandleTurn() per user input and appending the returned messages
//     to their conversation history
//
// The façade delegates the turn protocol to engine.Engine while keeping setup
// and usage ergonomics concise. Presentation (TUI, web) stays outside; the
// host only ever returns message addenda.
package mcphost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/mcphost/core"
	"github.com/hupe1980/mcphost/engine"
	"github.com/hupe1980/mcphost/logging"
	"github.com/hupe1980/mcphost/model"
	"github.com/hupe1980/mcphost/session"
	"github.com/hupe1980/mcphost/tool"
)

// ServerSpec pairs a session identity with the launch description of its
// tool-server subprocess. The set of servers is fixed at host construction.
type ServerSpec struct {
	Name   string             `json:"name"`
	Launch session.LaunchSpec `json:"launch"`
}

// ToolSession is the session contract the host manages: a tool.Provider that
// can be connected to its subprocess and closed. Implemented by
// *session.Session; tests substitute fakes.
type ToolSession interface {
	tool.Provider

	Connect(ctx context.Context, spec session.LaunchSpec) (string, error)
	Close() error
}

// Options configures the Host instance.
type Options struct {
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// SystemPrompt is an optional instruction attached to every model call.
	SystemPrompt string

	// SessionOptions are applied to every session created by the default
	// session factory.
	SessionOptions []func(o *session.Options)

	// NewSession overrides session construction (used by tests).
	NewSession func(name string) ToolSession
}

// Host is the orchestrator façade: it owns the session set, the tool
// registry and the conversation engine, plus an explicit lifecycle context
// created at construction and torn down by Close. A Host processes one turn
// at a time; concurrent HandleTurn calls are serialized.
type Host struct {
	opts     Options
	backend  model.Backend
	specs    []ServerSpec
	sessions []ToolSession

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex // guards registry / engine swap after (re)start
	registry *tool.Registry
	engine   *engine.Engine

	turnMu sync.Mutex // single-flight turn processing
}

// New creates a Host for the given backend and server specs. No subprocess
// is launched until StartAll.
func New(backend model.Backend, specs []ServerSpec, optFns ...func(o *Options)) *Host {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NewSession == nil {
		opts.NewSession = func(name string) ToolSession {
			sessionOpts := append([]func(o *session.Options){func(o *session.Options) {
				o.Logger = opts.Logger
			}}, opts.SessionOptions...)
			return session.New(name, sessionOpts...)
		}
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	h := &Host{
		opts:    opts,
		backend: backend,
		specs:   specs,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
	for _, spec := range specs {
		h.sessions = append(h.sessions, opts.NewSession(spec.Name))
	}
	h.swapRegistry(nil)

	return h
}

// StartAll launches every session's connect concurrently. A failure in one
// session never prevents the others from succeeding and never cancels its
// siblings; the registry is rebuilt from whichever sessions connected. The
// returned report carries exactly one status line per server spec, in spec
// order.
func (h *Host) StartAll(ctx context.Context) string {
	ctx, done := h.opContext(ctx)
	defer done()

	results := make([]string, len(h.specs))
	connected := make([]bool, len(h.specs))

	var wg sync.WaitGroup
	for i := range h.specs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { // panic safety: a broken session must not take down the group
				if r := recover(); r != nil {
					results[idx] = session.NewConnectionError(h.specs[idx].Name, fmt.Errorf("panic: %v", r)).Error()
				}
			}()

			summary, err := h.sessions[idx].Connect(ctx, h.specs[idx].Launch)
			if err != nil {
				results[idx] = err.Error()
				return
			}
			results[idx] = summary
			connected[idx] = true
		}(i)
	}
	wg.Wait()

	var providers []tool.Provider
	for i, s := range h.sessions {
		if connected[i] {
			providers = append(providers, s)
		}
	}
	h.swapRegistry(providers)

	h.opts.Logger.Info("host.start.complete",
		"servers", len(h.specs),
		"connected", len(providers),
		"tools", h.Registry().Len(),
	)

	return strings.Join(results, "\n")
}

// HandleTurn processes exactly one user input against the given history and
// returns the new messages produced, in generation order. The caller owns
// the history: append the user message and the returned addendum to it.
// Turns are single-flight; a second caller blocks until the first finishes.
//
// Per-block tool failures surface as visible conversation content; only a
// model backend failure is returned as an error.
func (h *Host) HandleTurn(ctx context.Context, message string, history []core.Message) ([]core.Message, error) {
	h.turnMu.Lock()
	defer h.turnMu.Unlock()

	if err := h.baseCtx.Err(); err != nil {
		return nil, fmt.Errorf("host is closed: %w", err)
	}

	ctx, done := h.opContext(ctx)
	defer done()

	h.mu.Lock()
	eng := h.engine
	h.mu.Unlock()

	return eng.ProcessTurn(ctx, message, history)
}

// Tools returns the current unified tool catalog in registration order.
func (h *Host) Tools() []tool.Descriptor {
	return h.Registry().Descriptors()
}

// Registry returns the current tool registry.
func (h *Host) Registry() *tool.Registry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry
}

// Close tears down the host lifecycle context and terminates every session
// subprocess. It is idempotent; subsequent HandleTurn calls fail.
func (h *Host) Close() error {
	h.cancel()

	var errs []error
	for i, s := range h.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h.specs[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

// swapRegistry rebuilds the registry and engine over the given providers.
func (h *Host) swapRegistry(providers []tool.Provider) {
	registry := tool.Build(providers, func(o *tool.Options) { o.Logger = h.opts.Logger })
	eng := engine.New(h.backend, registry, func(o *engine.Options) {
		o.Logger = h.opts.Logger
		o.SystemPrompt = h.opts.SystemPrompt
	})

	h.mu.Lock()
	h.registry = registry
	h.engine = eng
	h.mu.Unlock()
}

// opContext derives an operation context cancelled by either the caller's
// context or the host lifecycle. The returned stop func releases both.
func (h *Host) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.baseCtx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
