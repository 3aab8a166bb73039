// Package tool implements the unified tool namespace of the host. Every
// connected tool-provider session advertises a catalog of descriptors; the
// Registry flattens those catalogs into a single name -> owning provider
// lookup used to route model-requested tool invocations.
package tool

import (
	"context"
	"fmt"
)

// Descriptor describes a single tool advertised by a provider session.
// Immutable once fetched; InputSchema is a JSON-Schema object handed to the
// model backend verbatim.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Provider is the session-side contract the registry routes against. It is
// implemented by *session.Session; tests supply lightweight fakes.
type Provider interface {
	// Name returns the provider identity (the configured server name).
	Name() string

	// Tools returns the provider's advertised tool catalog in catalog order.
	Tools() []Descriptor

	// CallTool sends a structured invocation to the provider and returns the
	// textual result payload. Failures are reported as *ExecutionError.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// ResolutionError reports a model-requested tool name that is absent from the
// registry. It is recovered by the engine and surfaced as visible
// conversation content, never a program abort.
type ResolutionError struct {
	Tool string `json:"tool"`
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("tool %q is not provided by any connected server", e.Tool)
}

// NewResolutionError creates a ResolutionError for the given tool name.
func NewResolutionError(tool string) *ResolutionError {
	return &ResolutionError{Tool: tool}
}

// ExecutionError reports a provider-side tool failure: a dead subprocess, a
// closed channel, or an application-level error returned by the server.
type ExecutionError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Server  string `json:"server"`  // Owning provider identity
	Message string `json:"message"` // Error message
	Err     error  `json:"-"`       // Underlying cause, if any
}

func (e *ExecutionError) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("tool %q failed on server %q: %s", e.Tool, e.Server, e.Message)
	}
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecutionError creates an ExecutionError with the specified details.
func NewExecutionError(tool, server, message string, err error) *ExecutionError {
	return &ExecutionError{Tool: tool, Server: server, Message: message, Err: err}
}
