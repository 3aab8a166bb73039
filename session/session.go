package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/mcphost/logging"
	"github.com/hupe1980/mcphost/tool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LaunchSpec describes how to start one tool-server subprocess: the command,
// its arguments and environment overrides merged over the parent environment.
type LaunchSpec struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ConnectionError reports a subprocess launch or handshake failure. It is
// isolated per session: the host records it and keeps the other sessions.
type ConnectionError struct {
	Server string `json:"server"`
	Err    error  `json:"-"`
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s server: %v", e.Server, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError creates a ConnectionError for the named server.
func NewConnectionError(server string, err error) *ConnectionError {
	return &ConnectionError{Server: server, Err: err}
}

// Options configures a Session.
type Options struct {
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// ConnectTimeout bounds subprocess launch + handshake + catalog fetch.
	// Zero disables the bound.
	ConnectTimeout time.Duration

	// CallTimeout bounds a single tool invocation round trip. Zero disables
	// the bound.
	CallTimeout time.Duration

	// Dial produces the transport for a launch spec. The default launches
	// the subprocess and speaks the protocol over its standard streams;
	// tests substitute in-memory transports.
	Dial func(ctx context.Context, spec LaunchSpec) (mcp.Transport, error)
}

// Session owns one subprocess-backed connection to a single tool provider:
// process lifecycle, the request/response protocol and the provider's
// advertised tool catalog. A Session belongs to exactly one host; it is safe
// for the host's sequential use plus a concurrent Close.
type Session struct {
	name   string
	opts   Options
	client *mcp.Client

	mu    sync.Mutex
	conn  *mcp.ClientSession
	tools []tool.Descriptor
}

// New creates a disconnected Session with the given identity.
func New(name string, optFns ...func(o *Options)) *Session {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dial == nil {
		opts.Dial = commandDial
	}

	return &Session{
		name:   name,
		opts:   opts,
		client: mcp.NewClient(&mcp.Implementation{Name: "mcphost", Version: "0.1.0"}, nil),
	}
}

// Name returns the session identity (the configured server name).
func (s *Session) Name() string { return s.name }

// Connect launches the tool-server subprocess per spec, performs the
// protocol handshake and fetches the tool catalog. Any prior transport is
// fully closed before the new one replaces it, so a reconnect never leaks a
// process. Returns a human-readable summary on success; failures are
// captured as *ConnectionError, never raised past this boundary.
func (s *Session) Connect(ctx context.Context, spec LaunchSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.opts.Logger.Warn("session.transport.close", "server", s.name, "error", err.Error())
		}
		s.conn = nil
		s.tools = nil
	}

	if s.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
	}

	start := time.Now()
	s.opts.Logger.Debug("session.connect.start", "server", s.name, "command", spec.Command)

	transport, err := s.opts.Dial(ctx, spec)
	if err != nil {
		return "", NewConnectionError(s.name, err)
	}

	conn, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		return "", NewConnectionError(s.name, fmt.Errorf("handshake: %w", err))
	}

	listed, err := conn.ListTools(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return "", NewConnectionError(s.name, fmt.Errorf("list tools: %w", err))
	}

	descriptors := make([]tool.Descriptor, 0, len(listed.Tools))
	names := make([]string, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		descriptors = append(descriptors, toDescriptor(t))
		names = append(names, t.Name)
	}

	s.conn = conn
	s.tools = descriptors

	s.opts.Logger.Info("session.connect.success",
		"server", s.name,
		"tool_count", len(descriptors),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return fmt.Sprintf("Connected to %s. Available tools: %s", s.name, strings.Join(names, ", ")), nil
}

// Tools returns a copy of the advertised tool catalog in catalog order.
// Empty until Connect succeeds.
func (s *Session) Tools() []tool.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tool.Descriptor, len(s.tools))
	copy(out, s.tools)
	return out
}

// Connected reports whether the session currently holds a live transport.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// CallTool sends a structured invocation over the channel and awaits the
// structured response. It fails with *tool.ExecutionError if the session is
// disconnected, the channel is dead, or the provider reports an
// application-level error.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return "", tool.NewExecutionError(name, s.name, "session is not connected", nil)
	}

	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	s.opts.Logger.Debug("session.tool.call", "server", s.name, "tool", name)

	res, err := conn.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		s.opts.Logger.Error("session.tool.error", "server", s.name, "tool", name, "error", err.Error())
		return "", tool.NewExecutionError(name, s.name, "call failed", err)
	}

	text := resultText(res)
	if res.IsError {
		s.opts.Logger.Error("session.tool.error", "server", s.name, "tool", name, "error", text)
		return "", tool.NewExecutionError(name, s.name, text, nil)
	}

	s.opts.Logger.Info("session.tool.executed",
		"server", s.name,
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return text, nil
}

// Close terminates the subprocess and releases the channel. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.tools = nil
	return err
}

// commandDial is the default Dial: it prepares the subprocess described by
// spec and wires the protocol over its standard streams. The child inherits
// the parent environment plus encoding / unbuffered-output hints plus the
// spec's own overrides.
func commandDial(_ context.Context, spec LaunchSpec) (mcp.Transport, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("launch spec has no command")
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stderr = os.Stderr

	return &mcp.CommandTransport{Command: cmd}, nil
}

// defaultEnvHints keeps line-oriented stdio servers honest: output must be
// unbuffered and UTF-8 regardless of the child runtime's defaults.
var defaultEnvHints = map[string]string{
	"PYTHONIOENCODING": "utf-8",
	"PYTHONUNBUFFERED": "1",
}

// mergeEnv overlays the default hints and then the spec overrides onto the
// base environment, replacing existing keys. Override order is deterministic.
func mergeEnv(base []string, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides)+len(defaultEnvHints))
	keys := make([]string, 0, len(base)+len(overrides)+len(defaultEnvHints))

	set := func(k, v string) {
		if _, ok := merged[k]; !ok {
			keys = append(keys, k)
		}
		merged[k] = v
	}

	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i > 0 {
			set(kv[:i], kv[i+1:])
		}
	}
	hintKeys := make([]string, 0, len(defaultEnvHints))
	for k := range defaultEnvHints {
		hintKeys = append(hintKeys, k)
	}
	sort.Strings(hintKeys)
	for _, k := range hintKeys {
		set(k, defaultEnvHints[k])
	}
	overrideKeys := make([]string, 0, len(overrides))
	for k := range overrides {
		overrideKeys = append(overrideKeys, k)
	}
	sort.Strings(overrideKeys)
	for _, k := range overrideKeys {
		set(k, overrides[k])
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// toDescriptor converts an advertised tool into the registry descriptor,
// flattening the input schema into a plain JSON object.
func toDescriptor(t *mcp.Tool) tool.Descriptor {
	d := tool.Descriptor{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			schema := map[string]any{}
			if err := json.Unmarshal(raw, &schema); err == nil {
				d.InputSchema = schema
			}
		}
	}
	if d.InputSchema == nil {
		d.InputSchema = map[string]any{"type": "object"}
	}
	return d
}

// resultText flattens the textual content parts of a tool result.
func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
