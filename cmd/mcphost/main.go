// Command mcphost is a terminal chat client that launches the MCP servers
// declared in a YAML config, connects a model backend, and runs tool-using
// conversation turns against them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hupe1980/mcphost"
	"github.com/hupe1980/mcphost/config"
	"github.com/hupe1980/mcphost/core"
	"github.com/hupe1980/mcphost/logging"
	"github.com/hupe1980/mcphost/model"
	"github.com/hupe1980/mcphost/model/anthropic"
	"github.com/hupe1980/mcphost/model/openai"
	"github.com/hupe1980/mcphost/session"
)

func main() {
	configPath := flag.String("config", "mcphost.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("mcphost: %v", err)
	}

	if cfg.Model.Provider == "anthropic" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "warning: ANTHROPIC_API_KEY is not set; model calls will fail")
	}
	if cfg.Model.Provider == "openai" && os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "warning: OPENAI_API_KEY is not set; model calls will fail")
	}

	backend := newBackend(cfg)

	logFile, err := os.OpenFile("mcphost.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("mcphost: open log file: %v", err)
	}
	defer logFile.Close()

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  parseLevel(cfg.LogLevel),
		Format: "json",
		Output: logFile,
	})

	specs := make([]mcphost.ServerSpec, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		specs = append(specs, mcphost.ServerSpec{
			Name: s.Name,
			Launch: session.LaunchSpec{
				Command: s.Command,
				Args:    s.Args,
				Env:     s.Env,
			},
		})
	}

	host := mcphost.New(backend, specs, func(o *mcphost.Options) {
		o.Logger = logger
		o.SystemPrompt = cfg.SystemPrompt
		o.SessionOptions = []func(so *session.Options){func(so *session.Options) {
			so.ConnectTimeout = 30 * time.Second
			so.CallTimeout = 2 * time.Minute
		}}
	})
	defer host.Close()

	p := tea.NewProgram(newModel(host, backend.Info()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("mcphost: %v", err)
	}
}

func newBackend(cfg *config.Config) model.Backend {
	switch cfg.Model.Provider {
	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Model.Model != "" {
				o.Model = cfg.Model.Model
			}
			o.MaxCompletionTokens = cfg.Model.MaxTokens
			o.Temperature = cfg.Model.Temperature
		})
	default:
		return anthropic.New(func(o *anthropic.Options) {
			if cfg.Model.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Model)
			}
			o.MaxTokens = cfg.Model.MaxTokens
			o.Temperature = cfg.Model.Temperature
		})
	}
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

type startDoneMsg struct {
	report string
}

type turnDoneMsg struct {
	addendum []core.Message
	err      error
}

type uiTheme struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	rawResult lipgloss.Style
	errorText lipgloss.Style
	helpText  lipgloss.Style
	inputBox  lipgloss.Style
}

func newTheme() uiTheme {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")

	return uiTheme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(accent).Bold(true),
		rawResult: lipgloss.NewStyle().Foreground(muted),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		helpText:  lipgloss.NewStyle().Foreground(muted),
		inputBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
	}
}

type uiModel struct {
	host      *mcphost.Host
	modelInfo model.Info

	history  []core.Message
	report   string
	status   string
	inflight bool
	starting bool

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	theme uiTheme
}

func newModel(host *mcphost.Host, info model.Info) uiModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask something... (ctrl+l clears the chat)"
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return uiModel{
		host:      host,
		modelInfo: info,
		status:    "connecting to servers...",
		starting:  true,
		input:     input,
		timeline:  viewport.New(0, 0),
		spinner:   sp,
		theme:     newTheme(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCmd())
}

func (m uiModel) startCmd() tea.Cmd {
	host := m.host
	return func() tea.Msg {
		return startDoneMsg{report: host.StartAll(context.Background())}
	}
}

func (m uiModel) turnCmd(userText string, history []core.Message) tea.Cmd {
	host := m.host
	return func() tea.Msg {
		addendum, err := host.HandleTurn(context.Background(), userText, history)
		return turnDoneMsg{addendum: addendum, err: err}
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			if m.inflight || m.starting {
				return m, nil
			}
			m.history = nil
			m.status = "chat cleared"
			m.renderTimeline()
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.inflight || m.starting {
				return m, nil
			}
			before := m.history
			m.history = append(m.history, core.NewUserMessage(text))
			m.input.Reset()
			m.inflight = true
			m.status = "thinking..."
			m.renderTimeline()
			return m, tea.Batch(m.spinner.Tick, m.turnCmd(text, before))
		}

	case startDoneMsg:
		m.starting = false
		m.report = msg.report
		m.status = "ready"
		m.renderTimeline()
		return m, nil

	case turnDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.status = "model error"
			m.history = append(m.history, core.NewAssistantMessage("Error: "+msg.err.Error()))
		} else {
			m.status = "ready"
			m.history = append(m.history, msg.addendum...)
		}
		m.renderTimeline()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.timeline, cmd = m.timeline.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *uiModel) layout() {
	headerHeight := lipgloss.Height(m.headerView())
	inputHeight := 3
	m.timeline.Width = m.width
	m.timeline.Height = m.height - headerHeight - inputHeight
	m.input.Width = m.width - 6
	m.renderTimeline()
}

func (m *uiModel) renderTimeline() {
	var b strings.Builder

	if m.report != "" {
		b.WriteString(m.theme.helpText.Render(m.report))
		b.WriteString("\n\n")
	}

	for _, msg := range m.history {
		switch {
		case msg.Metadata != nil:
			// Raw tool output, rendered dimmed under its parent result.
			b.WriteString(m.theme.rawResult.Render(msg.Content))
		case msg.Role == core.RoleUser:
			b.WriteString(m.theme.user.Render("you: ") + msg.Content)
		case strings.HasPrefix(msg.Content, "Error: "):
			b.WriteString(m.theme.errorText.Render(msg.Content))
		default:
			b.WriteString(m.theme.assistant.Render("assistant: ") + msg.Content)
		}
		b.WriteString("\n\n")
	}

	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m uiModel) headerView() string {
	title := fmt.Sprintf("mcphost · %s/%s", m.modelInfo.Provider, m.modelInfo.Name)
	status := m.status
	if m.inflight || m.starting {
		status = m.spinner.View() + " " + status
	}
	return m.theme.header.Width(max(0, m.width-2)).Render(title + "  " + m.theme.helpText.Render(status))
}

func (m uiModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.timeline.View(),
		m.theme.inputBox.Width(max(0, m.width-2)).Render(m.input.View()),
	)
}
