package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.design/x/clipboard"

	"github.com/jbdamask/coursebot/pkg/commands"
	"github.com/jbdamask/coursebot/pkg/history"
	"github.com/jbdamask/coursebot/pkg/tools"
)

// Backend answers questions within a conversation session.
type Backend interface {
	Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error)
	Sessions() *history.Manager
}

type UI struct{}

func New() *UI {
	return &UI{}
}

var (
	accent       = lipgloss.Color("#D97757")
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	botStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D")).Italic(true)
	inputBorder  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	chromeHeight = 5
)

type answerMsg struct {
	answer  string
	sources []tools.Source
	err     error
}

type commandMsg struct {
	output string
	err    error
}

type chatModel struct {
	backend   Backend
	commands  *commands.Registry
	ctx       context.Context
	sessionID string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries     []string
	lastAnswer  string
	status      string
	busy        bool
	clipboardOK bool
}

func newChatModel(ctx context.Context, backend Backend, cmds *commands.Registry, clipboardOK bool) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about the courses..."
	ti.Focus()
	ti.CharLimit = 0
	ti.Width = 80
	ti.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return chatModel{
		backend:     backend,
		commands:    cmds,
		ctx:         ctx,
		sessionID:   backend.Sessions().Create(),
		input:       ti,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		clipboardOK: clipboardOK,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) ask(question string) tea.Cmd {
	backend, ctx, sessionID := m.backend, m.ctx, m.sessionID
	return func() tea.Msg {
		answer, sources, err := backend.Query(ctx, question, sessionID)
		return answerMsg{answer: answer, sources: sources, err: err}
	}
}

func (m chatModel) run(input string) tea.Cmd {
	cmds, ctx := m.commands, m.ctx
	return func() tea.Msg {
		output, err := cmds.Dispatch(ctx, input)
		return commandMsg{output: output, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-6, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlY:
			m.copyAnswer()
			return m, nil
		case tea.KeyCtrlL:
			_ = m.backend.Sessions().Clear(m.sessionID)
			m.sessionID = m.backend.Sessions().Create()
			m.entries = nil
			m.lastAnswer = ""
			m.status = "Started a new session"
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			if m.commands != nil && commands.IsCommand(question) {
				m.entries = append(m.entries, userStyle.Render("> ")+question)
				m.refresh()
				return m, m.run(question)
			}
			m.busy = true
			m.status = ""
			m.entries = append(m.entries, userStyle.Render("You: ")+question)
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(question))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.entries = append(m.entries, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.lastAnswer = msg.answer
			m.entries = append(m.entries, botStyle.Render("Assistant: ")+msg.answer+formatSources(msg.sources))
		}
		m.refresh()
		return m, nil

	case commandMsg:
		if msg.err != nil {
			m.entries = append(m.entries, errorStyle.Render(msg.err.Error()))
		} else {
			m.entries = append(m.entries, sourceStyle.Render(msg.output))
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *chatModel) copyAnswer() {
	switch {
	case m.lastAnswer == "":
		m.status = "Nothing to copy yet"
	case !m.clipboardOK:
		m.status = "Clipboard unavailable"
	default:
		clipboard.Write(clipboard.FmtText, []byte(m.lastAnswer))
		m.status = "Copied answer to clipboard"
	}
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.entries, "\n\n")))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	status := statusStyle.Render("enter ask • /help commands • ctrl+y copy • ctrl+l new session • ctrl+c quit")
	if m.busy {
		status = m.spinner.View() + statusStyle.Render(" Searching course materials...")
	} else if m.status != "" {
		status = statusStyle.Render(m.status)
	}
	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), inputBorder.Render(m.input.View()), status)
}

func formatSources(sources []tools.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(sourceStyle.Render("Sources:"))
	for _, s := range sources {
		line := "  • " + s.Text
		if s.URL != "" {
			line += " (" + s.URL + ")"
		}
		sb.WriteString("\n")
		sb.WriteString(sourceStyle.Render(line))
	}
	return sb.String()
}

// RunChat runs the interactive chat until the user quits.
func (u *UI) RunChat(ctx context.Context, backend Backend, cmds *commands.Registry) error {
	clipboardOK := clipboard.Init() == nil
	p := tea.NewProgram(newChatModel(ctx, backend, cmds, clipboardOK))
	_, err := p.Run()
	return err
}
