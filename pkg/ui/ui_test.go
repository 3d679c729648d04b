package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jbdamask/coursebot/pkg/commands"
	"github.com/jbdamask/coursebot/pkg/history"
	"github.com/jbdamask/coursebot/pkg/tools"
)

type fakeBackend struct {
	sessions *history.Manager
	answer   string
	sources  []tools.Source
	err      error
	asked    []string
}

func (f *fakeBackend) Query(_ context.Context, query, sessionID string) (string, []tools.Source, error) {
	f.asked = append(f.asked, query)
	return f.answer, f.sources, f.err
}

func (f *fakeBackend) Sessions() *history.Manager { return f.sessions }

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestEnterAsksAndRendersAnswer(t *testing.T) {
	backend := &fakeBackend{
		sessions: history.NewManager(2),
		answer:   "Lesson 1 covers the basics.",
		sources:  []tools.Source{{Text: "Course A - Lesson 1", URL: "https://example.com/a/1"}},
	}
	var m tea.Model = newChatModel(context.Background(), backend, nil, false)
	m = typeText(m, "What is in lesson 1?")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to run the query")
	}
	if !m.(chatModel).busy {
		t.Error("model should be busy while answering")
	}

	msg := m.(chatModel).ask("What is in lesson 1?")()
	m, _ = m.Update(msg)
	cm := m.(chatModel)
	if cm.busy {
		t.Error("model should be idle after the answer")
	}
	if cm.lastAnswer != "Lesson 1 covers the basics." {
		t.Errorf("unexpected last answer %q", cm.lastAnswer)
	}
	rendered := strings.Join(cm.entries, "\n")
	if !strings.Contains(rendered, "Course A - Lesson 1 (https://example.com/a/1)") {
		t.Errorf("sources missing from transcript: %q", rendered)
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	backend := &fakeBackend{sessions: history.NewManager(2)}
	var m tea.Model = newChatModel(context.Background(), backend, nil, false)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.(chatModel).busy {
		t.Error("blank input must not start a query")
	}
}

func TestErrorIsShown(t *testing.T) {
	backend := &fakeBackend{sessions: history.NewManager(2)}
	var m tea.Model = newChatModel(context.Background(), backend, nil, false)
	m, _ = m.Update(answerMsg{err: errors.New("backend down")})
	if !strings.Contains(strings.Join(m.(chatModel).entries, ""), "backend down") {
		t.Error("error not rendered")
	}
}

func TestCtrlLStartsNewSession(t *testing.T) {
	sessions := history.NewManager(2)
	backend := &fakeBackend{sessions: sessions}
	var m tea.Model = newChatModel(context.Background(), backend, nil, false)
	first := m.(chatModel).sessionID
	sessions.AddExchange(first, "q", "a")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	cm := m.(chatModel)
	if cm.sessionID == first {
		t.Error("expected a new session id")
	}
	if sessions.Exists(first) {
		t.Error("old session should be cleared")
	}
	if len(cm.entries) != 0 {
		t.Error("transcript should be cleared")
	}
}

func TestCopyWithoutClipboard(t *testing.T) {
	backend := &fakeBackend{sessions: history.NewManager(2)}
	var m tea.Model = newChatModel(context.Background(), backend, nil, false)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if m.(chatModel).status != "Nothing to copy yet" {
		t.Errorf("unexpected status %q", m.(chatModel).status)
	}
	m, _ = m.Update(answerMsg{answer: "x"})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if m.(chatModel).status != "Clipboard unavailable" {
		t.Errorf("unexpected status %q", m.(chatModel).status)
	}
}

func TestCourseList(t *testing.T) {
	if got := courseList(nil, 3); got != "No courses loaded" {
		t.Errorf("unexpected empty list %q", got)
	}
	got := courseList([]string{"a", "b", "c", "d"}, 2)
	if got != "• a\n• b\n…and 2 more" {
		t.Errorf("unexpected list %q", got)
	}
}

type staticCommand struct{}

func (staticCommand) Name() string        { return "courses" }
func (staticCommand) Description() string { return "List loaded courses" }
func (staticCommand) Execute(context.Context, string) (string, error) {
	return "Courses (1):\n  • Intro to Go", nil
}

func TestSlashCommandBypassesBackend(t *testing.T) {
	backend := &fakeBackend{sessions: history.NewManager(2)}
	reg := commands.NewRegistry()
	reg.Register(staticCommand{})
	var m tea.Model = newChatModel(context.Background(), backend, reg, false)
	m = typeText(m, "/courses")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to run")
	}
	if m.(chatModel).busy {
		t.Error("slash commands should not show the query spinner")
	}
	m, _ = m.Update(cmd())
	if len(backend.asked) != 0 {
		t.Errorf("backend should not be queried, got %v", backend.asked)
	}
	if !strings.Contains(strings.Join(m.(chatModel).entries, "\n"), "Intro to Go") {
		t.Error("command output not rendered")
	}

	m = typeText(m, "/nope")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(cmd())
	if !strings.Contains(strings.Join(m.(chatModel).entries, "\n"), "unknown command") {
		t.Error("unknown command error not rendered")
	}
}
