package history

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultMaxHistory = 2

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Manager keeps the recent exchanges of every conversation session in
// memory. Only the last maxHistory exchanges of a session are kept.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]Message
	transcript *Transcript
}

func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Message),
	}
}

// WithTranscript makes the manager append every message to t.
func (m *Manager) WithTranscript(t *Transcript) *Manager {
	m.transcript = t
	return m
}

// Create starts a new empty session and returns its ID.
func (m *Manager) Create() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// Exists reports whether id names a live session.
func (m *Manager) Exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// AddMessage appends one message, creating the session if it is unknown.
func (m *Manager) AddMessage(id, role, content string) {
	m.mu.Lock()
	msgs := append(m.sessions[id], Message{Role: role, Content: content})
	if limit := m.maxHistory * 2; len(msgs) > limit {
		msgs = append([]Message(nil), msgs[len(msgs)-limit:]...)
	}
	m.sessions[id] = msgs
	m.mu.Unlock()

	if m.transcript != nil {
		if err := m.transcript.Append(id, role, content); err != nil {
			log.WithField("session", id).WithError(err).Warn("Failed to write transcript")
		}
	}
}

// AddExchange records a question and its answer.
func (m *Manager) AddExchange(id, question, answer string) {
	m.AddMessage(id, "user", question)
	m.AddMessage(id, "assistant", answer)
}

// History formats the session's kept messages for the model. An unknown or
// empty session yields "".
func (m *Manager) History(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.sessions[id]
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", displayRole(msg.Role), msg.Content))
	}
	return strings.Join(lines, "\n")
}

// Messages returns a copy of the session's kept messages.
func (m *Manager) Messages(id string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sessions[id]...)
}

// Clear drops a session.
func (m *Manager) Clear(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

func displayRole(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
