package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionEvent represents a line in the JSONL file
type SessionEvent struct {
	Type       string `json:"type"`
	UUID       string `json:"uuid"`
	ParentUUID string `json:"parentUuid,omitempty"`
	SessionID  string `json:"sessionId"`
	Timestamp  string `json:"timestamp"`
	Content    string `json:"content"`
}

// Transcript appends every session message to <dir>/<session>.jsonl. Events
// of a session form a chain through ParentUUID.
type Transcript struct {
	dir string

	mu   sync.Mutex
	last map[string]string
}

func NewTranscript(dir string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &Transcript{dir: dir, last: make(map[string]string)}, nil
}

// DefaultTranscriptDir is ~/.coursebot/sessions.
func DefaultTranscriptDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".coursebot", "sessions"), nil
}

func (t *Transcript) Path(sessionID string) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s.jsonl", sessionID))
}

func (t *Transcript) Append(sessionID, role, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := SessionEvent{
		Type:       role,
		UUID:       uuid.New().String(),
		ParentUUID: t.last[sessionID],
		SessionID:  sessionID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Content:    content,
	}

	f, err := os.OpenFile(t.Path(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(event); err != nil {
		return err
	}
	t.last[sessionID] = event.UUID
	return nil
}
