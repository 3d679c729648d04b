package history

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryFormatting(t *testing.T) {
	m := NewManager(2)
	id := m.Create()
	assert.True(t, m.Exists(id))
	assert.Equal(t, "", m.History(id))

	m.AddExchange(id, "What is MCP?", "A protocol.")
	assert.Equal(t, "User: What is MCP?\nAssistant: A protocol.", m.History(id))
}

func TestHistoryKeepsLastExchanges(t *testing.T) {
	m := NewManager(2)
	id := m.Create()
	m.AddExchange(id, "q1", "a1")
	m.AddExchange(id, "q2", "a2")
	m.AddExchange(id, "q3", "a3")

	msgs := m.Messages(id)
	require.Len(t, msgs, 4)
	assert.Equal(t, "q2", msgs[0].Content)
	assert.Equal(t, "User: q2\nAssistant: a2\nUser: q3\nAssistant: a3", m.History(id))
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(0)
	a, b := m.Create(), m.Create()
	require.NotEqual(t, a, b)
	m.AddExchange(a, "qa", "aa")
	assert.Empty(t, m.History(b))
}

func TestClear(t *testing.T) {
	m := NewManager(2)
	id := m.Create()
	m.AddExchange(id, "q", "a")
	require.NoError(t, m.Clear(id))
	assert.False(t, m.Exists(id))
	assert.Empty(t, m.History(id))
	assert.ErrorIs(t, m.Clear(id), ErrSessionNotFound)
}

func TestTranscriptChainsEvents(t *testing.T) {
	tr, err := NewTranscript(t.TempDir())
	require.NoError(t, err)
	m := NewManager(2).WithTranscript(tr)
	id := m.Create()
	m.AddExchange(id, "q", "a")

	f, err := os.Open(tr.Path(id))
	require.NoError(t, err)
	defer f.Close()

	var events []SessionEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev SessionEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "user", events[0].Type)
	assert.Empty(t, events[0].ParentUUID)
	assert.Equal(t, "assistant", events[1].Type)
	assert.Equal(t, events[0].UUID, events[1].ParentUUID)
	assert.Equal(t, id, events[1].SessionID)
}
