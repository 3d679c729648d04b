package llm

import (
	"context"
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a structured message body. Which fields are
// set depends on Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// MarshalJSON always emits "text" for text blocks and "input" for tool_use
// blocks; the API rejects either block without its field.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	type plain ContentBlock
	switch b.Type {
	case BlockText:
		return json.Marshal(struct {
			plain
			Text string `json:"text"`
		}{plain(b), b.Text})
	case BlockToolUse:
	default:
		return json.Marshal(plain(b))
	}
	input := b.Input
	if input == nil {
		input = map[string]interface{}{}
	}
	return json.Marshal(struct {
		plain
		Input map[string]interface{} `json:"input"`
	}{plain(b), input})
}

type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type ToolResult struct {
	ToolCallID string `json:"tool_use_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is either plain text (Content) or a sequence of blocks (Blocks).
// When Blocks is non-empty it takes precedence.
type Message struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content,omitempty"`
	Blocks     []ContentBlock `json:"blocks,omitempty"`
	StopReason string         `json:"-"`
}

func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolResultMessage packs the results of one round into a single user
// message, preserving the order of results.
func NewToolResultMessage(results []ToolResult) Message {
	blocks := make([]ContentBlock, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, ContentBlock{
			Type:      BlockToolResult,
			ToolUseID: r.ToolCallID,
			Content:   r.Content,
			IsError:   r.IsError,
		})
	}
	return Message{Role: RoleUser, Blocks: blocks}
}

// ToolCalls returns the tool_use blocks of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Blocks {
		if b.Type != BlockToolUse {
			continue
		}
		args := b.Input
		if args == nil {
			args = map[string]interface{}{}
		}
		calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Args: args})
	}
	return calls
}

// Text concatenates every text block, or returns Content for plain messages.
func (m Message) Text() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolSpec is the tool schema exposed to the model.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"input_schema"`
}

type ToolChoice struct {
	Type string `json:"type"`
}

var ToolChoiceAuto = &ToolChoice{Type: "auto"}

// Request is a single Model Backend call. A nil or empty Tools slice means
// the model must answer in plain text.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolSpec
	ToolChoice  *ToolChoice
	MaxTokens   int
	Temperature *float64
}

type Client interface {
	Generate(ctx context.Context, req Request) (*Message, error)
	GenerateStream(ctx context.Context, req Request, outputChan chan<- string) (*Message, error)
}

// MockClient answers without contacting any backend. It is used when no API
// key is configured so the rest of the system can still be exercised.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, req Request) (*Message, error) {
	return m.GenerateStream(ctx, req, nil)
}

func (m *MockClient) GenerateStream(ctx context.Context, req Request, outputChan chan<- string) (*Message, error) {
	response := "No language model is configured. Set an API key to get real answers."
	if outputChan != nil {
		for _, c := range response {
			outputChan <- string(c)
		}
	}
	return &Message{
		Role:       RoleAssistant,
		Blocks:     []ContentBlock{{Type: BlockText, Text: response}},
		StopReason: "end_turn",
	}, nil
}
