package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	AnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 800
	anthropicVersion  = "2023-06-01"
)

type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type AnthropicClient struct {
	apiKey    string
	endpoint  string
	model     string
	maxTokens int
	client    *http.Client
}

func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicClient{
		apiKey:    cfg.APIKey,
		endpoint:  resolveEndpoint(cfg.BaseURL),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// resolveEndpoint accepts either a bare host (a proxy) or a full messages URL.
func resolveEndpoint(baseURL string) string {
	if baseURL == "" {
		return AnthropicEndpoint
	}
	if strings.HasSuffix(baseURL, "/v1/messages") {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/v1/messages"
}

// API Request Structures

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Messages    []apiMessage `json:"messages"`
	Tools       []ToolSpec   `json:"tools,omitempty"`
	ToolChoice  *ToolChoice  `json:"tool_choice,omitempty"`
	System      string       `json:"system,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []ContentBlock
}

// SSE Event Structures
type sseEvent struct {
	Type         string        `json:"type"`
	Delta        *sseDelta     `json:"delta,omitempty"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`
	Index        int           `json:"index,omitempty"`
	Error        *apiError     `json:"error,omitempty"`
}

type sseDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (*Message, error) {
	return c.GenerateStream(ctx, req, nil)
}

func toAPIMessages(messages []Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))
	for _, msg := range messages {
		apiMsg := apiMessage{Role: string(msg.Role)}
		if len(msg.Blocks) > 0 {
			apiMsg.Content = msg.Blocks
		} else {
			apiMsg.Content = msg.Content
		}
		out = append(out, apiMsg)
	}
	return out
}

func (c *AnthropicClient) buildRequest(req Request) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	body := apiRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Messages:    toAPIMessages(req.Messages),
		System:      req.System,
		Temperature: req.Temperature,
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		body.Tools = req.Tools
		body.ToolChoice = req.ToolChoice
	}
	return body
}

func (c *AnthropicClient) GenerateStream(ctx context.Context, req Request, outputChan chan<- string) (*Message, error) {
	jsonData, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.WithFields(log.Fields{"status": resp.StatusCode, "model": c.model}).Warn("Messages API returned an error")
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	return readStream(resp.Body, outputChan)
}

// blockBuilder accumulates one content block across stream events.
type blockBuilder struct {
	block      ContentBlock
	jsonBuffer strings.Builder
}

func readStream(body io.Reader, outputChan chan<- string) (*Message, error) {
	finalMsg := &Message{Role: RoleAssistant}
	builders := make(map[int]*blockBuilder)

	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading stream: %w", err)
		}
		done := err == io.EOF

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}
			var event sseEvent
			if jsonErr := json.Unmarshal([]byte(data), &event); jsonErr == nil {
				if evErr := applyEvent(finalMsg, builders, event, outputChan); evErr != nil {
					return nil, evErr
				}
			}
		}
		if done {
			break
		}
	}

	// Blocks that never received content_block_stop are still kept.
	indexes := make([]int, 0, len(builders))
	for idx := range builders {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		appendBlock(finalMsg, builders[idx])
	}
	return finalMsg, nil
}

func applyEvent(finalMsg *Message, builders map[int]*blockBuilder, event sseEvent, outputChan chan<- string) error {
	switch event.Type {
	case "error":
		if event.Error != nil {
			return fmt.Errorf("API stream error: %s", event.Error.Message)
		}
	case "content_block_start":
		if event.ContentBlock != nil {
			builders[event.Index] = &blockBuilder{block: ContentBlock{
				Type: event.ContentBlock.Type,
				ID:   event.ContentBlock.ID,
				Name: event.ContentBlock.Name,
				Text: event.ContentBlock.Text,
			}}
		}
	case "content_block_delta":
		tb, ok := builders[event.Index]
		if !ok || event.Delta == nil {
			return nil
		}
		switch event.Delta.Type {
		case "text_delta":
			tb.block.Text += event.Delta.Text
			if outputChan != nil {
				outputChan <- event.Delta.Text
			}
		case "input_json_delta":
			tb.jsonBuffer.WriteString(event.Delta.PartialJSON)
		}
	case "content_block_stop":
		if tb, ok := builders[event.Index]; ok {
			appendBlock(finalMsg, tb)
			delete(builders, event.Index)
		}
	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			finalMsg.StopReason = event.Delta.StopReason
		}
	}
	return nil
}

// appendBlock adds a finished block to msg. Empty text blocks are dropped
// because the API rejects them when the message is sent back.
func appendBlock(msg *Message, tb *blockBuilder) {
	block := finish(tb)
	if block.Type == BlockText && block.Text == "" {
		return
	}
	msg.Blocks = append(msg.Blocks, block)
}

func finish(tb *blockBuilder) ContentBlock {
	block := tb.block
	if block.Type == BlockToolUse {
		args := make(map[string]interface{})
		if tb.jsonBuffer.Len() > 0 {
			// A malformed argument payload still yields a call; the tool
			// reports the missing parameters.
			if err := json.Unmarshal([]byte(tb.jsonBuffer.String()), &args); err != nil {
				args = make(map[string]interface{})
			}
		}
		block.Input = args
	}
	return block
}
