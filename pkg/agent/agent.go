package agent

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/llm"
	"github.com/jbdamask/coursebot/pkg/tools"
)

const DefaultMaxRounds = 2

type Options struct {
	MaxRounds   int
	MaxTokens   int
	Temperature float64
}

// Generator answers a query with the language model, letting it call tools
// over a bounded number of sequential rounds.
type Generator struct {
	client      llm.Client
	maxRounds   int
	maxTokens   int
	temperature float64
}

func NewGenerator(client llm.Client, opts Options) *Generator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = llm.DefaultMaxTokens
	}
	return &Generator{
		client:      client,
		maxRounds:   opts.MaxRounds,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

func (g *Generator) MaxRounds() int { return g.maxRounds }

// Generate answers query. history is the formatted prior conversation and may
// be empty. With a nil or empty registry a single plain call is made and its
// error is returned; otherwise backend failures degrade to a text answer and
// the error is always nil.
func (g *Generator) Generate(ctx context.Context, query, history string, registry *tools.Registry) (string, error) {
	system := SystemPrompt(g.maxRounds)
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", system, history)
	}
	messages := []llm.Message{llm.NewTextMessage(llm.RoleUser, query)}

	if registry == nil || registry.Len() == 0 {
		resp, err := g.client.Generate(ctx, g.request(system, messages, nil))
		if err != nil {
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		return resp.Text(), nil
	}
	return g.runRounds(ctx, system, messages, registry), nil
}

func (g *Generator) request(system string, messages []llm.Message, specs []llm.ToolSpec) llm.Request {
	temperature := g.temperature
	req := llm.Request{
		System:      system,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: &temperature,
	}
	if len(specs) > 0 {
		req.Tools = specs
		req.ToolChoice = llm.ToolChoiceAuto
	}
	return req
}

func (g *Generator) runRounds(ctx context.Context, system string, messages []llm.Message, registry *tools.Registry) string {
	specs := registry.Specs()

	for round := 1; round <= g.maxRounds; round++ {
		resp, err := g.client.Generate(ctx, g.request(system, messages, specs))
		if err != nil {
			log.WithField("round", round).WithError(err).Warn("Model call failed, answering without tools")
			note := fmt.Sprintf("Tool execution failed: Tool execution failed in round %d: %v. Please provide the best answer you can without using tools.", round, err)
			messages = append(messages, llm.NewTextMessage(llm.RoleUser, note))
			return g.finalAnswer(ctx, system, messages)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			log.WithField("round", round).Debug("Model answered without tools")
			return resp.Text()
		}

		messages = append(messages, *resp)
		messages = append(messages, llm.NewToolResultMessage(executeCalls(ctx, registry, calls)))
		log.WithFields(log.Fields{"round": round, "tool_calls": len(calls)}).Debug("Completed tool round")
	}
	return g.finalAnswer(ctx, system, messages)
}

// executeCalls runs one round's tool calls and pairs each result with the
// correlation id of its request.
func executeCalls(ctx context.Context, registry *tools.Registry, calls []llm.ToolCall) []llm.ToolResult {
	executed := registry.ExecuteCalls(ctx, calls)
	results := make([]llm.ToolResult, len(calls))
	for i, res := range executed {
		results[i] = llm.ToolResult{ToolCallID: calls[i].ID, Content: res.Content, IsError: res.IsError}
	}
	return results
}

func (g *Generator) finalAnswer(ctx context.Context, system string, messages []llm.Message) string {
	resp, err := g.client.Generate(ctx, g.request(system, messages, nil))
	if err != nil {
		log.WithError(err).Error("Final model call failed")
		return fmt.Sprintf("Failed to generate final response: %v", err)
	}
	return resp.Text()
}
