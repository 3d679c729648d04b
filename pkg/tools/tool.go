package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/llm"
)

var (
	ErrUnnamedTool   = errors.New("tool must have a name")
	ErrDuplicateTool = errors.New("tool already registered")
)

// ToolDefinition describes a tool's interface to the LLM
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      InputSchema `json:"input_schema"`
}

// InputSchema is the JSON Schema object describing a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Spec converts the definition to the form sent to the model.
func (d ToolDefinition) Spec() llm.ToolSpec {
	return llm.ToolSpec{Name: d.Name, Description: d.Description, InputSchema: d.Schema}
}

// Tool represents a callable tool
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Source is a citation produced by a tool's last execution.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// SourcedTool is implemented by tools that cite what they return. The
// sources travel with the output, so concurrent calls never share state.
type SourcedTool interface {
	Tool
	ExecuteWithSources(ctx context.Context, args map[string]interface{}) (string, []Source, error)
}

// Result is the outcome of executing a tool by name. Failures are reported
// as text so they can be fed back to the model.
type Result struct {
	Content string
	IsError bool
	Sources []Source
}

// Registry manages the available tools and the sources of the last call
// that produced any.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	sources []Source
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return ErrUnnamedTool
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the definitions in registration order.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Specs returns the tool schemas for a model request.
func (r *Registry) Specs() []llm.ToolSpec {
	defs := r.List()
	specs := make([]llm.ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, d.Spec())
	}
	return specs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Execute runs the named tool. It never returns an error: an unknown tool, a
// tool error or a panic all become an error Result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) Result {
	res := r.run(ctx, name, args)
	r.recordSources(res.Sources)
	return res
}

// ExecuteCalls runs one round of tool calls concurrently. Results keep the
// order of calls, and sources are recorded in that order once every call has
// finished, so the last requested citing call wins.
func (r *Registry) ExecuteCalls(ctx context.Context, calls []llm.ToolCall) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = r.run(ctx, call.Name, call.Args)
		}(i, call)
	}
	wg.Wait()
	for _, res := range results {
		r.recordSources(res.Sources)
	}
	return results
}

func (r *Registry) run(ctx context.Context, name string, args map[string]interface{}) (res Result) {
	t, ok := r.Get(name)
	if !ok {
		return Result{Content: fmt.Sprintf("Tool '%s' not found", name), IsError: true}
	}
	defer func() {
		if p := recover(); p != nil {
			log.WithField("tool", name).Errorf("Tool panicked: %v", p)
			res = Result{Content: fmt.Sprintf("Error executing tool %s: %v", name, p), IsError: true}
		}
	}()

	log.WithField("tool", name).Info("Running tool")
	var (
		out     string
		sources []Source
		err     error
	)
	if st, ok := t.(SourcedTool); ok {
		out, sources, err = st.ExecuteWithSources(ctx, args)
	} else {
		out, err = t.Execute(ctx, args)
	}
	if err != nil {
		log.WithField("tool", name).WithError(err).Warn("Tool execution failed")
		return Result{Content: fmt.Sprintf("Error executing tool %s: %v", name, err), IsError: true}
	}
	return Result{Content: out, Sources: sources}
}

// recordSources replaces the tracked sources. Calls without sources leave
// them untouched.
func (r *Registry) recordSources(sources []Source) {
	if len(sources) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append([]Source(nil), sources...)
}

// CollectSources returns the sources of the most recent call that produced
// any.
func (r *Registry) CollectSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

func (r *Registry) ClearSources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
}
