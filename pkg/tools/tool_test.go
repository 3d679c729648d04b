package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jbdamask/coursebot/pkg/llm"
)

type stubTool struct {
	name string
	out  string
	err  error
	boom bool
}

func (s *stubTool) Definition() ToolDefinition {
	return ToolDefinition{Name: s.name, Schema: InputSchema{Type: "object"}}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if s.boom {
		panic("kaboom")
	}
	return s.out, s.err
}

type citingTool struct {
	stubTool
	sources []Source
	delay   time.Duration
}

func (c *citingTool) ExecuteWithSources(ctx context.Context, args map[string]interface{}) (string, []Source, error) {
	time.Sleep(c.delay)
	return c.out, c.sources, c.err
}

func TestRegisterRequiresName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{}); !errors.Is(err, ErrUnnamedTool) {
		t.Fatalf("expected ErrUnnamedTool, got %v", err)
	}
	if err := r.Register(&stubTool{name: "a"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&stubTool{name: "a"}); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	specs := r.Specs()
	if len(specs) != 3 || specs[0].Name != "zeta" || specs[1].Name != "alpha" || specs[2].Name != "mid" {
		t.Errorf("unexpected order: %+v", specs)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "nope", nil)
	if res.Content != "Tool 'nope' not found" || !res.IsError {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExecuteConvertsFaults(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "ok", out: "fine"})
	_ = r.Register(&stubTool{name: "fails", err: errors.New("disk full")})
	_ = r.Register(&stubTool{name: "panics", boom: true})
	ctx := context.Background()

	if res := r.Execute(ctx, "ok", nil); res.Content != "fine" || res.IsError {
		t.Errorf("unexpected ok result: %+v", res)
	}
	if res := r.Execute(ctx, "fails", nil); !res.IsError || !strings.Contains(res.Content, "disk full") {
		t.Errorf("unexpected error result: %+v", res)
	}
	if res := r.Execute(ctx, "panics", nil); !res.IsError || !strings.Contains(res.Content, "kaboom") {
		t.Errorf("unexpected panic result: %+v", res)
	}
}

func TestSourcesCollectAndClear(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&citingTool{stubTool: stubTool{name: "first"}, sources: []Source{{Text: "A - Lesson 1"}}})
	_ = r.Register(&stubTool{name: "plain", out: "no citations"})
	_ = r.Register(&citingTool{stubTool: stubTool{name: "second"}, sources: []Source{{Text: "B"}}})
	_ = r.Register(&citingTool{stubTool: stubTool{name: "broken", err: errors.New("down")}, sources: []Source{{Text: "ignored"}}})
	ctx := context.Background()

	if got := r.CollectSources(); len(got) != 0 {
		t.Fatalf("expected no sources, got %v", got)
	}

	res := r.Execute(ctx, "first", nil)
	if len(res.Sources) != 1 {
		t.Errorf("result should carry its sources: %+v", res)
	}
	if got := r.CollectSources(); len(got) != 1 || got[0].Text != "A - Lesson 1" {
		t.Errorf("unexpected sources: %v", got)
	}

	r.Execute(ctx, "plain", nil)
	r.Execute(ctx, "broken", nil)
	if got := r.CollectSources(); len(got) != 1 || got[0].Text != "A - Lesson 1" {
		t.Errorf("calls without sources must not replace them, got %v", got)
	}

	r.Execute(ctx, "second", nil)
	if got := r.CollectSources(); len(got) != 1 || got[0].Text != "B" {
		t.Errorf("expected latest sources, got %v", got)
	}

	r.ClearSources()
	if got := r.CollectSources(); len(got) != 0 {
		t.Errorf("expected empty after clear, got %v", got)
	}
}

func TestExecuteCallsRecordsSourcesInRequestOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&citingTool{stubTool: stubTool{name: "slow", out: "slow"}, sources: []Source{{Text: "slow"}}, delay: 50 * time.Millisecond})
	_ = r.Register(&citingTool{stubTool: stubTool{name: "fast", out: "fast"}, sources: []Source{{Text: "fast"}}})

	results := r.ExecuteCalls(context.Background(), []llm.ToolCall{
		{ID: "1", Name: "slow"},
		{ID: "2", Name: "fast"},
		{ID: "3", Name: "nope"},
	})
	if len(results) != 3 || results[0].Content != "slow" || results[1].Content != "fast" || !results[2].IsError {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got := r.CollectSources(); len(got) != 1 || got[0].Text != "fast" {
		t.Errorf("last requested call should win, got %v", got)
	}

	r.ExecuteCalls(context.Background(), []llm.ToolCall{
		{ID: "1", Name: "fast"},
		{ID: "2", Name: "slow"},
	})
	if got := r.CollectSources(); len(got) != 1 || got[0].Text != "slow" {
		t.Errorf("last requested call should win even when it finishes last, got %v", got)
	}
}
