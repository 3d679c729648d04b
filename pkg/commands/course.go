package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/jbdamask/coursebot/pkg/tools"
)

// CoursesCommand lists the loaded course titles
type CoursesCommand struct {
	titles func() []string
}

func NewCoursesCommand(titles func() []string) *CoursesCommand {
	return &CoursesCommand{titles: titles}
}

func (c *CoursesCommand) Name() string { return "courses" }

func (c *CoursesCommand) Description() string { return "List loaded courses" }

func (c *CoursesCommand) Execute(_ context.Context, _ string) (string, error) {
	titles := c.titles()
	if len(titles) == 0 {
		return "No courses loaded", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Courses (%d):", len(titles))
	for _, t := range titles {
		sb.WriteString("\n  • ")
		sb.WriteString(t)
	}
	return sb.String(), nil
}

// OutlineCommand shows a course outline without asking the model, by
// running the outline tool directly.
type OutlineCommand struct {
	tool tools.Tool
}

func NewOutlineCommand(tool tools.Tool) *OutlineCommand {
	return &OutlineCommand{tool: tool}
}

func (c *OutlineCommand) Name() string { return "outline" }

func (c *OutlineCommand) Description() string { return "Show a course outline: /outline <course>" }

func (c *OutlineCommand) Execute(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("usage: /outline <course>")
	}
	return c.tool.Execute(ctx, map[string]interface{}{"course_title": args})
}

// HelpCommand describes every registered command
type HelpCommand struct {
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string { return "help" }

func (c *HelpCommand) Description() string { return "Show available commands" }

func (c *HelpCommand) Execute(_ context.Context, _ string) (string, error) {
	lines := make([]string, 0, len(c.registry.order))
	for _, cmd := range c.registry.List() {
		lines = append(lines, fmt.Sprintf("/%-10s %s", cmd.Name(), cmd.Description()))
	}
	return strings.Join(lines, "\n"), nil
}
