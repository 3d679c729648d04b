package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command represents a slash command typed into the chat prompt
type Command interface {
	// Name returns the command name (without the leading slash)
	Name() string

	// Description returns a short description shown by /help
	Description() string

	// Execute runs the command with everything after the name as args
	Execute(ctx context.Context, args string) (string, error)
}

// Registry holds all registered slash commands
type Registry struct {
	commands map[string]Command
	order    []string // Preserve insertion order for display
}

// NewRegistry creates a new command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		order:    []string{},
	}
}

// Register adds a command to the registry
func (r *Registry) Register(cmd Command) {
	name := cmd.Name()
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns all registered commands in registration order
func (r *Registry) List() []Command {
	cmds := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}

// Names returns the names of all registered commands
func (r *Registry) Names() []string {
	return r.order
}

// IsCommand reports whether input is a slash command rather than a question.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Parse splits "/name rest of line" into its name and args.
func Parse(input string) (name, args string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, args, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// Dispatch parses input and runs the matching command.
func (r *Registry) Dispatch(ctx context.Context, input string) (string, error) {
	name, args := Parse(input)
	cmd, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
	}
	return cmd.Execute(ctx, args)
}
