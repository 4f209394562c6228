package hostkit

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
)

// Command is a registered command.
type Command struct {
	id         string
	name       string
	repeatable bool
	run        func() bool
}

// ID returns the command id.
func (c *Command) ID() string { return c.id }

// Name returns the display name.
func (c *Command) Name() string { return c.name }

// Repeatable reports whether the command runs on auto-repeat events.
func (c *Command) Repeatable() bool { return c.repeatable }

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithName sets the display name.
func WithName(name string) CommandOption {
	return func(c *Command) {
		c.name = name
	}
}

// Repeatable marks the command as runnable on auto-repeat events.
func Repeatable() CommandOption {
	return func(c *Command) {
		c.repeatable = true
	}
}

// Commands is the command registry.
type Commands struct {
	mu sync.RWMutex

	logger   *slog.Logger
	commands map[string]*Command
	history  []string
}

// NewCommands creates an empty registry.
func NewCommands(logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		logger:   logger,
		commands: make(map[string]*Command),
	}
}

// Add registers a command whose run reports whether it handled the
// invocation. A command with the same id is replaced.
func (c *Commands) Add(id string, run func() bool, opts ...CommandOption) *Command {
	cmd := &Command{id: id, name: id, run: run}
	for _, opt := range opts {
		opt(cmd)
	}

	c.mu.Lock()
	c.commands[id] = cmd
	c.mu.Unlock()
	return cmd
}

// Remove unregisters a command.
func (c *Commands) Remove(id string) {
	c.mu.Lock()
	delete(c.commands, id)
	c.mu.Unlock()
}

// FindCommand returns the command registered under id.
func (c *Commands) FindCommand(id string) (host.Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cmd, ok := c.commands[id]
	if !ok {
		return nil, false
	}
	return cmd, true
}

// IDs returns all command ids in sorted order.
func (c *Commands) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.commands))
	for id := range c.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Suggest returns the registered id closest to id by edit distance, for
// reporting misspelled ids. It reports false when nothing is close.
func (c *Commands) Suggest(id string) (string, bool) {
	limit := max(2, len(id)/3)
	best, bestDist := "", limit+1
	for _, candidate := range c.IDs() {
		if d := levenshtein.ComputeDistance(id, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}

// ExecuteCommand runs cmd. A panicking command counts as not handled.
func (c *Commands) ExecuteCommand(cmd host.Command) (handled bool) {
	if cmd == nil {
		return false
	}

	c.mu.RLock()
	registered, ok := c.commands[cmd.ID()]
	c.mu.RUnlock()
	if !ok || registered.run == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("command panic", "command", cmd.ID(), "panic", r)
			handled = false
		}
	}()

	c.mu.Lock()
	c.history = append(c.history, cmd.ID())
	c.mu.Unlock()

	return registered.run()
}

// History returns the ids of executed commands in execution order.
func (c *Commands) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.history...)
}
