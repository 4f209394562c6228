package hostkit

import (
	"context"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/dispose"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

// MethodRun is the name of a plugin's interceptable entry point.
const MethodRun = "run"

// RunFunc invokes a plugin's entry point.
type RunFunc func(ctx context.Context, args ...string) (string, error)

// Plugin is a loaded Lua plugin.
//
// The script may define the globals onload(), onunload() and run(...).
// Cleanups added with Register run in order when the plugin unloads.
type Plugin struct {
	id     string
	logger *slog.Logger

	mu     sync.Mutex
	L      *lua.LState
	closed bool

	cleanups *dispose.List
	methods  *patch.Table
	run      *patch.Method[RunFunc]
}

func newPlugin(id, source string, logger *slog.Logger) (*Plugin, error) {
	p := &Plugin{
		id:       id,
		logger:   logger,
		L:        newLuaState(id, logger),
		cleanups: dispose.New(dispose.Settled(), dispose.WithLogger(logger)),
		methods:  patch.NewTable(),
	}
	p.run = patch.Register(p.methods, MethodRun, RunFunc(p.runLua))
	p.run.SetLogger(logger)

	if err := p.L.DoString(source); err != nil {
		p.L.Close()
		return nil, err
	}
	if _, err := p.call("onload"); err != nil {
		p.L.Close()
		return nil, err
	}
	return p, nil
}

// ID returns the plugin id.
func (p *Plugin) ID() string {
	return p.id
}

// Methods returns the plugin's interceptable methods.
func (p *Plugin) Methods() *patch.Table {
	return p.methods
}

// Register adds a cleanup run when the plugin unloads. On an unloaded
// plugin the cleanup runs immediately.
func (p *Plugin) Register(cleanup func()) {
	if cleanup == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.cleanups.Defer(cleanup)
	}
	p.mu.Unlock()

	if closed {
		cleanup()
	}
}

// Run invokes the plugin's entry point through its patch slot.
func (p *Plugin) Run(ctx context.Context, args ...string) (string, error) {
	return p.run.Get()(ctx, args...)
}

// Loaded reports whether the plugin has not been unloaded.
func (p *Plugin) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *Plugin) runLua(ctx context.Context, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.call("run", args...)
}

func (p *Plugin) call(fn string, args ...string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPluginClosed
	}
	return callLua(p.L, fn, args...)
}

// unload runs onunload and the registered cleanups, then closes the Lua
// state.
func (p *Plugin) unload(ctx context.Context) error {
	_, err := p.call("onunload")
	if err != nil {
		p.logger.Warn("plugin onunload failed", "plugin", p.id, "error", err)
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	// Settled lists never fail.
	_ = p.cleanups.Dispose(ctx)

	p.mu.Lock()
	p.L.Close()
	p.mu.Unlock()
	return err
}
