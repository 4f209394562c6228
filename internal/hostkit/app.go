package hostkit

import (
	"log/slog"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
)

// Internals is the undocumented object graph returned by App.Internals.
type Internals struct {
	plugins *PluginRegistry
	hotkeys *HotkeyManager
}

// Plugins returns the plugin registry.
func (i *Internals) Plugins() host.PluginRegistry {
	return i.plugins
}

// Hotkeys returns the hotkey manager.
func (i *Internals) Hotkeys() host.HotkeyManager {
	return i.hotkeys
}

// Options configures an App.
type Options struct {
	// Logger receives host log output. Nil uses slog.Default.
	Logger *slog.Logger

	// Window is the id of the initially open window. Empty means "main".
	Window string

	// DefaultHotkeys is the initial default hotkey table.
	DefaultHotkeys map[string][]key.Hotkey
}

// App is the host application.
type App struct {
	logger    *slog.Logger
	workspace *Workspace
	commands  *Commands
	internals *Internals
}

// NewApp creates an application. The hotkey tables are baked once, as a
// host does at startup.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := opts.Window
	if window == "" {
		window = "main"
	}

	a := &App{
		logger:    logger,
		workspace: NewWorkspace(window, logger),
		commands:  NewCommands(logger),
		internals: &Internals{
			plugins: NewPluginRegistry(logger),
			hotkeys: NewHotkeyManager(opts.DefaultHotkeys, logger),
		},
	}
	a.internals.hotkeys.Bake()
	return a
}

// Workspace implements host.App.
func (a *App) Workspace() host.Workspace {
	return a.workspace
}

// Commands implements host.App.
func (a *App) Commands() host.Commands {
	return a.commands
}

// Internals implements host.App.
func (a *App) Internals() any {
	return a.internals
}

// Windows returns the concrete workspace.
func (a *App) Windows() *Workspace {
	return a.workspace
}

// CommandRegistry returns the concrete command registry.
func (a *App) CommandRegistry() *Commands {
	return a.commands
}

// PluginRegistry returns the concrete plugin registry.
func (a *App) PluginRegistry() *PluginRegistry {
	return a.internals.plugins
}

// HotkeyManager returns the concrete hotkey manager.
func (a *App) HotkeyManager() *HotkeyManager {
	return a.internals.hotkeys
}
