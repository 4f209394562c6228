package host

import (
	"context"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

// Names of the interceptable host methods.
const (
	MethodLoadPlugin = "loadPlugin"
	MethodBake       = "bake"
)

// Workspace event names.
const (
	EventWindowOpen  = "window-open"
	EventWindowClose = "window-close"
)

// LoadFunc loads the plugin with the given id.
type LoadFunc func(ctx context.Context, id string) (Plugin, error)

// BakeFunc recompiles the effective hotkey table.
type BakeFunc func()

// Plugin is a loaded plugin.
type Plugin interface {
	ID() string

	// Register adds a cleanup run when the plugin unloads.
	Register(cleanup func())
}

// PluginRegistry loads plugins. Its Methods table exposes MethodLoadPlugin
// as a LoadFunc.
type PluginRegistry interface {
	patch.Target
	GetPlugin(id string) (Plugin, bool)
}

// HotkeyManager owns the default and custom hotkey tables and compiles them
// into the baked table used for dispatch. Its Methods table exposes
// MethodBake as a BakeFunc.
//
// Some host versions also expose IsBaked() bool; it is optional and read
// through private.Field.
type HotkeyManager interface {
	patch.Target

	// Baked returns the compiled hotkeys and the parallel command ids.
	Baked() ([]key.Hotkey, []string)

	DefaultKeys() map[string][]key.Hotkey
	SetDefaultKeys(keys map[string][]key.Hotkey)
	CustomKeys() map[string][]key.Hotkey
	SetHotkeys(id string, keys []key.Hotkey)
	RemoveHotkeys(id string)
}

// Window is a top-level host window.
type Window interface {
	ID() string
}

// Subscription is a registered event listener.
type Subscription interface {
	Unsubscribe()
}

// Workspace manages windows and their events.
type Workspace interface {
	On(event string, fn func(Window)) Subscription
	Offref(sub Subscription)
	CurrentWindow() Window
}

// Command is a registered host command.
type Command interface {
	ID() string

	// Repeatable reports whether the command runs on auto-repeat events.
	Repeatable() bool
}

// Commands looks up and runs commands.
type Commands interface {
	FindCommand(id string) (Command, bool)

	// ExecuteCommand runs cmd and reports whether it handled the invocation.
	ExecuteCommand(cmd Command) bool
}

// App is the host application.
type App interface {
	Workspace() Workspace
	Commands() Commands

	// Internals returns the undocumented internal object graph.
	Internals() any
}

// PluginSurface is the internal surface holding the plugin registry.
type PluginSurface interface {
	Plugins() PluginRegistry
}

// HotkeySurface is the internal surface holding the hotkey manager.
type HotkeySurface interface {
	Hotkeys() HotkeyManager
}
