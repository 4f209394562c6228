package hostkit

import "errors"

// Errors returned by hostkit.
var (
	// ErrPluginNotFound is returned for an id with no plugin source.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyLoaded is returned when loading a loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin already loaded")

	// ErrNotLoaded is returned when unloading a plugin that is not loaded.
	ErrNotLoaded = errors.New("plugin not loaded")

	// ErrPluginClosed is returned when calling into an unloaded plugin.
	ErrPluginClosed = errors.New("plugin closed")

	// ErrWindowNotFound is returned for an unknown window id.
	ErrWindowNotFound = errors.New("window not found")

	// ErrWindowExists is returned when opening a window id twice.
	ErrWindowExists = errors.New("window already open")
)
