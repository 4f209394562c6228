package hostkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

// PluginRegistry loads and unloads Lua plugins by id.
type PluginRegistry struct {
	mu sync.RWMutex

	logger    *slog.Logger
	sources   map[string]string
	plugins   map[string]*Plugin
	loadOrder []string

	methods *patch.Table
	load    *patch.Method[host.LoadFunc]
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry(logger *slog.Logger) *PluginRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &PluginRegistry{
		logger:  logger,
		sources: make(map[string]string),
		plugins: make(map[string]*Plugin),
		methods: patch.NewTable(),
	}
	r.load = patch.Register(r.methods, host.MethodLoadPlugin, host.LoadFunc(r.loadPlugin))
	r.load.SetLogger(logger)
	return r
}

// Methods returns the registry's interceptable methods.
func (r *PluginRegistry) Methods() *patch.Table {
	return r.methods
}

// Define makes a Lua plugin available under id. Redefining an id replaces
// its source for future loads.
func (r *PluginRegistry) Define(id, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = source
}

// Available returns the ids of all defined plugins in sorted order.
func (r *PluginRegistry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load loads the plugin id through the loadPlugin slot.
func (r *PluginRegistry) Load(ctx context.Context, id string) (host.Plugin, error) {
	return r.load.Get()(ctx, id)
}

// loadPlugin is the unpatched loader.
func (r *PluginRegistry) loadPlugin(ctx context.Context, id string) (host.Plugin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	_, loaded := r.plugins[id]
	source, defined := r.sources[id]
	r.mu.RUnlock()

	if loaded {
		return nil, fmt.Errorf("plugin %q: %w", id, ErrAlreadyLoaded)
	}
	if !defined {
		return nil, fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
	}

	// Script execution happens outside the registry lock.
	p, err := newPlugin(id, source, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin %q: %w", id, err)
	}

	r.mu.Lock()
	if _, exists := r.plugins[id]; exists {
		r.mu.Unlock()
		_ = p.unload(ctx)
		return nil, fmt.Errorf("plugin %q: %w", id, ErrAlreadyLoaded)
	}
	r.plugins[id] = p
	r.loadOrder = append(r.loadOrder, id)
	r.mu.Unlock()

	r.logger.Debug("plugin loaded", "plugin", id)
	return p, nil
}

// Unload unloads the plugin id, running its registered cleanups.
func (r *PluginRegistry) Unload(ctx context.Context, id string) error {
	r.mu.Lock()
	p, exists := r.plugins[id]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", id, ErrNotLoaded)
	}
	delete(r.plugins, id)
	r.removeFromLoadOrder(id)
	r.mu.Unlock()

	if err := p.unload(ctx); err != nil {
		return fmt.Errorf("failed to unload plugin %q: %w", id, err)
	}
	r.logger.Debug("plugin unloaded", "plugin", id)
	return nil
}

// UnloadAll unloads all plugins in reverse load order.
func (r *PluginRegistry) UnloadAll(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, len(r.loadOrder))
	for i, id := range r.loadOrder {
		ids[len(r.loadOrder)-1-i] = id
	}
	r.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := r.Unload(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetPlugin returns the loaded plugin id.
func (r *PluginRegistry) GetPlugin(id string) (host.Plugin, bool) {
	p, ok := r.Plugin(id)
	if !ok {
		return nil, false
	}
	return p, true
}

// Plugin returns the loaded plugin id with its concrete type.
func (r *PluginRegistry) Plugin(id string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Loaded returns the ids of loaded plugins in load order.
func (r *PluginRegistry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.loadOrder...)
}

// removeFromLoadOrder must be called with mu held.
func (r *PluginRegistry) removeFromLoadOrder(id string) {
	for i, n := range r.loadOrder {
		if n == id {
			r.loadOrder = append(r.loadOrder[:i], r.loadOrder[i+1:]...)
			return
		}
	}
}
