package intercept

import (
	"context"
	"fmt"
	"sync"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/dispose"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/private"
)

// PluginPatcher patches a loaded plugin and returns the action undoing it.
// A nil revert means there is nothing to undo.
type PluginPatcher func(ctx context.Context, p host.Plugin) (revert func(), err error)

const surfacePlugins = "plugins"

// InterceptLoad applies patcher to the plugin targetID now if it is loaded,
// and again after every successful load of it. Each applied patch is
// reverted when the plugin unloads or when the returned revert runs,
// whichever comes first.
//
// Patcher failures are logged and never change what the loader returns. If
// the plugin registry cannot be reached the interceptor degrades to a no-op.
func InterceptLoad(ctx context.Context, hc *host.Context, targetID string, patcher PluginPatcher) (func(), error) {
	if hc == nil || hc.App() == nil {
		return nil, ErrNilContext
	}
	if patcher == nil {
		return nil, ErrNilPatcher
	}

	logger := hc.Logger().With("interceptor", "load", "plugin", targetID)
	active := dispose.New(dispose.Settled(), dispose.WithLogger(logger))

	// closed is set by the returned revert. A load already past the
	// loader when it runs must not leave a patch behind.
	var (
		mu     sync.Mutex
		closed bool
	)
	isClosed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return closed
	}

	apply := func(ctx context.Context, p host.Plugin) {
		if isClosed() {
			return
		}
		revert, err := runPluginPatcher(ctx, patcher, p)
		if err != nil {
			logger.Error("plugin patcher failed", "error", err)
			return
		}
		if revert == nil {
			return
		}

		var once sync.Once
		undo := func() { once.Do(revert) }

		mu.Lock()
		if closed {
			mu.Unlock()
			undo()
			logger.Debug("reverted patch applied during teardown")
			return
		}
		entry := active.Defer(undo)
		mu.Unlock()

		p.Register(func() {
			active.Remove(entry)
			undo()
		})
		logger.Debug("patched plugin")
	}

	wrap := func(next host.LoadFunc) host.LoadFunc {
		return func(ctx context.Context, id string) (host.Plugin, error) {
			p, err := next(ctx, id)
			if err != nil || p == nil {
				return p, err
			}
			if p.ID() != id {
				logger.Debug("loaded plugin id differs from requested id", "requested", id, "loaded", p.ID())
			}
			if p.ID() == targetID {
				apply(ctx, p)
			}
			return p, err
		}
	}

	type installed struct {
		registry host.PluginRegistry
		handle   *patch.Handle[host.LoadFunc]
	}
	inst := private.Guard(hc, surfacePlugins, func() (installed, error) {
		surface, err := private.Probe[host.PluginSurface](hc.App().Internals(), surfacePlugins)
		if err != nil {
			return installed{}, err
		}
		registry := surface.Plugins()
		h, err := patch.Patch(registry, host.MethodLoadPlugin, wrap)
		if err != nil {
			return installed{}, err
		}
		return installed{registry: registry, handle: h}, nil
	}, nil)

	if inst.handle == nil {
		return func() {}, nil
	}

	if p, ok := inst.registry.GetPlugin(targetID); ok && p != nil {
		apply(ctx, p)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			closed = true
			mu.Unlock()

			inst.handle.Revert()
			// Settled lists never fail.
			_ = active.Dispose(context.Background())
			logger.Debug("load interceptor reverted")
		})
	}, nil
}

func runPluginPatcher(ctx context.Context, patcher PluginPatcher, p host.Plugin) (revert func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("patcher panic: %v", r)
		}
	}()
	return patcher(ctx, p)
}
