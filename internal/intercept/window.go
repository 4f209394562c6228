package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/dispose"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
)

// WindowPatcher patches one window and returns the action undoing it.
// A nil revert means there is nothing to undo.
type WindowPatcher func(w host.Window) (revert func(), err error)

// InterceptWindows applies patcher to the current window and to every
// window opened afterwards. A window's patch is reverted when that window
// closes. The returned revert stops patching new windows and reverts the
// patches of windows that are still open.
//
// A patcher error on the current window fails the install; the open
// listener is removed before the error is returned. Errors on later windows
// are logged.
func InterceptWindows(ws host.Workspace, logger *slog.Logger, patcher WindowPatcher) (func(), error) {
	if ws == nil {
		return nil, ErrNilWorkspace
	}
	if patcher == nil {
		return nil, ErrNilPatcher
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("interceptor", "windows")

	open := dispose.New(dispose.Settled(), dispose.WithLogger(logger))

	patchWindow := func(w host.Window) error {
		revert, err := runWindowPatcher(patcher, w)
		if err != nil {
			return err
		}

		var once sync.Once
		undo := func() {
			once.Do(func() {
				if revert != nil {
					revert()
				}
			})
		}

		var (
			mu       sync.Mutex
			closeSub host.Subscription
			entry    *dispose.Entry
			done     bool
		)
		release := func() {
			mu.Lock()
			sub := closeSub
			done = true
			mu.Unlock()
			if sub != nil {
				sub.Unsubscribe()
			}
			undo()
		}

		id := w.ID()
		sub := ws.On(host.EventWindowClose, func(closed host.Window) {
			if closed == nil || closed.ID() != id {
				return
			}
			mu.Lock()
			e := entry
			mu.Unlock()
			if e != nil {
				open.Remove(e)
			}
			release()
			logger.Debug("window closed, patch reverted", "window", id)
		})

		mu.Lock()
		closeSub = sub
		alreadyClosed := done
		if !alreadyClosed {
			entry = open.Defer(release)
		}
		mu.Unlock()
		if alreadyClosed && sub != nil {
			sub.Unsubscribe()
		}
		return nil
	}

	openSub := ws.On(host.EventWindowOpen, func(w host.Window) {
		if w == nil {
			return
		}
		if err := patchWindow(w); err != nil {
			logger.Error("window patcher failed", "window", w.ID(), "error", err)
		}
	})

	if current := ws.CurrentWindow(); current != nil {
		if err := patchWindow(current); err != nil {
			ws.Offref(openSub)
			_ = open.Dispose(context.Background())
			return nil, fmt.Errorf("patch window %s: %w", current.ID(), err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ws.Offref(openSub)
			// Settled lists never fail.
			_ = open.Dispose(context.Background())
			logger.Debug("window interceptor reverted")
		})
	}, nil
}

func runWindowPatcher(patcher WindowPatcher, w host.Window) (revert func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("patcher panic: %v", r)
		}
	}()
	return patcher(w)
}
