package hostkit

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
)

// Window is a workspace window.
type Window struct {
	id string
}

// ID returns the window id.
func (w *Window) ID() string {
	return w.id
}

type listener struct {
	id    uuid.UUID
	event string
	fn    func(host.Window)
}

// Subscription is a handle to a workspace listener.
type Subscription struct {
	id    uuid.UUID
	event string
	ws    *Workspace
	once  sync.Once
}

// ID returns the subscription id.
func (s *Subscription) ID() string {
	return s.id.String()
}

// Event returns the subscribed event name.
func (s *Subscription) Event() string {
	return s.event
}

// Unsubscribe removes the listener. Calling it again does nothing.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.ws.remove(s.event, s.id)
	})
}

// Workspace holds the open windows and notifies listeners when windows open
// and close. The most recently opened window is current.
type Workspace struct {
	mu sync.RWMutex

	logger    *slog.Logger
	windows   map[string]*Window
	order     []string
	listeners map[string][]listener
}

// NewWorkspace creates a workspace with one initial window.
func NewWorkspace(initial string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	ws := &Workspace{
		logger:    logger,
		windows:   make(map[string]*Window),
		listeners: make(map[string][]listener),
	}
	if initial != "" {
		ws.windows[initial] = &Window{id: initial}
		ws.order = append(ws.order, initial)
	}
	return ws
}

// On subscribes fn to event.
func (ws *Workspace) On(event string, fn func(host.Window)) host.Subscription {
	sub := &Subscription{id: uuid.New(), event: event, ws: ws}
	if fn == nil {
		return sub
	}

	ws.mu.Lock()
	ws.listeners[event] = append(ws.listeners[event], listener{id: sub.id, event: event, fn: fn})
	ws.mu.Unlock()
	return sub
}

// Offref removes the listener behind sub.
func (ws *Workspace) Offref(sub host.Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (ws *Workspace) remove(event string, id uuid.UUID) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ls := ws.listeners[event]
	for i, l := range ls {
		if l.id == id {
			ws.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners for event.
func (ws *Workspace) ListenerCount(event string) int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.listeners[event])
}

// CurrentWindow returns the most recently opened window still open.
func (ws *Workspace) CurrentWindow() host.Window {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if len(ws.order) == 0 {
		return nil
	}
	return ws.windows[ws.order[len(ws.order)-1]]
}

// Windows returns the ids of open windows in open order.
func (ws *Workspace) Windows() []string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return append([]string(nil), ws.order...)
}

// OpenWindow opens a window and notifies open listeners.
func (ws *Workspace) OpenWindow(id string) (*Window, error) {
	ws.mu.Lock()
	if _, exists := ws.windows[id]; exists {
		ws.mu.Unlock()
		return nil, fmt.Errorf("window %q: %w", id, ErrWindowExists)
	}
	w := &Window{id: id}
	ws.windows[id] = w
	ws.order = append(ws.order, id)
	ws.mu.Unlock()

	ws.emit(host.EventWindowOpen, w)
	return w, nil
}

// CloseWindow closes a window and notifies close listeners.
func (ws *Workspace) CloseWindow(id string) error {
	ws.mu.Lock()
	w, exists := ws.windows[id]
	if !exists {
		ws.mu.Unlock()
		return fmt.Errorf("window %q: %w", id, ErrWindowNotFound)
	}
	delete(ws.windows, id)
	for i, n := range ws.order {
		if n == id {
			ws.order = append(ws.order[:i], ws.order[i+1:]...)
			break
		}
	}
	ws.mu.Unlock()

	ws.emit(host.EventWindowClose, w)
	return nil
}

// emit calls the listeners registered when emission starts, outside the
// lock. Panics are logged and do not stop later listeners.
func (ws *Workspace) emit(event string, w host.Window) {
	ws.mu.RLock()
	ls := append([]listener(nil), ws.listeners[event]...)
	ws.mu.RUnlock()

	for _, l := range ls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					ws.logger.Error("workspace listener panic",
						"event", event,
						"window", w.ID(),
						"panic", r,
						"stack", string(debug.Stack()))
				}
			}()
			l.fn(w)
		}()
	}
}
