package patch

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is one installed patch on a Method.
type Handle[F any] struct {
	id      uuid.UUID
	method  *Method[F]
	factory func(F) F

	// previous and current are guarded by method.mu.
	previous F
	current  F
	baseGen  uint64
	dropped  bool

	once sync.Once
}

// ID returns the patch identifier.
func (h *Handle[F]) ID() uuid.UUID {
	return h.id
}

// Method returns the patched method name.
func (h *Handle[F]) Method() string {
	return h.method.name
}

// Previous returns the implementation this patch wraps.
func (h *Handle[F]) Previous() F {
	h.method.mu.RLock()
	defer h.method.mu.RUnlock()
	return h.previous
}

// Current returns the wrapper this patch installed.
func (h *Handle[F]) Current() F {
	h.method.mu.RLock()
	defer h.method.mu.RUnlock()
	return h.current
}

// Active reports whether the patch is still installed.
func (h *Handle[F]) Active() bool {
	h.method.mu.RLock()
	defer h.method.mu.RUnlock()

	if h.dropped {
		return false
	}
	for _, existing := range h.method.stack {
		if existing == h {
			return true
		}
	}
	return false
}

// Revert uninstalls the patch. Calling it again does nothing.
func (h *Handle[F]) Revert() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.method.remove(h)
	})
}
