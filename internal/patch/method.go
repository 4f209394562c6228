package patch

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Method is an interceptable method slot holding a base implementation and
// an ordered stack of active patches.
type Method[F any] struct {
	// wmu serializes stack changes and is held while factories run. mu
	// guards the fields below against readers and is never held across a
	// factory call.
	wmu sync.Mutex
	mu  sync.RWMutex

	name    string
	base    F
	current F
	stack   []*Handle[F]

	// baseGen changes whenever the base implementation is replaced.
	baseGen uint64

	logger *slog.Logger
}

// NewMethod creates a slot with the given base implementation.
func NewMethod[F any](name string, impl F) *Method[F] {
	return &Method[F]{
		name:    name,
		base:    impl,
		current: impl,
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger used to report factories failing during
// recomposition.
func (m *Method[F]) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	m.wmu.Lock()
	defer m.wmu.Unlock()
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Name returns the method name.
func (m *Method[F]) Name() string {
	return m.name
}

// Get returns the implementation currently exposed by the slot.
func (m *Method[F]) Get() F {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Base returns the unpatched implementation.
func (m *Method[F]) Base() F {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.base
}

// SetBase replaces the unpatched implementation. Active patches are
// re-applied over the new base.
func (m *Method[F]) SetBase(impl F) {
	m.wmu.Lock()
	defer m.wmu.Unlock()

	m.recompose(impl, m.stack, m.baseGen+1)
}

// Len returns the number of active patches.
func (m *Method[F]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stack)
}

// Patch installs factory over the currently exposed implementation.
//
// The factory runs with the slot unlocked for readers, so it may call Get.
// It must not patch or revert the same slot.
func (m *Method[F]) Patch(factory func(F) F) (*Handle[F], error) {
	if factory == nil {
		return nil, &EstablishmentError{Method: m.name, Err: ErrNilImplementation}
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()

	// Every write holds wmu, so these reads need no further locking.
	previous := m.current
	next, err := apply(factory, previous)
	if err != nil {
		return nil, &EstablishmentError{Method: m.name, Err: err}
	}

	h := &Handle[F]{
		id:       uuid.New(),
		method:   m,
		factory:  factory,
		previous: previous,
		current:  next,
		baseGen:  m.baseGen,
	}

	m.mu.Lock()
	m.stack = append(m.stack, h)
	m.current = next
	m.mu.Unlock()
	return h, nil
}

// remove drops h from the stack and updates the exposed implementation.
func (m *Method[F]) remove(h *Handle[F]) {
	m.wmu.Lock()
	defer m.wmu.Unlock()

	idx := slices.Index(m.stack, h)
	if idx < 0 {
		return
	}

	top := idx == len(m.stack)-1
	stack := slices.Delete(slices.Clone(m.stack), idx, idx+1)

	if top && h.baseGen == m.baseGen {
		m.mu.Lock()
		m.stack = stack
		m.current = h.previous
		m.mu.Unlock()
		return
	}
	m.recompose(m.base, stack, m.baseGen)
}

// layer is one factory re-applied during recomposition.
type layer[F any] struct {
	h                 *Handle[F]
	previous, current F
}

// recompose rebuilds the exposed implementation from base and the
// factories of stack, oldest first, and installs the result. Factories that
// fail are dropped. Caller must hold wmu.
func (m *Method[F]) recompose(base F, stack []*Handle[F], baseGen uint64) {
	current := base
	layers := make([]layer[F], 0, len(stack))
	var dropped []*Handle[F]
	for _, h := range stack {
		next, err := apply(h.factory, current)
		if err != nil {
			m.logger.Error("dropping patch that failed to recompose",
				"method", m.name, "patch", h.id.String(), "error", err)
			dropped = append(dropped, h)
			continue
		}
		layers = append(layers, layer[F]{h: h, previous: current, current: next})
		current = next
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]*Handle[F], 0, len(layers))
	for _, l := range layers {
		l.h.previous = l.previous
		l.h.current = l.current
		l.h.baseGen = baseGen
		kept = append(kept, l.h)
	}
	for _, h := range dropped {
		h.dropped = true
	}
	m.base = base
	m.baseGen = baseGen
	m.stack = kept
	m.current = current
}

// apply calls factory, converting panics and nil results into errors.
func apply[F any](factory func(F) F, impl F) (next F, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFactoryPanic, r)
		}
	}()

	next = factory(impl)
	if isNil(next) {
		return next, ErrNilImplementation
	}
	return next, nil
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
