package patch

import (
	"fmt"
	"sort"
	"sync"
)

// Target is an object whose methods can be patched.
type Target interface {
	// Methods returns the table of interceptable methods.
	Methods() *Table
}

// slot is the type-erased view of a Method held by a Table.
type slot interface {
	Name() string
	Len() int
}

// Table holds the named interceptable methods of one object.
type Table struct {
	mu    sync.RWMutex
	slots map[string]slot
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		slots: make(map[string]slot),
	}
}

// Register creates a slot named name with the base implementation impl and
// adds it to t. It panics if the name is taken.
func Register[F any](t *Table, name string, impl F) *Method[F] {
	m := NewMethod(name, impl)
	if err := t.add(m); err != nil {
		panic(err)
	}
	return m
}

func (t *Table) add(s slot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.slots[s.Name()]; exists {
		return fmt.Errorf("method %q already registered", s.Name())
	}
	t.slots[s.Name()] = s
	return nil
}

// Lookup returns the slot registered under name.
func (t *Table) Lookup(name string) (any, bool) {
	if t == nil {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.slots[name]
	return s, ok
}

// Names returns the registered method names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.slots))
	for name := range t.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the number of active patches per method.
func (t *Table) Active() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := make(map[string]int, len(t.slots))
	for name, s := range t.slots {
		active[name] = s.Len()
	}
	return active
}

// Patch installs factory on the method name of target.
func Patch[F any](target Target, name string, factory func(F) F) (*Handle[F], error) {
	if target == nil {
		return nil, &EstablishmentError{Method: name, Err: ErrNilTarget}
	}

	raw, ok := target.Methods().Lookup(name)
	if !ok {
		return nil, &EstablishmentError{Method: name, Err: ErrMethodNotFound}
	}

	m, ok := raw.(*Method[F])
	if !ok {
		return nil, &EstablishmentError{
			Method: name,
			Err:    fmt.Errorf("%w: want %T", ErrMethodType, m),
		}
	}

	return m.Patch(factory)
}

// Get returns the implementation currently exposed by method name of target.
func Get[F any](target Target, name string) (F, error) {
	var zero F
	if target == nil {
		return zero, ErrNilTarget
	}

	raw, ok := target.Methods().Lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	m, ok := raw.(*Method[F])
	if !ok {
		return zero, fmt.Errorf("%w: %s is not %T", ErrMethodType, name, m)
	}
	return m.Get(), nil
}
