package diag

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries retained by default.
const DefaultCapacity = 1000

// Entry is one recorded log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Attr returns the value of the named attribute.
func (e Entry) Attr(key string) (any, bool) {
	v, ok := e.Attrs[key]
	return v, ok
}

// Listener receives entries as they are recorded.
// Listeners are called synchronously and must not block.
type Listener func(Entry)

// Store is a bounded, append-only log buffer.
type Store struct {
	mu sync.RWMutex

	capacity int
	entries  []Entry
	start    int
	dropped  uint64

	listenerPanics uint64
	reporting      atomic.Bool

	listeners map[uuid.UUID]Listener
	order     []uuid.UUID
}

// NewStore creates a store retaining at most capacity entries.
// A capacity of zero or less keeps every entry.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		capacity:  capacity,
		entries:   make([]Entry, 0),
		listeners: make(map[uuid.UUID]Listener),
	}
}

// Capacity returns the retention limit, zero meaning unbounded.
func (s *Store) Capacity() int {
	return s.capacity
}

// Unbounded reports whether the store grows without limit.
func (s *Store) Unbounded() bool {
	return s.capacity == 0
}

// Append records an entry and notifies listeners.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	if s.capacity > 0 && len(s.entries) == s.capacity {
		s.entries[s.start] = e
		s.start = (s.start + 1) % s.capacity
		s.dropped++
	} else {
		s.entries = append(s.entries, e)
	}

	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.listenerFailed(r)
				}
			}()
			l(e)
		}()
	}
}

// listenerFailed counts a listener panic and reports it to the default
// logger. The default logger may record into this store, so a report
// raised while reporting is only counted.
func (s *Store) listenerFailed(r any) {
	s.mu.Lock()
	s.listenerPanics++
	s.mu.Unlock()

	if !s.reporting.CompareAndSwap(false, true) {
		return
	}
	defer s.reporting.Store(false)
	slog.Default().Error("diagnostics listener panicked", "panic", r)
}

// Entries returns the retained entries, oldest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	out = append(out, s.entries[s.start:]...)
	out = append(out, s.entries[:s.start]...)
	return out
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dropped returns how many entries were discarded to honor the capacity.
func (s *Store) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// ListenerPanics returns how many listener calls panicked.
func (s *Store) ListenerPanics() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listenerPanics
}

// Clear discards every retained entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
	s.start = 0
}

// Subscribe registers a listener for new entries.
func (s *Store) Subscribe(l Listener) *Subscription {
	sub := &Subscription{id: uuid.New(), store: s}
	if l == nil {
		sub.cancelled = true
		return sub
	}

	s.mu.Lock()
	s.listeners[sub.id] = l
	s.order = append(s.order, sub.id)
	s.mu.Unlock()
	return sub
}

func (s *Store) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Subscription is a live listener registration.
type Subscription struct {
	id    uuid.UUID
	store *Store

	mu        sync.Mutex
	cancelled bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id.String()
}

// Unsubscribe detaches the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	s.store.unsubscribe(s.id)
}
