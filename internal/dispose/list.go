package dispose

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Disposer is a cleanup action.
// It should tolerate being invoked more than once.
type Disposer func(ctx context.Context) error

// Func adapts an error-free cleanup to a Disposer.
func Func(fn func()) Disposer {
	return func(context.Context) error {
		if fn != nil {
			fn()
		}
		return nil
	}
}

// Entry identifies a disposer pushed onto a List.
type Entry struct {
	fn      Disposer
	claimed bool
}

// Option configures a List.
type Option func(*List)

// Settled makes the list continue past failing disposers.
func Settled() Option {
	return func(l *List) {
		l.settled = true
	}
}

// Async makes the list run each disposer on its own goroutine and await it.
func Async() Option {
	return func(l *List) {
		l.async = true
	}
}

// WithLogger sets the logger used to report disposer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *List) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// List is an ordered collection of disposers.
type List struct {
	mu      sync.Mutex
	entries []*Entry

	settled bool
	async   bool
	logger  *slog.Logger
}

// New creates an empty list.
func New(opts ...Option) *List {
	l := &List{
		entries: make([]*Entry, 0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsSettled reports whether the list continues past failures.
func (l *List) IsSettled() bool {
	return l.settled
}

// IsAsync reports whether disposers are awaited on their own goroutine.
func (l *List) IsAsync() bool {
	return l.async
}

// Push appends a disposer and returns its entry.
// A nil disposer is accepted and does nothing when run.
func (l *List) Push(d Disposer) *Entry {
	e := &Entry{fn: d}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	return e
}

// Defer appends an error-free cleanup.
func (l *List) Defer(fn func()) *Entry {
	return l.Push(Func(fn))
}

// Remove deletes a pending entry. It reports whether the entry was pending.
func (l *List) Remove(e *Entry) bool {
	if e == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, existing := range l.entries {
		if existing == e {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return !e.claimed
		}
	}
	return false
}

// Len returns the number of pending entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Call is an alias for Dispose.
func (l *List) Call(ctx context.Context) error {
	return l.Dispose(ctx)
}

// Dispose runs every pending disposer in insertion order.
//
// Under the settled policy failures are logged and Dispose returns nil.
// Otherwise the first failure stops the run and is returned as a
// *TeardownError; entries attempted so far stay consumed.
func (l *List) Dispose(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	snapshot := make([]*Entry, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for i, e := range snapshot {
		if !l.claim(e) {
			continue
		}

		err := l.run(ctx, e.fn)
		if err == nil {
			continue
		}

		terr := &TeardownError{Index: i, Err: err}
		if !l.settled {
			return terr
		}
		l.logger.Error("disposer failed", "index", i, "error", err)
	}
	return nil
}

// claim marks e as consumed and removes it from the pending entries.
// It returns false if e was already claimed or removed.
func (l *List) claim(e *Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.claimed {
		return false
	}
	for i, existing := range l.entries {
		if existing == e {
			e.claimed = true
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *List) run(ctx context.Context, d Disposer) error {
	if d == nil {
		return nil
	}
	if !l.async {
		return invoke(ctx, d)
	}

	done := make(chan error, 1)
	go func() {
		done <- invoke(ctx, d)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// invoke calls d, converting a panic into an error.
func invoke(ctx context.Context, d Disposer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrDisposerPanic, r, debug.Stack())
		}
	}()
	return d(ctx)
}
