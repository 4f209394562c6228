// Package dispose provides ordered lists of cleanup actions.
//
// A List holds Disposers in insertion order and runs each of them at most
// once. Two policies control how a run behaves:
//
//   - Settled: a failing disposer is logged and the run continues. Dispose
//     never returns an error.
//   - Async: every disposer runs on its own goroutine and Dispose awaits it
//     (or the context) before moving on to the next one.
//
// Go functions are not comparable, so Push returns an *Entry that identifies
// the pushed disposer for a later Remove:
//
//	list := dispose.New(dispose.Settled())
//	e := list.Push(dispose.Func(unsubscribe))
//	list.Remove(e)               // unsubscribe will never run
//	_ = list.Dispose(ctx)        // runs the rest, in order
//
// Entries may be pushed or removed from inside a running disposer. A run
// works on a snapshot taken when it starts, so entries pushed during the run
// wait for the next one, and entries removed during the run are skipped.
// Every entry is claimed before it executes, which keeps nested or
// concurrent runs on the same list from executing an entry twice.
package dispose
