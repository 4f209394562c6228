// Package diag keeps an in-memory record of diagnostic log output.
//
// Store is an append-only buffer of log entries with a fixed capacity; once
// full, the oldest entries are discarded and counted in Dropped. A capacity
// of zero keeps every entry, which Unbounded reports so callers can decide to
// cap it. Live listeners attach with Subscribe and detach through the
// returned Subscription.
//
// Handler is a slog.Handler that appends every record it handles to a Store
// before forwarding it to the next handler, so the usual *slog.Logger calls
// populate the store.
package diag
