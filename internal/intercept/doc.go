// Package intercept installs reversible interceptions on a live host.
//
// Three interceptors are provided:
//
//   - InterceptLoad patches a specific plugin each time the host loads it.
//   - InterceptWindows patches every window for as long as it is open.
//   - InterceptHotkeys narrows the host's hotkey compilation to an
//     allow-set of command ids and dispatches key events against the result.
//
// Every install returns a single revert action (or a Rebaker whose Close is
// one). Reverts are idempotent, never panic, and may be called from inside
// an unrelated teardown. Host internals are reached only through the
// private package, so a host whose internal shape changed leaves the
// interceptor installed as a no-op with a logged warning.
package intercept
