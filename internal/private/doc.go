// Package private guards access to undocumented host internals.
//
// Host internals carry no stability contract: a host update may remove a
// field, rename a method or change a signature. Every touch of such a
// surface goes through Guard (or GuardContext), which turns any failure into
// a logged warning and a caller-chosen fallback value instead of an error
// that escapes to the caller.
//
// Surfaces are described as small capability interfaces and checked
// structurally on every access with Probe; optional values with a documented
// default are described with Field. Nothing probed is cached, so a surface
// that changes shape at runtime is noticed on the next access.
//
//	n := private.Guard(diag, "hotkeys", func() (int, error) {
//	    hk, err := private.Probe[host.HotkeySurface](app.Internals(), "hotkeys")
//	    if err != nil {
//	        return 0, err
//	    }
//	    ids, _ := hk.Hotkeys().Baked()
//	    return len(ids), nil
//	}, func(error) int { return 0 })
package private
