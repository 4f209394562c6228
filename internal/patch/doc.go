// Package patch provides reversible, layered interception of methods on live
// objects.
//
// An object that allows interception exposes its interceptable methods as
// typed slots (Method) collected in a Table, and implements Target. Callers
// of the object always go through the slot:
//
//	type Registry struct {
//	    methods *patch.Table
//	    load    *patch.Method[LoadFunc]
//	}
//
//	func (r *Registry) Load(ctx context.Context, id string) (*Plugin, error) {
//	    return r.load.Get()(ctx, id)
//	}
//
// Patch rebinds a slot. The factory receives whatever implementation is
// exposed at that moment, which may already be another wrapper, so patches
// compose as a chain from the most recently installed one down to the base
// implementation:
//
//	h, err := patch.Patch(registry, "load", func(next LoadFunc) LoadFunc {
//	    return func(ctx context.Context, id string) (*Plugin, error) {
//	        p, err := next(ctx, id)
//	        // inspect p
//	        return p, err
//	    }
//	})
//	defer h.Revert()
//
// Each slot keeps its active patches in installation order. Reverting the
// most recent patch restores the implementation observed right before it was
// installed. Reverting any other patch rebuilds the exposed implementation by
// re-applying the remaining factories, oldest first, over the base
// implementation, so factories should be cheap and free of side effects.
// Revert is idempotent.
//
// Factories may read the slot they are applied to, through Get or a
// Handle, but must not patch or revert it.
package patch
