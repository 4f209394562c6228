package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/private"
)

const surfaceHotkeys = "hotkeys"

// State is the phase of a Rebaker.
type State int

const (
	// StateIdle means no bake is in progress.
	StateIdle State = iota
	// StateNarrowing means the host tables are being narrowed.
	StateNarrowing
	// StateBaking means the host compiler is running on narrowed tables.
	StateBaking
	// StateRestoring means the host tables are being put back.
	StateRestoring
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNarrowing:
		return "narrowing"
	case StateBaking:
		return "baking"
	case StateRestoring:
		return "restoring"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Snapshot is the result of one narrowed bake: hotkeys in match order and
// the command id owning each.
type Snapshot struct {
	Hotkeys []key.Hotkey
	IDs     []string
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return min(len(s.Hotkeys), len(s.IDs))
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Hotkeys: slices.Clone(s.Hotkeys),
		IDs:     slices.Clone(s.IDs),
	}
}

// filter returns a copy keeping only the entries owned by allowed ids.
func (s Snapshot) filter(allow map[string]struct{}) Snapshot {
	out := Snapshot{}
	for i := 0; i < s.Len(); i++ {
		if _, ok := allow[s.IDs[i]]; !ok {
			continue
		}
		out.Hotkeys = append(out.Hotkeys, s.Hotkeys[i])
		out.IDs = append(out.IDs, s.IDs[i])
	}
	return out
}

// removal is one custom-key entry taken out while narrowing.
type removal struct {
	id   string
	keys []key.Hotkey
}

// Rebaker restricts the host's hotkey compilation to an allow-set of
// command ids and dispatches key events against the narrowed result.
//
// Every host bake while the Rebaker is installed narrows the default and
// custom tables, runs the host compiler, captures the compiled table and
// puts the original tables back. Restoration runs on every exit path,
// including a panicking compiler.
type Rebaker struct {
	hc      *host.Context
	logger  *slog.Logger
	manager host.HotkeyManager
	handle  *patch.Handle[host.BakeFunc]

	mu       sync.Mutex
	allow    map[string]struct{}
	state    State
	snapshot Snapshot
	closed   bool
}

// InterceptHotkeys installs a Rebaker allowing only the given command ids
// and rebakes the host so the narrowed table takes effect. If the hotkey
// manager cannot be reached, the returned Rebaker is inert: it never
// handles an event and Close does nothing.
func InterceptHotkeys(ctx context.Context, hc *host.Context, allow []string) (*Rebaker, error) {
	if hc == nil || hc.App() == nil {
		return nil, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &Rebaker{
		hc:     hc,
		logger: hc.Logger().With("interceptor", "hotkeys"),
		allow:  toSet(allow),
	}

	type installed struct {
		manager host.HotkeyManager
		handle  *patch.Handle[host.BakeFunc]
	}
	inst := private.Guard(hc, surfaceHotkeys, func() (installed, error) {
		surface, err := private.Probe[host.HotkeySurface](hc.App().Internals(), surfaceHotkeys)
		if err != nil {
			return installed{}, err
		}
		manager := surface.Hotkeys()
		h, err := patch.Patch(manager, host.MethodBake, r.wrap)
		if err != nil {
			return installed{}, err
		}
		return installed{manager: manager, handle: h}, nil
	}, nil)

	if inst.handle == nil {
		r.closed = true
		return r, nil
	}
	r.manager = inst.manager
	r.handle = inst.handle

	r.rebake()
	return r, nil
}

// wrap is the bake patch factory.
func (r *Rebaker) wrap(next host.BakeFunc) host.BakeFunc {
	return func() {
		allow, ok := r.begin()
		if !ok {
			next()
			return
		}
		r.bake(next, allow)
	}
}

// begin moves an idle Rebaker into Narrowing and returns the allow-set to
// narrow with. It reports false for a nested bake.
func (r *Rebaker) begin() (map[string]struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return nil, false
	}
	r.state = StateNarrowing
	return r.allow, true
}

func (r *Rebaker) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Rebaker) bake(next host.BakeFunc, allow map[string]struct{}) {
	m := r.manager

	var (
		defaults map[string][]key.Hotkey
		narrowed bool
		removed  []removal
	)

	// Runs on every exit path. A compiler panic continues unwinding after
	// the tables are back.
	defer func() {
		r.setState(StateRestoring)
		private.Do(r.hc, surfaceHotkeys, func() error {
			for _, rm := range removed {
				m.SetHotkeys(rm.id, rm.keys)
			}
			if narrowed {
				m.SetDefaultKeys(defaults)
			}
			return nil
		})
		r.setState(StateIdle)
	}()

	// The host may hand out its live tables, so everything to be restored
	// is copied before the first mutation.
	private.Do(r.hc, surfaceHotkeys, func() error {
		defaults = cloneTable(m.DefaultKeys())
		m.SetDefaultKeys(filterKeys(defaults, allow))
		narrowed = true

		custom := cloneTable(m.CustomKeys())
		for _, id := range slices.Sorted(maps.Keys(custom)) {
			if _, ok := allow[id]; ok {
				continue
			}
			m.RemoveHotkeys(id)
			removed = append(removed, removal{id: id, keys: custom[id]})
		}
		return nil
	})

	r.setState(StateBaking)
	next()

	// Tables that could not be fully narrowed still compile excluded ids;
	// the cached snapshot never carries them.
	snap := private.Guard(r.hc, surfaceHotkeys, func() (Snapshot, error) {
		hotkeys, ids := m.Baked()
		return Snapshot{Hotkeys: hotkeys, IDs: ids}.filter(allow), nil
	}, func(error) Snapshot { return Snapshot{} })

	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()

	r.logger.Debug("rebaked hotkeys", "count", snap.Len(), "excluded", len(removed))
}

// rebake asks the host to bake through the patched slot when it has baked
// before.
func (r *Rebaker) rebake() {
	if r.manager == nil {
		return
	}
	if !(private.Field[bool]{Method: "IsBaked", Default: true}).Get(r.hc, r.manager) {
		return
	}
	private.Do(r.hc, surfaceHotkeys, func() error {
		bake, err := patch.Get[host.BakeFunc](r.manager, host.MethodBake)
		if err != nil {
			return err
		}
		bake()
		return nil
	})
}

// Dispatch runs the command of the first hotkey in the current snapshot
// that matches ev and executes successfully. Non-repeatable commands are
// skipped for auto-repeat events. It reports whether some command handled
// the event.
func (r *Rebaker) Dispatch(ev key.Event) bool {
	snap := r.Snapshot()
	if snap.Len() == 0 {
		return false
	}
	commands := r.hc.App().Commands()
	if commands == nil {
		return false
	}

	for i := 0; i < snap.Len(); i++ {
		if !snap.Hotkeys[i].Matches(ev) {
			continue
		}
		cmd, ok := commands.FindCommand(snap.IDs[i])
		if !ok || cmd == nil {
			continue
		}
		if ev.Repeat && !cmd.Repeatable() {
			continue
		}
		if commands.ExecuteCommand(cmd) {
			r.logger.Debug("hotkey dispatched", "key", ev.String(), "command", snap.IDs[i])
			return true
		}
	}
	return false
}

// SetAllowed replaces the allow-set and rebakes.
func (r *Rebaker) SetAllowed(allow []string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.allow = toSet(allow)
	r.mu.Unlock()

	r.rebake()
}

// Allowed returns the allowed command ids in sorted order.
func (r *Rebaker) Allowed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.allow))
}

// State returns the current phase.
func (r *Rebaker) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a copy of the most recent narrowed bake.
func (r *Rebaker) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.clone()
}

// Close removes the bake patch and rebakes the host with its full tables.
// Calling it again does nothing.
func (r *Rebaker) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.snapshot = Snapshot{}
	r.mu.Unlock()

	r.handle.Revert()
	r.rebake()
	r.logger.Debug("hotkey interceptor reverted")
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func filterKeys(keys map[string][]key.Hotkey, allow map[string]struct{}) map[string][]key.Hotkey {
	out := make(map[string][]key.Hotkey, len(allow))
	for id, hks := range keys {
		if _, ok := allow[id]; ok {
			out[id] = hks
		}
	}
	return out
}

func cloneTable(t map[string][]key.Hotkey) map[string][]key.Hotkey {
	if t == nil {
		return nil
	}
	out := make(map[string][]key.Hotkey, len(t))
	for id, keys := range t {
		out[id] = slices.Clone(keys)
	}
	return out
}
