package intercept

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/hostkit"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

func defaultTable() map[string][]key.Hotkey {
	return map[string][]key.Hotkey{
		"cmd:a": {hk("C-a")},
		"cmd:b": {hk("C-b")},
		"cmd:c": {hk("C-c"), hk("A-c")},
	}
}

func ids(snap Snapshot) []string {
	return snap.IDs
}

func TestInterceptHotkeysNarrowsBake(t *testing.T) {
	f := newFixture(t, defaultTable())
	m := f.app.HotkeyManager()
	m.SetHotkeys("cmd:b", []key.Hotkey{hk("C-S-b")})
	m.SetHotkeys("cmd:z", []key.Hotkey{hk("C-z")})

	r, err := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a", "cmd:b"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}
	defer r.Close()

	snap := r.Snapshot()
	if !reflect.DeepEqual(ids(snap), []string{"cmd:b", "cmd:a"}) {
		t.Errorf("snapshot ids = %v", ids(snap))
	}
	if snap.Hotkeys[0] != hk("C-S-b") || snap.Hotkeys[1] != hk("C-a") {
		t.Errorf("snapshot hotkeys = %v", snap.Hotkeys)
	}
	if r.State() != StateIdle {
		t.Errorf("State = %v", r.State())
	}
}

func TestBakeRestoresTables(t *testing.T) {
	tests := []struct {
		name   string
		allow  []string
		custom map[string][]key.Hotkey
	}{
		{"allow one", []string{"cmd:a"}, nil},
		{"allow none", nil, map[string][]key.Hotkey{"cmd:b": {hk("C-S-b")}}},
		{"allow all", []string{"cmd:a", "cmd:b", "cmd:c"}, map[string][]key.Hotkey{"cmd:c": {}}},
		{"allow unknown", []string{"cmd:nope"}, map[string][]key.Hotkey{"cmd:x": {hk("C-x")}, "cmd:a": {hk("F5")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultTable())
			m := f.app.HotkeyManager()
			for id, keys := range tt.custom {
				m.SetHotkeys(id, keys)
			}

			r, err := InterceptHotkeys(context.Background(), f.hc, tt.allow)
			if err != nil {
				t.Fatalf("InterceptHotkeys: %v", err)
			}
			defer r.Close()

			defaults, custom := m.DefaultKeys(), m.CustomKeys()
			m.Bake()

			if !reflect.DeepEqual(m.DefaultKeys(), defaults) {
				t.Errorf("default table changed:\nbefore %v\nafter  %v", defaults, m.DefaultKeys())
			}
			if !reflect.DeepEqual(m.CustomKeys(), custom) {
				t.Errorf("custom table changed:\nbefore %v\nafter  %v", custom, m.CustomKeys())
			}
		})
	}
}

func TestBakeRestoresTablesWhenCompilerPanics(t *testing.T) {
	f := newFixture(t, defaultTable())
	m := f.app.HotkeyManager()
	m.SetHotkeys("cmd:b", []key.Hotkey{hk("C-S-b")})

	// Installed first, so it sits below the rebaker and sees narrowed tables.
	boom, err := patch.Patch(m, host.MethodBake, func(next host.BakeFunc) host.BakeFunc {
		return func() { panic("compiler") }
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}

	// The install-time rebake panics too; that panic is contained and logged.
	r, err := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}

	defaults, custom := defaultTable(), map[string][]key.Hotkey{"cmd:b": {hk("C-S-b")}}

	panicked := func() (p bool) {
		defer func() { p = recover() != nil }()
		m.Bake()
		return false
	}()
	if !panicked {
		t.Fatal("compiler panic was swallowed")
	}
	if !reflect.DeepEqual(m.DefaultKeys(), defaults) {
		t.Errorf("default table not restored: %v", m.DefaultKeys())
	}
	if !reflect.DeepEqual(m.CustomKeys(), custom) {
		t.Errorf("custom table not restored: %v", m.CustomKeys())
	}

	boom.Revert()
	r.Close()
}

func TestBakeRemovalAndRestoreOrder(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recordingManager{HotkeyManager: f.app.HotkeyManager()}
	for _, id := range []string{"z", "m", "a", "keep"} {
		rec.HotkeyManager.SetHotkeys(id, []key.Hotkey{hk("F1")})
	}
	hc := hostWith(f, rec)

	r, err := InterceptHotkeys(context.Background(), hc, []string{"keep"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}
	defer r.Close()

	want := []string{"remove a", "remove m", "remove z", "set a", "set m", "set z"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestNestedBakeDelegates(t *testing.T) {
	f := newFixture(t, defaultTable())
	m := f.app.HotkeyManager()

	var r *Rebaker
	var nestedState State
	depth := 0
	_, err := patch.Patch(m, host.MethodBake, func(next host.BakeFunc) host.BakeFunc {
		return func() {
			next()
			depth++
			if depth == 2 {
				nestedState = r.State()
				m.Bake()
			}
		}
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}

	r, err = InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}
	defer r.Close()

	before := m.BakeCount()
	m.Bake()
	if got := m.BakeCount() - before; got != 2 {
		t.Errorf("compiler ran %d times, want 2", got)
	}
	if nestedState != StateBaking {
		t.Errorf("state during nested bake = %v", nestedState)
	}
	if r.State() != StateIdle {
		t.Errorf("State = %v after bake", r.State())
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, map[string][]key.Hotkey{
		"cmd:a":   {hk("C-a")},
		"cmd:b":   {hk("C-a")},
		"cmd:rep": {hk("C-r")},
		"cmd:no":  {hk("C-n")},
		"cmd:off": {hk("C-o")},
	})
	cmds := f.app.CommandRegistry()
	cmds.Add("cmd:a", func() bool { return true })
	cmds.Add("cmd:b", func() bool { return true })
	cmds.Add("cmd:rep", func() bool { return true }, hostkit.Repeatable())
	cmds.Add("cmd:no", func() bool { return false })
	cmds.Add("cmd:off", func() bool { return true })

	r, err := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a", "cmd:b", "cmd:rep", "cmd:no"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name    string
		ev      key.Event
		handled bool
		ran     []string
	}{
		{"first match wins", key.NewRuneEvent('a', key.ModCtrl), true, []string{"cmd:a"}},
		{"repeat skips non-repeatable", key.NewRuneEvent('a', key.ModCtrl).AsRepeat(), false, nil},
		{"repeatable runs on repeat", key.NewRuneEvent('r', key.ModCtrl).AsRepeat(), true, []string{"cmd:rep"}},
		{"declined", key.NewRuneEvent('n', key.ModCtrl), false, []string{"cmd:no"}},
		{"excluded command", key.NewRuneEvent('o', key.ModCtrl), false, nil},
		{"no match", key.NewRuneEvent('q', key.ModCtrl), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(cmds.History())
			if got := r.Dispatch(tt.ev); got != tt.handled {
				t.Errorf("Dispatch = %v, want %v", got, tt.handled)
			}
			ran := cmds.History()[before:]
			if len(ran) == 0 {
				ran = nil
			}
			if !reflect.DeepEqual(ran, tt.ran) {
				t.Errorf("ran %v, want %v", ran, tt.ran)
			}
		})
	}
}

func TestDispatchContinuesAfterDecline(t *testing.T) {
	f := newFixture(t, map[string][]key.Hotkey{
		"cmd:1": {hk("C-x")},
		"cmd:2": {hk("C-x")},
	})
	cmds := f.app.CommandRegistry()
	cmds.Add("cmd:1", func() bool { return false })
	cmds.Add("cmd:2", func() bool { return true })

	r, _ := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:1", "cmd:2"})
	defer r.Close()

	if !r.Dispatch(key.NewRuneEvent('x', key.ModCtrl)) {
		t.Error("second entry should handle the event")
	}
	if !reflect.DeepEqual(cmds.History(), []string{"cmd:1", "cmd:2"}) {
		t.Errorf("History = %v", cmds.History())
	}
}

func TestSetAllowedRebakes(t *testing.T) {
	f := newFixture(t, defaultTable())
	r, _ := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a"})
	defer r.Close()

	r.SetAllowed([]string{"cmd:c"})
	if !reflect.DeepEqual(ids(r.Snapshot()), []string{"cmd:c", "cmd:c"}) {
		t.Errorf("snapshot ids = %v", ids(r.Snapshot()))
	}
	if !reflect.DeepEqual(r.Allowed(), []string{"cmd:c"}) {
		t.Errorf("Allowed = %v", r.Allowed())
	}
}

func TestCloseRestoresFullBake(t *testing.T) {
	f := newFixture(t, defaultTable())
	m := f.app.HotkeyManager()
	r, _ := InterceptHotkeys(context.Background(), f.hc, []string{"cmd:a"})

	r.Close()
	r.Close()

	_, bakedIDs := m.Baked()
	if len(bakedIDs) != 4 {
		t.Errorf("baked %d hotkeys after close, want 4", len(bakedIDs))
	}
	if n := m.Methods().Active()[host.MethodBake]; n != 0 {
		t.Errorf("bake has %d active patches", n)
	}
	if r.Dispatch(key.NewRuneEvent('a', key.ModCtrl)) {
		t.Error("closed rebaker handled an event")
	}
	r.SetAllowed([]string{"cmd:b"})
	if r.Snapshot().Len() != 0 {
		t.Error("SetAllowed after close rebaked")
	}
}

func TestInterceptHotkeysChangedSurface(t *testing.T) {
	f := newFixture(t, defaultTable())
	hc := hostWith(f, nil)

	r, err := InterceptHotkeys(context.Background(), hc, []string{"cmd:a"})
	if err != nil {
		t.Fatalf("InterceptHotkeys: %v", err)
	}
	if r.Dispatch(key.NewRuneEvent('a', key.ModCtrl)) {
		t.Error("inert rebaker handled an event")
	}
	r.Close()

	if f.changedSurfaceWarnings() != 1 {
		t.Errorf("warnings = %d, want 1", f.changedSurfaceWarnings())
	}
}

func TestInterceptHotkeysArguments(t *testing.T) {
	if _, err := InterceptHotkeys(context.Background(), nil, nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("err = %v", err)
	}

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := InterceptHotkeys(ctx, f.hc, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:      "idle",
		StateNarrowing: "narrowing",
		StateBaking:    "baking",
		StateRestoring: "restoring",
		State(9):       "State(9)",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", int(s), s.String())
		}
	}
}

// recordingManager records custom-table mutations.
type recordingManager struct {
	*hostkit.HotkeyManager
	calls []string
}

func (m *recordingManager) SetHotkeys(id string, keys []key.Hotkey) {
	m.calls = append(m.calls, "set "+id)
	m.HotkeyManager.SetHotkeys(id, keys)
}

func (m *recordingManager) RemoveHotkeys(id string) {
	m.calls = append(m.calls, "remove "+id)
	m.HotkeyManager.RemoveHotkeys(id)
}

// hotkeyInternals exposes a custom hotkey manager. A nil manager yields
// internals without a hotkey surface.
type hotkeyInternals struct {
	manager host.HotkeyManager
}

func (i hotkeyInternals) Hotkeys() host.HotkeyManager { return i.manager }

func hostWith(f *fixture, m host.HotkeyManager) *host.Context {
	var internals any = struct{}{}
	if m != nil {
		internals = hotkeyInternals{manager: m}
	}
	return host.NewContext(reshapedApp{App: f.app, internals: internals}, f.hc.Logger(), nil)
}
