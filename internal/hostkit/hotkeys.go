package hostkit

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

// HotkeyManager keeps the default and user (custom) hotkey tables keyed by
// command id and compiles them into a baked table.
//
// A custom entry replaces the default entry of the same id, and an empty
// custom entry unbinds the command. Baked order is every custom binding
// followed by every remaining default binding, each group sorted by id.
type HotkeyManager struct {
	mu sync.RWMutex

	logger   *slog.Logger
	defaults map[string][]key.Hotkey
	custom   map[string][]key.Hotkey

	baked      bool
	bakedKeys  []key.Hotkey
	bakedIDs   []string
	bakeCount  int
	tableEdits int

	methods *patch.Table
	bake    *patch.Method[host.BakeFunc]
}

// NewHotkeyManager creates a manager with the given default table.
func NewHotkeyManager(defaults map[string][]key.Hotkey, logger *slog.Logger) *HotkeyManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &HotkeyManager{
		logger:   logger,
		defaults: cloneTable(defaults),
		custom:   make(map[string][]key.Hotkey),
		methods:  patch.NewTable(),
	}
	m.bake = patch.Register(m.methods, host.MethodBake, host.BakeFunc(m.compile))
	m.bake.SetLogger(logger)
	return m
}

// Methods returns the manager's interceptable methods.
func (m *HotkeyManager) Methods() *patch.Table {
	return m.methods
}

// Bake compiles the tables through the bake slot.
func (m *HotkeyManager) Bake() {
	m.bake.Get()()
}

// compile is the unpatched compiler.
func (m *HotkeyManager) compile() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hotkeys []key.Hotkey
	var ids []string
	for _, id := range slices.Sorted(maps.Keys(m.custom)) {
		for _, hk := range m.custom[id] {
			hotkeys = append(hotkeys, hk)
			ids = append(ids, id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(m.defaults)) {
		if _, overridden := m.custom[id]; overridden {
			continue
		}
		for _, hk := range m.defaults[id] {
			hotkeys = append(hotkeys, hk)
			ids = append(ids, id)
		}
	}

	m.bakedKeys = hotkeys
	m.bakedIDs = ids
	m.baked = true
	m.bakeCount++
	m.logger.Debug("hotkeys baked", "count", len(hotkeys))
}

// Baked returns copies of the compiled hotkeys and their command ids.
func (m *HotkeyManager) Baked() ([]key.Hotkey, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.bakedKeys), slices.Clone(m.bakedIDs)
}

// IsBaked reports whether the tables have been compiled at least once.
func (m *HotkeyManager) IsBaked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baked
}

// BakeCount returns how many times the compiler ran.
func (m *HotkeyManager) BakeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bakeCount
}

// TableEdits returns how many table mutations have been made.
func (m *HotkeyManager) TableEdits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tableEdits
}

// DefaultKeys returns a copy of the default table.
func (m *HotkeyManager) DefaultKeys() map[string][]key.Hotkey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTable(m.defaults)
}

// SetDefaultKeys replaces the default table.
func (m *HotkeyManager) SetDefaultKeys(keys map[string][]key.Hotkey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = cloneTable(keys)
	m.tableEdits++
}

// CustomKeys returns a copy of the custom table.
func (m *HotkeyManager) CustomKeys() map[string][]key.Hotkey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTable(m.custom)
}

// SetHotkeys sets the custom hotkeys of command id.
func (m *HotkeyManager) SetHotkeys(id string, keys []key.Hotkey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom[id] = slices.Clone(keys)
	if m.custom[id] == nil {
		m.custom[id] = []key.Hotkey{}
	}
	m.tableEdits++
}

// RemoveHotkeys deletes the custom entry of command id.
func (m *HotkeyManager) RemoveHotkeys(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.custom, id)
	m.tableEdits++
}

func cloneTable(t map[string][]key.Hotkey) map[string][]key.Hotkey {
	out := make(map[string][]key.Hotkey, len(t))
	for id, keys := range t {
		out[id] = slices.Clone(keys)
		if out[id] == nil {
			out[id] = []key.Hotkey{}
		}
	}
	return out
}
