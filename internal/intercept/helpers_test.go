package intercept

import (
	"log/slog"
	"testing"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/diag"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/hostkit"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/i18n"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/private"
)

type fixture struct {
	app   *hostkit.App
	hc    *host.Context
	store *diag.Store
}

func newFixture(t *testing.T, defaults map[string][]key.Hotkey) *fixture {
	t.Helper()
	store := diag.NewStore(0)
	logger := slog.New(diag.NewHandler(store, nil, slog.LevelDebug))
	app := hostkit.NewApp(hostkit.Options{Logger: logger, DefaultHotkeys: defaults})
	return &fixture{
		app:   app,
		hc:    host.NewContext(app, logger, i18n.MustNew("en")),
		store: store,
	}
}

func (f *fixture) count(level slog.Level) int {
	n := 0
	for _, e := range f.store.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (f *fixture) changedSurfaceWarnings() int {
	n := 0
	for _, e := range f.store.Entries() {
		if v, _ := e.Attr("key"); e.Level == slog.LevelWarn && v == private.MessageKeyChanged {
			n++
		}
	}
	return n
}

// reshapedApp wraps an app but returns internals of an unexpected shape.
type reshapedApp struct {
	host.App
	internals any
}

func (a reshapedApp) Internals() any { return a.internals }

func hk(spec string) key.Hotkey { return key.MustParseHotkey(spec) }
