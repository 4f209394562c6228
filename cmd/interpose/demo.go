package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/config"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/diag"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/dispose"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/host"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/hostkit"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/i18n"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/intercept"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/logging"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/patch"
)

const demoPlugin = `
function onload()
  plugin.log("loaded " .. plugin.id)
end
function onunload()
  plugin.log("unloading " .. plugin.id)
end
function run(...)
  return plugin.id .. ":" .. table.concat({...}, " ")
end
`

// repeatableCommands may run on auto-repeated key events.
var repeatableCommands = map[string]bool{
	"editor:undo": true,
	"editor:redo": true,
}

type demoOptions struct {
	Keys     string
	Terminal bool
	Watch    bool
	ShowLog  bool
}

func newDemoCmd() *cobra.Command {
	var opts demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Install every interceptor on an in-process host and exercise it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, copts, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDemo(ctx, cfg, copts, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Keys, "keys", "", "Key events to dispatch after rebaking, e.g. C-s,C-z.")
	cmd.Flags().BoolVar(&opts.Terminal, "terminal", false, "Read key events from the terminal until Esc.")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the hotkey allow-set when the config file changes.")
	cmd.Flags().BoolVar(&opts.ShowLog, "show-log", true, "Print the diagnostic log on exit.")
	return cmd
}

func runDemo(ctx context.Context, cfg config.Config, copts config.Options, opts demoOptions, out, logOut io.Writer) error {
	events, err := key.ParseList(opts.Keys)
	if err != nil {
		return fmt.Errorf("--keys: %w", err)
	}

	s, err := newSession(cfg, out, logOut)
	if err != nil {
		return err
	}
	if err := s.install(ctx); err != nil {
		return err
	}

	if opts.Watch && copts.Path != "" {
		w, err := config.Watch(copts, s.logger, s.reload)
		if err != nil {
			s.logger.Warn("config watch unavailable", "error", err)
		} else {
			defer w.Close()
		}
	}

	runErr := s.script(ctx)
	if runErr == nil {
		for _, ev := range events {
			s.dispatch(ev)
		}
	}
	if runErr == nil && opts.Terminal {
		runErr = runTerminal(ctx, s)
	}

	s.close(ctx)
	if opts.ShowLog {
		printLog(out, s.store.Entries())
	}
	return runErr
}

// session is one host with every interceptor installed.
type session struct {
	cfg    config.Config
	store  *diag.Store
	logger *slog.Logger
	hc     *host.Context
	app    *hostkit.App

	mu      sync.Mutex
	print   func(string)
	rebaker *intercept.Rebaker

	teardown *dispose.List
}

func newSession(cfg config.Config, out, logOut io.Writer) (*session, error) {
	store := diag.NewStore(cfg.Diagnostics.Capacity)
	logger, err := logging.New(cfg.Logging, logOut, store)
	if err != nil {
		return nil, err
	}
	tr, err := i18n.New(cfg.Locale)
	if err != nil {
		return nil, err
	}
	table, err := cfg.HotkeyTable()
	if err != nil {
		return nil, err
	}

	app := hostkit.NewApp(hostkit.Options{
		Logger:         logger,
		DefaultHotkeys: table,
	})
	s := &session{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		hc:       host.NewContext(app, logger, tr),
		app:      app,
		teardown: dispose.New(dispose.Settled(), dispose.WithLogger(logger)),
		print: func(line string) {
			_, _ = fmt.Fprintln(out, line)
		},
	}

	for _, id := range slices.Sorted(maps.Keys(table)) {
		opts := []hostkit.CommandOption{hostkit.WithName(id)}
		if repeatableCommands[id] {
			opts = append(opts, hostkit.Repeatable())
		}
		app.CommandRegistry().Add(id, func() bool {
			s.printf("command %s", id)
			return true
		}, opts...)
	}
	app.PluginRegistry().Define(cfg.Plugins.Target, demoPlugin)
	return s, nil
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	p := s.print
	s.mu.Unlock()
	p(fmt.Sprintf(format, args...))
}

// setPrinter replaces the line printer and returns the previous one.
func (s *session) setPrinter(p func(string)) func(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.print
	s.print = p
	return prev
}

// install applies the three interceptors. A failure reverts whatever was
// already installed.
func (s *session) install(ctx context.Context) error {
	target := s.cfg.Plugins.Target

	revertLoad, err := intercept.InterceptLoad(ctx, s.hc, target, s.patchRun)
	if err != nil {
		return fmt.Errorf("%s: %w", s.hc.T("errors.patch-failed", target), err)
	}
	s.teardown.Defer(revertLoad)

	revertWindows, err := intercept.InterceptWindows(s.app.Workspace(), s.logger, s.patchWindow)
	if err != nil {
		_ = s.teardown.Dispose(ctx)
		return fmt.Errorf("%s: %w", s.hc.T("errors.patch-failed", "workspace"), err)
	}
	s.teardown.Defer(revertWindows)

	rebaker, err := intercept.InterceptHotkeys(ctx, s.hc, s.cfg.Hotkeys.Allow)
	if err != nil {
		_ = s.teardown.Dispose(ctx)
		return fmt.Errorf("%s: %w", s.hc.T("errors.patch-failed", "hotkeys"), err)
	}
	s.teardown.Defer(rebaker.Close)
	s.rebaker = rebaker
	s.checkAllowed(s.cfg.Hotkeys.Allow)

	s.printf("%s", s.hc.T("hotkeys.rebaked", rebaker.Snapshot().Len()))
	return nil
}

// patchRun wraps the plugin's run entry point so its output is marked.
func (s *session) patchRun(_ context.Context, p host.Plugin) (func(), error) {
	target, ok := p.(patch.Target)
	if !ok {
		return nil, fmt.Errorf("plugin %s has no method table", p.ID())
	}
	h, err := patch.Patch(target, hostkit.MethodRun, func(next hostkit.RunFunc) hostkit.RunFunc {
		return func(ctx context.Context, args ...string) (string, error) {
			out, err := next(ctx, args...)
			if err != nil {
				return out, err
			}
			return "intercepted(" + out + ")", nil
		}
	})
	if err != nil {
		return nil, err
	}
	return h.Revert, nil
}

func (s *session) patchWindow(w host.Window) (func(), error) {
	id := w.ID()
	s.printf("patched window %s", id)
	return func() {
		s.printf("unpatched window %s", id)
	}, nil
}

// script loads the target plugin twice and cycles a window.
func (s *session) script(ctx context.Context) error {
	target := s.cfg.Plugins.Target
	reg := s.app.PluginRegistry()

	for round := 1; round <= 2; round++ {
		if _, err := reg.Load(ctx, target); err != nil {
			return err
		}
		p, ok := reg.Plugin(target)
		if !ok {
			return fmt.Errorf("plugin %s: %w", target, hostkit.ErrPluginNotFound)
		}
		out, err := p.Run(ctx, "round", strconv.Itoa(round))
		if err != nil {
			return err
		}
		s.printf("run %s", out)
		if err := reg.Unload(ctx, target); err != nil {
			return err
		}
	}

	ws := s.app.Windows()
	if _, err := ws.OpenWindow("notes"); err != nil {
		return err
	}
	if err := ws.CloseWindow("notes"); err != nil {
		return err
	}
	// Left open so teardown reverts it.
	_, err := ws.OpenWindow("scratch")
	return err
}

func (s *session) dispatch(ev key.Event) bool {
	handled := s.rebaker.Dispatch(ev)
	s.printf("key %s handled=%t", ev, handled)
	return handled
}

// checkAllowed warns about allowed ids that name no command.
func (s *session) checkAllowed(allow []string) {
	commands := s.app.CommandRegistry()
	for _, id := range allow {
		if _, ok := commands.FindCommand(id); ok {
			continue
		}
		if suggestion, ok := commands.Suggest(id); ok {
			s.logger.Warn("unknown command in allow-set", "command", id, "suggestion", suggestion)
			continue
		}
		s.logger.Warn("unknown command in allow-set", "command", id)
	}
}

func (s *session) reload(cfg config.Config, err error) {
	if err != nil {
		return
	}
	s.checkAllowed(cfg.Hotkeys.Allow)
	s.rebaker.SetAllowed(cfg.Hotkeys.Allow)
	s.printf("%s", s.hc.T("hotkeys.rebaked", s.rebaker.Snapshot().Len()))
}

func (s *session) close(ctx context.Context) {
	_ = s.teardown.Dispose(ctx)
	if err := s.app.PluginRegistry().UnloadAll(ctx); err != nil {
		s.logger.Warn("unload plugins", "error", err)
	}
}

func printLog(w io.Writer, entries []diag.Entry) {
	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%-5s", e.Level))
		b.WriteString(" ")
		b.WriteString(e.Message)
		for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
			fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
		}
		_, _ = fmt.Fprintln(w, b.String())
	}
}
