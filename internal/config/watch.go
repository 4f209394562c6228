package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrNoPath is returned by Watch when the options name no file.
var ErrNoPath = errors.New("config: watch requires a file path")

// ChangeFunc receives the reloaded configuration. A load or validation
// failure is passed as err and the previous configuration stays in effect.
type ChangeFunc func(cfg Config, err error)

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	opts   Options
	path   string
	logger *slog.Logger
	notify ChangeFunc

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// Watch starts watching the file named by opts.Path. The parent directory
// is watched so that editors that replace the file are followed.
func Watch(opts Options, logger *slog.Logger, notify ChangeFunc) (*Watcher, error) {
	if opts.Path == "" {
		return nil, ErrNoPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		opts:    opts,
		path:    absPath,
		logger:  logger.With("path", absPath),
		notify:  notify,
		closeCh: make(chan struct{}),
	}
	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.reload()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.opts)
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
	} else {
		w.logger.Debug("config reloaded")
	}
	if w.notify != nil {
		w.notify(cfg, err)
	}
}
