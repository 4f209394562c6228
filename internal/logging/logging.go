// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/diag"
)

// Config selects level, format and source annotation.
type Config struct {
	Level     string `mapstructure:"level" toml:"level" yaml:"level"`
	Format    string `mapstructure:"format" toml:"format" yaml:"format"`
	AddSource bool   `mapstructure:"add_source" toml:"add_source" yaml:"add_source"`
}

// New creates a logger writing to w (os.Stderr when nil). When store is
// non-nil every record at or above the configured level is also kept in it.
func New(cfg Config, w io.Writer, store *diag.Store) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}

	if store != nil {
		h = diag.NewHandler(store, h, level)
	}
	return slog.New(h), nil
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}
