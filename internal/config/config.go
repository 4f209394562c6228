package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/diag"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/logging"
)

// Config is the complete settings tree.
type Config struct {
	Logging     logging.Config `mapstructure:"logging"`
	Diagnostics Diagnostics    `mapstructure:"diagnostics"`
	Locale      string         `mapstructure:"locale"`
	Hotkeys     Hotkeys        `mapstructure:"hotkeys"`
	Plugins     Plugins        `mapstructure:"plugins"`
}

// Diagnostics configures the in-memory log store.
type Diagnostics struct {
	// Capacity is the number of retained entries; 0 keeps everything.
	Capacity int `mapstructure:"capacity"`
}

// Hotkeys configures the hotkey rebaker.
type Hotkeys struct {
	// Allow lists the command ids kept when hotkeys are rebaked.
	Allow []string `mapstructure:"allow"`

	// Bindings is the host's default hotkey table: command id to key specs.
	Bindings map[string][]string `mapstructure:"bindings"`
}

// Plugins configures the plugin-load interceptor.
type Plugins struct {
	// Target is the id of the plugin to patch.
	Target string `mapstructure:"target"`
}

// Defaults returns the built-in settings as a map layer.
func Defaults() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":      "info",
			"format":     "text",
			"add_source": false,
		},
		"diagnostics": map[string]any{
			"capacity": diag.DefaultCapacity,
		},
		"locale": "en",
		"hotkeys": map[string]any{
			"allow": []any{},
			"bindings": map[string]any{
				"editor:save":   []any{"C-s"},
				"editor:undo":   []any{"C-z"},
				"editor:redo":   []any{"C-S-z"},
				"app:quit":      []any{"C-q"},
				"palette:open":  []any{"C-p"},
				"search:global": []any{"C-S-f"},
			},
		},
		"plugins": map[string]any{
			"target": "dataview",
		},
	}
}

// Decode converts a merged map layer into a Config. Scalars are converted
// loosely, so environment strings such as "500" or "a,b" decode into ints
// and lists. Map keys keep their case.
func Decode(m map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that decoding cannot.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format: %s", c.Logging.Format)
	}
	if c.Diagnostics.Capacity < 0 {
		return fmt.Errorf("diagnostics.capacity must not be negative, got %d", c.Diagnostics.Capacity)
	}
	if _, err := c.HotkeyTable(); err != nil {
		return err
	}
	return nil
}

// HotkeyTable parses the configured bindings.
func (c Config) HotkeyTable() (map[string][]key.Hotkey, error) {
	table := make(map[string][]key.Hotkey, len(c.Hotkeys.Bindings))
	for id, specs := range c.Hotkeys.Bindings {
		hotkeys := make([]key.Hotkey, 0, len(specs))
		for _, spec := range specs {
			h, err := key.ParseHotkey(spec)
			if err != nil {
				return nil, fmt.Errorf("hotkeys.bindings.%s: %w", id, err)
			}
			hotkeys = append(hotkeys, h)
		}
		table[id] = hotkeys
	}
	return table, nil
}
