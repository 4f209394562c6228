// Package config loads interpose settings.
//
// Sources are merged in increasing priority:
//
//  1. built-in defaults
//  2. the configuration file (TOML, or YAML for .yaml/.yml)
//  3. INTERPOSE_* environment variables
//  4. explicit overrides, normally command-line flags
//
// Every layer is a nested map[string]any; layers are combined with
// DeepMerge and decoded into Config at the end. Watch reloads the file when
// it changes on disk.
package config
