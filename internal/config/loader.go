package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileSystem is the file access used by file loaders.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS reads from the real file system.
type OSFS struct{}

// ReadFile implements FileSystem.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension. Unknown extensions are
// read as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// FileLoader reads one configuration file.
type FileLoader struct {
	fs     FileSystem
	path   string
	format Format
}

// NewFileLoader creates a loader for path, choosing the format from the
// extension.
func NewFileLoader(path string) *FileLoader {
	return NewFileLoaderWithFS(OSFS{}, path)
}

// NewFileLoaderWithFS creates a file loader reading through fsys.
func NewFileLoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{
		fs:     fsys,
		path:   path,
		format: FormatOf(path),
	}
}

// Load reads the file. A missing file yields nil, nil.
func (l *FileLoader) Load() (map[string]any, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}
	return Parse(l.path, l.format, data)
}

// Parse decodes data in the given format into a map.
func Parse(source string, format Format, data []byte) (map[string]any, error) {
	var out map[string]any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	case FormatTOML:
		err = toml.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, newParseError(source, err)
	}
	return out, nil
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func newParseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		pe.Line, pe.Column = decodeErr.Position()
	}
	var yamlErr *yaml.TypeError
	if errors.As(err, &yamlErr) {
		pe.Message = strings.Join(yamlErr.Errors, "; ")
	}
	return pe
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "INTERPOSE_"

// EnvLoader reads mapped environment variables.
type EnvLoader struct {
	lookup  func(string) (string, bool)
	mapping map[string]string
}

// NewEnvLoader creates a loader over the process environment.
func NewEnvLoader() *EnvLoader {
	return NewEnvLoaderWithLookup(os.LookupEnv)
}

// NewEnvLoaderWithLookup creates a loader over a custom environment.
func NewEnvLoaderWithLookup(lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{
		lookup:  lookup,
		mapping: defaultEnvMapping(),
	}
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		EnvPrefix + "LOG_LEVEL":      "logging.level",
		EnvPrefix + "LOG_FORMAT":     "logging.format",
		EnvPrefix + "LOG_SOURCE":     "logging.add_source",
		EnvPrefix + "DIAG_CAPACITY":  "diagnostics.capacity",
		EnvPrefix + "LOCALE":         "locale",
		EnvPrefix + "HOTKEYS_ALLOW":  "hotkeys.allow",
		EnvPrefix + "PLUGINS_TARGET": "plugins.target",
	}
}

// AddMapping maps another environment variable to a config path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load returns the set variables as a map layer. Values stay strings;
// Decode converts them. An empty value counts as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	out := make(map[string]any)
	for env, path := range l.mapping {
		if val, ok := l.lookup(env); ok {
			SetPath(out, path, val)
		}
	}
	return out, nil
}

// SetPath sets a value in a nested map using a dot-separated path,
// creating intermediate maps.
func SetPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeepMerge recursively merges src into dst.
// Values in src override values in dst.
// Maps are merged recursively; other types are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for k, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = srcVal
	}
	return dst
}

// Clone creates a deep copy of a configuration map.
func Clone(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Options selects the sources Load reads.
type Options struct {
	// Path is the configuration file. Empty skips the file layer.
	Path string

	// FS reads the file. Nil uses OSFS.
	FS FileSystem

	// Env supplies environment overrides. Nil uses the process environment.
	Env *EnvLoader

	// Overrides is the highest-priority layer, keyed by dotted path.
	Overrides map[string]any
}

// Load merges every layer and decodes the result.
func Load(opts Options) (Config, error) {
	merged := Defaults()

	if opts.Path != "" {
		fsys := opts.FS
		if fsys == nil {
			fsys = OSFS{}
		}
		file, err := NewFileLoaderWithFS(fsys, opts.Path).Load()
		if err != nil {
			return Config{}, err
		}
		merged = DeepMerge(merged, file)
	}

	env := opts.Env
	if env == nil {
		env = NewEnvLoader()
	}
	envLayer, err := env.Load()
	if err != nil {
		return Config{}, err
	}
	merged = DeepMerge(merged, envLayer)

	overrides := make(map[string]any, len(opts.Overrides))
	for path, v := range opts.Overrides {
		SetPath(overrides, path, v)
	}
	merged = DeepMerge(merged, overrides)

	cfg, err := Decode(merged)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
