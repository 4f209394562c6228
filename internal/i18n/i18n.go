// Package i18n translates message keys using catalogs embedded as YAML.
//
// Each file under locales/ is named after a BCP 47 tag and holds a nested
// map of messages; nested keys are joined with dots, so
//
//	errors:
//	  private-API-changed: "..."
//
// defines the key "errors.private-API-changed". Messages are fmt-style
// formats rendered by golang.org/x/text/message. Unknown keys render as the
// key itself.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// DefaultLanguage is used when no locale matches.
var DefaultLanguage = language.English

// Translator renders message keys in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
	keys    map[string]struct{}
}

// New creates a translator for the closest supported match of lang.
// An empty lang selects DefaultLanguage.
func New(lang string) (*Translator, error) {
	b, keys, err := loadCatalog(locales)
	if err != nil {
		return nil, err
	}

	want := DefaultLanguage
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parsing language %q: %w", lang, err)
		}
		want = parsed
	}

	supported := b.Languages()
	_, idx, _ := language.NewMatcher(supported).Match(want)
	tag := supported[idx]

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		keys:    keys,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(lang string) *Translator {
	t, err := New(lang)
	if err != nil {
		panic(err)
	}
	return t
}

// Language returns the selected language tag.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Has reports whether key is defined in any catalog.
func (t *Translator) Has(key string) bool {
	_, ok := t.keys[key]
	return ok
}

// T renders key with args.
func (t *Translator) T(key string, args ...any) string {
	if !t.Has(key) {
		return key
	}
	return t.printer.Sprintf(key, args...)
}

// Languages returns the tags of all embedded catalogs.
func Languages() ([]string, error) {
	b, _, err := loadCatalog(locales)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(b.Languages()))
	for _, tag := range b.Languages() {
		tags = append(tags, tag.String())
	}
	sort.Strings(tags)
	return tags, nil
}

func loadCatalog(fsys fs.FS) (*catalog.Builder, map[string]struct{}, error) {
	b := catalog.NewBuilder(catalog.Fallback(DefaultLanguage))
	keys := make(map[string]struct{})

	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, nil, err
	}

	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, nil, fmt.Errorf("locale file %s: %w", file, err)
		}

		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", file, err)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, nil, fmt.Errorf("decoding %s: %w", file, err)
		}

		messages := make(map[string]string)
		flatten("", tree, messages)
		for key, msg := range messages {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, nil, fmt.Errorf("%s: key %q: %w", file, key, err)
			}
			keys[key] = struct{}{}
		}
	}

	return b, keys, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
