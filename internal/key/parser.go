package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification into an event.
//
// Supported formats:
//   - Single character: "a", "A", "1", "@"
//   - Named keys: "Enter", "Esc", "Tab", "Space", "F5"
//   - Hyphenated modifiers: "C-a", "C-S-p", "A-F4"
//   - Plus-separated modifiers: "Ctrl+S", "Ctrl+Shift+P"
//   - Bracketed: "<C-s>", "<CR>"
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") && len(spec) > 2 {
		spec = spec[1 : len(spec)-1]
	}

	sep := ""
	switch {
	case len(spec) > 1 && strings.Contains(spec, "+"):
		sep = "+"
	case len(spec) > 1 && strings.Contains(spec, "-"):
		sep = "-"
	}
	if sep == "" {
		return parseKey(spec, ModNone)
	}

	// A trailing separator is the separator character itself, as in "C--".
	keyPart := spec[strings.LastIndex(spec, sep)+1:]
	modPart := spec[:strings.LastIndex(spec, sep)]
	if keyPart == "" {
		keyPart = sep
		modPart = strings.TrimSuffix(modPart, sep)
	}

	var mods Modifier
	for _, p := range strings.Split(modPart, sep) {
		mod := ModifierFromName(p)
		if mod == ModNone {
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}
	return parseKey(keyPart, mods)
}

// parseKey parses the key part with already-known modifiers.
func parseKey(keyPart string, mods Modifier) (Event, error) {
	keyPart = strings.TrimSpace(keyPart)
	if keyPart == "" {
		return Event{}, ErrInvalidSpec
	}

	runes := []rune(keyPart)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsUpper(r) && mods == ModNone {
			mods = ModShift
		}
		return NewRuneEvent(unicode.ToLower(r), mods), nil
	}

	k := FromName(keyPart)
	switch k {
	case KeyNone:
		return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
	case KeySpace:
		return NewRuneEvent(' ', mods), nil
	}
	return NewSpecialEvent(k, mods), nil
}

// ParseHotkey parses a key specification into a hotkey.
func ParseHotkey(spec string) (Hotkey, error) {
	ev, err := Parse(spec)
	if err != nil {
		return Hotkey{}, err
	}
	return Hotkey{Modifiers: ev.Modifiers, Key: ev.Key, Rune: ev.Rune}, nil
}

// MustParseHotkey is ParseHotkey that panics on error.
// Use only for known-valid specs in initialization code.
func MustParseHotkey(spec string) Hotkey {
	h, err := ParseHotkey(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return h
}

// ParseList parses a comma-separated list of specifications, as accepted on
// the command line ("C-a,C-b").
func ParseList(specs string) ([]Event, error) {
	var events []Event
	for _, s := range strings.Split(specs, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ev, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
