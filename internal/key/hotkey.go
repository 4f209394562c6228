package key

import (
	"unicode"
)

// Hotkey is one entry of a hotkey table: a key plus the exact set of
// modifiers that must be held.
type Hotkey struct {
	Modifiers Modifier
	Key       Key
	Rune      rune
}

// NewHotkey creates a hotkey for a character.
func NewHotkey(mods Modifier, r rune) Hotkey {
	return Hotkey{Modifiers: mods, Key: KeyRune, Rune: unicode.ToLower(r)}
}

// Matches reports whether ev triggers the hotkey. Modifiers must match
// exactly; characters compare case-insensitively. The repeat flag is not
// considered.
func (h Hotkey) Matches(ev Event) bool {
	if h.Modifiers != ev.Modifiers || h.Key != ev.Key {
		return false
	}
	if h.Key != KeyRune {
		return true
	}
	return unicode.ToLower(h.Rune) == unicode.ToLower(ev.Rune)
}

// Event returns the non-repeat event that triggers the hotkey.
func (h Hotkey) Event() Event {
	return Event{Key: h.Key, Rune: h.Rune, Modifiers: h.Modifiers}
}

// String returns the hotkey notation, e.g. "C-a".
func (h Hotkey) String() string {
	return format(h.Modifiers, h.Key, h.Rune)
}

// MarshalText implements encoding.TextMarshaler.
func (h Hotkey) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hotkey) UnmarshalText(text []byte) error {
	parsed, err := ParseHotkey(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
