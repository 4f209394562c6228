package key

import (
	"strings"
	"unicode"
)

// Event is a single key press.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier

	// Repeat is set for events generated by holding a key down.
	Repeat bool
}

// NewRuneEvent creates a key event for a character.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// NewSpecialEvent creates a key event for a named key.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// AsRepeat returns a copy of e flagged as auto-repeat.
func (e Event) AsRepeat() Event {
	e.Repeat = true
	return e
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// String returns the hotkey notation of the event, e.g. "C-S-p".
func (e Event) String() string {
	return format(e.Modifiers, e.Key, e.Rune)
}

func format(mods Modifier, k Key, r rune) string {
	var name string
	switch {
	case k == KeyRune && r == ' ':
		name = KeySpace.String()
	case k == KeyRune:
		name = string(unicode.ToLower(r))
	default:
		name = k.String()
	}
	if mods == ModNone {
		return name
	}
	return strings.Join([]string{mods.String(), name}, "-")
}
