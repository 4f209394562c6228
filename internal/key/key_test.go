package key

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Event
	}{
		{"a", NewRuneEvent('a', ModNone)},
		{"A", NewRuneEvent('a', ModShift)},
		{"C-a", NewRuneEvent('a', ModCtrl)},
		{"C-S-p", NewRuneEvent('p', ModCtrl|ModShift)},
		{"Ctrl+Shift+P", NewRuneEvent('p', ModCtrl|ModShift)},
		{"<C-s>", NewRuneEvent('s', ModCtrl)},
		{"<CR>", NewSpecialEvent(KeyEnter, ModNone)},
		{"A-F4", NewSpecialEvent(KeyF4, ModAlt)},
		{"Esc", NewSpecialEvent(KeyEscape, ModNone)},
		{"C-Space", NewRuneEvent(' ', ModCtrl)},
		{"C--", NewRuneEvent('-', ModCtrl)},
		{"-", NewRuneEvent('-', ModNone)},
		{"Cmd+,", NewRuneEvent(',', ModMeta)},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{"", ErrEmptySpec},
		{"  ", ErrEmptySpec},
		{"X-a", ErrInvalidSpec},
		{"C-nokey", ErrInvalidSpec},
		{"bogus", ErrInvalidSpec},
	}

	for _, tt := range tests {
		if _, err := Parse(tt.spec); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) err = %v, want %v", tt.spec, err, tt.want)
		}
	}
}

func TestParseList(t *testing.T) {
	events, err := ParseList("C-a, C-b,,F5")
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	want := []Event{
		NewRuneEvent('a', ModCtrl),
		NewRuneEvent('b', ModCtrl),
		NewSpecialEvent(KeyF5, ModNone),
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}

	if _, err := ParseList("C-a,Q-z"); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("err = %v", err)
	}
}

func TestHotkeyMatches(t *testing.T) {
	ca := MustParseHotkey("C-a")

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"exact", NewRuneEvent('a', ModCtrl), true},
		{"uppercase rune", NewRuneEvent('A', ModCtrl), true},
		{"repeat", NewRuneEvent('a', ModCtrl).AsRepeat(), true},
		{"extra modifier", NewRuneEvent('a', ModCtrl|ModShift), false},
		{"missing modifier", NewRuneEvent('a', ModNone), false},
		{"other rune", NewRuneEvent('b', ModCtrl), false},
		{"special key", NewSpecialEvent(KeyEnter, ModCtrl), false},
	}

	for _, tt := range tests {
		if got := ca.Matches(tt.ev); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}

	f5 := MustParseHotkey("F5")
	if !f5.Matches(NewSpecialEvent(KeyF5, ModNone)) {
		t.Error("F5 should match F5")
	}
}

func TestHotkeyString(t *testing.T) {
	tests := []struct {
		h    Hotkey
		want string
	}{
		{NewHotkey(ModCtrl, 'A'), "C-a"},
		{NewHotkey(ModCtrl|ModShift, 'p'), "C-S-p"},
		{Hotkey{Key: KeyF4, Modifiers: ModAlt}, "A-F4"},
		{NewHotkey(ModNone, ' '), "Space"},
	}
	for _, tt := range tests {
		if got := tt.h.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		back, err := ParseHotkey(tt.want)
		if err != nil || back != tt.h {
			t.Errorf("ParseHotkey(%q) = %+v, %v; want %+v", tt.want, back, err, tt.h)
		}
	}
}

func TestHotkeyText(t *testing.T) {
	var h Hotkey
	if err := h.UnmarshalText([]byte("Ctrl+Alt+Delete")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if h.Key != KeyDelete || h.Modifiers != ModCtrl|ModAlt {
		t.Errorf("got %+v", h)
	}
	text, _ := h.MarshalText()
	if string(text) != "C-A-Del" {
		t.Errorf("MarshalText = %q", text)
	}
	if err := h.UnmarshalText([]byte("")); !errors.Is(err, ErrEmptySpec) {
		t.Errorf("err = %v", err)
	}
}

func TestModifierFromName(t *testing.T) {
	tests := map[string]Modifier{
		"Ctrl":  ModCtrl,
		"c":     ModCtrl,
		"Alt":   ModAlt,
		"shift": ModShift,
		"Cmd":   ModMeta,
		"hyper": ModNone,
	}
	for name, want := range tests {
		if got := ModifierFromName(name); got != want {
			t.Errorf("ModifierFromName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFromTcell(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want Event
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), NewRuneEvent('x', ModAlt)},
		{"function key", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModShift), NewSpecialEvent(KeyF5, ModShift)},
		{"control letter", tcell.NewEventKey(tcell.KeyCtrlB, 0, tcell.ModCtrl), NewRuneEvent('b', ModCtrl)},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), NewSpecialEvent(KeyUp, ModNone)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromTcell(tt.ev)
			if !ok {
				t.Fatal("FromTcell reported no equivalent")
			}
			if got != tt.want {
				t.Errorf("FromTcell = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, ok := FromTcell(nil); ok {
		t.Error("FromTcell(nil) should report no equivalent")
	}
}
