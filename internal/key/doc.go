// Package key models keyboard shortcuts as the host's hotkey tables store
// them.
//
//   - Key: a named key, or KeyRune for character keys
//   - Modifier: a bit set of Ctrl, Alt, Shift and Meta
//   - Event: one key press as delivered to a dispatcher, including the
//     auto-repeat flag
//   - Hotkey: one entry of a hotkey table, matched against events
//
// Hotkeys are written as "C-a", "C-S-p", "Ctrl+Shift+P" or "<A-F4>".
// Terminal input is converted with FromTcell.
package key
