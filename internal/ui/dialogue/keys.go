// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the dialogue screen.
type KeyMap struct {
	Submit  key.Binding
	Advance key.Binding
	Skip    key.Binding
	Auto    key.Binding
	Backlog key.Binding
	Help    key.Binding
	Cancel  key.Binding
	Reset   key.Binding
	Quit    key.Binding

	// Overlay scrolling
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send message"),
		),
		Advance: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("Enter/Space", "continue"),
		),
		Skip: key.NewBinding(
			key.WithKeys("tab", "ctrl+s"),
			key.WithHelp("Tab/C-s", "show the whole page"),
		),
		Auto: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("F3", "toggle auto mode"),
		),
		Backlog: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "backlog"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close overlay / cancel request"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "forget this conversation"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c/C-q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Advance, k.Skip, k.Auto, k.Backlog, k.Help}
}

// FullHelp returns the bindings grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Advance, k.Skip, k.Auto},
		{k.Backlog, k.Help, k.Cancel, k.Reset, k.Quit},
		{k.Up, k.Down, k.PageUp, k.PageDown},
	}
}
