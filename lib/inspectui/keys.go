// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the inspector.
type KeyMap struct {
	// Navigation within the active panel.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Tab switching.
	NextTab     key.Binding
	PreviousTab key.Binding

	// Panel actions. Their meaning depends on the active tab: Select
	// inspects a tree row or selects a stack frame, Toggle folds a
	// tree row or picks a monitor for the graph.
	Select key.Binding
	Toggle key.Binding
	Filter key.Binding
	Clear  key.Binding

	// Debugger.
	Break     key.Binding
	Continue  key.Binding
	Step      key.Binding
	Next      key.Binding
	SkipBreak key.Binding

	// Live edit history.
	Undo key.Binding
	Redo key.Binding

	Reload    key.Binding // Reload game scripts.
	Profile   key.Binding // Toggle the profiler of the active tab.
	VideoMem  key.Binding // Request the video memory inventory.
	Camera    key.Binding // Cycle the camera override.
	Export    key.Binding // Export the active tab's data as CSV.
	Graph     key.Binding // Render the selected monitors.
	CopyPath  key.Binding // Copy the selected node path into the log.
	TreeNow   key.Binding // Request the scene tree now.
	ClearData key.Binding // Clear errors or profiler history.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next tab"),
	),
	PreviousTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-tab", "previous tab"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	Break: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "break"),
	),
	Continue: key.NewBinding(
		key.WithKeys("c", "f5"),
		key.WithHelp("c", "continue"),
	),
	Step: key.NewBinding(
		key.WithKeys("s", "f11"),
		key.WithHelp("s", "step"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "f10"),
		key.WithHelp("n", "next"),
	),
	SkipBreak: key.NewBinding(
		key.WithKeys("B"),
		key.WithHelp("B", "skip breakpoints"),
	),
	Undo: key.NewBinding(
		key.WithKeys("ctrl+z", "u"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+y", "U"),
		key.WithHelp("U", "redo"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload scripts"),
	),
	Profile: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "profile"),
	),
	VideoMem: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "video memory"),
	),
	Camera: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "camera"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Graph: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "graph"),
	),
	CopyPath: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy path"),
	),
	TreeNow: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "refresh tree"),
	),
	ClearData: key.NewBinding(
		key.WithKeys("X"),
		key.WithHelp("X", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
