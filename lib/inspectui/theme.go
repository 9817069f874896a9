// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette of the inspector. All colors use
// lipgloss ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Run state badge colors.
	StateStopped lipgloss.Color
	StateRunning lipgloss.Color
	StateBroken  lipgloss.Color

	// Log and error tree colors.
	ErrorText   lipgloss.Color
	WarningText lipgloss.Color
	EditorText  lipgloss.Color

	HeaderForeground lipgloss.Color
	ActiveTab        lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// StateColor returns the badge color for a run state.
func (theme Theme) StateColor(running, broken bool) lipgloss.Color {
	switch {
	case broken:
		return theme.StateBroken
	case running:
		return theme.StateRunning
	default:
		return theme.StateStopped
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StateStopped: lipgloss.Color("245"), // gray
	StateRunning: lipgloss.Color("114"), // green
	StateBroken:  lipgloss.Color("220"), // amber

	ErrorText:   lipgloss.Color("196"),
	WarningText: lipgloss.Color("208"),
	EditorText:  lipgloss.Color("75"),

	HeaderForeground: lipgloss.Color("255"),
	ActiveTab:        lipgloss.Color("141"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
}
