// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/liveinspect/inspector"
	"github.com/bureau-foundation/liveinspect/lib/monitor"
)

// chromeHeight is the rows taken by the tab bar, the panel title, and
// the status bar.
const chromeHeight = 3

// Terminal size assumed before the first WindowSizeMsg.
const (
	defaultWidth  = 100
	defaultHeight = 30
)

func (model Model) size() (int, int) {
	width, height := model.width, model.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

func (model Model) bodyHeight() int {
	_, height := model.size()
	return max(height-chromeHeight, 1)
}

// View renders the tab bar, the active panel, and the status bar.
func (model Model) View() string {
	width, _ := model.size()
	title, lines := model.panel(model.tab)
	body := model.window(lines, model.cursor[model.tab], model.bodyHeight())

	header := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	parts := []string{
		ansi.Truncate(model.tabBar(), width, "…"),
		ansi.Truncate(header.Render(title), width, "…"),
	}
	for _, line := range body {
		parts = append(parts, ansi.Truncate(line, width, "…"))
	}
	for range model.bodyHeight() - len(body) {
		parts = append(parts, "")
	}
	parts = append(parts, ansi.Truncate(model.statusBar(), width, "…"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (model Model) tabBar() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(model.theme.ActiveTab).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	names := make([]string, tabCount)
	for tab := range tabCount {
		name := fmt.Sprintf("%d %s", tab+1, tab)
		if tab == TabDebugger {
			name = fmt.Sprintf("%d %s", tab+1, model.session.Errors().Badge())
		}
		if tab == model.tab {
			names[tab] = active.Render(name)
		} else {
			names[tab] = inactive.Render(name)
		}
	}
	state := model.session.State()
	badge := lipgloss.NewStyle().Bold(true).
		Foreground(model.theme.StateColor(state == inspector.StateRunning, state == inspector.StateBroken)).
		Render("[" + state.String() + "]")
	return badge + " " + strings.Join(names, "  ")
}

func (model Model) statusBar() string {
	if model.filtering {
		return "filter: " + model.filterInput + "▏"
	}
	if model.notice != "" {
		color := model.theme.NormalText
		switch {
		case model.noticeLevel >= slog.LevelError:
			color = model.theme.ErrorText
		case model.noticeLevel >= slog.LevelWarn:
			color = model.theme.WarningText
		}
		return lipgloss.NewStyle().Foreground(color).Render(model.notice)
	}
	help := "q quit  tab switch  b break  c continue  s step  n next  r reload  u/U undo/redo  m camera"
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(help)
}

// window returns the slice of lines that keeps cursor visible, with
// the cursor row highlighted.
func (model Model) window(lines []string, cursor, height int) []string {
	if len(lines) == 0 {
		return nil
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(lines))
	selected := lipgloss.NewStyle().
		Background(model.theme.SelectedBackground).
		Foreground(model.theme.SelectedForeground)
	out := make([]string, 0, end-start)
	for index := start; index < end; index++ {
		line := lines[index]
		if index == cursor {
			line = selected.Render(ansi.Strip(line))
		}
		out = append(out, line)
	}
	return out
}

// panel renders a tab as a title and its rows.
func (model Model) panel(tab Tab) (string, []string) {
	session := model.session
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	switch tab {
	case TabTree:
		title := "Scene tree"
		if filter := session.Tree().Filter(); filter != "" {
			title += fmt.Sprintf(" (filter %q)", filter)
		}
		var lines []string
		for _, row := range session.Tree().Rows() {
			marker := " "
			if len(row.Item.Children) > 0 {
				marker = "▸"
				if row.Expanded {
					marker = "▾"
				}
			}
			name := row.Item.Name
			if row.Selected {
				name = lipgloss.NewStyle().Bold(true).Render(name)
			}
			lines = append(lines, strings.Repeat("  ", row.Depth)+marker+" "+name+" "+faint.Render(row.Item.Class))
		}
		return title, lines

	case TabInspector:
		proxy, ok := session.Registry().Lookup(session.Inspected())
		if !ok {
			return "Inspector (nothing selected)", nil
		}
		var lines []string
		for _, property := range proxy.Properties() {
			lines = append(lines, fmt.Sprintf("%-24s %v", property.Name, property.Value))
		}
		return fmt.Sprintf("Inspector: %s %v", proxy.Class, proxy.RemoteID), lines

	case TabDebugger:
		return model.debuggerPanel()

	case TabErrors:
		errorStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorText)
		warningStyle := lipgloss.NewStyle().Foreground(model.theme.WarningText)
		var lines []string
		for _, entry := range session.Errors().Entries() {
			kind := errorStyle.Render("E")
			if entry.Warning {
				kind = warningStyle.Render("W")
			}
			lines = append(lines, fmt.Sprintf("%s %s %s %s", entry.Time(), kind, entry.Title(), faint.Render(entry.Source())))
		}
		errs, warnings := session.Errors().Counts()
		return fmt.Sprintf("Errors: %d errors, %d warnings", errs, warnings), lines

	case TabProfiler:
		profiler := session.Profiler()
		title := "Profiler (stopped, p to start)"
		if profiler.Active() {
			title = "Profiler (recording)"
		}
		frame, ok := profiler.Last()
		if !ok {
			return title, nil
		}
		title += fmt.Sprintf(" frame %d", frame.Number)
		var lines []string
		for _, category := range frame.Categories {
			lines = append(lines, fmt.Sprintf("%-40s %10s", category.Name, milliseconds(category.Total)))
			for _, item := range category.Items {
				lines = append(lines, fmt.Sprintf("  %-38s %10s %s", item.Name, milliseconds(item.Self), faint.Render(fmt.Sprintf("%d calls", item.Calls))))
			}
		}
		return title, lines

	case TabMonitors:
		performance := session.Performance()
		latest, _ := performance.Latest()
		selected := performance.Selected()
		lines := make([]string, monitor.Count)
		for index := range lines {
			box := "[ ]"
			if slices.Contains(selected, index) {
				box = "[x]"
			}
			value := "-"
			if index < len(latest) {
				value = performance.Format(index, latest[index])
			}
			peak := performance.Format(index, performance.Max(index))
			lines[index] = fmt.Sprintf("%s %-28s %12s %s", box, monitor.Table[index].Path(), value, faint.Render("max "+peak))
		}
		return fmt.Sprintf("Monitors (%d samples)", performance.Len()), lines

	case TabNetwork:
		network := session.Network()
		incoming, outgoing := network.Bandwidth()
		state := "stopped"
		if network.Active() {
			state = "recording"
		}
		var lines []string
		for _, row := range network.Rows() {
			lines = append(lines, fmt.Sprintf("%-32s in %d/%d  out %d/%d",
				row.Path, row.IncomingRPC, row.IncomingRSET, row.OutgoingRPC, row.OutgoingRSET))
		}
		return fmt.Sprintf("Network (%s) down %s/s up %s/s", state,
			humanize.IBytes(uint64(max(incoming, 0))), humanize.IBytes(uint64(max(outgoing, 0)))), lines

	case TabVideoMemory:
		inventory := session.VideoMemory()
		var lines []string
		for _, resource := range inventory.Resources {
			lines = append(lines, fmt.Sprintf("%-40s %-12s %-8s %10s", resource.Path, resource.Type, resource.Format, resource.Size()))
		}
		return "Video memory total " + inventory.TotalSize(), lines

	case TabOutput:
		errorStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorText)
		editorStyle := lipgloss.NewStyle().Foreground(model.theme.EditorText)
		var lines []string
		for _, line := range model.feed.Lines() {
			switch line.Kind {
			case inspector.LogError:
				lines = append(lines, errorStyle.Render(line.Text))
			case inspector.LogEditor:
				lines = append(lines, editorStyle.Render(line.Text))
			default:
				lines = append(lines, line.Text)
			}
		}
		return "Output", lines
	}
	return tab.String(), nil
}

func (model Model) debuggerPanel() (string, []string) {
	controls := model.session.Controls()
	if !controls.Broken {
		return "Debugger: " + model.session.State().String(), nil
	}
	title := "Debugger: break"
	if controls.Reason != "" {
		title = "Debugger: " + controls.Reason
	}
	var lines []string
	for _, frame := range controls.Frames {
		lines = append(lines, fmt.Sprintf("#%d %s %s:%d", frame.Index, frame.Function, frame.File, frame.Line))
	}
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	for _, bag := range []struct {
		name      string
		variables []inspector.Variable
	}{
		{"Locals", controls.Variables.Locals},
		{"Members", controls.Variables.Members},
		{"Globals", controls.Variables.Globals},
	} {
		if len(bag.variables) == 0 {
			continue
		}
		lines = append(lines, faint.Render(bag.name))
		for _, variable := range bag.variables {
			lines = append(lines, fmt.Sprintf("  %-20s %v", variable.Name, variable.Value))
		}
	}
	return title, lines
}

func milliseconds(seconds float64) string {
	return fmt.Sprintf("%.2f ms", seconds*1000)
}
