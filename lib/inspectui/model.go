// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/liveinspect/inspector"
	"github.com/bureau-foundation/liveinspect/lib/monitor"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Tab identifies the panel shown in the body.
type Tab int

const (
	TabTree Tab = iota
	TabInspector
	TabDebugger
	TabErrors
	TabProfiler
	TabMonitors
	TabNetwork
	TabVideoMemory
	TabOutput

	tabCount
)

var tabNames = [tabCount]string{
	"Scene", "Inspector", "Debugger", "Errors", "Profiler",
	"Monitors", "Network", "Video", "Output",
}

func (tab Tab) String() string {
	if tab < 0 || tab >= tabCount {
		return fmt.Sprintf("Tab(%d)", int(tab))
	}
	return tabNames[tab]
}

// FrameInterval is how often the model ticks the session.
const FrameInterval = 16 * time.Millisecond

// Default image size for exported monitor graphs.
const (
	defaultGraphWidth  = 1024
	defaultGraphHeight = 480
)

// frameMsg drives session.Tick.
type frameMsg time.Time

// scriptChangedMsg reports an edited script file.
type scriptChangedMsg struct{ path string }

// exportResultMsg reports a finished export.
type exportResultMsg struct {
	path string
	err  error
}

// cameraCycle is the order the camera key steps through.
var cameraCycle = []inspector.CameraMode{inspector.CameraNone, inspector.Camera2D, inspector.Camera3D(0)}

// Options configures a Model.
type Options struct {
	// ScriptChanges delivers the paths of edited scripts; each one
	// reloads the game's scripts. Nil disables hot reload.
	ScriptChanges <-chan string
	// ExportDir receives exported CSV files and graphs. Empty means
	// the working directory.
	ExportDir string

	GraphWidth  int
	GraphHeight int
}

// Model is the top-level bubbletea model of the inspector.
type Model struct {
	session *inspector.Session
	feed    *Feed
	theme   Theme
	keys    KeyMap
	options Options

	width  int
	height int

	tab    Tab
	cursor [tabCount]int
	// logSeen is the output length at the last frame; the output
	// cursor follows new lines while it sits on the last one.
	logSeen int

	filtering   bool
	filterInput string

	notice      string
	noticeLevel slog.Level
}

// NewModel creates a model driving session. feed must be the
// session's View.
func NewModel(session *inspector.Session, feed *Feed, options Options) Model {
	if options.ExportDir == "" {
		options.ExportDir = "."
	}
	if options.GraphWidth <= 0 {
		options.GraphWidth = defaultGraphWidth
	}
	if options.GraphHeight <= 0 {
		options.GraphHeight = defaultGraphHeight
	}
	return Model{
		session: session,
		feed:    feed,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		options: options,
	}
}

// Init starts the frame timer and the script change listener.
func (model Model) Init() tea.Cmd {
	return tea.Batch(nextFrame(), listenForScriptChange(model.options.ScriptChanges))
}

func nextFrame() tea.Cmd {
	return tea.Tick(FrameInterval, func(now time.Time) tea.Msg { return frameMsg(now) })
}

// listenForScriptChange waits for one change and delivers it. Update
// re-arms the listener after each delivery.
func listenForScriptChange(changes <-chan string) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return nil
		}
		return scriptChangedMsg{path: path}
	}
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case frameMsg:
		model.frame()
		return model, nextFrame()

	case scriptChangedMsg:
		if err := model.session.ReloadScripts(); err == nil {
			model.feed.Log("reloading scripts after change to "+message.path, inspector.LogEditor)
		}
		return model, listenForScriptChange(model.options.ScriptChanges)

	case logRecordMsg:
		model.notice = message.Summary
		model.noticeLevel = message.Level
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg { return logRecordFadeMsg{} })

	case logRecordFadeMsg:
		model.notice = ""
		return model, nil

	case exportResultMsg:
		if message.err != nil {
			model.setNotice(slog.LevelError, "export failed: %v", message.err)
		} else {
			model.setNotice(slog.LevelInfo, "wrote %s", message.path)
		}
		return model, nil

	case tea.KeyMsg:
		if model.filtering {
			return model.handleFilterKeys(message)
		}
		return model.handleKeys(message)
	}
	return model, nil
}

// frame ticks the session and folds its notifications into the
// panels.
func (model *Model) frame() {
	model.session.Tick()
	if model.feed.takeTreeChanged() {
		model.clampCursor(TabTree)
	}
	if id, ok := model.feed.takeSelectRequest(); ok {
		model.scrollTreeTo(id)
	}
	if id, ok := model.session.Tree().TakeScrollRequest(); ok {
		model.scrollTreeTo(id)
	}
	lines := len(model.feed.Lines())
	if model.cursor[TabOutput] >= model.logSeen-1 {
		model.cursor[TabOutput] = max(lines-1, 0)
	}
	model.logSeen = lines
}

func (model *Model) scrollTreeTo(id wire.ObjectID) {
	for index, row := range model.session.Tree().Rows() {
		if row.Item.ID == id {
			model.cursor[TabTree] = index
			return
		}
	}
}

func (model *Model) setNotice(level slog.Level, format string, args ...any) {
	model.notice = fmt.Sprintf(format, args...)
	model.noticeLevel = level
}

// report turns an action error into a notice.
func (model *Model) report(action string, err error) {
	if err != nil {
		model.setNotice(slog.LevelWarn, "%s: %v", action, err)
	}
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := model.keys
	switch {
	case key.Matches(message, keys.Quit):
		return model, tea.Quit
	case key.Matches(message, keys.NextTab):
		model.tab = (model.tab + 1) % tabCount
	case key.Matches(message, keys.PreviousTab):
		model.tab = (model.tab + tabCount - 1) % tabCount
	case len(message.Runes) == 1 && message.Runes[0] >= '1' && message.Runes[0] <= '9':
		model.tab = Tab(message.Runes[0] - '1')
	case key.Matches(message, keys.Up):
		model.moveCursor(-1)
	case key.Matches(message, keys.Down):
		model.moveCursor(1)
	case key.Matches(message, keys.PageUp):
		model.moveCursor(-model.bodyHeight())
	case key.Matches(message, keys.PageDown):
		model.moveCursor(model.bodyHeight())
	case key.Matches(message, keys.Break):
		model.report("break", model.session.Break())
	case key.Matches(message, keys.Continue):
		model.report("continue", model.session.Continue())
	case key.Matches(message, keys.Step):
		model.report("step", model.session.Step())
	case key.Matches(message, keys.Next):
		model.report("next", model.session.Next())
	case key.Matches(message, keys.SkipBreak):
		skip := !model.session.Controls().SkipBreakpoints
		model.session.SetSkipBreakpoints(skip)
		model.setNotice(slog.LevelInfo, "skip breakpoints: %v", skip)
	case key.Matches(message, keys.Undo):
		if name, err := model.session.Live().Undo(); err != nil {
			model.report("undo", err)
		} else {
			model.setNotice(slog.LevelInfo, "undo %s", name)
		}
	case key.Matches(message, keys.Redo):
		if name, err := model.session.Live().Redo(); err != nil {
			model.report("redo", err)
		} else {
			model.setNotice(slog.LevelInfo, "redo %s", name)
		}
	case key.Matches(message, keys.Reload):
		model.report("reload scripts", model.session.ReloadScripts())
	case key.Matches(message, keys.TreeNow):
		model.report("refresh tree", model.session.RequestTree())
	case key.Matches(message, keys.Camera):
		model.cycleCamera()
	default:
		return model.handleTabKeys(message)
	}
	return model, nil
}

func (model Model) handleTabKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := model.keys
	cursor := model.cursor[model.tab]
	switch model.tab {
	case TabTree:
		rows := model.session.Tree().Rows()
		switch {
		case key.Matches(message, keys.Filter):
			model.filtering = true
			model.filterInput = model.session.Tree().Filter()
		case key.Matches(message, keys.Clear):
			model.session.Tree().SetFilter("")
		case cursor >= len(rows):
		case key.Matches(message, keys.Select):
			model.report("inspect", model.session.Inspect(rows[cursor].Item.ID))
		case key.Matches(message, keys.Toggle):
			item := rows[cursor].Item
			if rows[cursor].Expanded {
				model.session.Tree().Collapse(item.ID)
			} else {
				model.session.Tree().Expand(item.ID)
			}
		case key.Matches(message, keys.CopyPath):
			if path, ok := model.session.Tree().CopyNodePath(rows[cursor].Item.ID); ok {
				model.feed.Log(string(path), inspector.LogEditor)
				model.setNotice(slog.LevelInfo, "copied %s", path)
			}
		}

	case TabInspector:
		if key.Matches(message, keys.Toggle) {
			model.toggleProperty(cursor)
		}

	case TabDebugger:
		if key.Matches(message, keys.Select) {
			model.report("select frame", model.session.SelectFrame(cursor))
		}

	case TabErrors:
		if key.Matches(message, keys.ClearData) {
			model.session.Errors().Clear()
			model.cursor[TabErrors] = 0
		}

	case TabProfiler:
		switch {
		case key.Matches(message, keys.Profile):
			if model.session.Profiler().Active() {
				model.session.StopProfiling()
			} else {
				model.session.StartProfiling()
			}
		case key.Matches(message, keys.ClearData):
			model.session.Profiler().Clear()
		case key.Matches(message, keys.Export):
			return model, model.export("metrics.csv", model.session.ExportMetrics)
		}

	case TabMonitors:
		performance := model.session.Performance()
		switch {
		case key.Matches(message, keys.Toggle):
			performance.Select(cursor, !slices.Contains(performance.Selected(), cursor))
		case key.Matches(message, keys.Export):
			return model, model.export("metrics.csv", model.session.ExportMetrics)
		case key.Matches(message, keys.Graph):
			image, err := inspector.RenderMonitorGraph(performance, performance.Selected(), inspector.GraphPNG, model.options.GraphWidth, model.options.GraphHeight)
			if err != nil {
				model.report("graph", err)
				break
			}
			return model, model.export("monitors.png", func(w io.Writer) error {
				_, err := w.Write(image)
				return err
			})
		}

	case TabNetwork:
		if key.Matches(message, keys.Profile) {
			if model.session.Network().Active() {
				model.session.StopNetworkProfiling()
			} else {
				model.session.StartNetworkProfiling()
			}
		}

	case TabVideoMemory:
		switch {
		case key.Matches(message, keys.VideoMem):
			model.report("video memory", model.session.RequestVideoMemory())
		case key.Matches(message, keys.Export):
			return model, model.export("video_memory.csv", model.session.ExportVideoMemory)
		}
	}
	return model, nil
}

// toggleProperty flips a boolean property of the edited object.
func (model *Model) toggleProperty(index int) {
	proxy, ok := model.session.Registry().Lookup(model.session.Inspected())
	if !ok {
		return
	}
	properties := proxy.Properties()
	if index >= len(properties) || properties[index].Type != wire.TypeBool {
		return
	}
	value, _ := properties[index].Value.(bool)
	model.report("edit "+properties[index].Name, proxy.Set(properties[index].Name, !value))
}

func (model *Model) cycleCamera() {
	current := model.session.Camera().Mode()
	next := cameraCycle[0]
	for index, mode := range cameraCycle {
		if mode == current {
			next = cameraCycle[(index+1)%len(cameraCycle)]
			break
		}
	}
	model.session.SetCameraMode(next)
	model.setNotice(slog.LevelInfo, "camera override: %s", next)
}

// export renders the data now and writes the file off the event loop.
func (model *Model) export(name string, render func(io.Writer) error) tea.Cmd {
	var buffer bytes.Buffer
	if err := render(&buffer); err != nil {
		model.report("export", err)
		return nil
	}
	path := filepath.Join(model.options.ExportDir, name)
	return func() tea.Msg {
		return exportResultMsg{path: path, err: os.WriteFile(path, buffer.Bytes(), 0o644)}
	}
}

func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEnter:
		model.filtering = false
		model.session.Tree().SetFilter(model.filterInput)
		model.report("refresh tree", model.session.RequestTree())
	case tea.KeyEscape:
		model.filtering = false
	case tea.KeyBackspace:
		if runes := []rune(model.filterInput); len(runes) > 0 {
			model.filterInput = string(runes[:len(runes)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		model.filterInput += string(message.Runes)
	}
	return model, nil
}

func (model *Model) moveCursor(delta int) {
	model.cursor[model.tab] += delta
	model.clampCursor(model.tab)
}

func (model *Model) clampCursor(tab Tab) {
	count := model.rowCount(tab)
	model.cursor[tab] = max(min(model.cursor[tab], count-1), 0)
}

// rowCount is the number of selectable rows of a tab.
func (model *Model) rowCount(tab Tab) int {
	session := model.session
	switch tab {
	case TabTree:
		return len(session.Tree().Rows())
	case TabInspector:
		if proxy, ok := session.Registry().Lookup(session.Inspected()); ok {
			return len(proxy.Properties())
		}
	case TabDebugger:
		return len(session.Controls().Frames)
	case TabErrors:
		return len(session.Errors().Entries())
	case TabProfiler:
		if frame, ok := session.Profiler().Last(); ok {
			count := 0
			for _, category := range frame.Categories {
				count += 1 + len(category.Items)
			}
			return count
		}
	case TabMonitors:
		return monitor.Count
	case TabNetwork:
		return len(session.Network().Rows())
	case TabVideoMemory:
		return len(session.VideoMemory().Resources)
	case TabOutput:
		return len(model.feed.Lines())
	}
	return 0
}

// Tab returns the active tab.
func (model Model) Tab() Tab { return model.tab }

// Cursor returns the cursor row of a tab.
func (model Model) Cursor(tab Tab) int { return model.cursor[tab] }

// Notice returns the status bar notice, if any.
func (model Model) Notice() string { return model.notice }
