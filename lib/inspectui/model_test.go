// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/liveinspect/inspector"
	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/testutil"
	"github.com/bureau-foundation/liveinspect/transport"
	"github.com/bureau-foundation/liveinspect/wire"
)

func TestMain(m *testing.M) {
	// Views are compared as plain text.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type fixture struct {
	t       *testing.T
	model   Model
	session *inspector.Session
	feed    *Feed
	probe   *transport.Conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	feed := NewFeed(0)
	session := inspector.New(inspector.Config{
		Clock:  clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		View:   feed,
	})
	inspectorSide, probeSide := transport.Pipe(transport.Options{})
	session.Attach(inspectorSide)
	t.Cleanup(session.Stop)
	t.Cleanup(func() { probeSide.Close() })

	f := &fixture{t: t, model: NewModel(session, feed, Options{ExportDir: t.TempDir()}), session: session, feed: feed, probe: probeSide}
	f.model = f.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	f.expect(wire.LiveSetRoot)
	return f
}

func (f *fixture) update(message tea.Msg) Model {
	f.t.Helper()
	updated, _ := f.model.Update(message)
	model, ok := updated.(Model)
	if !ok {
		f.t.Fatalf("Update returned %T", updated)
	}
	f.model = model
	return model
}

func (f *fixture) press(keys ...tea.KeyMsg) {
	for _, key := range keys {
		f.update(key)
	}
}

func runes(text string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)} }

// deliver sends probe messages and runs frames until the session has
// consumed them.
func (f *fixture) deliver(messages ...wire.Message) {
	f.t.Helper()
	for _, message := range messages {
		if err := f.probe.Send(message); err != nil {
			f.t.Fatalf("Send(%s): %v", message.Name, err)
		}
	}
	last := messages[len(messages)-1]
	testutil.Eventually(f.t, 5*time.Second, func() bool {
		f.update(frameMsg(time.Now()))
		switch last.Name {
		case wire.SceneTree:
			return f.session.Tree().Root() != nil
		case wire.Error:
			count, _ := f.session.Errors().Counts()
			return count > 0
		}
		return true
	}, "session consuming %s", last.Name)
}

func (f *fixture) expect(name string) wire.Message {
	f.t.Helper()
	var message wire.Message
	testutil.Eventually(f.t, 5*time.Second, func() bool {
		var ok bool
		message, ok = f.probe.Receive()
		return ok && message.Name == name
	}, "waiting for %s", name)
	return message
}

func TestTabSwitching(t *testing.T) {
	f := newFixture(t)
	if f.model.Tab() != TabTree {
		t.Fatalf("initial tab = %v", f.model.Tab())
	}
	f.press(tea.KeyMsg{Type: tea.KeyTab})
	if f.model.Tab() != TabInspector {
		t.Errorf("after tab: %v", f.model.Tab())
	}
	f.press(runes("9"))
	if f.model.Tab() != TabOutput {
		t.Errorf("after 9: %v", f.model.Tab())
	}
	f.press(tea.KeyMsg{Type: tea.KeyTab})
	if f.model.Tab() != TabTree {
		t.Errorf("tab did not wrap: %v", f.model.Tab())
	}
	f.press(tea.KeyMsg{Type: tea.KeyShiftTab})
	if f.model.Tab() != TabOutput {
		t.Errorf("shift+tab did not wrap: %v", f.model.Tab())
	}
}

func TestTreeRenderAndInspect(t *testing.T) {
	f := newFixture(t)
	f.deliver(wire.NewMessage(wire.SceneTree,
		int64(1), "root", "Node", wire.ObjectID(1),
		int64(1), "Level", "Node2D", wire.ObjectID(5),
		int64(0), "Player", "Node2D", wire.ObjectID(7),
	))

	view := f.model.View()
	if !strings.Contains(view, "Level") || strings.Contains(view, "Player") {
		t.Fatalf("collapsed tree view:\n%s", view)
	}
	f.press(tea.KeyMsg{Type: tea.KeyDown}, runes(" "))
	if view := f.model.View(); !strings.Contains(view, "Player") {
		t.Fatalf("expanded tree view missing child:\n%s", view)
	}

	f.press(tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	message := f.expect(wire.InspectObject)
	if id, _ := message.ObjectID(0); id != 7 {
		t.Errorf("inspected %v, want 7", id)
	}
	if f.session.Inspected() != 7 {
		t.Errorf("session inspecting %v", f.session.Inspected())
	}
}

func TestFilterEntry(t *testing.T) {
	f := newFixture(t)
	f.press(runes("/"), runes("p"), runes("l"), tea.KeyMsg{Type: tea.KeyBackspace}, runes("L"))
	if !f.model.filtering {
		t.Fatal("filter mode not active")
	}
	if !strings.Contains(f.model.View(), "filter: pL") {
		t.Errorf("status bar does not echo the filter:\n%s", f.model.View())
	}
	f.press(tea.KeyMsg{Type: tea.KeyEnter})
	if f.model.filtering {
		t.Error("enter did not leave filter mode")
	}
	if got := f.session.Tree().Filter(); got != "pL" {
		t.Errorf("tree filter = %q", got)
	}
	f.expect(wire.RequestSceneTree)

	f.press(tea.KeyMsg{Type: tea.KeyEscape})
	if got := f.session.Tree().Filter(); got != "" {
		t.Errorf("esc left filter %q", got)
	}
}

func TestDebuggerBadgeAndBreak(t *testing.T) {
	f := newFixture(t)
	f.deliver(wire.NewMessage(wire.Error, []any{
		int64(0), int64(0), int64(1), int64(0),
		"_ready", "res://main.gd", int64(3), "", "null instance", false,
	}, int64(0)))
	if view := f.model.View(); !strings.Contains(view, "Debugger (1)") {
		t.Errorf("tab bar missing error badge:\n%s", view)
	}

	f.press(runes("b"))
	f.expect(wire.Break)
	f.press(runes("c"))
	if !strings.Contains(f.model.Notice(), "continue") {
		t.Errorf("continue while running gave notice %q", f.model.Notice())
	}
}

func TestCameraCycle(t *testing.T) {
	f := newFixture(t)
	f.press(runes("m"))
	if f.session.Camera().Mode() != inspector.Camera2D {
		t.Fatalf("mode = %v", f.session.Camera().Mode())
	}
	f.expect(wire.OverrideCamera2DSet)
	f.press(runes("m"), runes("m"))
	if f.session.Camera().Mode() != inspector.CameraNone {
		t.Errorf("mode after full cycle = %v", f.session.Camera().Mode())
	}
}

func TestOutputFollowsNewLines(t *testing.T) {
	f := newFixture(t)
	f.press(runes("9"))
	for range 3 {
		f.feed.Log("line", inspector.LogOutput)
		f.update(frameMsg(time.Now()))
	}
	if got, want := f.model.Cursor(TabOutput), len(f.feed.Lines())-1; got != want {
		t.Errorf("output cursor = %d, want last line %d", got, want)
	}
}

func TestFeedBoundsLog(t *testing.T) {
	feed := NewFeed(2)
	feed.Log("a", inspector.LogOutput)
	feed.Log("b", inspector.LogOutput)
	feed.Log("c", inspector.LogError)
	lines := feed.Lines()
	if len(lines) != 2 || lines[0].Text != "b" || lines[1].Kind != inspector.LogError {
		t.Errorf("lines = %+v", lines)
	}
}

func TestLogHandlerSummary(t *testing.T) {
	handler := NewLogHandler(slog.LevelInfo)
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug records enabled")
	}
	derived := handler.WithAttrs([]slog.Attr{slog.String("session", "abc")}).WithGroup("probe").(*LogHandler)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "ignoring malformed debugger message", 0)
	record.AddAttrs(slog.String("message", "output"), slog.Int("arity", 1))
	got := derived.summary(record)
	want := "ignoring malformed debugger message (probe.message=output, probe.arity=1)"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	// Without a program, records are dropped.
	if err := derived.Handle(context.Background(), record); err != nil {
		t.Errorf("Handle: %v", err)
	}
}
