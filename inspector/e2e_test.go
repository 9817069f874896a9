// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/testutil"
	"github.com/bureau-foundation/liveinspect/probe"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/transport"
	"github.com/bureau-foundation/liveinspect/wire"
)

const frameDelta = 16 * time.Millisecond

// game is a running probe wired to a session through a pipe.
type game struct {
	t       *testing.T
	tree    *scenegraph.Tree
	probe   *probe.Probe
	session *Session
	view    *recordingView
}

func newGame(t *testing.T, stack func() []probe.Frame) *game {
	t.Helper()
	tree := scenegraph.NewTree(scenegraph.NewObjectDB(), scenegraph.NewClassDB())
	loader, err := scenegraph.NewResourceLoader(tree.DB(), tree.Classes(), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("NewResourceLoader: %v", err)
	}
	t.Cleanup(loader.Close)

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	agent, err := probe.New(probe.Config{Tree: tree, Loader: loader, Clock: fake, Logger: quietLogger(), Stack: stack})
	if err != nil {
		t.Fatalf("probe.New: %v", err)
	}
	view := &recordingView{}
	session := New(Config{
		Clock:                fake,
		Logger:               quietLogger(),
		View:                 view,
		Resolver:             LoaderResolver{Loader: loader},
		ProfilerMaxFunctions: 16,
	})

	inspectorSide, probeSide := transport.Pipe(transport.Options{})
	agent.Attach(probeSide)
	session.Attach(inspectorSide)
	t.Cleanup(session.Stop)
	t.Cleanup(agent.Detach)
	return &game{t: t, tree: tree, probe: agent, session: session, view: view}
}

func (g *game) node(class, name string, parent *scenegraph.Node) *scenegraph.Node {
	g.t.Helper()
	node, err := g.tree.Classes().Instance(g.tree.DB(), class, name)
	if err != nil {
		g.t.Fatalf("Instance(%q): %v", class, err)
	}
	if err := parent.AddChild(node); err != nil {
		g.t.Fatalf("AddChild(%q): %v", name, err)
	}
	return node
}

// until runs game and editor frames on the test goroutine until
// condition holds.
func (g *game) until(condition func() bool, msgAndArgs ...any) {
	g.t.Helper()
	testutil.Eventually(g.t, 5*time.Second, func() bool {
		g.probe.Tick(frameDelta)
		g.session.Tick()
		return condition()
	}, msgAndArgs...)
}

func TestEndToEndSingleRootTree(t *testing.T) {
	g := newGame(t, nil)
	g.until(func() bool { return g.session.Tree().Root() != nil }, "first scene tree")

	rows := g.session.Tree().Rows()
	if len(rows) != 1 {
		t.Fatalf("tree has %d rows, want 1", len(rows))
	}
	root := rows[0].Item
	if root.Name != "root" || root.Class != "Node" || len(root.Children) != 0 {
		t.Errorf("root row = %+v", root)
	}
	if root.ID != g.tree.Root().ID() {
		t.Errorf("root id = %v, want %v", root.ID, g.tree.Root().ID())
	}
}

func TestEndToEndInspectAndEdit(t *testing.T) {
	g := newGame(t, nil)
	player := g.node("Node2D", "player", g.tree.Root())

	if err := g.session.Inspect(player.ID()); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	var proxy *Proxy
	g.until(func() bool {
		var ok bool
		proxy, ok = g.session.Registry().Lookup(player.ID())
		return ok
	}, "inspect reply for player")
	if proxy.Class != "Node2D" {
		t.Errorf("proxy class = %q", proxy.Class)
	}
	if _, ok := proxy.Property("position"); !ok {
		t.Fatalf("proxy has no position: %v", proxy.Properties())
	}

	if err := proxy.Set("position", wire.Vector2{X: 10, Y: 20}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	g.until(func() bool {
		position, _ := player.Get("position")
		return position == wire.Vector2{X: 10, Y: 20}
	}, "edit reaching the game")
}

func TestEndToEndLiveCreateAndUndo(t *testing.T) {
	g := newGame(t, nil)
	g.node("Node2D", "player", g.tree.Root())

	g.session.Live().CreateNode("/root/player", "Sprite", "Sprite1")
	g.until(func() bool {
		_, ok := g.tree.GetNode("/root/player/Sprite1")
		return ok
	}, "live create")
	sprite, _ := g.tree.GetNode("/root/player/Sprite1")
	if sprite.Class() != "Sprite" {
		t.Errorf("created class = %q", sprite.Class())
	}

	if name, err := g.session.Live().Undo(); err != nil || name != "Create Sprite1" {
		t.Fatalf("Undo = %q, %v", name, err)
	}
	g.until(func() bool {
		_, ok := g.tree.GetNode("/root/player/Sprite1")
		return !ok
	}, "undo removing the created node")

	if _, err := g.session.Live().Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	g.until(func() bool {
		_, ok := g.tree.GetNode("/root/player/Sprite1")
		return ok
	}, "redo recreating the node")
}

func TestEndToEndProfiling(t *testing.T) {
	g := newGame(t, nil)
	g.session.StartProfiling()
	g.until(g.probe.Profiler().Active, "probe starting the profiler")
	if got := g.probe.Profiler().MaxFunctions(); got != 16 {
		t.Errorf("probe function limit = %d, want 16", got)
	}

	g.probe.Profiler().Record("res://enemy.gd::10::update", 5, 10*time.Millisecond, 8*time.Millisecond)
	var item ProfileItem
	g.until(func() bool {
		return slices.ContainsFunc(g.session.Profiler().Frames(), func(frame *ProfileFrame) bool {
			var ok bool
			item, ok = frame.Function("update")
			return ok
		})
	}, "profile frame carrying the recorded function")

	if item.Script != "res://enemy.gd" || item.Line != 10 || item.Calls != 5 {
		t.Errorf("item = %+v", item)
	}
	if !near(item.Total, 0.010) || !near(item.Self, 0.008) {
		t.Errorf("times = %v/%v", item.Total, item.Self)
	}
	if item.Signature != "res://enemy.gd::10::update" {
		t.Errorf("signature = %q", item.Signature)
	}
	if len(g.view.frames) == 0 {
		t.Error("view saw no profile frames")
	}
}

func TestEndToEndBreakAndContinue(t *testing.T) {
	var self *scenegraph.Node
	g := newGame(t, func() []probe.Frame {
		return []probe.Frame{{
			Function: "_process",
			File:     "res://player.gd",
			Line:     12,
			Locals:   []probe.Variable{{Name: "delta", Value: 0.016}},
			Members:  []probe.Variable{{Name: "self", Value: self}},
		}}
	})
	self = g.node("Node2D", "player", g.tree.Root())
	g.until(g.session.Connected)

	// Debug blocks the game loop, so the game runs on its own
	// goroutine from here.
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-stop:
				return
			default:
			}
			g.probe.Tick(frameDelta)
			time.Sleep(time.Millisecond)
		}
	}()
	var once sync.Once
	finish := func() {
		once.Do(func() {
			close(stop)
			// Ending the session releases a game still inside Debug.
			g.session.Stop()
			testutil.RequireClosed(t, stopped, 5*time.Second, "game loop exiting")
		})
	}
	t.Cleanup(finish)

	if err := g.session.Break(); err != nil {
		t.Fatalf("Break: %v", err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		g.session.Tick()
		return len(g.session.Controls().Variables.Members) > 0
	}, "break with frame variables")

	controls := g.session.Controls()
	if g.session.State() != StateBroken || controls.ReasonIsError {
		t.Errorf("state %v, controls %+v", g.session.State(), controls)
	}
	if len(controls.Frames) != 1 || controls.Frames[0].Function != "_process" || controls.Frames[0].Line != 12 {
		t.Errorf("frames = %+v", controls.Frames)
	}
	if g.session.Tree().Selected() != self.ID() {
		t.Errorf("selected %v, want self %v", g.session.Tree().Selected(), self.ID())
	}

	if err := g.session.Continue(); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		g.session.Tick()
		return g.session.State() == StateRunning
	}, "debug_exit after continue")
	finish()
}
