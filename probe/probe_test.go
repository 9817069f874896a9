// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/testutil"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/transport"
	"github.com/bureau-foundation/liveinspect/wire"
)

const frameDelta = 16 * time.Millisecond

type harness struct {
	t         *testing.T
	tree      *scenegraph.Tree
	loader    *scenegraph.ResourceLoader
	clock     *clock.FakeClock
	probe     *Probe
	inspector *transport.Conn
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tree := scenegraph.NewTree(scenegraph.NewObjectDB(), scenegraph.NewClassDB())
	loader, err := scenegraph.NewResourceLoader(tree.DB(), tree.Classes(), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("NewResourceLoader: %v", err)
	}
	t.Cleanup(loader.Close)

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	probe, err := New(Config{Tree: tree, Loader: loader, Clock: fake, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inspector, probeSide := transport.Pipe(transport.Options{})
	t.Cleanup(func() { inspector.Close() })
	probe.Attach(probeSide)
	t.Cleanup(probe.Detach)
	return &harness{t: t, tree: tree, loader: loader, clock: fake, probe: probe, inspector: inspector}
}

// deliver sends messages from the inspector and waits until the probe
// side has decoded all of them.
func (h *harness) deliver(messages ...wire.Message) {
	h.t.Helper()
	before := h.probe.conn.Pending()
	for _, message := range messages {
		if err := h.inspector.Send(message); err != nil {
			h.t.Fatalf("Send(%s): %v", message.Name, err)
		}
	}
	want := before + len(messages)
	testutil.Eventually(h.t, 5*time.Second, func() bool {
		return h.probe.conn.Pending() >= want
	}, "probe receiving %d messages", len(messages))
}

func (h *harness) tick() { h.probe.Tick(frameDelta) }

func (h *harness) receive() wire.Message {
	h.t.Helper()
	var message wire.Message
	testutil.Eventually(h.t, 5*time.Second, func() bool {
		var ok bool
		message, ok = h.inspector.Receive()
		return ok
	}, "waiting for a probe message")
	return message
}

func (h *harness) expect(name string) wire.Message {
	h.t.Helper()
	message := h.receive()
	if message.Name != name {
		h.t.Fatalf("received %s with %d args, want %s", message.Name, len(message.Args), name)
	}
	return message
}

func (h *harness) node(class, name string, parent *scenegraph.Node) *scenegraph.Node {
	h.t.Helper()
	node, err := h.tree.Classes().Instance(h.tree.DB(), class, name)
	if err != nil {
		h.t.Fatalf("Instance(%q): %v", class, err)
	}
	if err := parent.AddChild(node); err != nil {
		h.t.Fatalf("AddChild(%q): %v", name, err)
	}
	return node
}

func (h *harness) texture(path wire.ResourcePath, width, height int64, format string) *scenegraph.Resource {
	h.t.Helper()
	texture, err := h.tree.Classes().NewResource(h.tree.DB(), "Texture", path)
	if err != nil {
		h.t.Fatalf("NewResource: %v", err)
	}
	texture.Set("width", width)
	texture.Set("height", height)
	texture.Set("format", format)
	if err := h.loader.Register(texture); err != nil {
		h.t.Fatalf("Register: %v", err)
	}
	return texture
}

func TestNewRequiresTreeAndLoader(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted a config without a tree")
	}
	tree := scenegraph.NewTree(scenegraph.NewObjectDB(), scenegraph.NewClassDB())
	if _, err := New(Config{Tree: tree}); err == nil {
		t.Fatal("New accepted a config without a loader")
	}
}

func TestRequestSceneTreeRepliesWithFlattenedTree(t *testing.T) {
	h := newHarness(t)
	main := h.node("Node2D", "Main", h.tree.Root())
	h.node("Sprite", "Player", main)

	h.deliver(wire.NewMessage(wire.RequestSceneTree))
	h.tick()

	reply := h.expect(wire.SceneTree)
	if len(reply.Args) != 12 {
		t.Fatalf("scene tree has %d args, want 12: %v", len(reply.Args), reply.Args)
	}
	if reply.Args[0] != int64(1) || reply.Args[1] != "root" {
		t.Errorf("root header = %v %v", reply.Args[0], reply.Args[1])
	}
	if reply.Args[5] != "Main" || reply.Args[6] != "Node2D" || reply.Args[7] != main.ID() {
		t.Errorf("main entry = %v", reply.Args[4:8])
	}
	if reply.Args[8] != int64(0) || reply.Args[9] != "Player" {
		t.Errorf("player entry = %v", reply.Args[8:12])
	}
}

func TestInspectObjectListsEditorProperties(t *testing.T) {
	h := newHarness(t)
	main := h.node("Node2D", "Main", h.tree.Root())
	main.Set("position", wire.Vector2{X: 3, Y: 4})

	h.deliver(wire.NewMessage(wire.InspectObject, main.ID()))
	h.tick()

	reply := h.expect(wire.InspectReply)
	if reply.Args[0] != main.ID() || reply.Args[1] != "Node2D" {
		t.Fatalf("reply header = %v %v", reply.Args[0], reply.Args[1])
	}
	properties, err := reply.Array(2)
	if err != nil {
		t.Fatalf("properties: %v", err)
	}
	found := map[string]wire.Property{}
	for _, tuple := range properties {
		property, err := wire.ParseProperty(tuple)
		if err != nil {
			t.Fatalf("ParseProperty: %v", err)
		}
		found[property.Name] = property
	}
	if position := found["position"]; position.Value != (wire.Vector2{X: 3, Y: 4}) {
		t.Errorf("position = %v", position.Value)
	}
	if name := found["name"]; name.Value != "Main" {
		t.Errorf("name = %v", name.Value)
	}
}

func TestInspectUnknownObjectSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.deliver(
		wire.NewMessage(wire.InspectObject, wire.ObjectID(9999)),
		wire.NewMessage(wire.RequestSceneTree),
	)
	h.tick()
	h.expect(wire.SceneTree)
}

func TestSetObjectPropertyLoadsResourceByPath(t *testing.T) {
	h := newHarness(t)
	h.texture("res://icon.png", 64, 64, "RGBA8")
	sprite := h.node("Sprite", "Player", h.tree.Root())

	h.deliver(
		wire.NewMessage(wire.SetObjectProperty, sprite.ID(), "texture", "res://icon.png"),
		wire.NewMessage(wire.SetObjectProperty, sprite.ID(), "flip_h", true),
	)
	h.tick()

	if texture, _ := sprite.Get("texture"); texture != wire.ResourcePath("res://icon.png") {
		t.Errorf("texture = %v", texture)
	}
	if flip, _ := sprite.Get("flip_h"); flip != true {
		t.Errorf("flip_h = %v", flip)
	}
}

func TestSaveNodeWritesLoadableScene(t *testing.T) {
	h := newHarness(t)
	main := h.node("Node2D", "Main", h.tree.Root())
	h.node("Label", "Score", main)

	h.deliver(wire.NewMessage(wire.SaveNode, main.ID(), "res://saved.lscn"))
	h.tick()

	instance, err := h.loader.InstanceScene("res://saved.lscn")
	if err != nil {
		t.Fatalf("InstanceScene: %v", err)
	}
	if instance.Name() != "Main" || instance.FindChild("Score") == nil {
		t.Fatalf("saved scene root %q with %d children", instance.Name(), instance.ChildCount())
	}
}

func TestRequestVideoMemListsTextures(t *testing.T) {
	h := newHarness(t)
	h.texture("res://icon.png", 64, 32, "RGBA8")
	h.texture("res://atlas.png", 128, 128, "DXT1")

	h.deliver(wire.NewMessage(wire.RequestVideoMem))
	h.tick()

	reply := h.expect(wire.VideoMem)
	want := []any{
		"res://atlas.png", "Texture", "DXT1", int64(128 * 128 / 2),
		"res://icon.png", "Texture", "RGBA8", int64(64 * 32 * 4),
	}
	if len(reply.Args) != len(want) {
		t.Fatalf("video mem = %v, want %v", reply.Args, want)
	}
	for i := range want {
		if reply.Args[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, reply.Args[i], want[i])
		}
	}
}

func TestOutputIsBatchedPerTick(t *testing.T) {
	h := newHarness(t)
	h.probe.Print("ready")
	h.probe.PrintError("texture missing")
	h.tick()

	output := h.expect(wire.Output)
	if len(output.Args) != 2 {
		t.Fatalf("output batch has %d lines, want 2", len(output.Args))
	}
	line, _ := output.Array(1)
	if line[0] != "texture missing" || line[1] != int64(wire.OutputError) {
		t.Errorf("second line = %v", line)
	}
}

func TestReportErrorTimestampsFromStart(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond)
	h.probe.ReportError(ErrorRecord{
		Method:    "_ready",
		File:      "res://main.gd",
		Line:      7,
		Condition: "node != null",
		Message:   "Player not found",
		Stack: []StackEntry{
			{File: "res://main.gd", Function: "_ready", Line: 7},
			{File: "res://level.gd", Function: "spawn", Line: 30},
		},
	})

	message := h.expect(wire.Error)
	header, err := message.Array(0)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if header[0] != int64(1) || header[1] != int64(2) || header[2] != int64(3) || header[3] != int64(45) {
		t.Errorf("timestamp = %v", header[:4])
	}
	if header[8] != "Player not found" || header[9] != false {
		t.Errorf("message/warning = %v %v", header[8], header[9])
	}
	if message.Args[1] != int64(6) || len(message.Args) != 8 {
		t.Fatalf("stack = %v", message.Args[1:])
	}
	if message.Args[6] != "spawn" {
		t.Errorf("second frame function = %v", message.Args[6])
	}
}

func TestPerformanceSentOncePerInterval(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 10; i++ {
		h.tick()
	}
	h.clock.Advance(time.Second)
	h.tick()

	message := h.expect(wire.Performance)
	values, err := message.Array(0)
	if err != nil {
		t.Fatalf("monitor vector: %v", err)
	}
	if fps, _ := wire.AsFloat(values[0]); fps < 60 || fps > 65 {
		t.Errorf("fps = %v, want about 62.5", fps)
	}
	h.tick()
	h.deliver(wire.NewMessage(wire.RequestVideoMem))
	h.tick()
	h.expect(wire.VideoMem)
}

func TestCameraOverride(t *testing.T) {
	h := newHarness(t)
	transform := wire.Scaled2D(wire.Vector2{X: 2, Y: 2}, wire.Vector2{X: 10, Y: 20})
	h.deliver(
		wire.NewMessage(wire.OverrideCamera2DSet, true),
		wire.NewMessage(wire.OverrideCamera2DTransform, transform),
		wire.NewMessage(wire.OverrideCamera3DTransform, wire.Identity3D, true, 75.0, 0.1, 500.0),
	)
	h.tick()

	camera := h.probe.Camera()
	if !camera.Enabled2D || camera.Transform2D != transform {
		t.Errorf("2D override = %+v", camera)
	}
	if camera.Enabled3D || !camera.Perspective || camera.FOVOrSize != 75 || camera.Far != 500 {
		t.Errorf("3D override = %+v", camera)
	}

	h.probe.Detach()
	if h.probe.Camera().Enabled2D {
		t.Error("camera override survived detach")
	}
}

func TestBreakpointsAndSkip(t *testing.T) {
	h := newHarness(t)
	h.deliver(
		wire.NewMessage(wire.Breakpoint, "res://main.gd", int64(12), true),
		wire.NewMessage(wire.Breakpoint, "res://ai.gd", int64(3), true),
		wire.NewMessage(wire.Breakpoint, "res://main.gd", int64(12), false),
		wire.NewMessage(wire.Breakpoint, "res://main.gd", int64(40), true),
	)
	h.tick()

	got := h.probe.Breakpoints()
	want := []Breakpoint{{"res://ai.gd", 3}, {"res://main.gd", 40}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("breakpoints = %v, want %v", got, want)
	}
	if !h.probe.ShouldBreak("res://ai.gd", 3) {
		t.Error("ShouldBreak false on armed breakpoint")
	}

	h.deliver(wire.NewMessage(wire.SetSkipBreakpoint, true))
	h.tick()
	if h.probe.ShouldBreak("res://ai.gd", 3) {
		t.Error("ShouldBreak true while skipping")
	}
}

func TestDebugServesStackUntilContinue(t *testing.T) {
	h := newHarness(t)
	player := h.node("Sprite", "Player", h.tree.Root())
	frames := []Frame{
		{
			Function: "_process", File: "res://player.gd", Line: 12,
			Locals:  []Variable{{Name: "delta", Value: 0.016}},
			Members: []Variable{{Name: "self", Value: player}},
		},
		{Function: "_physics_step", File: "res://world.gd", Line: 80},
	}

	resumed := make(chan Resume, 1)
	go func() { resumed <- h.probe.Debug(true, "Breakpoint", frames) }()

	enter := h.expect(wire.DebugEnter)
	if enter.Args[0] != true || enter.Args[1] != "Breakpoint" {
		t.Fatalf("debug_enter args = %v", enter.Args)
	}

	h.inspector.Send(wire.NewMessage(wire.GetStackDump))
	dump := h.expect(wire.StackDump)
	if len(dump.Args) != 2 {
		t.Fatalf("stack dump has %d frames", len(dump.Args))
	}
	top, ok := dump.Args[0].(map[string]any)
	if !ok || top["function"] != "_process" || top["line"] != int64(12) {
		t.Fatalf("top frame = %v", dump.Args[0])
	}

	h.inspector.Send(wire.NewMessage(wire.GetStackFrameVars, int64(0)))
	vars := h.expect(wire.StackFrameVars)
	want := []any{int64(1), "delta", 0.016, int64(1), "self", player.ID(), int64(0)}
	if len(vars.Args) != len(want) {
		t.Fatalf("frame vars = %v, want %v", vars.Args, want)
	}
	for i := range want {
		if vars.Args[i] != want[i] {
			t.Errorf("frame var arg %d = %v, want %v", i, vars.Args[i], want[i])
		}
	}

	h.inspector.Send(wire.NewMessage(wire.Next))
	h.expect(wire.DebugExit)
	if resume := testutil.RequireReceive(t, resumed, 5*time.Second, "Debug returning"); resume != ResumeNext {
		t.Fatalf("resume = %v, want next", resume)
	}
}

func TestDebugRefusesStepWhenCannotContinue(t *testing.T) {
	h := newHarness(t)
	resumed := make(chan Resume, 1)
	go func() { resumed <- h.probe.Debug(false, "Assertion failed", nil) }()

	h.expect(wire.DebugEnter)
	h.inspector.Send(wire.NewMessage(wire.Step))
	h.inspector.Send(wire.NewMessage(wire.Continue))
	h.expect(wire.DebugExit)
	if resume := testutil.RequireReceive(t, resumed, 5*time.Second, "Debug returning"); resume != ResumeContinue {
		t.Fatalf("resume = %v, want continue", resume)
	}
}

func TestBreakRequestEntersDebugDuringTick(t *testing.T) {
	h := newHarness(t)
	h.deliver(wire.NewMessage(wire.Break))

	ticked := make(chan struct{})
	go func() {
		h.tick()
		close(ticked)
	}()

	enter := h.expect(wire.DebugEnter)
	if enter.Args[1] != "" {
		t.Errorf("user break reason = %q, want empty", enter.Args[1])
	}
	h.inspector.Send(wire.NewMessage(wire.Continue))
	h.expect(wire.DebugExit)
	testutil.RequireClosed(t, ticked, 5*time.Second, "tick finishing after continue")
}

func TestEditsWhileBrokenApplyImmediately(t *testing.T) {
	h := newHarness(t)
	resumed := make(chan Resume, 1)
	go func() { resumed <- h.probe.Debug(true, "", nil) }()

	h.expect(wire.DebugEnter)
	h.inspector.Send(wire.NewMessage(wire.LiveNodePath, "/root", int64(1)))
	h.inspector.Send(wire.NewMessage(wire.LiveCreateNode, int64(1), "Timer", "Cooldown"))
	h.inspector.Send(wire.NewMessage(wire.RequestSceneTree))
	reply := h.expect(wire.SceneTree)
	if len(reply.Args) != 8 || reply.Args[5] != "Cooldown" {
		t.Fatalf("tree while broken = %v", reply.Args)
	}
	h.inspector.Send(wire.NewMessage(wire.Continue))
	h.expect(wire.DebugExit)
	testutil.RequireReceive(t, resumed, 5*time.Second, "Debug returning")
}

func TestConnectionLossDetaches(t *testing.T) {
	h := newHarness(t)
	h.inspector.Close()
	testutil.RequireClosed(t, h.probe.conn.Done(), 5*time.Second, "probe observing close")
	h.tick()
	if h.probe.Attached() {
		t.Fatal("probe still attached after connection loss")
	}
}

func TestQuitSendsKillMe(t *testing.T) {
	h := newHarness(t)
	h.probe.Quit()
	h.expect(wire.KillMe)
	if !h.probe.QuitRequested() {
		t.Error("QuitRequested false after Quit")
	}
}
