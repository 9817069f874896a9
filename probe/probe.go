// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/transport"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Config holds everything a Probe needs from its host game.
type Config struct {
	Tree   *scenegraph.Tree
	Loader *scenegraph.ResourceLoader

	// Clock drives the telemetry cadences and error timestamps.
	// Defaults to the real clock.
	Clock  clock.Clock
	Logger *slog.Logger

	// PerformanceInterval is the period between performance
	// messages. Zero selects one second.
	PerformanceInterval time.Duration

	// NetworkProfileInterval is the period between network profile
	// messages while network profiling is on. Zero selects one
	// second.
	NetworkProfileInterval time.Duration

	// Stack returns the current script call stack, used when the
	// inspector requests a break. Nil reports an empty stack.
	Stack func() []Frame

	// ReloadScripts is invoked on reload_scripts.
	ReloadScripts func()

	// Monitors lets the host fill the monitor slots the probe cannot
	// measure itself (draw calls, physics pairs, audio latency). It
	// runs after the probe's own readings are written.
	Monitors func(values []float64)
}

// Probe is the game-side debugger agent.
type Probe struct {
	tree   *scenegraph.Tree
	loader *scenegraph.ResourceLoader
	clock  clock.Clock
	logger *slog.Logger

	stack         func() []Frame
	reloadScripts func()

	conn *transport.Conn

	debugger *debugger
	editor   *liveEditor
	pending  []wire.Message

	profiler *Profiler
	network  *NetworkProfiler
	monitors *monitorSampler
	camera   CameraOverride

	output []any

	started time.Time
	frame   int64
	quit    bool
}

// New creates a detached probe.
func New(config Config) (*Probe, error) {
	if config.Tree == nil {
		return nil, errors.New("probe: Tree is required")
	}
	if config.Loader == nil {
		return nil, errors.New("probe: Loader is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PerformanceInterval <= 0 {
		config.PerformanceInterval = time.Second
	}
	if config.NetworkProfileInterval <= 0 {
		config.NetworkProfileInterval = time.Second
	}
	p := &Probe{
		tree:          config.Tree,
		loader:        config.Loader,
		clock:         config.Clock,
		logger:        config.Logger,
		stack:         config.Stack,
		reloadScripts: config.ReloadScripts,
		started:       config.Clock.Now(),
	}
	p.debugger = newDebugger()
	p.editor = newLiveEditor(config.Tree, config.Loader, config.Logger)
	p.profiler = newProfiler()
	p.network = newNetworkProfiler(config.NetworkProfileInterval)
	p.monitors = newMonitorSampler(config.Tree, config.Loader, config.PerformanceInterval, config.Monitors)
	return p, nil
}

// Attach binds the probe to a connection, replacing any earlier one.
func (p *Probe) Attach(conn *transport.Conn) {
	if p.conn != nil {
		p.Detach()
	}
	p.conn = conn
	now := p.clock.Now()
	p.monitors.reset(now)
	p.network.reset(now)
	p.logger.Info("probe attached", "inspector", conn.RemoteAddr().String())
}

// Detach drops the connection and releases session state: path
// caches, kept subtrees, profiler signatures.
func (p *Probe) Detach() {
	if p.conn == nil {
		return
	}
	p.flushOutput()
	p.conn.Close()
	p.conn = nil
	p.pending = nil
	p.editor.reset()
	p.profiler.Stop()
	clear(p.profiler.signatures)
	p.network.active = false
	p.debugger.skip = false
	p.camera = CameraOverride{}
	p.logger.Info("probe detached")
}

// Attached reports whether a live connection is bound.
func (p *Probe) Attached() bool { return p.conn != nil && p.conn.Alive() }

// Tree returns the scene tree the probe serves.
func (p *Probe) Tree() *scenegraph.Tree { return p.tree }

// Profiler returns the script profiler the host records into.
func (p *Probe) Profiler() *Profiler { return p.profiler }

// Network returns the network profiler the host records into.
func (p *Probe) Network() *NetworkProfiler { return p.network }

// Camera returns the camera override requested by the inspector.
func (p *Probe) Camera() CameraOverride { return p.camera }

// Frame returns the number of completed ticks.
func (p *Probe) Frame() int64 { return p.frame }

// QuitRequested reports whether Quit has been called.
func (p *Probe) QuitRequested() bool { return p.quit }

// Tick runs one game frame's worth of debugger work. delta is the
// duration of the frame that just ended.
func (p *Probe) Tick(delta time.Duration) {
	p.frame++
	p.monitors.frame(delta)

	if p.conn != nil {
		p.drain()
		if !p.conn.Alive() && p.conn.Pending() == 0 {
			p.logger.Info("inspector connection lost", "error", p.conn.Err())
			p.Detach()
		}
	}

	if p.debugger.breakRequested {
		p.debugger.breakRequested = false
		var frames []Frame
		if p.stack != nil {
			frames = p.stack()
		}
		p.Debug(true, "", frames)
	}

	p.applyPending()

	if p.conn == nil {
		return
	}
	now := p.clock.Now()
	if values, ok := p.monitors.sample(now); ok {
		p.send(wire.Performance, values)
	}
	if p.profiler.Active() {
		p.flushProfile(p.frame)
	}
	if rows, in, out, ok := p.network.flush(now); ok {
		p.send(wire.NetworkProfile, rows...)
		p.send(wire.NetworkBandwidth, in, out)
	}
	p.flushOutput()
}

func (p *Probe) drain() {
	for {
		message, ok := p.conn.Receive()
		if !ok {
			return
		}
		p.dispatch(message)
	}
}

// applyPending runs the edits queued during this tick.
func (p *Probe) applyPending() {
	pending := p.pending
	p.pending = nil
	for _, message := range pending {
		p.applyEdit(message)
	}
}

func (p *Probe) applyEdit(message wire.Message) {
	if err := p.editor.apply(message); err != nil {
		p.reportFailure(message, err)
	}
}

func (p *Probe) send(name string, args ...any) {
	if p.conn == nil {
		return
	}
	if err := p.conn.Send(wire.NewMessage(name, args...)); err != nil && !errors.Is(err, transport.ErrClosed) {
		p.logger.Error("encoding message for inspector", "message", name, "error", err)
	}
}

// reportFailure logs a request that could not be served. Argument
// errors are protocol violations; anything else is a resolution
// failure on this side.
func (p *Probe) reportFailure(message wire.Message, err error) {
	if errors.Is(err, wire.ErrArgument) {
		p.logger.Warn("ignoring malformed debugger message",
			"message", message.Name,
			"arity", len(message.Args),
			"error", err,
		)
		return
	}
	p.logger.Error("debugger request failed", "message", message.Name, "error", err)
}

// dispatch handles one inspector request outside the break loop's own
// controls.
func (p *Probe) dispatch(message wire.Message) {
	var err error
	switch message.Name {
	case wire.RequestSceneTree:
		p.send(wire.SceneTree, p.tree.Flatten()...)
	case wire.InspectObject:
		err = p.handleInspect(message)
	case wire.SetObjectProperty:
		err = p.handleSetProperty(message)
	case wire.SaveNode:
		err = p.handleSaveNode(message)
	case wire.RequestVideoMem:
		p.send(wire.VideoMem, p.videoMemory()...)
	case wire.Break:
		if !p.debugger.broken {
			p.debugger.breakRequested = true
		}
	case wire.SetSkipBreakpoint:
		var skip bool
		if skip, err = message.Bool(0); err == nil {
			p.debugger.skip = skip
		}
	case wire.Breakpoint:
		err = p.handleBreakpoint(message)
	case wire.ReloadScripts:
		p.logger.Info("reloading scripts")
		if p.reloadScripts != nil {
			p.reloadScripts()
		}
	case wire.StartProfiling:
		var limit int64
		if limit, err = message.Int(0); err == nil {
			p.profiler.Start(int(limit))
		}
	case wire.StopProfiling:
		if p.profiler.Active() {
			p.flushProfileTotal()
			p.profiler.Stop()
		}
	case wire.StartNetProfiling:
		p.network.start(p.clock.Now())
	case wire.StopNetProfiling:
		p.network.active = false
	case wire.OverrideCamera2DSet, wire.OverrideCamera2DTransform,
		wire.OverrideCamera3DSet, wire.OverrideCamera3DTransform:
		err = p.camera.apply(message)
	case wire.GetStackDump, wire.GetStackFrameVars, wire.Continue, wire.Step, wire.Next:
		// Only meaningful inside the break loop.
		p.logger.Debug("debugger control while running", "message", message.Name)
	default:
		if isLiveEdit(message.Name) {
			if p.debugger.broken {
				p.applyEdit(message)
			} else {
				p.pending = append(p.pending, message)
			}
			return
		}
		p.logger.Warn("unknown debugger message", "message", message.Name, "arity", len(message.Args))
		return
	}
	if err != nil {
		p.reportFailure(message, err)
	}
}

func (p *Probe) handleBreakpoint(message wire.Message) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	path, err := message.Text(0)
	if err != nil {
		return err
	}
	line, err := message.Int(1)
	if err != nil {
		return err
	}
	enabled, err := message.Bool(2)
	if err != nil {
		return err
	}
	p.debugger.setBreakpoint(path, int(line), enabled)
	return nil
}

// Print queues a log line for the inspector's output panel.
func (p *Probe) Print(text string) {
	p.output = append(p.output, []any{text, int64(wire.OutputLog)})
}

// PrintError queues an error line for the inspector's output panel.
func (p *Probe) PrintError(text string) {
	p.output = append(p.output, []any{text, int64(wire.OutputError)})
}

func (p *Probe) flushOutput() {
	if len(p.output) == 0 || p.conn == nil {
		return
	}
	p.send(wire.Output, p.output...)
	p.output = nil
}

// StackEntry is one scripted frame in an error's stack trace.
type StackEntry struct {
	File     string
	Function string
	Line     int
}

// ErrorRecord is a structured script or engine error.
type ErrorRecord struct {
	Method    string
	File      string
	Line      int
	Condition string
	Message   string
	Warning   bool
	Stack     []StackEntry
}

// ReportError sends an error record, timestamped relative to the
// probe's start.
func (p *Probe) ReportError(record ErrorRecord) {
	elapsed := p.clock.Now().Sub(p.started)
	hours := int64(elapsed / time.Hour)
	minutes := int64(elapsed/time.Minute) % 60
	seconds := int64(elapsed/time.Second) % 60
	millis := int64(elapsed/time.Millisecond) % 1000

	args := []any{
		[]any{
			hours, minutes, seconds, millis,
			record.Method, record.File, int64(record.Line),
			record.Condition, record.Message, record.Warning,
		},
		int64(3 * len(record.Stack)),
	}
	for _, entry := range record.Stack {
		args = append(args, entry.File, entry.Function, int64(entry.Line))
	}
	p.send(wire.Error, args...)
}

// ReportClickedControl tells the inspector which control the user
// last clicked in the running game.
func (p *Probe) ReportClickedControl(node *scenegraph.Node) {
	p.send(wire.ClickCtrl, string(node.Path()), node.Class())
}

// Quit asks the inspector to stop the game process.
func (p *Probe) Quit() {
	p.quit = true
	p.send(wire.KillMe)
	p.flushOutput()
}

func (p *Probe) resolveObject(message wire.Message, index int) (scenegraph.Object, error) {
	id, err := message.ObjectID(index)
	if err != nil {
		return nil, err
	}
	object, ok := p.tree.DB().Get(id)
	if !ok {
		return nil, fmt.Errorf("object %v: %w", id, scenegraph.ErrNotFound)
	}
	return object, nil
}

// KeptSubtrees returns the number of removed subtrees retained for a
// possible restore.
func (p *Probe) KeptSubtrees() int { return p.editor.keptCount() }
