// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/transport"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Errors returned by user actions that need a particular session
// state.
var (
	ErrNotConnected = errors.New("no debugging session")
	ErrNotBroken    = errors.New("game is not stopped at a break")
	ErrCannotStep   = errors.New("break does not allow continuing")
)

// Config configures a Session. Zero durations and sizes select the
// defaults noted on each field.
type Config struct {
	Listen transport.ListenConfig

	// TickBudget bounds message dispatch per Tick. Default 20ms.
	TickBudget time.Duration
	// TreeRefreshInterval is the scene tree polling period. Default 1s.
	TreeRefreshInterval time.Duration
	// InspectRefreshInterval is the polling period of the inspected
	// object. Default 200ms.
	InspectRefreshInterval time.Duration
	// EditGrace suppresses inspect polling after a property edit.
	// Default 700ms.
	EditGrace time.Duration

	PerformanceHistory   int // default 2048
	ProfilerFrameHistory int // default 600
	ProfilerMaxFunctions int // default 64

	Clock    clock.Clock
	Logger   *slog.Logger
	View     View
	Resolver ResourceResolver
}

func (c Config) withDefaults() Config {
	if c.TickBudget <= 0 {
		c.TickBudget = 20 * time.Millisecond
	}
	if c.TreeRefreshInterval <= 0 {
		c.TreeRefreshInterval = time.Second
	}
	if c.InspectRefreshInterval <= 0 {
		c.InspectRefreshInterval = 200 * time.Millisecond
	}
	if c.EditGrace <= 0 {
		c.EditGrace = 700 * time.Millisecond
	}
	if c.PerformanceHistory <= 0 {
		c.PerformanceHistory = DefaultPerformanceHistory
	}
	if c.ProfilerFrameHistory <= 0 {
		c.ProfilerFrameHistory = 600
	}
	if c.ProfilerMaxFunctions <= 0 {
		c.ProfilerMaxFunctions = 64
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.View == nil {
		c.View = NopView{}
	}
	if c.Resolver == nil {
		c.Resolver = PathResolver{}
	}
	return c
}

// State is the session's run state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateBroken:
		return "broken"
	default:
		return "stopped"
	}
}

// ClickedControl is the control last clicked in the running game.
type ClickedControl struct {
	Path  string
	Class string
}

// Session is the editor side of one debugging connection. All methods
// must be called from the goroutine that calls Tick.
type Session struct {
	config Config
	id     string
	clock  clock.Clock
	logger *slog.Logger
	view   View

	server *transport.Server
	conn   *transport.Conn
	state  State

	registry    *Registry
	tree        *SceneTree
	debug       *debugState
	live        *LiveEdit
	profiler    *Profiler
	performance *Performance
	network     *Network
	videoMemory *VideoMemory
	errors      Errors
	camera      *Camera
	clicked     ClickedControl

	inspected       wire.ObjectID
	nextTreeRefresh time.Time
	nextInspect     time.Time
}

// New creates a stopped session.
func New(config Config) *Session {
	config = config.withDefaults()
	id := uuid.NewString()
	s := &Session{
		config:      config,
		id:          id,
		clock:       config.Clock,
		logger:      config.Logger.With("session", id),
		view:        config.View,
		tree:        newSceneTree(),
		debug:       newDebugState(),
		profiler:    newProfiler(config.ProfilerMaxFunctions, config.ProfilerFrameHistory),
		performance: newPerformance(config.PerformanceHistory),
		network:     newNetwork(),
		videoMemory: &VideoMemory{},
		camera:      newCamera(),
	}
	s.registry = newRegistry(config.Resolver, s.propertyEdited)
	s.live = newLiveEdit(s.send)
	return s
}

// Start listens for a probe connection.
func (s *Session) Start(ctx context.Context) error {
	if s.server != nil {
		return errors.New("session already listening")
	}
	listen := s.config.Listen
	if listen.Options.Logger == nil {
		listen.Options.Logger = s.logger
	}
	server, err := transport.Listen(ctx, listen)
	if err != nil {
		return err
	}
	s.server = server
	s.logger.Info("waiting for debugger connection", "address", server.Addr().String())
	return nil
}

// Port returns the port the session listens on, or 0.
func (s *Session) Port() int {
	if s.server == nil {
		return 0
	}
	return s.server.Port()
}

// Attach starts a debugging session on an already established
// connection, ending any current one.
func (s *Session) Attach(conn *transport.Conn) {
	if s.conn != nil {
		s.end("replaced")
	}
	s.begin(conn)
}

// Stop ends the debugging session and stops listening.
func (s *Session) Stop() {
	if s.conn != nil {
		s.end("stopped by editor")
	}
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
}

// Tick runs one editor frame: accepts a pending connection, dispatches
// received messages until the tick budget is spent, runs the refresh
// timers and sends the camera override.
func (s *Session) Tick() {
	if s.server != nil {
		if s.conn == nil {
			if conn := s.server.Poll(); conn != nil {
				s.begin(conn)
			}
		} else {
			s.server.RejectPending()
		}
	}
	if s.conn == nil {
		return
	}

	deadline := s.clock.Now().Add(s.config.TickBudget)
	for s.conn != nil && s.clock.Now().Before(deadline) {
		message, ok := s.conn.Receive()
		if !ok {
			break
		}
		s.dispatch(message)
	}
	if s.conn == nil {
		return
	}
	if !s.conn.Alive() && s.conn.Pending() == 0 {
		s.logger.Info("debugger connection lost", "error", s.conn.Err())
		s.end("connection lost")
		return
	}

	now := s.clock.Now()
	if !now.Before(s.nextTreeRefresh) {
		s.nextTreeRefresh = now.Add(s.config.TreeRefreshInterval)
		s.send(wire.RequestSceneTree)
	}
	if s.inspected != 0 && !now.Before(s.nextInspect) {
		s.nextInspect = now.Add(s.config.InspectRefreshInterval)
		s.send(wire.InspectObject, s.inspected)
	}
	s.camera.tick(s.send)
}

func (s *Session) begin(conn *transport.Conn) {
	s.conn = conn
	s.state = StateRunning
	s.debug.running(true)
	s.errors.Clear()
	s.profiler.Clear()
	s.performance.Clear()
	s.network.Clear()
	s.tree.reset()
	s.live.reset()
	s.registry.Clear()
	s.inspected = 0
	now := s.clock.Now()
	s.nextTreeRefresh = now
	s.nextInspect = now

	s.logger.Info("debugging process started", "remote", conn.RemoteAddr().String())
	s.view.OnLog("--- Debugging process started ---", LogEditor)

	s.live.announceRoot()
	if s.profiler.Active() {
		s.send(wire.StartProfiling, int64(s.profiler.MaxFunctions()))
	}
	if s.network.Active() {
		s.send(wire.StartNetProfiling)
	}
	for _, breakpoint := range s.Breakpoints() {
		s.send(wire.Breakpoint, breakpoint.Source, int64(breakpoint.Line), true)
	}
	if s.debug.controls.SkipBreakpoints {
		s.send(wire.SetSkipBreakpoint, true)
	}
	if mode := s.camera.Mode(); mode != CameraNone {
		s.camera.mode = CameraNone
		s.camera.setMode(mode, s.send)
	}
	s.view.OnStateChanged(s.state)
}

// end tears the session down and clears every session-scoped cache.
func (s *Session) end(reason string) {
	s.conn.Close()
	s.conn = nil
	if s.server != nil {
		s.server.Drop()
		s.server.RejectPending()
	}
	s.state = StateStopped
	s.debug.running(false)
	s.registry.Clear()
	s.inspected = 0
	s.live.reset()
	s.profiler.resetSignatures()
	s.tree.reset()

	s.logger.Info("debugging process stopped", "reason", reason)
	s.view.OnLog("--- Debugging process stopped ---", LogEditor)
	s.view.OnStateChanged(s.state)
}

func (s *Session) send(name string, args ...any) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Send(wire.NewMessage(name, args...)); err != nil && !errors.Is(err, transport.ErrClosed) {
		s.logger.Error("encoding message for probe", "message", name, "error", err)
	}
}

func (s *Session) dispatch(message wire.Message) {
	var err error
	switch message.Name {
	case wire.DebugEnter:
		if err = s.debug.enter(message); err == nil {
			s.state = StateBroken
			s.registry.Clear()
			s.send(wire.GetStackDump)
			if reason := s.debug.controls.Reason; reason != "" {
				s.view.OnLog(reason, LogError)
			}
			s.view.OnStateChanged(s.state)
		}
	case wire.DebugExit:
		s.debug.exit()
		s.state = StateRunning
		s.view.OnStateChanged(s.state)
	case wire.StackDump:
		if err = s.debug.stackDump(message); err == nil {
			if len(s.debug.controls.Frames) > 0 {
				s.send(wire.GetStackFrameVars, int64(0))
			}
			s.view.OnStateChanged(s.state)
		}
	case wire.StackFrameVars:
		var self wire.ObjectID
		if self, err = s.debug.frameVariables(message); err == nil {
			if self != 0 {
				s.tree.Select(self)
				s.view.OnSelectTree(self)
			}
			s.view.OnStateChanged(s.state)
		}
	case wire.SceneTree:
		if err = s.tree.rebuild(message.Args, s.inspected); err == nil {
			s.view.OnTreeChanged(s.tree)
		}
	case wire.InspectReply:
		err = s.inspectReply(message)
	case wire.VideoMem:
		var inventory *VideoMemory
		if inventory, err = decodeVideoMemory(message); err == nil {
			s.videoMemory = inventory
			s.view.OnVideoMem(inventory)
		}
	case wire.ClickCtrl:
		err = s.clickedControl(message)
	case wire.Output:
		err = s.output(message)
	case wire.Error:
		var entry ErrorEntry
		if entry, err = decodeError(message); err == nil {
			s.errors.add(entry)
			s.view.OnErrorAdded(entry)
		}
	case wire.Performance:
		err = s.performanceSample(message)
	case wire.ProfileSig:
		err = s.profiler.defineSignature(message)
	case wire.ProfileFrame:
		var frame *ProfileFrame
		if frame, err = s.profiler.decode(message); err == nil {
			s.profiler.add(frame)
			s.view.OnProfileFrame(frame)
		}
	case wire.ProfileTotal:
		var frame *ProfileFrame
		if frame, err = s.profiler.decode(message); err == nil {
			s.profiler.total = frame
		}
	case wire.NetworkProfile:
		err = s.network.profile(message)
	case wire.NetworkBandwidth:
		err = s.network.bandwidth(message)
	case wire.KillMe:
		s.logger.Info("probe asked to be stopped")
		s.end("stopped by game")
	default:
		s.logger.Warn("unknown debugger message", "message", message.Name, "arity", len(message.Args))
		return
	}
	if err != nil {
		s.logger.Warn("ignoring malformed debugger message",
			"message", message.Name,
			"arity", len(message.Args),
			"error", err,
		)
	}
}

func (s *Session) inspectReply(message wire.Message) error {
	result, err := s.registry.apply(message)
	if err != nil {
		return err
	}
	if s.inspected != result.proxy.RemoteID {
		s.inspected = result.proxy.RemoteID
		s.nextInspect = s.clock.Now().Add(s.config.InspectRefreshInterval)
		s.view.OnObjectUpdated(result.proxy)
		return nil
	}
	switch {
	case result.created || result.reshaped:
		s.view.OnObjectUpdated(result.proxy)
	case len(result.changed) > 0:
		s.view.OnPropertyUpdated(result.proxy, result.changed)
	}
	return nil
}

func (s *Session) clickedControl(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := message.Text(0)
	if err != nil {
		return err
	}
	class, err := message.Text(1)
	if err != nil {
		return err
	}
	s.clicked = ClickedControl{Path: path, Class: class}
	s.view.OnClickedControl(path, class)
	return nil
}

func (s *Session) output(message wire.Message) error {
	for i := range message.Args {
		line, err := message.Array(i)
		if err != nil {
			return err
		}
		entry := wire.Message{Name: message.Name, Args: line}
		if err := entry.Arity(2); err != nil {
			return err
		}
		text, err := entry.Text(0)
		if err != nil {
			return err
		}
		kind, err := entry.Int(1)
		if err != nil {
			return err
		}
		if kind == wire.OutputError {
			s.view.OnLog(text, LogError)
		} else {
			s.view.OnLog(text, LogOutput)
		}
	}
	return nil
}

func (s *Session) performanceSample(message wire.Message) error {
	raw, err := message.Array(0)
	if err != nil {
		return err
	}
	values := make([]float64, len(raw))
	for i, value := range raw {
		number, ok := wire.AsFloat(value)
		if !ok {
			return fmt.Errorf("%w: %s: value %d is %s", wire.ErrArgument, message.Name, i, wire.Describe(value))
		}
		values[i] = number
	}
	s.performance.add(values)
	s.view.OnPerformance(values)
	return nil
}

// propertyEdited forwards a proxy edit and holds off the refresh that
// would overwrite the field being edited.
func (s *Session) propertyEdited(proxy *Proxy, name string, value any) {
	s.send(wire.SetObjectProperty, proxy.RemoteID, name, wireValue(value))
	s.nextInspect = s.clock.Now().Add(s.config.EditGrace)
}

// ID returns the session id carried on every log record.
func (s *Session) ID() string { return s.id }

// State returns the run state.
func (s *Session) State() State { return s.state }

// Connected reports whether a probe is attached.
func (s *Session) Connected() bool { return s.conn != nil }

// Controls returns a snapshot of the debugger panel.
func (s *Session) Controls() Controls {
	controls := s.debug.controls
	controls.Frames = slices.Clone(controls.Frames)
	return controls
}

// Registry returns the remote object proxies.
func (s *Session) Registry() *Registry { return s.registry }

// Tree returns the remote scene tree mirror.
func (s *Session) Tree() *SceneTree { return s.tree }

// Live returns the live edit sender with its undo history.
func (s *Session) Live() *LiveEdit { return s.live }

// Profiler returns the decoded script profile.
func (s *Session) Profiler() *Profiler { return s.profiler }

// Performance returns the performance monitor history.
func (s *Session) Performance() *Performance { return s.performance }

// Network returns the network profile.
func (s *Session) Network() *Network { return s.network }

// VideoMemory returns the last video memory inventory.
func (s *Session) VideoMemory() *VideoMemory { return s.videoMemory }

// Errors returns the error tree.
func (s *Session) Errors() *Errors { return &s.errors }

// Camera returns the camera override state.
func (s *Session) Camera() *Camera { return s.camera }

// ClickedControl returns the control last clicked in the game.
func (s *Session) ClickedControl() ClickedControl { return s.clicked }

// Inspected returns the remote id of the object being edited, or zero.
func (s *Session) Inspected() wire.ObjectID { return s.inspected }

// Breakpoints returns the armed breakpoints ordered by source and line.
func (s *Session) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(s.debug.breakpoints))
	for breakpoint := range s.debug.breakpoints {
		out = append(out, breakpoint)
	}
	slices.SortFunc(out, func(a, b Breakpoint) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return a.Line - b.Line
	})
	return out
}

// RequestTree asks for the scene tree now and restarts the refresh
// timer.
func (s *Session) RequestTree() error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.nextTreeRefresh = s.clock.Now().Add(s.config.TreeRefreshInterval)
	s.send(wire.RequestSceneTree)
	return nil
}

// Inspect makes a remote object the edited object and requests its
// properties.
func (s *Session) Inspect(id wire.ObjectID) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.inspected = id
	s.tree.Select(id)
	s.nextInspect = s.clock.Now().Add(s.config.InspectRefreshInterval)
	s.send(wire.InspectObject, id)
	return nil
}

// StopInspecting stops polling the edited object.
func (s *Session) StopInspecting() { s.inspected = 0 }

// Break asks the running game to stop.
func (s *Session) Break() error {
	if s.state != StateRunning {
		return ErrNotConnected
	}
	s.send(wire.Break)
	return nil
}

// Continue resumes a stopped game. The panel returns to running when
// the probe confirms with debug_exit.
func (s *Session) Continue() error {
	if s.state != StateBroken {
		return ErrNotBroken
	}
	s.debug.clearExecution()
	s.send(wire.Continue)
	return nil
}

// Step resumes into the next statement.
func (s *Session) Step() error { return s.stepCommand(wire.Step) }

// Next resumes over the next statement.
func (s *Session) Next() error { return s.stepCommand(wire.Next) }

func (s *Session) stepCommand(name string) error {
	if s.state != StateBroken {
		return ErrNotBroken
	}
	if !s.debug.controls.CanContinue {
		return ErrCannotStep
	}
	s.debug.clearExecution()
	s.send(name)
	return nil
}

// SelectFrame requests the variables of another stack frame.
func (s *Session) SelectFrame(index int) error {
	if s.state != StateBroken {
		return ErrNotBroken
	}
	if index < 0 || index >= len(s.debug.controls.Frames) {
		return fmt.Errorf("stack frame %d out of range", index)
	}
	s.debug.controls.SelectedFrame = index
	s.send(wire.GetStackFrameVars, int64(index))
	return nil
}

// SetSkipBreakpoints toggles breakpoint suppression on the probe. The
// setting is resent to every new session.
func (s *Session) SetSkipBreakpoints(skip bool) {
	s.debug.controls.SkipBreakpoints = skip
	s.send(wire.SetSkipBreakpoint, skip)
}

// SetBreakpoint arms or disarms a script location. Armed breakpoints
// are resent to every new session.
func (s *Session) SetBreakpoint(source string, line int, enabled bool) {
	breakpoint := Breakpoint{Source: source, Line: line}
	if enabled {
		s.debug.breakpoints[breakpoint] = true
	} else {
		delete(s.debug.breakpoints, breakpoint)
	}
	s.send(wire.Breakpoint, source, int64(line), enabled)
}

// ReloadScripts asks the game to reload its scripts.
func (s *Session) ReloadScripts() error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.send(wire.ReloadScripts)
	return nil
}

// StartProfiling switches the script profiler on. The setting
// survives reconnects.
func (s *Session) StartProfiling() {
	s.profiler.active = true
	s.profiler.Clear()
	s.send(wire.StartProfiling, int64(s.profiler.MaxFunctions()))
}

// StopProfiling switches the script profiler off.
func (s *Session) StopProfiling() {
	s.profiler.active = false
	s.send(wire.StopProfiling)
}

// StartNetworkProfiling switches network profiling on.
func (s *Session) StartNetworkProfiling() {
	s.network.active = true
	s.network.Clear()
	s.send(wire.StartNetProfiling)
}

// StopNetworkProfiling switches network profiling off.
func (s *Session) StopNetworkProfiling() {
	s.network.active = false
	s.send(wire.StopNetProfiling)
}

// SaveNode asks the probe to save the subtree rooted at id as a packed
// scene file.
func (s *Session) SaveNode(id wire.ObjectID, path string) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.send(wire.SaveNode, id, path)
	return nil
}

// RequestVideoMemory asks for the video memory inventory.
func (s *Session) RequestVideoMemory() error {
	if s.conn == nil {
		return ErrNotConnected
	}
	s.send(wire.RequestVideoMem)
	return nil
}

// SetCameraMode changes which editor viewport the game renders
// through.
func (s *Session) SetCameraMode(mode CameraMode) {
	s.camera.setMode(mode, s.send)
}

// SetLiveEditRoot makes the tree row id the root live edits are
// relative to, bound to the scene file the editor has open for it.
func (s *Session) SetLiveEditRoot(id wire.ObjectID, sceneFile string) error {
	item, ok := s.tree.Find(id)
	if !ok {
		return fmt.Errorf("node %v is not in the scene tree", id)
	}
	s.live.SetRoot(item.Path(), sceneFile)
	return nil
}

// ClearLiveEditRoot returns live edits to /root.
func (s *Session) ClearLiveEditRoot() {
	s.live.SetRoot("/root", "")
}
