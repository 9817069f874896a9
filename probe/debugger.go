// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Variable is one named value in a stack frame bag.
type Variable struct {
	Name  string
	Value any
}

// Frame is one level of the script call stack at a break.
type Frame struct {
	Function string
	File     string
	Line     int

	Locals  []Variable
	Members []Variable
	Globals []Variable
}

// Resume tells the host how to continue after Debug returns.
type Resume int

const (
	// ResumeContinue runs until the next breakpoint.
	ResumeContinue Resume = iota
	// ResumeStep stops at the next line, entering calls.
	ResumeStep
	// ResumeNext stops at the next line in the same function.
	ResumeNext
)

func (r Resume) String() string {
	switch r {
	case ResumeStep:
		return "step"
	case ResumeNext:
		return "next"
	default:
		return "continue"
	}
}

// Breakpoint is a source location the host should stop at.
type Breakpoint struct {
	Source string
	Line   int
}

type debugger struct {
	broken         bool
	breakRequested bool
	skip           bool
	canContinue    bool
	frames         []Frame
	breakpoints    map[Breakpoint]struct{}
}

func newDebugger() *debugger {
	return &debugger{breakpoints: make(map[Breakpoint]struct{})}
}

func (d *debugger) setBreakpoint(source string, line int, enabled bool) {
	key := Breakpoint{Source: source, Line: line}
	if enabled {
		d.breakpoints[key] = struct{}{}
	} else {
		delete(d.breakpoints, key)
	}
}

// ShouldBreak reports whether the host should call Debug on reaching
// source:line. Skipped breakpoints always report false.
func (p *Probe) ShouldBreak(source string, line int) bool {
	if p.debugger.skip {
		return false
	}
	_, ok := p.debugger.breakpoints[Breakpoint{Source: source, Line: line}]
	return ok
}

// SetBreakpoint adds or removes a breakpoint locally.
func (p *Probe) SetBreakpoint(source string, line int, enabled bool) {
	p.debugger.setBreakpoint(source, line, enabled)
}

// ClearBreakpoints removes every breakpoint.
func (p *Probe) ClearBreakpoints() { clear(p.debugger.breakpoints) }

// Breakpoints returns the breakpoints, ordered by source then line.
func (p *Probe) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(p.debugger.breakpoints))
	for breakpoint := range p.debugger.breakpoints {
		out = append(out, breakpoint)
	}
	slices.SortFunc(out, func(a, b Breakpoint) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
	return out
}

// SkippingBreakpoints reports the inspector's skip toggle.
func (p *Probe) SkippingBreakpoints() bool { return p.debugger.skip }

// Broken reports whether the probe is inside Debug.
func (p *Probe) Broken() bool { return p.debugger.broken }

// Debug stops the game and serves the inspector until it resumes
// execution. The host calls it on a breakpoint, an error, or a script
// assertion; reason is shown to the user. When canContinue is false,
// step and next are refused and only continue resumes.
//
// Debug blocks the calling goroutine. Without a live connection it
// returns ResumeContinue immediately.
func (p *Probe) Debug(canContinue bool, reason string, frames []Frame) Resume {
	if p.conn == nil || !p.conn.Alive() {
		return ResumeContinue
	}
	// Edits queued before the break land first so paths resolve the
	// way the inspector expects.
	p.applyPending()

	p.debugger.broken = true
	p.debugger.canContinue = canContinue
	p.debugger.frames = frames
	defer func() {
		p.debugger.broken = false
		p.debugger.frames = nil
	}()

	p.logger.Info("debugger break", "reason", reason, "can_continue", canContinue, "frames", len(frames))
	p.send(wire.DebugEnter, canContinue, reason)
	p.flushOutput()

	for {
		message, ok := p.conn.Receive()
		if !ok {
			p.flushOutput()
			select {
			case <-p.conn.Ready():
				continue
			case <-p.conn.Done():
				if p.conn.Pending() > 0 {
					continue
				}
				p.logger.Info("inspector connection lost during break", "error", p.conn.Err())
				p.Detach()
				return ResumeContinue
			}
		}
		if resume, done := p.serveBreak(message); done {
			p.send(wire.DebugExit)
			p.flushOutput()
			return resume
		}
	}
}

// serveBreak handles one message inside the break loop. done reports
// that execution should resume.
func (p *Probe) serveBreak(message wire.Message) (Resume, bool) {
	switch message.Name {
	case wire.Continue:
		return ResumeContinue, true
	case wire.Step, wire.Next:
		if !p.debugger.canContinue {
			p.logger.Warn("step refused: break cannot continue", "message", message.Name)
			return 0, false
		}
		if message.Name == wire.Step {
			return ResumeStep, true
		}
		return ResumeNext, true
	case wire.GetStackDump:
		p.send(wire.StackDump, p.stackDump()...)
	case wire.GetStackFrameVars:
		index, err := message.Int(0)
		if err != nil {
			p.reportFailure(message, err)
			break
		}
		if index < 0 || int(index) >= len(p.debugger.frames) {
			p.reportFailure(message, fmt.Errorf("stack frame %d: %w", index, scenegraph.ErrNotFound))
			break
		}
		p.send(wire.StackFrameVars, frameVariables(p.debugger.frames[index])...)
	case wire.Break:
	default:
		p.dispatch(message)
	}
	return 0, false
}

func (p *Probe) stackDump() []any {
	dump := make([]any, len(p.debugger.frames))
	for i, frame := range p.debugger.frames {
		dump[i] = map[string]any{
			"function": frame.Function,
			"file":     frame.File,
			"line":     int64(frame.Line),
			"id":       int64(i),
		}
	}
	return dump
}

// frameVariables lays out the three bags as count, then name/value
// pairs, for locals, members, and globals in that order.
func frameVariables(frame Frame) []any {
	var args []any
	for _, bag := range [][]Variable{frame.Locals, frame.Members, frame.Globals} {
		args = append(args, int64(len(bag)))
		for _, variable := range bag {
			args = append(args, variable.Name, encodeValue(variable.Value))
		}
	}
	return args
}

// encodeValue converts a host value for the wire. Live objects become
// their ids; values outside the protocol model are described as text.
func encodeValue(v any) any {
	switch value := v.(type) {
	case scenegraph.Object:
		return value.ID()
	case wire.RID:
		return fmt.Sprintf("RID(%d)", uint64(value))
	}
	if wire.IsPlain(v) {
		return v
	}
	return fmt.Sprintf("%v", v)
}
