// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"

	"github.com/bureau-foundation/liveinspect/wire"
)

// StackFrame is one entry of a stack dump.
type StackFrame struct {
	Index    int
	Function string
	File     string
	Line     int
}

// Variable is one entry of a stack frame bag. Object values arrive as
// ids and are marked so the view can render them as references.
type Variable struct {
	Name     string
	Value    any
	IsObject bool
}

// Variables are the three bags of a selected stack frame.
type Variables struct {
	Locals  []Variable
	Members []Variable
	Globals []Variable
}

// Controls is a snapshot of the debugger panel state.
type Controls struct {
	Broken      bool
	CanContinue bool
	// Reason is the break message; ReasonIsError is set when the
	// break was caused by an error rather than a user request.
	Reason        string
	ReasonIsError bool

	StepEnabled     bool
	NextEnabled     bool
	CopyEnabled     bool
	BreakEnabled    bool
	ContinueEnabled bool
	PauseLatched    bool
	// ProfilerEnabled is false while broken; frames cannot be
	// recorded while the game is stopped.
	ProfilerEnabled bool

	SkipBreakpoints bool

	Frames             []StackFrame
	SelectedFrame      int
	ExecutionHighlight bool
	Variables          Variables
}

// Breakpoint is a script location armed on the probe.
type Breakpoint struct {
	Source string
	Line   int
}

type debugState struct {
	controls    Controls
	breakpoints map[Breakpoint]bool
}

func newDebugState() *debugState {
	state := &debugState{breakpoints: make(map[Breakpoint]bool)}
	state.running(false)
	return state
}

// running resets the panel for a running (connected) or stopped game.
func (d *debugState) running(connected bool) {
	skip := d.controls.SkipBreakpoints
	d.controls = Controls{
		BreakEnabled:    connected,
		ProfilerEnabled: true,
		SkipBreakpoints: skip,
	}
}

func (d *debugState) enter(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	canContinue, err := message.Bool(0)
	if err != nil {
		return err
	}
	reason, err := message.Text(1)
	if err != nil {
		return err
	}
	c := &d.controls
	c.Broken = true
	c.CanContinue = canContinue
	c.Reason = reason
	c.ReasonIsError = reason != ""
	c.StepEnabled = canContinue
	c.NextEnabled = canContinue
	c.CopyEnabled = true
	c.BreakEnabled = false
	c.ContinueEnabled = true
	c.PauseLatched = true
	c.ProfilerEnabled = false
	c.Frames = nil
	c.Variables = Variables{}
	return nil
}

func (d *debugState) stackDump(message wire.Message) error {
	frames := make([]StackFrame, 0, len(message.Args))
	for i, arg := range message.Args {
		entry, ok := arg.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s: frame %d is %s", wire.ErrArgument, message.Name, i, wire.Describe(arg))
		}
		function, _ := wire.AsString(entry["function"])
		file, _ := wire.AsString(entry["file"])
		line, _ := wire.AsInt(entry["line"])
		frames = append(frames, StackFrame{Index: i, Function: function, File: file, Line: int(line)})
	}
	d.controls.Frames = frames
	d.controls.SelectedFrame = 0
	d.controls.ExecutionHighlight = len(frames) > 0
	d.controls.Variables = Variables{}
	return nil
}

// frameVariables decodes the three counted bags. It returns the id of
// a variable named self that holds an object, or zero.
func (d *debugState) frameVariables(message wire.Message) (wire.ObjectID, error) {
	var self wire.ObjectID
	offset := 0
	var bags [3][]Variable
	for bag := range bags {
		count, err := message.Int(offset)
		if err != nil {
			return 0, err
		}
		offset++
		if count < 0 || count > int64((len(message.Args)-offset)/2) {
			return 0, fmt.Errorf("%w: %s: bag %d claims %d variables", wire.ErrArgument, message.Name, bag, count)
		}
		for i := int64(0); i < count; i++ {
			name, err := message.Text(offset)
			if err != nil {
				return 0, err
			}
			value, err := message.Value(offset + 1)
			if err != nil {
				return 0, err
			}
			offset += 2
			id, isObject := value.(wire.ObjectID)
			if isObject && name == "self" {
				self = id
			}
			bags[bag] = append(bags[bag], Variable{Name: name, Value: value, IsObject: isObject})
		}
	}
	d.controls.Variables = Variables{Locals: bags[0], Members: bags[1], Globals: bags[2]}
	return self, nil
}

func (d *debugState) exit() {
	d.running(true)
}

func (d *debugState) clearExecution() {
	d.controls.ExecutionHighlight = false
}
