// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/probe"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

const (
	mainScript   = "res://main.gd"
	playerScript = "res://player.gd"
)

// location is one executed script line. depth is the call depth,
// zero for _process.
type location struct {
	file     string
	function string
	line     int
	depth    int
}

// script simulates a two-function game script:
//
//	main.gd    3  var speed = 2
//	main.gd    4  player.move(speed)
//	player.gd 10    var step = amount * 0.5
//	player.gd 11    position.x += step
//	main.gd    5  frame += 1
type script struct {
	probe   *probe.Probe
	console *probe.Console
	loader  *scenegraph.ResourceLoader
	player  *scenegraph.Node

	frame int64
	speed float64
	step  float64

	// resume and depth record how the last break resumed, for step
	// and next.
	resume probe.Resume
	depth  int
}

func (s *script) close() { s.loader.Close() }

// run executes frames at rate until ctx ends, the console quits, or
// limit frames have run.
func (s *script) run(ctx context.Context, c clock.Clock, rate int, limit int64) error {
	interval := time.Second / time.Duration(rate)
	ticker := c.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runFrame()
			s.probe.Tick(interval)
			if s.probe.QuitRequested() || (limit > 0 && s.frame >= limit) {
				return nil
			}
		}
	}
}

// runFrame executes one pass of the script.
func (s *script) runFrame() {
	s.reach(location{mainScript, "_process", 3, 0})
	s.speed = 2
	s.reach(location{mainScript, "_process", 4, 0})

	s.reach(location{playerScript, "move", 10, 1})
	s.step = s.speed * 0.5
	s.reach(location{playerScript, "move", 11, 1})
	position, _ := s.player.Get("position")
	vector, _ := position.(wire.Vector2)
	vector.X += s.step
	s.player.Set("position", vector)

	s.reach(location{mainScript, "_process", 5, 0})
	s.frame++
}

// reach stops in the console when a breakpoint or a pending step
// covers at.
func (s *script) reach(at location) {
	reason := ""
	switch {
	case s.probe.ShouldBreak(at.file, at.line):
		reason = "Breakpoint"
	case s.resume == probe.ResumeStep:
		reason = "Step"
	case s.resume == probe.ResumeNext && at.depth <= s.depth:
		reason = "Step"
	default:
		return
	}
	s.resume = s.console.Debug(true, reason, s.stack(at))
	s.depth = at.depth
}

// stack returns the frames active at a location, innermost first.
func (s *script) stack(at location) []probe.Frame {
	process := probe.Frame{
		Function: "_process",
		File:     mainScript,
		Line:     at.line,
		Locals:   []probe.Variable{{Name: "speed", Value: s.speed}},
		Members:  []probe.Variable{{Name: "self", Value: s.player}},
		Globals:  []probe.Variable{{Name: "frame", Value: s.frame}},
	}
	if at.depth == 0 {
		return []probe.Frame{process}
	}
	process.Line = 4
	position, _ := s.player.Get("position")
	move := probe.Frame{
		Function: at.function,
		File:     at.file,
		Line:     at.line,
		Locals:   []probe.Variable{{Name: "amount", Value: s.speed}, {Name: "step", Value: s.step}},
		Members:  []probe.Variable{{Name: "position", Value: position}},
		Globals:  process.Globals,
	}
	return []probe.Frame{move, process}
}
