// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/monitor"
	"github.com/bureau-foundation/liveinspect/probe"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Script locations the demo's simulated scripts run at.
const (
	playerScript = "res://player.gd"
	playerLine   = 14
	enemyScript  = "res://enemy.gd"
	enemyLine    = 9
	mainScript   = "res://main.gd"
	mainLine     = 7
)

// Intervals of the demo's scripted events.
const (
	scoreInterval   = 5 * time.Second
	warningInterval = 30 * time.Second
)

// game is a small 2D scene animated by simulated scripts.
type game struct {
	tree  *scenegraph.Tree
	probe *probe.Probe

	level   *scenegraph.Node
	player  *scenegraph.Node
	enemies []*scenegraph.Node
	score   *scenegraph.Node

	elapsed     time.Duration
	nextScore   time.Duration
	nextWarning time.Duration
	points      int64

	// stepping stops at the next script line after a step or next.
	stepping bool
}

// buildScene creates the demo scene under the tree root.
func buildScene(tree *scenegraph.Tree) (*game, error) {
	g := &game{tree: tree, nextScore: scoreInterval, nextWarning: warningInterval}
	var err error
	add := func(class, name string, parent *scenegraph.Node) *scenegraph.Node {
		if err != nil {
			return nil
		}
		var node *scenegraph.Node
		node, err = tree.Classes().Instance(tree.DB(), class, name)
		if err != nil {
			return nil
		}
		err = parent.AddChild(node)
		return node
	}

	g.level = add("Node2D", "Level", tree.Root())
	g.player = add("Sprite", "Player", g.level)
	add("Camera2D", "Camera", g.player)
	enemies := add("Node2D", "Enemies", g.level)
	for index := range 3 {
		g.enemies = append(g.enemies, add("KinematicBody2D", fmt.Sprintf("Enemy%d", index+1), enemies))
	}
	hud := add("Control", "HUD", g.level)
	g.score = add("Label", "Score", hud)
	add("Button", "Restart", hud)
	if err != nil {
		return nil, fmt.Errorf("building demo scene: %w", err)
	}
	tree.SetCurrentScene(g.level)
	g.level.SetSceneFile("res://level.lscn")
	return g, nil
}

// stack is the simulated script call stack at the player's update.
func (g *game) stack() []probe.Frame {
	position, _ := g.player.Get("position")
	return []probe.Frame{
		{
			Function: "_process",
			File:     playerScript,
			Line:     playerLine,
			Locals:   []probe.Variable{{Name: "delta", Value: 1.0 / 60}},
			Members: []probe.Variable{
				{Name: "self", Value: g.player},
				{Name: "position", Value: position},
			},
		},
		{
			Function: "_physics_process",
			File:     mainScript,
			Line:     mainLine,
			Globals:  []probe.Variable{{Name: "score", Value: g.points}},
		},
	}
}

// monitors fills the monitor slots the probe cannot measure itself.
func (g *game) monitors(values []float64) {
	drawn := float64(1 + len(g.enemies))
	values[monitor.DrawObjects] = drawn
	values[monitor.DrawVertices] = 4 * drawn
	values[monitor.DrawCalls] = drawn
	values[monitor.PhysicsActiveObjects] = float64(len(g.enemies))
	values[monitor.AudioLatency] = 0.015
}

// step advances the scene by delta and runs one probe tick.
func (g *game) step(delta time.Duration) {
	g.elapsed += delta
	seconds := delta.Seconds()

	g.runScript(playerScript, playerLine)
	started := time.Now()
	position, _ := g.player.Get("position")
	current, _ := position.(wire.Vector2)
	current.X = math.Mod(current.X+120*seconds, 640)
	current.Y = 240 + 60*math.Sin(g.elapsed.Seconds())
	if err := g.player.Set("position", current); err != nil {
		g.probe.PrintError(err.Error())
	}
	playerCost := time.Since(started)

	g.runScript(enemyScript, enemyLine)
	started = time.Now()
	for index, enemy := range g.enemies {
		rotation, _ := enemy.Get("rotation")
		angle, _ := rotation.(float64)
		if err := enemy.Set("rotation", math.Mod(angle+float64(index+1)*seconds, 2*math.Pi)); err != nil {
			g.probe.PrintError(err.Error())
		}
	}
	enemyCost := time.Since(started)

	if g.elapsed >= g.nextScore {
		g.nextScore += scoreInterval
		g.points += 10
		if err := g.score.Set("text", fmt.Sprintf("Score: %d", g.points)); err != nil {
			g.probe.PrintError(err.Error())
		}
		g.probe.Print(fmt.Sprintf("score: %d", g.points))
	}
	if g.elapsed >= g.nextWarning {
		g.nextWarning += warningInterval
		g.probe.ReportError(probe.ErrorRecord{
			Method:    "_process",
			File:      enemyScript,
			Line:      enemyLine,
			Condition: "enemy_count > 2",
			Message:   "too many enemies on screen",
			Warning:   true,
			Stack:     []probe.StackEntry{{File: enemyScript, Function: "_process", Line: enemyLine}},
		})
	}

	if profiler := g.probe.Profiler(); profiler.Active() {
		profiler.Record(fmt.Sprintf("%s::%d::_process", playerScript, playerLine), 1, playerCost, playerCost)
		profiler.Record(fmt.Sprintf("%s::%d::_process", enemyScript, enemyLine), len(g.enemies), enemyCost, enemyCost)
		profiler.SetFrameTimes(probe.FrameTimes{Frame: delta, Process: playerCost + enemyCost})
	}
	if network := g.probe.Network(); network.Active() {
		network.RecordRPC(g.player.ID(), g.player.Path(), probe.RPCCounts{OutgoingRPC: 1})
		network.RecordBandwidth(48, 64)
	}

	g.probe.Tick(delta)
}

// runScript simulates reaching a script line: it stops on breakpoints
// and after a step.
func (g *game) runScript(source string, line int) {
	if !g.stepping && !g.probe.ShouldBreak(source, line) {
		return
	}
	g.stepping = false
	if !g.probe.Attached() {
		return
	}
	frames := g.stack()
	frames[0].File = source
	frames[0].Line = line
	switch g.probe.Debug(true, "Breakpoint", frames) {
	case probe.ResumeStep, probe.ResumeNext:
		g.stepping = true
	}
}
