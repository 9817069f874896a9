// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"errors"
	"path"

	"github.com/bureau-foundation/liveinspect/wire"
)

// ErrNothingToUndo is returned by Undo and Redo at either end of the
// history.
var ErrNothingToUndo = errors.New("nothing to undo")

// Call is a method invocation sent with a live edit.
type Call struct {
	Method string
	Args   []any
}

type action struct {
	name string
	do   func()
	undo func()
}

// LiveEdit sends structural edits to the running game. Every path is
// announced once per session as a small integer id before its first
// use, and every edit records its inverse so it can be undone.
type LiveEdit struct {
	send func(name string, args ...any)

	nodePaths map[wire.NodePath]int64
	resPaths  map[wire.ResourcePath]int64
	lastID    int64
	lastKeep  int64

	root  wire.NodePath
	scene string

	history []action
	cursor  int
}

func newLiveEdit(send func(string, ...any)) *LiveEdit {
	return &LiveEdit{
		send:      send,
		nodePaths: make(map[wire.NodePath]int64),
		resPaths:  make(map[wire.ResourcePath]int64),
		root:      "/root",
	}
}

// reset forgets the path caches and the history. The edit root is
// editor state and is kept.
func (l *LiveEdit) reset() {
	clear(l.nodePaths)
	clear(l.resPaths)
	l.lastID = 0
	l.lastKeep = 0
	l.history = nil
	l.cursor = 0
}

// Root returns the edit root and the scene file bound to it.
func (l *LiveEdit) Root() (wire.NodePath, string) { return l.root, l.scene }

// SetRoot moves the edit root. An empty root restores /root.
func (l *LiveEdit) SetRoot(root wire.NodePath, sceneFile string) {
	if root == "" {
		root = "/root"
	}
	l.root, l.scene = root, sceneFile
	l.announceRoot()
}

func (l *LiveEdit) announceRoot() {
	l.send(wire.LiveSetRoot, string(l.root), l.scene)
}

func (l *LiveEdit) nodeID(p wire.NodePath) int64 {
	if id, ok := l.nodePaths[p]; ok {
		return id
	}
	l.lastID++
	l.nodePaths[p] = l.lastID
	l.send(wire.LiveNodePath, string(p), l.lastID)
	return l.lastID
}

func (l *LiveEdit) resID(p wire.ResourcePath) int64 {
	if id, ok := l.resPaths[p]; ok {
		return id
	}
	l.lastID++
	l.resPaths[p] = l.lastID
	l.send(wire.LiveResPath, string(p), l.lastID)
	return l.lastID
}

func (l *LiveEdit) record(name string, do, undo func()) {
	do()
	l.history = append(l.history[:l.cursor], action{name: name, do: do, undo: undo})
	l.cursor = len(l.history)
}

// CanUndo reports whether Undo has an action to revert.
func (l *LiveEdit) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether Redo has an action to reapply.
func (l *LiveEdit) CanRedo() bool { return l.cursor < len(l.history) }

// Undo sends the inverse of the most recent edit and returns its name.
func (l *LiveEdit) Undo() (string, error) {
	if l.cursor == 0 {
		return "", ErrNothingToUndo
	}
	l.cursor--
	entry := l.history[l.cursor]
	entry.undo()
	return entry.name, nil
}

// Redo resends the edit that Undo last reverted.
func (l *LiveEdit) Redo() (string, error) {
	if l.cursor == len(l.history) {
		return "", ErrNothingToUndo
	}
	entry := l.history[l.cursor]
	l.cursor++
	entry.do()
	return entry.name, nil
}

func (l *LiveEdit) nodeProp(p wire.NodePath, property string, value any) {
	if resource, ok := value.(*Resource); ok && resource != nil {
		l.send(wire.LiveNodePropRes, l.nodeID(p), property, string(resource.Path))
		return
	}
	l.send(wire.LiveNodeProp, l.nodeID(p), property, wireValue(value))
}

// SetNodeProperty sets property on the node at p; old is restored on
// undo. Resource values are sent by path.
func (l *LiveEdit) SetNodeProperty(p wire.NodePath, property string, value, old any) {
	l.record("Set "+property,
		func() { l.nodeProp(p, property, value) },
		func() { l.nodeProp(p, property, old) })
}

func (l *LiveEdit) resProp(p wire.ResourcePath, property string, value any) {
	if resource, ok := value.(*Resource); ok && resource != nil {
		l.send(wire.LiveResPropRes, l.resID(p), property, string(resource.Path))
		return
	}
	l.send(wire.LiveResProp, l.resID(p), property, wireValue(value))
}

// SetResourceProperty sets property on the resource at p.
func (l *LiveEdit) SetResourceProperty(p wire.ResourcePath, property string, value, old any) {
	l.record("Set "+property,
		func() { l.resProp(p, property, value) },
		func() { l.resProp(p, property, old) })
}

func (l *LiveEdit) nodeCall(p wire.NodePath, call Call) {
	l.send(wire.LiveNodeCall, append([]any{l.nodeID(p), call.Method}, call.Args...)...)
}

// CallNode invokes a method on the node at p. The inverse call is
// optional; without one, undo sends nothing.
func (l *LiveEdit) CallNode(p wire.NodePath, call Call, inverse *Call) {
	l.record("Call "+call.Method,
		func() { l.nodeCall(p, call) },
		func() {
			if inverse != nil {
				l.nodeCall(p, *inverse)
			}
		})
}

func (l *LiveEdit) resCall(p wire.ResourcePath, call Call) {
	l.send(wire.LiveResCall, append([]any{l.resID(p), call.Method}, call.Args...)...)
}

// CallResource invokes a method on the resource at p.
func (l *LiveEdit) CallResource(p wire.ResourcePath, call Call, inverse *Call) {
	l.record("Call "+call.Method,
		func() { l.resCall(p, call) },
		func() {
			if inverse != nil {
				l.resCall(p, *inverse)
			}
		})
}

func join(parent wire.NodePath, name string) wire.NodePath {
	return wire.NodePath(path.Join(string(parent), name))
}

func (l *LiveEdit) remove(p wire.NodePath) {
	l.send(wire.LiveRemoveNode, l.nodeID(p))
}

// CreateNode adds a node of class under parent. Undo removes it.
func (l *LiveEdit) CreateNode(parent wire.NodePath, class, name string) {
	l.record("Create "+name,
		func() { l.send(wire.LiveCreateNode, l.nodeID(parent), class, name) },
		func() { l.remove(join(parent, name)) })
}

// InstanceNode adds an instance of a scene file under parent. Undo
// removes it.
func (l *LiveEdit) InstanceNode(parent wire.NodePath, scene wire.ResourcePath, name string) {
	l.record("Instance "+name,
		func() { l.send(wire.LiveInstanceNode, l.nodeID(parent), string(scene), name) },
		func() { l.remove(join(parent, name)) })
}

// RemoveNode frees the node at p. The probe keeps the subtree under a
// keep id so undo can restore it at index under its parent.
func (l *LiveEdit) RemoveNode(p wire.NodePath, index int) {
	l.lastKeep++
	keep := l.lastKeep
	parent := wire.NodePath(path.Dir(string(p)))
	l.record("Remove "+path.Base(string(p)),
		func() { l.send(wire.LiveRemoveAndKeepNode, l.nodeID(p), keep) },
		func() { l.send(wire.LiveRestoreNode, keep, l.nodeID(parent), int64(index)) })
}

// DuplicateNode copies the node at p as a sibling named name.
func (l *LiveEdit) DuplicateNode(p wire.NodePath, name string) {
	parent := wire.NodePath(path.Dir(string(p)))
	l.record("Duplicate "+path.Base(string(p)),
		func() { l.send(wire.LiveDuplicateNode, l.nodeID(p), name) },
		func() { l.remove(join(parent, name)) })
}

// ReparentNode moves the node at p under newParent as name at index.
// oldIndex is its current position, restored on undo.
func (l *LiveEdit) ReparentNode(p, newParent wire.NodePath, name string, index, oldIndex int) {
	oldParent := wire.NodePath(path.Dir(string(p)))
	oldName := path.Base(string(p))
	moved := join(newParent, name)
	l.record("Reparent "+oldName,
		func() { l.send(wire.LiveReparentNode, l.nodeID(p), l.nodeID(newParent), name, int64(index)) },
		func() { l.send(wire.LiveReparentNode, l.nodeID(moved), l.nodeID(oldParent), oldName, int64(oldIndex)) })
}
