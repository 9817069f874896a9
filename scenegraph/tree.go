// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"cmp"
	"slices"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Tree owns the root node and indexes scene instances by file.
type Tree struct {
	db      *ObjectDB
	classes *ClassDB
	root    *Node

	current   *Node
	nodeCount int

	// instances maps a scene file to the instance roots in the tree.
	instances map[string]map[*Node]struct{}
}

// NewTree creates a tree whose root is a Node named "root".
func NewTree(db *ObjectDB, classes *ClassDB) *Tree {
	tree := &Tree{
		db:        db,
		classes:   classes,
		instances: make(map[string]map[*Node]struct{}),
	}
	root, err := classes.Instance(db, "Node", "root")
	if err != nil {
		panic("scenegraph: builtin Node class missing: " + err.Error())
	}
	tree.root = root
	root.enterTree(tree)
	return tree
}

func (t *Tree) Root() *Node         { return t.root }
func (t *Tree) DB() *ObjectDB       { return t.db }
func (t *Tree) Classes() *ClassDB   { return t.classes }
func (t *Tree) NodeCount() int      { return t.nodeCount }
func (t *Tree) CurrentScene() *Node { return t.current }

// SetCurrentScene records the main scene node, which must already be
// in the tree.
func (t *Tree) SetCurrentScene(node *Node) { t.current = node }

// GetNode resolves an absolute path such as "/root/Main/Player".
func (t *Tree) GetNode(path wire.NodePath) (*Node, bool) {
	names := path.Names()
	if !path.IsAbsolute() || len(names) == 0 || names[0] != t.root.name {
		return nil, false
	}
	return t.root.GetNode(wire.NodePath(joinNames(names[1:])))
}

// Instances returns the roots of every instance of file in the tree,
// ordered by id.
func (t *Tree) Instances(file string) []*Node {
	set := t.instances[file]
	nodes := make([]*Node, 0, len(set))
	for node := range set {
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.id, b.id) })
	return nodes
}

// Flatten encodes the tree in pre-order as consecutive
// (child_count, name, class, id) groups.
func (t *Tree) Flatten() []any {
	flat := make([]any, 0, 4*t.nodeCount)
	t.root.Walk(func(node *Node) bool {
		flat = append(flat, int64(len(node.children)), node.name, node.class, node.id)
		return true
	})
	return flat
}

func (t *Tree) indexInstance(node *Node) {
	if node.sceneFile == "" {
		return
	}
	set, ok := t.instances[node.sceneFile]
	if !ok {
		set = make(map[*Node]struct{})
		t.instances[node.sceneFile] = set
	}
	set[node] = struct{}{}
}

func (t *Tree) unindexInstance(node *Node) {
	if node.sceneFile == "" {
		return
	}
	set := t.instances[node.sceneFile]
	delete(set, node)
	if len(set) == 0 {
		delete(t.instances, node.sceneFile)
	}
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "."
	}
	out := names[0]
	for _, name := range names[1:] {
		out += "/" + name
	}
	return out
}
