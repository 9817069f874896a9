// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Node is an element of the scene tree.
type Node struct {
	db      *ObjectDB
	classes *ClassDB

	id    wire.ObjectID
	class string
	name  string

	parent   *Node
	children []*Node
	tree     *Tree

	properties Properties

	// sceneFile is set on the root of an instanced scene.
	sceneFile string
	freed     bool
}

func (n *Node) ID() wire.ObjectID { return n.id }
func (n *Node) Class() string     { return n.class }
func (n *Node) Name() string      { return n.name }
func (n *Node) Parent() *Node     { return n.parent }

// Tree returns the tree the node is attached to, or nil when detached.
func (n *Node) Tree() *Tree { return n.tree }

// InTree reports whether the node is attached under the tree root.
func (n *Node) InTree() bool { return n.tree != nil }

// Freed reports whether Free was called.
func (n *Node) Freed() bool { return n.freed }

// SceneFile returns the scene file this node was instanced from, if it
// is the root of an instance.
func (n *Node) SceneFile() string { return n.sceneFile }

// SetSceneFile marks the node as the root of an instance of file.
func (n *Node) SetSceneFile(file string) {
	if n.tree != nil {
		n.tree.unindexInstance(n)
	}
	n.sceneFile = file
	if n.tree != nil {
		n.tree.indexInstance(n)
	}
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) Child(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// Index returns the node's position among its siblings, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	return slices.Index(n.parent.children, n)
}

// FindChild returns the direct child called name.
func (n *Node) FindChild(name string) *Node {
	for _, child := range n.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

// PropertyList returns "name" followed by the declared properties.
func (n *Node) PropertyList() []wire.Property {
	list := make([]wire.Property, 0, n.properties.Len()+1)
	list = append(list, wire.Property{Name: "name", Type: wire.TypeString, Usage: wire.UsageEditor, Value: n.name})
	return append(list, n.properties.List()...)
}

// Properties exposes the declared property set.
func (n *Node) Properties() *Properties { return &n.properties }

func (n *Node) Get(name string) (any, bool) {
	if name == "name" {
		return n.name, true
	}
	return n.properties.Get(name)
}

func (n *Node) Set(name string, value any) error {
	if name == "name" {
		text, ok := wire.AsString(value)
		if !ok || text == "" {
			return fmt.Errorf("name must be a non-empty string, got %s", wire.Describe(value))
		}
		n.Rename(text)
		return nil
	}
	return n.properties.Set(name, value)
}

// Call invokes a class method on the node.
func (n *Node) Call(method string, args []any) (any, error) {
	fn, ok := n.classes.Method(n.class, method)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, n.class, method)
	}
	return fn(n, args)
}

// AttachScript sets the node's script and declares the script's
// exported variables as properties. Variables an earlier script
// declared are removed.
func (n *Node) AttachScript(script *Resource) {
	for _, property := range n.properties.List() {
		if property.Usage&wire.UsageScriptVariable != 0 {
			n.properties.Undefine(property.Name)
		}
	}
	if script == nil {
		n.properties.Set("script", nil)
		return
	}
	n.properties.Set("script", script.Path())
	for _, variable := range script.Exports() {
		n.properties.Define(variable)
	}
}

// Rename changes the node's name, adding a numeric suffix when a
// sibling already uses it.
func (n *Node) Rename(name string) {
	if n.parent != nil {
		name = n.parent.uniqueChildName(name, n)
	}
	n.name = name
}

func (n *Node) uniqueChildName(name string, except *Node) string {
	taken := func(candidate string) bool {
		for _, child := range n.children {
			if child != except && child.name == candidate {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	base := strings.TrimRightFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	if base == "" {
		base = name
	}
	for i := 2; ; i++ {
		candidate := base + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// AddChild appends child, renaming it if the name is taken.
func (n *Node) AddChild(child *Node) error {
	return n.AddChildAt(child, -1)
}

// AddChildAt inserts child at index; a negative or out-of-range index
// appends.
func (n *Node) AddChildAt(child *Node, index int) error {
	switch {
	case child == nil:
		return fmt.Errorf("add child: nil node")
	case child.freed || n.freed:
		return fmt.Errorf("add child: node freed")
	case child.parent != nil:
		return fmt.Errorf("add child %q: already has parent %q", child.name, child.parent.name)
	case child == n || child.IsAncestorOf(n):
		return fmt.Errorf("add child %q: would create a cycle", child.name)
	}
	child.name = n.uniqueChildName(child.name, child)
	child.parent = n
	if index < 0 || index >= len(n.children) {
		n.children = append(n.children, child)
	} else {
		n.children = slices.Insert(n.children, index, child)
	}
	if n.tree != nil {
		child.enterTree(n.tree)
	}
	return nil
}

// RemoveChild detaches child without freeing it.
func (n *Node) RemoveChild(child *Node) error {
	index := slices.Index(n.children, child)
	if index < 0 {
		return fmt.Errorf("remove child %q: %w under %q", child.name, ErrNotFound, n.name)
	}
	n.children = slices.Delete(n.children, index, index+1)
	child.parent = nil
	if child.tree != nil {
		child.exitTree()
	}
	return nil
}

// MoveChild moves child to index among its siblings.
func (n *Node) MoveChild(child *Node, index int) error {
	current := slices.Index(n.children, child)
	if current < 0 {
		return fmt.Errorf("move child %q: %w under %q", child.name, ErrNotFound, n.name)
	}
	n.children = slices.Delete(n.children, current, current+1)
	index = max(0, min(index, len(n.children)))
	n.children = slices.Insert(n.children, index, child)
	return nil
}

// IsAncestorOf reports whether n is a strict ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	for current := other.parent; current != nil; current = current.parent {
		if current == n {
			return true
		}
	}
	return false
}

// GetNode resolves path. Absolute paths start at the tree root;
// relative paths start at n and may use "." and "..".
func (n *Node) GetNode(path wire.NodePath) (*Node, bool) {
	current := n
	if path.IsAbsolute() {
		if n.tree == nil {
			return nil, false
		}
		return n.tree.GetNode(path)
	}
	for _, name := range path.Names() {
		switch name {
		case ".":
		case "..":
			current = current.parent
		default:
			current = current.FindChild(name)
		}
		if current == nil {
			return nil, false
		}
	}
	return current, true
}

// Path returns the absolute path for a node in the tree. For a
// detached node it returns the path relative to its topmost ancestor.
func (n *Node) Path() wire.NodePath {
	var names []string
	for current := n; current != nil; current = current.parent {
		names = append(names, current.name)
	}
	slices.Reverse(names)
	if n.tree != nil {
		return wire.NodePath("/" + strings.Join(names, "/"))
	}
	return wire.NodePath(strings.Join(names[1:], "/"))
}

// PathTo returns the relative path from n to target. Both must share a
// common ancestor.
func (n *Node) PathTo(target *Node) (wire.NodePath, error) {
	ancestors := map[*Node]int{}
	depth := 0
	for current := n; current != nil; current = current.parent {
		ancestors[current] = depth
		depth++
	}
	var down []string
	for current := target; current != nil; current = current.parent {
		if up, ok := ancestors[current]; ok {
			parts := make([]string, 0, up+len(down))
			for i := 0; i < up; i++ {
				parts = append(parts, "..")
			}
			slices.Reverse(down)
			parts = append(parts, down...)
			if len(parts) == 0 {
				return ".", nil
			}
			return wire.NodePath(strings.Join(parts, "/")), nil
		}
		down = append(down, current.name)
	}
	return "", fmt.Errorf("%q and %q share no ancestor", n.name, target.name)
}

// Duplicate deep-copies n and its descendants into new detached nodes
// with fresh ids.
func (n *Node) Duplicate() *Node {
	duplicate := &Node{
		db:         n.db,
		classes:    n.classes,
		id:         n.db.reserve(),
		class:      n.class,
		name:       n.name,
		properties: n.properties.clone(),
		sceneFile:  n.sceneFile,
	}
	n.db.store(duplicate)
	for _, child := range n.children {
		duplicate.AddChild(child.Duplicate())
	}
	return duplicate
}

// Free detaches n, frees its descendants, and invalidates its id.
func (n *Node) Free() {
	if n.freed {
		return
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		n.children[i].Free()
	}
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
	n.freed = true
	n.db.Remove(n.id)
}

// Walk visits n and its descendants in pre-order. Returning false from
// visit skips the node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, child := range slices.Clone(n.children) {
		child.Walk(visit)
	}
}

func (n *Node) enterTree(tree *Tree) {
	n.Walk(func(node *Node) bool {
		node.tree = tree
		tree.nodeCount++
		tree.indexInstance(node)
		return true
	})
}

func (n *Node) exitTree() {
	tree := n.tree
	n.Walk(func(node *Node) bool {
		tree.unindexInstance(node)
		tree.nodeCount--
		node.tree = nil
		return true
	})
}
