// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/liveinspect/wire"
)

// TreeItem is one node of the remote scene tree mirror.
type TreeItem struct {
	ID       wire.ObjectID
	Name     string
	Class    string
	Parent   *TreeItem
	Children []*TreeItem
}

// Path returns the node's absolute path in the remote tree.
func (item *TreeItem) Path() wire.NodePath {
	var names []string
	for current := item; current != nil; current = current.Parent {
		names = append(names, current.Name)
	}
	var builder strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		builder.WriteByte('/')
		builder.WriteString(names[i])
	}
	return wire.NodePath(builder.String())
}

// TreeRow is one visible line of the tree.
type TreeRow struct {
	Item     *TreeItem
	Depth    int
	Expanded bool
	Selected bool
}

// SceneTree mirrors the probe's scene tree. The fold set records the
// rows the user expanded and survives refreshes until the session
// ends.
type SceneTree struct {
	root  *TreeItem
	index map[wire.ObjectID]*TreeItem

	filter        string
	lastFilter    string
	unfolded      map[wire.ObjectID]bool
	selected      wire.ObjectID
	scrollRequest wire.ObjectID
}

func newSceneTree() *SceneTree {
	return &SceneTree{
		index:    make(map[wire.ObjectID]*TreeItem),
		unfolded: make(map[wire.ObjectID]bool),
	}
}

// Root returns the tree root, or nil before the first refresh.
func (t *SceneTree) Root() *TreeItem { return t.root }

// Find returns the item with the remote id.
func (t *SceneTree) Find(id wire.ObjectID) (*TreeItem, bool) {
	item, ok := t.index[id]
	return item, ok
}

// Len returns the number of items kept by the current filter.
func (t *SceneTree) Len() int { return len(t.index) }

// Filter returns the current name filter.
func (t *SceneTree) Filter() string { return t.filter }

// SetFilter changes the name filter. It takes effect on the next
// rebuild.
func (t *SceneTree) SetFilter(filter string) { t.filter = filter }

// Expand records an explicit expansion.
func (t *SceneTree) Expand(id wire.ObjectID) { t.unfolded[id] = true }

// Collapse removes an explicit expansion.
func (t *SceneTree) Collapse(id wire.ObjectID) { delete(t.unfolded, id) }

// Expanded reports whether a row shows its children. The root is
// always expanded, and a filter expands everything it keeps.
func (t *SceneTree) Expanded(id wire.ObjectID) bool {
	if t.root != nil && t.root.ID == id {
		return true
	}
	return t.unfolded[id] || t.filter != ""
}

// Select marks the row for the remote id as selected.
func (t *SceneTree) Select(id wire.ObjectID) { t.selected = id }

// Selected returns the selected remote id, or zero.
func (t *SceneTree) Selected() wire.ObjectID { return t.selected }

// TakeScrollRequest returns the row the view should scroll to, once.
func (t *SceneTree) TakeScrollRequest() (wire.ObjectID, bool) {
	id := t.scrollRequest
	t.scrollRequest = 0
	return id, id != 0
}

// CopyNodePath returns the absolute path of the row with id.
func (t *SceneTree) CopyNodePath(id wire.ObjectID) (wire.NodePath, bool) {
	item, ok := t.index[id]
	if !ok {
		return "", false
	}
	return item.Path(), true
}

// Rows flattens the visible part of the tree in display order.
func (t *SceneTree) Rows() []TreeRow {
	var rows []TreeRow
	var walk func(item *TreeItem, depth int)
	walk = func(item *TreeItem, depth int) {
		expanded := t.Expanded(item.ID)
		rows = append(rows, TreeRow{Item: item, Depth: depth, Expanded: expanded, Selected: item.ID == t.selected})
		if !expanded {
			return
		}
		for _, child := range item.Children {
			walk(child, depth+1)
		}
	}
	if t.root != nil {
		walk(t.root, 0)
	}
	return rows
}

// reset forgets the tree and the fold set.
func (t *SceneTree) reset() {
	t.root = nil
	clear(t.index)
	clear(t.unfolded)
	t.selected = 0
	t.scrollRequest = 0
}

// rebuild replaces the mirror from a flat pre-order dump of
// (child_count, name, class, id) groups. inspected is the remote id of
// the object being edited, or zero.
func (t *SceneTree) rebuild(flat []any, inspected wire.ObjectID) error {
	if len(flat)%4 != 0 {
		return fmt.Errorf("%w: scene tree has %d values, not a multiple of 4", wire.ErrArgument, len(flat))
	}
	offset := 0
	var root *TreeItem
	if len(flat) > 0 {
		var err error
		root, err = decodeSubtree(flat, &offset, nil, 0)
		if err != nil {
			return err
		}
		if offset != len(flat) {
			return fmt.Errorf("%w: scene tree has %d trailing values", wire.ErrArgument, len(flat)-offset)
		}
	}

	filter := strings.ToLower(t.filter)
	if root != nil && filter != "" && !prune(root, filter) {
		root = nil
	}
	t.root = root
	clear(t.index)
	if root != nil {
		indexItems(root, t.index)
	}

	filterChanged := t.filter != t.lastFilter
	t.lastFilter = t.filter
	if _, ok := t.index[inspected]; ok && inspected != 0 {
		t.selected = inspected
		if filterChanged {
			t.scrollRequest = inspected
		}
	}
	return nil
}

// maxTreeDepth bounds recursion on a malformed dump.
const maxTreeDepth = 1024

func decodeSubtree(flat []any, offset *int, parent *TreeItem, depth int) (*TreeItem, error) {
	if depth > maxTreeDepth {
		return nil, fmt.Errorf("%w: scene tree deeper than %d", wire.ErrArgument, maxTreeDepth)
	}
	if *offset+4 > len(flat) {
		return nil, fmt.Errorf("%w: scene tree truncated at value %d", wire.ErrArgument, *offset)
	}
	group := flat[*offset : *offset+4]
	count, countOK := wire.AsInt(group[0])
	name, nameOK := wire.AsString(group[1])
	class, classOK := wire.AsString(group[2])
	id, idOK := wire.AsObjectID(group[3])
	if !countOK || !nameOK || !classOK || !idOK || count < 0 {
		return nil, fmt.Errorf("%w: scene tree entry at value %d is malformed", wire.ErrArgument, *offset)
	}
	*offset += 4
	item := &TreeItem{ID: id, Name: name, Class: class, Parent: parent}
	for i := int64(0); i < count; i++ {
		child, err := decodeSubtree(flat, offset, item, depth+1)
		if err != nil {
			return nil, err
		}
		item.Children = append(item.Children, child)
	}
	return item, nil
}

// prune keeps items whose name contains filter, and their ancestors.
// It reports whether item survives.
func prune(item *TreeItem, filter string) bool {
	kept := item.Children[:0]
	for _, child := range item.Children {
		if prune(child, filter) {
			kept = append(kept, child)
		}
	}
	item.Children = kept
	return len(kept) > 0 || strings.Contains(strings.ToLower(item.Name), filter)
}

func indexItems(item *TreeItem, index map[wire.ObjectID]*TreeItem) {
	index[item.ID] = item
	for _, child := range item.Children {
		indexItems(child, index)
	}
}
