// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/liveinspect/wire"
)

// levelDump is root > Level > (Player > Gun, Enemy).
func levelDump() []any {
	return []any{
		int64(1), "root", "Node", wire.ObjectID(1),
		int64(2), "Level", "Node2D", wire.ObjectID(2),
		int64(1), "Player", "KinematicBody2D", wire.ObjectID(7),
		int64(0), "Gun", "Sprite", wire.ObjectID(8),
		int64(0), "Enemy", "Sprite", wire.ObjectID(9),
	}
}

func rowNames(rows []TreeRow) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Item.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSceneTreeSingleRoot(t *testing.T) {
	t.Parallel()
	tree := newSceneTree()
	if err := tree.rebuild([]any{int64(0), "root", "Node", wire.ObjectID(1)}, 0); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	rows := tree.Rows()
	if len(rows) != 1 || rows[0].Item.Name != "root" || rows[0].Item.Class != "Node" || len(rows[0].Item.Children) != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSceneTreeRebuildPaths(t *testing.T) {
	t.Parallel()
	tree := newSceneTree()
	if err := tree.rebuild(levelDump(), 0); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if tree.Len() != 5 {
		t.Fatalf("Len = %d, want 5", tree.Len())
	}
	path, ok := tree.CopyNodePath(8)
	if !ok || path != "/root/Level/Player/Gun" {
		t.Errorf("CopyNodePath(8) = %q, %v", path, ok)
	}
}

func TestSceneTreeFoldStateSurvivesRefresh(t *testing.T) {
	t.Parallel()
	tree := newSceneTree()
	tree.rebuild(levelDump(), 0)
	tree.Expand(2)
	tree.Expand(7)
	for range 3 {
		if err := tree.rebuild(levelDump(), 0); err != nil {
			t.Fatalf("rebuild: %v", err)
		}
	}
	if !tree.Expanded(7) {
		t.Fatal("row 7 collapsed by a refresh")
	}
	want := []string{"root", "Level", "Player", "Gun", "Enemy"}
	if got := rowNames(tree.Rows()); !equalStrings(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}

	tree.Collapse(7)
	tree.rebuild(levelDump(), 0)
	want = []string{"root", "Level", "Player", "Enemy"}
	if got := rowNames(tree.Rows()); !equalStrings(got, want) {
		t.Errorf("rows after collapse = %v, want %v", got, want)
	}

	tree.reset()
	tree.rebuild(levelDump(), 0)
	if tree.Expanded(7) {
		t.Error("fold set survived session reset")
	}
}

func TestSceneTreeFilterKeepsAncestors(t *testing.T) {
	t.Parallel()
	tree := newSceneTree()
	tree.SetFilter("GUN")
	if err := tree.rebuild(levelDump(), 0); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	want := []string{"root", "Level", "Player", "Gun"}
	if got := rowNames(tree.Rows()); !equalStrings(got, want) {
		t.Errorf("filtered rows = %v, want %v", got, want)
	}
	if _, ok := tree.Find(9); ok {
		t.Error("non-matching leaf Enemy survived the filter")
	}

	tree.SetFilter("nothing")
	tree.rebuild(levelDump(), 0)
	if tree.Root() != nil || len(tree.Rows()) != 0 {
		t.Error("filter with no match left rows")
	}
}

func TestSceneTreeScrollsToInspectedOnlyWhenFilterChanges(t *testing.T) {
	t.Parallel()
	tree := newSceneTree()
	tree.rebuild(levelDump(), 8)
	if tree.Selected() != 8 {
		t.Fatalf("inspected row not selected: %v", tree.Selected())
	}
	if _, ok := tree.TakeScrollRequest(); ok {
		t.Error("scroll requested without a filter change")
	}

	tree.SetFilter("gun")
	tree.rebuild(levelDump(), 8)
	if id, ok := tree.TakeScrollRequest(); !ok || id != 8 {
		t.Errorf("TakeScrollRequest = %v, %v, want 8", id, ok)
	}
	if _, ok := tree.TakeScrollRequest(); ok {
		t.Error("scroll request delivered twice")
	}
	tree.rebuild(levelDump(), 8)
	if _, ok := tree.TakeScrollRequest(); ok {
		t.Error("scroll requested again with the same filter")
	}
}

func TestSceneTreeRejectsMalformedDump(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name string
		flat []any
	}{
		{"partial group", []any{int64(0), "root", "Node"}},
		{"missing children", []any{int64(2), "root", "Node", wire.ObjectID(1), int64(0), "A", "Node", wire.ObjectID(2)}},
		{"trailing nodes", []any{int64(0), "root", "Node", wire.ObjectID(1), int64(0), "A", "Node", wire.ObjectID(2)}},
		{"bad name", []any{int64(0), int64(5), "Node", wire.ObjectID(1)}},
	} {
		t.Run(test.name, func(t *testing.T) {
			tree := newSceneTree()
			if err := tree.rebuild(test.flat, 0); !errors.Is(err, wire.ErrArgument) {
				t.Fatalf("rebuild = %v, want ErrArgument", err)
			}
		})
	}
}
