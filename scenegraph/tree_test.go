// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bureau-foundation/liveinspect/wire"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	return NewTree(NewObjectDB(), NewClassDB())
}

func mustInstance(t *testing.T, tree *Tree, class, name string) *Node {
	t.Helper()
	node, err := tree.Classes().Instance(tree.DB(), class, name)
	if err != nil {
		t.Fatalf("Instance(%q, %q): %v", class, name, err)
	}
	return node
}

func mustAdd(t *testing.T, parent, child *Node) {
	t.Helper()
	if err := parent.AddChild(child); err != nil {
		t.Fatalf("AddChild(%q): %v", child.Name(), err)
	}
}

func TestObjectIDsAreMonotonicAndNeverReused(t *testing.T) {
	tree := newTestTree(t)
	first := mustInstance(t, tree, "Node", "A")
	second := mustInstance(t, tree, "Node", "B")
	if second.ID() <= first.ID() {
		t.Fatalf("ids not increasing: %v then %v", first.ID(), second.ID())
	}
	first.Free()
	if _, ok := tree.DB().Get(first.ID()); ok {
		t.Fatalf("freed id %v still resolves", first.ID())
	}
	third := mustInstance(t, tree, "Node", "C")
	if third.ID() <= second.ID() {
		t.Fatalf("id %v reissued after free", third.ID())
	}
}

func TestAddChildRenamesDuplicateSibling(t *testing.T) {
	tree := newTestTree(t)
	mustAdd(t, tree.Root(), mustInstance(t, tree, "Node2D", "Enemy"))
	second := mustInstance(t, tree, "Node2D", "Enemy")
	mustAdd(t, tree.Root(), second)
	third := mustInstance(t, tree, "Node2D", "Enemy")
	mustAdd(t, tree.Root(), third)

	if second.Name() != "Enemy2" || third.Name() != "Enemy3" {
		t.Fatalf("names = %q, %q; want Enemy2, Enemy3", second.Name(), third.Name())
	}
	third.Rename("Enemy")
	if third.Name() != "Enemy3" {
		t.Errorf("rename onto taken name gave %q", third.Name())
	}
}

func TestGetNodeResolvesPaths(t *testing.T) {
	tree := newTestTree(t)
	main := mustInstance(t, tree, "Node2D", "Main")
	player := mustInstance(t, tree, "Sprite", "Player")
	gun := mustInstance(t, tree, "Node2D", "Gun")
	mustAdd(t, tree.Root(), main)
	mustAdd(t, main, player)
	mustAdd(t, player, gun)

	tests := []struct {
		from *Node
		path wire.NodePath
		want *Node
	}{
		{tree.Root(), "/root/Main/Player", player},
		{main, "Player/Gun", gun},
		{gun, "../..", main},
		{player, ".", player},
		{gun, "/root", tree.Root()},
		{main, "Missing", nil},
		{tree.Root(), "/other/Main", nil},
	}
	for _, test := range tests {
		got, ok := test.from.GetNode(test.path)
		if (test.want == nil) == ok || got != test.want {
			t.Errorf("%s.GetNode(%q) = %v, %v", test.from.Name(), test.path, got, ok)
		}
	}
	if path := gun.Path(); path != "/root/Main/Player/Gun" {
		t.Errorf("Path() = %q", path)
	}
	relative, err := gun.PathTo(main)
	if err != nil || relative != "../.." {
		t.Errorf("PathTo(main) = %q, %v", relative, err)
	}
	relative, err = main.PathTo(gun)
	if err != nil || relative != "Player/Gun" {
		t.Errorf("main.PathTo(gun) = %q, %v", relative, err)
	}
}

func TestFlattenIsPreOrder(t *testing.T) {
	tree := newTestTree(t)
	main := mustInstance(t, tree, "Node2D", "Main")
	player := mustInstance(t, tree, "Sprite", "Player")
	hud := mustInstance(t, tree, "Control", "HUD")
	mustAdd(t, tree.Root(), main)
	mustAdd(t, main, player)
	mustAdd(t, tree.Root(), hud)

	want := []any{
		int64(2), "root", "Node", tree.Root().ID(),
		int64(1), "Main", "Node2D", main.ID(),
		int64(0), "Player", "Sprite", player.ID(),
		int64(0), "HUD", "Control", hud.ID(),
	}
	if got := tree.Flatten(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten() = %v\nwant %v", got, want)
	}
	if tree.NodeCount() != 4 {
		t.Errorf("NodeCount() = %d, want 4", tree.NodeCount())
	}
}

func TestInstanceIndexFollowsTreeMembership(t *testing.T) {
	tree := newTestTree(t)
	first := mustInstance(t, tree, "Node2D", "Enemy")
	first.SetSceneFile("res://enemy.lscn")
	second := mustInstance(t, tree, "Node2D", "Enemy")
	second.SetSceneFile("res://enemy.lscn")

	mustAdd(t, tree.Root(), first)
	if got := tree.Instances("res://enemy.lscn"); len(got) != 1 || got[0] != first {
		t.Fatalf("after first add: %v", got)
	}
	mustAdd(t, tree.Root(), second)
	if got := tree.Instances("res://enemy.lscn"); len(got) != 2 {
		t.Fatalf("after second add: %d instances", len(got))
	}
	if err := tree.Root().RemoveChild(first); err != nil {
		t.Fatalf("RemoveChild: %v", err)
	}
	if got := tree.Instances("res://enemy.lscn"); len(got) != 1 || got[0] != second {
		t.Fatalf("after remove: %v", got)
	}
	if first.InTree() {
		t.Error("removed node still reports InTree")
	}
}

func TestFreeRemovesDescendants(t *testing.T) {
	tree := newTestTree(t)
	main := mustInstance(t, tree, "Node2D", "Main")
	child := mustInstance(t, tree, "Sprite", "Child")
	mustAdd(t, tree.Root(), main)
	mustAdd(t, main, child)

	main.Free()
	for _, id := range []wire.ObjectID{main.ID(), child.ID()} {
		if _, ok := tree.DB().Get(id); ok {
			t.Errorf("id %v still live after Free", id)
		}
	}
	if tree.Root().ChildCount() != 0 || tree.NodeCount() != 1 {
		t.Errorf("root has %d children, tree has %d nodes", tree.Root().ChildCount(), tree.NodeCount())
	}
}

func TestDuplicateCopiesValuesWithFreshIDs(t *testing.T) {
	tree := newTestTree(t)
	main := mustInstance(t, tree, "Node2D", "Main")
	child := mustInstance(t, tree, "Sprite", "Child")
	mustAdd(t, main, child)
	if err := child.Set("offset", wire.Vector2{X: 2, Y: 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	duplicate := main.Duplicate()
	if duplicate.ID() == main.ID() || duplicate.Parent() != nil {
		t.Fatalf("duplicate id %v parent %v", duplicate.ID(), duplicate.Parent())
	}
	copied := duplicate.Child(0)
	if copied == nil || copied.ID() == child.ID() {
		t.Fatalf("child not duplicated: %v", copied)
	}
	if offset, _ := copied.Get("offset"); offset != (wire.Vector2{X: 2, Y: 3}) {
		t.Errorf("duplicated offset = %v", offset)
	}
}

func TestSetUnknownPropertyFails(t *testing.T) {
	tree := newTestTree(t)
	node := mustInstance(t, tree, "Node2D", "Main")
	if err := node.Set("no_such_thing", int64(1)); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("Set unknown property: %v", err)
	}
	if err := node.Set("name", "Renamed"); err != nil || node.Name() != "Renamed" {
		t.Fatalf("Set name: %v, name %q", err, node.Name())
	}
}

func TestCallResolvesInheritedMethods(t *testing.T) {
	tree := newTestTree(t)
	sprite := mustInstance(t, tree, "Sprite", "Player")
	if _, err := sprite.Call("translate", []any{wire.Vector2{X: 5, Y: -1}}); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if position, _ := sprite.Get("position"); position != (wire.Vector2{X: 5, Y: -1}) {
		t.Errorf("position = %v", position)
	}
	if _, err := sprite.Call("set", []any{"flip_h", true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if flip, _ := sprite.Get("flip_h"); flip != true {
		t.Errorf("flip_h = %v", flip)
	}
	if _, err := sprite.Call("explode", nil); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown method: %v", err)
	}
}

func TestAttachScriptDefinesExports(t *testing.T) {
	tree := newTestTree(t)
	script, err := tree.Classes().NewResource(tree.DB(), "Script", "res://player.gd")
	if err != nil {
		t.Fatalf("NewResource: %v", err)
	}
	script.Set("exports", []any{[]any{"speed", int64(wire.TypeReal), 200.0}})

	node := mustInstance(t, tree, "Node2D", "Player")
	node.AttachScript(script)
	speed, ok := node.Properties().Info("speed")
	if !ok || speed.Value != 200.0 || speed.Usage&wire.UsageScriptVariable == 0 {
		t.Fatalf("speed property = %+v, %v", speed, ok)
	}
	if value, _ := node.Get("script"); value != wire.ResourcePath("res://player.gd") {
		t.Errorf("script = %v", value)
	}
	node.AttachScript(nil)
	if _, ok := node.Get("speed"); ok {
		t.Error("script variable survived detaching the script")
	}
}

func TestTextureVideoMemory(t *testing.T) {
	tree := newTestTree(t)
	texture, err := tree.Classes().NewResource(tree.DB(), "Texture", "res://icon.png")
	if err != nil {
		t.Fatalf("NewResource: %v", err)
	}
	texture.Set("width", int64(64))
	texture.Set("height", int64(32))
	bytes, format := texture.VideoMemory()
	if bytes != 64*32*4 || format != "RGBA8" {
		t.Errorf("VideoMemory() = %d, %q", bytes, format)
	}
	material, _ := tree.Classes().NewResource(tree.DB(), "Material", "")
	if bytes, _ := material.VideoMemory(); bytes != 0 {
		t.Errorf("material VideoMemory() = %d", bytes)
	}
}
