// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/liveinspect/wire"
)

func inspectReply(id wire.ObjectID, class string, properties ...wire.Property) wire.Message {
	tuples := make([]any, len(properties))
	for i, property := range properties {
		tuples[i] = property.Tuple()
	}
	return wire.NewMessage(wire.InspectReply, id, class, tuples)
}

func prop(name string, kind wire.Type, value any) wire.Property {
	return wire.Property{Name: name, Type: kind, Usage: wire.UsageDefault, Value: value}
}

type scriptResolver struct{ exports []wire.Property }

func (r scriptResolver) Resolve(path wire.ResourcePath) (*Resource, error) {
	if path == "res://missing.tres" {
		return nil, errors.New("not found")
	}
	return &Resource{Path: path, Class: "Script", Exports: r.exports}, nil
}

func TestRegistryCreatesProxyWithLocalID(t *testing.T) {
	t.Parallel()
	registry := newRegistry(PathResolver{}, nil)
	first, err := registry.apply(inspectReply(0x42, "Node2D", prop("position", wire.TypeVector2, wire.Vector2{})))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	second, err := registry.apply(inspectReply(0x43, "Node", prop("pause_mode", wire.TypeInt, int64(0))))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !first.created || !second.created {
		t.Fatal("first replies did not create proxies")
	}
	if first.proxy.LocalID == second.proxy.LocalID {
		t.Errorf("proxies share local id %d", first.proxy.LocalID)
	}
	if proxy, ok := registry.Local(second.proxy.LocalID); !ok || proxy.RemoteID != 0x43 {
		t.Errorf("Local(%d) = %v, %v", second.proxy.LocalID, proxy, ok)
	}

	registry.Clear()
	third, _ := registry.apply(inspectReply(0x42, "Node2D"))
	if third.proxy.LocalID <= second.proxy.LocalID {
		t.Errorf("local id %d reused after Clear", third.proxy.LocalID)
	}
}

func TestRegistryDiffReportsChangedProperties(t *testing.T) {
	t.Parallel()
	registry := newRegistry(PathResolver{}, nil)
	registry.apply(inspectReply(1, "Node2D",
		prop("position", wire.TypeVector2, wire.Vector2{X: 1}),
		prop("rotation", wire.TypeReal, 0.0)))

	same, err := registry.apply(inspectReply(1, "Node2D",
		prop("position", wire.TypeVector2, wire.Vector2{X: 1}),
		prop("rotation", wire.TypeReal, 0.5)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if same.created || same.reshaped {
		t.Errorf("value change reported as reshape: %+v", same)
	}
	if len(same.changed) != 1 || same.changed[0] != "rotation" {
		t.Errorf("changed = %v, want [rotation]", same.changed)
	}

	grown, _ := registry.apply(inspectReply(1, "Node2D",
		prop("position", wire.TypeVector2, wire.Vector2{X: 1}),
		prop("rotation", wire.TypeReal, 0.5),
		prop("z_index", wire.TypeInt, int64(2))))
	if !grown.reshaped {
		t.Error("added property not reported as reshape")
	}

	shrunk, _ := registry.apply(inspectReply(1, "Node2D", prop("position", wire.TypeVector2, wire.Vector2{X: 1})))
	if !shrunk.reshaped {
		t.Error("removed property not reported as reshape")
	}
	if _, ok := shrunk.proxy.Get("rotation"); ok {
		t.Error("removed property still has a value")
	}
}

func TestRegistryCollapsesObjectIDs(t *testing.T) {
	t.Parallel()
	registry := newRegistry(PathResolver{}, nil)
	result, err := registry.apply(inspectReply(1, "Node",
		prop("owner", wire.TypeObject, wire.ObjectID(7)),
		prop("target", wire.TypeObject, wire.ObjectID(0))))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	owner, _ := result.proxy.Property("owner")
	if owner.Type != wire.TypeInt || owner.Hint != wire.HintObjectID || owner.HintString != "Object" {
		t.Errorf("owner = %+v, want an id-hint int", owner)
	}
	if owner.Value != wire.ObjectID(7) {
		t.Errorf("owner value = %v", owner.Value)
	}
	if target, _ := result.proxy.Get("target"); target != nil {
		t.Errorf("null object = %v, want nil", target)
	}
}

func TestRegistryResolvesResourcesAndScriptPlaceholders(t *testing.T) {
	t.Parallel()
	exports := []wire.Property{prop("speed", wire.TypeReal, 4.0), prop("lives", wire.TypeInt, int64(3))}
	registry := newRegistry(scriptResolver{exports: exports}, nil)
	script := wire.Property{Name: "script", Type: wire.TypeObject, Hint: wire.HintResourceType, HintString: "Script", Usage: wire.UsageDefault, Value: wire.ResourcePath("res://player.gd")}
	result, err := registry.apply(inspectReply(1, "Sprite",
		script,
		prop("lives", wire.TypeInt, int64(1)),
		prop("texture", wire.TypeObject, wire.ResourcePath("res://missing.tres"))))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	proxy := result.proxy
	if proxy.Script == nil || proxy.Script.Path != "res://player.gd" {
		t.Fatalf("script = %v", proxy.Script)
	}
	speed, ok := proxy.Property("speed")
	if !ok || speed.Value != 4.0 || speed.Usage&wire.UsageScriptVariable == 0 {
		t.Errorf("placeholder speed = %+v, %v", speed, ok)
	}
	if lives, _ := proxy.Get("lives"); lives != int64(1) {
		t.Errorf("reported lives overridden by placeholder: %v", lives)
	}
	texture, _ := proxy.Get("texture")
	resource, ok := texture.(*Resource)
	if !ok || resource.Path != "res://missing.tres" {
		t.Errorf("unresolvable texture = %v, want path-only resource", texture)
	}
}

func TestProxySetRunsEditHook(t *testing.T) {
	t.Parallel()
	var edited []string
	registry := newRegistry(PathResolver{}, func(proxy *Proxy, name string, value any) {
		edited = append(edited, name)
	})
	result, _ := registry.apply(inspectReply(1, "Node2D", prop("rotation", wire.TypeReal, 0.0)))
	if err := result.proxy.Set("rotation", 1.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := result.proxy.Set("missing", 1); err == nil {
		t.Error("Set accepted an unknown property")
	}
	if len(edited) != 1 || edited[0] != "rotation" {
		t.Errorf("edits = %v", edited)
	}
	if value, _ := result.proxy.Get("rotation"); value != 1.5 {
		t.Errorf("local value = %v", value)
	}
}

func TestRegistryRejectsMalformedReply(t *testing.T) {
	t.Parallel()
	registry := newRegistry(PathResolver{}, nil)
	_, err := registry.apply(wire.NewMessage(wire.InspectReply, wire.ObjectID(1), "Node", []any{[]any{"short"}}))
	if !errors.Is(err, wire.ErrArgument) {
		t.Fatalf("apply = %v, want ErrArgument", err)
	}
	if registry.Len() != 0 {
		t.Error("malformed reply created a proxy")
	}
}
