// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"fmt"
	"sort"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Method is a callable exposed to live method calls. target is the
// node or resource the call was addressed to.
type Method func(target Object, args []any) (any, error)

// Class describes a constructible node or resource type.
type Class struct {
	Name string

	// Parent is the base class name. Properties and methods are
	// inherited; a derived declaration overrides a base one.
	Parent string

	Properties []wire.Property
	Methods    map[string]Method

	// Resource marks resource classes. Instance refuses them.
	Resource bool
}

// ClassDB is the registry of classes that can be instanced by name.
type ClassDB struct {
	classes map[string]*Class
}

// NewClassDB returns a registry preloaded with the built-in classes.
func NewClassDB() *ClassDB {
	registry := &ClassDB{classes: make(map[string]*Class)}
	for _, class := range builtinClasses() {
		registry.Register(class)
	}
	return registry
}

// Register adds or replaces a class.
func (c *ClassDB) Register(class Class) {
	registered := class
	c.classes[class.Name] = &registered
}

// Has reports whether name is registered.
func (c *ClassDB) Has(name string) bool {
	_, ok := c.classes[name]
	return ok
}

// Names returns registered class names, sorted.
func (c *ClassDB) Names() []string {
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// chain returns the inheritance chain from the root base to class.
func (c *ClassDB) chain(name string) ([]*Class, error) {
	var chain []*Class
	for current := name; current != ""; {
		class, ok := c.classes[current]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownClass, current)
		}
		chain = append([]*Class{class}, chain...)
		if len(chain) > 64 {
			return nil, fmt.Errorf("class %q: inheritance cycle", name)
		}
		current = class.Parent
	}
	return chain, nil
}

// IsA reports whether class derives from (or is) base.
func (c *ClassDB) IsA(class, base string) bool {
	chain, err := c.chain(class)
	if err != nil {
		return false
	}
	for _, entry := range chain {
		if entry.Name == base {
			return true
		}
	}
	return false
}

func (c *ClassDB) defaults(name string) (Properties, error) {
	chain, err := c.chain(name)
	if err != nil {
		return Properties{}, err
	}
	var properties Properties
	for _, class := range chain {
		for _, property := range class.Properties {
			property.Value = cloneValue(property.Value)
			properties.Define(property)
		}
	}
	return properties, nil
}

// Method resolves a method along the inheritance chain.
func (c *ClassDB) Method(class, method string) (Method, bool) {
	for current := class; current != ""; {
		entry, ok := c.classes[current]
		if !ok {
			return nil, false
		}
		if fn, ok := entry.Methods[method]; ok {
			return fn, true
		}
		current = entry.Parent
	}
	return nil, false
}

// Instance constructs a detached node of class, named name, registered
// in db.
func (c *ClassDB) Instance(db *ObjectDB, class, name string) (*Node, error) {
	entry, ok := c.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if entry.Resource {
		return nil, fmt.Errorf("class %q is a resource, not a node", class)
	}
	properties, err := c.defaults(class)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = class
	}
	node := &Node{
		db:         db,
		classes:    c,
		id:         db.reserve(),
		class:      class,
		name:       name,
		properties: properties,
	}
	db.store(node)
	return node, nil
}

// NewResource constructs a resource of class at path, registered in
// db. An empty path makes a built-in (unsaved) resource.
func (c *ClassDB) NewResource(db *ObjectDB, class string, path wire.ResourcePath) (*Resource, error) {
	entry, ok := c.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if !entry.Resource {
		return nil, fmt.Errorf("class %q is a node, not a resource", class)
	}
	properties, err := c.defaults(class)
	if err != nil {
		return nil, err
	}
	resource := &Resource{
		db:         db,
		classes:    c,
		id:         db.reserve(),
		class:      class,
		path:       path,
		properties: properties,
	}
	db.store(resource)
	return resource, nil
}

func property(name string, kind wire.Type, value any) wire.Property {
	return wire.Property{Name: name, Type: kind, Usage: wire.UsageDefault, Value: value}
}

func resourceProperty(name, class string) wire.Property {
	return wire.Property{
		Name:       name,
		Type:       wire.TypeObject,
		Hint:       wire.HintResourceType,
		HintString: class,
		Usage:      wire.UsageDefault,
	}
}

func setMethod(target Object, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("set: want 2 args, got %d", len(args))
	}
	name, ok := wire.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("set: property name must be a string")
	}
	return nil, target.Set(name, args[1])
}

func getMethod(target Object, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("get: want 1 arg, got %d", len(args))
	}
	name, ok := wire.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("get: property name must be a string")
	}
	value, _ := target.Get(name)
	return value, nil
}

func builtinClasses() []Class {
	return []Class{
		{
			Name: "Object",
			Methods: map[string]Method{
				"set": setMethod,
				"get": getMethod,
			},
		},
		{
			Name:   "Node",
			Parent: "Object",
			Properties: []wire.Property{
				property("pause_mode", wire.TypeInt, int64(0)),
				resourceProperty("script", "Script"),
			},
			Methods: map[string]Method{
				"queue_free": func(target Object, _ []any) (any, error) {
					if node, ok := target.(*Node); ok {
						node.Free()
					}
					return nil, nil
				},
			},
		},
		{
			Name:   "CanvasItem",
			Parent: "Node",
			Properties: []wire.Property{
				property("visible", wire.TypeBool, true),
				property("modulate", wire.TypeColor, wire.Color{R: 1, G: 1, B: 1, A: 1}),
			},
		},
		{
			Name:   "Node2D",
			Parent: "CanvasItem",
			Properties: []wire.Property{
				property("position", wire.TypeVector2, wire.Vector2{}),
				property("rotation", wire.TypeReal, 0.0),
				property("scale", wire.TypeVector2, wire.Vector2{X: 1, Y: 1}),
				property("z_index", wire.TypeInt, int64(0)),
			},
			Methods: map[string]Method{
				"translate": func(target Object, args []any) (any, error) {
					if len(args) != 1 {
						return nil, fmt.Errorf("translate: want 1 arg")
					}
					offset, ok := args[0].(wire.Vector2)
					if !ok {
						return nil, fmt.Errorf("translate: want Vector2, got %s", wire.Describe(args[0]))
					}
					current, _ := target.Get("position")
					position, _ := current.(wire.Vector2)
					return nil, target.Set("position", wire.Vector2{X: position.X + offset.X, Y: position.Y + offset.Y})
				},
			},
		},
		{
			Name:   "Sprite",
			Parent: "Node2D",
			Properties: []wire.Property{
				resourceProperty("texture", "Texture"),
				property("centered", wire.TypeBool, true),
				property("offset", wire.TypeVector2, wire.Vector2{}),
				property("flip_h", wire.TypeBool, false),
			},
		},
		{
			Name:   "Camera2D",
			Parent: "Node2D",
			Properties: []wire.Property{
				property("offset", wire.TypeVector2, wire.Vector2{}),
				property("zoom", wire.TypeVector2, wire.Vector2{X: 1, Y: 1}),
				property("current", wire.TypeBool, false),
			},
		},
		{
			Name:   "KinematicBody2D",
			Parent: "Node2D",
			Properties: []wire.Property{
				property("collision_layer", wire.TypeInt, int64(1)),
			},
		},
		{
			Name:   "Control",
			Parent: "CanvasItem",
			Properties: []wire.Property{
				property("rect_position", wire.TypeVector2, wire.Vector2{}),
				property("rect_size", wire.TypeVector2, wire.Vector2{}),
			},
		},
		{
			Name:   "Label",
			Parent: "Control",
			Properties: []wire.Property{
				{Name: "text", Type: wire.TypeString, Hint: wire.HintMultilineText, Usage: wire.UsageDefault, Value: ""},
			},
		},
		{
			Name:   "Button",
			Parent: "Control",
			Properties: []wire.Property{
				property("text", wire.TypeString, ""),
				property("disabled", wire.TypeBool, false),
			},
		},
		{
			Name:   "Spatial",
			Parent: "Node",
			Properties: []wire.Property{
				property("transform", wire.TypeTransform3D, wire.Identity3D),
				property("visible", wire.TypeBool, true),
			},
		},
		{
			Name:   "Camera",
			Parent: "Spatial",
			Properties: []wire.Property{
				property("fov", wire.TypeReal, 70.0),
				property("size", wire.TypeReal, 1.0),
				property("near", wire.TypeReal, 0.05),
				property("far", wire.TypeReal, 100.0),
				property("projection", wire.TypeInt, int64(0)),
			},
		},
		{
			Name:   "Timer",
			Parent: "Node",
			Properties: []wire.Property{
				property("wait_time", wire.TypeReal, 1.0),
				property("one_shot", wire.TypeBool, false),
				property("autostart", wire.TypeBool, false),
			},
		},
		{Name: "Resource", Parent: "Object", Resource: true, Properties: []wire.Property{
			property("resource_name", wire.TypeString, ""),
		}},
		{Name: "Texture", Parent: "Resource", Resource: true, Properties: []wire.Property{
			property("width", wire.TypeInt, int64(0)),
			property("height", wire.TypeInt, int64(0)),
			property("format", wire.TypeString, "RGBA8"),
		}},
		{Name: "Script", Parent: "Resource", Resource: true, Properties: []wire.Property{
			{Name: "source_code", Type: wire.TypeString, Hint: wire.HintMultilineText, Usage: wire.UsageStorage, Value: ""},
			// exports lists [name, type, default] triples declared by
			// the script; attaching the script defines them on the
			// node as script variables.
			property("exports", wire.TypeArray, []any{}),
		}},
		{Name: "PackedScene", Parent: "Resource", Resource: true},
		{Name: "Material", Parent: "Resource", Resource: true, Properties: []wire.Property{
			property("albedo", wire.TypeColor, wire.Color{R: 1, G: 1, B: 1, A: 1}),
		}},
	}
}
