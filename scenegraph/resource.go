// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"fmt"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Resource is shared data addressed by path.
type Resource struct {
	db      *ObjectDB
	classes *ClassDB

	id         wire.ObjectID
	class      string
	path       wire.ResourcePath
	properties Properties
}

func (r *Resource) ID() wire.ObjectID       { return r.id }
func (r *Resource) Class() string           { return r.class }
func (r *Resource) Path() wire.ResourcePath { return r.path }

// SetPath changes the path the resource is addressed by.
func (r *Resource) SetPath(path wire.ResourcePath) { r.path = path }

func (r *Resource) PropertyList() []wire.Property  { return r.properties.List() }
func (r *Resource) Properties() *Properties        { return &r.properties }
func (r *Resource) Get(name string) (any, bool)    { return r.properties.Get(name) }
func (r *Resource) Set(name string, value any) error { return r.properties.Set(name, value) }

// Call invokes a class method on the resource.
func (r *Resource) Call(method string, args []any) (any, error) {
	fn, ok := r.classes.Method(r.class, method)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, r.class, method)
	}
	return fn(r, args)
}

// Exports returns the script variables declared by a Script resource.
// Malformed entries are skipped.
func (r *Resource) Exports() []wire.Property {
	raw, _ := r.properties.Get("exports")
	entries, _ := wire.AsArray(raw)
	var exports []wire.Property
	for _, entry := range entries {
		triple, ok := entry.([]any)
		if !ok || len(triple) != 3 {
			continue
		}
		name, nameOK := wire.AsString(triple[0])
		kind, kindOK := wire.AsInt(triple[1])
		if !nameOK || !kindOK {
			continue
		}
		exports = append(exports, wire.Property{
			Name:  name,
			Type:  wire.Type(kind),
			Usage: wire.UsageDefault | wire.UsageScriptVariable,
			Value: cloneValue(triple[2]),
		})
	}
	return exports
}

var bytesPerPixel = map[string]float64{
	"L8":    1,
	"LA8":   2,
	"RGB8":  3,
	"RGBA8": 4,
	"RGBAH": 8,
	"DXT1":  0.5,
	"DXT5":  1,
}

// VideoMemory returns the resource's estimated video memory footprint
// and pixel format. Non-texture resources report zero.
func (r *Resource) VideoMemory() (int64, string) {
	if !r.classes.IsA(r.class, "Texture") {
		return 0, ""
	}
	width, _ := r.properties.Get("width")
	height, _ := r.properties.Get("height")
	format, _ := r.properties.Get("format")
	w, _ := wire.AsInt(width)
	h, _ := wire.AsInt(height)
	name, _ := wire.AsString(format)
	perPixel, ok := bytesPerPixel[name]
	if !ok {
		perPixel = 4
	}
	return int64(float64(w*h) * perPixel), name
}
