// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

// Resource is the editor's handle for a resource a remote property
// refers to.
type Resource struct {
	Path  wire.ResourcePath
	Class string
	// Exports are the variables a Script resource declares.
	Exports []wire.Property
}

func (r *Resource) String() string { return string(r.Path) }

// ResourceResolver turns resource paths arriving in remote properties
// into editor handles.
type ResourceResolver interface {
	Resolve(path wire.ResourcePath) (*Resource, error)
}

// PathResolver keeps the path and knows nothing else about the
// resource.
type PathResolver struct{}

func (PathResolver) Resolve(path wire.ResourcePath) (*Resource, error) {
	return &Resource{Path: path}, nil
}

// LoaderResolver resolves paths against the project's resource loader.
// Sub-resource paths ("scene.lscn::3") load their base file first.
type LoaderResolver struct {
	Loader *scenegraph.ResourceLoader
}

func (r LoaderResolver) Resolve(path wire.ResourcePath) (*Resource, error) {
	if base, _, ok := path.Split(); ok {
		var err error
		if strings.HasSuffix(string(base), scenegraph.SceneExtension) {
			_, err = r.Loader.LoadScene(base)
		} else {
			_, err = r.Loader.Load(base)
		}
		if err != nil {
			return nil, err
		}
		return &Resource{Path: path}, nil
	}
	loaded, err := r.Loader.Load(path)
	if err != nil {
		return nil, err
	}
	return &Resource{Path: path, Class: loaded.Class(), Exports: loaded.Exports()}, nil
}

// Proxy is the inspector's local stand-in for a remote object.
type Proxy struct {
	RemoteID wire.ObjectID
	// LocalID is the proxy's id in the inspector's own object
	// numbering.
	LocalID int64
	Class   string

	properties []wire.Property
	values     map[string]any

	// Script is the attached script, when the remote object has one.
	// Its exports appear as placeholder properties until the probe
	// reports real values.
	Script *Resource

	onEdit func(proxy *Proxy, name string, value any)
}

// Properties returns the property list in remote order.
func (p *Proxy) Properties() []wire.Property {
	out := make([]wire.Property, len(p.properties))
	for i, property := range p.properties {
		property.Value = p.values[property.Name]
		out[i] = property
	}
	return out
}

// Property returns one property with its last-known value.
func (p *Proxy) Property(name string) (wire.Property, bool) {
	for _, property := range p.properties {
		if property.Name == name {
			property.Value = p.values[name]
			return property, true
		}
	}
	return wire.Property{}, false
}

// Get returns the last-known value of name.
func (p *Proxy) Get(name string) (any, bool) {
	value, ok := p.values[name]
	return value, ok
}

// Set edits a property: the local value changes immediately and the
// edit is forwarded to the probe.
func (p *Proxy) Set(name string, value any) error {
	if _, ok := p.values[name]; !ok {
		return fmt.Errorf("%s has no property %q", p.Class, name)
	}
	p.values[name] = value
	if p.onEdit != nil {
		p.onEdit(p, name, value)
	}
	return nil
}

// Registry maps remote object ids to proxies.
type Registry struct {
	resolver ResourceResolver
	onEdit   func(proxy *Proxy, name string, value any)

	proxies map[wire.ObjectID]*Proxy
	byLocal map[int64]*Proxy
	nextID  int64
}

func newRegistry(resolver ResourceResolver, onEdit func(*Proxy, string, any)) *Registry {
	return &Registry{
		resolver: resolver,
		onEdit:   onEdit,
		proxies:  make(map[wire.ObjectID]*Proxy),
		byLocal:  make(map[int64]*Proxy),
	}
}

// Lookup returns the proxy for a remote id.
func (r *Registry) Lookup(id wire.ObjectID) (*Proxy, bool) {
	proxy, ok := r.proxies[id]
	return proxy, ok
}

// Local returns the proxy registered under a local id.
func (r *Registry) Local(id int64) (*Proxy, bool) {
	proxy, ok := r.byLocal[id]
	return proxy, ok
}

// Len returns the number of live proxies.
func (r *Registry) Len() int { return len(r.proxies) }

// Clear drops every proxy. Local ids keep counting so a stale
// reference never aliases a new proxy.
func (r *Registry) Clear() {
	clear(r.proxies)
	clear(r.byLocal)
}

// update describes what an inspect reply changed.
type update struct {
	proxy   *Proxy
	created bool
	// reshaped is set when properties were added or removed.
	reshaped bool
	changed  []string
}

// apply folds an inspect_object reply into the registry.
func (r *Registry) apply(message wire.Message) (update, error) {
	if err := message.Arity(3); err != nil {
		return update{}, err
	}
	id, err := message.ObjectID(0)
	if err != nil {
		return update{}, err
	}
	class, err := message.Text(1)
	if err != nil {
		return update{}, err
	}
	tuples, err := message.Array(2)
	if err != nil {
		return update{}, err
	}
	incoming := make([]wire.Property, 0, len(tuples))
	for _, tuple := range tuples {
		property, err := wire.ParseProperty(tuple)
		if err != nil {
			return update{}, fmt.Errorf("%s: %w", message.Name, err)
		}
		incoming = append(incoming, property)
	}

	result := update{}
	proxy, ok := r.proxies[id]
	if !ok {
		r.nextID++
		proxy = &Proxy{RemoteID: id, LocalID: r.nextID, values: make(map[string]any), onEdit: r.onEdit}
		r.proxies[id] = proxy
		r.byLocal[proxy.LocalID] = proxy
		result.created = true
	}
	proxy.Class = class
	result.proxy = proxy

	oldSize := len(proxy.properties)
	proxy.properties = proxy.properties[:0]
	proxy.Script = nil
	added := 0
	for _, property := range incoming {
		if property.Type == wire.TypeObject {
			r.reinterpret(proxy, &property)
		}
		proxy.properties = append(proxy.properties, property)
		old, seen := proxy.values[property.Name]
		switch {
		case !seen:
			added++
			proxy.values[property.Name] = property.Value
		case !reflect.DeepEqual(old, property.Value):
			proxy.values[property.Name] = property.Value
			result.changed = append(result.changed, property.Name)
		}
	}
	added += r.addPlaceholders(proxy)
	for name := range proxy.values {
		if !proxy.hasProperty(name) {
			delete(proxy.values, name)
		}
	}
	result.reshaped = oldSize != len(proxy.properties) || added > 0
	return result, nil
}

// reinterpret resolves object-typed slot values: resource paths become
// resource handles, object ids become id-hint scalars.
func (r *Registry) reinterpret(proxy *Proxy, property *wire.Property) {
	switch value := property.Value.(type) {
	case nil:
	case wire.ObjectID:
		if value == 0 {
			property.Value = nil
			return
		}
		property.Type = wire.TypeInt
		property.Hint = wire.HintObjectID
		property.HintString = "Object"
	case wire.ResourcePath, string:
		path, _ := wire.AsString(value)
		resource, err := r.resolver.Resolve(wire.ResourcePath(path))
		if err != nil {
			resource = &Resource{Path: wire.ResourcePath(path)}
		}
		property.Value = resource
		if property.HintString == "Script" || property.Name == "script" {
			proxy.Script = resource
		}
	}
}

// addPlaceholders declares the attached script's exports that the
// probe did not report, with their default values.
func (r *Registry) addPlaceholders(proxy *Proxy) int {
	if proxy.Script == nil {
		return 0
	}
	added := 0
	for _, export := range proxy.Script.Exports {
		if proxy.hasProperty(export.Name) {
			continue
		}
		export.Usage |= wire.UsageScriptVariable
		proxy.properties = append(proxy.properties, export)
		if _, seen := proxy.values[export.Name]; !seen {
			proxy.values[export.Name] = export.Value
			added++
		}
	}
	return added
}

func (p *Proxy) hasProperty(name string) bool {
	for _, property := range p.properties {
		if property.Name == name {
			return true
		}
	}
	return false
}

// wireValue converts an edited value back to its protocol form.
func wireValue(value any) any {
	if resource, ok := value.(*Resource); ok {
		if resource == nil {
			return nil
		}
		return resource.Path
	}
	return value
}
