// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"fmt"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Properties is an ordered set of declared properties with values.
type Properties struct {
	list  []wire.Property
	index map[string]int
}

// Define declares a property, or replaces the declaration and value of
// an existing one.
func (p *Properties) Define(property wire.Property) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[property.Name]; ok {
		p.list[i] = property
		return
	}
	p.index[property.Name] = len(p.list)
	p.list = append(p.list, property)
}

// Undefine removes a declaration.
func (p *Properties) Undefine(name string) {
	i, ok := p.index[name]
	if !ok {
		return
	}
	p.list = append(p.list[:i], p.list[i+1:]...)
	delete(p.index, name)
	for j := i; j < len(p.list); j++ {
		p.index[p.list[j].Name] = j
	}
}

// Get returns the value of a declared property.
func (p *Properties) Get(name string) (any, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.list[i].Value, true
}

// Info returns the declaration of a property.
func (p *Properties) Info(name string) (wire.Property, bool) {
	i, ok := p.index[name]
	if !ok {
		return wire.Property{}, false
	}
	return p.list[i], true
}

// Set assigns a declared property.
func (p *Properties) Set(name string, value any) error {
	i, ok := p.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	p.list[i].Value = value
	return nil
}

// List returns a copy of the declarations in order.
func (p *Properties) List() []wire.Property {
	return append([]wire.Property(nil), p.list...)
}

// Len returns the number of declared properties.
func (p *Properties) Len() int { return len(p.list) }

func (p *Properties) clone() Properties {
	var out Properties
	for _, property := range p.list {
		property.Value = cloneValue(property.Value)
		out.Define(property)
	}
	return out
}

// cloneValue copies containers so duplicated objects do not share
// mutable arrays or dictionaries.
func cloneValue(v any) any {
	switch value := v.(type) {
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	}
	return v
}
