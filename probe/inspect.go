// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

func (p *Probe) handleInspect(message wire.Message) error {
	if err := message.Arity(1); err != nil {
		return err
	}
	object, err := p.resolveObject(message, 0)
	if err != nil {
		return err
	}
	p.send(wire.InspectReply, object.ID(), object.Class(), inspectProperties(object))
	return nil
}

// inspectProperties lists the editor-visible properties of object as
// (name, type, hint, hint_string, usage, value) tuples.
func inspectProperties(object scenegraph.Object) []any {
	var properties []any
	for _, property := range object.PropertyList() {
		if property.Usage&wire.UsageEditor == 0 {
			continue
		}
		property.Value = encodeValue(property.Value)
		properties = append(properties, property.Tuple())
	}
	return properties
}

func (p *Probe) handleSetProperty(message wire.Message) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	object, err := p.resolveObject(message, 0)
	if err != nil {
		return err
	}
	name, err := message.Text(1)
	if err != nil {
		return err
	}
	value, _ := message.Value(2)
	return p.assign(object, name, value)
}

// assign sets a property, loading resources for resource-typed slots
// given by path and attaching scripts to nodes.
func (p *Probe) assign(object scenegraph.Object, name string, value any) error {
	path, isPath := value.(wire.ResourcePath)
	if !isPath {
		if text, ok := value.(string); ok && strings.HasPrefix(text, "res://") && p.isResourceSlot(object, name) {
			path, isPath = wire.ResourcePath(text), true
		}
	}
	if !isPath {
		return object.Set(name, value)
	}
	resource, err := p.loader.Load(path)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", object.Class(), name, err)
	}
	if node, ok := object.(*scenegraph.Node); ok && name == "script" {
		node.AttachScript(resource)
		return nil
	}
	return object.Set(name, resource.Path())
}

func (p *Probe) isResourceSlot(object scenegraph.Object, name string) bool {
	for _, property := range object.PropertyList() {
		if property.Name == name {
			return property.Type == wire.TypeObject
		}
	}
	return false
}

func (p *Probe) handleSaveNode(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	object, err := p.resolveObject(message, 0)
	if err != nil {
		return err
	}
	node, ok := object.(*scenegraph.Node)
	if !ok {
		return fmt.Errorf("save_node: object %v is a %s, not a node", object.ID(), object.Class())
	}
	target, err := message.Text(1)
	if err != nil {
		return err
	}
	if strings.HasPrefix(target, "res://") {
		err = p.loader.SaveScene(node, wire.ResourcePath(target))
	} else {
		err = scenegraph.SaveSceneFile(node, target)
	}
	if err != nil {
		return err
	}
	p.logger.Info("saved branch as scene", "node", string(node.Path()), "path", target)
	return nil
}

// videoMemory lists loaded resources holding video memory as flat
// (path, type, format, bytes) rows.
func (p *Probe) videoMemory() []any {
	var rows []any
	for _, resource := range p.loader.Resources() {
		bytes, format := resource.VideoMemory()
		if bytes == 0 {
			continue
		}
		rows = append(rows, string(resource.Path()), resource.Class(), format, bytes)
	}
	return rows
}
