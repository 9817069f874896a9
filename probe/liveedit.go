// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/wire"
)

const defaultEditRoot wire.NodePath = "/root"

// keepKey identifies a removed subtree retained for restore. The same
// keep id is reused across every instance an edit was broadcast to.
type keepKey struct {
	root *scenegraph.Node
	id   int64
}

// liveEditor applies structural edits from the inspector to the
// running tree. Edits made to a scene open in the editor are broadcast
// to every live instance of that scene below the edit root.
type liveEditor struct {
	tree   *scenegraph.Tree
	loader *scenegraph.ResourceLoader
	logger *slog.Logger

	root  wire.NodePath
	scene string

	nodePaths map[int64]wire.NodePath
	resPaths  map[int64]wire.ResourcePath
	kept      map[keepKey]*scenegraph.Node
}

func newLiveEditor(tree *scenegraph.Tree, loader *scenegraph.ResourceLoader, logger *slog.Logger) *liveEditor {
	e := &liveEditor{tree: tree, loader: loader, logger: logger}
	e.reset()
	return e
}

// reset forgets the session's path caches and frees kept subtrees.
func (e *liveEditor) reset() {
	for _, node := range e.kept {
		node.Free()
	}
	e.root = defaultEditRoot
	e.scene = ""
	e.nodePaths = map[int64]wire.NodePath{}
	e.resPaths = map[int64]wire.ResourcePath{}
	e.kept = map[keepKey]*scenegraph.Node{}
}

func (e *liveEditor) keptCount() int { return len(e.kept) }

func isLiveEdit(name string) bool {
	switch name {
	case wire.LiveSetRoot, wire.LiveNodePath, wire.LiveResPath,
		wire.LiveNodeProp, wire.LiveNodePropRes, wire.LiveResProp, wire.LiveResPropRes,
		wire.LiveNodeCall, wire.LiveResCall,
		wire.LiveCreateNode, wire.LiveInstanceNode,
		wire.LiveRemoveNode, wire.LiveRemoveAndKeepNode, wire.LiveRestoreNode,
		wire.LiveDuplicateNode, wire.LiveReparentNode:
		return true
	}
	return false
}

func (e *liveEditor) apply(message wire.Message) error {
	switch message.Name {
	case wire.LiveSetRoot:
		return e.setRoot(message)
	case wire.LiveNodePath:
		return e.definePath(message, false)
	case wire.LiveResPath:
		return e.definePath(message, true)
	case wire.LiveNodeProp:
		return e.nodeProp(message, false)
	case wire.LiveNodePropRes:
		return e.nodeProp(message, true)
	case wire.LiveResProp:
		return e.resProp(message, false)
	case wire.LiveResPropRes:
		return e.resProp(message, true)
	case wire.LiveNodeCall:
		return e.nodeCall(message)
	case wire.LiveResCall:
		return e.resCall(message)
	case wire.LiveCreateNode:
		return e.createNode(message)
	case wire.LiveInstanceNode:
		return e.instanceNode(message)
	case wire.LiveRemoveNode:
		return e.removeNode(message)
	case wire.LiveRemoveAndKeepNode:
		return e.removeAndKeep(message)
	case wire.LiveRestoreNode:
		return e.restoreNode(message)
	case wire.LiveDuplicateNode:
		return e.duplicateNode(message)
	case wire.LiveReparentNode:
		return e.reparentNode(message)
	}
	return fmt.Errorf("%w: %s is not a live edit", wire.ErrArgument, message.Name)
}

func (e *liveEditor) setRoot(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	root, err := message.Text(0)
	if err != nil {
		return err
	}
	scene, err := message.Text(1)
	if err != nil {
		return err
	}
	if root == "" {
		root = string(defaultEditRoot)
	}
	e.root = wire.NodePath(root)
	e.scene = scene
	e.logger.Debug("live edit root", "root", root, "scene", scene)
	return nil
}

func (e *liveEditor) definePath(message wire.Message, resource bool) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := message.Text(0)
	if err != nil {
		return err
	}
	id, err := message.Int(1)
	if err != nil {
		return err
	}
	if resource {
		e.resPaths[id] = wire.ResourcePath(path)
	} else {
		e.nodePaths[id] = wire.NodePath(path)
	}
	return nil
}

// targets returns the roots an edit applies to: the instances of the
// edited scene at or below the edit root, or the edit root itself when
// no scene file is bound.
func (e *liveEditor) targets() []*scenegraph.Node {
	base, ok := e.tree.GetNode(e.root)
	if !ok {
		return nil
	}
	if e.scene == "" {
		return []*scenegraph.Node{base}
	}
	var roots []*scenegraph.Node
	for _, instance := range e.tree.Instances(e.scene) {
		if instance == base || base.IsAncestorOf(instance) {
			roots = append(roots, instance)
		}
	}
	return roots
}

// nodePath reads a node path argument: an announced path id, or a
// literal path string.
func (e *liveEditor) nodePath(message wire.Message, index int) (wire.NodePath, error) {
	value, err := message.Value(index)
	if err != nil {
		return "", err
	}
	if id, ok := wire.AsInt(value); ok {
		path, known := e.nodePaths[id]
		if !known {
			return "", fmt.Errorf("%w: %s: node path id %d never announced", wire.ErrArgument, message.Name, id)
		}
		return path, nil
	}
	if text, ok := wire.AsString(value); ok {
		return wire.NodePath(text), nil
	}
	return "", fmt.Errorf("%w: %s: arg %d: want node path, got %s", wire.ErrArgument, message.Name, index, wire.Describe(value))
}

func (e *liveEditor) resPath(message wire.Message, index int) (wire.ResourcePath, error) {
	id, err := message.Int(index)
	if err != nil {
		return "", err
	}
	path, known := e.resPaths[id]
	if !known {
		return "", fmt.Errorf("%w: %s: resource path id %d never announced", wire.ErrArgument, message.Name, id)
	}
	return path, nil
}

// resolve returns, for each target root, the node at path beneath it.
// Roots without such a node are skipped.
func (e *liveEditor) resolve(path wire.NodePath) []*scenegraph.Node {
	var nodes []*scenegraph.Node
	for _, root := range e.targets() {
		node, ok := root.GetNode(path)
		if !ok || slices.Contains(nodes, node) {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func resourceArg(message wire.Message, index int) (wire.ResourcePath, error) {
	value, err := message.Value(index)
	if err != nil {
		return "", err
	}
	switch path := value.(type) {
	case wire.ResourcePath:
		return path, nil
	case string:
		return wire.ResourcePath(path), nil
	}
	return "", fmt.Errorf("%w: %s: arg %d: want resource path, got %s", wire.ErrArgument, message.Name, index, wire.Describe(value))
}

// setResource assigns a loaded resource to an object slot. A script
// slot on a node attaches the script.
func setResource(object scenegraph.Object, name string, resource *scenegraph.Resource) error {
	if node, ok := object.(*scenegraph.Node); ok && name == "script" {
		node.AttachScript(resource)
		return nil
	}
	return object.Set(name, resource.Path())
}

func (e *liveEditor) nodeProp(message wire.Message, isResource bool) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	property, err := message.Text(1)
	if err != nil {
		return err
	}
	var resource *scenegraph.Resource
	value, _ := message.Value(2)
	if isResource {
		resourcePath, err := resourceArg(message, 2)
		if err != nil {
			return err
		}
		if resource, err = e.loader.Load(resourcePath); err != nil {
			return fmt.Errorf("%s %s: %w", message.Name, property, err)
		}
	}
	var failures []string
	for _, node := range e.resolve(path) {
		if resource != nil {
			err = setResource(node, property, resource)
		} else {
			err = node.Set(property, value)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", node.Path(), err))
		}
	}
	return joinFailures(message, failures)
}

func (e *liveEditor) resProp(message wire.Message, isResource bool) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	path, err := e.resPath(message, 0)
	if err != nil {
		return err
	}
	property, err := message.Text(1)
	if err != nil {
		return err
	}
	target, ok := e.loader.Lookup(path)
	if !ok {
		// Resources the game never loaded have nothing to update.
		return nil
	}
	if !isResource {
		value, _ := message.Value(2)
		return target.Set(property, value)
	}
	resourcePath, err := resourceArg(message, 2)
	if err != nil {
		return err
	}
	resource, err := e.loader.Load(resourcePath)
	if err != nil {
		return fmt.Errorf("%s %s: %w", message.Name, property, err)
	}
	return setResource(target, property, resource)
}

// callArgs validates method arguments. RIDs and values without a wire
// form cannot be passed to a call.
func callArgs(message wire.Message, from int) ([]any, error) {
	args := message.Args[from:]
	for i, arg := range args {
		if !wire.IsPlain(arg) {
			return nil, fmt.Errorf("%w: %s: call arg %d is %s", wire.ErrArgument, message.Name, i, wire.Describe(arg))
		}
	}
	return args, nil
}

func (e *liveEditor) nodeCall(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	method, err := message.Text(1)
	if err != nil {
		return err
	}
	args, err := callArgs(message, 2)
	if err != nil {
		return err
	}
	var failures []string
	for _, node := range e.resolve(path) {
		if _, err := node.Call(method, args); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", node.Path(), err))
		}
	}
	return joinFailures(message, failures)
}

func (e *liveEditor) resCall(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := e.resPath(message, 0)
	if err != nil {
		return err
	}
	method, err := message.Text(1)
	if err != nil {
		return err
	}
	args, err := callArgs(message, 2)
	if err != nil {
		return err
	}
	target, ok := e.loader.Lookup(path)
	if !ok {
		return nil
	}
	_, err = target.Call(method, args)
	return err
}

func (e *liveEditor) createNode(message wire.Message) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	parentPath, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	class, err := message.Text(1)
	if err != nil {
		return err
	}
	name, err := message.Text(2)
	if err != nil {
		return err
	}
	if !e.tree.Classes().Has(class) {
		return fmt.Errorf("create %q: %w: %s", name, scenegraph.ErrUnknownClass, class)
	}
	for _, parent := range e.resolve(parentPath) {
		node, err := e.tree.Classes().Instance(e.tree.DB(), class, name)
		if err != nil {
			return fmt.Errorf("create %q: %w", name, err)
		}
		if err := parent.AddChild(node); err != nil {
			node.Free()
			return err
		}
	}
	return nil
}

func (e *liveEditor) instanceNode(message wire.Message) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	parentPath, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	scenePath, err := resourceArg(message, 1)
	if err != nil {
		return err
	}
	name, err := message.Text(2)
	if err != nil {
		return err
	}
	if _, err := e.loader.LoadScene(scenePath); err != nil {
		return fmt.Errorf("instance %q: %w", name, err)
	}
	for _, parent := range e.resolve(parentPath) {
		node, err := e.loader.InstanceScene(scenePath)
		if err != nil {
			return err
		}
		node.Rename(name)
		if err := parent.AddChild(node); err != nil {
			node.Free()
			return err
		}
	}
	return nil
}

func (e *liveEditor) removeNode(message wire.Message) error {
	if err := message.Arity(1); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	for _, node := range e.resolve(path) {
		if node == e.tree.Root() {
			continue
		}
		node.Free()
	}
	return nil
}

func (e *liveEditor) removeAndKeep(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	keepID, err := message.Int(1)
	if err != nil {
		return err
	}
	for _, root := range e.targets() {
		node, ok := root.GetNode(path)
		if !ok || node.Parent() == nil {
			continue
		}
		if err := node.Parent().RemoveChild(node); err != nil {
			return err
		}
		key := keepKey{root: root, id: keepID}
		if previous, ok := e.kept[key]; ok {
			previous.Free()
		}
		e.kept[key] = node
	}
	return nil
}

func (e *liveEditor) restoreNode(message wire.Message) error {
	if err := message.Arity(3); err != nil {
		return err
	}
	keepID, err := message.Int(0)
	if err != nil {
		return err
	}
	parentPath, err := e.nodePath(message, 1)
	if err != nil {
		return err
	}
	index, err := message.Int(2)
	if err != nil {
		return err
	}
	for _, root := range e.targets() {
		key := keepKey{root: root, id: keepID}
		node, ok := e.kept[key]
		if !ok {
			continue
		}
		parent, ok := root.GetNode(parentPath)
		if !ok {
			continue
		}
		if err := parent.AddChildAt(node, int(index)); err != nil {
			return err
		}
		delete(e.kept, key)
	}
	return nil
}

func (e *liveEditor) duplicateNode(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	name, err := message.Text(1)
	if err != nil {
		return err
	}
	for _, node := range e.resolve(path) {
		parent := node.Parent()
		if parent == nil {
			continue
		}
		duplicate := node.Duplicate()
		duplicate.Rename(name)
		if err := parent.AddChild(duplicate); err != nil {
			duplicate.Free()
			return err
		}
	}
	return nil
}

func (e *liveEditor) reparentNode(message wire.Message) error {
	if err := message.Arity(4); err != nil {
		return err
	}
	path, err := e.nodePath(message, 0)
	if err != nil {
		return err
	}
	newParentPath, err := e.nodePath(message, 1)
	if err != nil {
		return err
	}
	name, err := message.Text(2)
	if err != nil {
		return err
	}
	index, err := message.Int(3)
	if err != nil {
		return err
	}
	var failures []string
	for _, root := range e.targets() {
		node, ok := root.GetNode(path)
		if !ok || node.Parent() == nil {
			continue
		}
		newParent, ok := root.GetNode(newParentPath)
		if !ok {
			continue
		}
		if newParent == node || node.IsAncestorOf(newParent) {
			failures = append(failures, fmt.Sprintf("%s: cannot move under itself", node.Path()))
			continue
		}
		oldParent, oldIndex := node.Parent(), node.Index()
		if err := oldParent.RemoveChild(node); err != nil {
			return err
		}
		node.Rename(name)
		if err := newParent.AddChildAt(node, int(index)); err != nil {
			oldParent.AddChildAt(node, oldIndex)
			failures = append(failures, fmt.Sprintf("%s: %v", node.Path(), err))
		}
	}
	return joinFailures(message, failures)
}

func joinFailures(message wire.Message, failures []string) error {
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", message.Name, strings.Join(failures, "; "))
}
