// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/liveinspect/lib/compress"
	"github.com/bureau-foundation/liveinspect/wire"
)

// ErrCorruptScene is returned when a scene file fails its magic,
// version, or digest check.
var ErrCorruptScene = errors.New("corrupt scene file")

// PackedScene is the serialized form of a node subtree. It is
// immutable once built; instancing copies out of it.
type PackedScene struct {
	root packedNode
}

type packedNode struct {
	Name       string           `cbor:"name"`
	Class      string           `cbor:"class"`
	SceneFile  string           `cbor:"scene_file,omitempty"`
	Script     wire.ResourcePath `cbor:"script,omitempty"`
	Properties []packedProperty `cbor:"properties,omitempty"`
	Children   []packedNode     `cbor:"children,omitempty"`
}

type packedProperty struct {
	_     struct{} `cbor:",toarray"`
	Name  string
	Value any
}

// Scene file layout: magic, version, 32-byte keyed digest of the CBOR
// body, then the zstd-compressed body.
const (
	sceneMagic   = "LSCN"
	sceneVersion = 1
	sceneHeader  = len(sceneMagic) + 1 + 32

	// maxSceneBody bounds decompression of untrusted files.
	maxSceneBody = 64 << 20
)

var sceneDomainKey = [32]byte{
	'l', 'i', 'v', 'e', 'i', 'n', 's', 'p', 'e', 'c', 't', '.',
	's', 'c', 'e', 'n', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func sceneDigest(body []byte) []byte {
	hasher, err := blake3.NewKeyed(sceneDomainKey[:])
	if err != nil {
		panic("scenegraph: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(body)
	return hasher.Sum(nil)
}

// Pack captures node and its descendants. Properties still at their
// class default are omitted.
func Pack(node *Node) (*PackedScene, error) {
	root, err := packNode(node, true)
	if err != nil {
		return nil, err
	}
	return &PackedScene{root: root}, nil
}

func packNode(node *Node, isRoot bool) (packedNode, error) {
	packed := packedNode{Name: node.name, Class: node.class}
	if !isRoot {
		packed.SceneFile = node.sceneFile
	}
	defaults, err := node.classes.defaults(node.class)
	if err != nil {
		return packedNode{}, err
	}
	for _, property := range node.properties.List() {
		if property.Usage&wire.UsageStorage == 0 {
			continue
		}
		if property.Name == "script" {
			path, _ := property.Value.(wire.ResourcePath)
			packed.Script = path
			continue
		}
		if initial, ok := defaults.Get(property.Name); ok && reflect.DeepEqual(initial, property.Value) {
			continue
		}
		if !wire.IsPlain(property.Value) {
			return packedNode{}, fmt.Errorf("pack %s: property %q holds %s, which cannot be saved",
				node.Path(), property.Name, wire.Describe(property.Value))
		}
		packed.Properties = append(packed.Properties, packedProperty{Name: property.Name, Value: property.Value})
	}
	for _, child := range node.children {
		packedChild, err := packNode(child, false)
		if err != nil {
			return packedNode{}, err
		}
		packed.Children = append(packed.Children, packedChild)
	}
	return packed, nil
}

// RootName returns the name of the packed root node.
func (s *PackedScene) RootName() string { return s.root.Name }

// RootClass returns the class of the packed root node.
func (s *PackedScene) RootClass() string { return s.root.Class }

// Encode serializes the scene into the scene file format. Encoding the
// same scene always yields the same bytes.
func (s *PackedScene) Encode() ([]byte, error) {
	body, err := wire.Codec().Marshal(s.root)
	if err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}
	var out bytes.Buffer
	out.Grow(sceneHeader + len(body)/2)
	out.WriteString(sceneMagic)
	out.WriteByte(sceneVersion)
	out.Write(sceneDigest(body))
	out.Write(compress.Zstd(body))
	return out.Bytes(), nil
}

// DecodeScene parses a scene file, verifying its digest.
func DecodeScene(data []byte) (*PackedScene, error) {
	if len(data) < sceneHeader || string(data[:len(sceneMagic)]) != sceneMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptScene)
	}
	if version := data[len(sceneMagic)]; version != sceneVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptScene, version)
	}
	digest := data[len(sceneMagic)+1 : sceneHeader]
	body, err := compress.UnZstd(data[sceneHeader:], maxSceneBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptScene, err)
	}
	if !bytes.Equal(digest, sceneDigest(body)) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorruptScene)
	}
	var root packedNode
	if err := wire.Codec().Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptScene, err)
	}
	return &PackedScene{root: root}, nil
}

// Instance builds a detached node tree from the scene. Scripts are
// resolved through loader; a nil loader leaves script slots empty.
func (s *PackedScene) Instance(classes *ClassDB, db *ObjectDB, loader *ResourceLoader) (*Node, error) {
	return instancePacked(&s.root, classes, db, loader)
}

func instancePacked(packed *packedNode, classes *ClassDB, db *ObjectDB, loader *ResourceLoader) (*Node, error) {
	node, err := classes.Instance(db, packed.Class, packed.Name)
	if err != nil {
		return nil, err
	}
	node.sceneFile = packed.SceneFile
	if packed.Script != "" && loader != nil {
		script, err := loader.Load(packed.Script)
		if err != nil {
			node.Free()
			return nil, fmt.Errorf("node %q: loading script: %w", packed.Name, err)
		}
		node.AttachScript(script)
	}
	for _, property := range packed.Properties {
		if err := node.properties.Set(property.Name, cloneValue(property.Value)); err != nil {
			// A property the class no longer declares is kept so
			// a resave does not lose it.
			node.properties.Define(wire.Property{
				Name:  property.Name,
				Type:  wire.TypeOf(property.Value),
				Usage: wire.UsageDefault,
				Value: cloneValue(property.Value),
			})
		}
	}
	for i := range packed.Children {
		child, err := instancePacked(&packed.Children[i], classes, db, loader)
		if err != nil {
			node.Free()
			return nil, err
		}
		if err := node.AddChild(child); err != nil {
			node.Free()
			return nil, err
		}
	}
	return node, nil
}
