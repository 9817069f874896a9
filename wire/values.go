// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bureau-foundation/liveinspect/lib/codec"
)

// ObjectID is the probe's stable handle for a live object. Zero is the
// null object. IDs are assigned monotonically and never reused within
// a session.
type ObjectID uint64

func (id ObjectID) String() string { return "0x" + strconv.FormatUint(uint64(id), 16) }

// RID is an opaque server-side resource handle. RIDs never resolve on
// the remote peer, so live method calls carrying one are dropped.
type RID uint64

// NodePath addresses a node. Absolute paths start with "/"; relative
// paths are resolved against a base node and may contain "..".
type NodePath string

// IsAbsolute reports whether p starts at the tree root.
func (p NodePath) IsAbsolute() bool { return strings.HasPrefix(string(p), "/") }

// Names splits p into its non-empty components.
func (p NodePath) Names() []string {
	var names []string
	for _, name := range strings.Split(string(p), "/") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ResourcePath names a loadable resource, e.g. "res://player.tscn" or
// "res://level.tscn::3" for an embedded sub-resource.
type ResourcePath string

// Split separates a sub-resource reference into its base file and the
// local id after "::". ok is false for a plain path.
func (p ResourcePath) Split() (base ResourcePath, local string, ok bool) {
	before, after, found := strings.Cut(string(p), "::")
	if !found {
		return p, "", false
	}
	return ResourcePath(before), after, true
}

type Vector2 struct {
	_ struct{} `cbor:",toarray"`
	X float64
	Y float64
}

type Vector3 struct {
	_ struct{} `cbor:",toarray"`
	X float64
	Y float64
	Z float64
}

type Color struct {
	_ struct{} `cbor:",toarray"`
	R float64
	G float64
	B float64
	A float64
}

type Rect2 struct {
	_        struct{} `cbor:",toarray"`
	Position Vector2
	Size     Vector2
}

// Transform2D is a 2x3 affine transform: two basis columns and an
// origin.
type Transform2D struct {
	_      struct{} `cbor:",toarray"`
	X      Vector2
	Y      Vector2
	Origin Vector2
}

// Identity2D is the identity 2D transform.
var Identity2D = Transform2D{X: Vector2{X: 1}, Y: Vector2{Y: 1}}

// Scaled2D returns a transform scaling by s with the given origin.
func Scaled2D(s Vector2, origin Vector2) Transform2D {
	return Transform2D{X: Vector2{X: s.X}, Y: Vector2{Y: s.Y}, Origin: origin}
}

// Transform3D is a 3x4 affine transform: three basis columns and an
// origin.
type Transform3D struct {
	_      struct{} `cbor:",toarray"`
	X      Vector3
	Y      Vector3
	Z      Vector3
	Origin Vector3
}

// Identity3D is the identity 3D transform.
var Identity3D = Transform3D{X: Vector3{X: 1}, Y: Vector3{Y: 1}, Z: Vector3{Z: 1}}

// CBOR tag numbers for the protocol types. These are protocol
// constants; renumbering breaks compatibility with running peers.
const (
	tagObjectID     = 47001
	tagNodePath     = 47002
	tagResourcePath = 47003
	tagVector2      = 47004
	tagVector3      = 47005
	tagColor        = 47006
	tagRect2        = 47007
	tagTransform2D  = 47008
	tagTransform3D  = 47009
	tagRID          = 47010
)

var valueCodec *codec.Codec

func init() {
	tags := codec.NewTagSet()
	codec.MustRegister(tags, reflect.TypeOf(ObjectID(0)), tagObjectID)
	codec.MustRegister(tags, reflect.TypeOf(NodePath("")), tagNodePath)
	codec.MustRegister(tags, reflect.TypeOf(ResourcePath("")), tagResourcePath)
	codec.MustRegister(tags, reflect.TypeOf(Vector2{}), tagVector2)
	codec.MustRegister(tags, reflect.TypeOf(Vector3{}), tagVector3)
	codec.MustRegister(tags, reflect.TypeOf(Color{}), tagColor)
	codec.MustRegister(tags, reflect.TypeOf(Rect2{}), tagRect2)
	codec.MustRegister(tags, reflect.TypeOf(Transform2D{}), tagTransform2D)
	codec.MustRegister(tags, reflect.TypeOf(Transform3D{}), tagTransform3D)
	codec.MustRegister(tags, reflect.TypeOf(RID(0)), tagRID)

	var err error
	valueCodec, err = codec.New(tags)
	if err != nil {
		panic("wire: value codec initialization failed: " + err.Error())
	}
}

// Codec returns the tagged codec used for protocol values. Scene files
// use it too so stored property values keep their types.
func Codec() *codec.Codec { return valueCodec }

// IsPlain reports whether v is a protocol value that can cross the
// wire and be interpreted by the remote peer. RIDs and anything outside
// the value model (local pointers, channels, funcs) are not plain.
func IsPlain(v any) bool {
	switch value := v.(type) {
	case nil, bool, string, []byte, float32, float64,
		int, int8, int16, int32, int64, uint8, uint16, uint32,
		ObjectID, NodePath, ResourcePath,
		Vector2, Vector3, Color, Rect2, Transform2D, Transform3D:
		return true
	case []any:
		for _, item := range value {
			if !IsPlain(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range value {
			if !IsPlain(item) {
				return false
			}
		}
		return true
	case []float64, []int64, []string:
		return true
	}
	return false
}

// AsInt converts an integer-valued protocol value.
func AsInt(v any) (int64, bool) {
	switch value := v.(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case int32:
		return int64(value), true
	case uint32:
		return int64(value), true
	case ObjectID:
		return int64(value), true
	}
	return 0, false
}

// AsFloat converts a numeric protocol value; integers are accepted.
func AsFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	}
	if integer, ok := AsInt(v); ok {
		return float64(integer), true
	}
	return 0, false
}

// AsString accepts strings and the string-backed path types.
func AsString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case NodePath:
		return string(value), true
	case ResourcePath:
		return string(value), true
	}
	return "", false
}

// AsArray converts array values, including typed float slices built
// locally before encoding.
func AsArray(v any) ([]any, bool) {
	switch value := v.(type) {
	case []any:
		return value, true
	case []float64:
		out := make([]any, len(value))
		for i, f := range value {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// AsObjectID accepts an ObjectID or a non-negative integer.
func AsObjectID(v any) (ObjectID, bool) {
	switch value := v.(type) {
	case ObjectID:
		return value, true
	case int64:
		if value >= 0 {
			return ObjectID(value), true
		}
	}
	return 0, false
}

// Describe returns a short type label for v, used in warnings.
func Describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
