// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Type is the declared semantic type of a property slot.
type Type int

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeReal
	TypeString
	TypeVector2
	TypeRect2
	TypeVector3
	TypeTransform2D
	TypeColor
	TypeTransform3D
	TypeNodePath
	TypeRID
	TypeObject
	TypeDictionary
	TypeArray
)

var typeNames = [...]string{
	TypeNil:         "Nil",
	TypeBool:        "bool",
	TypeInt:         "int",
	TypeReal:        "float",
	TypeString:      "String",
	TypeVector2:     "Vector2",
	TypeRect2:       "Rect2",
	TypeVector3:     "Vector3",
	TypeTransform2D: "Transform2D",
	TypeColor:       "Color",
	TypeTransform3D: "Transform",
	TypeNodePath:    "NodePath",
	TypeRID:         "RID",
	TypeObject:      "Object",
	TypeDictionary:  "Dictionary",
	TypeArray:       "Array",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// TypeOf returns the slot type matching a value's dynamic type.
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return TypeNil
	case bool:
		return TypeBool
	case int, int32, int64:
		return TypeInt
	case float32, float64:
		return TypeReal
	case string:
		return TypeString
	case Vector2:
		return TypeVector2
	case Rect2:
		return TypeRect2
	case Vector3:
		return TypeVector3
	case Transform2D:
		return TypeTransform2D
	case Color:
		return TypeColor
	case Transform3D:
		return TypeTransform3D
	case NodePath:
		return TypeNodePath
	case RID:
		return TypeRID
	case ObjectID, ResourcePath:
		return TypeObject
	case map[string]any:
		return TypeDictionary
	case []any, []float64:
		return TypeArray
	}
	return TypeNil
}

// Hint refines how an editor should present a property.
type Hint int

const (
	HintNone Hint = iota
	HintRange
	HintEnum
	HintFile
	HintResourceType
	HintMultilineText
	HintColorNoAlpha
	HintObjectID
)

// Usage is a bit set of property usage flags.
type Usage int

const (
	UsageStorage Usage = 1 << iota
	UsageEditor
	UsageNetwork
	UsageCategory
	UsageScriptVariable

	UsageDefault = UsageStorage | UsageEditor | UsageNetwork
)

// Property is one entry of an inspect_object reply.
type Property struct {
	Name       string
	Type       Type
	Hint       Hint
	HintString string
	Usage      Usage
	Value      any
}

// Tuple returns the 6-element wire form (name, type, hint,
// hint_string, usage, value).
func (p Property) Tuple() []any {
	return []any{p.Name, int64(p.Type), int64(p.Hint), p.HintString, int64(p.Usage), p.Value}
}

// ParseProperty reads the 6-element wire form.
func ParseProperty(v any) (Property, error) {
	tuple, ok := v.([]any)
	if !ok || len(tuple) != 6 {
		return Property{}, fmt.Errorf("%w: property must be a 6-element array, got %s", ErrArgument, Describe(v))
	}
	name, nameOK := AsString(tuple[0])
	kind, kindOK := AsInt(tuple[1])
	hint, hintOK := AsInt(tuple[2])
	hintString, hintStringOK := AsString(tuple[3])
	usage, usageOK := AsInt(tuple[4])
	if !nameOK || !kindOK || !hintOK || !hintStringOK || !usageOK {
		return Property{}, fmt.Errorf("%w: malformed property tuple %v", ErrArgument, tuple[:5])
	}
	return Property{
		Name:       name,
		Type:       Type(kind),
		Hint:       Hint(hint),
		HintString: hintString,
		Usage:      Usage(usage),
		Value:      tuple[5],
	}, nil
}
