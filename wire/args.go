// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

func (m Message) argError(index int, want string) error {
	if index >= len(m.Args) {
		return fmt.Errorf("%w: %s: missing arg %d (%s), have %d", ErrArgument, m.Name, index, want, len(m.Args))
	}
	return fmt.Errorf("%w: %s: arg %d: want %s, got %s", ErrArgument, m.Name, index, want, Describe(m.Args[index]))
}

// Arity fails unless the message carries at least n arguments.
func (m Message) Arity(n int) error {
	if len(m.Args) < n {
		return fmt.Errorf("%w: %s: want %d args, have %d", ErrArgument, m.Name, n, len(m.Args))
	}
	return nil
}

// Value returns argument index without conversion.
func (m Message) Value(index int) (any, error) {
	if index >= len(m.Args) {
		return nil, m.argError(index, "value")
	}
	return m.Args[index], nil
}

func (m Message) Int(index int) (int64, error) {
	if index < len(m.Args) {
		if v, ok := AsInt(m.Args[index]); ok {
			return v, nil
		}
	}
	return 0, m.argError(index, "int")
}

func (m Message) Float(index int) (float64, error) {
	if index < len(m.Args) {
		if v, ok := AsFloat(m.Args[index]); ok {
			return v, nil
		}
	}
	return 0, m.argError(index, "float")
}

func (m Message) Bool(index int) (bool, error) {
	if index < len(m.Args) {
		if v, ok := m.Args[index].(bool); ok {
			return v, nil
		}
	}
	return false, m.argError(index, "bool")
}

func (m Message) Text(index int) (string, error) {
	if index < len(m.Args) {
		if v, ok := AsString(m.Args[index]); ok {
			return v, nil
		}
	}
	return "", m.argError(index, "string")
}

func (m Message) Array(index int) ([]any, error) {
	if index < len(m.Args) {
		if v, ok := AsArray(m.Args[index]); ok {
			return v, nil
		}
	}
	return nil, m.argError(index, "array")
}

func (m Message) ObjectID(index int) (ObjectID, error) {
	if index < len(m.Args) {
		if v, ok := AsObjectID(m.Args[index]); ok {
			return v, nil
		}
	}
	return 0, m.argError(index, "object id")
}
