// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"errors"
	"sync"

	"github.com/bureau-foundation/liveinspect/wire"
)

var (
	// ErrNotFound is returned when a path, id, or resource does not
	// resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnknownClass is returned when instancing an unregistered
	// class.
	ErrUnknownClass = errors.New("unknown class")

	// ErrUnknownProperty is returned when setting a property the
	// object does not declare.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrUnknownMethod is returned by Call for an undeclared method.
	ErrUnknownMethod = errors.New("unknown method")
)

// Object is anything registered in the ObjectDB.
type Object interface {
	ID() wire.ObjectID
	Class() string

	// PropertyList returns the inspectable properties in display
	// order.
	PropertyList() []wire.Property
	Get(name string) (any, bool)
	Set(name string, value any) error
}

// ObjectDB assigns stable ids and resolves them back to live objects.
// Reads happen from the monitor sampler as well as the game loop, so
// access is locked.
type ObjectDB struct {
	mu      sync.RWMutex
	last    wire.ObjectID
	objects map[wire.ObjectID]Object
}

// NewObjectDB returns an empty database. The first id issued is 1.
func NewObjectDB() *ObjectDB {
	return &ObjectDB{objects: make(map[wire.ObjectID]Object)}
}

func (db *ObjectDB) reserve() wire.ObjectID {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.last++
	return db.last
}

func (db *ObjectDB) store(object Object) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.objects[object.ID()] = object
}

// Get resolves id.
func (db *ObjectDB) Get(id wire.ObjectID) (Object, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	object, ok := db.objects[id]
	return object, ok
}

// Remove invalidates id. The id is not reissued.
func (db *ObjectDB) Remove(id wire.ObjectID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.objects, id)
}

// Len returns the number of live objects.
func (db *ObjectDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.objects)
}

// Count returns how many live objects satisfy match.
func (db *ObjectDB) Count(match func(Object) bool) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	count := 0
	for _, object := range db.objects {
		if match(object) {
			count++
		}
	}
	return count
}
