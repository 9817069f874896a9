// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenegraph is the game-side object model the probe inspects
// and edits: an object database of stable ids, a tree of named nodes,
// resources addressed by path, a class registry for constructing
// nodes by type name, and packed scenes.
//
// Every Node and Resource is registered in an [ObjectDB] on creation
// and receives an id from a monotonic counter that is never reused.
// Cross-object references are stored as ids or resource paths, never
// pointers, so property values can always cross the wire.
//
// A [Tree] owns the root node ("/root") and tracks, for every scene
// file, which nodes in the tree are instances of it. The probe's live
// edit applier uses that index to broadcast an edit made against one
// scene to all of its running instances.
//
// [PackedScene] is the on-disk scene format: deterministic CBOR,
// zstd-compressed, prefixed with a BLAKE3 digest of the uncompressed
// body. Packing the same subtree twice yields identical bytes.
//
// The package is not safe for concurrent mutation. All tree and
// property changes happen on the game loop.
package scenegraph
