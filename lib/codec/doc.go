// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR configuration for the live
// inspection protocol and the packed-scene file format.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which is what
// makes re-saving an unchanged scene byte-identical.
//
// Dynamic values decode with a fixed set of Go types: integers become
// int64, maps become map[string]any, arrays become []any. Protocol
// handle types (object ids, node paths, vectors) are carried as CBOR
// tags; the wire package registers them into a TagSet and builds a
// Codec from it:
//
//	tags := codec.NewTagSet()
//	codec.MustRegister(tags, reflect.TypeOf(ObjectID(0)), 47001)
//	c, err := codec.New(tags)
//	data, err := c.Marshal(value)
//
// Diagnose renders undecodable payloads in diagnostic notation for
// logs.
//
// Struct types in this module carry `cbor` tags only; none of them are
// ever serialized as JSON.
package codec
