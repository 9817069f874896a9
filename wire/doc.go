// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the live inspection protocol's value model
// and message framing.
//
// A message is a name and an ordered argument list. On the wire the
// payload is a CBOR sequence: the name as a text string, the argument
// count as an integer, then exactly that many values. Each payload is
// framed with a 5-byte header (1 byte flags, 4 bytes big-endian
// length); flag bit 0 marks an LZ4-compressed payload, in which case
// the payload begins with its 4-byte uncompressed length.
//
// Values are dynamic: nil, bool, int64, float64, string, []byte,
// []any, map[string]any, and the handle and math types declared in
// values.go, each carried as a CBOR tag so they decode back into the
// same Go type when the target is any.
//
// Message names are declared in names.go. Argument accessors on
// [Message] return errors wrapping [ErrArgument]; receivers treat
// those as protocol violations (warn and skip the message), while a
// framing or CBOR error ends the session.
package wire
