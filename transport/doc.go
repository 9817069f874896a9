// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries framed protocol messages between the
// inspector and one probe over a reliable byte stream.
//
// The inspector side is a [Server]: [Listen] binds the configured port,
// trying consecutive ports when one is taken, and [Server.Poll] is a
// non-blocking step called from the inspector's tick. Poll accepts a
// pending connection when idle and closes any additional pending
// connection while one is active, so a second game instance never
// disturbs the session in progress.
//
// Each connection is a [Conn]. A reader goroutine decodes frames into a
// byte-bounded [Inbox]; exceeding the inbox limit drops the connection
// with [ErrInboxOverflow]. A writer goroutine drains the outbound queue
// in order. The owning loop stays single-threaded: it calls
// [Conn.Receive] and [Conn.Send], neither of which block.
//
// The probe side uses [Dial]. [Pipe] returns a connected in-memory
// pair for tests and single-process demos.
package transport
