// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inspectui is the terminal front end of the live inspector.
// Built on bubbletea, it drives an [inspector.Session] from its own
// frame timer and renders one panel per tab: the remote scene tree,
// the edited object, the debugger, errors, profiler, monitors,
// network profile, video memory, and the output log.
//
// The session's notifications arrive through a [Feed], which is the
// session's [inspector.View]. Session.Tick runs inside Update, so the
// feed and the model share one goroutine and need no locking.
//
// Data flow:
//
//	[probe] <-> [inspector.Session] -- View --> [Feed]
//	                 ^                           |
//	            Tick | (frameMsg)                v
//	               [Model] <- bubbletea event loop
//	                 |
//	          [terminal output]
package inspectui
