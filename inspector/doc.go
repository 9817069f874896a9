// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inspector is the editor side of the debugger channel.
//
// A [Session] owns every session-scoped cache: the remote object
// registry, the scene tree mirror and its fold set, live edit path
// caches and undo history, the profiler signature table, and the
// telemetry histories. It accepts one probe connection through a
// [transport.Server] and is driven by [Session.Tick], which the host
// calls once per editor frame from a single goroutine. Tick drains at
// most one tick budget of incoming messages, dispatches each by name,
// then runs the refresh timers and the camera override.
//
// Nothing in the package locks. Hosts that render from another
// goroutine read snapshots ([Session.Controls], [SceneTree.Rows]) on
// the tick goroutine and hand them over.
//
// Observers implement [View]; embed [NopView] to receive only the
// notifications you need.
package inspector
