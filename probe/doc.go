// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe is the game-side half of the debugger channel. A Probe
// is embedded in the running game, attached to one connection to the
// inspector, and driven by the game loop through [Probe.Tick].
//
// Each tick drains decoded requests from the connection and dispatches
// them by name. Structural edits (the live_* messages) are queued and
// applied together at the end of the tick, so the scene tree never
// changes while the game is iterating it. While the game is stopped in
// [Probe.Debug] there is no iteration to protect and edits apply as
// they arrive.
//
// Telemetry flows the other way on cadences read from the injected
// clock: performance monitor vectors, script profile frames (with
// signature announcements ahead of first use), network profile rows,
// and batched output lines.
//
// A Probe is not safe for concurrent use. The game loop owns it, along
// with its [Profiler] and [NetworkProfiler] recorders.
package probe
