// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock supplies the time source for tick-driven components.
//
// The Inspector session and the Probe both run cooperative ticks
// whose behavior depends on elapsed time: refresh intervals for the
// remote tree and the inspected object, the post-edit grace window,
// the per-tick processing budget, and the profiler and monitor
// cadences. All of them read time through a Clock so tests can step
// time explicitly:
//
//	fake := clock.Fake(time.Unix(0, 0))
//	session := inspector.New(inspector.Config{Clock: fake})
//	fake.Advance(250 * time.Millisecond)
//	session.Tick()
//
// Production code uses Real().
package clock
