// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] bound channel waits with a
// wall-clock timeout so a broken test fails instead of hanging.
// [Eventually] polls a condition for tests that observe goroutine-owned
// state (transport readers, accept loops) from the test goroutine.
// These helpers are the only place tests use real time; everything
// tick-driven uses clock.Fake instead.
//
// All helpers call t.Fatalf on failure.
package testutil
