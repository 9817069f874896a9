// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/testutil"
	"github.com/bureau-foundation/liveinspect/wire"
)

func newTestScript(t *testing.T, input string) (*script, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	s, err := newScript(slog.New(slog.NewTextHandler(io.Discard, nil)), strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("newScript: %v", err)
	}
	t.Cleanup(s.close)
	return s, &out
}

func TestScriptRunsWithoutBreakpoints(t *testing.T) {
	s, out := newTestScript(t, "")
	for range 3 {
		s.runFrame()
	}
	position, _ := s.player.Get("position")
	if vector, _ := position.(wire.Vector2); vector.X != 3 {
		t.Errorf("player x = %v, want 3", vector.X)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected console output:\n%s", out.String())
	}
}

func TestScriptStepEntersCallAndNextStaysInFunction(t *testing.T) {
	s, out := newTestScript(t, "s\nbt\nn\nc\n")
	s.probe.SetBreakpoint(mainScript, 4, true)
	s.runFrame()

	text := out.String()
	for _, want := range []string{
		"Reason: 'Breakpoint'",
		"*Frame 0 - res://main.gd:4 in function '_process'",
		"*Frame 0 - res://player.gd:10 in function 'move'",
		" Frame 1 - res://main.gd:4 in function '_process'",
		"*Frame 0 - res://player.gd:11 in function 'move'",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if got := strings.Count(text, "debug> "); got != 3 {
		t.Errorf("prompts = %d, want 3:\n%s", got, text)
	}
}

func TestScriptFinishReturnsToCaller(t *testing.T) {
	s, out := newTestScript(t, "fin\nlv\nc\n")
	s.probe.SetBreakpoint(playerScript, 10, true)
	s.runFrame()

	text := out.String()
	if !strings.Contains(text, "*Frame 0 - res://main.gd:5 in function '_process'") {
		t.Errorf("finish did not stop in the caller:\n%s", text)
	}
	if !strings.Contains(text, "speed: 2") {
		t.Errorf("caller locals:\n%s", text)
	}
	if got := strings.Count(text, "debug> "); got != 2 {
		t.Errorf("prompts = %d, want 2:\n%s", got, text)
	}
}

func TestScriptRunStopsOnQuit(t *testing.T) {
	s, _ := newTestScript(t, "q\n")
	s.probe.SetBreakpoint(mainScript, 3, true)

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	done := make(chan error, 1)
	go func() { done <- s.run(context.Background(), fake, 60, 0) }()

	testutil.Eventually(t, 5*time.Second, func() bool { return fake.Pending() > 0 }, "frame ticker registered")
	deadline := time.After(5 * time.Second)
	for {
		fake.Advance(time.Second / 60)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !s.probe.QuitRequested() || s.frame != 1 {
				t.Errorf("quit = %v after %d frames", s.probe.QuitRequested(), s.frame)
			}
			return
		case <-deadline:
			t.Fatal("run did not return after quit")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
