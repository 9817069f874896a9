// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/liveinspect/wire"
)

func TestProfilerClampsFunctionLimit(t *testing.T) {
	profiler := newProfiler()
	for _, tc := range []struct{ requested, want int }{
		{0, MinProfileFunctions},
		{100, 100},
		{100000, MaxProfileFunctions},
	} {
		profiler.Start(tc.requested)
		if got := profiler.MaxFunctions(); got != tc.want {
			t.Errorf("Start(%d): MaxFunctions = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestProfilerIgnoresRecordsWhenStopped(t *testing.T) {
	profiler := newProfiler()
	profiler.Record("res://a.gd::1::f", 1, time.Millisecond, time.Millisecond)
	if len(profiler.frame) != 0 {
		t.Fatal("record accepted while stopped")
	}
}

func TestProfileFrameAnnouncesSignaturesOnce(t *testing.T) {
	h := newHarness(t)
	h.deliver(wire.NewMessage(wire.StartProfiling, int64(16)))
	h.tick()
	if empty := h.expect(wire.ProfileFrame); empty.Args[wire.ProfileFunctionCount] != int64(0) {
		t.Fatalf("first frame has %v functions", empty.Args[wire.ProfileFunctionCount])
	}

	profiler := h.probe.Profiler()
	profiler.SetFrameTimes(FrameTimes{Frame: 16 * time.Millisecond, Process: 4 * time.Millisecond})
	profiler.Record("res://player.gd::10::_process", 1, 3*time.Millisecond, 2*time.Millisecond)
	profiler.Record("res://ai.gd::4::think", 2, 5*time.Millisecond, 5*time.Millisecond)
	profiler.AddCategory(Category{Name: "physics", Items: []CategoryItem{{Name: "step", Self: time.Millisecond}}})
	h.tick()

	// Highest total first, so think gets signature 1.
	sig := h.expect(wire.ProfileSig)
	if sig.Args[0] != "res://ai.gd::4::think" || sig.Args[1] != int64(1) {
		t.Fatalf("first signature = %v", sig.Args)
	}
	h.expect(wire.ProfileSig)
	frame := h.expect(wire.ProfileFrame)
	if frame.Args[wire.ProfileFrameNumber] != h.probe.Frame() {
		t.Errorf("frame number = %v, want %d", frame.Args[wire.ProfileFrameNumber], h.probe.Frame())
	}
	if frame.Args[wire.ProfileCategoryCount] != int64(1) || frame.Args[wire.ProfileFunctionCount] != int64(2) {
		t.Fatalf("counts = %v %v", frame.Args[wire.ProfileCategoryCount], frame.Args[wire.ProfileFunctionCount])
	}
	if script, _ := wire.AsFloat(frame.Args[wire.ProfileScriptTime]); script < 0.00699 || script > 0.00701 {
		t.Errorf("script time = %v, want 0.007", script)
	}
	functions := frame.Args[wire.ProfileHeaderLength+2:]
	if functions[0] != int64(1) || functions[1] != int64(2) || functions[4] != int64(2) {
		t.Errorf("function rows = %v", functions)
	}

	profiler.Record("res://ai.gd::4::think", 1, time.Millisecond, time.Millisecond)
	h.tick()
	next := h.expect(wire.ProfileFrame)
	if next.Args[wire.ProfileHeaderLength] != int64(1) {
		t.Errorf("known signature re-announced or renumbered: %v", next.Args)
	}
}

func TestProfileFrameTruncatesToLimit(t *testing.T) {
	profiler := newProfiler()
	profiler.Start(MinProfileFunctions)
	for i := 0; i < 40; i++ {
		profiler.Record(fmt.Sprintf("res://gen.gd::%d::f%d", i, i), 1, time.Duration(i+1)*time.Microsecond, time.Microsecond)
	}
	announce, args := profiler.encode(1, FrameTimes{}, nil, profiler.frame)
	if len(announce) != MinProfileFunctions {
		t.Fatalf("announced %d signatures, want %d", len(announce), MinProfileFunctions)
	}
	if args[wire.ProfileFunctionCount] != int64(MinProfileFunctions) {
		t.Fatalf("function count = %v", args[wire.ProfileFunctionCount])
	}
	if announce[0].Args[0] != "res://gen.gd::39::f39" {
		t.Errorf("most expensive function = %v", announce[0].Args[0])
	}
}

func TestStopProfilingSendsSessionTotal(t *testing.T) {
	h := newHarness(t)
	h.deliver(wire.NewMessage(wire.StartProfiling, int64(32)))
	h.tick()
	for i := 0; i < 3; i++ {
		h.probe.Profiler().Record("res://main.gd::1::_process", 1, time.Millisecond, time.Millisecond)
		h.tick()
	}
	h.expect(wire.ProfileFrame)
	h.expect(wire.ProfileSig)
	for i := 0; i < 3; i++ {
		h.expect(wire.ProfileFrame)
	}

	h.deliver(wire.NewMessage(wire.StopProfiling))
	h.tick()
	total := h.expect(wire.ProfileTotal)
	row := total.Args[wire.ProfileHeaderLength:]
	if row[0] != int64(1) || row[1] != int64(3) {
		t.Fatalf("total row = %v", row)
	}
	if h.probe.Profiler().Active() {
		t.Error("profiler still active after stop")
	}
}

func TestNetworkProfileFlushesPerInterval(t *testing.T) {
	h := newHarness(t)
	h.deliver(wire.NewMessage(wire.StartNetProfiling))
	h.tick()

	network := h.probe.Network()
	network.RecordRPC(7, "/root/Player", RPCCounts{IncomingRPC: 2, OutgoingRSET: 1})
	network.RecordRPC(7, "/root/Player", RPCCounts{IncomingRPC: 1})
	network.RecordRPC(3, "/root/World", RPCCounts{OutgoingRPC: 4})
	network.RecordBandwidth(1200, 300)
	h.tick()

	h.clock.Advance(time.Second)
	h.tick()
	// The performance message shares the one second cadence and is
	// sent first.
	h.expect(wire.Performance)
	profile := h.expect(wire.NetworkProfile)
	want := []any{
		wire.ObjectID(3), "/root/World", int64(0), int64(0), int64(4), int64(0),
		wire.ObjectID(7), "/root/Player", int64(3), int64(0), int64(0), int64(1),
	}
	if len(profile.Args) != len(want) {
		t.Fatalf("network rows = %v", profile.Args)
	}
	for i := range want {
		if profile.Args[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, profile.Args[i], want[i])
		}
	}
	bandwidth := h.expect(wire.NetworkBandwidth)
	if bandwidth.Args[0] != int64(1200) || bandwidth.Args[1] != int64(300) {
		t.Errorf("bandwidth = %v", bandwidth.Args)
	}
}
