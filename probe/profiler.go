// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"cmp"
	"slices"
	"time"

	"github.com/bureau-foundation/liveinspect/wire"
)

// Profile function limits accepted by start_profiling.
const (
	MinProfileFunctions = 16
	MaxProfileFunctions = 512
)

// FunctionSample is the cost of one script function over a frame, or
// over the whole session for totals.
type FunctionSample struct {
	// Signature is "script::line::function".
	Signature string
	Calls     int
	Total     time.Duration
	Self      time.Duration
}

// CategoryItem is one named entry in a profile category.
type CategoryItem struct {
	Name string
	Self time.Duration
}

// Category is a named subtotal reported alongside script functions.
type Category struct {
	Name  string
	Items []CategoryItem
}

// FrameTimes are the engine timings for one profiled frame.
type FrameTimes struct {
	Frame        time.Duration
	Process      time.Duration
	Physics      time.Duration
	PhysicsFrame time.Duration
}

// Profiler collects script function costs for the current frame. The
// host records into it; the probe flushes it once per tick.
type Profiler struct {
	active       bool
	maxFunctions int

	signatures    map[string]int64
	nextSignature int64

	times      FrameTimes
	categories []Category
	frame      map[string]*FunctionSample

	totalTimes FrameTimes
	total      map[string]*FunctionSample
}

func newProfiler() *Profiler {
	return &Profiler{
		signatures: make(map[string]int64),
		frame:      make(map[string]*FunctionSample),
		total:      make(map[string]*FunctionSample),
	}
}

// Start arms the profiler, keeping at most maxFunctions functions per
// frame, clamped to [MinProfileFunctions, MaxProfileFunctions]. The
// signature table starts over.
func (p *Profiler) Start(maxFunctions int) {
	p.active = true
	p.maxFunctions = min(max(maxFunctions, MinProfileFunctions), MaxProfileFunctions)
	clear(p.signatures)
	p.nextSignature = 0
	p.resetFrame()
	clear(p.total)
	p.totalTimes = FrameTimes{}
}

// Stop disarms the profiler.
func (p *Profiler) Stop() {
	p.active = false
	p.resetFrame()
}

// Active reports whether profiling is on.
func (p *Profiler) Active() bool { return p.active }

// MaxFunctions returns the per-frame function limit.
func (p *Profiler) MaxFunctions() int { return p.maxFunctions }

// Record adds one function's cost to the current frame. Repeated
// records for the same signature accumulate.
func (p *Profiler) Record(signature string, calls int, total, self time.Duration) {
	if !p.active {
		return
	}
	accumulate(p.frame, signature, calls, total, self)
	accumulate(p.total, signature, calls, total, self)
}

func accumulate(samples map[string]*FunctionSample, signature string, calls int, total, self time.Duration) {
	sample, ok := samples[signature]
	if !ok {
		sample = &FunctionSample{Signature: signature}
		samples[signature] = sample
	}
	sample.Calls += calls
	sample.Total += total
	sample.Self += self
}

// SetFrameTimes records the engine timings of the current frame.
func (p *Profiler) SetFrameTimes(times FrameTimes) {
	if !p.active {
		return
	}
	p.times = times
	p.totalTimes.Frame += times.Frame
	p.totalTimes.Process += times.Process
	p.totalTimes.Physics += times.Physics
	p.totalTimes.PhysicsFrame += times.PhysicsFrame
}

// AddCategory attaches a named subtotal to the current frame.
func (p *Profiler) AddCategory(category Category) {
	if !p.active {
		return
	}
	p.categories = append(p.categories, category)
}

func (p *Profiler) resetFrame() {
	p.times = FrameTimes{}
	p.categories = nil
	clear(p.frame)
}

// signature returns the id for name, and whether it was newly
// assigned.
func (p *Profiler) signature(name string) (int64, bool) {
	if id, ok := p.signatures[name]; ok {
		return id, false
	}
	p.nextSignature++
	p.signatures[name] = p.nextSignature
	return p.nextSignature, true
}

// encode lays out a profile_frame or profile_total argument list and
// collects the signature announcements that must precede it.
func (p *Profiler) encode(number int64, times FrameTimes, categories []Category, samples map[string]*FunctionSample) (announce []wire.Message, args []any) {
	functions := make([]*FunctionSample, 0, len(samples))
	for _, sample := range samples {
		functions = append(functions, sample)
	}
	slices.SortFunc(functions, func(a, b *FunctionSample) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Signature, b.Signature)
	})
	if len(functions) > p.maxFunctions {
		functions = functions[:p.maxFunctions]
	}

	var scriptTime time.Duration
	for _, sample := range samples {
		scriptTime += sample.Self
	}

	args = make([]any, wire.ProfileHeaderLength, wire.ProfileHeaderLength+2*len(categories)+4*len(functions))
	args[wire.ProfileFrameNumber] = number
	args[wire.ProfileFrameTime] = times.Frame.Seconds()
	args[wire.ProfileProcessTime] = times.Process.Seconds()
	args[wire.ProfilePhysicsTime] = times.Physics.Seconds()
	args[wire.ProfilePhysicsFrameTime] = times.PhysicsFrame.Seconds()
	args[wire.ProfileScriptTime] = scriptTime.Seconds()
	args[wire.ProfileCategoryCount] = int64(len(categories))
	args[wire.ProfileFunctionCount] = int64(len(functions))

	for _, category := range categories {
		items := make([]any, 0, 2*len(category.Items))
		for _, item := range category.Items {
			items = append(items, item.Name, item.Self.Seconds())
		}
		args = append(args, category.Name, items)
	}
	for _, sample := range functions {
		id, fresh := p.signature(sample.Signature)
		if fresh {
			announce = append(announce, wire.NewMessage(wire.ProfileSig, sample.Signature, id))
		}
		args = append(args, id, int64(sample.Calls), sample.Total.Seconds(), sample.Self.Seconds())
	}
	return announce, args
}

func (p *Probe) flushProfile(frame int64) {
	profiler := p.profiler
	announce, args := profiler.encode(frame, profiler.times, profiler.categories, profiler.frame)
	p.sendProfile(announce, wire.ProfileFrame, args)
	profiler.resetFrame()
}

func (p *Probe) flushProfileTotal() {
	profiler := p.profiler
	announce, args := profiler.encode(p.frame, profiler.totalTimes, nil, profiler.total)
	p.sendProfile(announce, wire.ProfileTotal, args)
}

func (p *Probe) sendProfile(announce []wire.Message, name string, args []any) {
	for _, message := range announce {
		p.send(message.Name, message.Args...)
	}
	p.send(name, args...)
}
