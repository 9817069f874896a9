// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bureau-foundation/liveinspect/wire"
)

// ProfileItem is one row of a profile category.
type ProfileItem struct {
	// Signature identifies the item across frames; it is the column
	// key in CSV exports.
	Signature string
	Name      string
	Script    string
	Line      int
	Calls     int64
	Total     float64
	Self      float64
}

// ProfileCategory is a named group of items with its subtotal in
// seconds.
type ProfileCategory struct {
	Signature string
	Name      string
	Total     float64
	Items     []ProfileItem
}

// ProfileFrame is one decoded profile_frame or profile_total.
type ProfileFrame struct {
	Number           int64
	FrameTime        float64
	ProcessTime      float64
	PhysicsTime      float64
	PhysicsFrameTime float64
	Categories       []ProfileCategory
}

// Function returns the script function item with the given name.
func (f *ProfileFrame) Function(name string) (ProfileItem, bool) {
	for _, category := range f.Categories {
		if category.Signature != scriptFunctionsSignature {
			continue
		}
		for _, item := range category.Items {
			if item.Name == name {
				return item, true
			}
		}
	}
	return ProfileItem{}, false
}

const scriptFunctionsSignature = "script_functions"

// Profiler decodes profile frames against the signature table and
// keeps a bounded frame history.
type Profiler struct {
	maxFunctions int
	active       bool

	signatures map[int64]string
	frames     []*ProfileFrame
	capacity   int
	next       int
	total      *ProfileFrame
}

func newProfiler(maxFunctions, capacity int) *Profiler {
	return &Profiler{
		maxFunctions: maxFunctions,
		signatures:   make(map[int64]string),
		capacity:     max(capacity, 1),
	}
}

// Active reports whether the user has profiling switched on. The
// setting survives reconnects.
func (p *Profiler) Active() bool { return p.active }

// MaxFunctions is the per-frame limit requested from the probe.
func (p *Profiler) MaxFunctions() int { return p.maxFunctions }

// Frames returns the recorded frames, oldest first.
func (p *Profiler) Frames() []*ProfileFrame {
	if len(p.frames) < p.capacity {
		return append([]*ProfileFrame(nil), p.frames...)
	}
	out := make([]*ProfileFrame, 0, len(p.frames))
	out = append(out, p.frames[p.next:]...)
	return append(out, p.frames[:p.next]...)
}

// Last returns the most recent frame.
func (p *Profiler) Last() (*ProfileFrame, bool) {
	if len(p.frames) == 0 {
		return nil, false
	}
	index := p.next - 1
	if index < 0 {
		index = len(p.frames) - 1
	}
	return p.frames[index], true
}

// Total returns the session totals reported when profiling stopped.
func (p *Profiler) Total() (*ProfileFrame, bool) { return p.total, p.total != nil }

// Signature returns the name announced for id.
func (p *Profiler) Signature(id int64) (string, bool) {
	name, ok := p.signatures[id]
	return name, ok
}

// Clear drops the recorded frames and the totals.
func (p *Profiler) Clear() {
	p.frames = nil
	p.next = 0
	p.total = nil
}

func (p *Profiler) resetSignatures() { clear(p.signatures) }

func (p *Profiler) add(frame *ProfileFrame) {
	if len(p.frames) < p.capacity {
		p.frames = append(p.frames, frame)
		p.next = len(p.frames) % p.capacity
		return
	}
	p.frames[p.next] = frame
	p.next = (p.next + 1) % p.capacity
}

func (p *Profiler) defineSignature(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	name, err := message.Text(0)
	if err != nil {
		return err
	}
	id, err := message.Int(1)
	if err != nil {
		return err
	}
	p.signatures[id] = name
	return nil
}

// decode parses a profile_frame or profile_total argument list.
func (p *Profiler) decode(message wire.Message) (*ProfileFrame, error) {
	if err := message.Arity(wire.ProfileHeaderLength); err != nil {
		return nil, err
	}
	number, err := message.Int(wire.ProfileFrameNumber)
	if err != nil {
		return nil, err
	}
	var times [5]float64
	for i, index := range []int{wire.ProfileFrameTime, wire.ProfileProcessTime, wire.ProfilePhysicsTime, wire.ProfilePhysicsFrameTime, wire.ProfileScriptTime} {
		if times[i], err = message.Float(index); err != nil {
			return nil, err
		}
	}
	categoryCount, err := message.Int(wire.ProfileCategoryCount)
	if err != nil {
		return nil, err
	}
	functionCount, err := message.Int(wire.ProfileFunctionCount)
	if err != nil {
		return nil, err
	}
	want := wire.ProfileHeaderLength + 2*int(categoryCount) + 4*int(functionCount)
	if categoryCount < 0 || functionCount < 0 || len(message.Args) < want {
		return nil, fmt.Errorf("%w: %s: %d categories and %d functions need %d args, have %d",
			wire.ErrArgument, message.Name, categoryCount, functionCount, want, len(message.Args))
	}

	frame := &ProfileFrame{
		Number:           number,
		FrameTime:        times[0],
		ProcessTime:      times[1],
		PhysicsTime:      times[2],
		PhysicsFrameTime: times[3],
	}
	if categoryCount > 0 {
		frame.Categories = append(frame.Categories, ProfileCategory{
			Signature: "category_frame_time",
			Name:      "Frame Time",
			Total:     frame.FrameTime,
			Items: []ProfileItem{
				{Signature: "physics_time", Name: "Physics Time", Calls: 1, Total: frame.PhysicsTime, Self: frame.PhysicsTime},
				{Signature: "process_time", Name: "Process Time", Calls: 1, Total: frame.ProcessTime, Self: frame.ProcessTime},
				{Signature: "physics_frame_time", Name: "Physics Frame Time", Calls: 1, Total: frame.PhysicsFrameTime, Self: frame.PhysicsFrameTime},
			},
		})
	}

	index := wire.ProfileHeaderLength
	for i := 0; i < int(categoryCount); i++ {
		name, err := message.Text(index)
		if err != nil {
			return nil, err
		}
		values, err := message.Array(index + 1)
		if err != nil {
			return nil, err
		}
		index += 2
		category := ProfileCategory{Signature: "categ::" + name, Name: capitalize(name)}
		for j := 0; j+1 < len(values); j += 2 {
			itemName, _ := wire.AsString(values[j])
			self, _ := wire.AsFloat(values[j+1])
			category.Items = append(category.Items, ProfileItem{
				Signature: "categ::" + name + "::" + itemName,
				Name:      capitalize(itemName),
				Calls:     1,
				Total:     self,
				Self:      self,
			})
			category.Total += self
		}
		frame.Categories = append(frame.Categories, category)
	}

	functions := ProfileCategory{Signature: scriptFunctionsSignature, Name: "Script Functions", Total: times[4]}
	for i := 0; i < int(functionCount); i++ {
		signature, err := message.Int(index)
		if err != nil {
			return nil, err
		}
		calls, err := message.Int(index + 1)
		if err != nil {
			return nil, err
		}
		total, err := message.Float(index + 2)
		if err != nil {
			return nil, err
		}
		self, err := message.Float(index + 3)
		if err != nil {
			return nil, err
		}
		index += 4
		functions.Items = append(functions.Items, p.functionItem(signature, calls, total, self))
	}
	frame.Categories = append(frame.Categories, functions)
	return frame, nil
}

// functionItem names a function sample from the signature table.
// Unknown ids get a placeholder name, never a guess.
func (p *Profiler) functionItem(id, calls int64, total, self float64) ProfileItem {
	item := ProfileItem{Calls: calls, Total: total, Self: self}
	signature, ok := p.signatures[id]
	if !ok {
		item.Name = "SigErr " + strconv.FormatInt(id, 10)
		item.Signature = item.Name
		return item
	}
	item.Signature = signature
	parts := strings.Split(signature, "::")
	switch len(parts) {
	case 3:
		item.Script, item.Name = parts[0], parts[2]
		item.Line, _ = strconv.Atoi(parts[1])
	case 4:
		// Built-in scripts carry "::" in their own path.
		item.Script, item.Name = parts[0]+"::"+parts[1], parts[3]
		item.Line, _ = strconv.Atoi(parts[2])
	default:
		item.Name = signature
	}
	return item
}

// CSV returns the frame history as rows: a header of category and
// item signatures taken from every recorded frame, then one row of
// totals per frame, oldest first.
func (p *Profiler) CSV() [][]string {
	frames := p.Frames()
	if len(frames) == 0 {
		return nil
	}
	var header []string
	column := map[string]int{}
	addColumn := func(signature string) {
		if _, ok := column[signature]; !ok {
			column[signature] = len(header)
			header = append(header, signature)
		}
	}
	for _, frame := range frames {
		for _, category := range frame.Categories {
			addColumn(category.Signature)
			for _, item := range category.Items {
				addColumn(item.Signature)
			}
		}
	}
	rows := [][]string{header}
	for _, frame := range frames {
		row := make([]string, len(header))
		for _, category := range frame.Categories {
			row[column[category.Signature]] = formatSeconds(category.Total)
			for _, item := range category.Items {
				row[column[item.Signature]] = formatSeconds(item.Total)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func formatSeconds(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// capitalize turns "physics_step" or "physicsStep" into "Physics
// Step".
func capitalize(name string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			current[0] = unicode.ToUpper(current[0])
			words = append(words, string(current))
			current = nil
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return strings.Join(words, " ")
}
