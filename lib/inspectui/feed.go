// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import (
	"github.com/bureau-foundation/liveinspect/inspector"
	"github.com/bureau-foundation/liveinspect/wire"
)

// defaultLogLines bounds the output log kept by a Feed.
const defaultLogLines = 1000

// LogLine is one line of the output panel.
type LogLine struct {
	Text string
	Kind inspector.LogKind
}

// Feed collects session notifications for rendering. It is the
// session's View; the model reads it after every Tick.
type Feed struct {
	maxLines int
	lines    []LogLine

	treeChanged   bool
	selectRequest wire.ObjectID
}

// NewFeed creates a feed keeping at most maxLines log lines. Zero
// selects a default.
func NewFeed(maxLines int) *Feed {
	if maxLines <= 0 {
		maxLines = defaultLogLines
	}
	return &Feed{maxLines: maxLines}
}

// Lines returns the output log, oldest first.
func (f *Feed) Lines() []LogLine { return f.lines }

// Log appends a line the front end writes itself.
func (f *Feed) Log(text string, kind inspector.LogKind) {
	f.lines = append(f.lines, LogLine{Text: text, Kind: kind})
	if excess := len(f.lines) - f.maxLines; excess > 0 {
		f.lines = append(f.lines[:0], f.lines[excess:]...)
	}
}

func (f *Feed) OnLog(text string, kind inspector.LogKind) { f.Log(text, kind) }

func (f *Feed) OnStateChanged(inspector.State) {}

func (f *Feed) OnTreeChanged(*inspector.SceneTree) { f.treeChanged = true }

func (f *Feed) OnObjectUpdated(*inspector.Proxy) {}

func (f *Feed) OnPropertyUpdated(*inspector.Proxy, []string) {}

func (f *Feed) OnErrorAdded(entry inspector.ErrorEntry) {
	if entry.Warning {
		return
	}
	f.Log(entry.Title(), inspector.LogError)
}

func (f *Feed) OnProfileFrame(*inspector.ProfileFrame) {}

func (f *Feed) OnPerformance([]float64) {}

func (f *Feed) OnVideoMem(*inspector.VideoMemory) {}

func (f *Feed) OnClickedControl(path, class string) {
	f.Log("clicked "+class+" "+path, inspector.LogEditor)
}

func (f *Feed) OnSelectTree(id wire.ObjectID) { f.selectRequest = id }

func (f *Feed) takeTreeChanged() bool {
	changed := f.treeChanged
	f.treeChanged = false
	return changed
}

// takeSelectRequest returns a tree row the session asked to select.
func (f *Feed) takeSelectRequest() (wire.ObjectID, bool) {
	id := f.selectRequest
	f.selectRequest = 0
	return id, id != 0
}
