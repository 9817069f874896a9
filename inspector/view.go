// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import "github.com/bureau-foundation/liveinspect/wire"

// LogKind classifies a line for the editor log panel.
type LogKind int

const (
	LogOutput LogKind = iota
	LogError
	// LogEditor marks notes the inspector itself writes, such as
	// session start and stop.
	LogEditor
)

// View receives session notifications. All methods run on the tick
// goroutine and must not block.
type View interface {
	OnLog(text string, kind LogKind)
	OnStateChanged(state State)
	OnTreeChanged(tree *SceneTree)
	// OnObjectUpdated reports a new proxy or a change in a proxy's
	// property list shape.
	OnObjectUpdated(proxy *Proxy)
	// OnPropertyUpdated reports value changes on a proxy whose shape
	// did not change.
	OnPropertyUpdated(proxy *Proxy, names []string)
	OnErrorAdded(entry ErrorEntry)
	OnProfileFrame(frame *ProfileFrame)
	OnPerformance(sample []float64)
	OnVideoMem(table *VideoMemory)
	OnClickedControl(path, class string)
	// OnSelectTree asks the view to select the remote node id,
	// typically because a break reported it as self.
	OnSelectTree(id wire.ObjectID)
}

// NopView ignores every notification.
type NopView struct{}

func (NopView) OnLog(string, LogKind) {}
func (NopView) OnStateChanged(State) {}
func (NopView) OnTreeChanged(*SceneTree) {}
func (NopView) OnObjectUpdated(*Proxy) {}
func (NopView) OnPropertyUpdated(*Proxy, []string) {}
func (NopView) OnErrorAdded(ErrorEntry) {}
func (NopView) OnProfileFrame(*ProfileFrame) {}
func (NopView) OnPerformance([]float64) {}
func (NopView) OnVideoMem(*VideoMemory) {}
func (NopView) OnClickedControl(string, string) {}
func (NopView) OnSelectTree(wire.ObjectID) {}
