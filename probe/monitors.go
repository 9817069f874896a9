// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"runtime"
	"time"

	"github.com/bureau-foundation/liveinspect/lib/monitor"
	"github.com/bureau-foundation/liveinspect/scenegraph"
)

// monitorSampler accumulates frame timings between performance
// messages and fills the monitor vector.
type monitorSampler struct {
	tree     *scenegraph.Tree
	loader   *scenegraph.ResourceLoader
	interval time.Duration
	host     func([]float64)

	next       time.Time
	frames     int
	elapsed    time.Duration
	lastFrame  time.Duration
	physics    time.Duration
	staticMax  float64
	dynamicMax float64
}

func newMonitorSampler(tree *scenegraph.Tree, loader *scenegraph.ResourceLoader, interval time.Duration, host func([]float64)) *monitorSampler {
	return &monitorSampler{tree: tree, loader: loader, interval: interval, host: host}
}

func (m *monitorSampler) reset(now time.Time) {
	m.next = now.Add(m.interval)
	m.frames = 0
	m.elapsed = 0
}

func (m *monitorSampler) frame(delta time.Duration) {
	m.frames++
	m.elapsed += delta
	m.lastFrame = delta
}

// SetPhysicsTime records the duration of the last physics step for
// the physics_process monitor.
func (p *Probe) SetPhysicsTime(d time.Duration) { p.monitors.physics = d }

// sample returns the monitor vector once per interval.
func (m *monitorSampler) sample(now time.Time) ([]float64, bool) {
	if now.Before(m.next) {
		return nil, false
	}
	values := m.read()
	m.reset(now)
	return values, true
}

func (m *monitorSampler) read() []float64 {
	values := make([]float64, monitor.Count)
	if m.elapsed > 0 {
		values[monitor.FPS] = float64(m.frames) / m.elapsed.Seconds()
	}
	values[monitor.ProcessTime] = m.lastFrame.Seconds()
	values[monitor.PhysicsTime] = m.physics.Seconds()

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)
	static := float64(memory.HeapSys - memory.HeapIdle)
	dynamic := float64(memory.HeapAlloc)
	m.staticMax = max(m.staticMax, static)
	m.dynamicMax = max(m.dynamicMax, dynamic)
	values[monitor.StaticMemory] = static
	values[monitor.DynamicMemory] = dynamic
	values[monitor.StaticMemoryMax] = m.staticMax
	values[monitor.DynamicMemoryMax] = m.dynamicMax

	db := m.tree.DB()
	nodes := db.Count(func(object scenegraph.Object) bool {
		_, ok := object.(*scenegraph.Node)
		return ok
	})
	values[monitor.ObjectCount] = float64(db.Len())
	values[monitor.ResourceCount] = float64(db.Len() - nodes)
	values[monitor.NodeCount] = float64(m.tree.NodeCount())
	values[monitor.OrphanNodeCount] = float64(nodes - m.tree.NodeCount())

	var textures int64
	for _, resource := range m.loader.Resources() {
		bytes, _ := resource.VideoMemory()
		textures += bytes
	}
	values[monitor.VideoMemory] = float64(textures)
	values[monitor.TextureMemory] = float64(textures)

	if m.host != nil {
		m.host(values)
	}
	return values
}
