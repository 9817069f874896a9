// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor defines the fixed table of performance monitors
// sampled by the probe and displayed by the inspector. Both peers
// index the performance vector by position in [Table], so the order
// is part of the protocol.
package monitor

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Kind is the semantic type of a monitor reading.
type Kind int

const (
	// Quantity is a dimensionless count.
	Quantity Kind = iota
	// Memory is a byte count.
	Memory
	// Time is a duration in seconds.
	Time
)

func (k Kind) String() string {
	switch k {
	case Memory:
		return "memory"
	case Time:
		return "time"
	default:
		return "quantity"
	}
}

// Monitor describes one entry of the performance vector.
type Monitor struct {
	Group string
	Name  string
	Kind  Kind
}

// Path is "group/name", the label used in exports.
func (m Monitor) Path() string { return m.Group + "/" + m.Name }

// Format renders value according to the monitor's kind: memory as
// human-readable bytes, time in milliseconds with two decimals, counts
// as a plain number.
func (m Monitor) Format(value float64) string {
	return Format(m.Kind, value)
}

// Format renders value for kind.
func Format(kind Kind, value float64) string {
	switch kind {
	case Memory:
		if value < 0 {
			value = 0
		}
		return humanize.IBytes(uint64(value))
	case Time:
		return strconv.FormatFloat(value*1000, 'f', 2, 64) + " ms"
	default:
		if value == math.Trunc(value) && math.Abs(value) < 1e15 {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
}

// Index positions in the performance vector.
const (
	FPS = iota
	ProcessTime
	PhysicsTime
	StaticMemory
	DynamicMemory
	StaticMemoryMax
	DynamicMemoryMax
	MessageBufferMax
	ObjectCount
	ResourceCount
	NodeCount
	OrphanNodeCount
	DrawObjects
	DrawVertices
	DrawCalls
	VideoMemory
	TextureMemory
	VertexMemory
	PhysicsActiveObjects
	PhysicsCollisionPairs
	AudioLatency

	// Count is the length of the performance vector.
	Count
)

// Table lists every monitor in vector order.
var Table = [Count]Monitor{
	FPS:                   {"time", "fps", Quantity},
	ProcessTime:           {"time", "process", Time},
	PhysicsTime:           {"time", "physics_process", Time},
	StaticMemory:          {"memory", "static", Memory},
	DynamicMemory:         {"memory", "dynamic", Memory},
	StaticMemoryMax:       {"memory", "static_max", Memory},
	DynamicMemoryMax:      {"memory", "dynamic_max", Memory},
	MessageBufferMax:      {"memory", "msg_buf_max", Memory},
	ObjectCount:           {"object", "objects", Quantity},
	ResourceCount:         {"object", "resources", Quantity},
	NodeCount:             {"object", "nodes", Quantity},
	OrphanNodeCount:       {"object", "orphan_nodes", Quantity},
	DrawObjects:           {"raster", "objects", Quantity},
	DrawVertices:          {"raster", "vertices", Quantity},
	DrawCalls:             {"raster", "draw_calls", Quantity},
	VideoMemory:           {"video", "video_mem", Memory},
	TextureMemory:         {"video", "texture_mem", Memory},
	VertexMemory:          {"video", "vertex_mem", Memory},
	PhysicsActiveObjects:  {"physics", "active_objects", Quantity},
	PhysicsCollisionPairs: {"physics", "collision_pairs", Quantity},
	AudioLatency:          {"audio", "output_latency", Time},
}

// Lookup returns the monitor at index, or a Quantity placeholder named
// after the index for vectors longer than the table (a newer probe).
func Lookup(index int) Monitor {
	if index >= 0 && index < Count {
		return Table[index]
	}
	return Monitor{Group: "custom", Name: strconv.Itoa(index), Kind: Quantity}
}
