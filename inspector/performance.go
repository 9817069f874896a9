// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-analyze/charts"

	"github.com/bureau-foundation/liveinspect/lib/monitor"
)

// DefaultPerformanceHistory is the number of performance samples kept
// when no history length is configured.
const DefaultPerformanceHistory = 2048

// Performance is the bounded history of performance vectors, newest
// first, with the running maximum of every monitor.
type Performance struct {
	capacity int
	samples  [][]float64
	head     int
	maxima   []float64
	selected map[int]bool
}

func newPerformance(capacity int) *Performance {
	if capacity <= 0 {
		capacity = DefaultPerformanceHistory
	}
	return &Performance{capacity: capacity, selected: make(map[int]bool)}
}

func (p *Performance) add(values []float64) {
	sample := slices.Clone(values)
	if len(p.samples) < p.capacity {
		p.samples = append(p.samples, sample)
		p.head = len(p.samples) - 1
	} else {
		p.head = (p.head + 1) % p.capacity
		p.samples[p.head] = sample
	}
	for i, value := range sample {
		if i >= len(p.maxima) {
			p.maxima = append(p.maxima, value)
			continue
		}
		p.maxima[i] = math.Max(p.maxima[i], value)
	}
}

// Len returns the number of recorded samples.
func (p *Performance) Len() int { return len(p.samples) }

// Sample returns the i-th newest sample; Sample(0) is the latest.
func (p *Performance) Sample(i int) ([]float64, bool) {
	if i < 0 || i >= len(p.samples) {
		return nil, false
	}
	index := (p.head - i + len(p.samples)) % len(p.samples)
	return p.samples[index], true
}

// Latest returns the newest sample.
func (p *Performance) Latest() ([]float64, bool) { return p.Sample(0) }

// Max returns the largest value seen for a monitor.
func (p *Performance) Max(index int) float64 {
	if index < 0 || index >= len(p.maxima) {
		return 0
	}
	return p.maxima[index]
}

// Series returns one monitor's history, oldest first.
func (p *Performance) Series(index int) []float64 {
	out := make([]float64, 0, len(p.samples))
	for i := len(p.samples) - 1; i >= 0; i-- {
		sample, _ := p.Sample(i)
		var value float64
		if index < len(sample) {
			value = sample[index]
		}
		out = append(out, value)
	}
	return out
}

// Select adds or removes a monitor from the graph selection.
func (p *Performance) Select(index int, on bool) {
	if on {
		p.selected[index] = true
	} else {
		delete(p.selected, index)
	}
}

// Selected returns the selected monitors in vector order.
func (p *Performance) Selected() []int {
	out := make([]int, 0, len(p.selected))
	for index := range p.selected {
		out = append(out, index)
	}
	slices.Sort(out)
	return out
}

// Clear drops the history and maxima. The selection is kept.
func (p *Performance) Clear() {
	p.samples = nil
	p.head = 0
	p.maxima = nil
}

// Format renders value the way the monitor at index is displayed.
func (p *Performance) Format(index int, value float64) string {
	if index >= 0 && index < monitor.Count {
		return monitor.Table[index].Format(value)
	}
	return monitor.Format(monitor.Quantity, value)
}

func monitorLabel(index int) string {
	if index >= 0 && index < monitor.Count {
		return monitor.Table[index].Path()
	}
	return "custom/" + strconv.Itoa(index)
}

// CSV returns a header of monitor names followed by one row per
// sample, newest first.
func (p *Performance) CSV() [][]string {
	width := len(p.maxima)
	header := make([]string, width)
	for i := range header {
		header[i] = monitorLabel(i)
	}
	rows := [][]string{header}
	for i := range p.samples {
		sample, _ := p.Sample(i)
		row := make([]string, width)
		for j := range row {
			if j < len(sample) {
				row[j] = strconv.FormatFloat(sample[j], 'f', -1, 64)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// GraphFormat selects the image encoding of RenderMonitorGraph.
type GraphFormat string

const (
	GraphPNG GraphFormat = "png"
	GraphSVG GraphFormat = "svg"
)

// RenderMonitorGraph draws the selected monitors' histories as one
// line chart. Each series is scaled to percent of its own maximum so
// monitors of different units share the axis.
func RenderMonitorGraph(performance *Performance, indices []int, format GraphFormat, width, height int) ([]byte, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("no monitors selected")
	}
	if performance.Len() < 2 {
		return nil, fmt.Errorf("need at least 2 samples, have %d", performance.Len())
	}
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 320
	}
	series := make([][]float64, 0, len(indices))
	labels := make([]string, 0, len(indices))
	for _, index := range indices {
		values := performance.Series(index)
		if peak := performance.Max(index); peak > 0 {
			for i := range values {
				values[i] = 100 * values[i] / peak
			}
		}
		series = append(series, values)
		labels = append(labels, monitorLabel(index)+" max "+performance.Format(index, performance.Max(index)))
	}

	painter := charts.NewPainter(charts.PainterOptions{
		OutputFormat: string(format),
		Width:        width,
		Height:       height,
	})
	painter.FilledRect(0, 0, painter.Width(), painter.Height(), charts.ColorWhite, charts.ColorWhite, 0)
	option := charts.NewLineChartOptionWithData(series)
	option.Title.Text = strings.Join(labels, ", ")
	if err := painter.LineChart(option); err != nil {
		return nil, fmt.Errorf("rendering monitor graph: %w", err)
	}
	return painter.Bytes()
}
