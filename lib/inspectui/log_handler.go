// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspectui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for the status bar
// and the output panel.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears the status bar notice.
type logRecordFadeMsg struct{}

// logRecordFadeDelay is how long a log record stays in the status bar.
const logRecordFadeDelay = 5 * time.Second

// LogHandler is a slog.Handler that routes records into a bubbletea
// program as messages. Records below the configured level are
// dropped, as are records arriving before SetProgram is called.
//
// Handlers derived via WithAttrs/WithGroup share the program pointer,
// so one SetProgram call reaches all of them.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	group   string
}

// NewLogHandler creates a handler delivering records at or above
// level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

// SetProgram sets the program that receives log records. Safe to
// call from any goroutine.
func (handler *LogHandler) SetProgram(program *tea.Program) {
	handler.program.Store(program)
}

func (handler *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

func (handler *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := handler.program.Load()
	if program == nil {
		return nil
	}
	program.Send(logRecordMsg{Summary: handler.summary(record), Level: record.Level})
	return nil
}

// summary formats "message (key=value, ...)", skipping the session
// id every session record carries.
func (handler *LogHandler) summary(record slog.Record) string {
	var parts []string
	add := func(attr slog.Attr) bool {
		if attr.Key == "session" {
			return true
		}
		key := attr.Key
		if handler.group != "" {
			key = handler.group + "." + key
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, attr.Value))
		return true
	}
	for _, attr := range handler.attrs {
		add(attr)
	}
	record.Attrs(add)
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *handler
	derived.attrs = append(append([]slog.Attr(nil), handler.attrs...), attrs...)
	return &derived
}

func (handler *LogHandler) WithGroup(name string) slog.Handler {
	derived := *handler
	if derived.group != "" {
		name = derived.group + "." + name
	}
	derived.group = name
	return &derived
}
