// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/liveinspect/inspector"
)

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}

// printView writes the game's output, errors and break notices as
// plain lines for headless runs.
type printView struct {
	inspector.NopView
	out io.Writer
}

func (view *printView) OnLog(text string, kind inspector.LogKind) {
	if kind == inspector.LogError {
		fmt.Fprintf(view.out, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintln(view.out, text)
}

func (view *printView) OnStateChanged(state inspector.State) {
	fmt.Fprintf(view.out, "[%s]\n", state)
}

func (view *printView) OnErrorAdded(entry inspector.ErrorEntry) {
	kind := "E"
	if entry.Warning {
		kind = "W"
	}
	fmt.Fprintf(view.out, "%s %s %s %s\n", entry.Time(), kind, entry.Title(), entry.Source())
}

func (view *printView) OnClickedControl(path, class string) {
	fmt.Fprintf(view.out, "clicked %s %s\n", class, path)
}
