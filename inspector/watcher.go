// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ScriptWatcher reports edits to script sources so the editor can ask
// the game to reload them. Bursts of events coalesce into a single
// pending notification.
type ScriptWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	logger     *slog.Logger
	changed    chan string
}

// NewScriptWatcher watches each directory in dirs. Only files with one
// of extensions count; no extensions means every file does.
func NewScriptWatcher(dirs, extensions []string, logger *slog.Logger) (*ScriptWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating script watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return &ScriptWatcher{
		watcher:    watcher,
		extensions: extensions,
		logger:     logger,
		changed:    make(chan string, 1),
	}, nil
}

// Changed receives the path of a changed script. At most one change is
// pending at a time.
func (w *ScriptWatcher) Changed() <-chan string { return w.changed }

// Run forwards file events until ctx is done or the watcher is closed.
func (w *ScriptWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				select {
				case w.changed <- event.Name:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("script watcher error", "error", err)
		}
	}
}

// Close stops the watcher; Run returns.
func (w *ScriptWatcher) Close() error { return w.watcher.Close() }

func (w *ScriptWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return slices.Contains(w.extensions, filepath.Ext(base))
}
