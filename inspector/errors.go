// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/liveinspect/wire"
)

// StackLocation is one scripted frame of an error's stack trace.
type StackLocation struct {
	File     string
	Function string
	Line     int
}

// ErrorEntry is one row of the error tree.
type ErrorEntry struct {
	Hour, Minute, Second, Millisecond int
	Method                            string
	SourceFile                        string
	SourceLine                        int
	Condition                         string
	Message                           string
	Warning                           bool
	Stack                             []StackLocation
}

// Time is the probe-relative timestamp, "h:mm:ss:mmmm".
func (e ErrorEntry) Time() string {
	return fmt.Sprintf("%d:%02d:%02d:%04d", e.Hour, e.Minute, e.Second, e.Millisecond)
}

// Title is the collapsed row text: the message, or the failing
// condition when there is no message.
func (e ErrorEntry) Title() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Condition
}

// Source is "file:line" of the reporting site.
func (e ErrorEntry) Source() string {
	return fmt.Sprintf("%s:%d", e.SourceFile, e.SourceLine)
}

// ProjectFile reports whether the source lies inside the project, so
// the row can jump to it.
func (e ErrorEntry) ProjectFile() bool {
	return strings.HasPrefix(e.SourceFile, "res://")
}

// Errors is the error tree with its counters.
type Errors struct {
	entries  []ErrorEntry
	errors   int
	warnings int
}

// Entries returns the rows in arrival order.
func (e *Errors) Entries() []ErrorEntry { return e.entries }

// Counts returns the number of errors and warnings received.
func (e *Errors) Counts() (errors, warnings int) { return e.errors, e.warnings }

// Badge is the debugger panel title, carrying the total when there is
// anything to report.
func (e *Errors) Badge() string {
	total := e.errors + e.warnings
	if total == 0 {
		return "Debugger"
	}
	return fmt.Sprintf("Debugger (%d)", total)
}

// Clear empties the tree and resets the counters.
func (e *Errors) Clear() {
	e.entries = nil
	e.errors, e.warnings = 0, 0
}

func (e *Errors) add(entry ErrorEntry) {
	e.entries = append(e.entries, entry)
	if entry.Warning {
		e.warnings++
	} else {
		e.errors++
	}
}

func decodeError(message wire.Message) (ErrorEntry, error) {
	record, err := message.Array(0)
	if err != nil {
		return ErrorEntry{}, err
	}
	if len(record) != 10 {
		return ErrorEntry{}, fmt.Errorf("%w: %s: record has %d fields, want 10", wire.ErrArgument, message.Name, len(record))
	}
	recordMessage := wire.Message{Name: message.Name, Args: record}
	var clock [4]int64
	for i := range clock {
		if clock[i], err = recordMessage.Int(i); err != nil {
			return ErrorEntry{}, err
		}
	}
	var text [4]string
	for i, index := range []int{4, 5, 7, 8} {
		if text[i], err = recordMessage.Text(index); err != nil {
			return ErrorEntry{}, err
		}
	}
	line, err := recordMessage.Int(6)
	if err != nil {
		return ErrorEntry{}, err
	}
	warning, err := recordMessage.Bool(9)
	if err != nil {
		return ErrorEntry{}, err
	}
	entry := ErrorEntry{
		Hour: int(clock[0]), Minute: int(clock[1]), Second: int(clock[2]), Millisecond: int(clock[3]),
		Method:     text[0],
		SourceFile: text[1],
		SourceLine: int(line),
		Condition:  text[2],
		Message:    text[3],
		Warning:    warning,
	}

	count, err := message.Int(1)
	if err != nil {
		return ErrorEntry{}, err
	}
	if count < 0 || count%3 != 0 || len(message.Args) < 2+int(count) {
		return ErrorEntry{}, fmt.Errorf("%w: %s: stack claims %d values, have %d", wire.ErrArgument, message.Name, count, len(message.Args)-2)
	}
	for i := 2; i < 2+int(count); i += 3 {
		file, err := message.Text(i)
		if err != nil {
			return ErrorEntry{}, err
		}
		function, err := message.Text(i + 1)
		if err != nil {
			return ErrorEntry{}, err
		}
		stackLine, err := message.Int(i + 2)
		if err != nil {
			return ErrorEntry{}, err
		}
		entry.Stack = append(entry.Stack, StackLocation{File: file, Function: function, Line: int(stackLine)})
	}
	return entry, nil
}
