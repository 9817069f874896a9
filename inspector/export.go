// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportMetrics writes the performance history followed by a blank
// line and the profiler frames, both as CSV.
func (s *Session) ExportMetrics(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(s.performance.CSV()); err != nil {
		return fmt.Errorf("writing performance history: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	profile := s.profiler.CSV()
	if len(profile) == 0 {
		return nil
	}
	writer = csv.NewWriter(w)
	if err := writer.WriteAll(profile); err != nil {
		return fmt.Errorf("writing profiler frames: %w", err)
	}
	return nil
}

// ExportVideoMemory writes the last video memory inventory as CSV.
func (s *Session) ExportVideoMemory(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(s.videoMemory.CSV()); err != nil {
		return fmt.Errorf("writing video memory: %w", err)
	}
	return nil
}
