// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	oldCommit, oldDirty := GitCommit, GitDirty
	defer func() { GitCommit, GitDirty = oldCommit, oldDirty }()

	GitCommit, GitDirty = "abc1234", "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want it to contain abc1234-dirty", got)
	}
	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Errorf("Info() = %q for a clean build", got)
	}
	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full() missing toolchain line: %q", Full())
	}
}
