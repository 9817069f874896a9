// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information injected with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/liveinspect/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset variables default to "unknown" and "0.1.0-dev".
package version
