// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the inspector and
// probe binaries: fatal error reporting before the structured logger
// exists, and a context cancelled on SIGINT/SIGTERM.
package process
