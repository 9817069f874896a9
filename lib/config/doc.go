// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the live
// inspector and the embedded probe.
//
// Configuration is loaded from a single file named by either the
// LIVEINSPECT_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). Every field has a default, so a missing file
// is an error but an empty one is not.
//
// The file may contain environment sections (development, staging,
// production) whose keys override the base values when
// [Config].Environment matches. Only keys present in the section are
// applied.
//
// Variable expansion runs on address and directory fields after
// loading: ${HOME} and ${VAR:-default} patterns are expanded.
//
// Durations are written as Go duration strings ("200ms", "1s").
package config
