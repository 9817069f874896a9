// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLZ4Roundtrip(t *testing.T) {
	data := []byte(strings.Repeat("node:Sprite;", 512))
	compressed, err := LZ4(data)
	if err != nil {
		t.Fatalf("LZ4: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Fatalf("compressed %d bytes into %d", len(data), len(compressed))
	}
	restored, err := UnLZ4(compressed, len(data))
	if err != nil {
		t.Fatalf("UnLZ4: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Fatal("LZ4 roundtrip mismatch")
	}
}

func TestLZ4IncompressibleInput(t *testing.T) {
	if _, err := LZ4([]byte{0x01, 0x02, 0x03}); !errors.Is(err, ErrIncompressible) {
		t.Fatalf("LZ4 of tiny input: err = %v, want ErrIncompressible", err)
	}
}

func TestUnLZ4SizeMismatch(t *testing.T) {
	data := []byte(strings.Repeat("a", 1024))
	compressed, err := LZ4(data)
	if err != nil {
		t.Fatalf("LZ4: %v", err)
	}
	if _, err := UnLZ4(compressed, len(data)+10); err == nil {
		t.Fatal("UnLZ4 accepted a wrong uncompressed size")
	}
}

func TestZstdDeterministic(t *testing.T) {
	data := []byte(strings.Repeat("packed scene body ", 200))
	first := Zstd(data)
	second := Zstd(data)
	if !bytes.Equal(first, second) {
		t.Fatal("zstd output differs for identical input")
	}
	restored, err := UnZstd(first, 0)
	if err != nil {
		t.Fatalf("UnZstd: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Fatal("zstd roundtrip mismatch")
	}
	if _, err := UnZstd(first, 16); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("UnZstd past maxSize = %v, want ErrTooLarge", err)
	}
	if restored, err := UnZstd(first, len(data)); err != nil || !bytes.Equal(restored, data) {
		t.Fatalf("UnZstd at exact limit: %v", err)
	}
}

func TestUnZstdStopsAtLimit(t *testing.T) {
	// 4 MiB of zeros compresses to a few hundred bytes.
	bomb := Zstd(make([]byte, 4<<20))
	if _, err := UnZstd(bomb, 1<<20); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("UnZstd = %v, want ErrTooLarge", err)
	}
	if _, err := UnZstd([]byte("not zstd"), 1<<20); err == nil || errors.Is(err, ErrTooLarge) {
		t.Fatalf("UnZstd of garbage = %v", err)
	}
}
