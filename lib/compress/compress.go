// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress wraps the two compression codecs used by the live
// inspection stack: LZ4 block compression for large protocol frames
// (scene dumps, inspect replies with big arrays) and zstd for packed
// scene files written by save_node.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrIncompressible is returned when compression would not shrink the
// input. Callers store the data uncompressed.
var ErrIncompressible = errors.New("data is incompressible")

// LZ4 compresses data as a single LZ4 block.
func LZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, ErrIncompressible
	}
	return destination[:written], nil
}

// UnLZ4 decompresses an LZ4 block whose original length is known. A
// length mismatch is an error.
func UnLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Zstd compresses data into a single zstd frame. Output is a pure
// function of the input, so identical scenes produce identical files.
func Zstd(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

// ErrTooLarge is returned when decompressed output would exceed the
// caller's limit.
var ErrTooLarge = errors.New("decompressed data exceeds limit")

// UnZstd decompresses a zstd frame. A positive maxSize bounds the
// output; decoding stops as soon as the limit is crossed.
func UnZstd(compressed []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		result, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return result, nil
	}
	decoder, err := zstd.NewReader(bytes.NewReader(compressed),
		zstd.WithDecoderConcurrency(1),
		// Windows are rounded up to a power of two of at least 1 KiB.
		zstd.WithDecoderMaxMemory(2*uint64(maxSize)+zstd.MinWindowSize),
	)
	if err != nil {
		return nil, zstdError(err, maxSize)
	}
	defer decoder.Close()
	result, err := io.ReadAll(io.LimitReader(decoder, int64(maxSize)+1))
	if err != nil {
		return nil, zstdError(err, maxSize)
	}
	if len(result) > maxSize {
		return nil, fmt.Errorf("zstd decompress: %w: limit %d", ErrTooLarge, maxSize)
	}
	return result, nil
}

func zstdError(err error, maxSize int) error {
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return fmt.Errorf("zstd decompress: %w: limit %d", ErrTooLarge, maxSize)
	}
	return fmt.Errorf("zstd decompress: %w", err)
}
