// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/liveinspect/lib/codec"
	"github.com/bureau-foundation/liveinspect/lib/compress"
)

// ErrFrameTooLarge is returned when a frame header announces a payload
// beyond the configured maximum.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// ErrArgument marks a message whose arguments do not match the
// documented arity or types.
var ErrArgument = errors.New("bad message argument")

// DecodeError is returned by FrameReader when a complete frame arrived
// but its payload is not a valid message. Payload is the decompressed
// payload.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Diagnose renders a payload in CBOR diagnostic notation. Payloads that
// are not even well-formed CBOR come back as a hex dump.
func Diagnose(payload []byte) string {
	text, err := codec.Diagnose(payload)
	if err != nil {
		return fmt.Sprintf("h'%x'", payload)
	}
	return text
}

// Message is one protocol message.
type Message struct {
	Name string
	Args []any
}

// NewMessage builds a message. Convenience for call sites that send
// literal argument lists.
func NewMessage(name string, args ...any) Message {
	return Message{Name: name, Args: args}
}

func (m Message) String() string {
	return fmt.Sprintf("%s(%d args)", m.Name, len(m.Args))
}

const (
	frameHeaderLength = 5

	flagLZ4 byte = 0x01

	// DefaultMaxFrame bounds a single payload when no limit is
	// configured.
	DefaultMaxFrame = 8 << 20
)

// EncodePayload serializes m as a CBOR sequence: name, argc, args.
func EncodePayload(m Message) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := valueCodec.NewEncoder(&buffer)
	if err := encoder.Encode(m.Name); err != nil {
		return nil, fmt.Errorf("encode name: %w", err)
	}
	if err := encoder.Encode(len(m.Args)); err != nil {
		return nil, fmt.Errorf("encode argc: %w", err)
	}
	for i, arg := range m.Args {
		if err := encoder.Encode(arg); err != nil {
			return nil, fmt.Errorf("encode %s arg %d (%s): %w", m.Name, i, Describe(arg), err)
		}
	}
	return buffer.Bytes(), nil
}

// DecodePayload parses a CBOR sequence produced by EncodePayload. The
// sequence must contain exactly argc arguments.
func DecodePayload(payload []byte) (Message, error) {
	var name string
	rest, err := valueCodec.UnmarshalFirst(payload, &name)
	if err != nil {
		return Message{}, fmt.Errorf("decode name: %w", err)
	}
	var argc int64
	rest, err = valueCodec.UnmarshalFirst(rest, &argc)
	if err != nil {
		return Message{}, fmt.Errorf("decode %s argc: %w", name, err)
	}
	if argc < 0 || argc > int64(len(rest)) {
		return Message{}, fmt.Errorf("decode %s: argc %d impossible for %d remaining bytes", name, argc, len(rest))
	}
	message := Message{Name: name, Args: make([]any, 0, argc)}
	for i := int64(0); i < argc; i++ {
		var arg any
		rest, err = valueCodec.UnmarshalFirst(rest, &arg)
		if err != nil {
			return Message{}, fmt.Errorf("decode %s arg %d: %w", name, i, err)
		}
		message.Args = append(message.Args, arg)
	}
	if len(rest) != 0 {
		return Message{}, fmt.Errorf("decode %s: %d trailing bytes after %d args", name, len(rest), argc)
	}
	return message, nil
}

// FrameWriter frames messages onto a stream. Not safe for concurrent
// use; the transport serializes writes through one goroutine.
type FrameWriter struct {
	w io.Writer

	// compressAbove is the payload length above which LZ4 is tried.
	// Zero disables compression.
	compressAbove int
}

// NewFrameWriter returns a writer that LZ4-compresses payloads longer
// than compressAbove bytes. Pass 0 to never compress.
func NewFrameWriter(w io.Writer, compressAbove int) *FrameWriter {
	return &FrameWriter{w: w, compressAbove: compressAbove}
}

// WriteMessage encodes and writes one frame. The header and payload go
// out in a single Write so a frame is never interleaved.
func (fw *FrameWriter) WriteMessage(m Message) error {
	frame, err := EncodeFrame(m, fw.compressAbove)
	if err != nil {
		return err
	}
	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// EncodeFrame returns the complete frame for m, header included.
// Payloads longer than compressAbove bytes are LZ4-compressed when that
// shrinks them; compressAbove 0 disables compression.
func EncodeFrame(m Message, compressAbove int) ([]byte, error) {
	payload, err := EncodePayload(m)
	if err != nil {
		return nil, err
	}

	flags := byte(0)
	if compressAbove > 0 && len(payload) > compressAbove {
		compressed, err := compress.LZ4(payload)
		if err == nil {
			framed := make([]byte, 4+len(compressed))
			binary.BigEndian.PutUint32(framed[:4], uint32(len(payload)))
			copy(framed[4:], compressed)
			payload = framed
			flags |= flagLZ4
		} else if !errors.Is(err, compress.ErrIncompressible) {
			return nil, err
		}
	}

	frame := make([]byte, frameHeaderLength+len(payload))
	frame[0] = flags
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(payload)))
	copy(frame[frameHeaderLength:], payload)
	return frame, nil
}

// FrameReader reads frames from a stream.
type FrameReader struct {
	r        io.Reader
	maxFrame int
}

// NewFrameReader returns a reader rejecting payloads (compressed or
// not) longer than maxFrame bytes. Zero selects DefaultMaxFrame.
func NewFrameReader(r io.Reader, maxFrame int) *FrameReader {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &FrameReader{r: r, maxFrame: maxFrame}
}

// ReadMessage blocks until a full frame is available and decodes it.
// The returned size is the decoded payload length, used by the
// transport to account inbox usage.
func (fr *FrameReader) ReadMessage() (Message, int, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		return Message{}, 0, fmt.Errorf("read frame header: %w", err)
	}
	flags := header[0]
	length := binary.BigEndian.Uint32(header[1:5])
	if int64(length) > int64(fr.maxFrame) {
		return Message{}, 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, fr.maxFrame)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return Message{}, 0, fmt.Errorf("read frame payload: %w", err)
	}

	if flags&flagLZ4 != 0 {
		if len(payload) < 4 {
			return Message{}, 0, fmt.Errorf("compressed frame too short: %d bytes", len(payload))
		}
		size := binary.BigEndian.Uint32(payload[:4])
		if int64(size) > int64(fr.maxFrame) {
			return Message{}, 0, fmt.Errorf("%w: uncompressed %d > %d", ErrFrameTooLarge, size, fr.maxFrame)
		}
		var err error
		payload, err = compress.UnLZ4(payload[4:], int(size))
		if err != nil {
			return Message{}, 0, err
		}
	}

	message, err := DecodePayload(payload)
	if err != nil {
		return Message{}, 0, &DecodeError{Payload: payload, Err: err}
	}
	return message, len(payload), nil
}
