// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// TagSet is a registry of Go types carried as CBOR tags. Type alias so
// consumers import only lib/codec, not fxamacker/cbor directly.
type TagSet = cbor.TagSet

// Encoder is a CBOR stream encoder.
type Encoder = cbor.Encoder

// Codec is a matched encoder/decoder pair sharing one TagSet.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// diagnoseMode renders whole payloads, which are CBOR sequences.
var diagnoseMode = mustDiagMode()

func mustDiagMode() cbor.DiagMode {
	mode, err := cbor.DiagOptions{
		ByteStringEncoding: cbor.ByteStringBase16Encoding,
		CBORSequence:       true,
	}.DiagMode()
	if err != nil {
		panic("codec: CBOR diagnostic mode: " + err.Error())
	}
	return mode
}

func encodeOptions() cbor.EncOptions {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	return options
}

func decodeOptions() cbor.DecOptions {
	return cbor.DecOptions{
		// Protocol dictionaries only have string keys. An any-typed
		// target otherwise decodes to map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Positive integers decode to uint64 by default; every
		// integer in the protocol is signed.
		IntDec:          cbor.IntDecConvertSigned,
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}
}

// NewTagSet returns an empty tag registry.
func NewTagSet() TagSet {
	return cbor.NewTagSet()
}

// MustRegister adds contentType under tag number, encoded and decoded
// with the tag required. Panics on a duplicate type or number; tag
// registration happens once at package init.
func MustRegister(tags TagSet, contentType reflect.Type, number uint64) {
	err := tags.Add(cbor.TagOptions{
		EncTag: cbor.EncTagRequired,
		DecTag: cbor.DecTagRequired,
	}, contentType, number)
	if err != nil {
		panic(fmt.Sprintf("codec: registering tag %d for %v: %v", number, contentType, err))
	}
}

// New builds a Codec over tags. A nil TagSet yields the untagged
// default configuration.
func New(tags TagSet) (*Codec, error) {
	var (
		c   Codec
		err error
	)
	if tags == nil {
		c.enc, err = encodeOptions().EncMode()
	} else {
		c.enc, err = encodeOptions().EncModeWithTags(tags)
	}
	if err != nil {
		return nil, fmt.Errorf("encoder mode: %w", err)
	}
	if tags == nil {
		c.dec, err = decodeOptions().DecMode()
	} else {
		c.dec, err = decodeOptions().DecModeWithTags(tags)
	}
	if err != nil {
		return nil, fmt.Errorf("decoder mode: %w", err)
	}
	return &c, nil
}

// Marshal encodes v using Core Deterministic Encoding.
func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes data into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

// UnmarshalFirst decodes the first item of a CBOR sequence into v and
// returns the unconsumed remainder.
func (c *Codec) UnmarshalFirst(data []byte, v any) ([]byte, error) {
	return c.dec.UnmarshalFirst(data, v)
}

// NewEncoder returns a stream encoder writing to w.
func (c *Codec) NewEncoder(w io.Writer) *Encoder {
	return c.enc.NewEncoder(w)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for a
// sequence of data items. Used when logging frames that failed to
// decode.
func Diagnose(data []byte) (string, error) {
	return diagnoseMode.Diagnose(data)
}
