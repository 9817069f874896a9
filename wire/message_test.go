// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestFrameRoundtripPreservesValueTypes(t *testing.T) {
	original := NewMessage(InspectReply,
		ObjectID(0x42),
		"Sprite",
		[]any{
			Property{Name: "position", Type: TypeVector2, Usage: UsageDefault, Value: Vector2{X: 10, Y: 20}}.Tuple(),
			Property{Name: "texture", Type: TypeObject, Hint: HintResourceType, HintString: "Texture", Value: ResourcePath("res://icon.png")}.Tuple(),
		},
		NodePath("/root/player"),
		Transform3D{X: Vector3{X: 1}, Y: Vector3{Y: 1}, Z: Vector3{Z: 1}, Origin: Vector3{X: 3, Y: 4, Z: 5}},
		Color{R: 1, A: 0.5},
		map[string]any{"enabled": true, "count": int64(3)},
		nil,
		RID(9),
	)

	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, 0).WriteMessage(original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	decoded, size, err := NewFrameReader(&buffer, 0).ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if size <= 0 {
		t.Errorf("ReadMessage reported payload size %d", size)
	}
	if decoded.Name != original.Name {
		t.Fatalf("name = %q, want %q", decoded.Name, original.Name)
	}

	// Property tuples carry int64 for the enum fields after a
	// roundtrip; compare through ParseProperty instead of raw tuples.
	properties, err := decoded.Array(2)
	if err != nil {
		t.Fatalf("Array(2): %v", err)
	}
	position, err := ParseProperty(properties[0])
	if err != nil {
		t.Fatalf("ParseProperty: %v", err)
	}
	if position.Value != (Vector2{X: 10, Y: 20}) || position.Type != TypeVector2 || position.Usage != UsageDefault {
		t.Errorf("position property = %+v", position)
	}
	texture, _ := ParseProperty(properties[1])
	if texture.Value != ResourcePath("res://icon.png") || texture.HintString != "Texture" {
		t.Errorf("texture property = %+v", texture)
	}

	want := []any{
		ObjectID(0x42),
		"Sprite",
		nil, // compared above
		NodePath("/root/player"),
		Transform3D{X: Vector3{X: 1}, Y: Vector3{Y: 1}, Z: Vector3{Z: 1}, Origin: Vector3{X: 3, Y: 4, Z: 5}},
		Color{R: 1, A: 0.5},
		map[string]any{"enabled": true, "count": int64(3)},
		nil,
		RID(9),
	}
	for i, w := range want {
		if i == 2 {
			continue
		}
		if !reflect.DeepEqual(decoded.Args[i], w) {
			t.Errorf("arg %d = %#v, want %#v", i, decoded.Args[i], w)
		}
	}
}

func TestFrameCompressionAboveThreshold(t *testing.T) {
	nodes := make([]any, 0, 4000)
	for i := 0; i < 1000; i++ {
		nodes = append(nodes, int64(0), "Enemy", "KinematicBody2D", ObjectID(i+1))
	}
	original := NewMessage(SceneTree, nodes)

	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, 1024).WriteMessage(original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if buffer.Bytes()[0]&flagLZ4 == 0 {
		t.Fatal("large repetitive payload was not compressed")
	}
	decoded, _, err := NewFrameReader(&buffer, 0).ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	flat, _ := decoded.Array(0)
	if len(flat) != len(nodes) || flat[3999] != ObjectID(1000) {
		t.Fatalf("decompressed scene tree has %d items, last %v", len(flat), flat[len(flat)-1])
	}
}

func TestFrameSmallPayloadStaysUncompressed(t *testing.T) {
	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, 1024).WriteMessage(NewMessage(Continue)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if buffer.Bytes()[0] != 0 {
		t.Fatalf("flags = %#x, want 0", buffer.Bytes()[0])
	}
}

func TestReadMessageRejectsOversizeFrame(t *testing.T) {
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[1:], 4096)
	_, _, err := NewFrameReader(bytes.NewReader(header[:]), 1024).ReadMessage()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadMessageTruncatedPayload(t *testing.T) {
	var buffer bytes.Buffer
	if err := NewFrameWriter(&buffer, 0).WriteMessage(NewMessage(Output, []any{"hello", int64(0)})); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-2]
	if _, _, err := NewFrameReader(bytes.NewReader(truncated), 0).ReadMessage(); err == nil {
		t.Fatal("truncated frame decoded without error")
	}
}

func TestDecodePayloadArgcMismatch(t *testing.T) {
	payload, err := EncodePayload(NewMessage(Breakpoint, "res://a.gd", int64(3), true))
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	extra, _ := Codec().Marshal("surplus")
	if _, err := DecodePayload(append(payload, extra...)); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("DecodePayload with surplus value: err = %v", err)
	}

	short, _ := EncodePayload(NewMessage(Breakpoint, "res://a.gd"))
	// Rewrite argc from 1 to 2 (argc is the single byte after the
	// 11-byte name "breakpoint" encoding).
	short[11] = 0x02
	if _, err := DecodePayload(short); err == nil {
		t.Fatal("DecodePayload accepted a missing argument")
	}
}

func TestReadMessageReportsUndecodablePayload(t *testing.T) {
	payload, _ := EncodePayload(NewMessage(Breakpoint, "res://a.gd"))
	payload[11] = 0x02
	var frame bytes.Buffer
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	frame.Write(header[:])
	frame.Write(payload)

	_, _, err := NewFrameReader(&frame, 0).ReadMessage()
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want a DecodeError", err)
	}
	if !bytes.Equal(decodeErr.Payload, payload) {
		t.Errorf("payload = %x, want %x", decodeErr.Payload, payload)
	}
	if got := Diagnose(decodeErr.Payload); got != `"breakpoint", 2, "res://a.gd"` {
		t.Errorf("Diagnose = %s", got)
	}
	if got := Diagnose([]byte{0xff}); got != "h'ff'" {
		t.Errorf("Diagnose of malformed bytes = %s", got)
	}
}

func TestFramesAreReadInOrder(t *testing.T) {
	var buffer bytes.Buffer
	writer := NewFrameWriter(&buffer, 0)
	names := []string{LiveNodePath, LiveCreateNode, LiveNodeProp}
	for _, name := range names {
		if err := writer.WriteMessage(NewMessage(name, int64(1))); err != nil {
			t.Fatalf("WriteMessage(%s): %v", name, err)
		}
	}
	reader := NewFrameReader(&buffer, 0)
	for _, want := range names {
		message, _, err := reader.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if message.Name != want {
			t.Fatalf("got %s, want %s", message.Name, want)
		}
	}
}
