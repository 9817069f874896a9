// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bureau-foundation/liveinspect/wire"
)

// CameraMode is which editor viewport, if any, the game renders
// through.
type CameraMode struct {
	kind     cameraKind
	viewport int
}

type cameraKind int

const (
	cameraNone cameraKind = iota
	camera2D
	camera3D
)

var (
	// CameraNone lets the game use its own cameras.
	CameraNone = CameraMode{}
	// Camera2D follows the 2D editor viewport.
	Camera2D = CameraMode{kind: camera2D}
)

// Camera3D follows the n-th 3D editor viewport.
func Camera3D(viewport int) CameraMode { return CameraMode{kind: camera3D, viewport: viewport} }

func (m CameraMode) String() string {
	switch m.kind {
	case camera2D:
		return "2d"
	case camera3D:
		return "3d_" + strconv.Itoa(m.viewport)
	default:
		return "none"
	}
}

// ParseCameraMode accepts "none", "2d" and "3d_N".
func ParseCameraMode(text string) (CameraMode, error) {
	switch {
	case text == "none" || text == "":
		return CameraNone, nil
	case text == "2d":
		return Camera2D, nil
	case strings.HasPrefix(text, "3d_"):
		viewport, err := strconv.Atoi(strings.TrimPrefix(text, "3d_"))
		if err != nil || viewport < 0 {
			return CameraNone, fmt.Errorf("invalid 3d viewport in camera mode %q", text)
		}
		return Camera3D(viewport), nil
	}
	return CameraNone, fmt.Errorf("unknown camera mode %q", text)
}

// EditorCamera2D is the 2D viewport's view: the canvas offset and zoom.
type EditorCamera2D struct {
	Offset wire.Vector2
	Zoom   float64
}

// Transform maps canvas coordinates to the viewport.
func (c EditorCamera2D) Transform() wire.Transform2D {
	zoom := c.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return wire.Scaled2D(wire.Vector2{X: zoom, Y: zoom}, wire.Vector2{X: -c.Offset.X * zoom, Y: -c.Offset.Y * zoom})
}

// EditorCamera3D is one 3D viewport's camera.
type EditorCamera3D struct {
	Transform   wire.Transform3D
	Perspective bool
	// FOVOrSize is degrees for perspective cameras, the orthogonal
	// size otherwise.
	FOVOrSize float64
	Near      float64
	Far       float64
}

// Camera tracks the override mode and the editor cameras it mirrors.
type Camera struct {
	mode     CameraMode
	camera2D EditorCamera2D
	cameras  map[int]EditorCamera3D
}

func newCamera() *Camera {
	return &Camera{camera2D: EditorCamera2D{Zoom: 1}, cameras: make(map[int]EditorCamera3D)}
}

// Mode returns the current override mode.
func (c *Camera) Mode() CameraMode { return c.mode }

// Set2D records the 2D viewport's camera.
func (c *Camera) Set2D(camera EditorCamera2D) { c.camera2D = camera }

// Set3D records a 3D viewport's camera.
func (c *Camera) Set3D(viewport int, camera EditorCamera3D) { c.cameras[viewport] = camera }

// setMode switches modes, sending the set messages for every side
// whose state changes.
func (c *Camera) setMode(mode CameraMode, send func(string, ...any)) {
	previous := c.mode
	c.mode = mode
	if previous.kind == mode.kind {
		return
	}
	switch previous.kind {
	case camera2D:
		send(wire.OverrideCamera2DSet, false)
	case camera3D:
		send(wire.OverrideCamera3DSet, false)
	}
	switch mode.kind {
	case camera2D:
		send(wire.OverrideCamera2DSet, true)
	case camera3D:
		send(wire.OverrideCamera3DSet, true)
	}
}

// tick sends the current transform of the followed viewport.
func (c *Camera) tick(send func(string, ...any)) {
	switch c.mode.kind {
	case camera2D:
		send(wire.OverrideCamera2DTransform, c.camera2D.Transform())
	case camera3D:
		camera, ok := c.cameras[c.mode.viewport]
		if !ok {
			return
		}
		send(wire.OverrideCamera3DTransform, camera.Transform, camera.Perspective, camera.FOVOrSize, camera.Near, camera.Far)
	}
}
