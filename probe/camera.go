// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"

	"github.com/bureau-foundation/liveinspect/wire"
)

// CameraOverride is the editor camera the inspector asked the game to
// render through. The host applies it to its active viewport.
type CameraOverride struct {
	Enabled2D   bool
	Transform2D wire.Transform2D

	Enabled3D   bool
	Transform3D wire.Transform3D
	Perspective bool
	// FOVOrSize is the field of view in degrees for perspective
	// cameras, the orthogonal size otherwise.
	FOVOrSize float64
	Near      float64
	Far       float64
}

func (c *CameraOverride) apply(message wire.Message) error {
	switch message.Name {
	case wire.OverrideCamera2DSet:
		enabled, err := message.Bool(0)
		if err != nil {
			return err
		}
		c.Enabled2D = enabled
	case wire.OverrideCamera3DSet:
		enabled, err := message.Bool(0)
		if err != nil {
			return err
		}
		c.Enabled3D = enabled
	case wire.OverrideCamera2DTransform:
		value, err := message.Value(0)
		if err != nil {
			return err
		}
		transform, ok := value.(wire.Transform2D)
		if !ok {
			return fmt.Errorf("%w: transform is %s", wire.ErrArgument, wire.Describe(value))
		}
		c.Transform2D = transform
	case wire.OverrideCamera3DTransform:
		if err := message.Arity(5); err != nil {
			return err
		}
		value, _ := message.Value(0)
		transform, ok := value.(wire.Transform3D)
		if !ok {
			return fmt.Errorf("%w: transform is %s", wire.ErrArgument, wire.Describe(value))
		}
		perspective, err := message.Bool(1)
		if err != nil {
			return err
		}
		fovOrSize, err := message.Float(2)
		if err != nil {
			return err
		}
		near, err := message.Float(3)
		if err != nil {
			return err
		}
		far, err := message.Float(4)
		if err != nil {
			return err
		}
		c.Transform3D = transform
		c.Perspective = perspective
		c.FOVOrSize, c.Near, c.Far = fovOrSize, near, far
	}
	return nil
}
