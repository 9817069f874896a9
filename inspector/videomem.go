// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/liveinspect/wire"
)

// VideoResource is one row of the video memory inventory.
type VideoResource struct {
	Path   string
	Type   string
	Format string
	Bytes  int64
}

// Size is the humanized byte count.
func (r VideoResource) Size() string { return humanize.IBytes(uint64(max(r.Bytes, 0))) }

// VideoMemory is the inventory reported by message:video_mem.
type VideoMemory struct {
	Resources []VideoResource
	Total     int64
}

// TotalSize is the humanized sum of every row.
func (v *VideoMemory) TotalSize() string { return humanize.IBytes(uint64(max(v.Total, 0))) }

// CSV returns the inventory as rows under a Path/Type/Format/Bytes
// header.
func (v *VideoMemory) CSV() [][]string {
	rows := [][]string{{"Path", "Type", "Format", "Bytes"}}
	for _, resource := range v.Resources {
		rows = append(rows, []string{resource.Path, resource.Type, resource.Format, strconv.FormatInt(resource.Bytes, 10)})
	}
	return rows
}

func decodeVideoMemory(message wire.Message) (*VideoMemory, error) {
	if len(message.Args)%4 != 0 {
		return nil, fmt.Errorf("%w: %s: %d values, not a multiple of 4", wire.ErrArgument, message.Name, len(message.Args))
	}
	inventory := &VideoMemory{}
	for i := 0; i < len(message.Args); i += 4 {
		path, err := message.Text(i)
		if err != nil {
			return nil, err
		}
		class, err := message.Text(i + 1)
		if err != nil {
			return nil, err
		}
		format, err := message.Text(i + 2)
		if err != nil {
			return nil, err
		}
		bytes, err := message.Int(i + 3)
		if err != nil {
			return nil, err
		}
		inventory.Resources = append(inventory.Resources, VideoResource{Path: path, Type: class, Format: format, Bytes: bytes})
		inventory.Total += bytes
	}
	return inventory, nil
}
