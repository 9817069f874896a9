// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bureau-foundation/liveinspect/wire"
)

// NetworkRow is the accumulated multiplayer traffic of one node.
type NetworkRow struct {
	ID           wire.ObjectID
	Path         wire.NodePath
	IncomingRPC  int64
	IncomingRSET int64
	OutgoingRPC  int64
	OutgoingRSET int64
}

// Network accumulates network_profile rows by node for the current
// profiling run, along with the latest bandwidth totals.
type Network struct {
	active   bool
	rows     map[wire.ObjectID]*NetworkRow
	incoming int64
	outgoing int64
}

func newNetwork() *Network {
	return &Network{rows: make(map[wire.ObjectID]*NetworkRow)}
}

// Active reports whether network profiling is switched on.
func (n *Network) Active() bool { return n.active }

// Rows returns the per-node totals ordered by node id.
func (n *Network) Rows() []NetworkRow {
	out := make([]NetworkRow, 0, len(n.rows))
	for _, row := range n.rows {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b NetworkRow) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Bandwidth returns the running byte totals reported by the probe.
func (n *Network) Bandwidth() (incoming, outgoing int64) { return n.incoming, n.outgoing }

// Clear drops the accumulated rows and totals.
func (n *Network) Clear() {
	clear(n.rows)
	n.incoming, n.outgoing = 0, 0
}

const networkRowWidth = 6

func (n *Network) profile(message wire.Message) error {
	if len(message.Args)%networkRowWidth != 0 {
		return fmt.Errorf("%w: %s: %d values, not a multiple of %d",
			wire.ErrArgument, message.Name, len(message.Args), networkRowWidth)
	}
	type update struct {
		id     wire.ObjectID
		path   string
		counts [4]int64
	}
	updates := make([]update, 0, len(message.Args)/networkRowWidth)
	for i := 0; i < len(message.Args); i += networkRowWidth {
		var u update
		var err error
		if u.id, err = message.ObjectID(i); err != nil {
			return err
		}
		if u.path, err = message.Text(i + 1); err != nil {
			return err
		}
		for j := range u.counts {
			if u.counts[j], err = message.Int(i + 2 + j); err != nil {
				return err
			}
		}
		updates = append(updates, u)
	}
	for _, u := range updates {
		row, ok := n.rows[u.id]
		if !ok {
			row = &NetworkRow{ID: u.id}
			n.rows[u.id] = row
		}
		row.Path = wire.NodePath(u.path)
		row.IncomingRPC += u.counts[0]
		row.IncomingRSET += u.counts[1]
		row.OutgoingRPC += u.counts[2]
		row.OutgoingRSET += u.counts[3]
	}
	return nil
}

func (n *Network) bandwidth(message wire.Message) error {
	if err := message.Arity(2); err != nil {
		return err
	}
	incoming, err := message.Int(0)
	if err != nil {
		return err
	}
	outgoing, err := message.Int(1)
	if err != nil {
		return err
	}
	n.incoming, n.outgoing = incoming, outgoing
	return nil
}
