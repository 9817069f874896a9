// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"cmp"
	"slices"
	"time"

	"github.com/bureau-foundation/liveinspect/wire"
)

// RPCCounts are per-node RPC and RSET counters for one profile
// interval.
type RPCCounts struct {
	IncomingRPC  int64
	IncomingRSET int64
	OutgoingRPC  int64
	OutgoingRSET int64
}

type nodeTraffic struct {
	id     wire.ObjectID
	path   wire.NodePath
	counts RPCCounts
}

// NetworkProfiler accumulates multiplayer traffic between network
// profile messages.
type NetworkProfiler struct {
	active   bool
	interval time.Duration
	next     time.Time

	nodes    map[wire.ObjectID]*nodeTraffic
	incoming int64
	outgoing int64
}

func newNetworkProfiler(interval time.Duration) *NetworkProfiler {
	return &NetworkProfiler{interval: interval, nodes: make(map[wire.ObjectID]*nodeTraffic)}
}

func (n *NetworkProfiler) start(now time.Time) {
	n.active = true
	n.reset(now)
}

func (n *NetworkProfiler) reset(now time.Time) {
	n.next = now.Add(n.interval)
	clear(n.nodes)
	n.incoming, n.outgoing = 0, 0
}

// Active reports whether network profiling is on.
func (n *NetworkProfiler) Active() bool { return n.active }

// RecordRPC adds counts for the node at path.
func (n *NetworkProfiler) RecordRPC(id wire.ObjectID, path wire.NodePath, counts RPCCounts) {
	if !n.active {
		return
	}
	traffic, ok := n.nodes[id]
	if !ok {
		traffic = &nodeTraffic{id: id, path: path}
		n.nodes[id] = traffic
	}
	traffic.counts.IncomingRPC += counts.IncomingRPC
	traffic.counts.IncomingRSET += counts.IncomingRSET
	traffic.counts.OutgoingRPC += counts.OutgoingRPC
	traffic.counts.OutgoingRSET += counts.OutgoingRSET
}

// RecordBandwidth adds transferred bytes in each direction. The
// bandwidth totals run for the whole profiling session.
func (n *NetworkProfiler) RecordBandwidth(incoming, outgoing int64) {
	if !n.active {
		return
	}
	n.incoming += incoming
	n.outgoing += outgoing
}

// flush returns the interval's rows as flat (id, path, in_rpc,
// in_rset, out_rpc, out_rset) groups, plus the bandwidth totals.
func (n *NetworkProfiler) flush(now time.Time) (rows []any, incoming, outgoing int64, ok bool) {
	if !n.active || now.Before(n.next) {
		return nil, 0, 0, false
	}
	n.next = now.Add(n.interval)
	nodes := make([]*nodeTraffic, 0, len(n.nodes))
	for _, traffic := range n.nodes {
		nodes = append(nodes, traffic)
	}
	slices.SortFunc(nodes, func(a, b *nodeTraffic) int { return cmp.Compare(a.id, b.id) })
	rows = make([]any, 0, 6*len(nodes))
	for _, traffic := range nodes {
		rows = append(rows, traffic.id, string(traffic.path),
			traffic.counts.IncomingRPC, traffic.counts.IncomingRSET,
			traffic.counts.OutgoingRPC, traffic.counts.OutgoingRSET)
	}
	clear(n.nodes)
	return rows, n.incoming, n.outgoing, true
}
