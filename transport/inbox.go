// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/liveinspect/wire"
)

// ErrInboxOverflow is the terminal error of a connection whose peer
// sent more than the inbox limit ahead of the consumer.
var ErrInboxOverflow = errors.New("input buffer limit exceeded")

// Inbox is a byte-bounded FIFO of decoded messages. Unlike a
// drop-oldest buffer, a full inbox rejects the push: losing a message
// in the middle of the stream would break path-id ordering, so the
// connection is dropped instead.
//
// The notify channel (capacity 1) wakes a consumer blocked waiting for
// input, such as the probe's break loop.
type Inbox struct {
	mu        sync.Mutex
	entries   []inboxEntry
	totalSize int
	maxSize   int
	notify    chan struct{}
}

type inboxEntry struct {
	message wire.Message
	size    int
}

// NewInbox creates an Inbox holding at most maxSize bytes of decoded
// payload.
func NewInbox(maxSize int) *Inbox {
	if maxSize <= 0 {
		panic(fmt.Sprintf("inbox: maxSize must be positive, got %d", maxSize))
	}
	return &Inbox{maxSize: maxSize, notify: make(chan struct{}, 1)}
}

// Push appends a message costing size bytes.
func (b *Inbox) Push(message wire.Message, size int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.totalSize+size > b.maxSize {
		return fmt.Errorf("%w: %d queued + %d new > %d", ErrInboxOverflow, b.totalSize, size, b.maxSize)
	}
	b.entries = append(b.entries, inboxEntry{message: message, size: size})
	b.totalSize += size

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest message. ok is false when empty.
func (b *Inbox) Pop() (wire.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return wire.Message{}, false
	}
	entry := b.entries[0]
	b.entries[0] = inboxEntry{}
	b.entries = b.entries[1:]
	b.totalSize -= entry.size
	return entry.message, true
}

// Len returns the number of queued messages.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Size returns the queued byte total.
func (b *Inbox) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}

// Notify returns a channel signalled after each Push.
func (b *Inbox) Notify() <-chan struct{} {
	return b.notify
}
