// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/liveinspect/wire"
)

func TestInboxFIFOAndAccounting(t *testing.T) {
	inbox := NewInbox(100)
	for i, name := range []string{"a", "b", "c"} {
		if err := inbox.Push(wire.NewMessage(name), 10*(i+1)); err != nil {
			t.Fatalf("Push(%s): %v", name, err)
		}
	}
	if inbox.Size() != 60 || inbox.Len() != 3 {
		t.Fatalf("Size=%d Len=%d, want 60/3", inbox.Size(), inbox.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		message, ok := inbox.Pop()
		if !ok || message.Name != want {
			t.Fatalf("Pop() = %v, %v; want %s", message, ok, want)
		}
	}
	if _, ok := inbox.Pop(); ok {
		t.Fatal("Pop() on empty inbox succeeded")
	}
	if inbox.Size() != 0 {
		t.Fatalf("Size=%d after draining", inbox.Size())
	}
}

func TestInboxOverflowRejectsWithoutDropping(t *testing.T) {
	inbox := NewInbox(50)
	if err := inbox.Push(wire.NewMessage("first"), 40); err != nil {
		t.Fatalf("Push: %v", err)
	}
	err := inbox.Push(wire.NewMessage("second"), 20)
	if !errors.Is(err, ErrInboxOverflow) {
		t.Fatalf("err = %v, want ErrInboxOverflow", err)
	}
	if message, _ := inbox.Pop(); message.Name != "first" {
		t.Fatalf("overflow disturbed queued message: got %s", message.Name)
	}
}

func TestInboxNotifyCoalesces(t *testing.T) {
	inbox := NewInbox(100)
	inbox.Push(wire.NewMessage("a"), 1)
	inbox.Push(wire.NewMessage("b"), 1)
	<-inbox.Notify()
	select {
	case <-inbox.Notify():
		t.Fatal("notify channel held more than one signal")
	default:
	}
}
