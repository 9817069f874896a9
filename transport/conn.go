// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/liveinspect/wire"
)

// ErrClosed is returned by Send after the connection has ended, and is
// the terminal error of a connection closed locally.
var ErrClosed = errors.New("connection closed")

// Options configures frame limits for a connection.
type Options struct {
	// MaxFrame bounds one payload. Zero selects wire.DefaultMaxFrame.
	MaxFrame int

	// InboxLimit bounds decoded input waiting for the consumer. Zero
	// selects 8 MiB.
	InboxLimit int

	// CompressAbove enables LZ4 for payloads longer than this many
	// bytes. Zero disables compression.
	CompressAbove int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxFrame <= 0 {
		o.MaxFrame = wire.DefaultMaxFrame
	}
	if o.InboxLimit <= 0 {
		o.InboxLimit = 8 << 20
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Conn is one framed protocol connection. Receive and Send never block;
// I/O runs on the connection's own reader and writer goroutines.
type Conn struct {
	netConn net.Conn
	options Options
	logger  *slog.Logger

	inbox *Inbox

	mu      sync.Mutex
	outbox  [][]byte
	closing bool
	err     error
	wake    chan struct{}

	done       chan struct{}
	readerDone chan struct{}
	writerDone chan struct{}
	finishOnce sync.Once
}

// NewConn wraps netConn and starts its I/O goroutines.
func NewConn(netConn net.Conn, options Options) *Conn {
	options = options.withDefaults()
	c := &Conn{
		netConn:    netConn,
		options:    options,
		logger:     options.Logger.With("remote", netConn.RemoteAddr().String()),
		inbox:      NewInbox(options.InboxLimit),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	go func() {
		<-c.readerDone
		<-c.writerDone
		close(c.done)
	}()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.readerDone)
	reader := wire.NewFrameReader(c.netConn, c.options.MaxFrame)
	for {
		message, size, err := reader.ReadMessage()
		if err != nil {
			var decodeErr *wire.DecodeError
			if errors.As(err, &decodeErr) {
				c.logger.Warn("undecodable frame from debugger",
					"error", decodeErr.Err,
					"bytes", len(decodeErr.Payload),
					"payload", wire.Diagnose(decodeErr.Payload))
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				err = fmt.Errorf("%w: %v", ErrClosed, err)
			}
			c.fail(err)
			return
		}
		if err := c.inbox.Push(message, size); err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	for {
		c.mu.Lock()
		frames := c.outbox
		c.outbox = nil
		closing := c.closing
		failed := c.err != nil
		c.mu.Unlock()

		if failed {
			return
		}
		for _, frame := range frames {
			if _, err := c.netConn.Write(frame); err != nil {
				c.fail(fmt.Errorf("write frame: %w", err))
				return
			}
		}
		if closing && len(frames) == 0 {
			c.fail(ErrClosed)
			return
		}
		if len(frames) > 0 {
			continue
		}
		<-c.wake
	}
}

// fail records the first terminal error and closes the socket, which
// unblocks both goroutines.
func (c *Conn) fail(err error) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.netConn.Close()
		c.signalWriter()
		if !errors.Is(err, ErrClosed) {
			c.logger.Info("debugger connection lost", "error", err)
		}
	})
}

func (c *Conn) signalWriter() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Send encodes message and queues it for the writer. Encoding errors
// are returned to the caller and do not affect the connection.
func (c *Conn) Send(message wire.Message) error {
	frame, err := wire.EncodeFrame(message, c.options.CompressAbove)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.err != nil || c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	c.outbox = append(c.outbox, frame)
	c.mu.Unlock()
	c.signalWriter()
	return nil
}

// Receive pops the oldest decoded message, if any.
func (c *Conn) Receive() (wire.Message, bool) {
	return c.inbox.Pop()
}

// Pending returns the number of decoded messages waiting.
func (c *Conn) Pending() int {
	return c.inbox.Len()
}

// Ready is signalled when new input arrives.
func (c *Conn) Ready() <-chan struct{} {
	return c.inbox.Notify()
}

// Done is closed once both I/O goroutines have exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error, or nil while the connection is up.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Alive reports whether the connection can still carry traffic. Queued
// input remains readable after the connection dies.
func (c *Conn) Alive() bool {
	return c.Err() == nil
}

// Close flushes queued output, then closes the socket. It does not
// wait; use Done to observe completion.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.signalWriter()
	return nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Pipe returns two connected in-memory connections.
func Pipe(options Options) (*Conn, *Conn) {
	left, right := net.Pipe()
	return NewConn(left, options), NewConn(right, options)
}
