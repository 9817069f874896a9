// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// ListenConfig describes where the inspector accepts probes.
type ListenConfig struct {
	BindAddress string
	Port        int

	// Retries is the total number of consecutive ports tried,
	// starting at Port. Values below 1 mean 1.
	Retries int

	Options Options
}

// Server accepts at most one active probe connection.
type Server struct {
	listener net.Listener
	port     int
	options  Options
	logger   *slog.Logger

	pending chan net.Conn
	active  *Conn

	acceptDone chan struct{}
}

// Listen binds BindAddress:Port, moving to the next port each time the
// bind fails, up to Retries attempts. The error after the last attempt
// is returned.
func Listen(ctx context.Context, config ListenConfig) (*Server, error) {
	options := config.Options.withDefaults()
	retries := max(config.Retries, 1)

	var lastErr error
	listenConfig := net.ListenConfig{}
	for attempt := 0; attempt < retries; attempt++ {
		port := config.Port + attempt
		address := net.JoinHostPort(config.BindAddress, strconv.Itoa(port))
		listener, err := listenConfig.Listen(ctx, "tcp", address)
		if err == nil {
			return NewServer(listener, options), nil
		}
		lastErr = err
		if attempt+1 < retries {
			options.Logger.Warn("debugger port in use, trying next",
				"port", port, "next", port+1, "error", err)
		}
	}
	return nil, fmt.Errorf("listen on %s ports %d-%d: %w",
		config.BindAddress, config.Port, config.Port+retries-1, lastErr)
}

// NewServer serves on an existing listener.
func NewServer(listener net.Listener, options Options) *Server {
	options = options.withDefaults()
	s := &Server{
		listener:   listener,
		options:    options,
		logger:     options.Logger,
		pending:    make(chan net.Conn, 4),
		acceptDone: make(chan struct{}),
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}
	go s.acceptLoop()
	return s
}

func (s *Server) acceptLoop() {
	defer close(s.acceptDone)
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		select {
		case s.pending <- netConn:
		default:
			s.logger.Warn("rejecting connection, accept queue full", "remote", netConn.RemoteAddr().String())
			netConn.Close()
		}
	}
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// RejectPending closes every connection waiting in the accept queue
// and returns how many were closed.
func (s *Server) RejectPending() int {
	rejected := 0
	for {
		select {
		case netConn := <-s.pending:
			s.logger.Warn("rejecting second debugger connection",
				"remote", netConn.RemoteAddr().String())
			netConn.Close()
			rejected++
		default:
			return rejected
		}
	}
}

// Poll is the non-blocking step of the accept side. It forgets a dead
// active connection, promotes one pending connection when idle, and
// closes every other pending connection. It returns the active
// connection, which may be nil.
func (s *Server) Poll() *Conn {
	if s.active != nil && s.active.Err() != nil && s.active.Pending() == 0 {
		s.active = nil
	}
	if s.active == nil {
		select {
		case netConn := <-s.pending:
			s.active = NewConn(netConn, s.options)
		default:
		}
	}
	s.RejectPending()
	return s.active
}

// Active returns the current connection without polling.
func (s *Server) Active() *Conn { return s.active }

// Drop closes the active connection and forgets it.
func (s *Server) Drop() {
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
}

// Close stops accepting and closes the active connection.
func (s *Server) Close() error {
	err := s.listener.Close()
	<-s.acceptDone
	s.Drop()
	for {
		select {
		case netConn := <-s.pending:
			netConn.Close()
		default:
			return err
		}
	}
}

// Dial connects a probe to the inspector at address.
func Dial(ctx context.Context, address string, options Options) (*Conn, error) {
	netConn, err := (&net.Dialer{Timeout: 5 * time.Second}).DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial inspector at %s: %w", address, err)
	}
	return NewConn(netConn, options), nil
}
