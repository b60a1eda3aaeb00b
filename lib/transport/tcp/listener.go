// Package tcp provides a plain TCP transport listener.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Listener is a transport.Listener over TCP.
type Listener struct {
	address  string
	deadline time.Duration

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

var _ transport.Listener = (*Listener)(nil)

// Option configures a Listener.
type Option func(*Listener)

// WithHandshakeDeadline sets a read/write deadline of d on every accepted
// connection. The consumer clears it once the connection is established.
// Zero disables the deadline.
func WithHandshakeDeadline(d time.Duration) Option {
	return func(l *Listener) {
		l.deadline = d
	}
}

// NewListener returns a listener that will bind to address when started.
func NewListener(address string, opts ...Option) *Listener {
	l := &Listener{address: address}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Addr returns the bound address once started, else the configured one.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr()
	}
	return transport.Addr{Net: "tcp", Address: l.address}
}

// Start binds the listening socket.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return transport.ErrListenerClosed
	}
	if l.ln != nil {
		return transport.ErrAlreadyStarted
	}
	ln, err := net.Listen("tcp", l.address)
	if err != nil {
		return oops.Wrapf(err, "failed to listen on %s", l.address)
	}
	l.ln = ln
	log.WithFields(logger.Fields{
		"at":      "tcp.Listener.Start",
		"address": ln.Addr().String(),
	}).Debug("TCP listener started")
	return nil
}

// Accept waits for the next TCP connection.
func (l *Listener) Accept() (net.Conn, error) {
	l.mu.Lock()
	ln, closed := l.ln, l.closed
	l.mu.Unlock()
	if closed {
		return nil, transport.ErrListenerClosed
	}
	if ln == nil {
		return nil, transport.ErrNotStarted
	}
	conn, err := ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || l.isClosed() {
			return nil, transport.ErrListenerClosed
		}
		return nil, oops.Wrapf(err, "tcp accept failed")
	}
	if l.deadline > 0 {
		if err := conn.SetDeadline(time.Now().Add(l.deadline)); err != nil {
			conn.Close()
			return nil, oops.Wrapf(err, "failed to set handshake deadline")
		}
	}
	return conn, nil
}

// Close closes the socket. Calls after the first are no-ops.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Dial opens a TCP connection to address.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to dial %s", address)
	}
	return conn, nil
}
