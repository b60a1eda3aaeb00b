package secure

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/go-i2p/go-peersec/lib/transport/tcp"
	"github.com/go-i2p/logger"
)

// Listener decorates a transport.Listener. Every connection it returns has
// completed a responder handshake with its Credential.
//
// The Listener is safe to share, provided the wrapped listener tolerates the
// same concurrency. Raw connections are tracked while their handshake runs so
// that Close can interrupt them.
type Listener struct {
	inner     transport.Listener
	cred      *Credential
	policy    AuthPolicy
	handshake Handshaker

	mu      sync.Mutex
	closed  bool
	pending map[net.Conn]struct{}
}

var _ transport.Listener = (*Listener)(nil)

// Option configures a Listener.
type Option func(*Listener)

// WithPolicy sets the policy consulted for remote identities. The default is
// AcceptAll.
func WithPolicy(policy AuthPolicy) Option {
	return func(l *Listener) {
		if policy != nil {
			l.policy = policy
		}
	}
}

// WithHandshaker replaces the responder handshake.
func WithHandshaker(h Handshaker) Option {
	return func(l *Listener) {
		if h != nil {
			l.handshake = h
		}
	}
}

// NewListener wraps inner so that it only returns connections authenticated
// with cred.
func NewListener(inner transport.Listener, cred *Credential, opts ...Option) *Listener {
	l := &Listener{
		inner:     inner,
		cred:      cred,
		policy:    AcceptAll,
		handshake: ServerHandshake,
		pending:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Addr delegates to the wrapped listener.
func (l *Listener) Addr() net.Addr {
	return l.inner.Addr()
}

// Start delegates to the wrapped listener.
func (l *Listener) Start() error {
	return l.inner.Start()
}

// Close closes the wrapped listener and every raw connection still in its
// handshake, so that blocked Accept calls return ErrListenerClosed.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	pending := make([]net.Conn, 0, len(l.pending))
	for raw := range l.pending {
		pending = append(pending, raw)
	}
	l.mu.Unlock()

	err := l.inner.Close()
	for _, raw := range pending {
		raw.Close()
	}
	return err
}

func (l *Listener) track(raw net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.pending[raw] = struct{}{}
	return true
}

// untrack reports whether the listener was closed while raw was in flight.
func (l *Listener) untrack(raw net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, raw)
	return l.closed
}

// InFlight returns the number of handshakes in progress.
func (l *Listener) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Accept implements transport.Listener. The returned connection is a *Conn.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.AcceptSecure()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AcceptSecure waits for the next raw connection and performs the responder
// handshake on it. Errors from the wrapped listener are returned unchanged;
// handshake errors are *HandshakeError values and leave the listener usable.
func (l *Listener) AcceptSecure() (*Conn, error) {
	raw, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}
	return l.Handshake(raw)
}

// Handshake performs the responder handshake on a raw connection accepted
// from the wrapped listener. It lets callers accept in one goroutine and
// handshake in others. raw is closed on failure, and a handshake cut short by
// Close returns transport.ErrListenerClosed.
func (l *Listener) Handshake(raw net.Conn) (*Conn, error) {
	if !l.track(raw) {
		raw.Close()
		return nil, transport.ErrListenerClosed
	}
	conn, err := l.handshake(raw, l.cred, l.policy)
	closed := l.untrack(raw)
	if err != nil {
		raw.Close()
		if closed {
			return nil, transport.ErrListenerClosed
		}
		return nil, handshakeError("accept", err)
	}
	if closed {
		raw.Close()
		return nil, transport.ErrListenerClosed
	}
	if !conn.Ready() {
		raw.Close()
		return nil, &HandshakeError{Op: "accept", Err: ErrNotReady}
	}
	log.WithFields(logger.Fields{
		"at":     "Listener.Handshake",
		"remote": conn.RemoteIdentity().Short(),
		"addr":   raw.RemoteAddr().String(),
	}).Debug("Accepted secure connection")
	return conn, nil
}

// Client performs the initiator handshake over an established connection.
// raw is closed if the handshake fails.
func Client(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error) {
	conn, err := ClientHandshake(raw, cred, policy)
	if err != nil {
		raw.Close()
		return nil, handshakeError("client", err)
	}
	return conn, nil
}

// Dial connects to address over TCP and performs the initiator handshake.
// The context deadline, if any, bounds both the dial and the handshake.
func Dial(ctx context.Context, address string, cred *Credential, policy AuthPolicy) (*Conn, error) {
	raw, err := tcp.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := raw.SetDeadline(deadline); err != nil {
			raw.Close()
			return nil, err
		}
	}
	conn, err := Client(raw, cred, policy)
	if err != nil {
		return nil, err
	}
	if err := raw.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
