package node

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/go-peersec/lib/config"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/go-peersec/lib/packet"
	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/go-i2p/go-peersec/lib/transport/secure"
	"github.com/go-i2p/go-peersec/lib/transport/tcp"
	"github.com/go-i2p/go-peersec/lib/util/time/sntp"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// Delivery is a verified packet together with how it arrived.
type Delivery struct {
	Packet packet.SignedPacket
	// From is the authenticated identity of the connection it arrived on.
	From keys.Identity
	// Signer is the identity that signed it. It differs from From when the
	// packet was relayed.
	Signer   keys.Identity
	Envelope *packet.Envelope
}

// Handler receives verified packets. It is called from the connection's
// goroutine, so it must not block for long.
type Handler func(Delivery)

// Node is a go-peersec peer.
type Node struct {
	cfg       *config.Config
	signer    *keys.Ed25519Signer
	cred      *secure.Credential
	policy    secure.AuthPolicy
	// allowed is nil while every peer is accepted.
	allowed   atomic.Pointer[secure.AllowList]
	transport transport.Listener
	listener  *secure.Listener
	limiter   *rate.Limiter
	registry  *packet.Registry
	clock     sntp.Clock
	book      *keys.Book
	handler   Handler

	mu      sync.Mutex
	started bool
	closed  bool
	conns   map[*secure.Conn]struct{}
	wg      sync.WaitGroup
}

// New builds a node from cfg that signs as signer.
func New(cfg *config.Config, signer *keys.Ed25519Signer, opts ...Option) (*Node, error) {
	if cfg == nil {
		return nil, oops.Errorf("node: nil config")
	}
	if signer == nil {
		return nil, packet.ErrMissingSigner
	}
	cred, err := secure.NewCredential(signer)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		signer:   signer,
		cred:     cred,
		registry: packet.DefaultRegistry(),
		clock:    sntp.SystemClock{},
		book:     keys.NewBook(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Listen.AcceptRate), cfg.Listen.AcceptBurst),
		conns:    make(map[*secure.Conn]struct{}),
	}
	n.handler = n.logDelivery
	n.policy = secure.PolicyFunc(n.acceptPeer)
	n.SetAllowedPeers(cfg.Auth.AllowedPeers)
	for _, opt := range opts {
		opt(n)
	}
	if n.transport == nil {
		n.transport = tcp.NewListener(cfg.Listen.Address, tcp.WithHandshakeDeadline(cfg.Listen.HandshakeTimeout))
	}
	n.listener = secure.NewListener(n.transport, cred, secure.WithPolicy(n.policy))
	return n, nil
}

// Identity returns the node's identity.
func (n *Node) Identity() keys.Identity {
	return n.signer.Identity()
}

// Addr returns the listener address. It is the bound address once Start
// has returned.
func (n *Node) Addr() net.Addr {
	return n.listener.Addr()
}

// Book returns the identities the node has learned from handshakes and
// envelopes.
func (n *Node) Book() *keys.Book {
	return n.book
}

// SetAllowedPeers replaces the allow list used for both inbound and outbound
// handshakes. An empty list accepts every peer.
func (n *Node) SetAllowedPeers(peers []string) {
	ids := make([]keys.Identity, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, keys.Identity(p))
	}
	if len(ids) == 0 {
		n.allowed.Store(nil)
	} else {
		n.allowed.Store(secure.NewAllowList(ids...))
	}
	log.WithFields(logger.Fields{
		"at":    "Node.SetAllowedPeers",
		"peers": len(ids),
	}).Debug("Allow list updated")
}

// Start binds the listener.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return transport.ErrListenerClosed
	}
	if n.started {
		return nil
	}
	if err := n.listener.Start(); err != nil {
		return err
	}
	n.started = true
	log.WithFields(logger.Fields{
		"at":       "Node.Start",
		"address":  n.listener.Addr().String(),
		"identity": n.Identity().String(),
	}).Info("Listening for secure connections")
	return nil
}

// Serve starts the node if needed and accepts connections until ctx is done
// or Close is called. Each handshake runs in its own goroutine, so a stalled
// peer only holds up itself. Handshake failures are logged and do not stop
// the loop.
func (n *Node) Serve(ctx context.Context) error {
	if err := n.Start(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { n.Close() })
	defer stop()

	for {
		if err := n.limiter.Wait(ctx); err != nil {
			n.Close()
			return nil
		}
		raw, err := n.transport.Accept()
		if err != nil {
			if errors.Is(err, transport.ErrListenerClosed) {
				n.Close()
				return nil
			}
			log.WithError(err).Error("Accept failed")
			n.Close()
			return err
		}
		if !n.spawn(func() { n.handshake(raw) }) {
			raw.Close()
			return nil
		}
	}
}

// handshake secures raw and then serves it. The transport deadline bounds
// the handshake only, so it is cleared before envelopes are read.
func (n *Node) handshake(raw net.Conn) {
	conn, err := n.listener.Handshake(raw)
	if err != nil {
		if !errors.Is(err, transport.ErrListenerClosed) {
			log.WithFields(logger.Fields{
				"at":      "Node.handshake",
				"reason":  "handshake_failed",
				"addr":    raw.RemoteAddr().String(),
				"timeout": isTimeout(err),
			}).WithError(err).Warn("Dropped inbound connection")
		}
		return
	}
	if n.cfg.Listen.HandshakeTimeout > 0 {
		if err := conn.SetDeadline(time.Time{}); err != nil {
			conn.Close()
			return
		}
	}
	if !n.addConn(conn) {
		conn.Close()
		return
	}
	n.handleConn(conn)
}

// spawn runs f in a goroutine that Close waits for, unless the node is
// already closed.
func (n *Node) spawn(f func()) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		f()
	}()
	return true
}

func (n *Node) addConn(conn *secure.Conn) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.conns[conn] = struct{}{}
	return true
}

func (n *Node) removeConn(conn *secure.Conn) {
	n.mu.Lock()
	delete(n.conns, conn)
	n.mu.Unlock()
}

func (n *Node) acceptPeer(remote keys.Identity) bool {
	allowed := n.allowed.Load()
	return allowed == nil || allowed.Accept(remote)
}

func isTimeout(err error) bool {
	var he *secure.HandshakeError
	return errors.As(err, &he) && he.Timeout()
}

// handleConn verifies envelopes from conn until it is closed. A rejected
// packet is dropped; the envelope framing keeps the stream aligned.
func (n *Node) handleConn(conn *secure.Conn) {
	defer n.removeConn(conn)
	defer conn.Close()

	from := conn.RemoteIdentity()
	if _, err := n.book.AddPublicKey(conn.RemotePublicKey()); err != nil {
		log.WithError(err).Warn("Peer presented an unusable public key")
		return
	}

	for {
		env, err := packet.ReadEnvelope(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.WithFields(logger.Fields{
					"at":   "Node.handleConn",
					"peer": from.Short(),
				}).WithError(err).Warn("Closing connection after read error")
			}
			return
		}
		n.deliver(from, env)
	}
}

func (n *Node) deliver(from keys.Identity, env *packet.Envelope) {
	signer, err := n.signerFor(env)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":   "Node.deliver",
			"peer": from.Short(),
		}).WithError(err).Warn("Dropped envelope with invalid public key")
		return
	}
	p, err := packet.Verify(env.Signature, from, signer, n.registry)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "Node.deliver",
			"peer":   from.Short(),
			"signer": signer.Identity().Short(),
		}).WithError(err).Warn("Dropped packet")
		return
	}
	n.handler(Delivery{
		Packet:   p,
		From:     from,
		Signer:   signer.Identity(),
		Envelope: env,
	})
}

// signerFor returns the book entry for the envelope's signer, learning the
// envelope's public key if the signer is new.
func (n *Node) signerFor(env *packet.Envelope) (keys.Signer, error) {
	if s, ok := n.book.Lookup(env.Signature.Signer); ok {
		return s, nil
	}
	v, err := env.Verifier()
	if err != nil {
		return nil, err
	}
	n.book.Add(v)
	return v, nil
}

func (n *Node) logDelivery(d Delivery) {
	fields := logger.Fields{
		"at":     "Node.deliver",
		"from":   d.From.Short(),
		"signer": d.Signer.Short(),
		"type":   d.Packet.Type(),
		"direct": d.Packet.Direct(),
		"time":   d.Packet.Timestamp().Format(time.RFC3339Nano),
	}
	switch m := d.Packet.(type) {
	case *packet.Message:
		fields["text"] = m.Text
	case *packet.DirectMessage:
		fields["text"] = m.Text
	}
	log.WithFields(fields).Info("Received packet")
}

// Close stops the listener, interrupts handshakes in progress, closes open
// connections and waits for their goroutines. It is safe to call more than once.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.wg.Wait()
		return nil
	}
	n.closed = true
	conns := make([]*secure.Conn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	n.mu.Unlock()

	err := n.listener.Close()
	for _, c := range conns {
		c.Close()
	}
	n.wg.Wait()
	return err
}
