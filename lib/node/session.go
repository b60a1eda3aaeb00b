package node

import (
	"context"
	"sync"

	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/go-peersec/lib/packet"
	"github.com/go-i2p/go-peersec/lib/transport/secure"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Session is an outbound authenticated connection to one peer.
type Session struct {
	node *Node
	conn *secure.Conn
	mu   sync.Mutex
}

// Dial connects to address and completes the initiator handshake. The
// node's policy applies to the responder's identity.
func (n *Node) Dial(ctx context.Context, address string) (*Session, error) {
	conn, err := secure.Dial(ctx, address, n.cred, n.policy)
	if err != nil {
		return nil, oops.Wrapf(err, "dial %s", address)
	}
	if _, err := n.book.AddPublicKey(conn.RemotePublicKey()); err != nil {
		conn.Close()
		return nil, err
	}
	log.WithFields(logger.Fields{
		"at":     "Node.Dial",
		"remote": conn.RemoteIdentity().Short(),
		"addr":   address,
	}).Debug("Opened session")
	return &Session{node: n, conn: conn}, nil
}

// Remote returns the authenticated identity of the peer.
func (s *Session) Remote() keys.Identity {
	return s.conn.RemoteIdentity()
}

// Send signs p with the node's signer and writes it.
func (s *Session) Send(p packet.SignedPacket) (*packet.Envelope, error) {
	sig, err := packet.Sign(p, s.node.signer)
	if err != nil {
		return nil, err
	}
	env := &packet.Envelope{PublicKey: s.node.signer.PublicKey(), Signature: sig}
	if err := s.Forward(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Forward writes env unchanged. The receiver compares the envelope's signer
// with this session's identity, so a forwarded packet arrives as indirect.
func (s *Session) Forward(env *packet.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := packet.WriteEnvelope(s.conn, env); err != nil {
		return oops.Wrapf(err, "write envelope to %s", s.Remote().Short())
	}
	return nil
}

// Close closes the connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Send dials address, writes a text packet and closes the session. direct
// selects a DirectMessage, which the receiver refuses unless it arrives
// straight from this node.
func (n *Node) Send(ctx context.Context, address, text string, direct bool) (*packet.Envelope, error) {
	var p packet.SignedPacket
	if direct {
		p = packet.NewDirectMessageAt(text, n.clock.Now())
	} else {
		p = packet.NewMessageAt(text, n.clock.Now())
	}
	s, err := n.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Send(p)
}

// Forward dials address and relays env without re-signing it.
func (n *Node) Forward(ctx context.Context, address string, env *packet.Envelope) error {
	s, err := n.Dial(ctx, address)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Forward(env)
}
