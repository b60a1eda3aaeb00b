package node

import (
	"github.com/go-i2p/go-peersec/lib/packet"
	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/go-i2p/go-peersec/lib/util/time/sntp"
)

// Option configures a Node.
type Option func(*Node)

// WithHandler sets the function called for every verified packet.
func WithHandler(h Handler) Option {
	return func(n *Node) {
		if h != nil {
			n.handler = h
		}
	}
}

// WithClock sets the clock used to timestamp outgoing packets.
func WithClock(c sntp.Clock) Option {
	return func(n *Node) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithRegistry replaces the packet registry. It must contain every variant
// the node is expected to accept.
func WithRegistry(r *packet.Registry) Option {
	return func(n *Node) {
		if r != nil {
			n.registry = r
		}
	}
}

// WithTransport replaces the TCP listener beneath the secure listener.
func WithTransport(l transport.Listener) Option {
	return func(n *Node) {
		if l != nil {
			n.transport = l
		}
	}
}
