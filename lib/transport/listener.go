package transport

import "net"

// Listener produces raw connections bound to an address.
type Listener interface {
	// Addr returns the address the listener is bound to, or will bind to
	// when it has not been started.
	Addr() net.Addr
	// Start binds the listener. It must precede Accept.
	Start() error
	// Accept blocks until a connection arrives or the listener is closed.
	Accept() (net.Conn, error)
	// Close releases the listener and unblocks pending Accept calls.
	Close() error
}

// Addr is a net.Addr for a listener that has not resolved its address yet.
type Addr struct {
	Net     string
	Address string
}

func (a Addr) Network() string { return a.Net }
func (a Addr) String() string  { return a.Address }
