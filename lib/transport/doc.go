// Package transport defines the listener contract shared by plain and secured
// stream transports.
//
// # Listener
//
// A Listener is bound to an address, started once and then accepts ordered,
// reliable, bidirectional connections until it is closed:
//
//	l := tcp.NewListener("127.0.0.1:7656")
//	if err := l.Start(); err != nil {
//	    return err
//	}
//	defer l.Close()
//	conn, err := l.Accept()
//
// Decorators such as lib/transport/secure wrap a Listener and implement the
// same contract, so callers cannot tell a secured listener from a plain one
// other than by the guarantees placed on returned connections.
//
// # Closing
//
// Close may be called from any goroutine while Accept is blocked. A blocked
// Accept returns ErrListenerClosed once Close has run.
package transport
