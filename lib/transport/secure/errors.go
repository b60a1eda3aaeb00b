package secure

import (
	"errors"
	"net"
)

// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	// ErrHandshakeFailure matches every *HandshakeError.
	ErrHandshakeFailure = errors.New("secure handshake failure")
	ErrPeerRejected     = errors.New("remote identity rejected by policy")
	ErrInvalidPayload   = errors.New("invalid handshake payload")
	ErrIdentityProof    = errors.New("static key is not signed by the identity key")
	ErrNotReady         = errors.New("connection not ready after handshake")
	ErrInvalidRecord    = errors.New("invalid record")
)

// HandshakeError reports a handshake that did not produce a usable
// connection. It is local to one connection attempt.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	if e.Err == nil {
		return "secure handshake failed: " + e.Op
	}
	return "secure handshake failed: " + e.Op + ": " + e.Err.Error()
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Is matches ErrHandshakeFailure.
func (e *HandshakeError) Is(target error) bool {
	return target == ErrHandshakeFailure
}

// Timeout reports whether the handshake failed because a transport deadline
// expired.
func (e *HandshakeError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// handshakeError wraps err unless it already is a *HandshakeError.
func handshakeError(op string, err error) *HandshakeError {
	var he *HandshakeError
	if errors.As(err, &he) {
		return he
	}
	return &HandshakeError{Op: op, Err: err}
}
