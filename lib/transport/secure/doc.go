// Package secure upgrades a transport.Listener into one that only returns
// mutually authenticated, encrypted connections.
//
// # Handshake
//
// Connections are secured with Noise_XX_25519_ChaChaPoly_SHA256 and the
// prologue "go-peersec/1". Handshake messages are framed with a 2-byte
// big-endian length. Each side's handshake payload is its Ed25519 identity
// public key followed by a signature over
//
//	"go-peersec-static-key:" || noise static public key
//
// which binds the ephemeral session to the long-term identity. The remote
// identity is derived from the verified public key and offered to the
// AuthPolicy before the connection is returned.
//
// # Failures
//
// A failed handshake closes the raw connection and returns a *HandshakeError
// matching ErrHandshakeFailure. Nothing about the failure is written back to
// the peer, and the Listener remains usable for the next Accept.
//
// # Records
//
// After the handshake every Write is split into records of at most
// MaxPlaintextSize bytes, each sent as a 2-byte big-endian ciphertext length
// followed by the ciphertext.
package secure
