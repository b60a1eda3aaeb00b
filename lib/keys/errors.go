package keys

import "errors"

// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	ErrNoPrivateKey      = errors.New("signer has no private key")
	ErrInvalidPrivateKey = errors.New("invalid ed25519 private key")
	ErrInvalidPublicKey  = errors.New("invalid ed25519 public key")
	ErrInvalidKeystore   = errors.New("invalid keystore file")
)
