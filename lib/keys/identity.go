package keys

import (
	"crypto/sha256"

	"github.com/go-i2p/common/base32"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Identity identifies a peer. Two identities are the same peer if and only if
// they compare equal.
type Identity string

// IdentityFromPublicKey derives the Identity for an Ed25519 public key.
func IdentityFromPublicKey(pub []byte) Identity {
	sum := sha256.Sum256(pub)
	return Identity(base32.EncodeToString(sum[:]))
}

// String returns the identity as text.
func (id Identity) String() string {
	return string(id)
}

// Short returns a truncated form of the identity suitable for log fields.
func (id Identity) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsZero reports whether the identity is empty.
func (id Identity) IsZero() bool {
	return id == ""
}
