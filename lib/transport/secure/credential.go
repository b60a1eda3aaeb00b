package secure

import (
	stded25519 "crypto/ed25519"

	"github.com/flynn/noise"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/samber/oops"
)

// IdentitySigner is a long-term identity key that can prove ownership of a
// handshake static key.
type IdentitySigner interface {
	keys.Signer
	keys.PublicKeyHolder
}

// Credential is the identity proof presented during handshakes. It is
// created once and is safe for concurrent use.
type Credential struct {
	identity keys.Identity
	static   noise.DHKey
	payload  []byte
}

// NewCredential generates a fresh Noise static key and binds it to signer.
func NewCredential(signer IdentitySigner) (*Credential, error) {
	static, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to generate noise static key")
	}
	return newCredential(signer, static)
}

func newCredential(signer IdentitySigner, static noise.DHKey) (*Credential, error) {
	pub := signer.PublicKey()
	if len(pub) != stded25519.PublicKeySize {
		return nil, keys.ErrInvalidPublicKey
	}
	proof, err := signer.Sign(staticKeyProof(static.Public))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to sign noise static key")
	}
	if len(proof.Bytes) != stded25519.SignatureSize {
		return nil, oops.Errorf("identity signature is %d bytes, want %d", len(proof.Bytes), stded25519.SignatureSize)
	}
	payload := make([]byte, 0, payloadSize)
	payload = append(payload, pub...)
	payload = append(payload, proof.Bytes...)
	return &Credential{
		identity: signer.Identity(),
		static:   static,
		payload:  payload,
	}, nil
}

// Identity returns the identity the credential proves.
func (c *Credential) Identity() keys.Identity {
	return c.identity
}

// StaticPublicKey returns the Noise static public key.
func (c *Credential) StaticPublicKey() []byte {
	return append([]byte(nil), c.static.Public...)
}

func staticKeyProof(static []byte) []byte {
	msg := make([]byte, 0, len(staticKeySigPrefix)+len(static))
	msg = append(msg, staticKeySigPrefix...)
	return append(msg, static...)
}
