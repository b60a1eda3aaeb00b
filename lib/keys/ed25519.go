package keys

import (
	stded25519 "crypto/ed25519"

	"github.com/go-i2p/crypto/ed25519"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/crypto/types"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer struct {
	private  ed25519.Ed25519PrivateKey
	public   []byte
	signer   types.Signer
	verifier types.Verifier
	identity Identity
}

var (
	_ Signer          = (*Ed25519Signer)(nil)
	_ PublicKeyHolder = (*Ed25519Signer)(nil)
)

// GenerateEd25519Signer creates a signer for a freshly generated key.
func GenerateEd25519Signer() (*Ed25519Signer, error) {
	_, priv, err := stded25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to generate ed25519 key")
	}
	return NewEd25519Signer(priv)
}

// NewEd25519Signer creates a signer from a 64-byte Ed25519 private key.
func NewEd25519Signer(private []byte) (*Ed25519Signer, error) {
	if len(private) != stded25519.PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	key, err := ed25519.NewEd25519PrivateKey(private)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to load ed25519 private key")
	}
	pub, err := key.Public()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to derive ed25519 public key")
	}
	signer, err := key.NewSigner()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create ed25519 signer")
	}
	verifier, err := pub.NewVerifier()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create ed25519 verifier")
	}
	public := append([]byte(nil), pub.Bytes()...)
	s := &Ed25519Signer{
		private:  key,
		public:   public,
		signer:   signer,
		verifier: verifier,
		identity: IdentityFromPublicKey(public),
	}
	log.WithFields(logger.Fields{
		"at":       "NewEd25519Signer",
		"identity": s.identity.Short(),
	}).Debug("Loaded ed25519 signer")
	return s, nil
}

// Sign signs data.
func (s *Ed25519Signer) Sign(data []byte) (*Signature, error) {
	raw, err := s.signer.Sign(data)
	if err != nil {
		return nil, oops.Wrapf(err, "ed25519 sign failed")
	}
	return &Signature{
		Payload: append([]byte(nil), data...),
		Bytes:   raw,
		Signer:  s.identity,
	}, nil
}

// Verify reports whether sig is a valid signature by this key.
func (s *Ed25519Signer) Verify(sig *Signature) bool {
	if sig == nil || sig.Signer != s.identity {
		return false
	}
	return s.verifier.Verify(sig.Payload, sig.Bytes) == nil
}

// Identity returns the identity derived from the public key.
func (s *Ed25519Signer) Identity() Identity {
	return s.identity
}

// PublicKey returns a copy of the 32-byte public key.
func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.public...)
}

// PrivateKey returns a copy of the 64-byte private key.
func (s *Ed25519Signer) PrivateKey() []byte {
	return append([]byte(nil), s.private...)
}

// Ed25519Verifier verifies signatures for a known Ed25519 public key. It
// cannot sign.
type Ed25519Verifier struct {
	public   stded25519.PublicKey
	identity Identity
}

var (
	_ Signer          = (*Ed25519Verifier)(nil)
	_ PublicKeyHolder = (*Ed25519Verifier)(nil)
)

// NewEd25519Verifier creates a verifier from a 32-byte public key.
func NewEd25519Verifier(public []byte) (*Ed25519Verifier, error) {
	if len(public) != stded25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	pub := make(stded25519.PublicKey, stded25519.PublicKeySize)
	copy(pub, public)
	return &Ed25519Verifier{
		public:   pub,
		identity: IdentityFromPublicKey(pub),
	}, nil
}

// Sign always fails with ErrNoPrivateKey.
func (v *Ed25519Verifier) Sign([]byte) (*Signature, error) {
	return nil, ErrNoPrivateKey
}

// Verify reports whether sig is a valid signature by this key.
func (v *Ed25519Verifier) Verify(sig *Signature) bool {
	if sig == nil || sig.Signer != v.identity {
		return false
	}
	return stded25519.Verify(v.public, sig.Payload, sig.Bytes)
}

// Identity returns the identity derived from the public key.
func (v *Ed25519Verifier) Identity() Identity {
	return v.identity
}

// PublicKey returns a copy of the public key.
func (v *Ed25519Verifier) PublicKey() []byte {
	return append([]byte(nil), v.public...)
}
