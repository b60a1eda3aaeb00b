package packet

import (
	"time"

	"github.com/go-i2p/go-peersec/lib/keys"
)

// SignedPacket is a Packet carrying authenticity metadata. Variants become
// signed packets by embedding SignedBase.
type SignedPacket interface {
	Packet
	// Timestamp returns the UTC creation time.
	Timestamp() time.Time
	// Direct reports whether the packet was received from its signer. It is
	// meaningful only on packets returned by Verify.
	Direct() bool

	base() *SignedBase
}

// VerificationHook lets a signed packet variant decide whether a signature is
// acceptable. Variants that do not implement it accept any signature the
// signer verifies, regardless of directness.
type VerificationHook interface {
	VerifySignature(signer keys.Signer, sig *keys.Signature, direct bool) bool
}

// SignedBase holds the metadata shared by every signed packet.
type SignedBase struct {
	timestamp time.Time
	direct    bool
}

// NewSignedBase returns a base stamped with t, converted to UTC.
func NewSignedBase(t time.Time) SignedBase {
	return SignedBase{timestamp: t.UTC()}
}

// Timestamp returns the UTC creation time.
func (b *SignedBase) Timestamp() time.Time {
	return b.timestamp
}

// Direct reports whether the packet was received from its signer.
func (b *SignedBase) Direct() bool {
	return b.direct
}

func (b *SignedBase) base() *SignedBase {
	return b
}

// Header is the fixed prefix of the canonical signable buffer.
type Header struct {
	Salt      int32
	Timestamp time.Time
	Type      byte
}

// seal assigns the parsed header fields in one step once the body has been
// decoded, before the verification hook runs.
func seal(p SignedPacket, h Header, direct bool) {
	b := p.base()
	b.timestamp = h.Timestamp
	b.direct = direct
}

// DefaultVerify is the verification rule used when a variant does not
// implement VerificationHook.
func DefaultVerify(signer keys.Signer, sig *keys.Signature, _ bool) bool {
	return signer.Verify(sig)
}
