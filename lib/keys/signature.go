package keys

// Signature is a proof produced by a Signer over Payload.
//
// Payload is carried alongside the signature bytes so that a verifier can
// rebuild whatever was signed. Signatures are never modified after they are
// produced.
type Signature struct {
	// Payload is the exact byte buffer that was signed.
	Payload []byte
	// Bytes is the signature over Payload.
	Bytes []byte
	// Signer is the identity of the key that produced Bytes.
	Signer Identity
}

// Signer produces and verifies signatures for a single identity.
type Signer interface {
	// Sign signs data and returns the resulting signature.
	Sign(data []byte) (*Signature, error)
	// Verify reports whether sig was produced by this signer over sig.Payload.
	Verify(sig *Signature) bool
	// Identity returns the identity this signer signs as.
	Identity() Identity
}

// PublicKeyHolder is implemented by signers that can expose their public key.
type PublicKeyHolder interface {
	PublicKey() []byte
}
