// Package keys provides peer identities and the signature primitive used by
// the signed packet protocol.
//
// # Identities
//
// An Identity is an equality-comparable peer identifier. Identities derived
// from key material are the lowercase I2P base32 encoding of the SHA-256 hash
// of an Ed25519 public key:
//
//	id := keys.IdentityFromPublicKey(pub)
//
// Nothing in this module interprets an Identity beyond comparing it.
//
// # Signers
//
// A Signer produces and verifies Signatures over byte buffers and exposes the
// identity it signs as. Ed25519Signer holds a private key and can do both;
// Ed25519Verifier holds only a public key and can only verify.
//
//	signer, err := keys.GenerateEd25519Signer()
//	sig, err := signer.Sign(payload)
//	ok := signer.Verify(sig)
//
// Signers are immutable after construction and safe for concurrent use.
//
// # Storage
//
// Keystore loads the local identity key from disk, creating it on first use.
// Book maps remote identities to the verifiers learned for them, typically
// from completed handshakes.
package keys
