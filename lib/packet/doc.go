// Package packet defines application packets and the signed packet protocol.
//
// # Packets and factories
//
// A Packet has a stable one-byte type identifier and a body it can write and
// read. A Factory maps a type identifier to an empty instance of the matching
// variant; Registry is the standard Factory.
//
// Body encoding is not self-describing. Every variant's ReadBody must consume
// exactly the bytes its WriteBody produced, otherwise whatever follows on the
// stream is misread. CheckFraming can be used in tests to confirm this.
//
// # Signed packets
//
// Variants that embed SignedBase are signed packets. Sign builds the canonical
// signable buffer
//
//	salt:int32 | timestamp:int64 (UTC ticks) | type:uint8 | body
//
// in little-endian order and passes it to a keys.Signer. Verify parses a
// signature payload back into a packet, computes directness (whether the
// claimed sender is the signer) and only returns the packet once the
// signature has been accepted.
//
// The salt only decorrelates signatures of identical content. It is not a
// nonce and carries no secrecy or anti-replay property. Decoded timestamps are
// not checked for freshness.
//
// # Verification hooks
//
// By default a signed packet is accepted when signer.Verify succeeds and
// directness is ignored. A variant can implement VerificationHook to impose
// stricter rules, for example DirectMessage rejects packets relayed by
// anyone other than their signer.
package packet
