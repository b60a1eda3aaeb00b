// Package node runs a go-peersec peer: a rate-limited secure accept loop
// that verifies signed packets arriving on authenticated connections, and an
// outbound path that signs and sends them.
//
// Each inbound connection carries a stream of packet.Envelope values. Every
// envelope is verified with the connection's remote identity as the claimed
// sender, so a packet relayed by a peer other than its signer is reported as
// indirect and refused by variants that require directness.
//
// The node owns failure reporting: handshake failures and rejected packets
// are logged here and never retried.
package node
