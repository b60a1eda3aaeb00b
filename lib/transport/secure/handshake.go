package secure

import (
	stded25519 "crypto/ed25519"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/flynn/noise"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

const (
	// Prologue is mixed into every handshake hash.
	Prologue = "go-peersec/1"

	staticKeySigPrefix = "go-peersec-static-key:"
	payloadSize        = stded25519.PublicKeySize + stded25519.SignatureSize
)

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// Handshaker upgrades a raw connection in the responder role. It is
// replaceable on a Listener with WithHandshaker.
type Handshaker func(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error)

// ServerHandshake performs the responder side of the handshake.
func ServerHandshake(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error) {
	return handshake(raw, cred, policy, false)
}

// ClientHandshake performs the initiator side of the handshake.
func ClientHandshake(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error) {
	return handshake(raw, cred, policy, true)
}

type peer struct {
	identity  keys.Identity
	publicKey []byte
}

func handshake(raw net.Conn, cred *Credential, policy AuthPolicy, initiator bool) (*Conn, error) {
	if policy == nil {
		policy = AcceptAll
	}
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		Prologue:      []byte(Prologue),
		StaticKeypair: cred.static,
	})
	if err != nil {
		return nil, &HandshakeError{Op: "init", Err: err}
	}

	var (
		send, recv *noise.CipherState
		remote     peer
	)
	if initiator {
		send, recv, remote, err = initiatorRounds(raw, hs, cred.payload, policy)
	} else {
		send, recv, remote, err = responderRounds(raw, hs, cred.payload, policy)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"at":        "handshake",
		"initiator": initiator,
		"local":     cred.identity.Short(),
		"remote":    remote.identity.Short(),
	}).Debug("Handshake complete")

	return newConn(raw, send, recv, cred.identity, remote), nil
}

// initiatorRounds runs
//
//	-> e
//	<- e, ee, s, es, payload
//	-> s, se, payload
//
// and checks the responder's identity before revealing its own.
func initiatorRounds(raw net.Conn, hs *noise.HandshakeState, payload []byte, policy AuthPolicy) (send, recv *noise.CipherState, remote peer, err error) {
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "write message 1", Err: err}
	}
	if err := writeFrame(raw, msg); err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "send message 1", Err: err}
	}

	msg, err = readFrame(raw)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "receive message 2", Err: err}
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "read message 2", Err: err}
	}
	remote, err = authenticate(remotePayload, hs.PeerStatic(), policy)
	if err != nil {
		return nil, nil, peer{}, err
	}

	msg, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "write message 3", Err: err}
	}
	if err := writeFrame(raw, msg); err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "send message 3", Err: err}
	}
	return cs1, cs2, remote, nil
}

// responderRounds is the mirror of initiatorRounds.
func responderRounds(raw net.Conn, hs *noise.HandshakeState, payload []byte, policy AuthPolicy) (send, recv *noise.CipherState, remote peer, err error) {
	msg, err := readFrame(raw)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "receive message 1", Err: err}
	}
	if _, _, _, err := hs.ReadMessage(nil, msg); err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "read message 1", Err: err}
	}

	msg, _, _, err = hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "write message 2", Err: err}
	}
	if err := writeFrame(raw, msg); err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "send message 2", Err: err}
	}

	msg, err = readFrame(raw)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "receive message 3", Err: err}
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, peer{}, &HandshakeError{Op: "read message 3", Err: err}
	}
	remote, err = authenticate(remotePayload, hs.PeerStatic(), policy)
	if err != nil {
		return nil, nil, peer{}, err
	}
	return cs2, cs1, remote, nil
}

// authenticate checks that the payload's identity key signed the peer's
// static key and that policy accepts the resulting identity.
func authenticate(payload, peerStatic []byte, policy AuthPolicy) (peer, error) {
	if len(payload) != payloadSize {
		return peer{}, &HandshakeError{
			Op:  "authenticate",
			Err: fmt.Errorf("%w: %d bytes, want %d", ErrInvalidPayload, len(payload), payloadSize),
		}
	}
	pub := payload[:stded25519.PublicKeySize]
	verifier, err := keys.NewEd25519Verifier(pub)
	if err != nil {
		return peer{}, &HandshakeError{Op: "authenticate", Err: err}
	}
	proof := &keys.Signature{
		Payload: staticKeyProof(peerStatic),
		Bytes:   payload[stded25519.PublicKeySize:],
		Signer:  verifier.Identity(),
	}
	if !verifier.Verify(proof) {
		return peer{}, &HandshakeError{Op: "authenticate", Err: ErrIdentityProof}
	}
	id := verifier.Identity()
	if !policy.Accept(id) {
		log.WithFields(logger.Fields{
			"at":     "authenticate",
			"remote": id.Short(),
		}).Debug("Remote identity rejected by policy")
		return peer{}, &HandshakeError{Op: "authenticate", Err: fmt.Errorf("%w: %s", ErrPeerRejected, id.Short())}
	}
	return peer{identity: id, publicKey: verifier.PublicKey()}, nil
}

// writeFrame writes a 2-byte big-endian length followed by data in a single
// write.
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > noise.MaxMsgLen {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(data), noise.MaxMsgLen)
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame reads a frame written by writeFrame.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
