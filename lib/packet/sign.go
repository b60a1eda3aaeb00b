package packet

import (
	"bytes"
	"encoding/binary"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

const (
	saltSize      = 4
	timestampSize = 8
	typeSize      = 1
	// HeaderSize is the length of the canonical buffer prefix preceding the
	// body: salt(4) + timestamp(8) + type(1).
	HeaderSize = saltSize + timestampSize + typeSize
)

// Sign produces a signature over the canonical signable buffer of p.
func Sign(p SignedPacket, signer keys.Signer) (*keys.Signature, error) {
	if signer == nil {
		return nil, securityError(MissingSigner, 0, nil)
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	payload, err := signableBytes(Header{
		Salt:      salt,
		Timestamp: p.Timestamp(),
		Type:      p.Type(),
	}, p)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to sign packet type %#02x", p.Type())
	}
	log.WithFields(logger.Fields{
		"at":     "Sign",
		"type":   p.Type(),
		"signer": signer.Identity().Short(),
		"length": len(payload),
	}).Debug("Signed packet")
	return sig, nil
}

// newSalt returns a uniformly distributed salt. It only decorrelates
// signatures over identical content.
func newSalt() (int32, error) {
	var b [saltSize]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, oops.Wrapf(err, "failed to generate salt")
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// signableBytes serializes h followed by the body of p.
func signableBytes(h Header, p Packet) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + 64)
	writeHeader(&buf, h)
	if err := p.WriteBody(&buf); err != nil {
		return nil, oops.Wrapf(err, "failed to write body of packet type %#02x", h.Type)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, h Header) {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(h.Salt))
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(TicksFromTime(h.Timestamp)))
	hdr[12] = h.Type
	buf.Write(hdr[:])
}

// ParseHeader reads the fixed header from the start of a signable buffer.
func ParseHeader(payload []byte) (Header, error) {
	if len(payload) < HeaderSize {
		return Header{}, securityError(MalformedPayload, 0, oops.Errorf("payload is %d bytes, need at least %d", len(payload), HeaderSize))
	}
	return Header{
		Salt:      int32(binary.LittleEndian.Uint32(payload[0:4])),
		Timestamp: TimeFromTicks(int64(binary.LittleEndian.Uint64(payload[4:12]))),
		Type:      payload[12],
	}, nil
}
