package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-i2p/go-peersec/lib/keys"
)

// MaxEnvelopePayload bounds the signable buffer accepted by ReadEnvelope.
const MaxEnvelopePayload = 64 * 1024

var ErrEnvelopeTooLarge = errors.New("envelope field exceeds limit")

// Envelope is a signature together with the public key of its signer, as
// exchanged on a stream.
type Envelope struct {
	PublicKey []byte
	Signature *keys.Signature
}

// Verifier returns a signer that verifies the envelope's signature with the
// embedded public key.
func (e *Envelope) Verifier() (keys.Signer, error) {
	v, err := keys.NewEd25519Verifier(e.PublicKey)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// WriteEnvelope writes
//
//	keyLen:uint16 | key | payloadLen:uint32 | payload | sigLen:uint16 | sig
//
// in little-endian order.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	if e == nil || e.Signature == nil {
		return fmt.Errorf("write envelope: missing signature")
	}
	if len(e.PublicKey) > math.MaxUint16 || len(e.Signature.Bytes) > math.MaxUint16 ||
		len(e.Signature.Payload) > MaxEnvelopePayload {
		return ErrEnvelopeTooLarge
	}
	size := 2 + len(e.PublicKey) + 4 + len(e.Signature.Payload) + 2 + len(e.Signature.Bytes)
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.PublicKey)))
	buf = append(buf, e.PublicKey...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Signature.Payload)))
	buf = append(buf, e.Signature.Payload...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Signature.Bytes)))
	buf = append(buf, e.Signature.Bytes...)
	_, err := w.Write(buf)
	return err
}

// ReadEnvelope reads one envelope written by WriteEnvelope. The signature's
// Signer field is derived from the embedded public key.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	pub, err := readField16(r)
	if err != nil {
		return nil, err
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	payloadLen := binary.LittleEndian.Uint32(lenBuf[:])
	if payloadLen > MaxEnvelopePayload {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrEnvelopeTooLarge, payloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	sig, err := readField16(r)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		PublicKey: pub,
		Signature: &keys.Signature{
			Payload: payload,
			Bytes:   sig,
			Signer:  keys.IdentityFromPublicKey(pub),
		},
	}, nil
}

func readField16(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	field := make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, field); err != nil {
		return nil, err
	}
	return field, nil
}
