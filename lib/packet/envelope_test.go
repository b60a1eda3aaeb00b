package packet

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeStream(t *testing.T) {
	signer, err := keys.GenerateEd25519Signer()
	require.NoError(t, err)

	var stream bytes.Buffer
	for _, text := range []string{"one", "two"} {
		sig, err := Sign(NewMessage(text), signer)
		require.NoError(t, err)
		require.NoError(t, WriteEnvelope(&stream, &Envelope{PublicKey: signer.PublicKey(), Signature: sig}))
	}

	for _, want := range []string{"one", "two"} {
		env, err := ReadEnvelope(&stream)
		require.NoError(t, err)
		assert.Equal(t, signer.Identity(), env.Signature.Signer)

		verifier, err := env.Verifier()
		require.NoError(t, err)
		got, err := Verify(env.Signature, signer.Identity(), verifier, DefaultRegistry())
		require.NoError(t, err)
		assert.Equal(t, want, got.(*Message).Text)
	}
	assert.Zero(t, stream.Len())
}

func TestReadEnvelopeRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0})
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], MaxEnvelopePayload+1)
	buf.Write(n[:])

	_, err := ReadEnvelope(&buf)
	assert.ErrorIs(t, err, ErrEnvelopeTooLarge)
}

func TestWriteEnvelopeRequiresSignature(t *testing.T) {
	assert.Error(t, WriteEnvelope(&bytes.Buffer{}, &Envelope{}))
	assert.Error(t, WriteEnvelope(&bytes.Buffer{}, nil))
}
