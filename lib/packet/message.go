package packet

import (
	"io"
	"time"

	"github.com/go-i2p/go-peersec/lib/keys"
)

// Packet type identifiers of the built-in variants.
const (
	TypeMessage       byte = 0x01
	TypeDirectMessage byte = 0x02
)

// Message is a signed text message. It accepts relayed copies.
type Message struct {
	SignedBase
	Text string
}

// NewMessage returns a message stamped with the current time.
func NewMessage(text string) *Message {
	return NewMessageAt(text, time.Now())
}

// NewMessageAt returns a message stamped with t.
func NewMessageAt(text string, t time.Time) *Message {
	return &Message{SignedBase: NewSignedBase(t), Text: text}
}

func (m *Message) Type() byte { return TypeMessage }

func (m *Message) WriteBody(w io.Writer) error {
	return WriteString(w, m.Text)
}

func (m *Message) ReadBody(r io.Reader) error {
	text, err := ReadString(r)
	if err != nil {
		return err
	}
	m.Text = text
	return nil
}

// DirectMessage is a signed text message that is only accepted from its
// signer. Relayed copies fail verification.
type DirectMessage struct {
	SignedBase
	Text string
}

// NewDirectMessage returns a direct message stamped with the current time.
func NewDirectMessage(text string) *DirectMessage {
	return NewDirectMessageAt(text, time.Now())
}

// NewDirectMessageAt returns a direct message stamped with t.
func NewDirectMessageAt(text string, t time.Time) *DirectMessage {
	return &DirectMessage{SignedBase: NewSignedBase(t), Text: text}
}

func (m *DirectMessage) Type() byte { return TypeDirectMessage }

func (m *DirectMessage) WriteBody(w io.Writer) error {
	return WriteString(w, m.Text)
}

func (m *DirectMessage) ReadBody(r io.Reader) error {
	text, err := ReadString(r)
	if err != nil {
		return err
	}
	m.Text = text
	return nil
}

// VerifySignature rejects packets that did not arrive from their signer.
func (m *DirectMessage) VerifySignature(signer keys.Signer, sig *keys.Signature, direct bool) bool {
	return direct && signer.Verify(sig)
}

// RegisterDefaults registers the built-in variants with r.
func RegisterDefaults(r *Registry) error {
	if err := r.Register(TypeMessage, func() Packet { return &Message{} }); err != nil {
		return err
	}
	return r.Register(TypeDirectMessage, func() Packet { return &DirectMessage{} })
}

// DefaultRegistry returns a Registry holding the built-in variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Registration into an empty registry cannot collide.
	_ = RegisterDefaults(r)
	return r
}
