package packet

import "fmt"

// Kind classifies why a signed packet was rejected.
type Kind int

const (
	// MissingSigner means no signer was supplied to Verify or Sign.
	MissingSigner Kind = iota + 1
	// UnacceptableType means the type identifier does not resolve to a
	// signed packet variant.
	UnacceptableType
	// SignatureInvalid means the signature or the variant's verification
	// hook rejected the packet.
	SignatureInvalid
	// MalformedPayload means the payload is truncated, or the body could not
	// be decoded even though the signature itself is valid.
	MalformedPayload
)

func (k Kind) String() string {
	switch k {
	case MissingSigner:
		return "missing signer"
	case UnacceptableType:
		return "unacceptable type"
	case SignatureInvalid:
		return "signature invalid"
	case MalformedPayload:
		return "malformed payload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SecurityError reports a rejected packet. A packet is discarded whenever one
// is returned; nothing about it is partially trusted.
type SecurityError struct {
	Kind Kind
	// Type is the packet type identifier, when it was parsed.
	Type byte
	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. Any SecurityError of the same Kind matches.
var (
	ErrMissingSigner    = &SecurityError{Kind: MissingSigner}
	ErrUnacceptableType = &SecurityError{Kind: UnacceptableType}
	ErrSignatureInvalid = &SecurityError{Kind: SignatureInvalid}
	ErrMalformedPayload = &SecurityError{Kind: MalformedPayload}
)

func (e *SecurityError) Error() string {
	msg := "packet security error: " + e.Kind.String()
	if e.Kind == UnacceptableType || e.Kind == SignatureInvalid {
		msg += fmt.Sprintf(" (type %#02x)", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// Is matches any SecurityError with the same Kind.
func (e *SecurityError) Is(target error) bool {
	t, ok := target.(*SecurityError)
	return ok && t.Kind == e.Kind
}

func securityError(kind Kind, typeID byte, err error) *SecurityError {
	return &SecurityError{Kind: kind, Type: typeID, Err: err}
}
