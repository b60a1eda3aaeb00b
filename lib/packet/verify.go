package packet

import (
	"bytes"
	"fmt"

	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Verify reconstructs the packet carried by sig and returns it only if the
// signature is accepted.
//
// claimed is the identity of the immediate sender, for example the remote
// identity of the authenticated connection the signature arrived on. The
// packet is direct when claimed equals signer.Identity(). Directness is always
// computed and passed to the variant's VerificationHook, which decides
// whether it matters.
//
// Each call is a single attempt: on error the decoded instance is discarded
// and the caller must start over with fresh input.
func Verify(sig *keys.Signature, claimed keys.Identity, signer keys.Signer, factory Factory) (SignedPacket, error) {
	if signer == nil {
		return nil, securityError(MissingSigner, 0, nil)
	}
	if sig == nil {
		return nil, securityError(MalformedPayload, 0, oops.Errorf("nil signature"))
	}

	header, err := ParseHeader(sig.Payload)
	if err != nil {
		return nil, err
	}

	p, err := resolveType(factory, header.Type)
	if err != nil {
		return nil, err
	}

	body := bytes.NewReader(sig.Payload[HeaderSize:])
	err = p.ReadBody(body)
	if err == nil && body.Len() > 0 {
		err = fmt.Errorf("%w: %d bytes left after body", ErrFramingDrift, body.Len())
	}
	if err != nil {
		// A body that does not decode is only reported as malformed when the
		// signer really produced it.
		if !signer.Verify(sig) {
			return nil, securityError(SignatureInvalid, header.Type, err)
		}
		return nil, securityError(MalformedPayload, header.Type, err)
	}

	// Hooks see the parsed timestamp and directness. A rejected instance is
	// never returned.
	direct := claimed == signer.Identity()
	seal(p, header, direct)

	accept := DefaultVerify
	if hook, ok := p.(VerificationHook); ok {
		accept = hook.VerifySignature
	}
	if !accept(signer, sig, direct) {
		log.WithFields(logger.Fields{
			"at":     "Verify",
			"type":   header.Type,
			"signer": signer.Identity().Short(),
			"direct": direct,
		}).Debug("Packet signature rejected")
		return nil, securityError(SignatureInvalid, header.Type, nil)
	}
	return p, nil
}

func resolveType(factory Factory, typeID byte) (SignedPacket, error) {
	if factory == nil {
		return nil, securityError(UnacceptableType, typeID, oops.Errorf("no packet factory"))
	}
	p, err := factory.Create(typeID)
	if err != nil {
		return nil, securityError(UnacceptableType, typeID, err)
	}
	sp, ok := p.(SignedPacket)
	if !ok {
		return nil, securityError(UnacceptableType, typeID, oops.Errorf("%T is not a signed packet", p))
	}
	return sp, nil
}
