package identity

import (
	"crypto/ed25519"
	"fmt"

	"service_market/internal/domain"

	"github.com/mr-tron/base58/base58"
)

// Signature is a detached ed25519 signature.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// ParseSignature decodes a base58 signature.
func ParseSignature(str string) (Signature, error) {
	var s Signature
	raw, err := base58.Decode(str)
	if err != nil {
		return s, fmt.Errorf("invalid signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return s, fmt.Errorf("invalid signature length: %d", len(raw))
	}
	copy(s[:], raw)
	return s, nil
}

// Verify checks that signer produced sig over msg.
// Derived addresses are not curve points in practice, so they never verify.
func Verify(signer domain.Address, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(signer[:]), msg, sig[:])
}
