package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"service_market/internal/domain"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoWallet = "service_market/wallet/signing/v1"

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrInvalidKey      = errors.New("invalid key")
)

// Keypair is an ed25519 signing identity. Its public key is its address.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// FromSeed builds a keypair from a 32-byte ed25519 seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed size %d", ErrInvalidKey, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// NewMnemonic returns a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives the keypair at index from a BIP-39 mnemonic.
func FromMnemonic(mnemonic, passphrase string, index uint32) (*Keypair, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	signingSeed, err := hkdfExpand(seed, fmt.Sprintf("%s/%d", hkdfInfoWallet, index), ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return FromSeed(signingSeed)
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Address returns the wallet address of this keypair.
func (k *Keypair) Address() domain.Address {
	var a domain.Address
	copy(a[:], k.Public)
	return a
}

// Sign signs msg.
func (k *Keypair) Sign(msg []byte) Signature {
	var s Signature
	copy(s[:], ed25519.Sign(k.Private, msg))
	return s
}

// SecretString encodes the private key for storage in base58.
func (k *Keypair) SecretString() string {
	return base58.Encode(k.Private)
}

// ParseSecret decodes a base58 private key produced by SecretString.
func ParseSecret(s string) (*Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key size %d", ErrInvalidKey, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	return &Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}
