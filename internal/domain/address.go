package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// AddressSize is the length of every account address in bytes.
const AddressSize = 32

const (
	// SeedMarketplace tags marketplace registry addresses.
	SeedMarketplace = "marketplace"
	// SeedService tags listing addresses.
	SeedService = "service"

	deriveDomain = "service_market/derived/v1"
)

// Address identifies an account. Wallet addresses are ed25519 public keys,
// derived addresses are hashes of their seeds and can never sign.
type Address [AddressSize]byte

// ZeroAddress is the unset address.
var ZeroAddress Address

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("invalid address %q: length %d", s, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies a 32-byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("invalid address length: %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Less orders addresses bytewise. Lock acquisition relies on this order.
func (a Address) Less(b Address) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DeriveAddress computes a deterministic address from ordered seeds.
// Each seed is length-prefixed so ("ab","c") and ("a","bc") never collide.
func DeriveAddress(seeds ...[]byte) Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(deriveDomain))
	var lenBuf [4]byte
	for _, s := range seeds {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write(s)
	}
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// MarketplaceAddress derives ["marketplace", admin, seed].
func MarketplaceAddress(admin Address, seed uint64) Address {
	return DeriveAddress([]byte(SeedMarketplace), admin[:], SeedBytes(seed))
}

// ListingAddress derives ["service", marketplace, creator, asset].
func ListingAddress(marketplace, creator, asset Address) Address {
	return DeriveAddress([]byte(SeedService), marketplace[:], creator[:], asset[:])
}

// SeedBytes encodes a marketplace seed little-endian.
func SeedBytes(seed uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return b[:]
}
