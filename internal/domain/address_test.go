package domain

import (
	"crypto/ed25519"
	"testing"
)

func testAddress(b byte) Address {
	var a Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestDeriveAddress_Deterministic(t *testing.T) {
	admin := testAddress(1)

	first := MarketplaceAddress(admin, 42)
	second := MarketplaceAddress(admin, 42)
	if first != second {
		t.Fatalf("Same inputs must derive the same address: %s != %s", first, second)
	}

	if MarketplaceAddress(admin, 43) == first {
		t.Error("Different seed must derive a different address")
	}
	if MarketplaceAddress(testAddress(2), 42) == first {
		t.Error("Different admin must derive a different address")
	}
}

func TestDeriveAddress_LengthPrefixed(t *testing.T) {
	a := DeriveAddress([]byte("ab"), []byte("c"))
	b := DeriveAddress([]byte("a"), []byte("bc"))
	if a == b {
		t.Error("Seed boundaries must be part of the derivation")
	}
}

func TestListingAddress_OrderMatters(t *testing.T) {
	m, c, asset := testAddress(1), testAddress(2), testAddress(3)

	if ListingAddress(m, c, asset) == ListingAddress(m, asset, c) {
		t.Error("Swapping creator and asset must change the address")
	}
	if ListingAddress(m, c, asset) == MarketplaceAddress(m, 0) {
		t.Error("Tags must separate namespaces")
	}
}

func TestParseAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	addr, err := AddressFromBytes(pub)
	if err != nil {
		t.Fatalf("AddressFromBytes failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		parsed, err := ParseAddress(addr.String())
		if err != nil {
			t.Fatalf("ParseAddress failed: %v", err)
		}
		if parsed != addr {
			t.Errorf("Expected %s, got %s", addr, parsed)
		}
	})

	t.Run("rejects bad base58", func(t *testing.T) {
		if _, err := ParseAddress("0OIl"); err == nil {
			t.Error("Expected error for invalid base58")
		}
	})

	t.Run("rejects short input", func(t *testing.T) {
		if _, err := ParseAddress("3yZe7d"); err == nil {
			t.Error("Expected error for short address")
		}
	})

	t.Run("text marshaling", func(t *testing.T) {
		text, _ := addr.MarshalText()
		var out Address
		if err := out.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText failed: %v", err)
		}
		if out != addr {
			t.Errorf("Expected %s, got %s", addr, out)
		}
	})
}

func TestSeedBytes_LittleEndian(t *testing.T) {
	b := SeedBytes(1)
	if len(b) != 8 || b[0] != 1 || b[7] != 0 {
		t.Errorf("Expected little-endian encoding, got %v", b)
	}
}
