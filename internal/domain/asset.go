package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Creator is a royalty beneficiary.
type Creator struct {
	Address    Address `json:"address"`
	Percentage uint8   `json:"percentage"`
}

// Royalties describes the resale fee enforced by the asset ledger.
type Royalties struct {
	BasisPoints uint16    `json:"basis_points"`
	Creators    []Creator `json:"creators"`
}

// Attribute is an immutable key/value pair attached to an asset.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TransferDelegate grants an address the right to move the asset.
// A non-permanent delegate is revoked on every ownership change.
type TransferDelegate struct {
	Authority Address `json:"authority"`
	Permanent bool    `json:"permanent"`
}

// FreezeDelegate grants an address the right to freeze the asset.
type FreezeDelegate struct {
	Authority Address `json:"authority"`
	Permanent bool    `json:"permanent"`
	Frozen    bool    `json:"frozen"`
}

// Asset is a unique non-fungible record held by the asset ledger.
type Asset struct {
	Address          Address           `json:"address"`
	Owner            Address           `json:"owner"`
	UpdateAuthority  Address           `json:"update_authority"`
	Name             string            `json:"name"`
	URI              string            `json:"uri"`
	Royalties        *Royalties        `json:"royalties,omitempty"`
	Attributes       []Attribute       `json:"attributes,omitempty"`
	TransferDelegate *TransferDelegate `json:"transfer_delegate,omitempty"`
	FreezeDelegate   *FreezeDelegate   `json:"freeze_delegate,omitempty"`
	// Locked disables every future transfer. Irreversible.
	Locked bool `json:"locked"`
}

func (a *Asset) AccountAddress() Address { return a.Address }
func (a *Asset) Kind() AccountKind       { return KindAsset }

func (a *Asset) Clone() Account {
	c := *a
	if a.Royalties != nil {
		r := *a.Royalties
		r.Creators = append([]Creator(nil), a.Royalties.Creators...)
		c.Royalties = &r
	}
	if a.Attributes != nil {
		c.Attributes = append([]Attribute(nil), a.Attributes...)
	}
	if a.TransferDelegate != nil {
		td := *a.TransferDelegate
		c.TransferDelegate = &td
	}
	if a.FreezeDelegate != nil {
		fd := *a.FreezeDelegate
		c.FreezeDelegate = &fd
	}
	return &c
}

// IsFrozen reports whether a freeze is currently in effect.
func (a *Asset) IsFrozen() bool {
	return a.Locked || (a.FreezeDelegate != nil && a.FreezeDelegate.Frozen)
}

// Attribute returns the value for key.
func (a *Asset) Attribute(key string) (string, bool) {
	for _, attr := range a.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// RoyaltyFor computes the royalty owed on a resale of amount, rounded down.
func (a *Asset) RoyaltyFor(amount uint64) uint64 {
	if a.Royalties == nil || a.Royalties.BasisPoints == 0 {
		return 0
	}
	due := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).
		Mul(decimal.NewFromInt(int64(a.Royalties.BasisPoints))).
		Div(decimal.NewFromInt(MaxBasisPoints)).
		Floor()
	return due.BigInt().Uint64()
}
