package domain

import (
	"fmt"

	"github.com/gosimple/slug"
)

// MaxBasisPoints is 100% expressed in basis points.
const MaxBasisPoints = 10000

// ListingStatus is the lifecycle state of a listing.
type ListingStatus uint8

const (
	ListingListed ListingStatus = iota + 1
	ListingSold
)

// String returns the string representation of ListingStatus
func (s ListingStatus) String() string {
	switch s {
	case ListingListed:
		return "LISTED"
	case ListingSold:
		return "SOLD"
	default:
		return "UNKNOWN"
	}
}

// Listing is a service offered for sale, bound to exactly one asset.
// Listed -> Sold happens once; Sold is terminal and the record is kept as sale history.
type Listing struct {
	Address            Address       `json:"address"`
	Marketplace        Address       `json:"marketplace"`
	Creator            Address       `json:"creator"`
	Asset              Address       `json:"asset"`
	Name               string        `json:"name"`
	URI                string        `json:"uri"`
	Price              uint64        `json:"price"`
	RoyaltyBasisPoints uint16        `json:"royalty_basis_points"`
	Soulbound          bool          `json:"soulbound"`
	Status             ListingStatus `json:"status"`
	Buyer              Address       `json:"buyer"`
	ListedSeq          uint64        `json:"listed_seq"`
	SoldSeq            uint64        `json:"sold_seq"`
}

func (l *Listing) AccountAddress() Address { return l.Address }
func (l *Listing) Kind() AccountKind       { return KindListing }

func (l *Listing) Clone() Account {
	c := *l
	return &c
}

// StampSeq fills in the listing and sale sequence numbers as they happen.
func (l *Listing) StampSeq(seq uint64) {
	if l.ListedSeq == 0 {
		l.ListedSeq = seq
	}
	if l.Status == ListingSold && l.SoldSeq == 0 {
		l.SoldSeq = seq
	}
}

// IsOpen checks if the listing can still be bought.
func (l *Listing) IsOpen() bool {
	return l.Status == ListingListed
}

// Slug returns a URL-friendly identifier for display.
func (l *Listing) Slug() string {
	return CreateListingSlug(l.Name, l.Asset)
}

// CreateListingSlug builds "<name>-<first 8 chars of asset>".
func CreateListingSlug(name string, asset Address) string {
	short := asset.String()
	if len(short) > 8 {
		short = short[:8]
	}
	return slug.Make(fmt.Sprintf("%s-%s", name, short))
}

// ValidateTerms checks the listing invariants price > 0 and bps <= 10000.
func ValidateTerms(price uint64, royaltyBasisPoints uint16) error {
	if price == 0 {
		return ErrInvalidPrice
	}
	if royaltyBasisPoints > MaxBasisPoints {
		return ErrInvalidRoyalty
	}
	return nil
}
