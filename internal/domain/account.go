package domain

// AccountKind discriminates stored account records.
type AccountKind uint8

const (
	KindWallet AccountKind = iota + 1
	KindMarketplace
	KindListing
	KindAsset
)

// String returns the string representation of AccountKind
func (k AccountKind) String() string {
	switch k {
	case KindWallet:
		return "WALLET"
	case KindMarketplace:
		return "MARKETPLACE"
	case KindListing:
		return "LISTING"
	case KindAsset:
		return "ASSET"
	default:
		return "UNKNOWN"
	}
}

// Account is any record stored at an address.
// Clone must return a deep copy; transactions stage mutations on clones.
type Account interface {
	AccountAddress() Address
	Kind() AccountKind
	Clone() Account
}

// Sequenced accounts record the sequence number of the instruction that
// committed them. The bank stamps every dirty account on commit.
type Sequenced interface {
	StampSeq(seq uint64)
}
