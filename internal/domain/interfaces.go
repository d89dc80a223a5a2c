package domain

import (
	"context"
	"time"
)

// Accounts is the transactional view an instruction operates on.
// Reads return private copies; nothing is visible to others until commit.
type Accounts interface {
	// Get returns ErrUndeclaredAccount for addresses outside the instruction's lock set.
	Get(addr Address) (Account, bool, error)
	// Put stages an update to an existing or new account.
	Put(acc Account) error
	// Create stages a new account, failing with ErrAlreadyExists on collision.
	Create(acc Account) error
}

// CreateAssetArgs describes a new asset and the delegates assigned at creation.
type CreateAssetArgs struct {
	Address          Address
	Owner            Address
	UpdateAuthority  Address
	Name             string
	URI              string
	TransferDelegate *TransferDelegate
	FreezeDelegate   *FreezeDelegate
}

// AssetLedger is the external system of record for unique assets.
// Authority checks live in the ledger; callers pass the address acting as authority.
type AssetLedger interface {
	CreateAsset(accts Accounts, args CreateAssetArgs) (*Asset, error)
	AddRoyalties(accts Accounts, asset, authority Address, royalties Royalties) error
	AddAttributes(accts Accounts, asset, authority Address, attrs []Attribute) error
	Transfer(accts Accounts, asset, authority, newOwner Address) error
	Freeze(accts Accounts, asset, authority Address) error
	Lock(accts Accounts, asset, authority Address) error
	Asset(accts Accounts, addr Address) (*Asset, error)
}

// Publisher delivers committed events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// CommitRecord is everything one committed instruction changed.
type CommitRecord struct {
	Seq         uint64
	Instruction string
	Payload     []byte // JSON-encoded instruction
	Signers     []Address
	Accounts    []Account // post-commit state of every dirty account
	Event       []byte
	Time        time.Time
}

// Journal persists commits before they become visible in memory.
// An Append error aborts the commit.
type Journal interface {
	Append(ctx context.Context, rec *CommitRecord) error
}
