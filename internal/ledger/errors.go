package ledger

import "errors"

var (
	ErrAssetExists      = errors.New("ledger: asset account already exists")
	ErrAssetNotFound    = errors.New("ledger: asset not found")
	ErrInvalidAuthority = errors.New("ledger: invalid authority")
	ErrAssetFrozen      = errors.New("ledger: asset is frozen")
	ErrAssetLocked      = errors.New("ledger: asset is permanently locked")
	ErrPluginExists     = errors.New("ledger: plugin already set")
	ErrInvalidRoyalties = errors.New("ledger: invalid royalties")
	ErrInvalidOwner     = errors.New("ledger: invalid owner")
)
