package ledger

import (
	"fmt"

	"service_market/internal/domain"
)

// Core implements domain.AssetLedger. It is stateless; all state lives in the
// accounts view passed by the caller, so ledger mutations commit or roll back
// with the surrounding instruction.
type Core struct{}

// NewCore creates the asset ledger.
func NewCore() *Core {
	return &Core{}
}

var _ domain.AssetLedger = (*Core)(nil)

// CreateAsset registers a new asset owned by args.Owner.
func (c *Core) CreateAsset(accts domain.Accounts, args domain.CreateAssetArgs) (*domain.Asset, error) {
	if args.Address.IsZero() || args.Owner.IsZero() {
		return nil, ErrInvalidOwner
	}
	if _, exists, err := accts.Get(args.Address); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, args.Address)
	}

	asset := &domain.Asset{
		Address:         args.Address,
		Owner:           args.Owner,
		UpdateAuthority: args.UpdateAuthority,
		Name:            args.Name,
		URI:             args.URI,
	}
	if asset.UpdateAuthority.IsZero() {
		asset.UpdateAuthority = args.Owner
	}
	if args.TransferDelegate != nil {
		td := *args.TransferDelegate
		asset.TransferDelegate = &td
	}
	if args.FreezeDelegate != nil {
		fd := *args.FreezeDelegate
		asset.FreezeDelegate = &fd
	}

	if err := accts.Create(asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// AddRoyalties attaches the royalties plugin. Only the update authority may add it, once.
func (c *Core) AddRoyalties(accts domain.Accounts, addr, authority domain.Address, royalties domain.Royalties) error {
	asset, err := c.Asset(accts, addr)
	if err != nil {
		return err
	}
	if authority != asset.UpdateAuthority {
		return ErrInvalidAuthority
	}
	if asset.Royalties != nil {
		return fmt.Errorf("%w: royalties", ErrPluginExists)
	}
	if err := validateRoyalties(royalties); err != nil {
		return err
	}

	r := royalties
	r.Creators = append([]domain.Creator(nil), royalties.Creators...)
	asset.Royalties = &r
	return accts.Put(asset)
}

func validateRoyalties(r domain.Royalties) error {
	if r.BasisPoints > domain.MaxBasisPoints {
		return fmt.Errorf("%w: basis points %d", ErrInvalidRoyalties, r.BasisPoints)
	}
	total := 0
	for _, cr := range r.Creators {
		total += int(cr.Percentage)
	}
	if total != 100 {
		return fmt.Errorf("%w: creator shares sum to %d", ErrInvalidRoyalties, total)
	}
	return nil
}

// AddAttributes attaches immutable attributes. Only the update authority may add them, once.
func (c *Core) AddAttributes(accts domain.Accounts, addr, authority domain.Address, attrs []domain.Attribute) error {
	asset, err := c.Asset(accts, addr)
	if err != nil {
		return err
	}
	if authority != asset.UpdateAuthority {
		return ErrInvalidAuthority
	}
	if asset.Attributes != nil {
		return fmt.Errorf("%w: attributes", ErrPluginExists)
	}
	asset.Attributes = append(make([]domain.Attribute, 0, len(attrs)), attrs...)
	return accts.Put(asset)
}

// Transfer moves ownership to newOwner on behalf of authority.
func (c *Core) Transfer(accts domain.Accounts, addr, authority, newOwner domain.Address) error {
	if newOwner.IsZero() {
		return ErrInvalidOwner
	}
	asset, err := c.Asset(accts, addr)
	if err != nil {
		return err
	}
	if asset.Locked {
		return ErrAssetLocked
	}

	td := asset.TransferDelegate
	isDelegate := td != nil && td.Authority == authority
	isPermanentDelegate := isDelegate && td.Permanent
	if authority != asset.Owner && !isDelegate {
		return ErrInvalidAuthority
	}
	if asset.IsFrozen() && !isPermanentDelegate {
		return ErrAssetFrozen
	}

	asset.Owner = newOwner
	if td != nil && !td.Permanent {
		asset.TransferDelegate = nil
	}
	if fd := asset.FreezeDelegate; fd != nil && !fd.Permanent {
		asset.FreezeDelegate = nil
	}
	return accts.Put(asset)
}

// Freeze blocks transfers. The freeze delegate may freeze; so may the owner
// unless a permanent freeze delegate holds that right.
func (c *Core) Freeze(accts domain.Accounts, addr, authority domain.Address) error {
	asset, err := c.Asset(accts, addr)
	if err != nil {
		return err
	}
	if asset.Locked {
		return ErrAssetLocked
	}

	fd := asset.FreezeDelegate
	switch {
	case fd != nil && fd.Authority == authority:
	case authority == asset.Owner && (fd == nil || !fd.Permanent):
	default:
		return ErrInvalidAuthority
	}
	if asset.IsFrozen() {
		return ErrAssetFrozen
	}

	if fd == nil {
		asset.FreezeDelegate = &domain.FreezeDelegate{Authority: asset.Owner, Frozen: true}
	} else {
		fd.Frozen = true
	}
	return accts.Put(asset)
}

// Lock permanently disables transfers. Requires the permanent freeze delegate.
// The transfer delegate is revoked; nothing can undo a lock.
func (c *Core) Lock(accts domain.Accounts, addr, authority domain.Address) error {
	asset, err := c.Asset(accts, addr)
	if err != nil {
		return err
	}
	fd := asset.FreezeDelegate
	if fd == nil || !fd.Permanent || fd.Authority != authority {
		return ErrInvalidAuthority
	}

	asset.Locked = true
	fd.Frozen = true
	asset.TransferDelegate = nil
	return accts.Put(asset)
}

// Asset loads an asset account.
func (c *Core) Asset(accts domain.Accounts, addr domain.Address) (*domain.Asset, error) {
	acc, ok, err := accts.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, addr)
	}
	asset, ok := acc.(*domain.Asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds a %s account", ErrAssetNotFound, addr, acc.Kind())
	}
	return asset, nil
}
