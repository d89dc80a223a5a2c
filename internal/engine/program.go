package engine

import (
	"fmt"

	"service_market/internal/domain"
	"service_market/internal/event"
)

// Program holds the marketplace instruction handlers. Handlers only touch
// state through the Tx, so a failure at any step leaves nothing behind.
type Program struct {
	ledger domain.AssetLedger
}

// NewProgram creates the program on top of an asset ledger.
func NewProgram(ledger domain.AssetLedger) *Program {
	return &Program{ledger: ledger}
}

// Execute dispatches ins to its handler.
func (p *Program) Execute(tx *Tx, ins Instruction) (event.Event, error) {
	switch ix := ins.(type) {
	case *Genesis:
		return p.genesis(tx, ix)
	case *InitializeMarketplace:
		return p.initializeMarketplace(tx, ix)
	case *ListService:
		return p.listService(tx, ix)
	case *BuyService:
		return p.buyService(tx, ix)
	case *TransferAsset:
		return p.transferAsset(tx, ix)
	case *FreezeAsset:
		return p.freezeAsset(tx, ix)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", domain.ErrInvalidInstruction, ins.Kind())
	}
}

func (p *Program) genesis(tx *Tx, ix *Genesis) (event.Event, error) {
	ev := &event.GenesisEvent{}
	for _, a := range ix.Allocations {
		w, err := tx.Wallet(a.Address)
		if err != nil {
			return nil, err
		}
		if err := w.Credit(a.Lamports); err != nil {
			return nil, err
		}
		if err := tx.Put(w); err != nil {
			return nil, err
		}
		ev.Wallets++
		ev.Lamports += a.Lamports
	}
	return ev, nil
}

func (p *Program) initializeMarketplace(tx *Tx, ix *InitializeMarketplace) (event.Event, error) {
	m := domain.NewMarketplace(ix.Admin, ix.Seed)
	if err := tx.Create(m); err != nil {
		return nil, err
	}
	return &event.MarketplaceInitializedEvent{
		Marketplace: m.Address,
		Admin:       m.Admin,
		Seed:        m.Seed,
	}, nil
}

func (p *Program) marketplace(tx *Tx, addr domain.Address) (*domain.Marketplace, error) {
	acc, ok, err := tx.Get(addr)
	if err != nil {
		return nil, err
	}
	m, isMarket := acc.(*domain.Marketplace)
	if !ok || !isMarket {
		return nil, domain.ErrMarketplaceNotFound
	}
	return m, nil
}

func (p *Program) listing(tx *Tx, addr domain.Address) (*domain.Listing, error) {
	acc, ok, err := tx.Get(addr)
	if err != nil {
		return nil, err
	}
	l, isListing := acc.(*domain.Listing)
	if !ok || !isListing {
		return nil, domain.ErrListingNotFound
	}
	return l, nil
}

func (p *Program) listService(tx *Tx, ix *ListService) (event.Event, error) {
	// wallets and assets share one address space; an asset at the creator's
	// address would leave the creator without a wallet to be paid into
	if ix.Asset == ix.Creator {
		return nil, fmt.Errorf("%w: asset address is the creator wallet", domain.ErrInvalidInstruction)
	}
	if err := domain.ValidateTerms(ix.Price, ix.RoyaltyBasisPoints); err != nil {
		return nil, err
	}
	if _, err := p.marketplace(tx, ix.Marketplace); err != nil {
		return nil, err
	}

	listingAddr := ix.Listing()
	if _, exists, err := tx.Get(listingAddr); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrDuplicateListing
	}

	// Both delegates go to the listing address: only a purchase can move
	// the asset. Soulbound delegates are permanent and the asset starts frozen.
	_, err := p.ledger.CreateAsset(tx, domain.CreateAssetArgs{
		Address:          ix.Asset,
		Owner:            ix.Creator,
		UpdateAuthority:  ix.Creator,
		Name:             ix.Name,
		URI:              ix.URI,
		TransferDelegate: &domain.TransferDelegate{Authority: listingAddr, Permanent: ix.Soulbound},
		FreezeDelegate:   &domain.FreezeDelegate{Authority: listingAddr, Permanent: ix.Soulbound, Frozen: ix.Soulbound},
	})
	if err != nil {
		return nil, err
	}

	royalties := domain.Royalties{
		BasisPoints: ix.RoyaltyBasisPoints,
		Creators:    []domain.Creator{{Address: ix.Creator, Percentage: 100}},
	}
	if err := p.ledger.AddRoyalties(tx, ix.Asset, ix.Creator, royalties); err != nil {
		return nil, err
	}
	if err := p.ledger.AddAttributes(tx, ix.Asset, ix.Creator, ix.Attributes); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Address:            listingAddr,
		Marketplace:        ix.Marketplace,
		Creator:            ix.Creator,
		Asset:              ix.Asset,
		Name:               ix.Name,
		URI:                ix.URI,
		Price:              ix.Price,
		RoyaltyBasisPoints: ix.RoyaltyBasisPoints,
		Soulbound:          ix.Soulbound,
		Status:             domain.ListingListed,
	}
	if err := tx.Create(listing); err != nil {
		return nil, err
	}

	return &event.ServiceListedEvent{
		Listing:            listing.Address,
		Marketplace:        listing.Marketplace,
		Creator:            listing.Creator,
		Asset:              listing.Asset,
		Name:               listing.Name,
		Slug:               listing.Slug(),
		Price:              listing.Price,
		RoyaltyBasisPoints: listing.RoyaltyBasisPoints,
		Soulbound:          listing.Soulbound,
	}, nil
}

func (p *Program) buyService(tx *Tx, ix *BuyService) (event.Event, error) {
	// the address is derived from the seller, so a wrong seller finds no listing
	listing, err := p.listing(tx, ix.Listing())
	if err != nil {
		return nil, err
	}
	if ix.Buyer == listing.Creator {
		return nil, domain.ErrUnauthorized
	}
	if !listing.IsOpen() {
		return nil, domain.ErrAlreadySold
	}

	buyer, err := tx.Wallet(ix.Buyer)
	if err != nil {
		return nil, err
	}
	if !buyer.CanAfford(listing.Price) {
		return nil, domain.ErrPurchaseNotEnoughFunds
	}
	seller, err := tx.Wallet(listing.Creator)
	if err != nil {
		return nil, err
	}

	if err := buyer.Debit(listing.Price); err != nil {
		return nil, err
	}
	if err := seller.Credit(listing.Price); err != nil {
		return nil, err
	}
	if err := tx.Put(buyer); err != nil {
		return nil, err
	}
	if err := tx.Put(seller); err != nil {
		return nil, err
	}

	if err := p.ledger.Transfer(tx, listing.Asset, listing.Address, ix.Buyer); err != nil {
		return nil, err
	}
	if listing.Soulbound {
		if err := p.ledger.Lock(tx, listing.Asset, listing.Address); err != nil {
			return nil, err
		}
	}

	listing.Status = domain.ListingSold
	listing.Buyer = ix.Buyer
	if err := tx.Put(listing); err != nil {
		return nil, err
	}

	return &event.ServicePurchasedEvent{
		Listing:     listing.Address,
		Marketplace: listing.Marketplace,
		Buyer:       ix.Buyer,
		Seller:      listing.Creator,
		Asset:       listing.Asset,
		Price:       listing.Price,
		Soulbound:   listing.Soulbound,
	}, nil
}

func (p *Program) transferAsset(tx *Tx, ix *TransferAsset) (event.Event, error) {
	asset, err := p.ledger.Asset(tx, ix.Asset)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.Transfer(tx, ix.Asset, ix.Owner, ix.NewOwner); err != nil {
		return nil, err
	}
	return &event.AssetTransferredEvent{Asset: ix.Asset, From: asset.Owner, To: ix.NewOwner}, nil
}

func (p *Program) freezeAsset(tx *Tx, ix *FreezeAsset) (event.Event, error) {
	if err := p.ledger.Freeze(tx, ix.Asset, ix.Authority); err != nil {
		return nil, err
	}
	return &event.AssetFrozenEvent{Asset: ix.Asset, Authority: ix.Authority}, nil
}
