package service

import (
	"fmt"
	"sort"
	"sync"

	"service_market/internal/domain"
	"service_market/internal/event"
	"service_market/internal/ledger"

	"github.com/shopspring/decimal"
)

// AccountReader reads committed accounts.
type AccountReader interface {
	Account(addr domain.Address) (domain.Account, bool)
}

// RoyaltyQuote is the royalty due on a resale at the listing price.
type RoyaltyQuote struct {
	Listing     domain.Address  `json:"listing"`
	Price       decimal.Decimal `json:"price"`
	BasisPoints uint16          `json:"basis_points"`
	Royalty     decimal.Decimal `json:"royalty"`
	Lamports    uint64          `json:"royalty_lamports"`
}

// MarketService is the read model over committed state.
// Account reads go straight to the bank; the marketplace -> listings index
// is maintained from commit events.
type MarketService struct {
	mu       sync.RWMutex
	accounts AccountReader
	listings map[domain.Address]map[domain.Address]struct{} // marketplace -> listing set
}

// NewMarketService creates a new MarketService instance
func NewMarketService(accounts AccountReader) *MarketService {
	return &MarketService{
		accounts: accounts,
		listings: make(map[domain.Address]map[domain.Address]struct{}),
	}
}

// Rebuild indexes listings from a full snapshot, used after restore.
func (s *MarketService) Rebuild(snapshot []domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings = make(map[domain.Address]map[domain.Address]struct{})
	for _, acc := range snapshot {
		if l, ok := acc.(*domain.Listing); ok {
			s.index(l.Marketplace, l.Address)
		}
	}
}

// Apply updates the index from a committed event.
func (s *MarketService) Apply(ev event.Event) {
	listed, ok := ev.(*event.ServiceListedEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index(listed.Marketplace, listed.Listing)
}

// Must be called with lock held
func (s *MarketService) index(marketplace, listing domain.Address) {
	set, ok := s.listings[marketplace]
	if !ok {
		set = make(map[domain.Address]struct{})
		s.listings[marketplace] = set
	}
	set[listing] = struct{}{}
}

// Marketplace returns the registry at addr.
func (s *MarketService) Marketplace(addr domain.Address) (*domain.Marketplace, error) {
	acc, ok := s.accounts.Account(addr)
	m, isMarket := acc.(*domain.Marketplace)
	if !ok || !isMarket {
		return nil, domain.ErrMarketplaceNotFound
	}
	return m, nil
}

// Listing returns the listing at addr.
func (s *MarketService) Listing(addr domain.Address) (*domain.Listing, error) {
	acc, ok := s.accounts.Account(addr)
	l, isListing := acc.(*domain.Listing)
	if !ok || !isListing {
		return nil, domain.ErrListingNotFound
	}
	return l, nil
}

// ListingsByMarketplace returns every listing of a marketplace ordered by listing sequence.
func (s *MarketService) ListingsByMarketplace(addr domain.Address) ([]*domain.Listing, error) {
	if _, err := s.Marketplace(addr); err != nil {
		return nil, err
	}

	s.mu.RLock()
	addrs := make([]domain.Address, 0, len(s.listings[addr]))
	for l := range s.listings[addr] {
		addrs = append(addrs, l)
	}
	s.mu.RUnlock()

	result := make([]*domain.Listing, 0, len(addrs))
	for _, a := range addrs {
		l, err := s.Listing(a)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}

	// Sort by listing sequence for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].ListedSeq < result[j].ListedSeq
	})
	return result, nil
}

// Asset returns the asset at addr.
func (s *MarketService) Asset(addr domain.Address) (*domain.Asset, error) {
	acc, ok := s.accounts.Account(addr)
	a, isAsset := acc.(*domain.Asset)
	if !ok || !isAsset {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAssetNotFound, addr)
	}
	return a, nil
}

// Balance returns the wallet balance at addr; unknown wallets hold nothing.
func (s *MarketService) Balance(addr domain.Address) uint64 {
	acc, ok := s.accounts.Account(addr)
	if !ok {
		return 0
	}
	if w, isWallet := acc.(*domain.Wallet); isWallet {
		return w.Lamports
	}
	return 0
}

// RoyaltyQuote computes the royalty a resale at the listing price would owe.
func (s *MarketService) RoyaltyQuote(listingAddr domain.Address) (RoyaltyQuote, error) {
	listing, err := s.Listing(listingAddr)
	if err != nil {
		return RoyaltyQuote{}, err
	}
	asset, err := s.Asset(listing.Asset)
	if err != nil {
		return RoyaltyQuote{}, err
	}

	due := asset.RoyaltyFor(listing.Price)
	quote := RoyaltyQuote{
		Listing:  listing.Address,
		Price:    domain.AmountDecimal(listing.Price),
		Royalty:  domain.AmountDecimal(due),
		Lamports: due,
	}
	if asset.Royalties != nil {
		quote.BasisPoints = asset.Royalties.BasisPoints
	}
	return quote, nil
}
