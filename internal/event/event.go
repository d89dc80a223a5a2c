package event

import "service_market/internal/domain"

// Type identifies a committed-instruction event.
type Type string

const (
	TypeGenesis                Type = "GENESIS"
	TypeMarketplaceInitialized Type = "MARKETPLACE_INITIALIZED"
	TypeServiceListed          Type = "SERVICE_LISTED"
	TypeServicePurchased       Type = "SERVICE_PURCHASED"
	TypeAssetTransferred       Type = "ASSET_TRANSFERRED"
	TypeAssetFrozen            Type = "ASSET_FROZEN"
)

// Event is emitted once per committed instruction.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
	// Stamp is called by the bank when the instruction commits.
	Stamp(seq uint64, ts int64)
}

// BaseEvent carries the commit sequence and timestamp (unix millis).
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64 { return e.Seq }
func (e *BaseEvent) GetTs() int64   { return e.Ts }

func (e *BaseEvent) Stamp(seq uint64, ts int64) {
	e.Seq = seq
	e.Ts = ts
}

// GenesisEvent records the initial wallet allocation.
type GenesisEvent struct {
	BaseEvent
	Wallets  int    `json:"wallets"`
	Lamports uint64 `json:"lamports"`
}

func (e *GenesisEvent) GetType() Type { return TypeGenesis }

type MarketplaceInitializedEvent struct {
	BaseEvent
	Marketplace domain.Address `json:"marketplace"`
	Admin       domain.Address `json:"admin"`
	Seed        uint64         `json:"seed"`
}

func (e *MarketplaceInitializedEvent) GetType() Type { return TypeMarketplaceInitialized }

type ServiceListedEvent struct {
	BaseEvent
	Listing            domain.Address `json:"listing"`
	Marketplace        domain.Address `json:"marketplace"`
	Creator            domain.Address `json:"creator"`
	Asset              domain.Address `json:"asset"`
	Name               string         `json:"name"`
	Slug               string         `json:"slug"`
	Price              uint64         `json:"price"`
	RoyaltyBasisPoints uint16         `json:"royalty_basis_points"`
	Soulbound          bool           `json:"soulbound"`
}

func (e *ServiceListedEvent) GetType() Type { return TypeServiceListed }

type ServicePurchasedEvent struct {
	BaseEvent
	Listing     domain.Address `json:"listing"`
	Marketplace domain.Address `json:"marketplace"`
	Buyer       domain.Address `json:"buyer"`
	Seller      domain.Address `json:"seller"`
	Asset       domain.Address `json:"asset"`
	Price       uint64         `json:"price"`
	Soulbound   bool           `json:"soulbound"`
}

func (e *ServicePurchasedEvent) GetType() Type { return TypeServicePurchased }

type AssetTransferredEvent struct {
	BaseEvent
	Asset domain.Address `json:"asset"`
	From  domain.Address `json:"from"`
	To    domain.Address `json:"to"`
}

func (e *AssetTransferredEvent) GetType() Type { return TypeAssetTransferred }

type AssetFrozenEvent struct {
	BaseEvent
	Asset     domain.Address `json:"asset"`
	Authority domain.Address `json:"authority"`
}

func (e *AssetFrozenEvent) GetType() Type { return TypeAssetFrozen }
