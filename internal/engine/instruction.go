package engine

import (
	"bytes"
	"encoding/binary"

	"service_market/internal/domain"
)

// Instruction kinds, as recorded in the journal.
const (
	KindGenesis               = "genesis"
	KindInitializeMarketplace = "initialize_marketplace"
	KindListService           = "list_service"
	KindBuyService            = "buy_service"
	KindTransferAsset         = "transfer_asset"
	KindFreezeAsset           = "freeze_asset"
)

const messageDomain = "service_market/instruction/v1"

// Instruction is a state transition request. Accounts lists every address
// the handler may read or write; Signers must each sign Message.
type Instruction interface {
	Kind() string
	Accounts() []domain.Address
	Signers() []domain.Address
	Message() []byte
}

// Allocation funds one wallet at genesis.
type Allocation struct {
	Address  domain.Address `json:"address"`
	Lamports uint64         `json:"lamports"`
}

// Genesis credits the configured wallets. It has no signers and is only
// accepted from inside the process, on an empty journal.
type Genesis struct {
	Allocations []Allocation `json:"allocations"`
}

func (g *Genesis) Kind() string { return KindGenesis }

func (g *Genesis) Accounts() []domain.Address {
	out := make([]domain.Address, 0, len(g.Allocations))
	for _, a := range g.Allocations {
		out = append(out, a.Address)
	}
	return out
}

func (g *Genesis) Signers() []domain.Address { return nil }

func (g *Genesis) Message() []byte {
	m := newMessage(KindGenesis)
	m.u64(uint64(len(g.Allocations)))
	for _, a := range g.Allocations {
		m.addr(a.Address)
		m.u64(a.Lamports)
	}
	return m.bytes()
}

// InitializeMarketplace creates the registry for (Admin, Seed).
type InitializeMarketplace struct {
	Admin domain.Address `json:"admin"`
	Seed  uint64         `json:"seed"`
}

func (ix *InitializeMarketplace) Kind() string { return KindInitializeMarketplace }

func (ix *InitializeMarketplace) Address() domain.Address {
	return domain.MarketplaceAddress(ix.Admin, ix.Seed)
}

func (ix *InitializeMarketplace) Accounts() []domain.Address {
	return []domain.Address{ix.Address()}
}

func (ix *InitializeMarketplace) Signers() []domain.Address {
	return []domain.Address{ix.Admin}
}

func (ix *InitializeMarketplace) Message() []byte {
	m := newMessage(KindInitializeMarketplace)
	m.addr(ix.Admin)
	m.u64(ix.Seed)
	return m.bytes()
}

// ListService mints the service asset and opens a listing for it.
// The asset keypair co-signs so nobody can squat a chosen asset address.
type ListService struct {
	Creator            domain.Address     `json:"creator"`
	Marketplace        domain.Address     `json:"marketplace"`
	Asset              domain.Address     `json:"asset"`
	Name               string             `json:"name"`
	URI                string             `json:"uri"`
	Price              uint64             `json:"price"`
	RoyaltyBasisPoints uint16             `json:"royalty_basis_points"`
	Soulbound          bool               `json:"soulbound"`
	Attributes         []domain.Attribute `json:"attributes,omitempty"`
}

func (ix *ListService) Kind() string { return KindListService }

func (ix *ListService) Listing() domain.Address {
	return domain.ListingAddress(ix.Marketplace, ix.Creator, ix.Asset)
}

func (ix *ListService) Accounts() []domain.Address {
	return []domain.Address{ix.Marketplace, ix.Asset, ix.Listing()}
}

func (ix *ListService) Signers() []domain.Address {
	return []domain.Address{ix.Creator, ix.Asset}
}

func (ix *ListService) Message() []byte {
	m := newMessage(KindListService)
	m.addr(ix.Creator)
	m.addr(ix.Marketplace)
	m.addr(ix.Asset)
	m.str(ix.Name)
	m.str(ix.URI)
	m.u64(ix.Price)
	m.u16(ix.RoyaltyBasisPoints)
	m.boolean(ix.Soulbound)
	m.u64(uint64(len(ix.Attributes)))
	for _, a := range ix.Attributes {
		m.str(a.Key)
		m.str(a.Value)
	}
	return m.bytes()
}

// BuyService purchases the listing identified by (Marketplace, Seller, Asset).
type BuyService struct {
	Buyer       domain.Address `json:"buyer"`
	Marketplace domain.Address `json:"marketplace"`
	Seller      domain.Address `json:"seller"`
	Asset       domain.Address `json:"asset"`
}

func (ix *BuyService) Kind() string { return KindBuyService }

func (ix *BuyService) Listing() domain.Address {
	return domain.ListingAddress(ix.Marketplace, ix.Seller, ix.Asset)
}

func (ix *BuyService) Accounts() []domain.Address {
	return []domain.Address{ix.Buyer, ix.Seller, ix.Listing(), ix.Asset}
}

func (ix *BuyService) Signers() []domain.Address {
	return []domain.Address{ix.Buyer}
}

func (ix *BuyService) Message() []byte {
	m := newMessage(KindBuyService)
	m.addr(ix.Buyer)
	m.addr(ix.Marketplace)
	m.addr(ix.Seller)
	m.addr(ix.Asset)
	return m.bytes()
}

// TransferAsset moves an asset on behalf of its owner.
type TransferAsset struct {
	Owner    domain.Address `json:"owner"`
	Asset    domain.Address `json:"asset"`
	NewOwner domain.Address `json:"new_owner"`
}

func (ix *TransferAsset) Kind() string { return KindTransferAsset }

func (ix *TransferAsset) Accounts() []domain.Address {
	return []domain.Address{ix.Asset}
}

func (ix *TransferAsset) Signers() []domain.Address {
	return []domain.Address{ix.Owner}
}

func (ix *TransferAsset) Message() []byte {
	m := newMessage(KindTransferAsset)
	m.addr(ix.Owner)
	m.addr(ix.Asset)
	m.addr(ix.NewOwner)
	return m.bytes()
}

// FreezeAsset freezes an asset; Authority is the owner or the freeze delegate.
type FreezeAsset struct {
	Authority domain.Address `json:"authority"`
	Asset     domain.Address `json:"asset"`
}

func (ix *FreezeAsset) Kind() string { return KindFreezeAsset }

func (ix *FreezeAsset) Accounts() []domain.Address {
	return []domain.Address{ix.Asset}
}

func (ix *FreezeAsset) Signers() []domain.Address {
	return []domain.Address{ix.Authority}
}

func (ix *FreezeAsset) Message() []byte {
	m := newMessage(KindFreezeAsset)
	m.addr(ix.Authority)
	m.addr(ix.Asset)
	return m.bytes()
}

// message builds the canonical signing payload: a domain tag, the kind,
// then fixed-width little-endian fields and length-prefixed strings.
type message struct {
	buf bytes.Buffer
}

func newMessage(kind string) *message {
	m := &message{}
	m.str(messageDomain)
	m.str(kind)
	return m
}

func (m *message) addr(a domain.Address) { m.buf.Write(a[:]) }

func (m *message) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.buf.Write(b[:])
}

func (m *message) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.buf.Write(b[:])
}

func (m *message) boolean(v bool) {
	if v {
		m.buf.WriteByte(1)
	} else {
		m.buf.WriteByte(0)
	}
}

func (m *message) str(s string) {
	m.u64(uint64(len(s)))
	m.buf.WriteString(s)
}

func (m *message) bytes() []byte { return m.buf.Bytes() }
