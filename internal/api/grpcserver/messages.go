package grpcserver

import (
	"encoding/json"
	"errors"
	"fmt"

	"service_market/internal/domain"
	"service_market/internal/engine"
	"service_market/internal/identity"
	"service_market/internal/service"
)

var errBadRequest = errors.New("bad request")

type InitializeMarketplaceRequest struct {
	Admin      string   `json:"admin"`
	Seed       uint64   `json:"seed"`
	Signatures []string `json:"signatures"`
}

type ListServiceRequest struct {
	Creator            string             `json:"creator"`
	Marketplace        string             `json:"marketplace"`
	Asset              string             `json:"asset"`
	Name               string             `json:"name"`
	URI                string             `json:"uri"`
	Price              uint64             `json:"price"`
	RoyaltyBasisPoints uint16             `json:"royalty_basis_points"`
	Soulbound          bool               `json:"soulbound"`
	Attributes         []domain.Attribute `json:"attributes,omitempty"`
	Signatures         []string           `json:"signatures"`
}

type BuyServiceRequest struct {
	Buyer       string   `json:"buyer"`
	Marketplace string   `json:"marketplace"`
	Seller      string   `json:"seller"`
	Asset       string   `json:"asset"`
	Signatures  []string `json:"signatures"`
}

type TransferAssetRequest struct {
	Owner      string   `json:"owner"`
	Asset      string   `json:"asset"`
	NewOwner   string   `json:"new_owner"`
	Signatures []string `json:"signatures"`
}

type FreezeAssetRequest struct {
	Authority  string   `json:"authority"`
	Asset      string   `json:"asset"`
	Signatures []string `json:"signatures"`
}

func (r *InitializeMarketplaceRequest) signer() string { return r.Admin }
func (r *ListServiceRequest) signer() string           { return r.Creator }
func (r *BuyServiceRequest) signer() string            { return r.Buyer }
func (r *TransferAssetRequest) signer() string         { return r.Owner }
func (r *FreezeAssetRequest) signer() string           { return r.Authority }

// InstructionResponse reports the commit of an instruction.
type InstructionResponse struct {
	Seq   uint64          `json:"seq"`
	Event json.RawMessage `json:"event"`
}

type AddressRequest struct {
	Address string `json:"address"`
}

type ListingResponse struct {
	Listing *domain.Listing       `json:"listing"`
	Slug    string                `json:"slug"`
	Royalty *service.RoyaltyQuote `json:"royalty,omitempty"`
}

type AssetResponse struct {
	Asset *domain.Asset `json:"asset"`
}

type BalanceResponse struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	Amount   string `json:"amount"`
}

// -------------------- Converters --------------------

// addrParser collects the first parse failure so converters stay linear.
type addrParser struct {
	err error
}

func (p *addrParser) parse(field, s string) domain.Address {
	if p.err != nil {
		return domain.ZeroAddress
	}
	a, err := domain.ParseAddress(s)
	if err != nil {
		p.err = fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	return a
}

func parseSignatures(raw []string) ([]identity.Signature, error) {
	out := make([]identity.Signature, 0, len(raw))
	for i, s := range raw {
		sig, err := identity.ParseSignature(s)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", errBadRequest, i, err)
		}
		out = append(out, sig)
	}
	return out, nil
}

func envelope(ins engine.Instruction, p *addrParser, raw []string) (engine.Envelope, error) {
	if p.err != nil {
		return engine.Envelope{}, p.err
	}
	sigs, err := parseSignatures(raw)
	if err != nil {
		return engine.Envelope{}, err
	}
	return engine.Envelope{Instruction: ins, Signatures: sigs}, nil
}

func (r *InitializeMarketplaceRequest) Envelope() (engine.Envelope, error) {
	var p addrParser
	ins := &engine.InitializeMarketplace{Admin: p.parse("admin", r.Admin), Seed: r.Seed}
	return envelope(ins, &p, r.Signatures)
}

func (r *ListServiceRequest) Envelope() (engine.Envelope, error) {
	var p addrParser
	ins := &engine.ListService{
		Creator:            p.parse("creator", r.Creator),
		Marketplace:        p.parse("marketplace", r.Marketplace),
		Asset:              p.parse("asset", r.Asset),
		Name:               r.Name,
		URI:                r.URI,
		Price:              r.Price,
		RoyaltyBasisPoints: r.RoyaltyBasisPoints,
		Soulbound:          r.Soulbound,
		Attributes:         r.Attributes,
	}
	return envelope(ins, &p, r.Signatures)
}

func (r *BuyServiceRequest) Envelope() (engine.Envelope, error) {
	var p addrParser
	ins := &engine.BuyService{
		Buyer:       p.parse("buyer", r.Buyer),
		Marketplace: p.parse("marketplace", r.Marketplace),
		Seller:      p.parse("seller", r.Seller),
		Asset:       p.parse("asset", r.Asset),
	}
	return envelope(ins, &p, r.Signatures)
}

func (r *TransferAssetRequest) Envelope() (engine.Envelope, error) {
	var p addrParser
	ins := &engine.TransferAsset{
		Owner:    p.parse("owner", r.Owner),
		Asset:    p.parse("asset", r.Asset),
		NewOwner: p.parse("new_owner", r.NewOwner),
	}
	return envelope(ins, &p, r.Signatures)
}

func (r *FreezeAssetRequest) Envelope() (engine.Envelope, error) {
	var p addrParser
	ins := &engine.FreezeAsset{
		Authority: p.parse("authority", r.Authority),
		Asset:     p.parse("asset", r.Asset),
	}
	return envelope(ins, &p, r.Signatures)
}

// Sign returns base58 signatures of ins by each keypair, in order.
func Sign(ins engine.Instruction, signers ...*identity.Keypair) []string {
	msg := ins.Message()
	out := make([]string, 0, len(signers))
	for _, kp := range signers {
		out = append(out, kp.Sign(msg).String())
	}
	return out
}
