package grpcserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"service_market/internal/domain"
	"service_market/internal/engine"
	"service_market/internal/event"
	"service_market/internal/platform/ratelimiter"
	"service_market/internal/service"

	"google.golang.org/grpc"
)

// Server adapts the sequencer and the query service to gRPC.
type Server struct {
	seq   *engine.Sequencer
	query *service.MarketService
}

var _ MarketplaceServer = (*Server)(nil)

func NewServer(seq *engine.Sequencer, query *service.MarketService) *Server {
	return &Server{seq: seq, query: query}
}

// NewGRPCServer builds a grpc.Server with the JSON codec, logging and
// per-host and per-signer rate limiting, and registers srv on it.
func NewGRPCServer(srv MarketplaceServer, limiter *ratelimiter.KeyLimiter, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(Codec()),
		grpc.ChainUnaryInterceptor(loggingInterceptor, rateLimitInterceptor(limiter)),
	}, opts...)

	s := grpc.NewServer(opts...)
	s.RegisterService(&ServiceDesc, srv)
	return s
}

// -------------------- Commands --------------------

type enveloper interface {
	Envelope() (engine.Envelope, error)
}

func (s *Server) submit(ctx context.Context, req enveloper) (*InstructionResponse, error) {
	env, err := req.Envelope()
	if err != nil {
		return nil, toStatus(err)
	}

	receipt, err := s.seq.Submit(ctx, env)
	if err != nil {
		return nil, toStatus(err)
	}

	data, err := event.Marshal(receipt.Event)
	if err != nil {
		return nil, toStatus(err)
	}

	slog.Debug("Instruction committed",
		slog.String("kind", env.Instruction.Kind()),
		slog.Uint64("seq", receipt.Seq))

	return &InstructionResponse{Seq: receipt.Seq, Event: json.RawMessage(data)}, nil
}

func (s *Server) InitializeMarketplace(ctx context.Context, req *InitializeMarketplaceRequest) (*InstructionResponse, error) {
	return s.submit(ctx, req)
}

func (s *Server) ListService(ctx context.Context, req *ListServiceRequest) (*InstructionResponse, error) {
	return s.submit(ctx, req)
}

func (s *Server) BuyService(ctx context.Context, req *BuyServiceRequest) (*InstructionResponse, error) {
	return s.submit(ctx, req)
}

func (s *Server) TransferAsset(ctx context.Context, req *TransferAssetRequest) (*InstructionResponse, error) {
	return s.submit(ctx, req)
}

func (s *Server) FreezeAsset(ctx context.Context, req *FreezeAssetRequest) (*InstructionResponse, error) {
	return s.submit(ctx, req)
}

// -------------------- Queries --------------------

func (s *Server) GetListing(ctx context.Context, req *AddressRequest) (*ListingResponse, error) {
	var p addrParser
	addr := p.parse("address", req.Address)
	if p.err != nil {
		return nil, toStatus(p.err)
	}

	listing, err := s.query.Listing(addr)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListingResponse{Listing: listing, Slug: listing.Slug()}
	if quote, err := s.query.RoyaltyQuote(addr); err == nil {
		resp.Royalty = &quote
	}
	return resp, nil
}

func (s *Server) GetAsset(ctx context.Context, req *AddressRequest) (*AssetResponse, error) {
	var p addrParser
	addr := p.parse("address", req.Address)
	if p.err != nil {
		return nil, toStatus(p.err)
	}

	asset, err := s.query.Asset(addr)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AssetResponse{Asset: asset}, nil
}

func (s *Server) GetBalance(ctx context.Context, req *AddressRequest) (*BalanceResponse, error) {
	var p addrParser
	addr := p.parse("address", req.Address)
	if p.err != nil {
		return nil, toStatus(p.err)
	}

	lamports := s.query.Balance(addr)
	return &BalanceResponse{
		Address:  addr.String(),
		Lamports: lamports,
		Amount:   domain.FormatAmount(lamports),
	}, nil
}
