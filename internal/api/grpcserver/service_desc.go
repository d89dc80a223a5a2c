package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "servicemarket.v1.Marketplace"

// MarketplaceServer is the server API of the marketplace service.
type MarketplaceServer interface {
	InitializeMarketplace(context.Context, *InitializeMarketplaceRequest) (*InstructionResponse, error)
	ListService(context.Context, *ListServiceRequest) (*InstructionResponse, error)
	BuyService(context.Context, *BuyServiceRequest) (*InstructionResponse, error)
	TransferAsset(context.Context, *TransferAssetRequest) (*InstructionResponse, error)
	FreezeAsset(context.Context, *FreezeAssetRequest) (*InstructionResponse, error)
	GetListing(context.Context, *AddressRequest) (*ListingResponse, error)
	GetAsset(context.Context, *AddressRequest) (*AssetResponse, error)
	GetBalance(context.Context, *AddressRequest) (*BalanceResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed method to grpc.MethodDesc.
func unary[Req any, Resp any](name string, call func(MarketplaceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MarketplaceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MarketplaceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the marketplace service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("InitializeMarketplace", MarketplaceServer.InitializeMarketplace),
		unary("ListService", MarketplaceServer.ListService),
		unary("BuyService", MarketplaceServer.BuyService),
		unary("TransferAsset", MarketplaceServer.TransferAsset),
		unary("FreezeAsset", MarketplaceServer.FreezeAsset),
		unary("GetListing", MarketplaceServer.GetListing),
		unary("GetAsset", MarketplaceServer.GetAsset),
		unary("GetBalance", MarketplaceServer.GetBalance),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "servicemarket/v1/marketplace.proto",
}
