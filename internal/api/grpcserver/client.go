package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls the marketplace service over a connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, fullMethod(method), in, out, grpc.ForceCodec(Codec()))
}

func (c *Client) InitializeMarketplace(ctx context.Context, in *InitializeMarketplaceRequest) (*InstructionResponse, error) {
	out := new(InstructionResponse)
	return out, c.invoke(ctx, "InitializeMarketplace", in, out)
}

func (c *Client) ListService(ctx context.Context, in *ListServiceRequest) (*InstructionResponse, error) {
	out := new(InstructionResponse)
	return out, c.invoke(ctx, "ListService", in, out)
}

func (c *Client) BuyService(ctx context.Context, in *BuyServiceRequest) (*InstructionResponse, error) {
	out := new(InstructionResponse)
	return out, c.invoke(ctx, "BuyService", in, out)
}

func (c *Client) TransferAsset(ctx context.Context, in *TransferAssetRequest) (*InstructionResponse, error) {
	out := new(InstructionResponse)
	return out, c.invoke(ctx, "TransferAsset", in, out)
}

func (c *Client) FreezeAsset(ctx context.Context, in *FreezeAssetRequest) (*InstructionResponse, error) {
	out := new(InstructionResponse)
	return out, c.invoke(ctx, "FreezeAsset", in, out)
}

func (c *Client) GetListing(ctx context.Context, in *AddressRequest) (*ListingResponse, error) {
	out := new(ListingResponse)
	return out, c.invoke(ctx, "GetListing", in, out)
}

func (c *Client) GetAsset(ctx context.Context, in *AddressRequest) (*AssetResponse, error) {
	out := new(AssetResponse)
	return out, c.invoke(ctx, "GetAsset", in, out)
}

func (c *Client) GetBalance(ctx context.Context, in *AddressRequest) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	return out, c.invoke(ctx, "GetBalance", in, out)
}
