package grpcserver

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"service_market/internal/domain"
	"service_market/internal/engine"
	"service_market/internal/event"
	"service_market/internal/identity"
	"service_market/internal/infra"
	"service_market/internal/ledger"
	"service_market/internal/platform/ratelimiter"
	"service_market/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const price = 2_000_000_000

type harness struct {
	ctx    context.Context
	client *Client
	seq    *engine.Sequencer
}

func keypair(t *testing.T, b byte) *identity.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	kp, err := identity.FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed failed: %v", err)
	}
	return kp
}

func startServer(t *testing.T, limiter *ratelimiter.KeyLimiter, funded ...engine.Allocation) *harness {
	t.Helper()

	bank := engine.NewBank(nil)
	seq := engine.NewSequencer(engine.Options{
		Workers:  2,
		DumpPath: t.TempDir() + "/dump.json",
		Metrics:  &infra.Metrics{},
	}, bank, engine.NewProgram(ledger.NewCore()))
	query := service.NewMarketService(bank)
	bank.OnCommit(func(_ uint64, ev event.Event, _ []byte) { query.Apply(ev) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		seq.Run(ctx)
		close(done)
	}()

	if len(funded) > 0 {
		if err := seq.Genesis(ctx, funded); err != nil {
			t.Fatalf("Genesis failed: %v", err)
		}
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewServer(seq, query), limiter)
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		cancel()
		<-done
	})
	return &harness{ctx: ctx, client: NewClient(conn), seq: seq}
}

func openLimiter() *ratelimiter.KeyLimiter {
	return ratelimiter.New(1000, 1000, time.Minute)
}

func TestServer_ListAndBuy(t *testing.T) {
	admin, creator, buyer, asset := keypair(t, 1), keypair(t, 2), keypair(t, 3), keypair(t, 4)
	h := startServer(t, openLimiter(), engine.Allocation{Address: buyer.Address(), Lamports: 3 * price})

	initIx := &engine.InitializeMarketplace{Admin: admin.Address(), Seed: 7}
	resp, err := h.client.InitializeMarketplace(h.ctx, &InitializeMarketplaceRequest{
		Admin:      admin.Address().String(),
		Seed:       7,
		Signatures: Sign(initIx, admin),
	})
	if err != nil {
		t.Fatalf("InitializeMarketplace failed: %v", err)
	}
	if resp.Seq != 2 {
		t.Errorf("Seq = %d, want 2 (genesis is 1)", resp.Seq)
	}

	market := initIx.Address()
	listIx := &engine.ListService{
		Creator:            creator.Address(),
		Marketplace:        market,
		Asset:              asset.Address(),
		Name:               "Website Audit",
		URI:                "https://example.com/audit.json",
		Price:              price,
		RoyaltyBasisPoints: 250,
		Soulbound:          true,
	}
	if _, err := h.client.ListService(h.ctx, &ListServiceRequest{
		Creator:            creator.Address().String(),
		Marketplace:        market.String(),
		Asset:              asset.Address().String(),
		Name:               listIx.Name,
		URI:                listIx.URI,
		Price:              price,
		RoyaltyBasisPoints: 250,
		Soulbound:          true,
		Signatures:         Sign(listIx, creator, asset),
	}); err != nil {
		t.Fatalf("ListService failed: %v", err)
	}

	listing, err := h.client.GetListing(h.ctx, &AddressRequest{Address: listIx.Listing().String()})
	if err != nil {
		t.Fatalf("GetListing failed: %v", err)
	}
	if !strings.HasPrefix(listing.Slug, "website-audit-") {
		t.Errorf("Slug = %q", listing.Slug)
	}
	if listing.Royalty == nil || listing.Royalty.Lamports != price*250/10000 {
		t.Errorf("Royalty = %+v", listing.Royalty)
	}

	buyIx := &engine.BuyService{
		Buyer:       buyer.Address(),
		Marketplace: market,
		Seller:      creator.Address(),
		Asset:       asset.Address(),
	}
	resp, err = h.client.BuyService(h.ctx, &BuyServiceRequest{
		Buyer:       buyer.Address().String(),
		Marketplace: market.String(),
		Seller:      creator.Address().String(),
		Asset:       asset.Address().String(),
		Signatures:  Sign(buyIx, buyer),
	})
	if err != nil {
		t.Fatalf("BuyService failed: %v", err)
	}

	ev, err := event.Unmarshal(resp.Event)
	if err != nil {
		t.Fatalf("Unmarshal event failed: %v", err)
	}
	purchased, ok := ev.(*event.ServicePurchasedEvent)
	if !ok {
		t.Fatalf("event = %T, want *ServicePurchasedEvent", ev)
	}
	if purchased.Buyer != buyer.Address() || !purchased.Soulbound {
		t.Errorf("event = %+v", purchased)
	}

	a, err := h.client.GetAsset(h.ctx, &AddressRequest{Address: asset.Address().String()})
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if a.Asset.Owner != buyer.Address() {
		t.Errorf("Owner = %s, want buyer", a.Asset.Owner)
	}
	if !a.Asset.IsFrozen() {
		t.Error("Expected soulbound asset to be frozen after purchase")
	}

	bal, err := h.client.GetBalance(h.ctx, &AddressRequest{Address: creator.Address().String()})
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Lamports != price {
		t.Errorf("creator Lamports = %d, want %d", bal.Lamports, price)
	}
}

func TestServer_NotEnoughFunds(t *testing.T) {
	admin, creator, buyer, asset := keypair(t, 1), keypair(t, 2), keypair(t, 3), keypair(t, 4)
	h := startServer(t, openLimiter(), engine.Allocation{Address: buyer.Address(), Lamports: price - 1})

	initIx := &engine.InitializeMarketplace{Admin: admin.Address(), Seed: 1}
	env := engine.Envelope{Instruction: initIx, Signatures: []identity.Signature{admin.Sign(initIx.Message())}}
	if _, err := h.seq.Submit(h.ctx, env); err != nil {
		t.Fatalf("InitializeMarketplace failed: %v", err)
	}

	listIx := &engine.ListService{
		Creator: creator.Address(), Marketplace: initIx.Address(), Asset: asset.Address(),
		Name: "Tutoring", URI: "https://example.com/t.json", Price: price, RoyaltyBasisPoints: 100,
	}
	env = engine.Envelope{Instruction: listIx, Signatures: []identity.Signature{
		creator.Sign(listIx.Message()), asset.Sign(listIx.Message()),
	}}
	if _, err := h.seq.Submit(h.ctx, env); err != nil {
		t.Fatalf("ListService failed: %v", err)
	}

	buyIx := &engine.BuyService{
		Buyer: buyer.Address(), Marketplace: initIx.Address(), Seller: creator.Address(), Asset: asset.Address(),
	}
	_, err := h.client.BuyService(h.ctx, &BuyServiceRequest{
		Buyer:       buyer.Address().String(),
		Marketplace: initIx.Address().String(),
		Seller:      creator.Address().String(),
		Asset:       asset.Address().String(),
		Signatures:  Sign(buyIx, buyer),
	})

	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %v, want FailedPrecondition (err=%v)", status.Code(err), err)
	}
	want := "PurchaseNotEnoughFunds: You don't have enough funds to buy the service"
	if st, _ := status.FromError(err); st.Message() != want {
		t.Errorf("message = %q, want %q", st.Message(), want)
	}
	if code, ok := CodeOf(err); !ok || code != domain.CodePurchaseNotEnoughFunds {
		t.Errorf("CodeOf = %q, %v", code, ok)
	}
}

func TestServer_BadRequests(t *testing.T) {
	admin := keypair(t, 1)
	h := startServer(t, openLimiter())

	t.Run("malformed address", func(t *testing.T) {
		_, err := h.client.GetAsset(h.ctx, &AddressRequest{Address: "not-base58-0OIl"})
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("code = %v, want InvalidArgument", status.Code(err))
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := h.client.InitializeMarketplace(h.ctx, &InitializeMarketplaceRequest{
			Admin: admin.Address().String(),
			Seed:  1,
		})
		if status.Code(err) != codes.PermissionDenied {
			t.Errorf("code = %v, want PermissionDenied", status.Code(err))
		}
		if code, _ := CodeOf(err); code != domain.CodeUnauthorized {
			t.Errorf("CodeOf = %q", code)
		}
	})

	t.Run("unknown listing", func(t *testing.T) {
		_, err := h.client.GetListing(h.ctx, &AddressRequest{Address: keypair(t, 9).Address().String()})
		if status.Code(err) != codes.NotFound {
			t.Errorf("code = %v, want NotFound", status.Code(err))
		}
	})
}

func TestServer_RateLimit(t *testing.T) {
	h := startServer(t, ratelimiter.New(0.001, 2, time.Minute))
	req := &AddressRequest{Address: keypair(t, 5).Address().String()}

	for i := 0; i < 2; i++ {
		if _, err := h.client.GetBalance(h.ctx, req); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	_, err := h.client.GetBalance(h.ctx, req)
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", status.Code(err))
	}
}

func TestCodec(t *testing.T) {
	c := Codec()
	if c.Name() != CodecName {
		t.Errorf("Name = %q", c.Name())
	}
	data, err := c.Marshal(&BalanceResponse{Address: "x", Lamports: 5, Amount: "0.000000005"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"lamports":5`) {
		t.Errorf("data = %s", data)
	}
	var out BalanceResponse
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Lamports != 5 {
		t.Errorf("Lamports = %d", out.Lamports)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
}
