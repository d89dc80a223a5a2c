package engine

import (
	"context"
	"testing"

	"service_market/internal/domain"
	"service_market/internal/identity"
	"service_market/internal/infra"
	"service_market/internal/ledger"
)

const (
	testPrice = 1_000_000_000
	testBps   = 500
)

type fixture struct {
	ctx     context.Context
	seq     *Sequencer
	bank    *Bank
	admin   *identity.Keypair
	creator *identity.Keypair
	buyer   *identity.Keypair
	market  domain.Address
}

func newKeypair(t *testing.T, b byte) *identity.Keypair {
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

func newSequencer(t *testing.T, journal domain.Journal) (*Sequencer, context.Context) {
	t.Helper()
	bank := NewBank(journal)
	seq := NewSequencer(Options{
		Workers:  4,
		DumpPath: t.TempDir() + "/dump.json",
		Metrics:  &infra.Metrics{},
	}, bank, NewProgram(ledger.NewCore()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		seq.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return seq, ctx
}

// newFixture starts a sequencer with a funded buyer and one marketplace.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	seq, ctx := newSequencer(t, nil)
	f := &fixture{
		ctx:     ctx,
		seq:     seq,
		bank:    seq.Bank(),
		admin:   newKeypair(t, 1),
		creator: newKeypair(t, 2),
		buyer:   newKeypair(t, 3),
	}

	err := seq.Genesis(ctx, []Allocation{{Address: f.buyer.Address(), Lamports: 5 * testPrice}})
	if err != nil {
		t.Fatalf("Genesis failed: %v", err)
	}

	ix := &InitializeMarketplace{Admin: f.admin.Address(), Seed: 1}
	if _, err := f.submit(ix, f.admin); err != nil {
		t.Fatalf("InitializeMarketplace failed: %v", err)
	}
	f.market = ix.Address()
	return f
}

func sign(ins Instruction, signers ...*identity.Keypair) Envelope {
	msg := ins.Message()
	sigs := make([]identity.Signature, 0, len(signers))
	for _, kp := range signers {
		sigs = append(sigs, kp.Sign(msg))
	}
	return Envelope{Instruction: ins, Signatures: sigs}
}

func (f *fixture) submit(ins Instruction, signers ...*identity.Keypair) (Receipt, error) {
	return f.seq.Submit(f.ctx, sign(ins, signers...))
}

// list creates a listing for a fresh asset keypair derived from assetSeed.
func (f *fixture) list(t *testing.T, assetSeed byte, soulbound bool) (*ListService, *identity.Keypair) {
	t.Helper()
	asset := newKeypair(t, assetSeed)
	ix := &ListService{
		Creator:            f.creator.Address(),
		Marketplace:        f.market,
		Asset:              asset.Address(),
		Name:               "Logo Design",
		URI:                "https://example.com/logo.json",
		Price:              testPrice,
		RoyaltyBasisPoints: testBps,
		Soulbound:          soulbound,
		Attributes:         []domain.Attribute{{Key: "delivery_days", Value: "3"}},
	}
	if _, err := f.submit(ix, f.creator, asset); err != nil {
		t.Fatalf("ListService failed: %v", err)
	}
	return ix, asset
}

func (f *fixture) buy(buyer *identity.Keypair, ls *ListService) (Receipt, error) {
	return f.submit(&BuyService{
		Buyer:       buyer.Address(),
		Marketplace: ls.Marketplace,
		Seller:      ls.Creator,
		Asset:       ls.Asset,
	}, buyer)
}

func (f *fixture) balance(addr domain.Address) uint64 {
	acc, ok := f.bank.Account(addr)
	if !ok {
		return 0
	}
	return acc.(*domain.Wallet).Lamports
}

func (f *fixture) asset(t *testing.T, addr domain.Address) *domain.Asset {
	t.Helper()
	acc, ok := f.bank.Account(addr)
	if !ok {
		t.Fatalf("asset %s not found", addr)
	}
	return acc.(*domain.Asset)
}

func (f *fixture) listing(t *testing.T, addr domain.Address) *domain.Listing {
	t.Helper()
	acc, ok := f.bank.Account(addr)
	if !ok {
		t.Fatalf("listing %s not found", addr)
	}
	return acc.(*domain.Listing)
}

func expectCode(t *testing.T, err error, want domain.Code) {
	t.Helper()
	code, ok := domain.CodeOf(err)
	if !ok || code != want {
		t.Fatalf("Expected %s, got %v", want, err)
	}
}
