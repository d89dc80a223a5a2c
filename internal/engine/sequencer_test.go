package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"service_market/internal/domain"
	"service_market/internal/infra"
	"service_market/internal/ledger"
)

type fakeSnapshot struct {
	accounts []domain.Account
	seqs     []uint64
}

func (s *fakeSnapshot) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.accounts, nil
}

func (s *fakeSnapshot) JournalSeqs(ctx context.Context) ([]uint64, error) {
	return s.seqs, nil
}

func TestSequencer_Restore(t *testing.T) {
	seq := NewSequencer(Options{Metrics: &infra.Metrics{}}, NewBank(nil), NewProgram(ledger.NewCore()))
	snap := &fakeSnapshot{
		accounts: []domain.Account{&domain.Wallet{Address: testAddr(1), Lamports: 42}},
		seqs:     []uint64{1, 2, 3},
	}

	if err := seq.Restore(context.Background(), snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if seq.Bank().LastSeq() != 3 {
		t.Errorf("Expected last seq 3, got %d", seq.Bank().LastSeq())
	}
	acc, ok := seq.Bank().Account(testAddr(1))
	if !ok || acc.(*domain.Wallet).Lamports != 42 {
		t.Error("Wallet not restored")
	}

	// Genesis never runs on a restored journal.
	if err := seq.Genesis(context.Background(), []Allocation{{Address: testAddr(1), Lamports: 1}}); err != nil {
		t.Fatalf("Genesis failed: %v", err)
	}
	if seq.Bank().LastSeq() != 3 {
		t.Error("Genesis must be skipped after restore")
	}
}

func TestSequencer_GapDetection(t *testing.T) {
	seq := NewSequencer(Options{Metrics: &infra.Metrics{}}, NewBank(nil), NewProgram(ledger.NewCore()))

	// Should panic when the journal skips a sequence number
	defer func() {
		if r := recover(); r == nil {
			t.Error("Sequencer should have panicked on sequence gap")
		}
	}()

	_ = seq.Restore(context.Background(), &fakeSnapshot{seqs: []uint64{1, 3}})
}

func TestSequencer_DumpState(t *testing.T) {
	f := newFixture(t)
	f.list(t, 60, true)

	path := filepath.Join(t.TempDir(), "dump.json")
	f.seq.DumpState(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("dump not written: %v", err)
	}
	var dump struct {
		LastSeq  uint64 `json:"last_seq"`
		Accounts []struct {
			Kind string `json:"kind"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &dump); err != nil {
		t.Fatalf("invalid dump: %v", err)
	}
	if dump.LastSeq != f.bank.LastSeq() {
		t.Errorf("Dump seq = %d, want %d", dump.LastSeq, f.bank.LastSeq())
	}

	// buyer wallet, marketplace, asset, listing
	if len(dump.Accounts) != 4 {
		t.Errorf("Expected 4 accounts, got %d", len(dump.Accounts))
	}
}

func TestSequencer_Metrics(t *testing.T) {
	f := newFixture(t)
	ls, _ := f.list(t, 61, false)
	if _, err := f.buy(f.buyer, ls); err != nil {
		t.Fatalf("BuyService failed: %v", err)
	}
	_, _ = f.buy(f.buyer, ls)

	snap := f.seq.metrics.Snapshot()
	if snap.SalesCompleted != 1 {
		t.Errorf("Expected 1 sale, got %d", snap.SalesCompleted)
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("Expected 1 error, got %d", snap.ErrorsTotal)
	}
}

func TestInstructionMessage_BindsFields(t *testing.T) {
	a := &BuyService{Buyer: testAddr(1), Marketplace: testAddr(2), Seller: testAddr(3), Asset: testAddr(4)}
	b := *a
	b.Asset = testAddr(5)

	if string(a.Message()) == string(b.Message()) {
		t.Error("Messages for different assets must differ")
	}
	if string(a.Message()) != string((&BuyService{Buyer: testAddr(1), Marketplace: testAddr(2), Seller: testAddr(3), Asset: testAddr(4)}).Message()) {
		t.Error("Message must be deterministic")
	}
}
