package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"service_market/internal/domain"
	"service_market/internal/event"
	"service_market/internal/ledger"
)

type failingJournal struct{ err error }

func (j *failingJournal) Append(ctx context.Context, rec *domain.CommitRecord) error {
	return j.err
}

type recordingJournal struct {
	mu   sync.Mutex
	recs []*domain.CommitRecord
}

func (j *recordingJournal) Append(ctx context.Context, rec *domain.CommitRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, rec)
	return nil
}

func testAddr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func TestBank_PersistFailureAborts(t *testing.T) {
	journal := &failingJournal{err: errors.New("disk full")}
	bank := NewBank(journal)
	program := NewProgram(ledger.NewCore())

	ins := &Genesis{Allocations: []Allocation{{Address: testAddr(1), Lamports: 100}}}
	_, err := bank.Execute(context.Background(), ins, func(tx *Tx) (event.Event, error) {
		return program.Execute(tx, ins)
	})
	if !errors.Is(err, journal.err) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if _, ok := bank.Account(testAddr(1)); ok {
		t.Error("Aborted commit must not be visible")
	}
	if bank.LastSeq() != 0 {
		t.Errorf("Expected seq 0, got %d", bank.LastSeq())
	}
}

func TestBank_CommitJournalsDirtyAccounts(t *testing.T) {
	journal := &recordingJournal{}
	bank := NewBank(journal)
	program := NewProgram(ledger.NewCore())

	var hookSeq uint64
	bank.OnCommit(func(seq uint64, ev event.Event, payload []byte) {
		hookSeq = seq
	})

	ins := &Genesis{Allocations: []Allocation{{Address: testAddr(1), Lamports: 100}, {Address: testAddr(2), Lamports: 7}}}
	receipt, err := bank.Execute(context.Background(), ins, func(tx *Tx) (event.Event, error) {
		return program.Execute(tx, ins)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if receipt.Seq != 1 || hookSeq != 1 || receipt.Event.GetSeq() != 1 {
		t.Errorf("Expected seq 1 everywhere, got receipt %d hook %d event %d", receipt.Seq, hookSeq, receipt.Event.GetSeq())
	}
	if len(journal.recs) != 1 {
		t.Fatalf("Expected 1 journal record, got %d", len(journal.recs))
	}

	rec := journal.recs[0]
	if rec.Instruction != KindGenesis || len(rec.Accounts) != 2 {
		t.Errorf("Unexpected record: %s with %d accounts", rec.Instruction, len(rec.Accounts))
	}
	if w := rec.Accounts[0].(*domain.Wallet); w.LastSeq != 1 {
		t.Errorf("Dirty accounts must be stamped, got seq %d", w.LastSeq)
	}
}

func TestTx_UndeclaredAccount(t *testing.T) {
	bank := NewBank(nil)
	tx := newTx(bank, []domain.Address{testAddr(1)})

	if _, _, err := tx.Get(testAddr(2)); !errors.Is(err, domain.ErrUndeclaredAccount) {
		t.Errorf("Expected ErrUndeclaredAccount on Get, got %v", err)
	}
	if err := tx.Put(&domain.Wallet{Address: testAddr(2)}); !errors.Is(err, domain.ErrUndeclaredAccount) {
		t.Errorf("Expected ErrUndeclaredAccount on Put, got %v", err)
	}
}

func TestTx_ReadYourWrites(t *testing.T) {
	bank := NewBank(nil)
	bank.Restore([]domain.Account{&domain.Wallet{Address: testAddr(1), Lamports: 10}}, 0)
	tx := newTx(bank, []domain.Address{testAddr(1)})

	w, err := tx.Wallet(testAddr(1))
	if err != nil {
		t.Fatalf("Wallet failed: %v", err)
	}
	w.Lamports = 99
	if err := tx.Put(w); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	again, _ := tx.Wallet(testAddr(1))
	if again.Lamports != 99 {
		t.Errorf("Tx must see its own write, got %d", again.Lamports)
	}
	committed, _ := bank.Account(testAddr(1))
	if committed.(*domain.Wallet).Lamports != 10 {
		t.Error("Staged write leaked into committed state")
	}
	if err := tx.Create(&domain.Wallet{Address: testAddr(1)}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestLockTable(t *testing.T) {
	t.Run("overlapping sets serialize", func(t *testing.T) {
		lt := newLockTable()
		release, err := lt.acquire(context.Background(), []domain.Address{testAddr(2), testAddr(1)})
		if err != nil {
			t.Fatalf("acquire failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := lt.acquire(ctx, []domain.Address{testAddr(1)}); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Expected DeadlineExceeded, got %v", err)
		}

		release()
		release2, err := lt.acquire(context.Background(), []domain.Address{testAddr(1)})
		if err != nil {
			t.Fatalf("acquire after release failed: %v", err)
		}
		release2()

		if lt.size() != 0 {
			t.Errorf("Expected empty lock table, got %d", lt.size())
		}
	})

	t.Run("disjoint sets do not block", func(t *testing.T) {
		lt := newLockTable()
		r1, _ := lt.acquire(context.Background(), []domain.Address{testAddr(1)})
		defer r1()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r2, err := lt.acquire(ctx, []domain.Address{testAddr(2)})
		if err != nil {
			t.Fatalf("Disjoint acquire blocked: %v", err)
		}
		r2()
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		lt := newLockTable()
		release, err := lt.acquire(context.Background(), []domain.Address{testAddr(3), testAddr(3)})
		if err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		release()
	})
}
