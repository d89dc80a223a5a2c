package domain

import (
	"errors"
	"math"
	"testing"

	"service_market/pkg/safe"
)

func TestWallet_CreditDebit(t *testing.T) {
	w := &Wallet{Lamports: 100}

	if err := w.Credit(50); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if w.Lamports != 150 {
		t.Errorf("Expected 150, got %d", w.Lamports)
	}

	if err := w.Debit(150); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if w.Lamports != 0 {
		t.Errorf("Expected 0, got %d", w.Lamports)
	}
}

func TestWallet_DebitInsufficient(t *testing.T) {
	w := &Wallet{Lamports: 10, LastSeq: 5}

	err := w.Debit(11)
	if !errors.Is(err, safe.ErrUnderflow) {
		t.Fatalf("Expected underflow, got %v", err)
	}
	if w.Lamports != 10 || w.LastSeq != 5 {
		t.Error("Failed debit must not modify the wallet")
	}
}

func TestWallet_CreditOverflow(t *testing.T) {
	w := &Wallet{Lamports: math.MaxUint64}
	if err := w.Credit(1); !errors.Is(err, safe.ErrOverflow) {
		t.Errorf("Expected overflow, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1_500_000_000); got != "1.5" {
		t.Errorf("Expected 1.5, got %s", got)
	}
	if got := FormatAmount(1); got != "0.000000001" {
		t.Errorf("Expected 0.000000001, got %s", got)
	}
}

func TestStampSeq(t *testing.T) {
	l := &Listing{Status: ListingListed}
	l.StampSeq(3)
	l.Status = ListingSold
	l.StampSeq(7)
	l.StampSeq(9)
	if l.ListedSeq != 3 || l.SoldSeq != 7 {
		t.Errorf("Expected listed 3 sold 7, got %d/%d", l.ListedSeq, l.SoldSeq)
	}

	m := &Marketplace{}
	m.StampSeq(1)
	m.StampSeq(2)
	if m.CreatedSeq != 1 {
		t.Errorf("Expected created seq 1, got %d", m.CreatedSeq)
	}
}
