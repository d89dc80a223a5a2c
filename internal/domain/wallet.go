package domain

import (
	"fmt"
	"math/big"

	"service_market/pkg/safe"

	"github.com/shopspring/decimal"
)

// LamportDecimals is the number of decimal places in one display unit.
const LamportDecimals = 9

// Wallet holds a spendable balance in base units (lamports).
type Wallet struct {
	Address  Address `json:"address"`
	Lamports uint64  `json:"lamports"`
	LastSeq  uint64  `json:"last_seq"` // Last instruction sequence that modified this
}

func (w *Wallet) AccountAddress() Address { return w.Address }
func (w *Wallet) Kind() AccountKind       { return KindWallet }

func (w *Wallet) Clone() Account {
	c := *w
	return &c
}

// CanAfford reports whether the wallet holds at least amount.
func (w *Wallet) CanAfford(amount uint64) bool {
	return w.Lamports >= amount
}

// StampSeq records the committing instruction.
func (w *Wallet) StampSeq(seq uint64) { w.LastSeq = seq }

// Credit adds funds to the wallet.
func (w *Wallet) Credit(amount uint64) error {
	next, err := safe.SafeAdd(w.Lamports, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", w.Address, err)
	}
	w.Lamports = next
	return nil
}

// Debit removes funds from the wallet. A failed debit leaves the balance untouched.
func (w *Wallet) Debit(amount uint64) error {
	next, err := safe.SafeSub(w.Lamports, amount)
	if err != nil {
		return fmt.Errorf("debit %s need %d, available %d: %w", w.Address, amount, w.Lamports, err)
	}
	w.Lamports = next
	return nil
}

// AmountDecimal converts base units to a decimal amount in display units.
func AmountDecimal(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -LamportDecimals)
}

// FormatAmount renders base units as a display string (e.g. "1.5").
func FormatAmount(lamports uint64) string {
	return AmountDecimal(lamports).String()
}
