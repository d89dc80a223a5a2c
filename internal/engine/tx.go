package engine

import (
	"fmt"

	"service_market/internal/domain"
)

// Tx is an overlay over the bank's committed accounts. Reads see the
// instruction's own writes first; nothing is visible outside the Tx until
// the bank commits it. Only declared addresses may be touched.
type Tx struct {
	bank     *Bank
	declared map[domain.Address]struct{}
	writes   map[domain.Address]domain.Account
	order    []domain.Address // first-write order, keeps commits deterministic
}

var _ domain.Accounts = (*Tx)(nil)

func newTx(bank *Bank, declared []domain.Address) *Tx {
	tx := &Tx{
		bank:     bank,
		declared: make(map[domain.Address]struct{}, len(declared)),
		writes:   make(map[domain.Address]domain.Account),
	}
	for _, a := range declared {
		tx.declared[a] = struct{}{}
	}
	return tx
}

func (tx *Tx) checkDeclared(addr domain.Address) error {
	if _, ok := tx.declared[addr]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUndeclaredAccount, addr)
	}
	return nil
}

// Get returns a private copy of the account at addr.
func (tx *Tx) Get(addr domain.Address) (domain.Account, bool, error) {
	if err := tx.checkDeclared(addr); err != nil {
		return nil, false, err
	}
	if acc, ok := tx.writes[addr]; ok {
		return acc.Clone(), true, nil
	}
	acc, ok := tx.bank.lookup(addr)
	if !ok {
		return nil, false, nil
	}
	return acc, true, nil
}

// Put stages acc for commit.
func (tx *Tx) Put(acc domain.Account) error {
	addr := acc.AccountAddress()
	if err := tx.checkDeclared(addr); err != nil {
		return err
	}
	if _, ok := tx.writes[addr]; !ok {
		tx.order = append(tx.order, addr)
	}
	tx.writes[addr] = acc.Clone()
	return nil
}

// Create stages a new account and fails if one already exists at its address.
func (tx *Tx) Create(acc domain.Account) error {
	_, exists, err := tx.Get(acc.AccountAddress())
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyExists
	}
	return tx.Put(acc)
}

// Wallet loads the wallet at addr. A missing wallet reads as an empty one.
func (tx *Tx) Wallet(addr domain.Address) (*domain.Wallet, error) {
	acc, ok, err := tx.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.Wallet{Address: addr}, nil
	}
	w, ok := acc.(*domain.Wallet)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds a %s account", domain.ErrInvalidInstruction, addr, acc.Kind())
	}
	return w, nil
}

// dirty returns the staged accounts in first-write order.
func (tx *Tx) dirty() []domain.Account {
	out := make([]domain.Account, 0, len(tx.order))
	for _, addr := range tx.order {
		out = append(out, tx.writes[addr])
	}
	return out
}
