package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"service_market/internal/domain"
	"service_market/internal/event"
)

// Receipt describes a committed instruction.
type Receipt struct {
	Seq   uint64
	Event event.Event
}

// CommitHook observes commits in sequence order. Hooks run on the commit
// path and must not block.
type CommitHook func(seq uint64, ev event.Event, payload []byte)

// Bank holds the committed account state. All mutation goes through
// Execute, which runs a handler on an overlay Tx and commits all of its
// writes or none.
type Bank struct {
	mu       sync.RWMutex // guards accounts
	accounts map[domain.Address]domain.Account

	locks *lockTable

	commitMu sync.Mutex // orders seq assignment, persistence and hooks
	lastSeq  atomic.Uint64
	journal  domain.Journal
	hooks    []CommitHook

	now func() time.Time
}

// NewBank creates an empty bank. journal may be nil for in-memory use.
func NewBank(journal domain.Journal) *Bank {
	return &Bank{
		accounts: make(map[domain.Address]domain.Account),
		locks:    newLockTable(),
		journal:  journal,
		now:      time.Now,
	}
}

// OnCommit registers a hook. Not safe to call once instructions are running.
func (b *Bank) OnCommit(h CommitHook) {
	b.hooks = append(b.hooks, h)
}

// Restore replaces the committed state, used at startup.
func (b *Bank) Restore(accounts []domain.Account, lastSeq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts = make(map[domain.Address]domain.Account, len(accounts))
	for _, acc := range accounts {
		b.accounts[acc.AccountAddress()] = acc.Clone()
	}
	b.lastSeq.Store(lastSeq)
}

// LastSeq returns the sequence number of the last commit.
func (b *Bank) LastSeq() uint64 {
	return b.lastSeq.Load()
}

// Account returns a copy of the committed account at addr.
func (b *Bank) Account(addr domain.Address) (domain.Account, bool) {
	return b.lookup(addr)
}

func (b *Bank) lookup(addr domain.Address) (domain.Account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	acc, ok := b.accounts[addr]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// Snapshot returns copies of all committed accounts ordered by address.
func (b *Bank) Snapshot() []domain.Account {
	b.mu.RLock()
	out := make([]domain.Account, 0, len(b.accounts))
	for _, acc := range b.accounts {
		out = append(out, acc.Clone())
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].AccountAddress().Less(out[j].AccountAddress())
	})
	return out
}

// Execute locks the instruction's accounts, runs fn and commits the result.
// If fn fails, or persistence fails, no state changes.
func (b *Bank) Execute(ctx context.Context, ins Instruction, fn func(tx *Tx) (event.Event, error)) (Receipt, error) {
	declared := ins.Accounts()
	release, err := b.locks.acquire(ctx, declared)
	if err != nil {
		return Receipt{}, err
	}
	defer release()

	tx := newTx(b, declared)
	ev, err := fn(tx)
	if err != nil {
		return Receipt{}, err
	}
	return b.commit(ctx, ins, tx, ev)
}

func (b *Bank) commit(ctx context.Context, ins Instruction, tx *Tx, ev event.Event) (Receipt, error) {
	payload, err := json.Marshal(ins)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode %s: %w", ins.Kind(), err)
	}

	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	seq := b.lastSeq.Load() + 1
	now := b.now()

	dirty := tx.dirty()
	for _, acc := range dirty {
		if s, ok := acc.(domain.Sequenced); ok {
			s.StampSeq(seq)
		}
	}
	ev.Stamp(seq, now.UnixMilli())

	data, err := event.Marshal(ev)
	if err != nil {
		return Receipt{}, err
	}

	// WAL-first: nothing becomes visible unless it is durable
	if b.journal != nil {
		rec := &domain.CommitRecord{
			Seq:         seq,
			Instruction: ins.Kind(),
			Payload:     payload,
			Signers:     ins.Signers(),
			Accounts:    dirty,
			Event:       data,
			Time:        now,
		}
		if err := b.journal.Append(ctx, rec); err != nil {
			return Receipt{}, fmt.Errorf("persist seq %d: %w", seq, err)
		}
	}

	b.mu.Lock()
	for _, acc := range dirty {
		b.accounts[acc.AccountAddress()] = acc
	}
	b.mu.Unlock()
	b.lastSeq.Store(seq)

	for _, h := range b.hooks {
		h(seq, ev, data)
	}
	return Receipt{Seq: seq, Event: ev}, nil
}
