package engine

import (
	"context"
	"sort"
	"sync"

	"service_market/internal/domain"
)

// lockTable serializes instructions per account address.
// Addresses are always acquired in ascending order, so two instructions
// with overlapping account sets cannot deadlock.
type lockTable struct {
	mu    sync.Mutex
	slots map[domain.Address]*lockSlot
}

type lockSlot struct {
	ch   chan struct{} // capacity 1: a send holds the lock
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[domain.Address]*lockSlot)}
}

// acquire locks every address or none. It blocks until all locks are held
// or ctx is done.
func (lt *lockTable) acquire(ctx context.Context, addrs []domain.Address) (func(), error) {
	keys := sortedUnique(addrs)
	held := make([]*lockSlot, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
		}
		lt.unref(keys)
	}

	lt.ref(keys)
	for _, k := range keys {
		slot := lt.slot(k)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, slot)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (lt *lockTable) ref(keys []domain.Address) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, k := range keys {
		slot, ok := lt.slots[k]
		if !ok {
			slot = &lockSlot{ch: make(chan struct{}, 1)}
			lt.slots[k] = slot
		}
		slot.refs++
	}
}

func (lt *lockTable) unref(keys []domain.Address) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, k := range keys {
		slot := lt.slots[k]
		slot.refs--
		if slot.refs == 0 {
			delete(lt.slots, k)
		}
	}
}

func (lt *lockTable) slot(k domain.Address) *lockSlot {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.slots[k]
}

// size reports how many addresses currently have holders or waiters.
func (lt *lockTable) size() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return len(lt.slots)
}

func sortedUnique(addrs []domain.Address) []domain.Address {
	out := append([]domain.Address(nil), addrs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })

	n := 0
	for i, a := range out {
		if i > 0 && a == out[n-1] {
			continue
		}
		out[n] = a
		n++
	}
	return out[:n]
}
