package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"service_market/internal/domain"
	"service_market/internal/event"
	"service_market/internal/identity"
	"service_market/internal/infra"
)

// Envelope is a signed instruction. Signatures follow Instruction.Signers order.
type Envelope struct {
	Instruction Instruction
	Signatures  []identity.Signature
}

// Snapshot is the persisted state the sequencer restores from.
type Snapshot interface {
	LoadAccounts(ctx context.Context) ([]domain.Account, error)
	JournalSeqs(ctx context.Context) ([]uint64, error)
}

// Options configures the sequencer.
type Options struct {
	Workers   int
	InboxSize int
	DumpPath  string
	Metrics   *infra.Metrics
}

type request struct {
	ctx   context.Context
	env   Envelope
	reply chan result
}

type result struct {
	receipt Receipt
	err     error
}

// Sequencer is the instruction intake. Workers drain the inbox; the bank's
// lock table serializes instructions whose account sets overlap, disjoint
// ones run in parallel.
type Sequencer struct {
	inbox   chan *request
	bank    *Bank
	program *Program

	workers  int
	dumpPath string
	metrics  *infra.Metrics
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(opts Options, bank *Bank, program *Program) *Sequencer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.DumpPath == "" {
		opts.DumpPath = "panic_dump.json"
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	return &Sequencer{
		inbox:    make(chan *request, opts.InboxSize),
		bank:     bank,
		program:  program,
		workers:  opts.Workers,
		dumpPath: opts.DumpPath,
		metrics:  opts.Metrics,
	}
}

// Bank returns the committed state.
func (s *Sequencer) Bank() *Bank {
	return s.bank
}

// Submit queues env and waits for its outcome. If ctx ends after the
// instruction was queued it may still commit.
func (s *Sequencer) Submit(ctx context.Context, env Envelope) (Receipt, error) {
	if env.Instruction == nil {
		return Receipt{}, domain.ErrInvalidInstruction
	}
	req := &request{ctx: ctx, env: env, reply: make(chan result, 1)}

	select {
	case s.inbox <- req:
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.receipt, r.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is done and they have exited.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started", slog.Int("workers", s.workers), slog.Uint64("last_seq", s.bank.LastSeq()))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}
	wg.Wait()
	slog.Info("Sequencer stopped", slog.Uint64("last_seq", s.bank.LastSeq()))
}

func (s *Sequencer) worker(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			// Halt after dump; committed state is already durable.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.inbox:
			s.process(req)
		}
	}
}

func (s *Sequencer) process(req *request) {
	start := time.Now()
	receipt, err := s.execute(req.ctx, req.env)
	if err != nil {
		s.metrics.RecordError()
		slog.Debug("Instruction rejected",
			slog.String("kind", req.env.Instruction.Kind()),
			slog.Any("error", err))
	} else {
		s.metrics.RecordInstruction(time.Since(start).Nanoseconds())
		if _, ok := receipt.Event.(*event.ServicePurchasedEvent); ok {
			s.metrics.RecordSale()
		}
	}
	req.reply <- result{receipt: receipt, err: err}
}

func (s *Sequencer) execute(ctx context.Context, env Envelope) (Receipt, error) {
	ins := env.Instruction
	if ins.Kind() == KindGenesis {
		return Receipt{}, fmt.Errorf("%w: genesis is internal", domain.ErrInvalidInstruction)
	}
	if err := verifySignatures(env); err != nil {
		return Receipt{}, err
	}
	return s.bank.Execute(ctx, ins, func(tx *Tx) (event.Event, error) {
		return s.program.Execute(tx, ins)
	})
}

func verifySignatures(env Envelope) error {
	signers := env.Instruction.Signers()
	if len(env.Signatures) != len(signers) {
		return domain.ErrUnauthorized
	}
	msg := env.Instruction.Message()
	for i, signer := range signers {
		if !identity.Verify(signer, msg, env.Signatures[i]) {
			return domain.ErrUnauthorized
		}
	}
	return nil
}

// Genesis funds the configured wallets on an empty journal. It is a no-op
// once anything has been committed.
func (s *Sequencer) Genesis(ctx context.Context, allocations []Allocation) error {
	if s.bank.LastSeq() != 0 || len(allocations) == 0 {
		return nil
	}
	ins := &Genesis{Allocations: allocations}
	receipt, err := s.bank.Execute(ctx, ins, func(tx *Tx) (event.Event, error) {
		return s.program.Execute(tx, ins)
	})
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	slog.Info("Genesis committed", slog.Uint64("seq", receipt.Seq), slog.Int("wallets", len(allocations)))
	return nil
}

// Restore loads committed state from snap. The journal must be gap-free;
// a gap halts startup.
func (s *Sequencer) Restore(ctx context.Context, snap Snapshot) error {
	seqs, err := snap.JournalSeqs(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	next := uint64(1)
	for _, seq := range seqs {
		if seq != next {
			panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", next, seq))
		}
		next++
	}

	accounts, err := snap.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	s.bank.Restore(accounts, next-1)
	slog.Info("State restored", slog.Int("accounts", len(accounts)), slog.Uint64("last_seq", next-1))
	return nil
}

type dumpedAccount struct {
	Kind    string         `json:"kind"`
	Account domain.Account `json:"account"`
}

// DumpState writes the committed state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	snapshot := s.bank.Snapshot()
	accounts := make([]dumpedAccount, 0, len(snapshot))
	for _, acc := range snapshot {
		accounts = append(accounts, dumpedAccount{Kind: acc.Kind().String(), Account: acc})
	}

	data := struct {
		LastSeq  uint64          `json:"last_seq"`
		Accounts []dumpedAccount `json:"accounts"`
	}{
		LastSeq:  s.bank.LastSeq(),
		Accounts: accounts,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
