package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"service_market/internal/api/grpcserver"
	"service_market/internal/api/ops"
	"service_market/internal/domain"
	"service_market/internal/engine"
	"service_market/internal/event"
	"service_market/internal/infra"
	"service_market/internal/infra/kafka"
	"service_market/internal/infra/outbox"
	"service_market/internal/infra/storage"
	"service_market/internal/jobs/broadcaster"
	"service_market/internal/ledger"
	"service_market/internal/platform/ratelimiter"
	"service_market/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "net/http/pprof" // For pprof profiling
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Metrics   *infra.Metrics
	Storage   *storage.Storage
	Outbox    *outbox.Outbox
	Publisher domain.Publisher
	Bank      *engine.Bank
	Sequencer *engine.Sequencer
	Query     *service.MarketService
	Hub       *ops.Hub
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: infra.GlobalMetrics}
}

// Initialize loads configuration and restores committed state.
// Nothing accepts instructions until Run.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	slog.Info("🚀 Bootstrapping Service Market...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Engine
	b.Bank = engine.NewBank(store)
	b.Sequencer = engine.NewSequencer(engine.Options{
		Workers:   cfg.Engine.Workers,
		InboxSize: cfg.Engine.InboxSize,
		DumpPath:  cfg.Engine.DumpPath,
		Metrics:   b.Metrics,
	}, b.Bank, engine.NewProgram(ledger.NewCore()))

	if err := b.Sequencer.Restore(ctx, store); err != nil {
		return err
	}

	b.Query = service.NewMarketService(b.Bank)
	b.Query.Rebuild(b.Bank.Snapshot())
	b.Hub = ops.NewHub(b.Metrics)

	// 5. Outbox + Publisher
	if cfg.Outbox.Enabled {
		ob, err := outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			return err
		}
		b.Outbox = ob
		slog.Info("✅ Outbox opened", slog.String("dir", cfg.Outbox.Dir))

		if err := b.refillOutbox(ctx); err != nil {
			return fmt.Errorf("refill outbox: %w", err)
		}
	}
	pub, err := kafka.NewPublisher(cfg.Publisher.Driver, cfg.Publisher.Brokers, cfg.Publisher.Topic)
	if err != nil {
		return err
	}
	b.Publisher = pub

	// 6. Commit hooks; registered before genesis so it reaches every sink
	b.Bank.OnCommit(b.onCommit)

	// 7. Genesis
	allocs, err := genesisAllocations(cfg.Genesis.Accounts)
	if err != nil {
		return err
	}
	if err := b.Sequencer.Genesis(ctx, allocs); err != nil {
		return err
	}
	return nil
}

func (b *Bootstrap) onCommit(seq uint64, ev event.Event, payload []byte) {
	b.Query.Apply(ev)
	b.Hub.Broadcast(payload)

	if b.Outbox == nil {
		return
	}
	// the journal already holds the event; a failed enqueue is refilled on the next commit or restart
	var err error
	if b.Outbox.Watermark()+1 == seq {
		err = b.Outbox.PutNew(seq, payload)
	} else {
		err = b.refillOutbox(context.Background())
	}
	if err != nil {
		b.Metrics.RecordError()
		slog.Error("Failed to enqueue event", slog.Uint64("seq", seq), slog.Any("error", err))
	}
}

const refillBatch = 512

// refillOutbox re-enqueues every journaled event above the outbox watermark.
func (b *Bootstrap) refillOutbox(ctx context.Context) error {
	after := b.Outbox.Watermark()
	refilled := 0
	for {
		recs, err := b.Storage.JournalSince(ctx, after, refillBatch)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			break
		}
		for _, rec := range recs {
			if err := b.Outbox.PutNew(rec.Seq, rec.Event); err != nil {
				return err
			}
			after = rec.Seq
			refilled++
		}
	}
	if refilled > 0 {
		slog.Warn("Outbox refilled from journal", slog.Int("events", refilled), slog.Uint64("watermark", after))
	}
	return nil
}

func genesisAllocations(accounts []infra.GenesisAccount) ([]engine.Allocation, error) {
	allocs := make([]engine.Allocation, 0, len(accounts))
	for i, acc := range accounts {
		addr, err := domain.ParseAddress(acc.Address)
		if err != nil {
			return nil, &domain.ConfigError{Field: fmt.Sprintf("genesis.accounts[%d].address", i), Err: err}
		}
		allocs = append(allocs, engine.Allocation{Address: addr, Lamports: acc.Lamports})
	}
	return allocs, nil
}

// Run serves until ctx is done, then shuts everything down in reverse order.
func (b *Bootstrap) Run(ctx context.Context) error {
	cfg := b.Config
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	// Pprof Server (localhost only)
	if cfg.API.PprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", cfg.API.PprofAddr))
			if err := http.ListenAndServe(cfg.API.PprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// Sequencer (the hot path)
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Sequencer.Run(runCtx)
	}()

	// Broadcaster
	if b.Outbox != nil && b.Publisher != nil {
		interval := time.Duration(cfg.Publisher.PollIntervalMS) * time.Millisecond
		bc := broadcaster.New(b.Outbox, b.Publisher, interval, b.Metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			bc.Run(runCtx)
		}()
	}

	// Ops HTTP
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		infra.NewMetricsCollector("service_market", b.Metrics),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opsServer := ops.NewServer(cfg.API.OpsAddr, reg, b.Bank, b.Query, b.Hub)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	// gRPC
	lis, err := net.Listen("tcp", cfg.API.GRPCAddr)
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("listen %s: %w", cfg.API.GRPCAddr, err)
	}
	limiter := ratelimiter.New(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst, 10*time.Minute)
	grpcServer := grpcserver.NewGRPCServer(grpcserver.NewServer(b.Sequencer, b.Query), limiter)
	go func() {
		slog.Info("✅ gRPC server listening", slog.String("addr", cfg.API.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	slog.InfoContext(ctx, "✨ Service Market fully operational. Press Ctrl+C to exit.",
		slog.Uint64("last_seq", b.Bank.LastSeq()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	slog.Info("👋 Shutting down gracefully...")
	grpcServer.GracefulStop()
	cancel()
	wg.Wait()
	return runErr
}

// Close releases storage handles. Call after Run returns.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Publisher != nil {
		errs = append(errs, b.Publisher.Close())
	}
	if b.Outbox != nil {
		errs = append(errs, b.Outbox.Close())
	}
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
