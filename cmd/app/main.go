package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"service_market/internal/api/grpcserver"
	"service_market/internal/app"
	"service_market/internal/domain"
	"service_market/internal/event"
	"service_market/internal/identity"
	"service_market/internal/infra"
	"service_market/internal/infra/feed"
	"service_market/internal/infra/storage"

	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	cliApp := &cli.App{
		Name:  "service-market",
		Usage: "service marketplace daemon and tools",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the marketplace daemon",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "configs/config.yaml", Usage: "path to the YAML config"},
				},
			},
			{
				Name:   "keygen",
				Usage:  "create a mnemonic and print the wallet address and secret",
				Action: keygen,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mnemonic", Usage: "derive from an existing mnemonic instead"},
					&cli.UintFlag{Name: "index", Value: 0, Usage: "derivation index"},
				},
			},
			{
				Name:   "address",
				Usage:  "derive marketplace and listing addresses",
				Action: deriveAddress,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin", Required: true},
					&cli.Uint64Flag{Name: "seed", Value: 0},
					&cli.StringFlag{Name: "creator", Usage: "with --asset, also derive the listing address"},
					&cli.StringFlag{Name: "asset"},
				},
			},
			{
				Name:   "journal",
				Usage:  "print committed instructions",
				Action: printJournal,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "configs/config.yaml"},
					&cli.Uint64Flag{Name: "after", Value: 0, Usage: "start after this sequence number"},
					&cli.IntFlag{Name: "limit", Value: 100},
				},
			},
			{
				Name:   "watch",
				Usage:  "stream committed events from the ops feed",
				Action: watch,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: "ws://127.0.0.1:9090/ws/events"},
				},
			},
			{
				Name:   "balance",
				Usage:  "query a wallet balance over gRPC",
				Action: queryBalance,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "127.0.0.1:7070", Usage: "gRPC address"},
					&cli.StringFlag{Name: "wallet", Required: true},
				},
			},
			{
				Name:   "buy",
				Usage:  "sign and submit a purchase",
				Action: buy,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "127.0.0.1:7070", Usage: "gRPC address"},
					&cli.StringFlag{Name: "secret", Required: true, EnvVars: []string{"MARKET_BUYER_SECRET"}},
					&cli.StringFlag{Name: "marketplace", Required: true},
					&cli.StringFlag{Name: "seller", Required: true},
					&cli.StringFlag{Name: "asset", Required: true},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("❌ Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// SERVE
func serve(c *cli.Context) error {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap()
	defer bootstrap.Close()
	if err := bootstrap.Initialize(ctx, c.String("config")); err != nil {
		return fmt.Errorf("bootstrapping failed: %w", err)
	}
	return bootstrap.Run(ctx)
}

// KEYS
func keygen(c *cli.Context) error {
	mnemonic := c.String("mnemonic")
	if mnemonic == "" {
		m, err := identity.NewMnemonic()
		if err != nil {
			return err
		}
		mnemonic = m
	}

	kp, err := identity.FromMnemonic(mnemonic, "", uint32(c.Uint("index")))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"mnemonic": mnemonic,
		"address":  kp.Address().String(),
		"secret":   kp.SecretString(),
	})
}

func deriveAddress(c *cli.Context) error {
	admin, err := domain.ParseAddress(c.String("admin"))
	if err != nil {
		return err
	}
	market := domain.MarketplaceAddress(admin, c.Uint64("seed"))
	out := map[string]string{"marketplace": market.String()}

	if c.String("creator") != "" && c.String("asset") != "" {
		creator, err := domain.ParseAddress(c.String("creator"))
		if err != nil {
			return err
		}
		asset, err := domain.ParseAddress(c.String("asset"))
		if err != nil {
			return err
		}
		out["listing"] = domain.ListingAddress(market, creator, asset).String()
	}
	return printJSON(out)
}

// JOURNAL
func printJournal(c *cli.Context) error {
	cfg, err := infra.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.JournalSince(c.Context, c.Uint64("after"), c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%d\t%s\t%s\t%s\n", r.Seq, r.CreatedAt.Format(time.RFC3339), r.Instruction, r.Event)
	}
	return nil
}

func watch(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	inbox := make(chan event.Event, 64)
	w := feed.NewWatcher(c.String("url"), inbox)
	if err := w.Connect(ctx); err != nil {
		return err
	}
	defer w.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-inbox:
			fmt.Printf("%d\t%s\n", ev.GetSeq(), ev.GetType())
		}
	}
}

// CLIENT
func dial(addr string) (*grpcserver.Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return grpcserver.NewClient(conn), conn, nil
}

func queryBalance(c *cli.Context) error {
	client, conn, err := dial(c.String("addr"))
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := client.GetBalance(c.Context, &grpcserver.AddressRequest{Address: c.String("wallet")})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func buy(c *cli.Context) error {
	buyer, err := identity.ParseSecret(c.String("secret"))
	if err != nil {
		return err
	}
	req := &grpcserver.BuyServiceRequest{
		Buyer:       buyer.Address().String(),
		Marketplace: c.String("marketplace"),
		Seller:      c.String("seller"),
		Asset:       c.String("asset"),
	}
	env, err := req.Envelope()
	if err != nil {
		return err
	}
	req.Signatures = grpcserver.Sign(env.Instruction, buyer)

	client, conn, err := dial(c.String("addr"))
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := client.BuyService(c.Context, req)
	if err != nil {
		if code, ok := grpcserver.CodeOf(err); ok {
			return fmt.Errorf("purchase rejected (%s): %w", code, err)
		}
		return err
	}
	return printJSON(resp)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
