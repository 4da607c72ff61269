package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/kysee/zkcharity/config"
	"github.com/kysee/zkcharity/zk-charity/charity"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/sdk"
	"github.com/kysee/zkcharity/zk-charity/server"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("zkcharityd stopped")
	}
	log.Info().Msg("server stopped")
}

// run serves until ctx is done, then shuts the HTTP server down.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := prover.LoadOrSetup(cfg.ProofBackend, cfg.KeysDir, log)
	if err != nil {
		return err
	}
	zkProver := prover.New(keys, log)

	registry, err := charity.NewRegistry(db, charity.DefaultCharities, log)
	if err != nil {
		return err
	}
	ledger, err := node.Open(db, zkProver.Verifier(), registry, log)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	lw, err := wallet.New(rng, ledger, wallet.WithDustCapRatio(cfg.DustCapRatio), wallet.WithLogger(log))
	if err != nil {
		return err
	}
	connector := wallet.NewConnector()
	connector.Register(cfg.WalletName, lw)
	w, err := connector.Connect(cfg.WalletName)
	if err != nil {
		return err
	}
	defer connector.Disconnect(cfg.WalletName)

	opts := []sdk.Option{sdk.WithLogger(log)}
	if cfg.SimulatedLatency {
		opts = append(opts, sdk.WithLatency(sdk.SimulatedLatency))
	}
	client := sdk.NewClient(w, zkProver, ledger, registry, db, opts...)
	dashboard := sdk.NewDashboard(client, cfg.DashboardRefresh)

	app := server.NewApp(zkProver, client, dashboard, ledger, registry, log)
	router := server.NewRouter(app, server.RouterConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		TrustProxy:      cfg.TrustProxy,
	}, log)
	srv := server.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := dashboard.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr()).Str("wallet", w.Address()).
			Str("backend", string(zkProver.Backend())).Msg("ZK Charity Proof Server listening")
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
