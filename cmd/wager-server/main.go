package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/kapu/lichess-wager-go/internal/config"
	"github.com/kapu/lichess-wager-go/internal/escrow"
	"github.com/kapu/lichess-wager-go/internal/gateway"
	"github.com/kapu/lichess-wager-go/internal/obslog"
	"github.com/kapu/lichess-wager-go/internal/oracle"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	// Escrow ledger (Redis-backed)
	ledger, err := escrow.NewLedger(cfg.RedisURL, cfg.AdminAddress)
	if err != nil {
		log.Fatalf("ledger init error: %v", err)
	}

	// Settled-game archive is optional; the ledger stays authoritative
	// without it.
	var repo *escrow.Repository
	if cfg.DatabaseURL != "" {
		repo, err = escrow.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive repo init error: %v", err)
		}
		ledger.AttachRepository(repo)
	}

	// Result oracle shares the redis connection.
	opts, err := escrow.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	orc := oracle.New(rdb, ledger, cfg.AdminAddress, cfg.OracleAddress)
	if err := ledger.UpdateOracle(cfg.AdminAddress, orc.Identity()); err != nil {
		log.Fatalf("oracle bind error: %v", err)
	}

	if err := applySeed(cfg, ledger, orc); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	srv := gateway.NewServer(ledger, orc, cfg.AdminAddress)
	bridge := gateway.NewBridge(srv, cfg.RequestTimeout)

	go func() {
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			obslog.L().Error("gateway_serve_error", zap.Error(err))
		}
	}()
	go func() {
		if err := bridge.ListenAndServe(cfg.WSListenAddr); err != nil {
			obslog.L().Error("bridge_serve_error", zap.Error(err))
		}
	}()

	obslog.L().Info("wager_server_up",
		zap.String("listen", cfg.ListenAddr),
		zap.String("ws_listen", cfg.WSListenAddr),
		zap.String("oracle", cfg.OracleAddress),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = bridge.Shutdown(sctx)
	_ = srv.Shutdown()
	_ = ledger.Close()
	_ = rdb.Close()
	if repo != nil {
		_ = repo.Close()
	}
}

// applySeed grants seeded operators and credits seeded accounts. Deposits
// are additive, so re-running against a warm store inflates balances; the
// seed file is meant for fresh dev/test environments only.
func applySeed(cfg *appcfg.AppConfig, ledger *escrow.Ledger, orc *oracle.Oracle) error {
	seed, err := cfg.LoadSeed()
	if err != nil || seed == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, op := range seed.Operators {
		if err := orc.AddOperator(ctx, cfg.AdminAddress, op); err != nil {
			return err
		}
	}
	for _, acct := range seed.Accounts {
		if acct.Balance == 0 {
			continue
		}
		if _, err := ledger.Vault().Deposit(ctx, acct.Address, acct.Balance); err != nil {
			return err
		}
	}
	obslog.L().Info("seed_applied",
		zap.Int("operators", len(seed.Operators)),
		zap.Int("accounts", len(seed.Accounts)),
	)
	return nil
}
