package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitbazaar/marketplace-backend/internal/api"
	"github.com/bitbazaar/marketplace-backend/internal/auth"
	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/config"
	"github.com/bitbazaar/marketplace-backend/internal/db"
	"github.com/bitbazaar/marketplace-backend/internal/ledger/postgres"
	"github.com/bitbazaar/marketplace-backend/internal/logger"
	"github.com/bitbazaar/marketplace-backend/internal/metrics"
	"github.com/bitbazaar/marketplace-backend/internal/middleware"
	"github.com/bitbazaar/marketplace-backend/internal/oracle"
	"github.com/bitbazaar/marketplace-backend/internal/payments"
	"github.com/bitbazaar/marketplace-backend/internal/services"
	"github.com/bitbazaar/marketplace-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	store := postgres.NewStore(pool)

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL)
	if err != nil {
		log.Error("chain dial", "url", cfg.ChainRPCURL, "err", err)
		os.Exit(1)
	}
	oracleClient := oracle.NewHTTPClient(cfg.OracleURL)

	metrics.Init()

	wp := worker.NewPool(4)
	defer wp.Stop()

	exec := payments.NewExecutor(store, chainClient, oracleClient, cfg, log)
	poller := payments.NewPoller(chainClient, payments.RetryPolicy{
		MaxAttempts: cfg.PollMaxRetries,
		Interval:    cfg.PollInterval,
	}, log)
	issuer := payments.NewCredentialIssuer(store)
	engine := payments.NewRouter(store, chainClient, exec, poller, issuer, wp, cfg.FeeRate, cfg.OrderTTL, log)

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, 15*time.Minute)

	r := api.NewRouter(api.Deps{
		Cfg:        cfg,
		AccountSvc: services.NewAccountService(store, tm),
		ItemSvc:    services.NewItemService(store),
		OrderSvc:   services.NewOrderService(store, engine),
		AuthMW:     middleware.NewAuthMiddleware(tm),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
