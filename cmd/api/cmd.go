package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/bootstrap"
	"github.com/GregMSThompson/treasury-backend/internal/config"
	"github.com/GregMSThompson/treasury-backend/internal/handlers"
	"github.com/GregMSThompson/treasury-backend/internal/registry"
	"github.com/GregMSThompson/treasury-backend/internal/response"
	"github.com/GregMSThompson/treasury-backend/internal/router"
	"github.com/GregMSThompson/treasury-backend/internal/services"
	"github.com/GregMSThompson/treasury-backend/internal/store"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg, err := config.New()
	exitOnError("config failed", err, slog.Default())
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ToContext(ctx, bs.Log)

	// stores
	cstore := store.NewConnectionStore(bs.Firestore)
	lstore := store.NewSyncLogStore(bs.Firestore)
	ledger := store.NewLedgerStore(bs.Firestore)
	mstore := store.NewMemberStore(bs.Firestore)

	// adapters
	policy := banking.DefaultPolicy()
	policy.CallTimeout = cfg.SyncCallTimeout
	policy.FetchTimeout = cfg.SyncFetchTimeout
	policy.MaxRetries = cfg.SyncMaxRetries
	reg := registry.New(bs.Vault, bs.PlaidAdapter, registry.Options{
		Policy: policy,
		Endpoints: registry.Endpoints{
			PayPal:      cfg.PayPalBaseURL,
			OrangeMoney: cfg.OrangeMoneyBaseURL,
			MTNMoney:    cfg.MTNMoneyBaseURL,
			Wave:        cfg.WaveBaseURL,
		},
	})

	// services
	syserv := services.NewSyncService(cstore, lstore, ledger, reg)
	cserv := services.NewConnectionService(cstore, mstore, bs.Vault, reg, bs.PlaidAdapter)
	iserv := services.NewImportService(ledger, mstore)
	rserv := services.NewReportService(ledger, mstore)
	sched := services.NewScheduler(ctx, cstore, mstore, syserv, cfg.SyncConcurrency)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.ConnectionSvc = cserv
	deps.SyncSvc = syserv
	deps.ImportSvc = iserv
	deps.ReportSvc = rserv

	if cfg.SchedulerEnabled {
		exitOnError("scheduler start failed", sched.Start(), bs.Log)
	}

	// router
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router.NewRouter(deps)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitOnError("server start failed", err, bs.Log)
		}
	}()
	bs.Log.Info("api listening", "port", cfg.Port)

	<-ctx.Done()
	bs.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		bs.Log.Error("http shutdown failed", "error", err)
	}
	if cfg.SchedulerEnabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			bs.Log.Error("scheduler stop failed", "error", err)
		}
	}
}
