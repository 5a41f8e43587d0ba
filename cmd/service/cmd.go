package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/bootstrap"
	"github.com/GregMSThompson/treasury-backend/internal/config"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/internal/registry"
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

// The sync worker runs the scheduler without the HTTP API. On start it
// catches up the hourly batch, then follows the cron triggers.
func main() {
	// bootstrap
	cfg, err := config.New()
	exitOnError("config failed", err, slog.Default())
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ToContext(ctx, bs.Log.With("process", "sync-worker"))

	// stores
	cstore := store.NewConnectionStore(bs.Firestore)
	lstore := store.NewSyncLogStore(bs.Firestore)
	ledger := store.NewLedgerStore(bs.Firestore)
	mstore := store.NewMemberStore(bs.Firestore)

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
	sched := services.NewScheduler(ctx, cstore, mstore, syserv, cfg.SyncConcurrency)

	if _, err := sched.RunNow(ctx, models.FrequencyHourly); err != nil {
		bs.Log.Error("startup batch failed", "error", err)
	}
	exitOnError("scheduler start failed", sched.Start(), bs.Log)

	<-ctx.Done()
	bs.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		bs.Log.Error("scheduler stop failed", "error", err)
	}
}
