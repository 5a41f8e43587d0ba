package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

const defaultConcurrency = 4

// --- Dependencies (minimal interfaces scoped to this service) ---

type scheduleStore interface {
	ListSchedulable(ctx context.Context, freq models.SyncFrequency) ([]*models.Connection, error)
}

type adminLookup interface {
	FirstAdmin(ctx context.Context, bureauID string) (string, error)
}

type syncRunner interface {
	Sync(ctx context.Context, connectionID string, syncType models.SyncType, uid string) (dto.SyncResult, error)
}

type scheduler struct {
	conns       scheduleStore
	members     adminLookup
	runner      syncRunner
	concurrency int
	cron        *cron.Cron
	baseCtx     context.Context
}

// NewScheduler wires the hourly and daily batches. ctx carries the logger
// and bounds every run the scheduler starts.
func NewScheduler(ctx context.Context, conns scheduleStore, members adminLookup, runner syncRunner, concurrency int) *scheduler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	cl := cronLogger{log: logger.FromContext(ctx).With("component", "scheduler")}
	return &scheduler{
		conns:       conns,
		members:     members,
		runner:      runner,
		concurrency: concurrency,
		baseCtx:     ctx,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

func (s *scheduler) Start() error {
	for spec, freq := range map[string]models.SyncFrequency{
		"@hourly": models.FrequencyHourly,
		"@daily":  models.FrequencyDaily,
	} {
		if _, err := s.cron.AddFunc(spec, func() { s.tick(freq) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	logger.FromContext(s.baseCtx).Info("scheduler started", "concurrency", s.concurrency)
	return nil
}

// Stop waits for running batches or for ctx to expire.
func (s *scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scheduler) tick(freq models.SyncFrequency) {
	if _, err := s.RunNow(s.baseCtx, freq); err != nil {
		logger.FromContext(s.baseCtx).Error("scheduled batch failed", "frequency", freq, "error", err)
	}
}

// RunNow syncs every active auto-sync connection of the given frequency.
// Entries come back in listing order; one connection failing never stops
// the others. The error is only set when the listing itself fails.
func (s *scheduler) RunNow(ctx context.Context, freq models.SyncFrequency) ([]dto.BatchEntry, error) {
	log, ctx := logger.With(ctx, "frequency", freq)

	conns, err := s.conns.ListSchedulable(ctx, freq)
	if err != nil {
		return nil, err
	}
	log.Info("sync batch started", "connections", len(conns))

	results := make([]dto.BatchEntry, len(conns))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range conns {
		g.Go(func() error {
			results[i] = s.runOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Status == dto.BatchError {
			failed++
		}
	}
	log.Info("sync batch finished", "connections", len(conns), "failed", failed)
	return results, nil
}

func (s *scheduler) runOne(ctx context.Context, c *models.Connection) dto.BatchEntry {
	entry := dto.BatchEntry{ConnectionID: c.ConnectionID, Status: dto.BatchSuccess}

	uid, err := s.members.FirstAdmin(ctx, c.BureauID)
	if err != nil {
		entry.Status = dto.BatchError
		entry.Error = err.Error()
		return entry
	}

	res, err := s.runner.Sync(ctx, c.ConnectionID, models.SyncScheduled, uid)
	if err != nil {
		entry.Status = dto.BatchError
		entry.Error = err.Error()
		return entry
	}
	entry.TransactionsSynced = res.TransactionsSynced
	return entry
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
