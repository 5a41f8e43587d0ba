package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

const (
	defaultLookback = 30 * 24 * time.Hour
	defaultLogLimit = 20
	maxLogLimit     = 100
)

// --- Dependencies (minimal interfaces scoped to this service) ---

type syncConnectionStore interface {
	Get(ctx context.Context, connectionID string) (*models.Connection, error)
	GetConfig(ctx context.Context, connectionID string) (*models.SyncConfig, error)
	RecordSuccess(ctx context.Context, connectionID string, at time.Time) error
	RecordFailure(ctx context.Context, connectionID, message string, at time.Time) error
}

type syncLogStore interface {
	Append(ctx context.Context, log *models.SyncLog) error
	Close(ctx context.Context, logID string, status models.SyncStatus, transactionsSynced int, details, errorMessage string, at time.Time) error
	List(ctx context.Context, connectionID string, page, limit int) ([]*models.SyncLog, error)
	Count(ctx context.Context, connectionID string) (int, error)
	Latest(ctx context.Context, connectionID string) (*models.SyncLog, error)
}

type syncLedger interface {
	ImportSync(ctx context.Context, in dto.SyncImport) (dto.ImportResult, error)
}

type adapterRegistry interface {
	Resolve(ctx context.Context, t models.ConnectionType, country, encrypted string) (banking.Adapter, error)
	Build(t models.ConnectionType, country string, creds banking.Credentials) (banking.Adapter, error)
}

type syncService struct {
	conns    syncConnectionStore
	logs     syncLogStore
	ledger   syncLedger
	registry adapterRegistry
	locks    *connectionLocks
	lookback time.Duration
	clockNow func() time.Time
}

func NewSyncService(conns syncConnectionStore, logs syncLogStore, ledger syncLedger, registry adapterRegistry) *syncService {
	return &syncService{
		conns:    conns,
		logs:     logs,
		ledger:   ledger,
		registry: registry,
		locks:    newConnectionLocks(),
		lookback: defaultLookback,
		clockNow: time.Now,
	}
}

// Sync runs one synchronization of a connection: fetch from the provider,
// import into the ledger, advance the checkpoint and close the run's log.
// Every run that gets past the lock leaves exactly one terminal log row.
func (s *syncService) Sync(ctx context.Context, connectionID string, syncType models.SyncType, uid string) (dto.SyncResult, error) {
	if syncType != "" && !syncType.Valid() {
		return dto.SyncResult{}, errs.NewValidationError(fmt.Sprintf("unknown sync type %q", syncType))
	}
	conn, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		return dto.SyncResult{}, err
	}
	cfg, err := s.conns.GetConfig(ctx, connectionID)
	if err != nil {
		return dto.SyncResult{}, err
	}

	if !s.locks.tryLock(connectionID) {
		return dto.SyncResult{}, errs.NewSyncInProgressError(connectionID)
	}
	defer s.locks.unlock(connectionID)

	runType := runTypeFor(syncType, conn, cfg)
	log, ctx := logger.With(ctx, "connection_id", connectionID, "run_type", runType, "provider", conn.Type)

	entry := &models.SyncLog{
		ConnectionID: connectionID,
		Type:         runType,
		Status:       models.SyncInProgress,
		StartedAt:    s.clockNow(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return dto.SyncResult{}, err
	}
	log.Info("sync started", "log_id", entry.LogID)

	result := dto.SyncResult{ConnectionID: connectionID, LogID: entry.LogID, Type: runType}
	details, err := s.run(ctx, conn, cfg, uid, &result)

	// The row must not stay IN_PROGRESS if the caller went away.
	done := logger.Detach(ctx)
	now := s.clockNow()
	if err != nil {
		msg := err.Error()
		if rerr := s.conns.RecordFailure(done, connectionID, msg, now); rerr != nil {
			log.Error("record sync failure failed", "error", rerr)
		}
		if cerr := s.logs.Close(done, entry.LogID, models.SyncFailed, 0, "", msg, now); cerr != nil {
			log.Error("close sync log failed", "log_id", entry.LogID, "error", cerr)
		}
		log.Warn("sync failed", "error", err)
		return result, err
	}

	if cerr := s.logs.Close(done, entry.LogID, models.SyncCompleted, result.TransactionsSynced, details, "", now); cerr != nil {
		log.Error("close sync log failed", "log_id", entry.LogID, "error", cerr)
	}
	log.Info("sync completed",
		"transactions_synced", result.TransactionsSynced,
		"transactions_skipped", result.TransactionsSkipped)
	return result, nil
}

func (s *syncService) run(ctx context.Context, conn *models.Connection, cfg *models.SyncConfig, uid string, result *dto.SyncResult) (string, error) {
	adapter, err := s.registry.Resolve(ctx, conn.Type, conn.Country, conn.Credentials)
	if err != nil {
		return "", err
	}
	session, err := adapter.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := session.Close(logger.Detach(ctx)); cerr != nil {
			logger.FromContext(ctx).Warn("provider session close failed", "error", cerr)
		}
	}()

	if cfg.SyncBalance {
		bal, err := session.Balance(ctx)
		if err != nil {
			return "", err
		}
		result.Balance = &bal
	}

	var fetched []banking.Transaction
	if cfg.SyncTransactions {
		from, to := s.window(conn)
		fetched, err = session.Transactions(ctx, from, to)
		if err != nil {
			return "", err
		}
	}

	imported, err := s.ledger.ImportSync(ctx, dto.SyncImport{
		BureauID:     conn.BureauID,
		ConnectionID: conn.ConnectionID,
		AccountName:  accountName(conn),
		AccountType:  conn.Type.AccountType(),
		Balance:      result.Balance,
		Transactions: toLedger(fetched),
		CreatedBy:    uid,
	})
	if err != nil {
		return "", err
	}

	// Checkpoint only after the import committed.
	if err := s.conns.RecordSuccess(ctx, conn.ConnectionID, s.clockNow()); err != nil {
		return "", err
	}

	result.AccountID = imported.AccountID
	result.TransactionsSynced = imported.Inserted
	result.TransactionsSkipped = imported.Skipped
	return summary(imported, result.Balance), nil
}

// window starts at the checkpoint, or lookback ago on a first run, widened to
// the start of that UTC day so day-granular providers are fully covered.
// Re-fetched rows are dropped by the ledger's dedup.
func (s *syncService) window(conn *models.Connection) (time.Time, time.Time) {
	now := s.clockNow().UTC()
	from := now.Add(-s.lookback)
	if conn.LastSync != nil {
		from = conn.LastSync.UTC()
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	return from, now
}

// TestConnection exercises credentials without touching the ledger or logs.
func (s *syncService) TestConnection(ctx context.Context, req dto.TestConnectionRequest) (dto.TestConnectionResult, error) {
	adapter, err := s.registry.Build(req.Type, req.Country, req.Credentials)
	if err != nil {
		var unsupported *errs.UnsupportedProviderError
		if errors.As(err, &unsupported) {
			return dto.TestConnectionResult{}, err
		}
		return dto.TestConnectionResult{Success: false, Message: err.Error()}, nil
	}

	ok, err := adapter.ValidateCredentials(ctx)
	if err != nil {
		return dto.TestConnectionResult{Success: false, Message: err.Error()}, nil
	}
	if !ok {
		return dto.TestConnectionResult{Success: false, Message: "credentials have an invalid format"}, nil
	}

	session, err := adapter.Connect(ctx)
	if err != nil {
		return dto.TestConnectionResult{Success: false, Message: err.Error()}, nil
	}
	defer session.Close(logger.Detach(ctx))

	bal, err := session.Balance(ctx)
	if err != nil {
		return dto.TestConnectionResult{Success: false, Message: err.Error()}, nil
	}
	return dto.TestConnectionResult{Success: true, Message: "connection successful", Balance: &bal}, nil
}

func (s *syncService) Status(ctx context.Context, connectionID string) (dto.SyncStatus, error) {
	conn, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		return dto.SyncStatus{}, err
	}
	cfg, err := s.conns.GetConfig(ctx, connectionID)
	if err != nil {
		return dto.SyncStatus{}, err
	}
	latest, err := s.logs.Latest(ctx, connectionID)
	if err != nil {
		return dto.SyncStatus{}, err
	}
	total, err := s.logs.Count(ctx, connectionID)
	if err != nil {
		return dto.SyncStatus{}, err
	}

	lastSuccess := "never"
	if cfg.LastSuccess != nil {
		lastSuccess = cfg.LastSuccess.UTC().Format(time.RFC3339)
	}
	return dto.SyncStatus{
		ConnectionID: connectionID,
		IsActive:     conn.IsActive,
		LastSync:     conn.LastSync,
		LastSuccess:  lastSuccess,
		LastError:    cfg.LastError,
		LastLog:      latest,
		TotalRuns:    total,
	}, nil
}

func (s *syncService) Logs(ctx context.Context, connectionID string, page, limit int) (dto.SyncLogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := s.logs.List(ctx, connectionID, page, limit)
	if err != nil {
		return dto.SyncLogPage{}, err
	}
	total, err := s.logs.Count(ctx, connectionID)
	if err != nil {
		return dto.SyncLogPage{}, err
	}
	return dto.SyncLogPage{Logs: logs, Page: page, Limit: limit, Total: total}, nil
}

// --- helpers ---

func runTypeFor(requested models.SyncType, conn *models.Connection, cfg *models.SyncConfig) models.SyncType {
	switch {
	case conn.LastSync == nil:
		return models.SyncInitial
	case requested == models.SyncScheduled && cfg.LastError != "":
		return models.SyncErrorRecovery
	case requested == "":
		return models.SyncManual
	default:
		return requested
	}
}

func accountName(conn *models.Connection) string {
	if conn.Provider != "" {
		return conn.Provider
	}
	return string(conn.Type)
}

func toLedger(txs []banking.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, models.Transaction{
			Type:          t.Direction,
			Category:      t.Category,
			Amount:        t.Amount,
			Currency:      t.Currency,
			Description:   t.Description,
			Date:          t.Date,
			Source:        models.SourceSync,
			ExternalID:    t.ID,
			Provider:      t.Metadata.Provider,
			PaymentMethod: t.Metadata.PaymentMethod,
			Reference:     t.Metadata.Reference,
		})
	}
	return out
}

func summary(res dto.ImportResult, bal *banking.Balance) string {
	s := fmt.Sprintf("%d transaction(s) importée(s), %d ignorée(s)", res.Inserted, res.Skipped)
	if bal != nil {
		s += fmt.Sprintf(", solde %.2f %s", bal.Amount, bal.Currency)
	}
	return s
}

// connectionLocks rejects a second run on a connection while one is live.
type connectionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newConnectionLocks() *connectionLocks {
	return &connectionLocks{held: make(map[string]struct{})}
}

func (l *connectionLocks) tryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *connectionLocks) unlock(id string) {
	l.mu.Lock()
	delete(l.held, id)
	l.mu.Unlock()
}
